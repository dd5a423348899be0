/*
 * FTN77 - CAL emitter test cases.
 *
 * Copyright 2025, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package cal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rcornwell/ftn77/ftn/symbols"
	"github.com/rcornwell/ftn77/ftn/types"
)

func testEmitter() (*Emitter, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewEmitter(buf, symbols.NewTable()), buf
}

func TestMapName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"SUB1", "SUB1"},
		{"_cpystr", "%cpystr"},
		{"ABCDEFGH", "ABCDEFGH"},
	}
	for _, c := range cases {
		if got := MapName(c.in); got != c.want {
			t.Errorf("MapName(%q) = %q want %q", c.in, got, c.want)
		}
	}

	long := MapName("VERYLONGEXTERNALNAME")
	if len(long) != 8 {
		t.Errorf("long name not 8 chars: %q", long)
	}
	if !strings.HasPrefix(long, "VERY") {
		t.Errorf("long name lost its head: %q", long)
	}
	other := MapName("VERYLONGEXTERNALNAMF")
	if other == long {
		t.Errorf("distinct names hashed alike: %q", long)
	}
	if MapName("VERYLONGEXTERNALNAME") != long {
		t.Errorf("hashing not deterministic")
	}
}

func TestExtName(t *testing.T) {
	if got := ExtName("_mli"); got != "@%mli" {
		t.Errorf("ExtName(_mli) = %q", got)
	}
}

func TestPrintColumns(t *testing.T) {
	e, buf := testEmitter()
	e.Emit("S1", "S2+S3")
	e.EmitLabel("L000001", "S4", "0,A6")
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("2 lines got %d", len(lines))
	}
	if lines[0] != "         S1        S2+S3" {
		t.Errorf("unlabelled format wrong: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "L000001") {
		t.Errorf("label not in column 1: %q", lines[1])
	}
	if lines[1][9:11] != "S4" {
		t.Errorf("result not in column 10: %q", lines[1])
	}
}

func TestIdentEnd(t *testing.T) {
	e, buf := testEmitter()
	e.Ident("P")
	e.FlushData()
	out := buf.String()
	for _, want := range []string{"IDENT", "SECTION   CODE", "SECTION   *", "END"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCallDiscipline(t *testing.T) {
	e, buf := testEmitter()
	lhs, _ := e.S.Get()
	rhs, _ := e.S.Get()
	other, _ := e.S.Get()
	e.MulInt(lhs, lhs, rhs)
	out := buf.String()

	if !strings.Contains(out, "R         @%mli") {
		t.Errorf("multiply must call the primitive:\n%s", out)
	}
	// The third register is live across the call and must be saved
	// and restored around it.
	saveLine := "0,A7      S" + string(byte('0'+other))
	if !strings.Contains(out, saveLine) {
		t.Errorf("live register not saved (%s):\n%s", saveLine, out)
	}
	if !strings.Contains(out, "S7") {
		t.Errorf("result does not come from S7:\n%s", out)
	}
}

func TestCompareSequence(t *testing.T) {
	e, buf := testEmitter()
	lhs, _ := e.S.Get()
	rhs, _ := e.S.Get()
	e.Compare(lhs, lhs, rhs, BrMinus, false)
	out := buf.String()

	if !strings.Contains(out, "S0") {
		t.Errorf("compare must set the condition register:\n%s", out)
	}
	if !strings.Contains(out, "<64") {
		t.Errorf("compare must preload the truth mask:\n%s", out)
	}
	if !strings.Contains(out, "JSM") {
		t.Errorf("less than uses JSM:\n%s", out)
	}
}

func TestLoadStoreClasses(t *testing.T) {
	e, buf := testEmitter()
	e.Ident("U")

	auto := &symbols.Symbol{Name: "I", Class: symbols.ClassAuto, Offset: -1, Type: types.Scalar(types.Integer)}
	stat := &symbols.Symbol{Name: "S", Class: symbols.ClassStatic, Offset: 2, Type: types.Scalar(types.Integer)}
	blk := &symbols.Common{Name: "B", CalLabel: "C%B"}
	glob := &symbols.Symbol{Name: "G", Class: symbols.ClassGlobal, Offset: 1, Block: blk, Type: types.Scalar(types.Integer)}

	reg, _ := e.S.Get()
	if err := e.LoadWord(reg, Ref{Sym: auto}); err != nil {
		t.Fatalf("auto load: %v", err)
	}
	if err := e.StoreWord(reg, Ref{Sym: stat, OffClass: OffConst, ConstOff: 3}); err != nil {
		t.Fatalf("static store: %v", err)
	}
	if err := e.LoadWord(reg, Ref{Sym: glob}); err != nil {
		t.Fatalf("global load: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "-1,A6") {
		t.Errorf("auto load misses frame displacement:\n%s", out)
	}
	if !strings.Contains(out, "D%U+5,A0") {
		t.Errorf("static store misses section offset:\n%s", out)
	}
	if !strings.Contains(out, "C%B+1,A0") {
		t.Errorf("global load misses block label:\n%s", out)
	}
}

func TestPrologEpilog(t *testing.T) {
	e, buf := testEmitter()
	e.Ident("P")
	e.Prolog("P", true)
	if err := e.Epilog(nil); err != nil {
		t.Fatalf("epilog: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"@P", "B00", "F%P", "@%inifio", "J         B00"} {
		if !strings.Contains(out, want) {
			t.Errorf("prolog/epilog missing %q:\n%s", want, out)
		}
	}
}

func TestComputedGotoTable(t *testing.T) {
	e, buf := testEmitter()
	e.Ident("P")
	reg, _ := e.S.Get()
	if err := e.ComputedGoto(reg, []string{"L000001", "L000002"}); err != nil {
		t.Fatalf("computed goto: %v", err)
	}
	e.FlushData()
	out := buf.String()

	if !strings.Contains(out, "CON       L000001") {
		t.Errorf("jump table entry missing:\n%s", out)
	}
	if !strings.Contains(out, "JSM") || !strings.Contains(out, "JSZ") {
		t.Errorf("bounds check missing:\n%s", out)
	}
	if !strings.Contains(out, "B01") {
		t.Errorf("indirect jump missing:\n%s", out)
	}
}

func TestConstFormat(t *testing.T) {
	if Const(14) != "14" {
		t.Errorf("small constant decimal: %s", Const(14))
	}
	// All ones is the word image of -1 and prints in decimal.
	if Const(0xFFFFFFFFFFFFFFFF) != "-1" {
		t.Errorf("minus one: %s", Const(0xFFFFFFFFFFFFFFFF))
	}
	if Const(1<<40) != "O'20000000000000'" {
		t.Errorf("wide constant octal: %s", Const(1<<40))
	}
}
