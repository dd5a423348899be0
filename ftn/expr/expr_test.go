/*
 * FTN77 - Expression parser and evaluator test cases.
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

package expr

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/rcornwell/ftn77/ftn/cal"
	scan "github.com/rcornwell/ftn77/ftn/scanner"
	"github.com/rcornwell/ftn77/ftn/symbols"
	"github.com/rcornwell/ftn77/ftn/types"
)

func testEval() (*Evaluator, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	tbl := symbols.NewTable()
	tbl.SetQualifier("MAIN")
	e := cal.NewEmitter(buf, tbl)
	return New(e), buf
}

func fold(t *testing.T, text string) (Arg, *bytes.Buffer) {
	t.Helper()
	ev, buf := testEval()
	tree, err := Parse(scan.NewCursor(text))
	if err != nil {
		t.Fatalf("%s: parse: %v", text, err)
	}
	a, err := ev.Eval(tree)
	if err != nil {
		t.Fatalf("%s: eval: %v", text, err)
	}
	return a, buf
}

func TestIntFolding(t *testing.T) {
	cases := []struct {
		text string
		want int64
	}{
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"10-2-3", 5},
		{"7/2", 3},
		{"-7/2", -3},
		{"2**3**2", 512},
		{"2**2", 4},
		{"-3+1", -2},
		{"2*(3+4)", 14},
		{"O'17'+1", 16},
	}
	for _, c := range cases {
		a, buf := fold(t, c.text)
		if a.Class != ArgConstant {
			t.Errorf("%s: not folded to constant", c.text)
			continue
		}
		got, ok := a.Value.Int()
		if !ok || got != c.want {
			t.Errorf("%s = %d got %d", c.text, c.want, got)
		}
		if buf.Len() != 0 {
			t.Errorf("%s: folding emitted code:\n%s", c.text, buf.String())
		}
	}
}

func TestRealFolding(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"1.5+2.5", 4.0},
		{"1.0/4.0", 0.25},
		{"2.0**3", 8.0},
		{"3*1.5", 4.5},
		{"1E2+1", 101.0},
	}
	for _, c := range cases {
		a, _ := fold(t, c.text)
		if a.Class != ArgConstant {
			t.Errorf("%s: not folded", c.text)
			continue
		}
		got, ok := a.Value.Float()
		if !ok {
			t.Errorf("%s: not a real result", c.text)
			continue
		}
		if math.Abs(got-c.want) > 1e-12*math.Max(1, math.Abs(c.want)) {
			t.Errorf("%s = %g got %g", c.text, c.want, got)
		}
	}
}

func TestMixedTypeWidens(t *testing.T) {
	a, _ := fold(t, "1+2.5")
	if a.Type.Base != types.Real {
		t.Errorf("integer plus real must be real, got %s", a.Type.Base)
	}
	a, _ = fold(t, "1.5+1D0")
	if a.Type.Base != types.Double {
		t.Errorf("real plus double must be double, got %s", a.Type.Base)
	}
}

func TestLogicalFolding(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{".TRUE..AND..FALSE.", false},
		{".TRUE..OR..FALSE.", true},
		{".NOT..FALSE.", true},
		{".TRUE..EQV..TRUE.", true},
		{".TRUE..NEQV..TRUE.", false},
		{"1.LT.2", true},
		{"2.LE.1", false},
		{"3.EQ.3", true},
		{"3.NE.3", false},
		{"(1.LT.2).AND.(3.GE.2)", true},
		{"'ABC'.LT.'ABD'", true},
		{"'A'.EQ.'A'", true},
	}
	for _, c := range cases {
		a, _ := fold(t, c.text)
		if a.Class != ArgConstant {
			t.Errorf("%s: not folded", c.text)
			continue
		}
		got, ok := a.Value.Logical()
		if !ok || got != c.want {
			t.Errorf("%s = %v got %v", c.text, c.want, got)
		}
	}
}

func TestCharFolding(t *testing.T) {
	a, _ := fold(t, "'AB'//'CD'")
	if a.Class != ArgConstant {
		t.Fatalf("concat not folded")
	}
	s, ok := a.Value.Char()
	if !ok || s != "ABCD" {
		t.Errorf("'AB'//'CD' = ABCD got %q", s)
	}
	if a.Type.Constraint != 4 {
		t.Errorf("result length 4 got %d", a.Type.Constraint)
	}
}

func TestDivZero(t *testing.T) {
	ev, _ := testEval()
	tree, err := Parse(scan.NewCursor("1/0"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = ev.Eval(tree)
	if !errors.Is(err, ErrConstantDivZero) {
		t.Errorf("expected division by zero, got %v", err)
	}
}

func TestCharMixError(t *testing.T) {
	ev, _ := testEval()
	tree, err := Parse(scan.NewCursor("'AB'+1"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err = ev.Eval(tree); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("character arithmetic not rejected: %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"1+",
		"(1+2",
		"*3",
		"1**",
		".NOT.*",
	}
	for _, text := range cases {
		tree, err := Parse(scan.NewCursor(text))
		if err == nil {
			// Some forms only fail at evaluation.
			ev, _ := testEval()
			if _, eerr := ev.Eval(tree); eerr == nil {
				t.Errorf("%q: accepted", text)
			}
		}
	}
}

func TestVariableEmitsLoad(t *testing.T) {
	ev, buf := testEval()
	// Place X so the load has a real displacement.
	if _, err := ev.T.LayoutAuto(); err != nil {
		t.Fatalf("layout: %v", err)
	}
	tree, err := Parse(scan.NewCursor("X+1"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a, err := ev.Eval(tree)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if a.Class != ArgCalculation {
		t.Errorf("variable expression must be a calculation")
	}
	if a.Type.Base != types.Real {
		t.Errorf("implicit X is real, got %s", a.Type.Base)
	}
	out := buf.String()
	if !bytes.Contains([]byte(out), []byte(",A6")) {
		t.Errorf("no frame load emitted:\n%s", out)
	}
	if !bytes.Contains([]byte(out), []byte("+F")) {
		t.Errorf("real add must carry the F modifier:\n%s", out)
	}
}

func TestUnrolledPower(t *testing.T) {
	ev, buf := testEval()
	if _, err := ev.T.LayoutAuto(); err != nil {
		t.Fatalf("layout: %v", err)
	}
	tree, err := Parse(scan.NewCursor("I**2"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err = ev.Eval(tree); err != nil {
		t.Fatalf("eval: %v", err)
	}
	out := buf.String()
	if !bytes.Contains([]byte(out), []byte("@%mli")) {
		t.Errorf("squared integer must multiply:\n%s", out)
	}
	if bytes.Contains([]byte(out), []byte("@%pow")) {
		t.Errorf("small power must not call pow:\n%s", out)
	}
}

func TestSubscriptConstantFolds(t *testing.T) {
	ev, buf := testEval()
	arr := ev.T.Register("A", symbols.ClassAuto)
	arr.Type = types.DataType{Base: types.Real, Rank: 1, Bounds: []types.Bound{{Lower: 1, Upper: 10}}}
	arr.SetSize()
	if _, err := ev.T.LayoutAuto(); err != nil {
		t.Fatalf("layout: %v", err)
	}

	tree, err := Parse(scan.NewCursor("A(3)"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a, err := ev.Eval(tree)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if a.Class != ArgReference {
		t.Fatalf("element reference expected, got class %v", a.Class)
	}
	if a.Ref.OffClass != cal.OffConst || a.Ref.ConstOff != 2 {
		t.Errorf("A(3) offset 2 got class %d off %d", a.Ref.OffClass, a.Ref.ConstOff)
	}
	if buf.Len() != 0 {
		t.Errorf("constant subscript emitted code:\n%s", buf.String())
	}
}

func TestSubscriptOutOfRange(t *testing.T) {
	ev, _ := testEval()
	arr := ev.T.Register("A", symbols.ClassAuto)
	arr.Type = types.DataType{Base: types.Real, Rank: 1, Bounds: []types.Bound{{Lower: 1, Upper: 10}}}
	arr.SetSize()
	if _, err := ev.T.LayoutAuto(); err != nil {
		t.Fatalf("layout: %v", err)
	}
	tree, err := Parse(scan.NewCursor("A(11)"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err = ev.Eval(tree); err == nil {
		t.Errorf("constant subscript past the bound accepted")
	}
}

func TestIntrinsicLen(t *testing.T) {
	a, _ := fold(t, "LEN('HELLO')")
	if a.Class != ArgConstant {
		t.Fatalf("LEN of literal must fold")
	}
	if v, _ := a.Value.Int(); v != 5 {
		t.Errorf("LEN('HELLO') = 5 got %d", v)
	}
}

func TestConversionIntrinsics(t *testing.T) {
	a, _ := fold(t, "INT(2.9)")
	if v, _ := a.Value.Int(); v != 2 {
		t.Errorf("INT(2.9) = 2 got %d", v)
	}
	a, _ = fold(t, "REAL(3)")
	if f, _ := a.Value.Float(); f != 3.0 {
		t.Errorf("REAL(3) = 3.0 got %f", f)
	}
}
