/*
 * FTN77 - Compiler end to end test cases.
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

package parser

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rcornwell/ftn77/ftn/cal"
	"github.com/rcornwell/ftn77/ftn/listing"
	scan "github.com/rcornwell/ftn77/ftn/scanner"
	"github.com/rcornwell/ftn77/ftn/symbols"
)

// stmt builds a fixed form card: label columns 1-5, body from 7.
func stmt(label, body string) string {
	for len(label) < 5 {
		label += " "
	}
	return label + " " + body
}

func compile(t *testing.T, opt Options, lines ...string) (string, error) {
	t.Helper()
	src := strings.Join(lines, "\n") + "\n"
	buf := &bytes.Buffer{}
	tbl := symbols.NewTable()
	emit := cal.NewEmitter(buf, tbl)
	lst := listing.NewWith(nil, io.Discard, time.Unix(0, 0))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(scan.New(strings.NewReader(src)), emit, lst, log, opt)
	err := p.Compile()
	return buf.String(), err
}

func wantAll(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func wantNone(t *testing.T, out string, nots ...string) {
	t.Helper()
	for _, not := range nots {
		if strings.Contains(out, not) {
			t.Errorf("output must not contain %q:\n%s", not, out)
		}
	}
}

// 2+3*4 folds at compile time: one constant load, one store, no
// multiply.
func TestConstantFoldProgram(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "INTEGER I"),
		stmt("", "I = 2 + 3*4"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	wantAll(t, out,
		"IDENT     P",
		"@P",
		"S1        14",
		"-1,A6     S1",
		"F%P      CON       1",
		"END",
	)
	wantNone(t, out, "@%mli")
}

// IF (X .LT. 0) X = -X: compare to a truth mask, branch around the
// negate and store.
func TestLogicalIf(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "IF (X .LT. 0) X = -X"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	wantAll(t, out,
		"<64", // truth mask for the comparison
		"JSM",  // less than test
		"JSP",  // branch on false around the body
		"-FS",  // floating negate
	)
}

// DO 10 I = 1,10 / A(I) = I / 10 CONTINUE: runtime trip count via
// the divide primitive, bounds checked subscript, back branch,
// frame drop at exit.
func TestDoLoop(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "DIMENSION A(10)"),
		stmt("", "DO 10 I = 1,10"),
		stmt("", "A(I) = I"),
		stmt("10", "CONTINUE"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	wantAll(t, out,
		"@%dvi",   // trip count division
		"@%bnderr", // subscript bounds stub
		"@%cif",   // loop value converted for the real array
		"A7+3",    // loop frame drop
		"2,A7",    // trip slot access
	)
	// A back branch to a local label must exist.
	if !strings.Contains(out, "J         L") {
		t.Errorf("no back branch:\n%s", out)
	}
}

// CHARACTER*8 S / S = 'HELLO' copies through the string runtime, not
// a word store.
func TestCharacterAssign(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "CHARACTER*8 S"),
		stmt("", "S = 'HELLO'"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	wantAll(t, out,
		"@%cpystr",
		"'HELLO'",
	)
}

// Two units extending /B/ leave one block with high water 101.
func TestCommonAcrossUnits(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "SUBROUTINE U1"),
		stmt("", "COMMON /B/ X(100), Y"),
		stmt("", "X(1) = 0.0"),
		stmt("", "END"),
		stmt("", "SUBROUTINE U2"),
		stmt("", "COMMON /B/ U(50), V(51)"),
		stmt("", "U(1) = 0.0"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	wantAll(t, out,
		"C%B",
		"SECTION   COMMON",
		"BSS       101",
	)
	wantNone(t, out, "BSS       102")
}

func TestEquivalenceShares(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "REAL A(10)"),
		stmt("", "INTEGER B"),
		stmt("", "EQUIVALENCE (A,B)"),
		stmt("", "B = 1"),
		stmt("", "A(1) = 2.0"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	// Both land on the same frame slot: a 10 word frame with A and
	// B at its base.
	wantAll(t, out, "-10,A6", "F%P      CON       10")
}

func TestComputedGoto(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "I = 2"),
		stmt("", "GO TO (20, 30), I"),
		stmt("20", "CONTINUE"),
		stmt("30", "CONTINUE"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	wantAll(t, out, "CON       L", "B01")
}

func TestAssignedGoto(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "ASSIGN 20 TO I"),
		stmt("", "GO TO I, (20)"),
		stmt("20", "CONTINUE"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	wantAll(t, out, "B01")
}

func TestArithmeticIf(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "I = 0"),
		stmt("", "IF (I) 10, 20, 30"),
		stmt("10", "CONTINUE"),
		stmt("20", "CONTINUE"),
		stmt("30", "CONTINUE"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	wantAll(t, out, "JSM", "JSZ")
}

func TestBlockIf(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "IF (X .GT. 0) THEN"),
		stmt("", "Y = 1.0"),
		stmt("", "ELSE IF (X .LT. 0) THEN"),
		stmt("", "Y = 2.0"),
		stmt("", "ELSE"),
		stmt("", "Y = 3.0"),
		stmt("", "END IF"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	// Three stores and the skip chain.
	if strings.Count(out, "JSP") < 2 {
		t.Errorf("branch chain missing:\n%s", out)
	}
}

func TestStatementFunction(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "F(Y) = Y + 1.0"),
		stmt("", "Z = F(2.0)"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	// Expansion stores the actual, then adds inline: no call.
	wantAll(t, out, "+FS")
	wantNone(t, out, "@F")
}

func TestSubroutineCall(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "CALL SUB1(X, 5)"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	wantAll(t, out, "R         @SUB1")
}

func TestFunctionUnit(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "INTEGER FUNCTION TWICE(N)"),
		stmt("", "TWICE = N + N"),
		stmt("", "RETURN"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	wantAll(t, out,
		"IDENT     TWICE",
		"@TWICE",
		"S7", // function result returned in S7
	)
}

func TestWriteStatement(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "I = 1"),
		stmt("", "WRITE(6,100) I"),
		stmt("100", "FORMAT(1X,I5)"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	wantAll(t, out,
		"@%outfmt",
		"@%endfmt",
		"'(1X,I5)'",
		"A7-4", // the four word I/O frame
	)
}

func TestImpliedDoWrite(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "DIMENSION A(5)"),
		stmt("", "WRITE(6,100) (A(I), I = 1, 5)"),
		stmt("100", "FORMAT(5F8.2)"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	wantAll(t, out, "@%outfmt", "@%dvi", "A7+3")
}

func TestStaticLocalsOption(t *testing.T) {
	out, err := compile(t, Options{StaticLocals: true},
		stmt("", "PROGRAM P"),
		stmt("", "INTEGER I"),
		stmt("", "I = 1"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	// The store goes to the static section, not the frame.
	wantAll(t, out, "D%P")
	wantNone(t, out, "-1,A6     S1")
}

func TestDataStatement(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "INTEGER K"),
		stmt("", "DATA K /42/"),
		stmt("", "K = K + 1"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	// The DATA value appears as an initialised static word.
	wantAll(t, out, "CON       42", "D%P")
}

func TestParameterFolds(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "INTEGER K"),
		stmt("", "PARAMETER (N = 6)"),
		stmt("", "K = N * 7"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	wantAll(t, out, "S1        42")
	wantNone(t, out, "@%mli")
}

func TestErrorRecovery(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "FOO BAR BAZ"),
		stmt("", "I = 1"),
		stmt("", "END"),
	)
	if err == nil {
		t.Fatalf("bad statement did not fail the compilation")
	}
	// Compilation continued: the good statement still produced code.
	wantAll(t, out, "S1        1", "END")
}

func TestUndefinedLabel(t *testing.T) {
	_, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "GO TO 99"),
		stmt("", "END"),
	)
	if err == nil {
		t.Fatalf("unresolved label not reported")
	}
}

func TestMisplacedStatement(t *testing.T) {
	_, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "I = 1"),
		stmt("", "INTEGER J"),
		stmt("", "END"),
	)
	if err == nil {
		t.Fatalf("specification after executable not reported")
	}
}

func TestSharedDoTermination(t *testing.T) {
	out, err := compile(t, Options{},
		stmt("", "PROGRAM P"),
		stmt("", "K = 0"),
		stmt("", "DO 10 I = 1, 3"),
		stmt("", "DO 10 J = 1, 3"),
		stmt("", "K = K + 1"),
		stmt("10", "CONTINUE"),
		stmt("", "END"),
	)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	// Both loops unwind on the shared label: two frame drops.
	if strings.Count(out, "A7+3") != 2 {
		t.Errorf("expected two loop frame drops:\n%s", out)
	}
}
