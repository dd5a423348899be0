/*
 * FTN77 - Source reader test cases.
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

package scanner

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rcornwell/ftn77/ftn/types"
)

func card(label, body string) string {
	for len(label) < 5 {
		label += " "
	}
	return label + " " + body
}

func TestStatementAssembly(t *testing.T) {
	src := strings.Join([]string{
		"C comment line",
		card("", "PROGRAM P"),
		card("10", "I = 1 +"),
		"     1     2",
		"* another comment",
		card("", "END"),
	}, "\n") + "\n"

	s := New(strings.NewReader(src))

	stmt, err := s.Next()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if stmt == nil || stmt.Text != "PROGRAMP" {
		t.Fatalf("first statement wrong: %+v", stmt)
	}
	if stmt.Label != 0 {
		t.Errorf("unexpected label %d", stmt.Label)
	}

	stmt, err = s.Next()
	if err != nil || stmt == nil {
		t.Fatalf("second statement missing: %v", err)
	}
	want := &Stmt{
		Label: 10,
		Text:  "I=1+2",
		Line:  3,
		Cards: []string{"10    I = 1 +", "     1     2"},
	}
	if diff := cmp.Diff(want, stmt); diff != "" {
		t.Errorf("statement mismatch (-want +got):\n%s", diff)
	}

	stmt, err = s.Next()
	if err != nil || stmt == nil || stmt.Text != "END" {
		t.Fatalf("END statement wrong: %+v %v", stmt, err)
	}
	stmt, err = s.Next()
	if stmt != nil || err != nil {
		t.Errorf("expected clean end of input, got %+v %v", stmt, err)
	}
}

func TestSqueezeQuotes(t *testing.T) {
	src := card("", "S = 'A B''C'") + "\n"
	stmt, _ := New(strings.NewReader(src)).Next()
	if stmt.Text != "S='A B''C'" {
		t.Errorf("quoted blanks lost: %q", stmt.Text)
	}
}

func TestSqueezeHollerith(t *testing.T) {
	src := card("", "X = 3HA B") + "\n"
	stmt, _ := New(strings.NewReader(src)).Next()
	if stmt.Text != "X=3HA B" {
		t.Errorf("hollerith blanks lost: %q", stmt.Text)
	}
}

func TestLowerCaseFold(t *testing.T) {
	src := card("", "call sub(x)") + "\n"
	stmt, _ := New(strings.NewReader(src)).Next()
	if stmt.Text != "CALLSUB(X)" {
		t.Errorf("case fold wrong: %q", stmt.Text)
	}
}

func TestTokens(t *testing.T) {
	c := NewCursor("X+1.5E2*(I.LE.3).AND..TRUE.")

	tok := c.NextToken()
	if tok.Kind != TokIdentifier || tok.Text != "X" {
		t.Fatalf("identifier X got %+v", tok)
	}
	tok = c.NextToken()
	if !tok.IsOp(OpAdd) {
		t.Fatalf("+ got %+v", tok)
	}
	tok = c.NextToken()
	if tok.Kind != TokConstant {
		t.Fatalf("constant got %+v", tok)
	}
	if f, ok := tok.Value.Float(); !ok || f != 150.0 {
		t.Errorf("1.5E2 = 150 got %f", f)
	}
	tok = c.NextToken()
	if !tok.IsOp(OpMul) {
		t.Fatalf("* got %+v", tok)
	}
	tok = c.NextToken()
	if !tok.IsOp(OpLparen) {
		t.Fatalf("( got %+v", tok)
	}
	tok = c.NextToken()
	if tok.Kind != TokIdentifier || tok.Text != "I" {
		t.Fatalf("identifier I got %+v", tok)
	}
	tok = c.NextToken()
	if !tok.IsOp(OpLe) {
		t.Fatalf(".LE. got %+v", tok)
	}
	tok = c.NextToken()
	if tok.Kind != TokConstant {
		t.Fatalf("constant 3 got %+v", tok)
	}
	tok = c.NextToken()
	if !tok.IsOp(OpRparen) {
		t.Fatalf(") got %+v", tok)
	}
	tok = c.NextToken()
	if !tok.IsOp(OpAnd) {
		t.Fatalf(".AND. got %+v", tok)
	}
	tok = c.NextToken()
	if tok.Kind != TokConstant || tok.Value.Tag() != types.Logical {
		t.Fatalf(".TRUE. got %+v", tok)
	}
}

func TestTokenKinds(t *testing.T) {
	cases := []struct {
		text string
		tag  types.BaseType
	}{
		{"42", types.Integer},
		{"1.5", types.Real},
		{"1D0", types.Double},
		{"2.5E-3", types.Real},
		{".5", types.Real},
		{"'HELLO'", types.Character},
		{".FALSE.", types.Logical},
		{"O'17'", types.Integer},
		{"3HABC", types.Character},
	}
	for _, c := range cases {
		tok := NewCursor(c.text).NextToken()
		if tok.Kind != TokConstant {
			t.Errorf("%s: not a constant: %+v", c.text, tok)
			continue
		}
		if tok.Value.Tag() != c.tag {
			t.Errorf("%s: tag %v got %v", c.text, c.tag, tok.Value.Tag())
		}
	}

	tok := NewCursor("O'17'").NextToken()
	if v, _ := tok.Value.Int(); v != 15 {
		t.Errorf("O'17' = 15 got %d", v)
	}
}

func TestDoubleStar(t *testing.T) {
	c := NewCursor("A**B//C")
	c.NextToken()
	if tok := c.NextToken(); !tok.IsOp(OpPow) {
		t.Errorf("** got %+v", tok)
	}
	c.NextToken()
	if tok := c.NextToken(); !tok.IsOp(OpConcat) {
		t.Errorf("// got %+v", tok)
	}
}

func TestDotAmbiguity(t *testing.T) {
	// 1.EQ.2 must scan as 1 .EQ. 2, not 1. EQ . 2.
	c := NewCursor("1.EQ.2")
	tok := c.NextToken()
	if v, ok := tok.Value.Int(); !ok || v != 1 {
		t.Fatalf("integer 1 got %+v", tok)
	}
	if tok = c.NextToken(); !tok.IsOp(OpEq) {
		t.Fatalf(".EQ. got %+v", tok)
	}
}
