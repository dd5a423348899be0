/*
 * FTN77 - Expression tree parser
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
	"github.com/pkg/errors"

	scan "github.com/rcornwell/ftn77/ftn/scanner"
)

// Syntax failure during expression parsing.
var ErrExpressionSyntax = errors.New("expression syntax")

// Parse reads one expression from the cursor and returns its tree.
// The tree records token order, not precedence; the evaluator's
// operator stack restores precedence. Parsing stops, leaving the
// cursor positioned on the terminator, at end of statement or at a
// ')' ',' ':' or '=' that does not belong to the expression. A nil
// tree with nil error means the expression was empty.
func Parse(c *scan.Cursor) (*scan.Token, error) {
	var root *scan.Token
	var pend *scan.Token // Operator node awaiting its right operand.
	needOperand := true

	attach := func(tok *scan.Token) {
		if pend != nil {
			pend.Right = tok
		} else {
			root = tok
		}
	}

	for {
		mark := c.Mark()
		tok := c.NextToken()

		switch tok.Kind {
		case scan.TokNone:
			if needOperand && root != nil {
				return nil, errors.Wrap(ErrExpressionSyntax, "missing operand")
			}
			return root, nil

		case scan.TokInvalid:
			return nil, errors.Wrapf(ErrExpressionSyntax, "invalid token %q", tok.Text)

		case scan.TokConstant:
			if !needOperand {
				return nil, errors.Wrapf(ErrExpressionSyntax, "unexpected constant %q", tok.Text)
			}
			attach(tok)
			pend = nil
			needOperand = false

		case scan.TokIdentifier:
			if !needOperand {
				return nil, errors.Wrapf(ErrExpressionSyntax, "unexpected name %q", tok.Text)
			}
			if c.Peek() == '(' {
				c.GetChar()
				args, err := parseArgs(c)
				if err != nil {
					return nil, err
				}
				tok.Args = args
			}
			attach(tok)
			pend = nil
			needOperand = false

		case scan.TokOperator:
			switch tok.Op.ID {
			case scan.OpLparen:
				if !needOperand {
					return nil, errors.Wrap(ErrExpressionSyntax, "unexpected (")
				}
				sub, err := Parse(c)
				if err != nil {
					return nil, err
				}
				if sub == nil {
					return nil, errors.Wrap(ErrExpressionSyntax, "empty parentheses")
				}
				if !c.Accept(')') {
					return nil, errors.Wrap(ErrExpressionSyntax, "missing )")
				}
				node := &scan.Token{Kind: scan.TokOperator, Op: scan.Operator(scan.OpSexpr), Right: sub}
				attach(node)
				pend = nil
				needOperand = false

			case scan.OpRparen, scan.OpComma, scan.OpColon, scan.OpEqual:
				c.Reset(mark)
				if needOperand && root != nil {
					return nil, errors.Wrapf(ErrExpressionSyntax, "missing operand before %q", tok.Text)
				}
				return root, nil

			case scan.OpAdd, scan.OpSub:
				if needOperand {
					// Leading sign binds as a unary operator.
					id := scan.OpPlus
					if tok.Op.ID == scan.OpSub {
						id = scan.OpNeg
					}
					node := &scan.Token{Kind: scan.TokOperator, Op: scan.Operator(id)}
					attach(node)
					pend = node
					continue
				}
				root = &scan.Token{Kind: scan.TokOperator, Op: tok.Op, Left: root}
				pend = root
				needOperand = true

			case scan.OpNot:
				if !needOperand {
					return nil, errors.Wrap(ErrExpressionSyntax, "unexpected .NOT.")
				}
				node := &scan.Token{Kind: scan.TokOperator, Op: tok.Op}
				attach(node)
				pend = node

			default:
				if needOperand {
					return nil, errors.Wrapf(ErrExpressionSyntax, "missing operand before %q", tok.Text)
				}
				root = &scan.Token{Kind: scan.TokOperator, Op: tok.Op, Left: root}
				pend = root
				needOperand = true
			}
		}
	}
}

// Argument or subscript list after an identifier's opening paren.
// A ':' inside the list builds a substring bound pair; either bound
// may be empty.
func parseArgs(c *scan.Cursor) ([]*scan.Token, error) {
	args := []*scan.Token{}
	for {
		sub, err := Parse(c)
		if err != nil {
			return nil, err
		}
		if c.Accept(':') {
			upper, err := Parse(c)
			if err != nil {
				return nil, err
			}
			sub = &scan.Token{Kind: scan.TokOperator, Op: scan.Operator(scan.OpColon), Left: sub, Right: upper}
		}
		if sub != nil {
			args = append(args, sub)
		}
		if c.Accept(',') {
			continue
		}
		if c.Accept(')') {
			return args, nil
		}
		return nil, errors.Wrap(ErrExpressionSyntax, "missing ) after argument list")
	}
}
