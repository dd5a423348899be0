/*
 * FTN77 - Statement tokenizer
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
	"strconv"
	"strings"
	"unicode"

	"github.com/rcornwell/ftn77/ftn/types"
)

// Token kinds.
const (
	TokNone = iota
	TokKeyword
	TokIdentifier
	TokOperator
	TokConstant
	TokInvalid
)

// Operator identifiers.
const (
	OpNone = iota
	OpLparen
	OpRparen
	OpPow
	OpPlus // Unary +
	OpNeg  // Unary -
	OpMul
	OpDiv
	OpAdd
	OpSub
	OpConcat
	OpNot
	OpAnd
	OpOr
	OpEqv
	OpNeqv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpSexpr // Parenthesised subexpression wrapper.
	OpComma
	OpColon
	OpEqual
)

// Operator attributes. Lower precedence binds tighter.
type OperatorDetails struct {
	ID         int
	Name       string
	Precedence int
	RightAssoc bool
	Unary      bool
}

var operators = map[int]OperatorDetails{
	OpLparen: {OpLparen, "(", 0, false, false},
	OpRparen: {OpRparen, ")", 0, false, false},
	OpPow:    {OpPow, "**", 1, true, false},
	OpPlus:   {OpPlus, "+", 2, false, true},
	OpNeg:    {OpNeg, "-", 2, false, true},
	OpMul:    {OpMul, "*", 3, false, false},
	OpDiv:    {OpDiv, "/", 3, false, false},
	OpAdd:    {OpAdd, "+", 4, false, false},
	OpSub:    {OpSub, "-", 4, false, false},
	OpConcat: {OpConcat, "//", 4, false, false},
	OpNot:    {OpNot, ".NOT.", 5, false, true},
	OpAnd:    {OpAnd, ".AND.", 6, false, false},
	OpOr:     {OpOr, ".OR.", 7, false, false},
	OpEqv:    {OpEqv, ".EQV.", 8, false, false},
	OpNeqv:   {OpNeqv, ".NEQV.", 8, false, false},
	OpEq:     {OpEq, ".EQ.", 9, false, false},
	OpNe:     {OpNe, ".NE.", 9, false, false},
	OpLt:     {OpLt, ".LT.", 9, false, false},
	OpLe:     {OpLe, ".LE.", 9, false, false},
	OpGt:     {OpGt, ".GT.", 9, false, false},
	OpGe:     {OpGe, ".GE.", 9, false, false},
	OpSexpr:  {OpSexpr, "()", 0, false, true},
	OpComma:  {OpComma, ",", 10, false, false},
	OpColon:  {OpColon, ":", 10, false, false},
	OpEqual:  {OpEqual, "=", 10, false, false},
}

// Dotted operator and logical constant words.
var dotWords = map[string]int{
	"NOT":  OpNot,
	"AND":  OpAnd,
	"OR":   OpOr,
	"EQV":  OpEqv,
	"NEQV": OpNeqv,
	"EQ":   OpEq,
	"NE":   OpNe,
	"LT":   OpLt,
	"LE":   OpLe,
	"GT":   OpGt,
	"GE":   OpGe,
}

// Operator returns the details record for an operator id.
func Operator(id int) OperatorDetails {
	return operators[id]
}

// One token, or a node of an expression tree. Binary operator nodes
// hold both children; an OpSexpr node holds only Right.
type Token struct {
	Kind  int
	Text  string
	Op    OperatorDetails
	Value types.DataValue
	Left  *Token
	Right *Token
	Args  []*Token // Subscript or argument list of an identifier.
}

// IsOp reports whether the token is the given operator.
func (t *Token) IsOp(id int) bool {
	return t != nil && t.Kind == TokOperator && t.Op.ID == id
}

// Cursor over the squeezed text of one statement.
type Cursor struct {
	text string
	pos  int
}

func NewCursor(text string) *Cursor {
	return &Cursor{text: text}
}

// Rest returns the unconsumed remainder.
func (c *Cursor) Rest() string {
	if c.pos >= len(c.text) {
		return ""
	}
	return c.text[c.pos:]
}

func (c *Cursor) AtEnd() bool {
	return c.pos >= len(c.text)
}

// Peek at next byte without consuming, 0 at end.
func (c *Cursor) Peek() byte {
	if c.pos >= len(c.text) {
		return 0
	}
	return c.text[c.pos]
}

// Peek one past the next byte.
func (c *Cursor) Peek2() byte {
	if c.pos+1 >= len(c.text) {
		return 0
	}
	return c.text[c.pos+1]
}

// GetChar consumes and returns the next byte, 0 at end.
func (c *Cursor) GetChar() byte {
	if c.pos >= len(c.text) {
		return 0
	}
	by := c.text[c.pos]
	c.pos++
	return by
}

// Skip the next byte if it matches.
func (c *Cursor) Accept(by byte) bool {
	if c.Peek() == by {
		c.pos++
		return true
	}
	return false
}

// Mark returns the current position for a later Reset.
func (c *Cursor) Mark() int {
	return c.pos
}

func (c *Cursor) Reset(mark int) {
	c.pos = mark
}

// GetName consumes a letter followed by letters and digits.
func (c *Cursor) GetName() string {
	if !unicode.IsLetter(rune(c.Peek())) {
		return ""
	}
	start := c.pos
	for c.pos < len(c.text) {
		by := c.text[c.pos]
		if !unicode.IsLetter(rune(by)) && !unicode.IsDigit(rune(by)) {
			break
		}
		c.pos++
	}
	return c.text[start:c.pos]
}

// GetNumber consumes an unsigned decimal integer. Returns -1 when no
// digit is present.
func (c *Cursor) GetNumber() int {
	if !unicode.IsDigit(rune(c.Peek())) {
		return -1
	}
	num := 0
	for c.pos < len(c.text) && unicode.IsDigit(rune(c.text[c.pos])) {
		num = num*10 + int(c.text[c.pos]-'0')
		c.pos++
	}
	return num
}

// NextToken reads the next token from the cursor.
func (c *Cursor) NextToken() *Token {
	if c.AtEnd() {
		return &Token{Kind: TokNone}
	}
	by := c.Peek()

	switch {
	case unicode.IsLetter(rune(by)):
		name := c.GetName()
		if name == "O" && c.Peek() == '\'' {
			return c.octalToken()
		}
		return &Token{Kind: TokIdentifier, Text: name}

	case unicode.IsDigit(rune(by)):
		return c.numberToken()

	case by == '\'':
		return c.charToken()

	case by == '.':
		return c.dotToken()
	}

	c.pos++
	switch by {
	case '(':
		return opToken(OpLparen)
	case ')':
		return opToken(OpRparen)
	case ',':
		return opToken(OpComma)
	case ':':
		return opToken(OpColon)
	case '=':
		return opToken(OpEqual)
	case '+':
		return opToken(OpAdd)
	case '-':
		return opToken(OpSub)
	case '*':
		if c.Accept('*') {
			return opToken(OpPow)
		}
		return opToken(OpMul)
	case '/':
		if c.Accept('/') {
			return opToken(OpConcat)
		}
		return opToken(OpDiv)
	}
	return &Token{Kind: TokInvalid, Text: string(by)}
}

func opToken(id int) *Token {
	op := operators[id]
	return &Token{Kind: TokOperator, Text: op.Name, Op: op}
}

// Numeric constant: integer, real, double, hollerith, or a label-like
// plain integer. The scanner has already squeezed blanks.
func (c *Cursor) numberToken() *Token {
	start := c.pos
	num := c.GetNumber()

	// Hollerith nHxxxx was marked by the squeezer.
	if c.Peek() == 'H' {
		c.pos++
		text := ""
		for i := 0; i < num && !c.AtEnd(); i++ {
			text += string(c.GetChar())
		}
		return &Token{Kind: TokConstant, Text: text, Value: types.CharValue(text)}
	}

	isReal := false
	isDouble := false

	// Fractional part. A dot followed by a dotted word (1.EQ.J) is
	// not a decimal point.
	if c.Peek() == '.' && !c.dotWordAhead() {
		isReal = true
		c.pos++
		c.GetNumber()
	}

	// Exponent.
	by := c.Peek()
	if by == 'E' || by == 'D' {
		mark := c.Mark()
		c.pos++
		sign := c.Peek()
		if sign == '+' || sign == '-' {
			c.pos++
		}
		if c.GetNumber() < 0 {
			c.Reset(mark)
		} else {
			isReal = true
			if by == 'D' {
				isDouble = true
			}
		}
	}

	text := c.text[start:c.pos]
	if !isReal {
		val, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return &Token{Kind: TokInvalid, Text: text}
		}
		return &Token{Kind: TokConstant, Text: text, Value: types.IntValue(val)}
	}

	fltText := strings.Replace(text, "D", "E", 1)
	val, err := strconv.ParseFloat(fltText, 64)
	if err != nil {
		return &Token{Kind: TokInvalid, Text: text}
	}
	if isDouble {
		return &Token{Kind: TokConstant, Text: text, Value: types.DoubleValue(val)}
	}
	return &Token{Kind: TokConstant, Text: text, Value: types.RealValue(val)}
}

// Check whether a dotted operator word starts at the current dot.
func (c *Cursor) dotWordAhead() bool {
	i := c.pos + 1
	word := ""
	for i < len(c.text) && unicode.IsLetter(rune(c.text[i])) {
		word += string(c.text[i])
		i++
	}
	if i >= len(c.text) || c.text[i] != '.' {
		return false
	}
	_, ok := dotWords[word]
	return ok
}

// Character literal. The closing quote may be doubled to include a
// quote in the text.
func (c *Cursor) charToken() *Token {
	c.pos++ // Opening quote.
	text := ""
	for {
		if c.AtEnd() {
			return &Token{Kind: TokInvalid, Text: text}
		}
		by := c.GetChar()
		if by == '\'' {
			if c.Peek() == '\'' {
				c.pos++
				text += "'"
				continue
			}
			break
		}
		text += string(by)
	}
	return &Token{Kind: TokConstant, Text: text, Value: types.CharValue(text)}
}

// Dotted word: operator or logical constant.
func (c *Cursor) dotToken() *Token {
	mark := c.Mark()
	c.pos++
	word := c.GetName()
	if !c.Accept('.') {
		c.Reset(mark)
		// A bare dot starts a real constant like .5
		if unicode.IsDigit(rune(c.Peek2())) {
			return c.fractionToken()
		}
		c.pos++
		return &Token{Kind: TokInvalid, Text: "."}
	}
	switch word {
	case "TRUE":
		return &Token{Kind: TokConstant, Text: ".TRUE.", Value: types.LogValue(true)}
	case "FALSE":
		return &Token{Kind: TokConstant, Text: ".FALSE.", Value: types.LogValue(false)}
	}
	id, ok := dotWords[word]
	if !ok {
		return &Token{Kind: TokInvalid, Text: "." + word + "."}
	}
	return opToken(id)
}

// Octal constant O'17'.
func (c *Cursor) octalToken() *Token {
	c.pos++ // Opening quote.
	num := int64(0)
	digits := 0
	for {
		by := c.Peek()
		if by < '0' || by > '7' {
			break
		}
		num = num*8 + int64(by-'0')
		digits++
		c.pos++
	}
	if digits == 0 || !c.Accept('\'') {
		return &Token{Kind: TokInvalid, Text: "O'"}
	}
	return &Token{Kind: TokConstant, Text: "O'" + strconv.FormatInt(num, 8) + "'", Value: types.IntValue(num)}
}

// Real constant beginning with a dot.
func (c *Cursor) fractionToken() *Token {
	start := c.pos
	c.pos++
	c.GetNumber()
	by := c.Peek()
	if by == 'E' || by == 'D' {
		c.pos++
		sign := c.Peek()
		if sign == '+' || sign == '-' {
			c.pos++
		}
		c.GetNumber()
	}
	text := c.text[start:c.pos]
	val, err := strconv.ParseFloat(strings.Replace(text, "D", "E", 1), 64)
	if err != nil {
		return &Token{Kind: TokInvalid, Text: text}
	}
	if strings.ContainsRune(text, 'D') {
		return &Token{Kind: TokConstant, Text: text, Value: types.DoubleValue(val)}
	}
	return &Token{Kind: TokConstant, Text: text, Value: types.RealValue(val)}
}
