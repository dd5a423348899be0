/*
 * FTN77 - Formatted I/O statement handlers
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
	"unicode"

	"github.com/pkg/errors"

	"github.com/rcornwell/ftn77/ftn/expr"
	scan "github.com/rcornwell/ftn77/ftn/scanner"
	"github.com/rcornwell/ftn77/ftn/types"
)

// Default units for the short READ and PRINT forms.
const (
	readUnit  = 5
	printUnit = 6
)

// One I/O list element: a value expression or a nested implied DO.
type ioItem struct {
	tree *scan.Token
	impl *impliedDo
}

type impliedDo struct {
	items []ioItem
	ctl   string // Loop variable name.
	init  *scan.Token
	lim   *scan.Token
	incr  *scan.Token
}

func (p *Parser) handleFormat(cur *scan.Cursor) {
	if p.curStmt.Label == 0 {
		p.error(errors.New("FORMAT needs a statement label"))
		return
	}
	lbl, err := p.tbl.DefineLabel(p.curStmt.Label)
	if err != nil {
		p.error(err)
		return
	}
	lbl.IsFormat = true
	p.emit.FormatData(lbl.CalLabel, cur.Rest())
}

func (p *Parser) handleWrite(cur *scan.Cursor) {
	p.readWrite(cur, false)
}

func (p *Parser) handleRead(cur *scan.Cursor) {
	if cur.Peek() != '(' {
		// Short form: READ f, list
		p.shortIO(cur, true, readUnit)
		return
	}
	p.readWrite(cur, true)
}

func (p *Parser) handlePrint(cur *scan.Cursor) {
	p.shortIO(cur, false, printUnit)
}

// readWrite handles the parenthesised control list form.
func (p *Parser) readWrite(cur *scan.Cursor, read bool) {
	if !cur.Accept('(') {
		p.error(errors.New("missing ( after READ or WRITE"))
		return
	}

	unitReg, err := p.unitSpec(cur, read)
	if err != nil {
		p.error(err)
		return
	}

	fmtReg := -1
	if cur.Accept(',') {
		fmtReg, err = p.formatSpec(cur)
		if err != nil {
			p.error(err)
			return
		}
	}
	if fmtReg < 0 {
		fmtReg, err = p.listDirected()
		if err != nil {
			p.error(err)
			return
		}
	}
	if !cur.Accept(')') {
		p.error(errors.New("missing ) in I/O control list"))
		return
	}
	p.ioBody(cur, read, unitReg, fmtReg)
}

// shortIO handles READ f, list and PRINT f, list.
func (p *Parser) shortIO(cur *scan.Cursor, read bool, unit int) {
	unitReg, err := p.emit.S.Get()
	if err != nil {
		p.error(err)
		return
	}
	p.emit.LoadConst(unitReg, uint64(unit))

	fmtReg, err := p.formatSpec(cur)
	if err != nil {
		p.error(err)
		return
	}
	if fmtReg < 0 {
		fmtReg, err = p.listDirected()
		if err != nil {
			p.error(err)
			return
		}
	}
	cur.Accept(',')
	p.ioBody(cur, read, unitReg, fmtReg)
}

// ioBody emits the frame open, the list element conversions and the
// closing flush.
func (p *Parser) ioBody(cur *scan.Cursor, read bool, unitReg, fmtReg int) {
	items, err := p.parseIOList(cur)
	if err != nil {
		p.error(err)
		return
	}

	p.emit.IOBegin(unitReg, fmtReg)
	p.emit.S.Free(fmtReg)
	p.emit.S.Free(unitReg)

	ordinal := 0
	for _, item := range items {
		if err := p.emitIOItem(read, item, &ordinal); err != nil {
			p.error(err)
			return
		}
	}
	p.emit.IOEnd()
}

// unitSpec evaluates the unit field: * for the default unit, or an
// integer expression.
func (p *Parser) unitSpec(cur *scan.Cursor, read bool) (int, error) {
	if cur.Accept('*') {
		reg, err := p.emit.S.Get()
		if err != nil {
			return 0, err
		}
		unit := printUnit
		if read {
			unit = readUnit
		}
		p.emit.LoadConst(reg, uint64(unit))
		return reg, nil
	}
	tree, err := expr.Parse(cur)
	if err != nil {
		return 0, err
	}
	a, err := p.ev.Eval(tree)
	if err != nil {
		return 0, err
	}
	return p.ev.LoadInteger(&a)
}

// formatSpec evaluates the format field: * for list directed (a zero
// descriptor), a statement label, or a character expression. Returns
// -1 when the field is absent.
func (p *Parser) formatSpec(cur *scan.Cursor) (int, error) {
	if cur.Accept('*') {
		return p.listDirected()
	}
	if unicode.IsDigit(rune(cur.Peek())) {
		num := cur.GetNumber()
		lbl := p.tbl.RefLabel(num)
		reg, err := p.emit.S.Get()
		if err != nil {
			return 0, err
		}
		if err := p.emit.IOFormatLabel(reg, lbl.CalLabel); err != nil {
			return 0, err
		}
		return reg, nil
	}
	if cur.Peek() == ')' {
		return -1, nil
	}

	tree, err := expr.Parse(cur)
	if err != nil {
		return 0, err
	}
	a, err := p.ev.Eval(tree)
	if err != nil {
		return 0, err
	}
	if a.Type.Base == types.Character {
		return p.ev.CharDesc(&a)
	}
	// An integer variable holds an assigned FORMAT label address.
	return p.ev.LoadInteger(&a)
}

// listDirected loads the zero descriptor meaning free format.
func (p *Parser) listDirected() (int, error) {
	reg, err := p.emit.S.Get()
	if err != nil {
		return 0, err
	}
	p.emit.LoadConst(reg, 0)
	return reg, nil
}

// parseIOList collects the element list, recognising implied DO
// groups by the '=' following a loop variable inside parentheses.
func (p *Parser) parseIOList(cur *scan.Cursor) ([]ioItem, error) {
	items := []ioItem{}
	if cur.AtEnd() {
		return items, nil
	}
	for {
		item, err := p.parseIOItem(cur)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if cur.Accept(',') {
			continue
		}
		break
	}
	return items, nil
}

func (p *Parser) parseIOItem(cur *scan.Cursor) (ioItem, error) {
	if cur.Peek() == '(' && impliedAhead(cur) {
		return p.parseImpliedDo(cur)
	}
	tree, err := expr.Parse(cur)
	if err != nil {
		return ioItem{}, err
	}
	if tree == nil {
		return ioItem{}, errors.Wrap(expr.ErrExpressionSyntax, "empty I/O list element")
	}
	return ioItem{tree: tree}, nil
}

// impliedAhead scans for an '=' at depth one before the matching
// close paren, which distinguishes an implied DO group from a
// parenthesised expression or complex constant.
func impliedAhead(cur *scan.Cursor) bool {
	text := cur.Rest()
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\'':
			for i++; i < len(text) && text[i] != '\''; i++ {
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return false
			}
		case '=':
			if depth == 1 {
				return true
			}
		}
	}
	return false
}

func (p *Parser) parseImpliedDo(cur *scan.Cursor) (ioItem, error) {
	cur.Accept('(')
	impl := &impliedDo{}
	for {
		item, err := p.parseIOItem(cur)
		if err != nil {
			return ioItem{}, err
		}
		if cur.Accept('=') {
			// The item just parsed is the loop variable.
			if item.tree == nil || item.tree.Kind != scan.TokIdentifier || item.tree.Args != nil {
				return ioItem{}, errors.Wrap(expr.ErrExpressionSyntax, "bad implied DO variable")
			}
			impl.ctl = item.tree.Text
			impl.init, err = expr.Parse(cur)
			if err != nil {
				return ioItem{}, err
			}
			if !cur.Accept(',') {
				return ioItem{}, errors.Wrap(expr.ErrExpressionSyntax, "implied DO needs a limit")
			}
			impl.lim, err = expr.Parse(cur)
			if err != nil {
				return ioItem{}, err
			}
			if cur.Accept(',') {
				impl.incr, err = expr.Parse(cur)
				if err != nil {
					return ioItem{}, err
				}
			}
			if !cur.Accept(')') {
				return ioItem{}, errors.Wrap(expr.ErrExpressionSyntax, "missing ) after implied DO")
			}
			return ioItem{impl: impl}, nil
		}
		impl.items = append(impl.items, item)
		if cur.Accept(',') {
			continue
		}
		return ioItem{}, errors.Wrap(expr.ErrExpressionSyntax, "malformed implied DO")
	}
}

// emitIOItem converts one list element, or wraps a trip counted loop
// around a nested group.
func (p *Parser) emitIOItem(read bool, item ioItem, ordinal *int) error {
	if item.impl == nil {
		*ordinal++
		reg, temps, err := p.ev.PrepareIO(item.tree)
		if err != nil {
			return err
		}
		if err := p.emit.IOItem(read, *ordinal, reg); err != nil {
			return err
		}
		p.emit.S.Free(reg)
		p.emit.DropStack(temps)
		return nil
	}

	impl := item.impl
	tok := &scan.Token{Kind: scan.TokIdentifier, Text: impl.ctl}
	ref, err := p.ev.EvalRef(tok)
	if err != nil {
		return err
	}

	initReg, err := p.evalToReg(impl.init, types.Integer)
	if err != nil {
		return err
	}
	limReg, err := p.evalToReg(impl.lim, types.Integer)
	if err != nil {
		return err
	}
	var incrReg int
	if impl.incr != nil {
		incrReg, err = p.evalToReg(impl.incr, types.Integer)
	} else {
		incrReg, err = p.emit.S.Get()
		if err == nil {
			p.emit.LoadConst(incrReg, 1)
		}
	}
	if err != nil {
		return err
	}

	if err := p.emit.StoreWord(initReg, ref.Ref); err != nil {
		return err
	}
	if err := p.emit.DoTrip(initReg, limReg, incrReg, false); err != nil {
		return err
	}
	p.emit.S.Free(incrReg)
	p.emit.S.Free(limReg)
	p.emit.S.Free(initReg)

	back := p.emit.NewLabel()
	end := p.emit.NewLabel()
	p.emit.Define(back)

	reg, err := p.emit.S.Get()
	if err != nil {
		return err
	}
	p.emit.DoCurrent(reg)
	if err := p.emit.StoreWord(reg, ref.Ref); err != nil {
		return err
	}
	p.emit.S.Free(reg)
	if err := p.emit.DoTest(end); err != nil {
		return err
	}

	for _, inner := range impl.items {
		if err := p.emitIOItem(read, inner, ordinal); err != nil {
			return err
		}
	}

	if err := p.emit.DoIncr(back, end, false); err != nil {
		return err
	}
	p.emit.Define(end)
	p.emit.DoDrop()
	return nil
}
