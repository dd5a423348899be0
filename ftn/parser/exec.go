/*
 * FTN77 - Executable statement handlers
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
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/rcornwell/ftn77/ftn/cal"
	"github.com/rcornwell/ftn77/ftn/expr"
	scan "github.com/rcornwell/ftn77/ftn/scanner"
	"github.com/rcornwell/ftn77/ftn/symbols"
	"github.com/rcornwell/ftn77/ftn/types"
)

// handleAssignLike routes a statement of assignment shape: either a
// statement function definition in the specification part or an
// executable assignment.
func (p *Parser) handleAssignLike(cur *scan.Cursor) {
	if p.state < StExecutable {
		mark := cur.Mark()
		name := cur.GetName()
		if name != "" && cur.Peek() == '(' {
			sym := p.tbl.Find(name)
			if sym == nil || sym.Type.Rank == 0 {
				cur.Reset(mark)
				p.stmtFunction(cur)
				return
			}
		}
		cur.Reset(mark)
	}

	p.advance(StExecutable)
	lhsTok, err := expr.Parse(cur)
	if err != nil {
		p.error(err)
		return
	}
	if lhsTok == nil || lhsTok.Kind != scan.TokIdentifier {
		p.error(errors.Wrap(expr.ErrExpressionSyntax, "bad assignment target"))
		return
	}
	if !cur.Accept('=') {
		p.error(errors.Wrap(expr.ErrExpressionSyntax, "missing ="))
		return
	}
	rhsTok, err := expr.Parse(cur)
	if err != nil {
		p.error(err)
		return
	}

	lhs, err := p.ev.EvalRef(lhsTok)
	if err != nil {
		p.error(err)
		return
	}
	rhs, err := p.ev.Eval(rhsTok)
	if err != nil {
		p.error(err)
		return
	}
	if err := p.ev.Assign(lhs, rhs); err != nil {
		p.error(err)
	}
	p.ev.Release(rhs)
	p.releaseRef(lhs)
}

// Free any register a reference target pinned for its subscript.
func (p *Parser) releaseRef(a expr.Arg) {
	if a.Class == expr.ArgReference && a.Ref.OffClass == cal.OffReg {
		p.emit.S.Free(a.Ref.RegOff)
	}
	if a.Class == expr.ArgCalculation {
		p.ev.Release(a)
	}
}

// stmtFunction captures a statement function definition. The body
// text is kept verbatim and re-evaluated at each expansion site.
func (p *Parser) stmtFunction(cur *scan.Cursor) {
	p.advance(StDefinition)
	name := cur.GetName()
	cur.Accept('(')
	args := []string{}
	for {
		arg := cur.GetName()
		if arg == "" {
			break
		}
		args = append(args, arg)
		if cur.Accept(',') {
			continue
		}
		break
	}
	if !cur.Accept(')') || !cur.Accept('=') {
		p.error(errors.New("malformed statement function"))
		return
	}

	prior := p.tbl.Find(name)
	sym := p.tbl.Register(name, symbols.ClassStmtFunction)
	if sym == nil {
		if prior == nil || prior.Class != symbols.ClassAuto || prior.Placed {
			p.error(errors.Wrapf(symbols.ErrDoubleDefinition, "statement function %s", name))
			return
		}
		sym = prior
		sym.Class = symbols.ClassStmtFunction
	}
	if sym.Type.Base == types.Undefined {
		sym.Type = types.Scalar(p.tbl.ImplicitType(name))
	}
	sym.FnArgs = args
	sym.FnBody = cur.Rest()
	expr.DefineStmtFnDummies(p.tbl, sym)
}

// --- control transfer ---

func (p *Parser) handleGoto(cur *scan.Cursor) {
	by := cur.Peek()
	switch {
	case unicode.IsDigit(rune(by)):
		num := cur.GetNumber()
		lbl := p.tbl.RefLabel(num)
		p.emit.Branch(lbl.CalLabel)

	case by == '(':
		p.computedGoto(cur)

	default:
		p.assignedGoto(cur)
	}
}

func (p *Parser) computedGoto(cur *scan.Cursor) {
	cur.Accept('(')
	labels := []string{}
	for {
		num := cur.GetNumber()
		if num < 0 {
			p.error(errors.New("bad label in computed GOTO"))
			return
		}
		labels = append(labels, p.tbl.RefLabel(num).CalLabel)
		if cur.Accept(',') {
			continue
		}
		break
	}
	if !cur.Accept(')') {
		p.error(errors.New("missing ) in computed GOTO"))
		return
	}
	cur.Accept(',')

	tree, err := expr.Parse(cur)
	if err != nil {
		p.error(err)
		return
	}
	a, err := p.ev.Eval(tree)
	if err != nil {
		p.error(err)
		return
	}
	reg, err := p.ev.LoadInteger(&a)
	if err != nil {
		p.error(err)
		return
	}
	if err := p.emit.ComputedGoto(reg, labels); err != nil {
		p.error(err)
	}
	p.emit.S.Free(reg)
}

// Assigned GOTO: the optional label list is accepted and ignored.
func (p *Parser) assignedGoto(cur *scan.Cursor) {
	name := cur.GetName()
	if name == "" {
		p.error(errors.New("bad GOTO"))
		return
	}
	tok := &scan.Token{Kind: scan.TokIdentifier, Text: name}
	ref, err := p.ev.EvalRef(tok)
	if err != nil {
		p.error(err)
		return
	}
	cur.Accept(',')
	if cur.Accept('(') {
		for {
			if cur.GetNumber() < 0 {
				break
			}
			if cur.Accept(',') {
				continue
			}
			break
		}
		cur.Accept(')')
	}
	if err := p.emit.AssignedGoto(ref.Ref); err != nil {
		p.error(err)
	}
}

func (p *Parser) handleAssign(cur *scan.Cursor) {
	num := cur.GetNumber()
	if num < 0 {
		p.error(errors.New("ASSIGN needs a label"))
		return
	}
	name := cur.GetName()
	if !strings.HasPrefix(name, "TO") || len(name) < 3 {
		p.error(errors.New("malformed ASSIGN"))
		return
	}
	name = name[2:]
	lbl := p.tbl.RefLabel(num)
	tok := &scan.Token{Kind: scan.TokIdentifier, Text: name}
	ref, err := p.ev.EvalRef(tok)
	if err != nil {
		p.error(err)
		return
	}
	if err := p.emit.AssignLabel(lbl.CalLabel, ref.Ref); err != nil {
		p.error(err)
	}
}

// --- IF forms ---

func (p *Parser) handleIf(cur *scan.Cursor) {
	if !cur.Accept('(') {
		p.error(errors.New("IF needs a condition"))
		return
	}
	tree, err := expr.Parse(cur)
	if err != nil {
		p.error(err)
		return
	}
	if !cur.Accept(')') {
		p.error(errors.New("missing ) after IF condition"))
		return
	}
	rest := cur.Rest()

	// Block IF.
	if rest == "THEN" {
		blockEnd := p.emit.NewLabel()
		ifEnd := p.emit.NewLabel()
		reg, err := p.evalLogical(tree)
		if err != nil {
			p.error(err)
			return
		}
		p.emit.BranchFalse(reg, blockEnd)
		p.emit.S.Free(reg)
		p.ifStack = append(p.ifStack, ifEntry{blockEnd: blockEnd, ifEnd: ifEnd})
		return
	}

	// Arithmetic IF: exactly three labels.
	if l1, l2, l3, ok := threeLabels(rest); ok {
		a, err := p.ev.Eval(tree)
		if err != nil {
			p.error(err)
			return
		}
		reg, err := p.ev.LoadInteger(&a)
		if err != nil {
			p.error(err)
			return
		}
		p.emit.ArithIf(reg,
			p.tbl.RefLabel(l1).CalLabel,
			p.tbl.RefLabel(l2).CalLabel,
			p.tbl.RefLabel(l3).CalLabel)
		p.emit.S.Free(reg)
		return
	}

	// Logical IF around a simple statement.
	reg, err := p.evalLogical(tree)
	if err != nil {
		p.error(err)
		return
	}
	skip := p.emit.NewLabel()
	p.emit.BranchFalse(reg, skip)
	p.emit.S.Free(reg)
	p.dispatch(rest)
	p.emit.Define(skip)
}

// evalLogical evaluates a condition into a truth register.
func (p *Parser) evalLogical(tree *scan.Token) (int, error) {
	a, err := p.ev.Eval(tree)
	if err != nil {
		return 0, err
	}
	if a.Type.Base != types.Logical && a.Type.Base != types.Integer {
		return 0, errors.Wrapf(expr.ErrTypeMismatch, "%s condition", a.Type.Base)
	}
	return p.ev.LoadInteger(&a)
}

// threeLabels matches "l1,l2,l3".
func threeLabels(text string) (int, int, int, bool) {
	cur := scan.NewCursor(text)
	l1 := cur.GetNumber()
	if l1 < 0 || !cur.Accept(',') {
		return 0, 0, 0, false
	}
	l2 := cur.GetNumber()
	if l2 < 0 || !cur.Accept(',') {
		return 0, 0, 0, false
	}
	l3 := cur.GetNumber()
	if l3 < 0 || !cur.AtEnd() {
		return 0, 0, 0, false
	}
	return l1, l2, l3, true
}

func (p *Parser) handleElseIf(cur *scan.Cursor) {
	if len(p.ifStack) == 0 {
		p.error(errors.New("ELSEIF outside of block IF"))
		return
	}
	top := &p.ifStack[len(p.ifStack)-1]
	p.emit.Branch(top.ifEnd)
	p.emit.Define(top.blockEnd)

	if !cur.Accept('(') {
		p.error(errors.New("ELSEIF needs a condition"))
		return
	}
	tree, err := expr.Parse(cur)
	if err != nil {
		p.error(err)
		return
	}
	if !cur.Accept(')') || cur.Rest() != "THEN" {
		p.error(errors.New("malformed ELSEIF"))
		return
	}
	top.blockEnd = p.emit.NewLabel()
	reg, err := p.evalLogical(tree)
	if err != nil {
		p.error(err)
		return
	}
	p.emit.BranchFalse(reg, top.blockEnd)
	p.emit.S.Free(reg)
}

func (p *Parser) handleElse(_ *scan.Cursor) {
	if len(p.ifStack) == 0 {
		p.error(errors.New("ELSE outside of block IF"))
		return
	}
	top := &p.ifStack[len(p.ifStack)-1]
	p.emit.Branch(top.ifEnd)
	p.emit.Define(top.blockEnd)
	top.blockEnd = ""
}

func (p *Parser) handleEndIf(_ *scan.Cursor) {
	if len(p.ifStack) == 0 {
		p.error(errors.New("ENDIF outside of block IF"))
		return
	}
	top := p.ifStack[len(p.ifStack)-1]
	p.ifStack = p.ifStack[:len(p.ifStack)-1]
	if top.blockEnd != "" {
		p.emit.Define(top.blockEnd)
	}
	p.emit.Define(top.ifEnd)
}

// --- DO loops ---

func (p *Parser) handleDo(cur *scan.Cursor) {
	term := cur.GetNumber()
	if term < 0 {
		p.error(errors.New("DO needs a terminal label"))
		return
	}
	cur.Accept(',')
	name := cur.GetName()
	if name == "" || !cur.Accept('=') {
		p.error(errors.New("malformed DO"))
		return
	}

	tok := &scan.Token{Kind: scan.TokIdentifier, Text: name}
	ref, err := p.ev.EvalRef(tok)
	if err != nil {
		p.error(err)
		return
	}
	if ref.Type.Base != types.Integer && ref.Type.Base != types.Real {
		p.error(errors.Wrap(expr.ErrTypeMismatch, "DO variable must be integer or real"))
		return
	}
	float := ref.Type.Base == types.Real

	initTree, err := expr.Parse(cur)
	if err != nil {
		p.error(err)
		return
	}
	if !cur.Accept(',') {
		p.error(errors.New("DO needs a limit"))
		return
	}
	limTree, err := expr.Parse(cur)
	if err != nil {
		p.error(err)
		return
	}
	var incrTree *scan.Token
	if cur.Accept(',') {
		incrTree, err = expr.Parse(cur)
		if err != nil {
			p.error(err)
			return
		}
	}

	initReg, err := p.evalToReg(initTree, ref.Type.Base)
	if err != nil {
		p.error(err)
		return
	}
	limReg, err := p.evalToReg(limTree, ref.Type.Base)
	if err != nil {
		p.error(err)
		return
	}
	var incrReg int
	if incrTree != nil {
		incrReg, err = p.evalToReg(incrTree, ref.Type.Base)
	} else {
		incrReg, err = p.emit.S.Get()
		if err == nil {
			one := types.IntValue(1)
			if float {
				one = types.RealValue(1)
			}
			p.emit.LoadConst(incrReg, one.Bits())
		}
	}
	if err != nil {
		p.error(err)
		return
	}

	if err := p.emit.StoreWord(initReg, ref.Ref); err != nil {
		p.error(err)
		return
	}
	if err := p.emit.DoTrip(initReg, limReg, incrReg, float); err != nil {
		p.error(err)
		return
	}
	p.emit.S.Free(incrReg)
	p.emit.S.Free(limReg)
	p.emit.S.Free(initReg)

	back := p.emit.NewLabel()
	end := p.emit.NewLabel()
	p.emit.Define(back)

	// Refresh the loop variable from the current value slot.
	reg, err := p.emit.S.Get()
	if err != nil {
		p.error(err)
		return
	}
	p.emit.DoCurrent(reg)
	if err := p.emit.StoreWord(reg, ref.Ref); err != nil {
		p.error(err)
		return
	}
	p.emit.S.Free(reg)

	if err := p.emit.DoTest(end); err != nil {
		p.error(err)
		return
	}
	p.doStack = append(p.doStack, doEntry{term: term, back: back, end: end, ref: ref.Ref, float: float})
}

// evalToReg parses nothing; it evaluates a tree into a register of
// the wanted type.
func (p *Parser) evalToReg(tree *scan.Token, bt types.BaseType) (int, error) {
	a, err := p.ev.Eval(tree)
	if err != nil {
		return 0, err
	}
	return p.ev.LoadAs(&a, bt)
}

// --- simple statements ---

func (p *Parser) handleContinue(_ *scan.Cursor) {
}

func (p *Parser) handleStop(cur *scan.Cursor) {
	p.stopLike(cur, "_stop")
}

func (p *Parser) handlePause(cur *scan.Cursor) {
	p.stopLike(cur, "_pause")
}

func (p *Parser) stopLike(cur *scan.Cursor, prim string) {
	code := uint64(0)
	if !cur.AtEnd() {
		if num := cur.GetNumber(); num >= 0 {
			code = uint64(num)
		}
	}
	reg, err := p.emit.S.Get()
	if err != nil {
		p.error(err)
		return
	}
	p.emit.LoadConst(reg, code)
	p.emit.Push(reg)
	p.emit.S.Free(reg)
	p.emit.Call(prim)
	p.emit.DropStack(1)
}

func (p *Parser) handleReturn(cur *scan.Cursor) {
	if !cur.AtEnd() {
		p.warn("alternate RETURN ignored")
	}
	var result *symbols.Symbol
	if p.unitClass == symbols.ClassFunction {
		result = p.unitSym
	}
	if err := p.emit.Epilog(result); err != nil {
		p.error(err)
	}
}

func (p *Parser) handleCall(cur *scan.Cursor) {
	name := cur.GetName()
	if name == "" {
		p.error(errors.New("CALL needs a name"))
		return
	}
	sym := p.tbl.Find(name)
	if sym == nil {
		sym = p.tbl.Register(name, symbols.ClassExternal)
	} else if sym.Class == symbols.ClassAuto && !sym.Placed {
		sym.Class = symbols.ClassExternal
	}
	if sym.Class != symbols.ClassExternal && sym.Class != symbols.ClassSubroutine {
		p.error(errors.Errorf("%s is not callable", name))
		return
	}

	args := []*scan.Token{}
	if cur.Accept('(') {
		if !cur.Accept(')') {
			for {
				tree, err := expr.Parse(cur)
				if err != nil {
					p.error(err)
					return
				}
				args = append(args, tree)
				if cur.Accept(',') {
					continue
				}
				break
			}
			if !cur.Accept(')') {
				p.error(errors.New("missing ) after CALL"))
				return
			}
		}
	}
	if err := p.ev.CallSubroutine(sym, args); err != nil {
		p.error(err)
	}
}

func (p *Parser) handleEnd(cur *scan.Cursor) {
	if !cur.AtEnd() {
		p.error(errors.New("text after END"))
		return
	}
	p.endUnit()
}
