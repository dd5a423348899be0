/*
 * FTN77 - Declaration and specification statement handlers
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

	"github.com/pkg/errors"

	"github.com/rcornwell/ftn77/ftn/expr"
	scan "github.com/rcornwell/ftn77/ftn/scanner"
	"github.com/rcornwell/ftn77/ftn/symbols"
	"github.com/rcornwell/ftn77/ftn/types"
)

var typeKeywords = map[string]types.BaseType{
	"INTEGER":         types.Integer,
	"REAL":            types.Real,
	"DOUBLEPRECISION": types.Double,
	"COMPLEX":         types.Complex,
	"LOGICAL":         types.Logical,
	"CHARACTER":       types.Character,
}

func isTypeKeyword(name string) bool {
	_, ok := typeKeywords[name]
	return ok
}

// --- unit headers ---

func (p *Parser) handleProgram(cur *scan.Cursor) {
	name := cur.GetName()
	if name == "" {
		p.error(errors.New("PROGRAM needs a name"))
		return
	}
	p.startUnit(name, symbols.ClassProgram)
	p.state = StImplicit
}

func (p *Parser) handleSubroutine(cur *scan.Cursor) {
	name := cur.GetName()
	if name == "" {
		p.error(errors.New("SUBROUTINE needs a name"))
		return
	}
	p.startUnit(name, symbols.ClassSubroutine)
	p.registerArgs(cur)
	p.state = StImplicit
}

func (p *Parser) handleFunction(cur *scan.Cursor) {
	p.functionUnit(types.Undefined, types.LenDefault, cur)
}

func (p *Parser) handleTypedFunction(typeName string, cur *scan.Cursor) {
	bt := typeKeywords[typeName]
	length := types.LenDefault
	if bt == types.Character {
		var ok bool
		length, ok = parseLen(cur)
		if !ok {
			p.error(errors.New("bad CHARACTER length"))
			return
		}
	}
	// The FUNCTION word runs into the unit name in squeezed text.
	if !strings.HasPrefix(cur.Rest(), "FUNCTION") {
		p.error(errors.New("malformed FUNCTION header"))
		return
	}
	for range "FUNCTION" {
		cur.GetChar()
	}
	p.functionUnit(bt, length, cur)
}

func (p *Parser) functionUnit(bt types.BaseType, length int, cur *scan.Cursor) {
	name := cur.GetName()
	if name == "" {
		p.error(errors.New("FUNCTION needs a name"))
		return
	}
	p.startUnit(name, symbols.ClassFunction)
	if bt == types.Undefined {
		bt = p.tbl.ImplicitType(name)
	}
	p.unitSym.Type = types.Scalar(bt)
	if bt == types.Character {
		p.unitSym.Type.Constraint = length
	}
	p.unitSym.SetSize()
	p.registerArgs(cur)
	p.state = StImplicit
}

func (p *Parser) handleBlockData(cur *scan.Cursor) {
	name := cur.GetName()
	if name == "" {
		name = "BLKDAT"
	}
	p.startUnit(name, symbols.ClassBlockData)
	p.state = StImplicit
}

// registerArgs binds the dummy argument list. Arguments sit above
// the saved return address and frame pointer, last argument nearest
// the frame.
func (p *Parser) registerArgs(cur *scan.Cursor) {
	if !cur.Accept('(') {
		return
	}
	names := []string{}
	for {
		name := cur.GetName()
		if name == "" {
			break
		}
		names = append(names, name)
		if cur.Accept(',') {
			continue
		}
		break
	}
	if !cur.Accept(')') {
		p.error(errors.New("missing ) after argument list"))
		return
	}
	count := len(names)
	for i, name := range names {
		sym := p.tbl.Register(name, symbols.ClassArgument)
		if sym == nil {
			// ENTRY points may repeat arguments of the main header.
			if prior := p.tbl.Find(name); prior != nil && prior.Class == symbols.ClassArgument {
				continue
			}
			p.error(errors.Wrapf(symbols.ErrDoubleDefinition, "argument %s", name))
			continue
		}
		sym.Offset = 2 + (count - 1 - i)
	}
}

func (p *Parser) handleEntry(cur *scan.Cursor) {
	name := cur.GetName()
	if name == "" {
		p.error(errors.New("ENTRY needs a name"))
		return
	}
	p.emit.Prolog(name, false)
	p.registerArgs(cur)
}

// --- implicit typing ---

func (p *Parser) handleImplicit(cur *scan.Cursor) {
	for {
		name := cur.GetName()
		bt, ok := typeKeywords[name]
		if !ok {
			p.error(errors.Errorf("unknown type %q in IMPLICIT", name))
			return
		}
		if bt == types.Character {
			if _, ok := parseLen(cur); !ok {
				p.error(errors.New("bad CHARACTER length in IMPLICIT"))
				return
			}
		}
		if !cur.Accept('(') {
			p.error(errors.New("IMPLICIT needs a letter range"))
			return
		}
		for {
			from := cur.GetChar()
			to := from
			if cur.Accept('-') {
				to = cur.GetChar()
			}
			if err := p.tbl.SetImplicit(from, to, bt); err != nil {
				p.error(err)
				return
			}
			if cur.Accept(',') {
				continue
			}
			break
		}
		if !cur.Accept(')') {
			p.error(errors.New("missing ) in IMPLICIT"))
			return
		}
		if cur.Accept(',') {
			continue
		}
		break
	}
}

func (p *Parser) handleImplicitNone(_ *scan.Cursor) {
	p.tbl.SetImplicitNone()
}

// --- type declarations ---

func (p *Parser) handleTypeInteger(cur *scan.Cursor)   { p.typeDecl(types.Integer, cur) }
func (p *Parser) handleTypeReal(cur *scan.Cursor)      { p.typeDecl(types.Real, cur) }
func (p *Parser) handleTypeDouble(cur *scan.Cursor)    { p.typeDecl(types.Double, cur) }
func (p *Parser) handleTypeComplex(cur *scan.Cursor)   { p.typeDecl(types.Complex, cur) }
func (p *Parser) handleTypeLogical(cur *scan.Cursor)   { p.typeDecl(types.Logical, cur) }
func (p *Parser) handleTypeCharacter(cur *scan.Cursor) { p.charDecl(cur) }

// declSym finds or creates the symbol a declaration refers to.
func (p *Parser) declSym(name string) *symbols.Symbol {
	sym := p.tbl.Find(name)
	if sym == nil {
		sym = p.tbl.Register(name, symbols.ClassAuto)
	}
	return sym
}

func (p *Parser) typeDecl(bt types.BaseType, cur *scan.Cursor) {
	// Tolerate the INTEGER*8 style width suffix; every numeric type
	// is one 64 bit word on this machine.
	if cur.Peek() == '*' {
		if _, ok := parseLen(cur); !ok {
			p.error(errors.New("bad type width"))
			return
		}
	}
	for {
		name := cur.GetName()
		if name == "" {
			p.error(errors.New("missing name in type declaration"))
			return
		}
		sym := p.declSym(name)
		sym.Type.Base = bt
		if cur.Peek() == '(' {
			p.applyBounds(sym, cur)
		}
		sym.SetSize()
		if !cur.Accept(',') {
			break
		}
	}
}

func (p *Parser) charDecl(cur *scan.Cursor) {
	defLen, ok := parseLen(cur)
	if !ok {
		p.error(errors.New("bad CHARACTER length"))
		return
	}
	// Optional comma after CHARACTER*8.
	cur.Accept(',')
	for {
		name := cur.GetName()
		if name == "" {
			p.error(errors.New("missing name in CHARACTER declaration"))
			return
		}
		sym := p.declSym(name)
		sym.Type.Base = types.Character
		sym.Type.Constraint = defLen
		if cur.Peek() == '*' {
			length, ok := parseLen(cur)
			if !ok {
				p.error(errors.New("bad CHARACTER length"))
				return
			}
			sym.Type.Constraint = length
		}
		if cur.Peek() == '(' {
			p.applyBounds(sym, cur)
		}
		sym.SetSize()
		if !cur.Accept(',') {
			break
		}
	}
}

func (p *Parser) handleDimension(cur *scan.Cursor) {
	for {
		name := cur.GetName()
		if name == "" {
			p.error(errors.New("missing name in DIMENSION"))
			return
		}
		sym := p.declSym(name)
		if cur.Peek() != '(' {
			p.error(errors.Errorf("DIMENSION %s needs bounds", name))
			return
		}
		p.applyBounds(sym, cur)
		sym.SetSize()
		if !cur.Accept(',') {
			break
		}
	}
}

// applyBounds parses a dimension list. A non constant bound makes
// the array adjustable; its bound expressions are kept for the dope
// vector initialisation after layout.
func (p *Parser) applyBounds(sym *symbols.Symbol, cur *scan.Cursor) {
	cur.Accept('(')
	bounds := []types.Bound{}
	trees := [][2]*scan.Token{}
	adjustable := false

	for {
		if cur.Accept('*') {
			// Assumed size final dimension.
			bounds = append(bounds, types.Bound{Lower: 1, Upper: 1})
			trees = append(trees, [2]*scan.Token{nil, nil})
			adjustable = true
			break
		}
		first, err := expr.Parse(cur)
		if err != nil {
			p.error(err)
			return
		}
		var second *scan.Token
		if cur.Accept(':') {
			if cur.Peek() == '*' {
				cur.GetChar()
				second = nil
				adjustable = true
			} else {
				second, err = expr.Parse(cur)
				if err != nil {
					p.error(err)
					return
				}
			}
		}

		lowTree, upTree := (*scan.Token)(nil), first
		if second != nil {
			lowTree, upTree = first, second
		}

		lo, loConst := p.constInt(lowTree, 1)
		up, upConst := p.constInt(upTree, 1)
		if !loConst || !upConst {
			adjustable = true
			bounds = append(bounds, types.Bound{Lower: 1, Upper: 1})
		} else {
			bounds = append(bounds, types.Bound{Lower: lo, Upper: up})
		}
		trees = append(trees, [2]*scan.Token{lowTree, upTree})

		if cur.Accept(',') {
			continue
		}
		break
	}
	if !cur.Accept(')') {
		p.error(errors.New("missing ) after bounds"))
		return
	}

	sym.Type.Rank = len(bounds)
	sym.Type.Bounds = bounds
	if adjustable {
		if sym.Class != symbols.ClassArgument {
			p.error(errors.Errorf("%s has variable bounds but is not an argument", sym.Name))
			return
		}
		p.adjBounds[sym] = trees
		p.adjSlots = append(p.adjSlots, adjSlot{sym: sym, argOffset: sym.Offset})
		sym.Class = symbols.ClassAdjustable
	}
}

// constInt folds a bound expression to an integer when possible.
// A nil tree yields the default. Evaluation is only attempted over
// trees of constants and parameters, so nothing is ever emitted.
func (p *Parser) constInt(tree *scan.Token, def int) (int, bool) {
	if tree == nil {
		return def, true
	}
	if !p.pureConst(tree) {
		return 0, false
	}
	a, err := p.ev.Eval(tree)
	if err != nil || a.Class != expr.ArgConstant {
		return 0, false
	}
	if v, ok := a.Value.Int(); ok {
		return int(v), true
	}
	return 0, false
}

// pureConst reports whether a tree evaluates without code: only
// constants and named parameters appear in it.
func (p *Parser) pureConst(tree *scan.Token) bool {
	if tree == nil {
		return true
	}
	switch tree.Kind {
	case scan.TokConstant:
		return true
	case scan.TokIdentifier:
		if tree.Args != nil {
			return false
		}
		sym := p.tbl.Find(tree.Text)
		return sym != nil && sym.Class == symbols.ClassParameter
	case scan.TokOperator:
		return p.pureConst(tree.Left) && p.pureConst(tree.Right)
	}
	return false
}

// --- common, equivalence, storage attributes ---

func (p *Parser) handleCommon(cur *scan.Cursor) {
	blockName := "BLANK"
	for {
		if cur.Accept('/') {
			blockName = cur.GetName()
			if blockName == "" {
				blockName = "BLANK"
			}
			if !cur.Accept('/') {
				p.error(errors.New("missing / after COMMON block name"))
				return
			}
		}
		blk := p.tbl.RefCommon(blockName)
		for {
			name := cur.GetName()
			if name == "" {
				p.error(errors.New("missing name in COMMON"))
				return
			}
			sym := p.declSym(name)
			if sym.InBlock {
				p.error(errors.Wrapf(symbols.ErrDoubleDefinition, "%s in COMMON twice", name))
				return
			}
			if cur.Peek() == '(' {
				p.applyBounds(sym, cur)
			}
			sym.Class = symbols.ClassGlobal
			sym.Block = blk
			sym.InBlock = true
			sym.SetSize()
			blk.Members = append(blk.Members, sym)
			if !cur.Accept(',') {
				break
			}
			if cur.Peek() == '/' {
				break
			}
		}
		if cur.Peek() != '/' {
			break
		}
	}
}

func (p *Parser) handleEquivalence(cur *scan.Cursor) {
	for {
		if !cur.Accept('(') {
			p.error(errors.New("EQUIVALENCE needs a group"))
			return
		}
		var first *symbols.Symbol
		firstOff := 0
		for {
			sym, off, err := p.equivRef(cur)
			if err != nil {
				p.error(err)
				return
			}
			if first == nil {
				first, firstOff = sym, off
			} else {
				if err := symbols.Link(first, firstOff, sym, off); err != nil {
					p.error(err)
					return
				}
			}
			if cur.Accept(',') {
				continue
			}
			break
		}
		if !cur.Accept(')') {
			p.error(errors.New("missing ) in EQUIVALENCE"))
			return
		}
		if !cur.Accept(',') {
			break
		}
	}
}

// equivRef parses one EQUIVALENCE member and its byte offset from
// the variable's base.
func (p *Parser) equivRef(cur *scan.Cursor) (*symbols.Symbol, int, error) {
	name := cur.GetName()
	if name == "" {
		return nil, 0, errors.New("missing name in EQUIVALENCE")
	}
	sym := p.declSym(name)

	if !cur.Accept('(') {
		return sym, 0, nil
	}

	// Element subscripts, or a substring start for characters.
	indices := []int{}
	for {
		tree, err := expr.Parse(cur)
		if err != nil {
			return nil, 0, err
		}
		if cur.Accept(':') {
			// Substring upper bound is irrelevant for placement.
			if _, err := expr.Parse(cur); err != nil {
				return nil, 0, err
			}
		}
		val, ok := p.constInt(tree, 1)
		if !ok {
			return nil, 0, errors.Wrapf(symbols.ErrInvalidEquivalence,
				"%s needs constant subscripts", name)
		}
		indices = append(indices, val)
		if cur.Accept(',') {
			continue
		}
		break
	}
	if !cur.Accept(')') {
		return nil, 0, errors.New("missing ) in EQUIVALENCE")
	}

	if sym.Type.Base == types.Character && sym.Type.Rank == 0 {
		// Single index is a character position.
		if len(indices) != 1 {
			return nil, 0, errors.Wrapf(symbols.ErrInvalidEquivalence,
				"%s is not an array", name)
		}
		return sym, indices[0] - 1, nil
	}

	if len(indices) != sym.Type.Rank {
		return nil, 0, errors.Wrapf(symbols.ErrInvalidEquivalence,
			"%s needs %d subscripts", name, sym.Type.Rank)
	}
	linear := 0
	stride := 1
	for i, idx := range indices {
		b := sym.Type.Bounds[i]
		linear += (idx - b.Lower) * stride
		stride *= b.Upper - b.Lower + 1
	}
	switch sym.Type.Base {
	case types.Character:
		return sym, linear * sym.Type.Len(), nil
	case types.Complex:
		return sym, linear * 16, nil
	default:
		return sym, linear * 8, nil
	}
}

func (p *Parser) handleParameter(cur *scan.Cursor) {
	if !cur.Accept('(') {
		p.error(errors.New("PARAMETER needs parentheses"))
		return
	}
	for {
		name := cur.GetName()
		if name == "" || !cur.Accept('=') {
			p.error(errors.New("malformed PARAMETER"))
			return
		}
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
		if a.Class != expr.ArgConstant {
			p.error(errors.Errorf("PARAMETER %s is not constant", name))
			return
		}
		prior := p.tbl.Find(name)
		sym := p.tbl.Register(name, symbols.ClassParameter)
		if sym == nil {
			if prior == nil || prior.Class != symbols.ClassAuto {
				p.error(errors.Wrapf(symbols.ErrDoubleDefinition, "PARAMETER %s", name))
				return
			}
			// A prior type declaration carries over.
			sym = prior
			sym.Class = symbols.ClassParameter
		}
		value := a.Value
		if sym.Type.Base != types.Undefined {
			if conv, ok := value.Convert(sym.Type.Base); ok {
				value = conv
			}
		}
		sym.Value = value
		if sym.Type.Base == types.Undefined {
			sym.Type = types.Scalar(value.Tag())
		}
		if cur.Accept(',') {
			continue
		}
		break
	}
	if !cur.Accept(')') {
		p.error(errors.New("missing ) after PARAMETER"))
	}
}

func (p *Parser) handleExternal(cur *scan.Cursor) {
	for {
		name := cur.GetName()
		if name == "" {
			p.error(errors.New("missing name in EXTERNAL"))
			return
		}
		sym := p.declSym(name)
		sym.Class = symbols.ClassExternal
		if cur.Accept(',') {
			continue
		}
		break
	}
}

func (p *Parser) handleIntrinsic(cur *scan.Cursor) {
	for {
		name := cur.GetName()
		if name == "" {
			p.error(errors.New("missing name in INTRINSIC"))
			return
		}
		in := p.tbl.Intrinsic(name)
		if in == nil {
			p.error(errors.Errorf("%s is not an intrinsic function", name))
			return
		}
		sym := p.declSym(name)
		sym.Class = symbols.ClassIntrinsic
		sym.Type = in.Type
		sym.RtnName = in.RtnName
		if cur.Accept(',') {
			continue
		}
		break
	}
}

func (p *Parser) handleSave(cur *scan.Cursor) {
	if cur.AtEnd() {
		// Bare SAVE pins every local.
		p.saveAll = true
		return
	}
	for {
		name := cur.GetName()
		if name == "" {
			p.error(errors.New("missing name in SAVE"))
			return
		}
		sym := p.declSym(name)
		sym.Saved = true
		if cur.Accept(',') {
			continue
		}
		break
	}
}

func (p *Parser) handlePointer(cur *scan.Cursor) {
	for {
		if !cur.Accept('(') {
			p.error(errors.New("POINTER needs (pointer,pointee)"))
			return
		}
		ptrName := cur.GetName()
		if ptrName == "" || !cur.Accept(',') {
			p.error(errors.New("malformed POINTER"))
			return
		}
		ptr := p.declSym(ptrName)
		ptr.Type = types.Scalar(types.Pointer)
		ptr.SetSize()

		pteName := cur.GetName()
		if pteName == "" {
			p.error(errors.New("malformed POINTER"))
			return
		}
		pte := p.declSym(pteName)
		if cur.Peek() == '(' {
			p.applyBounds(pte, cur)
		}
		pte.Class = symbols.ClassPointee
		pte.Pointer = ptr
		pte.SetSize()
		if !cur.Accept(')') {
			p.error(errors.New("missing ) in POINTER"))
			return
		}
		if cur.Accept(',') {
			continue
		}
		break
	}
}

// --- DATA ---

func (p *Parser) handleData(cur *scan.Cursor) {
	for {
		targets := []dataTarget{}
		for {
			name := cur.GetName()
			if name == "" {
				p.error(errors.New("missing name in DATA"))
				return
			}
			sym := p.declSym(name)
			elem := 0
			if cur.Accept('(') {
				indices := []int{}
				for {
					tree, err := expr.Parse(cur)
					if err != nil {
						p.error(err)
						return
					}
					val, ok := p.constInt(tree, 1)
					if !ok {
						p.error(errors.New("DATA subscripts must be constant"))
						return
					}
					indices = append(indices, val)
					if cur.Accept(',') {
						continue
					}
					break
				}
				if !cur.Accept(')') {
					p.error(errors.New("missing ) in DATA"))
					return
				}
				stride := 1
				for i, idx := range indices {
					if i >= sym.Type.Rank {
						break
					}
					b := sym.Type.Bounds[i]
					elem += (idx - b.Lower) * stride
					stride *= b.Upper - b.Lower + 1
				}
			}
			targets = append(targets, dataTarget{sym: sym, elem: elem})
			// Initialised locals live in static storage.
			if sym.Class == symbols.ClassAuto {
				sym.Saved = true
			}
			if cur.Accept(',') {
				continue
			}
			break
		}
		if !cur.Accept('/') {
			p.error(errors.New("missing / in DATA"))
			return
		}
		values := []types.DataValue{}
		for {
			repeat := 1
			mark := cur.Mark()
			if n := cur.GetNumber(); n > 0 && cur.Accept('*') {
				repeat = n
			} else {
				cur.Reset(mark)
			}
			value, ok := dataConstant(cur)
			if !ok {
				p.error(errors.New("DATA values must be constants"))
				return
			}
			for ; repeat > 0; repeat-- {
				values = append(values, value)
			}
			if cur.Accept(',') {
				continue
			}
			break
		}
		if !cur.Accept('/') {
			p.error(errors.New("missing closing / in DATA"))
			return
		}
		p.applyData(targets, values)
		if !cur.Accept(',') {
			break
		}
	}
}

type dataTarget struct {
	sym  *symbols.Symbol
	elem int // Element index within the variable.
}

// dataConstant reads one signed constant from a DATA value list.
// The slash delimiter keeps expressions out of the grammar here.
func dataConstant(cur *scan.Cursor) (types.DataValue, bool) {
	neg := false
	if cur.Accept('-') {
		neg = true
	} else {
		cur.Accept('+')
	}
	tok := cur.NextToken()
	if tok.Kind != scan.TokConstant {
		return types.DataValue{}, false
	}
	v := tok.Value
	if neg {
		switch v.Tag() {
		case types.Integer:
			n, _ := v.Int()
			v = types.IntValue(-n)
		case types.Real:
			f, _ := v.Float()
			v = types.RealValue(-f)
		case types.Double:
			f, _ := v.Float()
			v = types.DoubleValue(-f)
		default:
			return types.DataValue{}, false
		}
	}
	return v, true
}

// applyData queues word images for the value list against the target
// list. Array targets without subscripts absorb as many values as
// they have elements.
func (p *Parser) applyData(targets []dataTarget, values []types.DataValue) {
	vi := 0
	next := func() (types.DataValue, bool) {
		if vi >= len(values) {
			return types.DataValue{}, false
		}
		v := values[vi]
		vi++
		return v, true
	}

	for _, tgt := range targets {
		count := 1
		if tgt.sym.Type.Rank > 0 && tgt.elem == 0 {
			count = tgt.sym.Type.Elements()
		}
		if tgt.sym.Type.Base == types.Character {
			v, ok := next()
			if !ok {
				p.error(errors.New("too few DATA values"))
				return
			}
			s, isChr := v.Char()
			if !isChr {
				p.error(errors.New("character DATA needs a character value"))
				return
			}
			p.charData(tgt.sym, s)
			continue
		}
		for i := 0; i < count; i++ {
			v, ok := next()
			if !ok {
				p.error(errors.New("too few DATA values"))
				return
			}
			conv, ok := v.Convert(tgt.sym.Type.Base)
			if !ok {
				p.error(errors.Errorf("DATA value %s does not fit %s", v, tgt.sym.Name))
				return
			}
			words := wordImage(conv)
			for w, word := range words {
				p.inits = append(p.inits, dataInit{
					sym:    tgt.sym,
					offset: (tgt.elem+i)*len(words) + w,
					word:   word,
				})
			}
		}
	}
	if vi != len(values) {
		p.warn("excess DATA values ignored")
	}
}

// charData packs a string into word images padded with blanks to the
// declared length.
func (p *Parser) charData(sym *symbols.Symbol, s string) {
	length := sym.Type.Len()
	for len(s) < length {
		s += " "
	}
	if len(s) > length {
		s = s[:length]
	}
	for w := 0; w*8 < length; w++ {
		word := uint64(0)
		for i := 0; i < 8; i++ {
			by := byte(' ')
			if w*8+i < len(s) {
				by = s[w*8+i]
			}
			word = word<<8 | uint64(by)
		}
		p.inits = append(p.inits, dataInit{sym: sym, offset: w, word: word})
	}
}

// Word images of a scalar constant. Complex takes two words.
func wordImage(v types.DataValue) []uint64 {
	if v.Tag() == types.Complex {
		c, _ := v.Complex()
		re := types.RealValue(real(c))
		im := types.RealValue(imag(c))
		return []uint64{re.Bits(), im.Bits()}
	}
	return []uint64{v.Bits()}
}
