/*
 * FTN77 - Operand loading and reference resolution
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

	"github.com/rcornwell/ftn77/ftn/cal"
	scan "github.com/rcornwell/ftn77/ftn/scanner"
	"github.com/rcornwell/ftn77/ftn/symbols"
	"github.com/rcornwell/ftn77/ftn/types"
)

// Register level coercion between one word types.
func (ev *Evaluator) convertReg(reg int, from, to types.BaseType) {
	if from == to {
		return
	}
	fromFlt := from == types.Real || from == types.Double
	toFlt := to == types.Real || to == types.Double
	switch {
	case fromFlt && toFlt:
	case from == types.Integer && toFlt:
		ev.E.IntToFlt(reg, reg)
	case fromFlt && to == types.Integer:
		ev.E.FltToInt(reg, reg)
	}
	// Logical, integer and pointer words pass through unchanged.
}

// loadReg materialises an argument into an S register coerced to the
// wanted base type. Constants convert at compile time first.
func (ev *Evaluator) loadReg(a *Arg, want types.BaseType) (int, error) {
	switch a.Class {
	case ArgConstant:
		v, err := foldConvert(a.Value, want)
		if err != nil {
			return 0, err
		}
		reg, err := ev.E.S.Get()
		if err != nil {
			return 0, err
		}
		ev.E.LoadConst(reg, v.Bits())
		return reg, nil

	case ArgCalculation:
		ev.convertReg(a.Reg, a.Type.Base, want)
		return a.Reg, nil

	case ArgReference:
		if a.Type.Base == types.Character {
			return 0, errors.Wrap(ErrTypeMismatch, "character value in numeric context")
		}
		reg, err := ev.E.S.Get()
		if err != nil {
			return 0, err
		}
		if err = ev.E.LoadWord(reg, a.Ref); err != nil {
			return 0, err
		}
		ev.convertReg(reg, a.Type.Base, want)
		return reg, nil
	}
	return 0, errors.Wrap(ErrTypeMismatch, "procedure name used as value")
}

// LoadAs materialises an evaluated argument as a register of the
// given type. Exported for the statement handlers.
func (ev *Evaluator) LoadAs(a *Arg, bt types.BaseType) (int, error) {
	return ev.loadReg(a, bt)
}

// LoadInteger is LoadAs for the common integer case.
func (ev *Evaluator) LoadInteger(a *Arg) (int, error) {
	return ev.loadReg(a, types.Integer)
}

// CharDesc materialises a character descriptor for an argument.
func (ev *Evaluator) CharDesc(a *Arg) (int, error) {
	return ev.charReg(a)
}

// charReg materialises a character descriptor.
func (ev *Evaluator) charReg(a *Arg) (int, error) {
	switch a.Class {
	case ArgConstant:
		text, ok := a.Value.Char()
		if !ok {
			return 0, errors.Wrap(ErrTypeMismatch, "character operand expected")
		}
		reg, err := ev.E.S.Get()
		if err != nil {
			return 0, err
		}
		if err = ev.E.ConstDesc(reg, text); err != nil {
			return 0, err
		}
		return reg, nil

	case ArgCalculation:
		if a.Type.Base != types.Character {
			return 0, errors.Wrap(ErrTypeMismatch, "character operand expected")
		}
		return a.Reg, nil

	case ArgReference:
		if a.Type.Base != types.Character {
			return 0, errors.Wrap(ErrTypeMismatch, "character operand expected")
		}
		reg, err := ev.E.S.Get()
		if err != nil {
			return 0, err
		}
		if err = ev.E.LoadCharDesc(reg, a.Ref, a.Type.Len()); err != nil {
			return 0, err
		}
		return reg, nil
	}
	return 0, errors.Wrap(ErrTypeMismatch, "character operand expected")
}

// loadComplex materialises both halves of a complex value, widening
// scalars with a zero imaginary part.
func (ev *Evaluator) loadComplex(a *Arg) (int, int, error) {
	if a.Class == ArgCalculation && a.Type.Base == types.Complex {
		return a.Reg, a.Reg2, nil
	}
	if a.Class == ArgConstant {
		v, err := foldConvert(a.Value, types.Complex)
		if err != nil {
			return 0, 0, err
		}
		c, _ := v.Complex()
		reVal := types.RealValue(real(c))
		imVal := types.RealValue(imag(c))
		re, err := ev.E.S.Get()
		if err != nil {
			return 0, 0, err
		}
		im, err := ev.E.S.Get()
		if err != nil {
			return 0, 0, err
		}
		ev.E.LoadConst(re, reVal.Bits())
		ev.E.LoadConst(im, imVal.Bits())
		return re, im, nil
	}
	if a.Class == ArgReference && a.Type.Base == types.Complex {
		areg, err := ev.E.LoadAddr(a.Ref)
		if err != nil {
			return 0, 0, err
		}
		re, err := ev.E.S.Get()
		if err != nil {
			return 0, 0, err
		}
		im, err := ev.E.S.Get()
		if err != nil {
			return 0, 0, err
		}
		ev.E.Emit(cal.Sreg(re), "0,A"+itoa(areg))
		ev.E.Emit(cal.Sreg(im), "1,A"+itoa(areg))
		ev.E.A.Free(areg)
		return re, im, nil
	}
	// Scalar widened to complex.
	re, err := ev.loadReg(a, types.Real)
	if err != nil {
		return 0, 0, err
	}
	im, err := ev.E.S.Get()
	if err != nil {
		return 0, 0, err
	}
	ev.E.LoadConst(im, 0)
	return re, im, nil
}

func itoa(n int) string {
	if n < 10 {
		return string([]byte{byte('0' + n)})
	}
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

// Scalar element type of a possibly dimensioned symbol.
func elemType(sym *symbols.Symbol) types.DataType {
	dt := sym.Type
	dt.Rank = 0
	dt.Bounds = nil
	return dt
}

// resolve turns an identifier token, with any subscript, substring
// or argument list, into an operand.
func (ev *Evaluator) resolve(t *scan.Token) (Arg, error) {
	name := t.Text
	sym := ev.T.Find(name)

	if sym == nil {
		if in := ev.T.Intrinsic(name); in != nil && t.Args != nil {
			return ev.intrinsicCall(in, t.Args)
		}
		var err error
		sym, err = ev.T.Reference(name)
		if err != nil {
			return Arg{}, err
		}
		if t.Args != nil && sym.Type.Rank == 0 {
			// An undeclared name with an argument list is a call to
			// an external function.
			sym.Class = symbols.ClassExternal
			sym.RtnName = name
		}
	}

	switch sym.Class {
	case symbols.ClassParameter:
		if t.Args != nil {
			return Arg{}, errors.Wrapf(ErrTypeMismatch, "%s is a constant", name)
		}
		return constArg(sym.Value), nil

	case symbols.ClassStmtFunction:
		return ev.expandStmtFn(sym, t.Args)

	case symbols.ClassIntrinsic:
		return ev.intrinsicCall(sym, t.Args)

	case symbols.ClassExternal:
		if t.Args == nil {
			return Arg{Class: ArgProcedure, Type: sym.Type, Sym: sym}, nil
		}
		return ev.externalCall(sym, t.Args)

	case symbols.ClassFunction:
		if t.Args != nil {
			return ev.externalCall(sym, t.Args)
		}
		// The function name without arguments is the result slot.
		return Arg{Class: ArgReference, Type: elemType(sym), Ref: cal.Ref{Sym: sym}}, nil

	case symbols.ClassSubroutine, symbols.ClassProgram, symbols.ClassBlockData:
		return Arg{}, errors.Wrapf(ErrTypeMismatch, "%s is not a variable", name)
	}

	// Variable reference, possibly subscripted or substrung.
	args := t.Args
	var colon *scan.Token
	if len(args) > 0 && args[len(args)-1].IsOp(scan.OpColon) {
		colon = args[len(args)-1]
		args = args[:len(args)-1]
	}

	base := Arg{Class: ArgReference, Type: elemType(sym), Ref: cal.Ref{Sym: sym}}

	if sym.Type.Rank > 0 {
		if len(args) == 0 {
			// Whole array reference: base address, used for argument
			// passing and I/O.
			base.Type = sym.Type
			return base, nil
		}
		ref, err := ev.subscript(sym, args)
		if err != nil {
			return Arg{}, err
		}
		base.Ref = ref
	} else if len(args) > 0 {
		return Arg{}, errors.Wrapf(ErrTypeMismatch, "%s is not an array", name)
	}

	if colon != nil {
		if sym.Type.Base != types.Character {
			return Arg{}, errors.Wrapf(ErrTypeMismatch, "substring of non character %s", name)
		}
		return ev.substring(base, colon)
	}
	return base, nil
}

// subscript computes the element offset of an array reference.
// Offsets are in words, or in characters for character arrays.
// Constant subscripts fold completely; otherwise the offset is
// computed into a register with a bounds check.
func (ev *Evaluator) subscript(sym *symbols.Symbol, args []*scan.Token) (cal.Ref, error) {
	if len(args) != sym.Type.Rank {
		return cal.Ref{}, errors.Wrapf(ErrTypeMismatch,
			"%s needs %d subscripts", sym.Name, sym.Type.Rank)
	}
	if sym.Class == symbols.ClassAdjustable {
		return ev.adjustSubscript(sym, args)
	}

	scale := 1
	switch sym.Type.Base {
	case types.Character:
		scale = sym.Type.Len()
	case types.Complex:
		scale = 2
	}

	stride := 1
	constPart := 0
	haveReg := false
	accum := 0

	for i, tree := range args {
		b := sym.Type.Bounds[i]
		a, err := ev.evalSub(tree)
		if err != nil {
			return cal.Ref{}, err
		}
		if a.Class == ArgConstant && a.Type.Base == types.Integer {
			idx, _ := a.Value.Int()
			constPart += (int(idx) - b.Lower) * stride
		} else {
			reg, err := ev.loadReg(&a, types.Integer)
			if err != nil {
				return cal.Ref{}, err
			}
			if b.Lower != 0 {
				tmp, terr := ev.E.S.Get()
				if terr != nil {
					return cal.Ref{}, terr
				}
				ev.E.LoadConst(tmp, uint64(int64(b.Lower)))
				ev.E.Sub(reg, reg, tmp, false)
				ev.E.S.Free(tmp)
			}
			if stride != 1 {
				tmp, terr := ev.E.S.Get()
				if terr != nil {
					return cal.Ref{}, terr
				}
				ev.E.LoadConst(tmp, uint64(int64(stride)))
				ev.E.MulInt(reg, reg, tmp)
				ev.E.S.Free(tmp)
			}
			if !haveReg {
				accum = reg
				haveReg = true
			} else {
				ev.E.Add(accum, accum, reg, false)
				ev.E.S.Free(reg)
			}
		}
		stride *= b.Upper - b.Lower + 1
	}
	total := stride

	if !haveReg {
		if constPart < 0 || constPart >= total {
			return cal.Ref{}, errors.Wrapf(ErrTypeMismatch,
				"subscript of %s out of range", sym.Name)
		}
		return cal.Ref{Sym: sym, OffClass: cal.OffConst, ConstOff: constPart * scale}, nil
	}

	if constPart != 0 {
		tmp, err := ev.E.S.Get()
		if err != nil {
			return cal.Ref{}, err
		}
		ev.E.LoadConst(tmp, uint64(int64(constPart)))
		ev.E.Add(accum, accum, tmp, false)
		ev.E.S.Free(tmp)
	}

	// Bounds check against the declared extent.
	bnd := ev.E.BoundsLabel()
	ev.E.TestReg(accum)
	ev.E.BranchCond(cal.BrMinus, bnd)
	tmp, err := ev.E.S.Get()
	if err != nil {
		return cal.Ref{}, err
	}
	ev.E.LoadConst(tmp, uint64(int64(total-1)))
	ev.E.Sub(0, tmp, accum, false)
	ev.E.S.Free(tmp)
	ev.E.BranchCond(cal.BrMinus, bnd)

	if scale != 1 {
		tmp, err := ev.E.S.Get()
		if err != nil {
			return cal.Ref{}, err
		}
		ev.E.LoadConst(tmp, uint64(int64(scale)))
		ev.E.MulInt(accum, accum, tmp)
		ev.E.S.Free(tmp)
	}
	return cal.Ref{Sym: sym, OffClass: cal.OffReg, RegOff: accum}, nil
}

// Subscript of an adjustable array: the bounds live in the dope
// vector, so the whole computation happens at run time.
func (ev *Evaluator) adjustSubscript(sym *symbols.Symbol, args []*scan.Token) (cal.Ref, error) {
	scale := 1
	switch sym.Type.Base {
	case types.Character:
		scale = sym.Type.Len()
	case types.Complex:
		scale = 2
	}

	haveReg := false
	accum := 0
	for i, tree := range args {
		a, err := ev.evalSub(tree)
		if err != nil {
			return cal.Ref{}, err
		}
		reg, err := ev.loadReg(&a, types.Integer)
		if err != nil {
			return cal.Ref{}, err
		}
		tmp, err := ev.E.S.Get()
		if err != nil {
			return cal.Ref{}, err
		}
		ev.E.LoadFrame(tmp, sym.Offset+1+2*i)
		ev.E.Sub(reg, reg, tmp, false)
		ev.E.LoadFrame(tmp, sym.Offset+2+2*i)
		ev.E.MulInt(reg, reg, tmp)
		ev.E.S.Free(tmp)
		if !haveReg {
			accum = reg
			haveReg = true
		} else {
			ev.E.Add(accum, accum, reg, false)
			ev.E.S.Free(reg)
		}
	}
	if !haveReg {
		return cal.Ref{}, errors.Wrapf(ErrTypeMismatch, "%s needs subscripts", sym.Name)
	}
	if scale != 1 {
		tmp, err := ev.E.S.Get()
		if err != nil {
			return cal.Ref{}, err
		}
		ev.E.LoadConst(tmp, uint64(int64(scale)))
		ev.E.MulInt(accum, accum, tmp)
		ev.E.S.Free(tmp)
	}
	return cal.Ref{Sym: sym, OffClass: cal.OffReg, RegOff: accum}, nil
}

// substring narrows a character reference. Constant bounds adjust
// the reference; variable bounds build the descriptor at run time.
func (ev *Evaluator) substring(base Arg, colon *scan.Token) (Arg, error) {
	declared := base.Type.Len()

	lowConst, lowTree := 1, colon.Left
	upConst, upTree := declared, colon.Right

	lowIsConst, upIsConst := true, true
	var low, up Arg
	var err error

	if lowTree != nil {
		low, err = ev.evalSub(lowTree)
		if err != nil {
			return Arg{}, err
		}
		if low.Class == ArgConstant {
			v, _ := low.Value.Int()
			lowConst = int(v)
		} else {
			lowIsConst = false
		}
	}
	if upTree != nil {
		up, err = ev.evalSub(upTree)
		if err != nil {
			return Arg{}, err
		}
		if up.Class == ArgConstant {
			v, _ := up.Value.Int()
			upConst = int(v)
		} else {
			upIsConst = false
		}
	}

	if lowIsConst && upIsConst {
		if lowConst < 1 || upConst > declared || lowConst > upConst {
			return Arg{}, errors.Wrap(ErrTypeMismatch, "substring bounds out of range")
		}
		if base.Ref.OffClass == cal.OffReg {
			// Fold the constant character offset into the register.
			if lowConst != 1 {
				tmp, terr := ev.E.S.Get()
				if terr != nil {
					return Arg{}, terr
				}
				ev.E.LoadConst(tmp, uint64(int64(lowConst-1)))
				ev.E.Add(base.Ref.RegOff, base.Ref.RegOff, tmp, false)
				ev.E.S.Free(tmp)
			}
		} else {
			base.Ref.OffClass = cal.OffConst
			base.Ref.ConstOff += lowConst - 1
		}
		base.Type.Constraint = upConst - lowConst + 1
		return base, nil
	}

	if base.Class != ArgReference {
		return Arg{}, errors.Wrap(ErrTypeMismatch, "substring of computed string")
	}
	if lowTree == nil {
		low = constArg(types.IntValue(1))
	}
	if upTree == nil {
		up = constArg(types.IntValue(int64(declared)))
	}

	// Build the descriptor: byte address of the start plus the new
	// length in the high half.
	desc, err := ev.E.S.Get()
	if err != nil {
		return Arg{}, err
	}
	if err = ev.E.LoadCharDesc(desc, base.Ref, declared); err != nil {
		return Arg{}, err
	}
	mask, err := ev.E.S.Get()
	if err != nil {
		return Arg{}, err
	}
	ev.E.LoadConst(mask, 0xFFFFFFFF)
	ev.E.And(desc, desc, mask)
	ev.E.S.Free(mask)

	lreg, err := ev.loadReg(&low, types.Integer)
	if err != nil {
		return Arg{}, err
	}
	one, err := ev.E.S.Get()
	if err != nil {
		return Arg{}, err
	}
	ev.E.LoadConst(one, 1)
	ev.E.Sub(lreg, lreg, one, false)
	ev.E.S.Free(one)
	ev.E.Add(desc, desc, lreg, false)

	var ureg int
	if upIsConst {
		ureg, err = ev.E.S.Get()
		if err != nil {
			return Arg{}, err
		}
		ev.E.LoadConst(ureg, uint64(int64(upConst)))
	} else {
		ureg, err = ev.loadReg(&up, types.Integer)
		if err != nil {
			return Arg{}, err
		}
	}
	ev.E.Sub(ureg, ureg, lreg, false)
	ev.E.S.Free(lreg)
	ev.E.ShiftL(ureg, ureg, 32)
	ev.E.Or(desc, desc, ureg)
	ev.E.S.Free(ureg)

	dt := types.CharType(types.LenAssumed)
	return Arg{Class: ArgCalculation, Type: dt, Reg: desc}, nil
}
