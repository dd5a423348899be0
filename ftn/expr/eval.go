/*
 * FTN77 - Expression evaluator
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

// Hard limit on the evaluation stacks. Hitting it is a compiler
// defect, not a user error.
const maxStack = 64

var ErrStackOverflow = errors.New("expression stack overflow")

// Value classes produced during evaluation.
type ArgClass int

const (
	ArgUndefined ArgClass = iota
	ArgConstant           // Compile time value.
	ArgCalculation        // Value held in an S register.
	ArgReference          // Storage reference, not yet loaded.
	ArgProcedure          // External or intrinsic procedure name.
)

// One operand on the argument stack. A Calculation owns its register
// (and a second one for the imaginary half of a complex value).
type Arg struct {
	Class ArgClass
	Type  types.DataType
	Value types.DataValue
	Reg   int
	Reg2  int
	Ref   cal.Ref
	Sym   *symbols.Symbol // Procedure reference.
}

// Operator precedence evaluator over two stacks.
type Evaluator struct {
	E    *cal.Emitter
	T    *symbols.Table
	args []Arg
	ops  []scan.OperatorDetails
}

func New(e *cal.Emitter) *Evaluator {
	return &Evaluator{E: e, T: e.Table()}
}

// Reset clears both stacks after an error so the next statement
// starts clean.
func (ev *Evaluator) Reset() {
	ev.args = ev.args[:0]
	ev.ops = ev.ops[:0]
}

// Release frees the registers an argument owns.
func (ev *Evaluator) Release(a Arg) {
	if a.Class == ArgCalculation {
		ev.E.S.Free(a.Reg)
		if a.Type.Base == types.Complex {
			ev.E.S.Free(a.Reg2)
		}
	}
}

// Eval evaluates a parsed expression tree to a single argument.
func (ev *Evaluator) Eval(tree *scan.Token) (Arg, error) {
	ev.Reset()
	return ev.evalSub(tree)
}

// evalSub evaluates a subtree against stack barriers so nested
// evaluations (function arguments, subscripts) cannot disturb the
// enclosing operation.
func (ev *Evaluator) evalSub(tree *scan.Token) (Arg, error) {
	if tree == nil {
		return Arg{}, errors.Wrap(ErrExpressionSyntax, "empty expression")
	}
	if err := ev.pushOp(scan.Operator(scan.OpSexpr)); err != nil {
		return Arg{}, err
	}
	argMark := len(ev.args)
	if err := ev.walk(tree); err != nil {
		return Arg{}, err
	}
	if err := ev.applyToBarrier(); err != nil {
		return Arg{}, err
	}
	if len(ev.args) != argMark+1 {
		return Arg{}, errors.Wrap(ErrExpressionSyntax, "unbalanced expression")
	}
	a := ev.args[len(ev.args)-1]
	ev.args = ev.args[:len(ev.args)-1]
	return a, nil
}

// Infix walk of the token tree. Precedence is applied through the
// operator stack, not the tree shape.
func (ev *Evaluator) walk(t *scan.Token) error {
	switch t.Kind {
	case scan.TokConstant:
		return ev.pushArg(constArg(t.Value))

	case scan.TokIdentifier:
		a, err := ev.resolve(t)
		if err != nil {
			return err
		}
		return ev.pushArg(a)

	case scan.TokOperator:
		if t.Op.ID == scan.OpSexpr {
			if err := ev.pushOp(t.Op); err != nil {
				return err
			}
			if err := ev.walk(t.Right); err != nil {
				return err
			}
			return ev.applyToBarrier()
		}
		if t.Op.Unary {
			if err := ev.pushOp(t.Op); err != nil {
				return err
			}
			return ev.walk(t.Right)
		}
		if t.Left == nil || t.Right == nil {
			return errors.Wrapf(ErrExpressionSyntax, "operator %s missing operand", t.Op.Name)
		}
		if err := ev.walk(t.Left); err != nil {
			return err
		}
		if err := ev.applyPrec(t.Op); err != nil {
			return err
		}
		if err := ev.pushOp(t.Op); err != nil {
			return err
		}
		return ev.walk(t.Right)
	}
	return errors.Wrapf(ErrExpressionSyntax, "unexpected token %q", t.Text)
}

func (ev *Evaluator) pushArg(a Arg) error {
	if len(ev.args) >= maxStack {
		return errors.Wrap(ErrStackOverflow, "argument stack")
	}
	ev.args = append(ev.args, a)
	return nil
}

func (ev *Evaluator) popArg() Arg {
	a := ev.args[len(ev.args)-1]
	ev.args = ev.args[:len(ev.args)-1]
	return a
}

func (ev *Evaluator) pushOp(op scan.OperatorDetails) error {
	if len(ev.ops) >= maxStack {
		return errors.Wrap(ErrStackOverflow, "operator stack")
	}
	ev.ops = append(ev.ops, op)
	return nil
}

// applyPrec applies stacked operators that bind at least as tight as
// the incoming one. The SEXPR barrier stops the unwind.
func (ev *Evaluator) applyPrec(op scan.OperatorDetails) error {
	for len(ev.ops) > 0 {
		top := ev.ops[len(ev.ops)-1]
		if top.ID == scan.OpSexpr {
			return nil
		}
		if top.Precedence > op.Precedence {
			return nil
		}
		if top.Precedence == op.Precedence && op.RightAssoc {
			return nil
		}
		if err := ev.applyTop(); err != nil {
			return err
		}
	}
	return nil
}

// applyToBarrier unwinds to the matching SEXPR barrier and removes it.
func (ev *Evaluator) applyToBarrier() error {
	for len(ev.ops) > 0 {
		top := ev.ops[len(ev.ops)-1]
		if top.ID == scan.OpSexpr {
			ev.ops = ev.ops[:len(ev.ops)-1]
			return nil
		}
		if err := ev.applyTop(); err != nil {
			return err
		}
	}
	return errors.Wrap(ErrExpressionSyntax, "lost expression barrier")
}

func (ev *Evaluator) applyTop() error {
	op := ev.ops[len(ev.ops)-1]
	ev.ops = ev.ops[:len(ev.ops)-1]
	if op.Unary {
		if len(ev.args) < 1 {
			return errors.Wrapf(ErrExpressionSyntax, "missing operand for %s", op.Name)
		}
		return ev.applyUnary(op, ev.popArg())
	}
	if len(ev.args) < 2 {
		return errors.Wrapf(ErrExpressionSyntax, "missing operand for %s", op.Name)
	}
	r := ev.popArg()
	l := ev.popArg()
	return ev.applyBinary(op, l, r)
}

func constArg(v types.DataValue) Arg {
	dt := types.Scalar(v.Tag())
	if v.Tag() == types.Character {
		s, _ := v.Char()
		dt.Constraint = len(s)
	}
	return Arg{Class: ArgConstant, Type: dt, Value: v}
}

// --- operator application ---

func (ev *Evaluator) applyUnary(op scan.OperatorDetails, a Arg) error {
	if a.Class == ArgConstant {
		v, err := foldUnary(op.ID, a.Value)
		if err != nil {
			return err
		}
		return ev.pushArg(constArg(v))
	}
	rt, err := unaryType(op.ID, a.Type.Base)
	if err != nil {
		return err
	}
	if rt == types.Complex {
		re, im, err := ev.loadComplex(&a)
		if err != nil {
			return err
		}
		if op.ID == scan.OpNeg {
			ev.E.Neg(re, re, true)
			ev.E.Neg(im, im, true)
		}
		return ev.pushArg(Arg{Class: ArgCalculation, Type: types.Scalar(rt), Reg: re, Reg2: im})
	}
	reg, err := ev.loadReg(&a, rt)
	if err != nil {
		return err
	}
	switch op.ID {
	case scan.OpNeg:
		ev.E.Neg(reg, reg, rt == types.Real || rt == types.Double)
	case scan.OpNot:
		ev.E.Not(reg, reg)
	}
	return ev.pushArg(Arg{Class: ArgCalculation, Type: types.Scalar(rt), Reg: reg})
}

func (ev *Evaluator) applyBinary(op scan.OperatorDetails, l, r Arg) error {
	// All constant operands fold without emitting code.
	if l.Class == ArgConstant && r.Class == ArgConstant {
		_, ct, err := resultType(op.ID, l.Type.Base, r.Type.Base)
		if err != nil {
			return err
		}
		lv, err := foldConvert(l.Value, ct)
		if err != nil {
			return err
		}
		rv, err := foldConvert(r.Value, ct)
		if err != nil {
			return err
		}
		v, err := foldBinary(op.ID, ct, lv, rv)
		if err != nil {
			return err
		}
		return ev.pushArg(constArg(v))
	}

	rt, ct, err := resultType(op.ID, l.Type.Base, r.Type.Base)
	if err != nil {
		return err
	}

	if ct == types.Character {
		return ev.applyCharacter(op, l, r)
	}
	if ct == types.Complex {
		return ev.applyComplex(op, l, r)
	}

	// Small integer powers unroll to repeated multiplication.
	if op.ID == scan.OpPow && ct == types.Integer && r.Class == ArgConstant {
		if exp, ok := r.Value.Int(); ok && exp >= 2 && exp <= 4 {
			return ev.unrollPow(l, int(exp))
		}
	}

	lreg, err := ev.loadReg(&l, ct)
	if err != nil {
		return err
	}
	rreg, err := ev.loadReg(&r, ct)
	if err != nil {
		return err
	}
	float := ct == types.Real || ct == types.Double

	switch op.ID {
	case scan.OpAdd:
		ev.E.Add(lreg, lreg, rreg, float)
	case scan.OpSub:
		ev.E.Sub(lreg, lreg, rreg, float)
	case scan.OpMul:
		if float {
			ev.E.MulFlt(lreg, lreg, rreg)
		} else {
			ev.E.MulInt(lreg, lreg, rreg)
		}
	case scan.OpDiv:
		if float {
			ev.E.DivFlt(lreg, lreg, rreg)
		} else {
			ev.E.DivInt(lreg, lreg, rreg)
		}
	case scan.OpPow:
		if !float {
			// General integer power goes through the float library
			// and truncates back.
			ev.E.IntToFlt(lreg, lreg)
			ev.E.IntToFlt(rreg, rreg)
			ev.E.Pow(lreg, lreg, rreg)
			ev.E.FltToInt(lreg, lreg)
		} else {
			ev.E.Pow(lreg, lreg, rreg)
		}
	case scan.OpAnd:
		ev.E.And(lreg, lreg, rreg)
	case scan.OpOr:
		ev.E.Or(lreg, lreg, rreg)
	case scan.OpNeqv:
		ev.E.Xor(lreg, lreg, rreg)
	case scan.OpEqv:
		ev.E.Eqv(lreg, lreg, rreg)
	case scan.OpEq:
		ev.E.Compare(lreg, lreg, rreg, cal.BrZero, float)
	case scan.OpNe:
		ev.E.Compare(lreg, lreg, rreg, cal.BrNZero, float)
	case scan.OpLt:
		ev.E.Compare(lreg, lreg, rreg, cal.BrMinus, float)
	case scan.OpGe:
		ev.E.Compare(lreg, lreg, rreg, cal.BrPlus, float)
	case scan.OpLe:
		ev.E.Compare(lreg, rreg, lreg, cal.BrPlus, float)
	case scan.OpGt:
		ev.E.Compare(lreg, rreg, lreg, cal.BrMinus, float)
	default:
		return errors.Wrapf(ErrTypeMismatch, "operator %s", op.Name)
	}
	ev.E.S.Free(rreg)
	return ev.pushArg(Arg{Class: ArgCalculation, Type: types.Scalar(rt), Reg: lreg})
}

// x**2..4 as repeated multiplication.
func (ev *Evaluator) unrollPow(l Arg, exp int) error {
	lreg, err := ev.loadReg(&l, types.Integer)
	if err != nil {
		return err
	}
	tmp, err := ev.E.S.Get()
	if err != nil {
		return err
	}
	ev.E.Move(tmp, lreg)
	for i := 1; i < exp; i++ {
		ev.E.MulInt(lreg, lreg, tmp)
	}
	ev.E.S.Free(tmp)
	return ev.pushArg(Arg{Class: ArgCalculation, Type: types.Scalar(types.Integer), Reg: lreg})
}

// Character concatenation and comparison through the string runtime.
func (ev *Evaluator) applyCharacter(op scan.OperatorDetails, l, r Arg) error {
	ld, err := ev.charReg(&l)
	if err != nil {
		return err
	}
	rd, err := ev.charReg(&r)
	if err != nil {
		return err
	}

	if op.ID == scan.OpConcat {
		dst, err := ev.E.S.Get()
		if err != nil {
			return err
		}
		ev.E.CallStr(cal.PrimCatStr, dst, ld, rd)
		ev.E.S.Free(rd)
		ev.E.S.Free(ld)
		dt := types.CharType(l.Type.Len() + r.Type.Len())
		return ev.pushArg(Arg{Class: ArgCalculation, Type: dt, Reg: dst})
	}

	// Comparison: the runtime returns the sign of the difference.
	ev.E.CallStr(cal.PrimCmpStr, ld, ld, rd)
	ev.E.S.Free(rd)
	zero, err := ev.E.S.Get()
	if err != nil {
		return err
	}
	ev.E.LoadConst(zero, 0)
	cond := cal.BrZero
	switch op.ID {
	case scan.OpNe:
		cond = cal.BrNZero
	case scan.OpLt:
		cond = cal.BrMinus
	case scan.OpGe:
		cond = cal.BrPlus
	case scan.OpLe:
		ev.E.Compare(ld, zero, ld, cal.BrPlus, false)
		ev.E.S.Free(zero)
		return ev.pushArg(Arg{Class: ArgCalculation, Type: types.Scalar(types.Logical), Reg: ld})
	case scan.OpGt:
		ev.E.Compare(ld, zero, ld, cal.BrMinus, false)
		ev.E.S.Free(zero)
		return ev.pushArg(Arg{Class: ArgCalculation, Type: types.Scalar(types.Logical), Reg: ld})
	}
	ev.E.Compare(ld, ld, zero, cond, false)
	ev.E.S.Free(zero)
	return ev.pushArg(Arg{Class: ArgCalculation, Type: types.Scalar(types.Logical), Reg: ld})
}

// Complex arithmetic on register pairs. Multiply and divide go to
// the runtime with both halves of both operands on the stack; the
// result comes back in S7 and S6.
func (ev *Evaluator) applyComplex(op scan.OperatorDetails, l, r Arg) error {
	lre, lim, err := ev.loadComplex(&l)
	if err != nil {
		return err
	}
	rre, rim, err := ev.loadComplex(&r)
	if err != nil {
		return err
	}

	switch op.ID {
	case scan.OpAdd:
		ev.E.Add(lre, lre, rre, true)
		ev.E.Add(lim, lim, rim, true)
	case scan.OpSub:
		ev.E.Sub(lre, lre, rre, true)
		ev.E.Sub(lim, lim, rim, true)
	case scan.OpMul, scan.OpDiv:
		name := cal.PrimMulCpx
		if op.ID == scan.OpDiv {
			name = cal.PrimDivCpx
		}
		ev.complexCall(name, lre, lim, rre, rim)
	case scan.OpEq, scan.OpNe:
		ev.E.Compare(lre, lre, rre, cal.BrZero, true)
		ev.E.Compare(lim, lim, rim, cal.BrZero, true)
		ev.E.And(lre, lre, lim)
		if op.ID == scan.OpNe {
			ev.E.Not(lre, lre)
		}
		ev.E.S.Free(rim)
		ev.E.S.Free(rre)
		ev.E.S.Free(lim)
		return ev.pushArg(Arg{Class: ArgCalculation, Type: types.Scalar(types.Logical), Reg: lre})
	default:
		return errors.Wrapf(ErrTypeMismatch, "complex operator %s", op.Name)
	}
	ev.E.S.Free(rim)
	ev.E.S.Free(rre)
	return ev.pushArg(Arg{Class: ArgCalculation, Type: types.Scalar(types.Complex), Reg: lre, Reg2: lim})
}

// Runtime call for a complex operation: results return in S7 (real)
// and S6 (imaginary) and are captured before the saved registers
// come back.
func (ev *Evaluator) complexCall(name string, lre, lim, rre, rim int) {
	exclude := cal.RegBits(lre, lim, rre, rim)
	mask := ev.E.S.SaveMask(exclude)
	ev.E.SaveRegs(mask)
	ev.E.Push(lre)
	ev.E.Push(lim)
	ev.E.Push(rre)
	ev.E.Push(rim)
	ev.E.Call(name)
	ev.E.DropStack(4)
	ev.E.Move(lre, 7)
	ev.E.Move(lim, 6)
	ev.E.RestoreRegs(mask)
}
