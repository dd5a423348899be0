/*
 * FTN77 - Procedure calls and statement function expansion
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

// One actual argument prepared for a call: the register holding its
// address word (or descriptor) plus any stack temporaries it pinned.
type actual struct {
	reg   int
	temps int
}

// prepareArg turns an evaluated argument into an address word.
// Computed values are parked in stack temporaries so they have an
// address to pass.
func (ev *Evaluator) prepareArg(tree *scan.Token) (actual, error) {
	// A bare external name passes the procedure's entry address.
	if tree.Kind == scan.TokIdentifier && tree.Args == nil {
		if sym := ev.T.Find(tree.Text); sym != nil &&
			(sym.Class == symbols.ClassExternal || sym.Class == symbols.ClassFunction) {
			return ev.procArg(sym)
		}
	}

	a, err := ev.evalSub(tree)
	if err != nil {
		return actual{}, err
	}

	switch a.Class {
	case ArgProcedure:
		return ev.procArg(a.Sym)

	case ArgReference:
		if a.Type.Base == types.Character {
			reg, err := ev.charReg(&a)
			if err != nil {
				return actual{}, err
			}
			return actual{reg: reg}, nil
		}
		areg, err := ev.E.LoadAddr(a.Ref)
		if err != nil {
			return actual{}, err
		}
		reg, err := ev.E.S.Get()
		if err != nil {
			return actual{}, err
		}
		ev.E.MoveAS(reg, areg)
		ev.E.A.Free(areg)
		return actual{reg: reg}, nil

	case ArgConstant:
		if a.Type.Base == types.Character {
			reg, err := ev.charReg(&a)
			if err != nil {
				return actual{}, err
			}
			return actual{reg: reg}, nil
		}
		return ev.tempArg(&a)

	case ArgCalculation:
		if a.Type.Base == types.Character {
			// A computed descriptor is already an address word.
			return actual{reg: a.Reg}, nil
		}
		return ev.tempArg(&a)
	}
	return actual{}, errors.Wrap(ErrTypeMismatch, "bad actual argument")
}

// PrepareIO readies one I/O list element: the returned register
// holds the element's address word or descriptor, with the count of
// stack temporaries to drop after the conversion call.
func (ev *Evaluator) PrepareIO(tree *scan.Token) (int, int, error) {
	act, err := ev.prepareArg(tree)
	if err != nil {
		return 0, 0, err
	}
	return act.reg, act.temps, nil
}

// procArg loads a procedure entry address.
func (ev *Evaluator) procArg(sym *symbols.Symbol) (actual, error) {
	areg, err := ev.E.A.Get()
	if err != nil {
		return actual{}, err
	}
	reg, err := ev.E.S.Get()
	if err != nil {
		ev.E.A.Free(areg)
		return actual{}, err
	}
	ev.E.Emit(cal.Areg(areg), cal.ExtName(sym.Name))
	ev.E.MoveAS(reg, areg)
	ev.E.A.Free(areg)
	return actual{reg: reg}, nil
}

// tempArg parks a computed value in a stack temporary and passes the
// temporary's address. Complex values take two words.
func (ev *Evaluator) tempArg(a *Arg) (actual, error) {
	if a.Type.Base == types.Complex {
		re, im, err := ev.loadComplex(a)
		if err != nil {
			return actual{}, err
		}
		ev.E.Push(im)
		ev.E.Push(re)
		ev.E.S.Free(im)
		ev.E.S.Free(re)
		reg, err := ev.addrOfTop()
		if err != nil {
			return actual{}, err
		}
		return actual{reg: reg, temps: 2}, nil
	}
	reg, err := ev.loadReg(a, a.Type.Base)
	if err != nil {
		return actual{}, err
	}
	ev.E.Push(reg)
	ev.E.S.Free(reg)
	addr, err := ev.addrOfTop()
	if err != nil {
		return actual{}, err
	}
	return actual{reg: addr, temps: 1}, nil
}

// Address of the current stack top as an S register word.
func (ev *Evaluator) addrOfTop() (int, error) {
	areg, err := ev.E.A.Get()
	if err != nil {
		return 0, err
	}
	reg, err := ev.E.S.Get()
	if err != nil {
		ev.E.A.Free(areg)
		return 0, err
	}
	ev.E.Emit(cal.Areg(areg), "A7")
	ev.E.MoveAS(reg, areg)
	ev.E.A.Free(areg)
	return reg, nil
}

// Result type of a function symbol, defaulting through the implicit
// rules when it was never declared.
func (ev *Evaluator) fnResult(sym *symbols.Symbol) types.DataType {
	if sym.Type.Base != types.Undefined {
		return sym.Type
	}
	return types.Scalar(ev.T.ImplicitType(sym.Name))
}

// externalCall emits a call to an external or library function.
func (ev *Evaluator) externalCall(sym *symbols.Symbol, args []*scan.Token) (Arg, error) {
	name := sym.Name
	if sym.RtnName != "" {
		name = sym.RtnName
	}
	res := ev.fnResult(sym)
	reg, err := ev.emitCall(name, args, nil)
	if err != nil {
		return Arg{}, err
	}
	return Arg{Class: ArgCalculation, Type: res, Reg: reg}, nil
}

// CallSubroutine emits a CALL statement's transfer. The result word
// is discarded.
func (ev *Evaluator) CallSubroutine(sym *symbols.Symbol, args []*scan.Token) error {
	name := sym.Name
	if sym.RtnName != "" {
		name = sym.RtnName
	}
	reg, err := ev.emitCall(name, args, nil)
	if err != nil {
		return err
	}
	ev.E.S.Free(reg)
	return nil
}

// emitCall prepares the actuals, performs the guarded call and
// returns the register holding the result. An optional prefix
// register (argument count for the min max family) is pushed first.
func (ev *Evaluator) emitCall(name string, args []*scan.Token, prefix *int) (int, error) {
	actuals := []actual{}
	temps := 0
	addrRegs := []int{}
	if prefix != nil {
		reg, err := ev.E.S.Get()
		if err != nil {
			return 0, err
		}
		ev.E.LoadConst(reg, uint64(int64(*prefix)))
		addrRegs = append(addrRegs, reg)
	}
	for _, tree := range args {
		act, err := ev.prepareArg(tree)
		if err != nil {
			return 0, err
		}
		actuals = append(actuals, act)
		temps += act.temps
		addrRegs = append(addrRegs, act.reg)
	}

	dst, err := ev.E.S.Get()
	if err != nil {
		return 0, err
	}
	ev.E.CallPrim(name, dst, addrRegs...)
	ev.E.DropStack(temps)
	for _, act := range actuals {
		ev.E.S.Free(act.reg)
	}
	if prefix != nil {
		ev.E.S.Free(addrRegs[0])
	}
	return dst, nil
}

// intrinsicCall resolves a predefined function. Conversions and LEN
// generate inline; the rest call their runtime entries.
func (ev *Evaluator) intrinsicCall(sym *symbols.Symbol, args []*scan.Token) (Arg, error) {
	if args == nil {
		return Arg{Class: ArgProcedure, Type: sym.Type, Sym: sym}, nil
	}

	switch sym.Name {
	case "INT", "IFIX", "IDINT", "REAL", "FLOAT", "SNGL", "DBLE":
		if len(args) != 1 {
			return Arg{}, errors.Wrapf(ErrTypeMismatch, "%s takes one argument", sym.Name)
		}
		a, err := ev.evalSub(args[0])
		if err != nil {
			return Arg{}, err
		}
		if a.Class == ArgConstant {
			v, err := foldConvert(a.Value, sym.Type.Base)
			if err != nil {
				return Arg{}, err
			}
			return constArg(v), nil
		}
		reg, err := ev.loadReg(&a, sym.Type.Base)
		if err != nil {
			return Arg{}, err
		}
		return Arg{Class: ArgCalculation, Type: sym.Type, Reg: reg}, nil

	case "LEN":
		if len(args) != 1 {
			return Arg{}, errors.Wrap(ErrTypeMismatch, "LEN takes one argument")
		}
		a, err := ev.evalSub(args[0])
		if err != nil {
			return Arg{}, err
		}
		if a.Class == ArgConstant {
			s, ok := a.Value.Char()
			if !ok {
				return Arg{}, errors.Wrap(ErrTypeMismatch, "LEN of non character")
			}
			return constArg(types.IntValue(int64(len(s)))), nil
		}
		reg, err := ev.charReg(&a)
		if err != nil {
			return Arg{}, err
		}
		ev.E.DescLength(reg, reg)
		return Arg{Class: ArgCalculation, Type: types.Scalar(types.Integer), Reg: reg}, nil

	case "LOC":
		if len(args) != 1 {
			return Arg{}, errors.Wrap(ErrTypeMismatch, "LOC takes one argument")
		}
		a, err := ev.evalSub(args[0])
		if err != nil {
			return Arg{}, err
		}
		if a.Class != ArgReference {
			return Arg{}, errors.Wrap(ErrTypeMismatch, "LOC needs a variable")
		}
		areg, err := ev.E.LoadAddr(a.Ref)
		if err != nil {
			return Arg{}, err
		}
		reg, err := ev.E.S.Get()
		if err != nil {
			return Arg{}, err
		}
		ev.E.MoveAS(reg, areg)
		ev.E.A.Free(areg)
		return Arg{Class: ArgCalculation, Type: types.Scalar(types.Pointer), Reg: reg}, nil

	case "LGE", "LGT", "LLE", "LLT":
		if len(args) != 2 {
			return Arg{}, errors.Wrapf(ErrTypeMismatch, "%s takes two arguments", sym.Name)
		}
		la, err := ev.evalSub(args[0])
		if err != nil {
			return Arg{}, err
		}
		ra, err := ev.evalSub(args[1])
		if err != nil {
			return Arg{}, err
		}
		op := scan.OpGe
		switch sym.Name {
		case "LGT":
			op = scan.OpGt
		case "LLE":
			op = scan.OpLe
		case "LLT":
			op = scan.OpLt
		}
		if err = ev.applyCharacter(scan.Operator(op), la, ra); err != nil {
			return Arg{}, err
		}
		return ev.popArg(), nil

	case "MAX", "MAX0", "AMAX1", "DMAX1", "MIN", "MIN0", "AMIN1", "DMIN1":
		if len(args) < 2 {
			return Arg{}, errors.Wrapf(ErrTypeMismatch, "%s needs two or more arguments", sym.Name)
		}
		count := len(args)
		reg, err := ev.emitCall(sym.RtnName, args, &count)
		if err != nil {
			return Arg{}, err
		}
		return Arg{Class: ArgCalculation, Type: sym.Type, Reg: reg}, nil
	}

	reg, err := ev.emitCall(sym.RtnName, args, nil)
	if err != nil {
		return Arg{}, err
	}
	return Arg{Class: ArgCalculation, Type: sym.Type, Reg: reg}, nil
}

// Hidden dummy slot name for statement function expansion.
func dummyName(fn, arg string) string {
	return fn + "." + arg
}

// DefineStmtFnDummies registers the hidden frame slots for a
// statement function's dummy arguments. The slots place with the
// AUTO layout pass, or immediately when layout has already run.
func DefineStmtFnDummies(t *symbols.Table, fn *symbols.Symbol) {
	for _, argName := range fn.FnArgs {
		dummy := t.Register(dummyName(fn.Name, argName), symbols.ClassAuto)
		if dummy != nil {
			dummy.Type = types.Scalar(t.ImplicitType(argName))
			if prior := t.Find(argName); prior != nil {
				dummy.Type = types.Scalar(prior.Type.Base)
			}
			dummy.SetSize()
			t.PlaceLocal(dummy)
		}
	}
}

// expandStmtFn evaluates a statement function by storing the actuals
// into the hidden dummy slots, shadowing the dummy names and
// re-evaluating the saved body text.
func (ev *Evaluator) expandStmtFn(sym *symbols.Symbol, args []*scan.Token) (Arg, error) {
	if len(args) != len(sym.FnArgs) {
		return Arg{}, errors.Wrapf(ErrTypeMismatch,
			"%s needs %d arguments", sym.Name, len(sym.FnArgs))
	}

	for i, tree := range args {
		dummy := ev.T.Find(dummyName(sym.Name, sym.FnArgs[i]))
		if dummy == nil {
			return Arg{}, errors.Errorf("lost dummy slot for %s", sym.Name)
		}
		a, err := ev.evalSub(tree)
		if err != nil {
			return Arg{}, err
		}
		reg, err := ev.loadReg(&a, dummy.Type.Base)
		if err != nil {
			return Arg{}, err
		}
		if err = ev.E.StoreWord(reg, cal.Ref{Sym: dummy}); err != nil {
			return Arg{}, err
		}
		ev.E.S.Free(reg)
	}

	for _, argName := range sym.FnArgs {
		ev.T.Shadow(argName, ev.T.Find(dummyName(sym.Name, argName)))
	}
	defer func() {
		for _, argName := range sym.FnArgs {
			ev.T.RemoveShadow(argName)
		}
	}()

	cur := scan.NewCursor(sym.FnBody)
	tree, err := Parse(cur)
	if err != nil {
		return Arg{}, err
	}
	res, err := ev.evalSub(tree)
	if err != nil {
		return Arg{}, err
	}
	return res, nil
}

// EvalRef resolves an assignment target without loading it.
func (ev *Evaluator) EvalRef(t *scan.Token) (Arg, error) {
	ev.Reset()
	a, err := ev.resolve(t)
	if err != nil {
		return Arg{}, err
	}
	if a.Class == ArgReference {
		return a, nil
	}
	if a.Class == ArgCalculation && a.Type.Base == types.Character {
		// A dynamic substring target is carried as a descriptor.
		return a, nil
	}
	return Arg{}, errors.Wrapf(ErrTypeMismatch, "%q is not assignable", t.Text)
}

// Assign stores an evaluated value into a target reference.
// Character targets copy through the string runtime; complex targets
// store both words.
func (ev *Evaluator) Assign(lhs, rhs Arg) error {
	if lhs.Type.Base == types.Character {
		if rhs.Type.Base != types.Character {
			return errors.Wrap(ErrTypeMismatch, "assigning non character to character")
		}
		ld, err := ev.charReg(&lhs)
		if err != nil {
			return err
		}
		rd, err := ev.charReg(&rhs)
		if err != nil {
			return err
		}
		ev.E.CallStr(cal.PrimCpyStr, 7, ld, rd)
		ev.E.S.Free(rd)
		ev.E.S.Free(ld)
		return nil
	}
	if rhs.Type.Base == types.Character {
		return errors.Wrap(ErrTypeMismatch, "assigning character to non character")
	}

	if lhs.Type.Base == types.Complex {
		re, im, err := ev.loadComplex(&rhs)
		if err != nil {
			return err
		}
		areg, err := ev.E.LoadAddr(lhs.Ref)
		if err != nil {
			return err
		}
		ev.E.Emit("0,A"+itoa(areg), cal.Sreg(re))
		ev.E.Emit("1,A"+itoa(areg), cal.Sreg(im))
		ev.E.A.Free(areg)
		ev.E.S.Free(im)
		ev.E.S.Free(re)
		return nil
	}

	reg, err := ev.loadReg(&rhs, lhs.Type.Base)
	if err != nil {
		return err
	}
	err = ev.E.StoreWord(reg, lhs.Ref)
	ev.E.S.Free(reg)
	return err
}
