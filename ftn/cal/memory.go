/*
 * FTN77 - Load and store emit catalogue
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

package cal

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rcornwell/ftn77/ftn/symbols"
	"github.com/rcornwell/ftn77/ftn/types"
)

// Offset classes of a storage reference.
const (
	OffNone = iota // No subscript.
	OffConst       // Compile time word offset.
	OffReg         // Word offset held in an S register.
)

// A storage reference: a symbol plus an optional element offset.
type Ref struct {
	Sym      *symbols.Symbol
	OffClass int
	ConstOff int // Words, valid for OffConst.
	RegOff   int // S register, valid for OffReg.
}

// Format base+displacement for an A register expression.
func baseDisp(base string, disp int) string {
	if disp == 0 {
		return base
	}
	if disp < 0 {
		return fmt.Sprintf("%s-%d", base, -disp)
	}
	return fmt.Sprintf("%s+%d", base, disp)
}

// Format a label+offset address literal.
func labelDisp(label string, disp int) string {
	if disp == 0 {
		return label
	}
	return fmt.Sprintf("%s+%d", label, disp)
}

// Section label a symbol's storage lives under.
func (e *Emitter) sectionLabel(sym *symbols.Symbol) string {
	if sym.Class == symbols.ClassGlobal && sym.Block != nil {
		return sym.Block.CalLabel
	}
	return e.StaticLabel()
}

// LoadAddr computes the word address of a reference into a fresh A
// register, which the caller must free. Register held offsets are
// folded in here.
func (e *Emitter) LoadAddr(ref Ref) (int, error) {
	areg, err := e.A.Get()
	if err != nil {
		return 0, err
	}

	disp := ref.Sym.Offset
	if ref.OffClass == OffConst {
		disp += ref.ConstOff
	}

	switch ref.Sym.Class {
	case symbols.ClassAuto, symbols.ClassFunction:
		e.Emit(Areg(areg), baseDisp("A6", disp))

	case symbols.ClassStatic:
		e.Emit(Areg(areg), labelDisp(e.StaticLabel(), disp))

	case symbols.ClassGlobal:
		e.Emit(Areg(areg), labelDisp(e.sectionLabel(ref.Sym), disp))

	case symbols.ClassArgument:
		// The argument slot holds the address of the actual.
		e.Emit(Areg(areg), fmt.Sprintf("%d,A6", ref.Sym.Offset))
		if ref.OffClass == OffConst && ref.ConstOff != 0 {
			e.Emit(Areg(areg), baseDisp(Areg(areg), ref.ConstOff))
		}

	case symbols.ClassAdjustable:
		// Word zero of the dope vector holds the base address.
		e.Emit(Areg(areg), fmt.Sprintf("%d,A6", ref.Sym.Offset))
		if ref.OffClass == OffConst && ref.ConstOff != 0 {
			e.Emit(Areg(areg), baseDisp(Areg(areg), ref.ConstOff))
		}

	case symbols.ClassPointee:
		// The pointer variable holds the word address.
		ptr := Ref{Sym: ref.Sym.Pointer}
		preg, perr := e.LoadAddr(ptr)
		if perr != nil {
			e.A.Free(areg)
			return 0, perr
		}
		e.Emit(Areg(areg), fmt.Sprintf("0,A%d", preg))
		e.A.Free(preg)
		if ref.OffClass == OffConst && ref.ConstOff != 0 {
			e.Emit(Areg(areg), baseDisp(Areg(areg), ref.ConstOff))
		}

	default:
		e.A.Free(areg)
		return 0, errors.Errorf("cannot address %s of class %s", ref.Sym.Name, ref.Sym.Class)
	}

	if ref.OffClass == OffReg {
		idx, ierr := e.A.Get()
		if ierr != nil {
			e.A.Free(areg)
			return 0, ierr
		}
		e.MoveSA(idx, ref.RegOff)
		e.Emit(Areg(areg), fmt.Sprintf("A%d+A%d", areg, idx))
		e.A.Free(idx)
	}
	return areg, nil
}

// LoadWord loads a one word value into an S register. The fast paths
// address straight off the frame pointer or a section label; only
// register subscripts and indirect classes need an address register.
func (e *Emitter) LoadWord(dst int, ref Ref) error {
	disp := ref.Sym.Offset
	if ref.OffClass == OffConst {
		disp += ref.ConstOff
	}

	if ref.OffClass != OffReg {
		switch ref.Sym.Class {
		case symbols.ClassAuto, symbols.ClassFunction:
			e.Emit(Sreg(dst), fmt.Sprintf("%d,A6", disp))
			return nil
		case symbols.ClassStatic:
			e.Emit(Sreg(dst), labelDisp(e.StaticLabel(), disp)+",A0")
			return nil
		case symbols.ClassGlobal:
			e.Emit(Sreg(dst), labelDisp(e.sectionLabel(ref.Sym), disp)+",A0")
			return nil
		}
	}

	areg, err := e.LoadAddr(ref)
	if err != nil {
		return err
	}
	e.Emit(Sreg(dst), fmt.Sprintf("0,A%d", areg))
	e.A.Free(areg)
	return nil
}

// StoreWord stores an S register into a one word slot.
func (e *Emitter) StoreWord(src int, ref Ref) error {
	disp := ref.Sym.Offset
	if ref.OffClass == OffConst {
		disp += ref.ConstOff
	}

	if ref.OffClass != OffReg {
		switch ref.Sym.Class {
		case symbols.ClassAuto, symbols.ClassFunction:
			e.Emit(fmt.Sprintf("%d,A6", disp), Sreg(src))
			return nil
		case symbols.ClassStatic:
			e.Emit(labelDisp(e.StaticLabel(), disp)+",A0", Sreg(src))
			return nil
		case symbols.ClassGlobal:
			e.Emit(labelDisp(e.sectionLabel(ref.Sym), disp)+",A0", Sreg(src))
			return nil
		}
	}

	areg, err := e.LoadAddr(ref)
	if err != nil {
		return err
	}
	e.Emit(fmt.Sprintf("0,A%d", areg), Sreg(src))
	e.A.Free(areg)
	return nil
}

// LoadCharDesc builds a character descriptor in an S register: the
// byte address in the low half with the length in the high 32 bits.
// The reference offset is in characters.
func (e *Emitter) LoadCharDesc(dst int, ref Ref, length int) error {
	chrOff := ref.Sym.Type.FirstChrOffset
	wordRef := ref

	// Fold a constant character offset into words plus a byte
	// remainder.
	if ref.OffClass == OffConst {
		total := chrOff + ref.ConstOff
		wordRef.ConstOff = total / 8
		chrOff = total % 8
	}

	if ref.OffClass == OffReg {
		// Character subscripts beyond a word boundary are computed
		// in bytes, so clear the word offset and add below.
		wordRef.OffClass = OffNone
	}

	areg, err := e.LoadAddr(wordRef)
	if err != nil {
		return err
	}
	e.MoveAS(dst, areg)
	e.A.Free(areg)
	e.Emit(Sreg(dst), fmt.Sprintf("S%d<3", dst))

	tmp, err := e.S.Get()
	if err != nil {
		return err
	}
	if chrOff != 0 {
		e.LoadConst(tmp, uint64(chrOff))
		e.Emit(Sreg(dst), fmt.Sprintf("S%d+S%d", dst, tmp))
	}
	if ref.OffClass == OffReg {
		e.Emit(Sreg(dst), fmt.Sprintf("S%d+S%d", dst, ref.RegOff))
	}
	e.LoadConst(tmp, uint64(length))
	e.Emit(Sreg(tmp), fmt.Sprintf("S%d<32", tmp))
	e.Or(dst, dst, tmp)
	e.S.Free(tmp)
	return nil
}

// ConstDesc queues a literal string in the data section and builds
// its descriptor into an S register.
func (e *Emitter) ConstDesc(dst int, text string) error {
	label := e.NewLabel()
	e.Data(Inst{Label: label, Result: "DATA", Operand: "'" + text + "'"})

	areg, err := e.A.Get()
	if err != nil {
		return err
	}
	e.Emit(Areg(areg), label)
	e.MoveAS(dst, areg)
	e.A.Free(areg)
	e.Emit(Sreg(dst), fmt.Sprintf("S%d<3", dst))

	tmp, err := e.S.Get()
	if err != nil {
		return err
	}
	e.LoadConst(tmp, uint64(len(text)))
	e.Emit(Sreg(tmp), fmt.Sprintf("S%d<32", tmp))
	e.Or(dst, dst, tmp)
	e.S.Free(tmp)
	return nil
}

// CallStr performs a two descriptor string runtime call: the
// descriptors go onto a two word stack frame.
func (e *Emitter) CallStr(name string, dst, lhs, rhs int) {
	e.CallPrim(name, dst, lhs, rhs)
}

// DescLength extracts the length half of a descriptor.
func (e *Emitter) DescLength(dst, desc int) {
	if dst != desc {
		e.Move(dst, desc)
	}
	e.Emit(Sreg(dst), fmt.Sprintf("S%d>32", dst))
}

// CharRef reports whether a reference is to character storage.
func CharRef(ref Ref) bool {
	return ref.Sym.Type.Base == types.Character
}
