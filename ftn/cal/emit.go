/*
 * FTN77 - Arithmetic and logical emit catalogue
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

	"github.com/rcornwell/ftn77/ftn/regs"
)

// Runtime primitive entry points. ExtName maps the leading
// underscore to a percent sign on output.
const (
	PrimMulInt = "_mli"
	PrimDivInt = "_dvi"
	PrimDivFlt = "_dvf"
	PrimIntFlt = "_cif"
	PrimFltInt = "_cfi"
	PrimPow    = "_pow"
	PrimCmpStr = "_cmpstr"
	PrimCatStr = "_catstr"
	PrimCpyStr = "_cpystr"
	PrimIniFIO = "_inifio"
	PrimInFmt  = "_infmt"
	PrimOutFmt = "_outfmt"
	PrimEndFmt = "_endfmt"
	PrimMulCpx = "_mlc"
	PrimDivCpx = "_dvc"
	PrimBndErr = "_bnderr"
)

// RegBits builds a register mask from register numbers.
func RegBits(list ...int) uint8 {
	mask := uint8(0)
	for _, reg := range list {
		mask |= regs.Bit(reg)
	}
	return mask
}

// Branch conditions testing S0.
const (
	BrZero  = "JSZ" // S0 == 0
	BrNZero = "JSN" // S0 != 0
	BrPlus  = "JSP" // S0 >= 0
	BrMinus = "JSM" // S0 < 0
)

// LoadConst materialises a constant word into an S register.
func (e *Emitter) LoadConst(dst int, word uint64) {
	e.Emit(Sreg(dst), Const(word))
}

// Move copies between S registers.
func (e *Emitter) Move(dst, src int) {
	if dst != src {
		e.Emit(Sreg(dst), Sreg(src))
	}
}

// MoveSA copies an S register into an A register.
func (e *Emitter) MoveSA(dst, src int) {
	e.Emit(Areg(dst), Sreg(src))
}

// MoveAS copies an A register into an S register.
func (e *Emitter) MoveAS(dst, src int) {
	e.Emit(Sreg(dst), Areg(src))
}

// Push saves one S register on the software stack.
func (e *Emitter) Push(reg int) {
	e.Emit("A7", "A7-1")
	e.Emit("0,A7", Sreg(reg))
}

// Pop restores one S register from the software stack.
func (e *Emitter) Pop(reg int) {
	e.Emit(Sreg(reg), "0,A7")
	e.Emit("A7", "A7+1")
}

// DropStack releases n words of the software stack.
func (e *Emitter) DropStack(n int) {
	if n > 0 {
		e.Emit("A7", fmt.Sprintf("A7+%d", n))
	}
}

// SaveRegs pushes each register in the mask, low to high.
func (e *Emitter) SaveRegs(mask uint8) {
	for reg := 0; reg < 8; reg++ {
		if mask&regs.Bit(reg) != 0 {
			e.Push(reg)
		}
	}
}

// RestoreRegs pops each register in the mask, high to low.
func (e *Emitter) RestoreRegs(mask uint8) {
	for reg := 7; reg >= 0; reg-- {
		if mask&regs.Bit(reg) != 0 {
			e.Pop(reg)
		}
	}
}

// Call emits a return jump to a runtime entry.
func (e *Emitter) Call(name string) {
	e.Emit("R", ExtName(name))
}

// CallPrim wraps a primitive call in the caller save discipline:
// every live register not holding a call argument is saved, the
// arguments are pushed in order, the primitive is called, the
// argument words dropped and the saved registers restored. The
// result arrives in S7 and is moved to dst.
func (e *Emitter) CallPrim(name string, dst int, args ...int) {
	exclude := uint8(0)
	for _, reg := range args {
		exclude |= regs.Bit(reg)
	}
	mask := e.S.SaveMask(exclude) &^ regs.Bit(dst)
	e.SaveRegs(mask)
	for _, reg := range args {
		e.Push(reg)
	}
	e.Call(name)
	e.DropStack(len(args))
	e.RestoreRegs(mask)
	if dst != 7 {
		e.Move(dst, 7)
	}
}

// Add emits integer or floating addition.
func (e *Emitter) Add(dst, lhs, rhs int, float bool) {
	mod := ""
	if float {
		mod = "F"
	}
	e.Emit(Sreg(dst), fmt.Sprintf("S%d+%sS%d", lhs, mod, rhs))
}

// Sub emits integer or floating subtraction.
func (e *Emitter) Sub(dst, lhs, rhs int, float bool) {
	mod := ""
	if float {
		mod = "F"
	}
	e.Emit(Sreg(dst), fmt.Sprintf("S%d-%sS%d", lhs, mod, rhs))
}

// Neg negates a value into dst.
func (e *Emitter) Neg(dst, src int, float bool) {
	mod := ""
	if float {
		mod = "F"
	}
	e.Emit(Sreg(dst), fmt.Sprintf("-%sS%d", mod, src))
}

// MulFlt is a native floating multiply.
func (e *Emitter) MulFlt(dst, lhs, rhs int) {
	e.Emit(Sreg(dst), fmt.Sprintf("S%d*FS%d", lhs, rhs))
}

// MulInt multiplies integers through the runtime primitive.
func (e *Emitter) MulInt(dst, lhs, rhs int) {
	e.CallPrim(PrimMulInt, dst, lhs, rhs)
}

// DivInt divides integers through the runtime primitive.
func (e *Emitter) DivInt(dst, lhs, rhs int) {
	e.CallPrim(PrimDivInt, dst, lhs, rhs)
}

// DivFlt divides floats through the runtime primitive.
func (e *Emitter) DivFlt(dst, lhs, rhs int) {
	e.CallPrim(PrimDivFlt, dst, lhs, rhs)
}

// Pow raises lhs to rhs through the runtime primitive.
func (e *Emitter) Pow(dst, lhs, rhs int) {
	e.CallPrim(PrimPow, dst, lhs, rhs)
}

// IntToFlt converts an integer register to floating.
func (e *Emitter) IntToFlt(dst, src int) {
	e.CallPrim(PrimIntFlt, dst, src)
}

// FltToInt truncates a floating register to integer.
func (e *Emitter) FltToInt(dst, src int) {
	e.CallPrim(PrimFltInt, dst, src)
}

// Compare subtracts and forms the sign bit truthy value: load the
// all ones mask, skip the clear when the condition holds.
func (e *Emitter) Compare(dst, lhs, rhs int, cond string, float bool) {
	e.Sub(0, lhs, rhs, float)
	e.Emit(Sreg(dst), "<64")
	skip := e.NewLabel()
	e.Emit(cond, skip)
	e.Emit(Sreg(dst), "0")
	e.Define(skip)
}

// And emits a bitwise and, which is the logical AND under the mask
// truthy convention.
func (e *Emitter) And(dst, lhs, rhs int) {
	e.Emit(Sreg(dst), fmt.Sprintf("S%d&S%d", lhs, rhs))
}

// Or emits a bitwise inclusive or.
func (e *Emitter) Or(dst, lhs, rhs int) {
	e.Emit(Sreg(dst), fmt.Sprintf("S%d!S%d", lhs, rhs))
}

// Xor emits a bitwise exclusive or, the NEQV operation.
func (e *Emitter) Xor(dst, lhs, rhs int) {
	e.Emit(Sreg(dst), fmt.Sprintf("S%d\\S%d", lhs, rhs))
}

// Eqv emits the complement of exclusive or.
func (e *Emitter) Eqv(dst, lhs, rhs int) {
	e.Xor(dst, lhs, rhs)
	e.Not(dst, dst)
}

// Not complements a register.
func (e *Emitter) Not(dst, src int) {
	e.Emit(Sreg(dst), fmt.Sprintf("#S%d", src))
}

// Shift left by a literal count.
func (e *Emitter) ShiftL(dst, src, count int) {
	if dst != src {
		e.Move(dst, src)
	}
	e.Emit(Sreg(dst), fmt.Sprintf("S%d<%d", dst, count))
}

// Shift right by a literal count.
func (e *Emitter) ShiftR(dst, src, count int) {
	if dst != src {
		e.Move(dst, src)
	}
	e.Emit(Sreg(dst), fmt.Sprintf("S%d>%d", dst, count))
}
