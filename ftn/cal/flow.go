/*
 * FTN77 - Control flow emit catalogue
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

	"github.com/rcornwell/ftn77/ftn/symbols"
	"github.com/rcornwell/ftn77/ftn/types"
)

// Prolog emits the program unit entry sequence: save the caller's
// frame pointer and return address, establish the new frame and open
// the frame by the size word at the forward referenced frame label.
// Main programs also initialise the formatted I/O package.
func (e *Emitter) Prolog(name string, program bool) {
	e.Print(Inst{Label: ExtName(name), Result: "A7", Operand: "A7-1"})
	e.Emit("0,A7", "A6")
	e.Emit("A1", "B00")
	e.Emit("A7", "A7-1")
	e.Emit("0,A7", "A1")
	e.Emit("A6", "A7")
	e.Emit("A1", e.FrameLabel()+",A0")
	e.Emit("A7", "A7-A1")
	if program {
		e.Call(PrimIniFIO)
	}
}

// Epilog emits the return sequence. Function units first move their
// result into S7; character functions return a descriptor built from
// the result slot.
func (e *Emitter) Epilog(result *symbols.Symbol) error {
	if result != nil {
		if result.Type.Base == types.Character {
			err := e.LoadCharDesc(7, Ref{Sym: result}, result.Type.Len())
			if err != nil {
				return err
			}
		} else {
			e.Emit("S7", fmt.Sprintf("%d,A6", result.Offset))
		}
	}
	e.Emit("A7", "A6")
	e.Emit("A1", "0,A7")
	e.Emit("A7", "A7+1")
	e.Emit("A6", "0,A7")
	e.Emit("A7", "A7+1")
	e.Emit("B00", "A1")
	e.Emit("J", "B00")
	return nil
}

// FrameSize queues the frame size word the prolog references.
func (e *Emitter) FrameSize(words int) {
	e.Data(Inst{Label: e.FrameLabel(), Result: "CON", Operand: Disp(words)})
}

// StaticBlock queues the unit's static storage: runs of initialised
// words print as CON, gaps reserve with BSS.
func (e *Emitter) StaticBlock(words int, image map[int]uint64) {
	if words > 0 {
		e.imageData(e.StaticLabel(), words, image)
	}
}

// imageData queues a labelled storage area mixing CON and BSS.
func (e *Emitter) imageData(label string, words int, image map[int]uint64) {
	if len(image) == 0 {
		e.Data(Inst{Label: label, Result: "BSS", Operand: Disp(words)})
		return
	}
	gap := 0
	first := true
	flush := func() {
		if gap > 0 {
			in := Inst{Result: "BSS", Operand: Disp(gap)}
			if first {
				in.Label = label
				first = false
			}
			e.Data(in)
			gap = 0
		}
	}
	for off := 0; off < words; off++ {
		word, ok := image[off]
		if !ok {
			gap++
			continue
		}
		flush()
		in := Inst{Result: "CON", Operand: Const(word)}
		if first {
			in.Label = label
			first = false
		}
		e.Data(in)
	}
	flush()
}

// Commons emits the referenced common block sections after the code
// section, with any BLOCK DATA style initial images.
func (e *Emitter) Commons(blocks []*symbols.Common, images map[string]map[int]uint64) {
	for _, blk := range blocks {
		if blk.Limit == 0 {
			continue
		}
		e.Print(Inst{Label: blk.CalLabel, Result: "SECTION", Operand: "COMMON"})
		image := images[blk.Name]
		gap := 0
		for off := 0; off < blk.Limit; off++ {
			word, ok := image[off]
			if !ok {
				gap++
				continue
			}
			if gap > 0 {
				e.Emit("BSS", Disp(gap))
				gap = 0
			}
			e.Emit("CON", Const(word))
		}
		if gap > 0 {
			e.Emit("BSS", Disp(gap))
		}
		e.Emit("SECTION", "*")
	}
}

// Branch emits an unconditional jump.
func (e *Emitter) Branch(label string) {
	e.Emit("J", label)
}

// BranchCond jumps on a condition already set in S0.
func (e *Emitter) BranchCond(cond, label string) {
	e.Emit(cond, label)
}

// TestReg copies a register into the condition register.
func (e *Emitter) TestReg(reg int) {
	e.Emit("S0", Sreg(reg))
}

// BranchFalse jumps when a logical value is false. Truth is the
// sign bit, so false is a non negative word.
func (e *Emitter) BranchFalse(reg int, label string) {
	e.TestReg(reg)
	e.BranchCond(BrPlus, label)
}

// ArithIf branches three ways on the sign of the value in reg.
func (e *Emitter) ArithIf(reg int, neg, zero, pos string) {
	e.TestReg(reg)
	e.BranchCond(BrMinus, neg)
	e.BranchCond(BrZero, zero)
	e.Branch(pos)
}

// DoTrip computes the trip count (lim-init+incr)/incr and pushes the
// three word loop frame: current value, increment, trip count. For a
// real valued loop variable the count is computed in floating point
// and truncated.
func (e *Emitter) DoTrip(init, lim, incr int, real bool) error {
	trip, err := e.S.Get()
	if err != nil {
		return err
	}
	e.Sub(trip, lim, init, real)
	e.Add(trip, trip, incr, real)
	if real {
		e.DivFlt(trip, trip, incr)
		e.FltToInt(trip, trip)
	} else {
		e.DivInt(trip, trip, incr)
	}
	e.Push(trip)
	e.Push(incr)
	e.Push(init)
	e.S.Free(trip)
	return nil
}

// Loop frame slots relative to the stack pointer.
const (
	doCurrent = 0
	doIncr    = 1
	doTrips   = 2
)

// DoTest exits the loop when the remaining trip count is not
// positive. Emitted at the loop head so a zero trip loop still
// skips its body.
func (e *Emitter) DoTest(end string) error {
	reg, err := e.S.Get()
	if err != nil {
		return err
	}
	e.Emit(Sreg(reg), fmt.Sprintf("%d,A7", doTrips))
	e.TestReg(reg)
	e.BranchCond(BrZero, end)
	e.BranchCond(BrMinus, end)
	e.S.Free(reg)
	return nil
}

// DoIncr advances the loop: step the current value, decrement the
// trip slot and branch back while trips remain. The loop head
// refreshes the loop variable from the frame.
func (e *Emitter) DoIncr(back, end string, real bool) error {
	cur, err := e.S.Get()
	if err != nil {
		return err
	}
	step, err := e.S.Get()
	if err != nil {
		e.S.Free(cur)
		return err
	}
	e.Emit(Sreg(cur), fmt.Sprintf("%d,A7", doCurrent))
	e.Emit(Sreg(step), fmt.Sprintf("%d,A7", doIncr))
	e.Add(cur, cur, step, real)
	e.Emit(fmt.Sprintf("%d,A7", doCurrent), Sreg(cur))
	e.Emit(Sreg(cur), fmt.Sprintf("%d,A7", doTrips))
	e.LoadConst(step, 1)
	e.Sub(cur, cur, step, false)
	e.Emit(fmt.Sprintf("%d,A7", doTrips), Sreg(cur))
	e.TestReg(cur)
	e.BranchCond(BrZero, end)
	e.BranchCond(BrMinus, end)
	e.Branch(back)
	e.S.Free(step)
	e.S.Free(cur)
	return nil
}

// DoDrop releases the loop frame at loop exit.
func (e *Emitter) DoDrop() {
	e.DropStack(3)
}

// DoCurrent loads the loop's current value slot.
func (e *Emitter) DoCurrent(reg int) {
	e.Emit(Sreg(reg), fmt.Sprintf("%d,A7", doCurrent))
}

// ComputedGoto emits a bounds checked indexed branch through a data
// section table of code labels. The selector is one based.
func (e *Emitter) ComputedGoto(reg int, labels []string) error {
	fall := e.NewLabel()
	table := e.NewLabel()
	for i, lbl := range labels {
		in := Inst{Result: "CON", Operand: lbl}
		if i == 0 {
			in.Label = table
		}
		e.Data(in)
	}

	e.TestReg(reg)
	e.BranchCond(BrZero, fall)
	e.BranchCond(BrMinus, fall)
	lim, err := e.S.Get()
	if err != nil {
		return err
	}
	e.LoadConst(lim, uint64(len(labels)))
	e.Sub(0, lim, reg, false)
	e.S.Free(lim)
	e.BranchCond(BrMinus, fall)

	base, err := e.A.Get()
	if err != nil {
		return err
	}
	idx, err := e.A.Get()
	if err != nil {
		e.A.Free(base)
		return err
	}
	e.Emit(Areg(base), table)
	e.MoveSA(idx, reg)
	e.Emit(Areg(base), fmt.Sprintf("A%d+A%d", base, idx))
	e.Emit(Areg(base), baseDisp(Areg(base), -1))
	e.Emit(Areg(idx), fmt.Sprintf("0,A%d", base))
	e.Emit("B01", Areg(idx))
	e.Emit("J", "B01")
	e.A.Free(idx)
	e.A.Free(base)
	e.Define(fall)
	return nil
}

// AssignLabel stores the machine address of a code label into an
// integer variable for a later assigned GOTO.
func (e *Emitter) AssignLabel(label string, dst Ref) error {
	areg, err := e.A.Get()
	if err != nil {
		return err
	}
	reg, err := e.S.Get()
	if err != nil {
		e.A.Free(areg)
		return err
	}
	e.Emit(Areg(areg), label)
	e.MoveAS(reg, areg)
	e.A.Free(areg)
	err = e.StoreWord(reg, dst)
	e.S.Free(reg)
	return err
}

// AssignedGoto jumps indirect through the label address held in an
// integer variable.
func (e *Emitter) AssignedGoto(src Ref) error {
	reg, err := e.S.Get()
	if err != nil {
		return err
	}
	areg, err := e.A.Get()
	if err != nil {
		e.S.Free(reg)
		return err
	}
	if err = e.LoadWord(reg, src); err != nil {
		return err
	}
	e.MoveSA(areg, reg)
	e.Emit("B01", Areg(areg))
	e.Emit("J", "B01")
	e.A.Free(areg)
	e.S.Free(reg)
	return nil
}

// LoadFrame loads a word addressed directly off the frame pointer.
// Used for dope vector entries and loop frames.
func (e *Emitter) LoadFrame(reg, off int) {
	e.Emit(Sreg(reg), fmt.Sprintf("%d,A6", off))
}

// BoundsLabel returns the unit's subscript fault label, creating it
// on first use.
func (e *Emitter) BoundsLabel() string {
	if e.bndLabel == "" {
		e.bndLabel = e.NewLabel()
	}
	return e.bndLabel
}

// BoundsStub emits the subscript fault stub if any check referenced
// it. Called once before the epilog.
func (e *Emitter) BoundsStub() {
	if e.bndLabel != "" {
		e.Define(e.bndLabel)
		e.Call(PrimBndErr)
		e.bndLabel = ""
	}
}

// FormatData queues a FORMAT specification string under a line
// label's generated name.
func (e *Emitter) FormatData(label, spec string) {
	e.Data(Inst{Label: label, Result: "DATA", Operand: "'" + spec + "'"})
}

// Words of the formatted I/O stack frame.
const ioFrame = 4

// IOBegin opens the I/O frame: the unit number and the format
// specifier, a label address or a character descriptor.
func (e *Emitter) IOBegin(unitReg, fmtReg int) {
	e.Emit("A7", fmt.Sprintf("A7-%d", ioFrame))
	e.Emit("0,A7", Sreg(unitReg))
	e.Emit("1,A7", Sreg(fmtReg))
}

// IOFormatLabel loads a format label address as a descriptor word.
func (e *Emitter) IOFormatLabel(dst int, label string) error {
	areg, err := e.A.Get()
	if err != nil {
		return err
	}
	e.Emit(Areg(areg), label)
	e.MoveAS(dst, areg)
	e.A.Free(areg)
	return nil
}

// IOItem formats one list element: the ordinal and the element's
// address go to the conversion routine.
func (e *Emitter) IOItem(read bool, ordinal int, addr int) error {
	reg, err := e.S.Get()
	if err != nil {
		return err
	}
	e.LoadConst(reg, uint64(int64(ordinal)))
	name := PrimOutFmt
	if read {
		name = PrimInFmt
	}
	e.CallPrim(name, 7, reg, addr)
	e.S.Free(reg)
	return nil
}

// IOEnd flushes the record and drops the I/O frame.
func (e *Emitter) IOEnd() {
	e.Call(PrimEndFmt)
	e.Emit("A7", fmt.Sprintf("A7+%d", ioFrame))
}
