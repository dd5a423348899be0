/*
 * FTN77 - Register bank allocator
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

package regs

import (
	"github.com/pkg/errors"
)

// Fatal allocation failure. Running out of registers is a compiler
// defect, not a user error.
var ErrAllRegistersAllocated = errors.New("all registers allocated")

// Initial bitmaps. S0 is the condition register and S7 the return
// value register; A0 is hardwired zero, A1 is the scratch address
// register, A5 the static base, A6 the frame pointer and A7 the
// stack pointer.
const (
	SBankInit = 0x81
	ABankInit = 0xE3
)

// One eight register bank. Bits set in the map are in use; the
// cursor favours the most recently freed register so values stay
// close together.
type Bank struct {
	Name   byte // 'S' or 'A' for diagnostics.
	init   uint8
	inUse  uint8
	cursor int
}

func NewSBank() *Bank {
	return &Bank{Name: 'S', init: SBankInit, inUse: SBankInit, cursor: 1}
}

func NewABank() *Bank {
	return &Bank{Name: 'A', init: ABankInit, inUse: ABankInit, cursor: 2}
}

// Get allocates the first free register at or after the cursor.
func (b *Bank) Get() (int, error) {
	for i := 0; i < 8; i++ {
		reg := (b.cursor + i) % 8
		bit := uint8(1) << reg
		if b.inUse&bit == 0 {
			b.inUse |= bit
			b.cursor = (reg + 1) % 8
			return reg, nil
		}
	}
	return 0, errors.Wrapf(ErrAllRegistersAllocated, "%c bank", b.Name)
}

// Free releases a register and aims the cursor back at it.
func (b *Bank) Free(reg int) {
	bit := uint8(1) << reg
	if b.init&bit != 0 {
		// Reserved registers are never freed.
		return
	}
	b.inUse &^= bit
	b.cursor = reg
}

// Held reports whether a register is currently allocated.
func (b *Bank) Held(reg int) bool {
	return b.inUse&(uint8(1)<<reg) != 0
}

// InUse returns the current bitmap.
func (b *Bank) InUse() uint8 {
	return b.inUse
}

// SaveMask returns the allocatable registers currently held, minus
// an exclusion mask. This is the set a primitive call must preserve.
func (b *Bank) SaveMask(exclude uint8) uint8 {
	return (b.inUse &^ b.init) &^ exclude
}

// Reset restores the initial bitmap at the start of a program unit.
func (b *Bank) Reset() {
	b.inUse = b.init
	if b.Name == 'S' {
		b.cursor = 1
	} else {
		b.cursor = 2
	}
}

// Bit returns the mask bit for a register number.
func Bit(reg int) uint8 {
	return uint8(1) << reg
}
