/*
 * FTN77 - Equivalence chains
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

package symbols

import (
	"github.com/pkg/errors"

	"github.com/rcornwell/ftn77/ftn/types"
)

// Link records that element aOff bytes into a occupies the same
// address as element bOff bytes into b. Chains merge under the
// lowest address member, which becomes the representative. Storage
// classes promote Auto -> Static -> Global; a Global member claims
// the whole chain for its common block.
func Link(a *Symbol, aOff int, b *Symbol, bOff int) error {
	repA := a.Rep()
	repB := b.Rep()

	// Offset of repB's first byte from repA's first byte.
	delta := a.EquivOffset + aOff - b.EquivOffset - bOff

	if repA == repB {
		if delta != 0 {
			return errors.Wrapf(ErrInvalidEquivalence,
				"%s and %s equated at conflicting offsets", a.Name, b.Name)
		}
		return nil
	}

	class, blk, err := mergeClass(repA, repB)
	if err != nil {
		return err
	}

	// Pull every member of B's chain into A's chain.
	members := []*Symbol{repB}
	for m := repB.EquivNext; m != nil; m = m.EquivNext {
		members = append(members, m)
	}
	for _, m := range members {
		m.EquivOffset += delta
		m.EquivRep = repA
	}
	tail := repA
	for tail.EquivNext != nil {
		tail = tail.EquivNext
	}
	tail.EquivNext = repB

	// Rebase on the lowest offset member.
	rebase(repA)

	rep := a.Rep()
	setChainClass(rep, class, blk)
	return nil
}

// Combined storage class of two chains.
func mergeClass(a, b *Symbol) (Class, *Common, error) {
	ca, cb := chainClass(a), chainClass(b)
	if ca == ClassGlobal && cb == ClassGlobal {
		if blockOf(a) != blockOf(b) {
			return 0, nil, errors.Wrapf(ErrInvalidEquivalence,
				"%s and %s are in different common blocks", a.Name, b.Name)
		}
		return ClassGlobal, blockOf(a), nil
	}
	if ca == ClassGlobal {
		return ClassGlobal, blockOf(a), nil
	}
	if cb == ClassGlobal {
		return ClassGlobal, blockOf(b), nil
	}
	if ca == ClassStatic || cb == ClassStatic {
		return ClassStatic, nil, nil
	}
	return ClassAuto, nil, nil
}

func chainClass(rep *Symbol) Class {
	for m := rep; m != nil; m = m.EquivNext {
		if m.Class == ClassGlobal {
			return ClassGlobal
		}
	}
	for m := rep; m != nil; m = m.EquivNext {
		if m.Class == ClassStatic || m.Saved {
			return ClassStatic
		}
	}
	return ClassAuto
}

func blockOf(rep *Symbol) *Common {
	for m := rep; m != nil; m = m.EquivNext {
		if m.Block != nil {
			return m.Block
		}
	}
	return nil
}

// Rebase the chain so the representative is the member at the lowest
// byte offset and all offsets are relative to it.
func rebase(rep *Symbol) {
	low := rep
	for m := rep.EquivNext; m != nil; m = m.EquivNext {
		if m.EquivOffset < low.EquivOffset {
			low = m
		}
	}
	if low == rep && low.EquivOffset == 0 {
		return
	}
	base := low.EquivOffset
	// Rechain with low first, preserving the remaining order.
	members := []*Symbol{}
	for m := rep; m != nil; m = m.EquivNext {
		if m != low {
			members = append(members, m)
		}
	}
	low.EquivOffset = 0
	low.EquivRep = nil
	prev := low
	for _, m := range members {
		m.EquivOffset -= base
		m.EquivRep = low
		prev.EquivNext = m
		prev = m
	}
	prev.EquivNext = nil
}

// Propagate the merged storage class, and the common block if any,
// over the chain. Alignment is checked later, when offsets are placed.
func setChainClass(rep *Symbol, class Class, blk *Common) {
	for m := rep; m != nil; m = m.EquivNext {
		if m.Class == ClassAuto || m.Class == ClassStatic || m.Class == ClassGlobal {
			m.Class = class
			if blk != nil {
				m.Block = blk
			}
		}
	}
}

// CheckAlignment validates a chain once offsets are final. Non
// character members must start on a word boundary; character members
// record their byte position within the word.
func CheckAlignment(rep *Symbol) error {
	for m := rep; m != nil; m = m.EquivNext {
		if m.Type.Base == types.Character {
			continue
		}
		if m.EquivOffset%8 != 0 {
			return errors.Wrapf(ErrInvalidEquivalence,
				"%s is not word aligned in its equivalence group", m.Name)
		}
	}
	return nil
}
