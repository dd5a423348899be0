/*
 * FTN77 - Storage layout passes
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

// Byte extent of an equivalence chain from its representative.
func chainExtent(rep *Symbol) int {
	extent := 0
	for m := rep; m != nil; m = m.EquivNext {
		end := m.EquivOffset + m.Type.ByteSize()
		if end > extent {
			extent = end
		}
	}
	return extent
}

// Place the unplaced members of a chain relative to an anchor member
// whose word offset is already known.
func placeChain(anchor *Symbol) error {
	rep := anchor.Rep()
	anchorByte := anchor.Offset*8 - anchor.EquivOffset
	for m := rep; m != nil; m = m.EquivNext {
		if m.Placed {
			continue
		}
		byteOff := anchorByte + m.EquivOffset
		if byteOff < 0 {
			return errors.Wrapf(ErrInvalidEquivalence,
				"%s extends storage backwards", m.Name)
		}
		if m.Type.Base == types.Character {
			m.Offset = byteOff / 8
			m.Type.FirstChrOffset = byteOff % 8
		} else {
			if byteOff%8 != 0 {
				return errors.Wrapf(ErrInvalidEquivalence,
					"%s is not word aligned", m.Name)
			}
			m.Offset = byteOff / 8
		}
		m.Placed = true
	}
	return nil
}

// LayoutCommon places common block members in declaration order, then
// resolves their equivalence chains and tracks each block's high
// water mark.
func (t *Table) LayoutCommon() error {
	// First sub-pass: placement in COMMON statement order.
	for _, blk := range t.comOrder {
		for _, sym := range blk.Members {
			if sym.Placed {
				continue
			}
			sym.Offset = blk.Cursor
			blk.Cursor += sym.Size
			sym.Placed = true
		}
	}

	// Second sub-pass: equivalence successors.
	var err error
	t.Walk(func(sym *Symbol) {
		if err != nil || sym.Class != ClassGlobal || !sym.Placed {
			return
		}
		if sym.EquivRep != nil || sym.EquivNext != nil {
			err = placeChain(sym)
		}
	})
	if err != nil {
		return err
	}

	// High water marks.
	t.Walk(func(sym *Symbol) {
		if sym.Class != ClassGlobal || !sym.Placed || sym.Block == nil {
			return
		}
		end := sym.Offset + sym.Type.WordSize()
		if end > sym.Block.Limit {
			sym.Block.Limit = end
		}
	})
	return nil
}

// LayoutStatic places statically allocated locals against the module
// static cursor. Returns the static block size in words.
func (t *Table) LayoutStatic() (int, error) {
	cursor := 0
	var err error
	t.Walk(func(sym *Symbol) {
		if err != nil || sym.Class != ClassStatic || sym.Placed {
			return
		}
		if sym.EquivRep != nil {
			// Successors place with their representative.
			return
		}
		if sym.EquivNext != nil {
			sym.Offset = cursor
			sym.Placed = true
			cursor += (chainExtent(sym) + 7) / 8
			err = placeChain(sym)
			return
		}
		sym.Offset = cursor
		sym.Placed = true
		cursor += sym.Size
	})
	t.staticLive = true
	t.staticCursor = cursor
	return cursor, err
}

// LayoutAuto places stack locals. Adjustable array dope vectors come
// first, then scalars and arrays; finally every offset is rebased to
// a negative displacement from the frame pointer. Returns the frame
// size in words.
func (t *Table) LayoutAuto() (int, error) {
	cursor := 0
	var err error

	// Dope vectors for adjustable arrays: rank*2+1 words each.
	t.Walk(func(sym *Symbol) {
		if sym.Class != ClassAdjustable || sym.Placed {
			return
		}
		sym.Size = sym.Type.Rank*2 + 1
		sym.Offset = cursor
		sym.Placed = true
		cursor += sym.Size
	})

	t.Walk(func(sym *Symbol) {
		if err != nil || sym.Placed {
			return
		}
		// The function result slot shares the frame with locals.
		if sym.Class != ClassAuto && sym.Class != ClassFunction {
			return
		}
		if sym.EquivRep != nil {
			return
		}
		if sym.EquivNext != nil {
			sym.Offset = cursor
			sym.Placed = true
			cursor += (chainExtent(sym) + 7) / 8
			err = placeChain(sym)
			return
		}
		sym.Offset = cursor
		sym.Placed = true
		cursor += sym.Size
	})
	if err != nil {
		return 0, err
	}

	// Rebase to negative frame displacements.
	t.Walk(func(sym *Symbol) {
		switch sym.Class {
		case ClassAuto, ClassAdjustable, ClassFunction:
			if sym.Placed {
				sym.Offset -= cursor
			}
		}
	})
	t.autoLive = true
	t.autoCursor = cursor
	return cursor, nil
}
