/*
 * FTN77 - Per unit layout epilogue: dope vectors and DATA images
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
	"github.com/pkg/errors"

	"github.com/rcornwell/ftn77/ftn/cal"
	scan "github.com/rcornwell/ftn77/ftn/scanner"
	"github.com/rcornwell/ftn77/ftn/symbols"
)

// emitDopeInit fills the dope vector of every adjustable array after
// layout: the base address from the argument slot, then per
// dimension the lower bound and the element stride.
func (p *Parser) emitDopeInit() {
	for _, slot := range p.adjSlots {
		sym := slot.sym
		trees := p.adjBounds[sym]

		reg, err := p.emit.S.Get()
		if err != nil {
			p.error(err)
			return
		}

		// Base address from the argument slot.
		p.emit.LoadFrame(reg, slot.argOffset)
		p.storeFrame(reg, sym.Offset)

		// Running stride in elements.
		stride, err := p.emit.S.Get()
		if err != nil {
			p.error(err)
			return
		}
		p.emit.LoadConst(stride, 1)

		for i, pair := range trees {
			lowReg, err := p.boundReg(pair[0], 1)
			if err != nil {
				p.error(err)
				return
			}
			p.storeFrame(lowReg, sym.Offset+1+2*i)
			p.storeFrame(stride, sym.Offset+2+2*i)

			// Extend the stride unless this was the final dimension.
			if i+1 < len(trees) && pair[1] != nil {
				upReg, err := p.boundReg(pair[1], 1)
				if err != nil {
					p.error(err)
					return
				}
				p.emit.Sub(upReg, upReg, lowReg, false)
				one, oerr := p.emit.S.Get()
				if oerr != nil {
					p.error(oerr)
					return
				}
				p.emit.LoadConst(one, 1)
				p.emit.Add(upReg, upReg, one, false)
				p.emit.S.Free(one)
				p.emit.MulInt(stride, stride, upReg)
				p.emit.S.Free(upReg)
			}
			p.emit.S.Free(lowReg)
		}
		p.emit.S.Free(stride)
		p.emit.S.Free(reg)
	}
}

// boundReg evaluates a dimension bound expression, defaulting a
// missing bound.
func (p *Parser) boundReg(tree *scan.Token, def int64) (int, error) {
	if tree == nil {
		reg, err := p.emit.S.Get()
		if err != nil {
			return 0, err
		}
		p.emit.LoadConst(reg, uint64(def))
		return reg, nil
	}
	a, err := p.ev.Eval(tree)
	if err != nil {
		return 0, err
	}
	return p.ev.LoadInteger(&a)
}

// storeFrame stores a register directly off the frame pointer.
func (p *Parser) storeFrame(reg, off int) {
	p.emit.Emit(cal.Disp(off)+",A6", cal.Sreg(reg))
}

// emitDataInits converts the queued DATA word images into absolute
// offsets now that layout has run. Static images merge into the
// unit's static block; common images are emitted with their block.
func (p *Parser) emitDataInits() {
	p.staticImage = map[int]uint64{}
	p.commonImages = map[string]map[int]uint64{}

	for _, init := range p.inits {
		switch init.sym.Class {
		case symbols.ClassStatic:
			p.staticImage[init.sym.Offset+init.offset] = init.word

		case symbols.ClassGlobal:
			if init.sym.Block == nil {
				p.error(errors.Errorf("%s has no common block", init.sym.Name))
				continue
			}
			img := p.commonImages[init.sym.Block.Name]
			if img == nil {
				img = map[int]uint64{}
				p.commonImages[init.sym.Block.Name] = img
			}
			img[init.sym.Offset+init.offset] = init.word

		default:
			p.error(errors.Errorf("DATA for %s which is not statically allocated", init.sym.Name))
		}
	}
	p.inits = nil
}
