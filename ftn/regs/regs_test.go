/*
 * FTN77 - Register allocator test cases.
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
	"errors"
	"testing"
)

func TestInitialMasks(t *testing.T) {
	s := NewSBank()
	if s.InUse() != 0x81 {
		t.Errorf("S bank init 0x81 got %02X", s.InUse())
	}
	a := NewABank()
	if a.InUse() != 0xE3 {
		t.Errorf("A bank init 0xE3 got %02X", a.InUse())
	}
}

func TestReservedNeverAllocated(t *testing.T) {
	s := NewSBank()
	seen := map[int]bool{}
	for {
		reg, err := s.Get()
		if err != nil {
			break
		}
		seen[reg] = true
	}
	if seen[0] || seen[7] {
		t.Errorf("reserved register handed out: %v", seen)
	}
	if len(seen) != 6 {
		t.Errorf("6 allocatable S registers got %d", len(seen))
	}
}

func TestBalancedRoundTrip(t *testing.T) {
	s := NewSBank()
	regsHeld := []int{}
	for i := 0; i < 4; i++ {
		reg, err := s.Get()
		if err != nil {
			t.Fatalf("alloc %d failed: %v", i, err)
		}
		regsHeld = append(regsHeld, reg)
	}
	for _, reg := range regsHeld {
		s.Free(reg)
	}
	if s.InUse() != 0x81 {
		t.Errorf("bitmap did not return to 0x81, got %02X", s.InUse())
	}

	a := NewABank()
	r1, _ := a.Get()
	r2, _ := a.Get()
	a.Free(r2)
	a.Free(r1)
	if a.InUse() != 0xE3 {
		t.Errorf("A bitmap did not return to 0xE3, got %02X", a.InUse())
	}
}

func TestFreedIsNextAllocated(t *testing.T) {
	s := NewSBank()
	r1, _ := s.Get()
	_, _ = s.Get()
	s.Free(r1)
	r3, _ := s.Get()
	if r3 != r1 {
		t.Errorf("most recently freed %d not reallocated, got %d", r1, r3)
	}
}

func TestExhaustion(t *testing.T) {
	s := NewSBank()
	for i := 0; i < 6; i++ {
		if _, err := s.Get(); err != nil {
			t.Fatalf("alloc %d failed early: %v", i, err)
		}
	}
	_, err := s.Get()
	if !errors.Is(err, ErrAllRegistersAllocated) {
		t.Errorf("expected exhaustion error, got %v", err)
	}
}

func TestSaveMask(t *testing.T) {
	s := NewSBank()
	r1, _ := s.Get()
	r2, _ := s.Get()
	mask := s.SaveMask(Bit(r2))
	if mask != Bit(r1) {
		t.Errorf("save mask %02X got %02X", Bit(r1), mask)
	}
}
