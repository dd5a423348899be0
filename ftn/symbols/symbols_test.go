/*
 * FTN77 - Symbol table and layout test cases.
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
	"errors"
	"testing"

	"github.com/rcornwell/ftn77/ftn/types"
)

func intArray(n int) types.DataType {
	return types.DataType{Base: types.Integer, Rank: 1, Bounds: []types.Bound{{Lower: 1, Upper: n}}}
}

func TestRegisterAndFind(t *testing.T) {
	tbl := NewTable()
	tbl.SetQualifier("MAIN")

	sym := tbl.Register("X", ClassAuto)
	if sym == nil {
		t.Fatalf("register failed")
	}
	if tbl.Register("X", ClassAuto) != nil {
		t.Errorf("duplicate registration not rejected")
	}
	if tbl.Find("x") != sym {
		t.Errorf("case insensitive find failed")
	}

	tbl.Delete("X")
	if tbl.Find("X") != nil {
		t.Errorf("deleted symbol still found")
	}
	revived := tbl.Register("X", ClassStatic)
	if revived == nil || revived.Class != ClassStatic {
		t.Errorf("tombstone not revived")
	}
}

func TestImplicitTyping(t *testing.T) {
	tbl := NewTable()
	if tbl.ImplicitType("IOTA") != types.Integer {
		t.Errorf("I defaults integer")
	}
	if tbl.ImplicitType("X") != types.Real {
		t.Errorf("X defaults real")
	}
	if err := tbl.SetImplicit('A', 'C', types.Double); err != nil {
		t.Fatalf("set implicit: %v", err)
	}
	if tbl.ImplicitType("B1") != types.Double {
		t.Errorf("override not applied")
	}
	tbl.SetImplicitNone()
	if _, err := tbl.Reference("Q"); err == nil {
		t.Errorf("IMPLICIT NONE not enforced")
	}
}

func TestShadow(t *testing.T) {
	tbl := NewTable()
	tbl.SetQualifier("MAIN")
	orig := tbl.Register("X", ClassAuto)
	repl := &Symbol{Name: "X", Class: ClassAuto}

	tbl.Shadow("X", repl)
	if tbl.Find("X") != repl {
		t.Errorf("shadow not returned")
	}
	tbl.RemoveShadow("X")
	if tbl.Find("X") != orig {
		t.Errorf("original not restored")
	}
}

func TestLabels(t *testing.T) {
	tbl := NewTable()
	lbl := tbl.RefLabel(10)
	if !lbl.ForwardRef {
		t.Errorf("reference before definition must be forward")
	}
	def, err := tbl.DefineLabel(10)
	if err != nil || def != lbl {
		t.Fatalf("definition failed: %v", err)
	}
	if def.ForwardRef {
		t.Errorf("forward flag not cleared")
	}
	if _, err := tbl.DefineLabel(10); !errors.Is(err, ErrDoubleDefinition) {
		t.Errorf("double definition not rejected: %v", err)
	}

	tbl.RefLabel(20)
	bad := tbl.Unresolved()
	if len(bad) != 1 || bad[0] != 20 {
		t.Errorf("unresolved labels wrong: %v", bad)
	}
}

// REAL A(10), INTEGER B, EQUIVALENCE (A,B): B shares A's storage and
// does not extend the chain.
func TestEquivalenceOverlay(t *testing.T) {
	tbl := NewTable()
	tbl.SetQualifier("MAIN")

	a := tbl.Register("A", ClassAuto)
	a.Type = types.DataType{Base: types.Real, Rank: 1, Bounds: []types.Bound{{Lower: 1, Upper: 10}}}
	a.SetSize()
	b := tbl.Register("B", ClassAuto)
	b.Type = types.Scalar(types.Integer)
	b.SetSize()

	if err := Link(a, 0, b, 0); err != nil {
		t.Fatalf("link failed: %v", err)
	}
	frame, err := tbl.LayoutAuto()
	if err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	if frame != 10 {
		t.Errorf("frame 10 words got %d", frame)
	}
	if a.Offset != b.Offset {
		t.Errorf("A at %d B at %d, must share", a.Offset, b.Offset)
	}
}

func TestEquivalenceElementOffset(t *testing.T) {
	tbl := NewTable()
	tbl.SetQualifier("MAIN")

	a := tbl.Register("A", ClassAuto)
	a.Type = intArray(10)
	a.SetSize()
	b := tbl.Register("B", ClassAuto)
	b.Type = types.Scalar(types.Integer)
	b.SetSize()

	// EQUIVALENCE (A(3), B): B coincides with the third element.
	if err := Link(a, 2*8, b, 0); err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if _, err := tbl.LayoutAuto(); err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	if b.Offset != a.Offset+2 {
		t.Errorf("B at %d want %d", b.Offset, a.Offset+2)
	}
}

func TestEquivalenceCharacterPacking(t *testing.T) {
	tbl := NewTable()
	tbl.SetQualifier("MAIN")

	a := tbl.Register("A", ClassAuto)
	a.Type = types.CharType(16)
	a.SetSize()
	c := tbl.Register("C", ClassAuto)
	c.Type = types.CharType(4)
	c.SetSize()

	// C begins at character 4 of A: byte 3, mid word.
	if err := Link(a, 3, c, 0); err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if _, err := tbl.LayoutAuto(); err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	if c.Type.FirstChrOffset != 3 {
		t.Errorf("character offset 3 got %d", c.Type.FirstChrOffset)
	}
	if c.Offset != a.Offset {
		t.Errorf("C word %d want %d", c.Offset, a.Offset)
	}
}

func TestEquivalenceMisaligned(t *testing.T) {
	tbl := NewTable()
	tbl.SetQualifier("MAIN")

	a := tbl.Register("A", ClassAuto)
	a.Type = types.CharType(16)
	a.SetSize()
	b := tbl.Register("B", ClassAuto)
	b.Type = types.Scalar(types.Integer)
	b.SetSize()

	// An integer cannot sit at byte 3.
	if err := Link(a, 3, b, 0); err != nil {
		t.Fatalf("link failed: %v", err)
	}
	_, err := tbl.LayoutAuto()
	if !errors.Is(err, ErrInvalidEquivalence) {
		t.Errorf("misalignment not rejected: %v", err)
	}
}

func TestEquivalenceConflictingBlocks(t *testing.T) {
	tbl := NewTable()
	tbl.SetQualifier("MAIN")

	b1 := tbl.RefCommon("B1")
	b2 := tbl.RefCommon("B2")

	x := tbl.Register("X", ClassGlobal)
	x.Type = types.Scalar(types.Real)
	x.SetSize()
	x.Block = b1
	y := tbl.Register("Y", ClassGlobal)
	y.Type = types.Scalar(types.Real)
	y.SetSize()
	y.Block = b2

	if err := Link(x, 0, y, 0); !errors.Is(err, ErrInvalidEquivalence) {
		t.Errorf("cross block equivalence not rejected: %v", err)
	}
}

func TestEquivalencePromotion(t *testing.T) {
	tbl := NewTable()
	tbl.SetQualifier("MAIN")

	blk := tbl.RefCommon("B")
	g := tbl.Register("G", ClassGlobal)
	g.Type = types.Scalar(types.Real)
	g.SetSize()
	g.Block = blk
	g.InBlock = true
	blk.Members = append(blk.Members, g)

	v := tbl.Register("V", ClassAuto)
	v.Type = types.Scalar(types.Real)
	v.SetSize()

	if err := Link(g, 0, v, 0); err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if v.Class != ClassGlobal {
		t.Errorf("chain member not promoted to common, class %s", v.Class)
	}
	if v.Block != blk {
		t.Errorf("promoted member lost its block")
	}
}

func TestAutoLayoutNegative(t *testing.T) {
	tbl := NewTable()
	tbl.SetQualifier("MAIN")

	i := tbl.Register("I", ClassAuto)
	i.Type = types.Scalar(types.Integer)
	i.SetSize()
	x := tbl.Register("X", ClassAuto)
	x.Type = intArray(5)
	x.SetSize()

	frame, err := tbl.LayoutAuto()
	if err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	if frame != 6 {
		t.Errorf("frame 6 got %d", frame)
	}
	if i.Offset != -6 {
		t.Errorf("I at -6 got %d", i.Offset)
	}
	if x.Offset != -5 {
		t.Errorf("X at -5 got %d", x.Offset)
	}
}

func TestLateReferenceGrowsFrame(t *testing.T) {
	tbl := NewTable()
	tbl.SetQualifier("MAIN")

	i := tbl.Register("I", ClassAuto)
	i.Type = types.Scalar(types.Integer)
	i.SetSize()
	if _, err := tbl.LayoutAuto(); err != nil {
		t.Fatalf("layout failed: %v", err)
	}

	x, err := tbl.Reference("X")
	if err != nil {
		t.Fatalf("reference failed: %v", err)
	}
	if !x.Placed || x.Offset != -2 {
		t.Errorf("late symbol not placed at -2: placed=%v offset=%d", x.Placed, x.Offset)
	}
	if tbl.FrameSize() != 2 {
		t.Errorf("frame grew to 2 got %d", tbl.FrameSize())
	}
}

// Two units referencing /B/ leave a single block whose limit is the
// larger of the two shapes.
func TestCommonHighWater(t *testing.T) {
	tbl := NewTable()

	// First unit: COMMON /B/ X(100), Y
	tbl.SetQualifier("U1")
	blk := tbl.RefCommon("B")
	x := tbl.Register("X", ClassGlobal)
	x.Type = types.DataType{Base: types.Real, Rank: 1, Bounds: []types.Bound{{Lower: 1, Upper: 100}}}
	x.SetSize()
	x.Block = blk
	x.InBlock = true
	blk.Members = append(blk.Members, x)
	y := tbl.Register("Y", ClassGlobal)
	y.Type = types.Scalar(types.Real)
	y.SetSize()
	y.Block = blk
	y.InBlock = true
	blk.Members = append(blk.Members, y)

	if err := tbl.LayoutCommon(); err != nil {
		t.Fatalf("layout 1: %v", err)
	}
	if x.Offset != 0 || y.Offset != 100 {
		t.Errorf("placement wrong: X %d Y %d", x.Offset, y.Offset)
	}
	tbl.EndUnit()

	// Second unit: COMMON /B/ U(50), V(51)
	tbl.SetQualifier("U2")
	tbl.ResetCommons()
	blk2 := tbl.RefCommon("B")
	if blk2 != blk {
		t.Fatalf("block descriptor not shared across units")
	}
	u := tbl.Register("U", ClassGlobal)
	u.Type = types.DataType{Base: types.Real, Rank: 1, Bounds: []types.Bound{{Lower: 1, Upper: 50}}}
	u.SetSize()
	u.Block = blk2
	u.InBlock = true
	blk2.Members = append(blk2.Members, u)
	v := tbl.Register("V", ClassGlobal)
	v.Type = types.DataType{Base: types.Real, Rank: 1, Bounds: []types.Bound{{Lower: 1, Upper: 51}}}
	v.SetSize()
	v.Block = blk2
	v.InBlock = true
	blk2.Members = append(blk2.Members, v)

	if err := tbl.LayoutCommon(); err != nil {
		t.Fatalf("layout 2: %v", err)
	}
	if blk.Limit != 101 {
		t.Errorf("high water 101 got %d", blk.Limit)
	}
}

func TestAdjustableDopeFirst(t *testing.T) {
	tbl := NewTable()
	tbl.SetQualifier("S")

	adj := tbl.Register("A", ClassAdjustable)
	adj.Type = types.DataType{Base: types.Real, Rank: 2, Bounds: []types.Bound{{Lower: 1, Upper: 1}, {Lower: 1, Upper: 1}}}
	loc := tbl.Register("L", ClassAuto)
	loc.Type = types.Scalar(types.Integer)
	loc.SetSize()

	frame, err := tbl.LayoutAuto()
	if err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	// Dope vector is rank*2+1 = 5 words plus the local.
	if frame != 6 {
		t.Errorf("frame 6 got %d", frame)
	}
	if adj.Offset != -6 {
		t.Errorf("dope vector first at -6 got %d", adj.Offset)
	}
}

// Byte extents of distinct symbols in one region never overlap.
func TestNoOverlap(t *testing.T) {
	tbl := NewTable()
	tbl.SetQualifier("MAIN")

	syms := []*Symbol{}
	for _, name := range []string{"A", "B", "C", "D"} {
		sym := tbl.Register(name, ClassAuto)
		sym.Type = intArray(3)
		sym.SetSize()
		syms = append(syms, sym)
	}
	if _, err := tbl.LayoutAuto(); err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	for i, a := range syms {
		for _, b := range syms[i+1:] {
			aLo, aHi := a.Offset*8, a.Offset*8+a.Size*8
			bLo, bHi := b.Offset*8, b.Offset*8+b.Size*8
			if aLo < bHi && bLo < aHi {
				t.Errorf("%s [%d,%d) overlaps %s [%d,%d)", a.Name, aLo, aHi, b.Name, bLo, bHi)
			}
		}
	}
}
