/*
 * FTN77 - Symbol table
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
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/rcornwell/ftn77/ftn/types"
)

// Errors shared with the statement handlers.
var (
	ErrDoubleDefinition   = errors.New("double definition")
	ErrInvalidEquivalence = errors.New("invalid equivalence")
)

// Symbol table for one compilation. Symbols live in maps keyed by
// qualified upper case identifier, with an explicit insertion order
// chain so the layout passes iterate deterministically. Labels,
// common blocks and intrinsics keep their own maps.
type Table struct {
	syms map[string]*Symbol
	head *Symbol
	tail *Symbol

	labels    map[int]*LineLabel
	commons   map[string]*Common
	comOrder  []*Common
	intrinsic map[string]*Symbol

	implicit     [26]types.BaseType
	implicitNone bool

	qualifier string
	labelSeq  int

	// After the layout passes run, symbols created by executable
	// references are placed immediately and the cursors keep
	// growing; the prolog reads the final frame size through a
	// forward referenced data word.
	AutoStatic   bool // New locals allocate statically.
	autoLive     bool
	autoCursor   int
	staticLive   bool
	staticCursor int
}

func NewTable() *Table {
	t := &Table{
		syms:      map[string]*Symbol{},
		labels:    map[int]*LineLabel{},
		commons:   map[string]*Common{},
		intrinsic: map[string]*Symbol{},
	}
	t.ResetImplicit()
	loadIntrinsics(t)
	return t
}

// SetQualifier selects the current program unit scope.
func (t *Table) SetQualifier(name string) {
	t.qualifier = strings.ToUpper(name)
}

func (t *Table) Qualifier() string {
	return t.qualifier
}

// ResetImplicit restores the default implicit typing: I-N integer,
// everything else real.
func (t *Table) ResetImplicit() {
	t.implicitNone = false
	for i := range t.implicit {
		t.implicit[i] = types.Real
	}
	for by := 'I'; by <= 'N'; by++ {
		t.implicit[by-'A'] = types.Integer
	}
}

// SetImplicit sets the implicit type for a range of letters.
func (t *Table) SetImplicit(from, to byte, bt types.BaseType) error {
	if from < 'A' || from > 'Z' || to < 'A' || to > 'Z' || from > to {
		return errors.Errorf("bad implicit range %c-%c", from, to)
	}
	for by := from; by <= to; by++ {
		t.implicit[by-'A'] = bt
	}
	return nil
}

// SetImplicitNone forbids implicitly typed references.
func (t *Table) SetImplicitNone() {
	t.implicitNone = true
	for i := range t.implicit {
		t.implicit[i] = types.Undefined
	}
}

// ImplicitType returns the default type for an identifier.
func (t *Table) ImplicitType(name string) types.BaseType {
	if name == "" {
		return types.Undefined
	}
	by := name[0]
	if by < 'A' || by > 'Z' {
		return types.Undefined
	}
	return t.implicit[by-'A']
}

func (t *Table) key(qualifier, name string) string {
	if qualifier == "" {
		return strings.ToUpper(name)
	}
	return strings.ToUpper(qualifier) + "." + strings.ToUpper(name)
}

// Register creates a symbol in the current scope. Returns nil if the
// identifier is already present and live; a tombstoned node is
// revived with the new class.
func (t *Table) Register(name string, class Class) *Symbol {
	key := t.key(t.qualifier, name)
	sym, ok := t.syms[key]
	if ok {
		if !sym.isDeleted {
			return nil
		}
		sym.isDeleted = false
		sym.Class = class
		sym.Type = types.DataType{}
		sym.Offset = 0
		sym.Placed = false
		return sym
	}
	sym = &Symbol{Name: strings.ToUpper(name), Qualifier: t.qualifier, Class: class}
	t.syms[key] = sym
	if t.tail == nil {
		t.head = sym
	} else {
		t.tail.next = sym
	}
	t.tail = sym
	return sym
}

// Find looks a symbol up: current qualifier first, then the default
// scope. A shadow installed for statement function expansion hides
// the real binding.
func (t *Table) Find(name string) *Symbol {
	sym, ok := t.syms[t.key(t.qualifier, name)]
	if !ok && t.qualifier != "" {
		sym, ok = t.syms[t.key("", name)]
	}
	if !ok || sym.isDeleted {
		return nil
	}
	if sym.shadow != nil {
		return sym.shadow
	}
	return sym
}

// Reference finds a symbol or creates it with the implicit type.
// New symbols default to Auto class; once layout has run they are
// placed on the spot and the frame keeps growing.
func (t *Table) Reference(name string) (*Symbol, error) {
	sym := t.Find(name)
	if sym != nil {
		return sym, nil
	}
	bt := t.ImplicitType(name)
	if bt == types.Undefined && t.implicitNone {
		return nil, errors.Errorf("symbol %s has no type and IMPLICIT NONE is set", name)
	}
	class := ClassAuto
	if t.AutoStatic {
		class = ClassStatic
	}
	sym = t.Register(name, class)
	sym.Type = types.Scalar(bt)
	sym.SetSize()
	t.PlaceLocal(sym)
	return sym, nil
}

// PlaceLocal assigns storage to a local created after the layout
// passes have run. Before layout it does nothing; the passes will
// pick the symbol up.
func (t *Table) PlaceLocal(sym *Symbol) {
	if sym.Placed {
		return
	}
	switch sym.Class {
	case ClassAuto:
		if t.autoLive {
			t.autoCursor += sym.Size
			sym.Offset = -t.autoCursor
			sym.Placed = true
		}
	case ClassStatic:
		if t.staticLive {
			sym.Offset = t.staticCursor
			t.staticCursor += sym.Size
			sym.Placed = true
		}
	}
}

// FrameSize returns the unit frame size in words after layout.
func (t *Table) FrameSize() int {
	return t.autoCursor
}

// StaticSize returns the static block size in words after layout.
func (t *Table) StaticSize() int {
	return t.staticCursor
}

// Intrinsic looks up a predefined function name.
func (t *Table) Intrinsic(name string) *Symbol {
	return t.intrinsic[strings.ToUpper(name)]
}

// Shadow installs a replacement binding for the duration of a
// statement function expansion.
func (t *Table) Shadow(name string, repl *Symbol) {
	sym, ok := t.syms[t.key(t.qualifier, name)]
	if !ok {
		// Shadow with no prior binding registers the replacement.
		t.syms[t.key(t.qualifier, name)] = repl
		return
	}
	sym.shadow = repl
}

// RemoveShadow restores the prior meaning of a name.
func (t *Table) RemoveShadow(name string) {
	sym, ok := t.syms[t.key(t.qualifier, name)]
	if ok {
		if sym.shadow != nil {
			sym.shadow = nil
		} else {
			delete(t.syms, t.key(t.qualifier, name))
		}
	}
}

// Delete tombstones a symbol.
func (t *Table) Delete(name string) {
	sym, ok := t.syms[t.key(t.qualifier, name)]
	if ok {
		sym.isDeleted = true
	}
}

// Walk calls fn over the insertion order chain.
func (t *Table) Walk(fn func(*Symbol)) {
	for sym := t.head; sym != nil; sym = sym.next {
		if !sym.isDeleted {
			fn(sym)
		}
	}
}

// EndUnit destroys the per unit symbols and labels. Common block
// descriptors persist so later units extend the same blocks.
func (t *Table) EndUnit() {
	t.syms = map[string]*Symbol{}
	t.head = nil
	t.tail = nil
	t.labels = map[int]*LineLabel{}
	t.qualifier = ""
	t.ResetImplicit()
	t.AutoStatic = false
	t.autoLive = false
	t.autoCursor = 0
	t.staticLive = false
	t.staticCursor = 0
}

// --- Labels ---

// NewLocalLabel generates a fresh assembler local label.
func (t *Table) NewLocalLabel() string {
	t.labelSeq++
	return fmt.Sprintf("L%06d", t.labelSeq)
}

// RefLabel returns the line label record, creating a forward
// reference when the label has not been defined yet.
func (t *Table) RefLabel(number int) *LineLabel {
	lbl, ok := t.labels[number]
	if !ok {
		lbl = &LineLabel{Number: number, CalLabel: t.NewLocalLabel(), ForwardRef: true}
		t.labels[number] = lbl
	}
	lbl.Used = true
	return lbl
}

// DefineLabel marks a line label as defined at the current point.
func (t *Table) DefineLabel(number int) (*LineLabel, error) {
	lbl, ok := t.labels[number]
	if !ok {
		lbl = &LineLabel{Number: number, CalLabel: t.NewLocalLabel()}
		t.labels[number] = lbl
		return lbl, nil
	}
	if !lbl.ForwardRef {
		return nil, errors.Wrapf(ErrDoubleDefinition, "label %d", number)
	}
	lbl.ForwardRef = false
	return lbl, nil
}

// FindLabel returns a label record without creating one.
func (t *Table) FindLabel(number int) *LineLabel {
	return t.labels[number]
}

// Unresolved returns the numbers of labels still carrying a forward
// reference. Called at END.
func (t *Table) Unresolved() []int {
	bad := []int{}
	for num, lbl := range t.labels {
		if lbl.ForwardRef {
			bad = append(bad, num)
		}
	}
	return bad
}

// --- Common blocks ---

// RefCommon returns the named block, creating it on first sight.
// The placement cursor restarts at zero for each program unit; the
// limit survives as the high water mark across units.
func (t *Table) RefCommon(name string) *Common {
	name = strings.ToUpper(name)
	blk, ok := t.commons[name]
	if !ok {
		blk = &Common{Name: name, CalLabel: "C%" + name}
		t.commons[name] = blk
		t.comOrder = append(t.comOrder, blk)
	}
	return blk
}

// Commons returns the blocks in first reference order.
func (t *Table) Commons() []*Common {
	return t.comOrder
}

// ResetCommons restarts every block cursor and member list for a new
// program unit. The limit persists as the cross unit high water mark.
func (t *Table) ResetCommons() {
	for _, blk := range t.comOrder {
		blk.Cursor = 0
		blk.Members = nil
	}
}
