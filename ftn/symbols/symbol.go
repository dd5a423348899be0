/*
 * FTN77 - Symbol definitions
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
	"github.com/rcornwell/ftn77/ftn/types"
)

// Storage and meaning class of a symbol.
type Class int

const (
	ClassUndefined Class = iota
	ClassProgram
	ClassSubroutine
	ClassFunction
	ClassBlockData
	ClassStmtFunction
	ClassIntrinsic
	ClassExternal
	ClassNamedCommon
	ClassAuto
	ClassStatic
	ClassAdjustable
	ClassGlobal
	ClassArgument
	ClassParameter
	ClassPointee
	ClassLabel
)

var className = map[Class]string{
	ClassUndefined:    "UNDEF",
	ClassProgram:      "PROGRAM",
	ClassSubroutine:   "SUBR",
	ClassFunction:     "FUNC",
	ClassBlockData:    "BLKDATA",
	ClassStmtFunction: "STMTFN",
	ClassIntrinsic:    "INTRIN",
	ClassExternal:     "EXTERN",
	ClassNamedCommon:  "COMMON",
	ClassAuto:         "AUTO",
	ClassStatic:       "STATIC",
	ClassAdjustable:   "ADJUST",
	ClassGlobal:       "GLOBAL",
	ClassArgument:     "ARG",
	ClassParameter:    "PARAM",
	ClassPointee:      "POINTEE",
	ClassLabel:        "LABEL",
}

func (c Class) String() string {
	name, ok := className[c]
	if !ok {
		return "UNDEF"
	}
	return name
}

// IsVariable reports whether the class denotes storage that the
// layout passes place.
func (c Class) IsVariable() bool {
	switch c {
	case ClassAuto, ClassStatic, ClassAdjustable, ClassGlobal, ClassArgument:
		return true
	}
	return false
}

// Named common block descriptor. Members lists the current unit's
// declaration order placement.
type Common struct {
	Name     string
	CalLabel string // Generated section label.
	Cursor   int    // Placement cursor in words.
	Limit    int    // High water mark over all program units.
	Members  []*Symbol
}

// One symbol. Equivalence members link through EquivNext with byte
// offsets measured from the chain representative.
type Symbol struct {
	Name      string
	Qualifier string
	Class     Class
	Type      types.DataType
	Size      int // Words.
	Offset    int // Displacement, meaning depends on class.
	Placed    bool

	Block   *Common         // Common block for ClassGlobal.
	InBlock bool            // Listed directly in a COMMON statement.
	Value   types.DataValue // Constant value for ClassParameter.
	Pointer *Symbol         // Pointer variable for ClassPointee.
	RtnName string          // Runtime entry for intrinsics and externals.
	Saved   bool            // SAVE forces the symbol static.

	// Statement function expansion.
	FnArgs []string
	FnBody string

	// Equivalence chain.
	EquivRep    *Symbol
	EquivNext   *Symbol
	EquivOffset int // Bytes from representative.

	shadow    *Symbol
	isDeleted bool
	next      *Symbol // Insertion order chain.
}

// Update the stored word size from the current type.
func (sym *Symbol) SetSize() {
	sym.Size = sym.Type.WordSize()
}

// Rep follows the equivalence chain to the representative.
func (sym *Symbol) Rep() *Symbol {
	if sym.EquivRep == nil {
		return sym
	}
	return sym.EquivRep
}

// Line label symbol. CalLabel is the generated assembler label;
// ForwardRef holds until the defining statement is seen.
type LineLabel struct {
	Number     int
	CalLabel   string
	ForwardRef bool
	IsFormat   bool
	Used       bool
}
