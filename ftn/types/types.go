/*
 * FTN77 - FORTRAN data types
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

package types

import (
	"github.com/pkg/errors"
)

// Base type of a symbol or expression value. All numeric types
// occupy one 64 bit word except Complex which takes two. Character
// is a packed byte string described by the DataType length fields.
type BaseType int

const (
	Undefined BaseType = iota
	Character
	Logical
	Integer
	Real
	Double
	Complex
	Label
	Pointer
)

// Length constraint values with special meaning.
const (
	LenDefault = 0  // CHARACTER with no *n.
	LenAssumed = -1 // CHARACTER*(*).
)

// Maximum array rank.
const MaxRank = 7

var typeNames = map[BaseType]string{
	Undefined: "UNDEFINED",
	Character: "CHARACTER",
	Logical:   "LOGICAL",
	Integer:   "INTEGER",
	Real:      "REAL",
	Double:    "DOUBLE",
	Complex:   "COMPLEX",
	Label:     "LABEL",
	Pointer:   "POINTER",
}

func (bt BaseType) String() string {
	name, ok := typeNames[bt]
	if !ok {
		return "UNDEFINED"
	}
	return name
}

// Numeric reports whether arithmetic operators apply to the type.
func (bt BaseType) Numeric() bool {
	switch bt {
	case Integer, Real, Double, Complex:
		return true
	}
	return false
}

// Bounds of one array dimension.
type Bound struct {
	Lower int
	Upper int
}

// Full type of a symbol: base type, character length, packing offset
// and array shape.
type DataType struct {
	Base           BaseType
	Constraint     int   // Character length; LenDefault or LenAssumed.
	FirstChrOffset int   // Byte offset of first character within word, 0..7.
	Rank           int   // 0 for scalar.
	Bounds         []Bound
}

// Scalar returns the DataType for a simple scalar of base type bt.
func Scalar(bt BaseType) DataType {
	return DataType{Base: bt}
}

// CharType returns the DataType of a character scalar of given length.
func CharType(length int) DataType {
	return DataType{Base: Character, Constraint: length}
}

// Check validates the internal consistency rules.
func (dt *DataType) Check() error {
	if dt.Rank < 0 || dt.Rank > MaxRank {
		return errors.Errorf("rank %d out of range", dt.Rank)
	}
	if dt.Rank != len(dt.Bounds) {
		return errors.Errorf("rank %d does not match %d bounds", dt.Rank, len(dt.Bounds))
	}
	for i, b := range dt.Bounds {
		if b.Lower > b.Upper {
			return errors.Errorf("dimension %d lower bound %d above upper %d", i+1, b.Lower, b.Upper)
		}
	}
	if dt.Base != Character && dt.FirstChrOffset != 0 {
		return errors.Errorf("non character type with character offset %d", dt.FirstChrOffset)
	}
	if dt.Base != Character && dt.Constraint != 0 {
		return errors.Errorf("non character type with length %d", dt.Constraint)
	}
	return nil
}

// Elements returns the total element count over all dimensions.
// A scalar counts as one element.
func (dt *DataType) Elements() int {
	count := 1
	for _, b := range dt.Bounds {
		count *= b.Upper - b.Lower + 1
	}
	return count
}

// Len returns the character length, treating default as one.
func (dt *DataType) Len() int {
	if dt.Base != Character {
		return 0
	}
	if dt.Constraint <= 0 {
		return 1
	}
	return dt.Constraint
}

// WordSize returns the storage size in 64 bit words. Characters pack
// eight to a word; complex values take two words per element.
func (dt *DataType) WordSize() int {
	elems := dt.Elements()
	switch dt.Base {
	case Character:
		return (dt.Len()*elems + 7) / 8
	case Complex:
		return 2 * elems
	default:
		return elems
	}
}

// ByteSize returns the storage size in bytes for character types
// and words times eight for everything else.
func (dt *DataType) ByteSize() int {
	if dt.Base == Character {
		return dt.Len() * dt.Elements()
	}
	return dt.WordSize() * 8
}
