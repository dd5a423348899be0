/*
 * FTN77 - Data type test cases.
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
	"math"
	"testing"
)

func TestWordSize(t *testing.T) {
	cases := []struct {
		name string
		dt   DataType
		want int
	}{
		{"integer scalar", Scalar(Integer), 1},
		{"real scalar", Scalar(Real), 1},
		{"double scalar", Scalar(Double), 1},
		{"complex scalar", Scalar(Complex), 2},
		{"char 8", CharType(8), 1},
		{"char 9", CharType(9), 2},
		{"char 1", CharType(1), 1},
		{"int array", DataType{Base: Integer, Rank: 1, Bounds: []Bound{{1, 10}}}, 10},
		{"complex array", DataType{Base: Complex, Rank: 1, Bounds: []Bound{{1, 3}}}, 6},
		{"char array", DataType{Base: Character, Constraint: 3, Rank: 1, Bounds: []Bound{{1, 5}}}, 2},
		{"two dims", DataType{Base: Real, Rank: 2, Bounds: []Bound{{1, 4}, {0, 4}}}, 20},
	}
	for _, c := range cases {
		if got := c.dt.WordSize(); got != c.want {
			t.Errorf("%s: size %d got %d", c.name, c.want, got)
		}
	}
}

func TestCheck(t *testing.T) {
	bad := DataType{Base: Integer, FirstChrOffset: 3}
	if bad.Check() == nil {
		t.Errorf("non character offset not rejected")
	}
	bad = DataType{Base: Real, Rank: 1, Bounds: []Bound{{5, 2}}}
	if bad.Check() == nil {
		t.Errorf("inverted bounds not rejected")
	}
	good := DataType{Base: Character, Constraint: 8, FirstChrOffset: 3}
	if err := good.Check(); err != nil {
		t.Errorf("valid character type rejected: %v", err)
	}
}

func TestValueTags(t *testing.T) {
	v := IntValue(42)
	if _, ok := v.Float(); ok {
		t.Errorf("integer read as float")
	}
	if n, ok := v.Int(); !ok || n != 42 {
		t.Errorf("integer did not round trip, got %d %v", n, ok)
	}

	r := RealValue(1.5)
	if _, ok := r.Int(); ok {
		t.Errorf("real read as integer")
	}
	if f, ok := r.Float(); !ok || f != 1.5 {
		t.Errorf("real did not round trip, got %f %v", f, ok)
	}
}

func TestValueConvert(t *testing.T) {
	v := IntValue(3)
	r, ok := v.Convert(Real)
	if !ok {
		t.Fatalf("integer to real failed")
	}
	if f, _ := r.Float(); f != 3.0 {
		t.Errorf("convert value 3.0 got %f", f)
	}

	f := RealValue(2.75)
	i, ok := f.Convert(Integer)
	if !ok {
		t.Fatalf("real to integer failed")
	}
	if n, _ := i.Int(); n != 2 {
		t.Errorf("truncation 2 got %d", n)
	}

	c := CharValue("AB")
	if _, ok := c.Convert(Integer); ok {
		t.Errorf("character converted to integer")
	}
}

func TestValueBits(t *testing.T) {
	v := RealValue(1.0)
	if v.Bits() != math.Float64bits(1.0) {
		t.Errorf("real bits wrong")
	}
	l := LogValue(true)
	if l.Bits() != 0xFFFFFFFFFFFFFFFF {
		t.Errorf("true must be all ones, got %x", l.Bits())
	}
	l = LogValue(false)
	if l.Bits() != 0 {
		t.Errorf("false must be zero, got %x", l.Bits())
	}
}
