/*
 * FTN77 - Constant values
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
	"strconv"
)

// A constant value tagged with its base type. The tag is checked on
// every read so a value can never be pulled out as the wrong member.
type DataValue struct {
	tag     BaseType
	intVal  int64
	logVal  bool
	fltVal  float64
	chrVal  string
	cpxVal  complex128
}

func IntValue(v int64) DataValue {
	return DataValue{tag: Integer, intVal: v}
}

func LogValue(v bool) DataValue {
	return DataValue{tag: Logical, logVal: v}
}

func RealValue(v float64) DataValue {
	return DataValue{tag: Real, fltVal: v}
}

func DoubleValue(v float64) DataValue {
	return DataValue{tag: Double, fltVal: v}
}

func CharValue(v string) DataValue {
	return DataValue{tag: Character, chrVal: v}
}

func ComplexValue(v complex128) DataValue {
	return DataValue{tag: Complex, cpxVal: v}
}

// LabelValue carries a label number as a typed constant.
func LabelValue(v int64) DataValue {
	return DataValue{tag: Label, intVal: v}
}

func (v *DataValue) Tag() BaseType {
	return v.tag
}

func (v *DataValue) Int() (int64, bool) {
	if v.tag != Integer && v.tag != Label {
		return 0, false
	}
	return v.intVal, true
}

func (v *DataValue) Logical() (bool, bool) {
	if v.tag != Logical {
		return false, false
	}
	return v.logVal, true
}

func (v *DataValue) Float() (float64, bool) {
	if v.tag != Real && v.tag != Double {
		return 0, false
	}
	return v.fltVal, true
}

func (v *DataValue) Char() (string, bool) {
	if v.tag != Character {
		return "", false
	}
	return v.chrVal, true
}

func (v *DataValue) Complex() (complex128, bool) {
	if v.tag != Complex {
		return 0, false
	}
	return v.cpxVal, true
}

// Convert returns the value coerced to the target base type. The
// second result is false when no conversion exists.
func (v *DataValue) Convert(to BaseType) (DataValue, bool) {
	if v.tag == to {
		return *v, true
	}
	switch to {
	case Integer:
		switch v.tag {
		case Real, Double:
			return IntValue(int64(v.fltVal)), true
		case Logical:
			if v.logVal {
				return IntValue(-1), true
			}
			return IntValue(0), true
		}
	case Real:
		switch v.tag {
		case Integer:
			return RealValue(float64(v.intVal)), true
		case Double:
			return RealValue(v.fltVal), true
		}
	case Double:
		switch v.tag {
		case Integer:
			return DoubleValue(float64(v.intVal)), true
		case Real:
			return DoubleValue(v.fltVal), true
		}
	case Complex:
		switch v.tag {
		case Integer:
			return ComplexValue(complex(float64(v.intVal), 0)), true
		case Real, Double:
			return ComplexValue(complex(v.fltVal, 0)), true
		}
	case Logical:
		if v.tag == Integer {
			return LogValue(v.intVal != 0), true
		}
	}
	return DataValue{}, false
}

// Bits returns the 64 bit machine word image of a scalar constant.
// The truthy convention for logicals is the sign bit.
func (v *DataValue) Bits() uint64 {
	switch v.tag {
	case Integer, Label:
		return uint64(v.intVal)
	case Logical:
		if v.logVal {
			return 0xFFFFFFFFFFFFFFFF
		}
		return 0
	case Real, Double:
		return math.Float64bits(v.fltVal)
	}
	return 0
}

// IsZero reports whether a numeric constant is zero.
func (v *DataValue) IsZero() bool {
	switch v.tag {
	case Integer:
		return v.intVal == 0
	case Real, Double:
		return v.fltVal == 0
	case Complex:
		return v.cpxVal == 0
	}
	return false
}

func (v DataValue) String() string {
	switch v.tag {
	case Integer, Label:
		return strconv.FormatInt(v.intVal, 10)
	case Logical:
		if v.logVal {
			return ".TRUE."
		}
		return ".FALSE."
	case Real, Double:
		return strconv.FormatFloat(v.fltVal, 'G', -1, 64)
	case Character:
		return "'" + v.chrVal + "'"
	case Complex:
		re := strconv.FormatFloat(real(v.cpxVal), 'G', -1, 64)
		im := strconv.FormatFloat(imag(v.cpxVal), 'G', -1, 64)
		return "(" + re + "," + im + ")"
	}
	return "?"
}
