/*
 * FTN77 - Constant folding
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

package expr

import (
	"math"

	"github.com/pkg/errors"

	scan "github.com/rcornwell/ftn77/ftn/scanner"
	"github.com/rcornwell/ftn77/ftn/types"
)

// Division by zero while folding constants.
var ErrConstantDivZero = errors.New("constant division by zero")

// Coerce a constant to the common operation type.
func foldConvert(v types.DataValue, to types.BaseType) (types.DataValue, error) {
	out, ok := v.Convert(to)
	if !ok {
		return types.DataValue{}, errors.Wrapf(ErrTypeMismatch, "constant %s to %s", v, to)
	}
	return out, nil
}

// foldBinary evaluates a binary operator over two constants. The
// operands have already been coerced to ct, the common type.
func foldBinary(id int, ct types.BaseType, l, r types.DataValue) (types.DataValue, error) {
	switch ct {
	case types.Integer:
		return foldInt(id, l, r)
	case types.Real, types.Double:
		return foldFloat(id, ct, l, r)
	case types.Complex:
		return foldComplex(id, l, r)
	case types.Logical:
		return foldLogical(id, l, r)
	case types.Character:
		return foldChar(id, l, r)
	}
	return types.DataValue{}, errors.Wrapf(ErrTypeMismatch, "fold %s", ct)
}

func foldInt(id int, lv, rv types.DataValue) (types.DataValue, error) {
	l, _ := lv.Int()
	r, _ := rv.Int()
	switch id {
	case scan.OpAdd:
		return types.IntValue(l + r), nil
	case scan.OpSub:
		return types.IntValue(l - r), nil
	case scan.OpMul:
		return types.IntValue(l * r), nil
	case scan.OpDiv:
		if r == 0 {
			return types.DataValue{}, ErrConstantDivZero
		}
		return types.IntValue(l / r), nil
	case scan.OpPow:
		return foldIntPow(l, r)
	case scan.OpAnd:
		return types.IntValue(l & r), nil
	case scan.OpOr:
		return types.IntValue(l | r), nil
	case scan.OpNeqv:
		return types.IntValue(l ^ r), nil
	case scan.OpEqv:
		return types.IntValue(^(l ^ r)), nil
	case scan.OpEq:
		return types.LogValue(l == r), nil
	case scan.OpNe:
		return types.LogValue(l != r), nil
	case scan.OpLt:
		return types.LogValue(l < r), nil
	case scan.OpLe:
		return types.LogValue(l <= r), nil
	case scan.OpGt:
		return types.LogValue(l > r), nil
	case scan.OpGe:
		return types.LogValue(l >= r), nil
	}
	return types.DataValue{}, errors.Wrapf(ErrTypeMismatch, "integer operator %d", id)
}

func foldIntPow(base, exp int64) (types.DataValue, error) {
	if exp < 0 {
		if base == 0 {
			return types.DataValue{}, ErrConstantDivZero
		}
		// Integer reciprocal truncates to zero except for one.
		switch base {
		case 1:
			return types.IntValue(1), nil
		case -1:
			if exp%2 == 0 {
				return types.IntValue(1), nil
			}
			return types.IntValue(-1), nil
		}
		return types.IntValue(0), nil
	}
	result := int64(1)
	for ; exp > 0; exp-- {
		result *= base
	}
	return types.IntValue(result), nil
}

func foldFloat(id int, ct types.BaseType, lv, rv types.DataValue) (types.DataValue, error) {
	l, _ := lv.Float()
	r, _ := rv.Float()
	mk := types.RealValue
	if ct == types.Double {
		mk = types.DoubleValue
	}
	switch id {
	case scan.OpAdd:
		return mk(l + r), nil
	case scan.OpSub:
		return mk(l - r), nil
	case scan.OpMul:
		return mk(l * r), nil
	case scan.OpDiv:
		if r == 0 {
			return types.DataValue{}, ErrConstantDivZero
		}
		return mk(l / r), nil
	case scan.OpPow:
		return mk(math.Pow(l, r)), nil
	case scan.OpEq:
		return types.LogValue(l == r), nil
	case scan.OpNe:
		return types.LogValue(l != r), nil
	case scan.OpLt:
		return types.LogValue(l < r), nil
	case scan.OpLe:
		return types.LogValue(l <= r), nil
	case scan.OpGt:
		return types.LogValue(l > r), nil
	case scan.OpGe:
		return types.LogValue(l >= r), nil
	}
	return types.DataValue{}, errors.Wrapf(ErrTypeMismatch, "real operator %d", id)
}

func foldComplex(id int, lv, rv types.DataValue) (types.DataValue, error) {
	l, _ := lv.Complex()
	r, _ := rv.Complex()
	switch id {
	case scan.OpAdd:
		return types.ComplexValue(l + r), nil
	case scan.OpSub:
		return types.ComplexValue(l - r), nil
	case scan.OpMul:
		return types.ComplexValue(l * r), nil
	case scan.OpDiv:
		if r == 0 {
			return types.DataValue{}, ErrConstantDivZero
		}
		return types.ComplexValue(l / r), nil
	case scan.OpEq:
		return types.LogValue(l == r), nil
	case scan.OpNe:
		return types.LogValue(l != r), nil
	}
	return types.DataValue{}, errors.Wrapf(ErrTypeMismatch, "complex operator %d", id)
}

func foldLogical(id int, lv, rv types.DataValue) (types.DataValue, error) {
	l, _ := lv.Logical()
	r, _ := rv.Logical()
	switch id {
	case scan.OpAnd:
		return types.LogValue(l && r), nil
	case scan.OpOr:
		return types.LogValue(l || r), nil
	case scan.OpEqv:
		return types.LogValue(l == r), nil
	case scan.OpNeqv:
		return types.LogValue(l != r), nil
	}
	return types.DataValue{}, errors.Wrapf(ErrTypeMismatch, "logical operator %d", id)
}

func foldChar(id int, lv, rv types.DataValue) (types.DataValue, error) {
	l, _ := lv.Char()
	r, _ := rv.Char()
	switch id {
	case scan.OpConcat:
		return types.CharValue(l + r), nil
	case scan.OpEq:
		return types.LogValue(l == r), nil
	case scan.OpNe:
		return types.LogValue(l != r), nil
	case scan.OpLt:
		return types.LogValue(l < r), nil
	case scan.OpLe:
		return types.LogValue(l <= r), nil
	case scan.OpGt:
		return types.LogValue(l > r), nil
	case scan.OpGe:
		return types.LogValue(l >= r), nil
	}
	return types.DataValue{}, errors.Wrapf(ErrTypeMismatch, "character operator %d", id)
}

// foldUnary evaluates a unary operator over a constant.
func foldUnary(id int, v types.DataValue) (types.DataValue, error) {
	switch id {
	case scan.OpPlus:
		return v, nil
	case scan.OpNeg:
		switch v.Tag() {
		case types.Integer:
			n, _ := v.Int()
			return types.IntValue(-n), nil
		case types.Real:
			f, _ := v.Float()
			return types.RealValue(-f), nil
		case types.Double:
			f, _ := v.Float()
			return types.DoubleValue(-f), nil
		case types.Complex:
			c, _ := v.Complex()
			return types.ComplexValue(-c), nil
		}
	case scan.OpNot:
		switch v.Tag() {
		case types.Logical:
			b, _ := v.Logical()
			return types.LogValue(!b), nil
		case types.Integer:
			n, _ := v.Int()
			return types.IntValue(^n), nil
		}
	}
	return types.DataValue{}, errors.Wrapf(ErrTypeMismatch, "unary fold of %s", v)
}
