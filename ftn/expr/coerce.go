/*
 * FTN77 - Operator type coercion
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
	"github.com/pkg/errors"

	scan "github.com/rcornwell/ftn77/ftn/scanner"
	"github.com/rcornwell/ftn77/ftn/types"
)

// Type mismatch across an operator.
var ErrTypeMismatch = errors.New("type mismatch")

// Operator groups driving the coercion rules.
func isArith(id int) bool {
	switch id {
	case scan.OpAdd, scan.OpSub, scan.OpMul, scan.OpDiv, scan.OpPow:
		return true
	}
	return false
}

func isLogicalOp(id int) bool {
	switch id {
	case scan.OpAnd, scan.OpOr, scan.OpEqv, scan.OpNeqv:
		return true
	}
	return false
}

func isRelational(id int) bool {
	switch id {
	case scan.OpEq, scan.OpNe, scan.OpLt, scan.OpLe, scan.OpGt, scan.OpGe:
		return true
	}
	return false
}

// Numeric widening order.
func arithRank(bt types.BaseType) int {
	switch bt {
	case types.Integer:
		return 1
	case types.Real:
		return 2
	case types.Double:
		return 3
	case types.Complex:
		return 4
	}
	return 0
}

func rankType(rank int) types.BaseType {
	switch rank {
	case 1:
		return types.Integer
	case 2:
		return types.Real
	case 3:
		return types.Double
	case 4:
		return types.Complex
	}
	return types.Undefined
}

// resultType computes the result base type of a binary operator from
// its operand types, or fails when the combination is illegal. The
// compareType result is the common type operands coerce to before a
// relational compare; for everything else it equals the result.
func resultType(id int, lt, rt types.BaseType) (types.BaseType, types.BaseType, error) {
	switch {
	case id == scan.OpConcat:
		if lt != types.Character || rt != types.Character {
			return 0, 0, errors.Wrap(ErrTypeMismatch, "// requires character operands")
		}
		return types.Character, types.Character, nil

	case isArith(id):
		lr, rr := arithRank(lt), arithRank(rt)
		if lr == 0 || rr == 0 {
			return 0, 0, errors.Wrapf(ErrTypeMismatch,
				"%s and %s in arithmetic", lt, rt)
		}
		res := rankType(max(lr, rr))
		return res, res, nil

	case isLogicalOp(id):
		if lt == types.Logical && rt == types.Logical {
			return types.Logical, types.Logical, nil
		}
		// Logical with integer is a bitwise operation.
		okL := lt == types.Logical || lt == types.Integer
		okR := rt == types.Logical || rt == types.Integer
		if okL && okR {
			return types.Integer, types.Integer, nil
		}
		return 0, 0, errors.Wrapf(ErrTypeMismatch, "%s and %s in logical operation", lt, rt)

	case isRelational(id):
		if lt == types.Character && rt == types.Character {
			return types.Logical, types.Character, nil
		}
		if lt == types.Pointer || rt == types.Pointer {
			okL := lt == types.Pointer || lt == types.Integer
			okR := rt == types.Pointer || rt == types.Integer
			if okL && okR {
				return types.Logical, types.Integer, nil
			}
			return 0, 0, errors.Wrapf(ErrTypeMismatch, "%s compared with %s", lt, rt)
		}
		lr, rr := arithRank(lt), arithRank(rt)
		if lr == 0 || rr == 0 {
			return 0, 0, errors.Wrapf(ErrTypeMismatch, "%s compared with %s", lt, rt)
		}
		return types.Logical, rankType(max(lr, rr)), nil
	}
	return 0, 0, errors.Wrapf(ErrTypeMismatch, "operator %d", id)
}

// Unary operator result.
func unaryType(id int, at types.BaseType) (types.BaseType, error) {
	switch id {
	case scan.OpPlus, scan.OpNeg:
		if arithRank(at) == 0 {
			return 0, errors.Wrapf(ErrTypeMismatch, "unary sign on %s", at)
		}
		return at, nil
	case scan.OpNot:
		if at == types.Logical || at == types.Integer {
			return at, nil
		}
		return 0, errors.Wrapf(ErrTypeMismatch, ".NOT. on %s", at)
	}
	return 0, errors.Wrapf(ErrTypeMismatch, "unary operator %d", id)
}
