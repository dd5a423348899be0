/*
 * FTN77 - Intrinsic function table
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

type intrinsicDef struct {
	result  types.BaseType
	rtnName string // Runtime entry, empty for inline generation.
}

// Predefined functions. Loaded once at startup and never mutated.
var intrinsicMap = map[string]intrinsicDef{
	"ABS":    {types.Real, "_absf"},
	"IABS":   {types.Integer, "_absi"},
	"DABS":   {types.Double, "_absf"},
	"MOD":    {types.Integer, "_modi"},
	"AMOD":   {types.Real, "_modf"},
	"DMOD":   {types.Double, "_modf"},
	"SIGN":   {types.Real, "_signf"},
	"ISIGN":  {types.Integer, "_signi"},
	"DIM":    {types.Real, "_dimf"},
	"IDIM":   {types.Integer, "_dimi"},
	"SQRT":   {types.Real, "_sqrt"},
	"DSQRT":  {types.Double, "_sqrt"},
	"EXP":    {types.Real, "_exp"},
	"DEXP":   {types.Double, "_exp"},
	"ALOG":   {types.Real, "_log"},
	"DLOG":   {types.Double, "_log"},
	"ALOG10": {types.Real, "_log10"},
	"DLOG10": {types.Double, "_log10"},
	"SIN":    {types.Real, "_sin"},
	"DSIN":   {types.Double, "_sin"},
	"COS":    {types.Real, "_cos"},
	"DCOS":   {types.Double, "_cos"},
	"TAN":    {types.Real, "_tan"},
	"DTAN":   {types.Double, "_tan"},
	"ATAN":   {types.Real, "_atan"},
	"DATAN":  {types.Double, "_atan"},
	"ATAN2":  {types.Real, "_atan2"},
	"DATAN2": {types.Double, "_atan2"},
	"TANH":   {types.Real, "_tanh"},
	"INT":    {types.Integer, ""},
	"IFIX":   {types.Integer, ""},
	"IDINT":  {types.Integer, ""},
	"REAL":   {types.Real, ""},
	"FLOAT":  {types.Real, ""},
	"SNGL":   {types.Real, ""},
	"DBLE":   {types.Double, ""},
	"CMPLX":  {types.Complex, "_cmplx"},
	"AIMAG":  {types.Real, "_aimag"},
	"CONJG":  {types.Complex, "_conjg"},
	"AINT":   {types.Real, "_aint"},
	"ANINT":  {types.Real, "_anint"},
	"NINT":   {types.Integer, "_nint"},
	"ICHAR":  {types.Integer, "_ichar"},
	"CHAR":   {types.Character, "_char"},
	"LEN":    {types.Integer, "_lenstr"},
	"INDEX":  {types.Integer, "_indstr"},
	"LGE":    {types.Logical, "_cmpstr"},
	"LGT":    {types.Logical, "_cmpstr"},
	"LLE":    {types.Logical, "_cmpstr"},
	"LLT":    {types.Logical, "_cmpstr"},
	"MAX":    {types.Integer, "_maxi"},
	"MAX0":   {types.Integer, "_maxi"},
	"AMAX1":  {types.Real, "_maxf"},
	"DMAX1":  {types.Double, "_maxf"},
	"MIN":    {types.Integer, "_mini"},
	"MIN0":   {types.Integer, "_mini"},
	"AMIN1":  {types.Real, "_minf"},
	"DMIN1":  {types.Double, "_minf"},
	"LOC":    {types.Pointer, ""},
}

// Populate the intrinsic map of a new table.
func loadIntrinsics(t *Table) {
	for name, def := range intrinsicMap {
		sym := &Symbol{
			Name:    name,
			Class:   ClassIntrinsic,
			Type:    types.Scalar(def.result),
			RtnName: def.rtnName,
		}
		t.intrinsic[name] = sym
	}
}
