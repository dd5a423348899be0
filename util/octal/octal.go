/*
 * FTN77 - Octal formatting for CAL output
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

package octal

import "strings"

var octMap = "01234567"

// Format a full 64 bit word as 22 octal digits.
func FormatWord(str *strings.Builder, word uint64) {
	shift := 63
	str.WriteByte(octMap[(word>>shift)&1])
	for shift >= 3 {
		shift -= 3
		str.WriteByte(octMap[(word>>shift)&7])
	}
}

// Format a word constant with leading zeros suppressed. CAL octal
// constants carry the O' prefix.
func FormatConst(str *strings.Builder, word uint64) {
	str.WriteString("O'")
	if word == 0 {
		str.WriteByte('0')
		str.WriteByte('\'')
		return
	}
	digits := []byte{}
	for word != 0 {
		digits = append(digits, octMap[word&7])
		word >>= 3
	}
	for i := len(digits) - 1; i >= 0; i-- {
		str.WriteByte(digits[i])
	}
	str.WriteByte('\'')
}

// Format a 24 bit parcel address, 8 octal digits.
func FormatParcel(str *strings.Builder, addr uint32) {
	shift := 21
	for shift >= 0 {
		str.WriteByte(octMap[(addr>>shift)&7])
		shift -= 3
	}
}

// Format a signed word displacement as a decimal string. Negative
// displacements keep their sign so frame offsets read naturally.
func FormatDisp(str *strings.Builder, disp int) {
	if disp < 0 {
		str.WriteByte('-')
		disp = -disp
	}
	if disp == 0 {
		str.WriteByte('0')
		return
	}
	digits := []byte{}
	for disp != 0 {
		digits = append(digits, byte('0'+disp%10))
		disp /= 10
	}
	for i := len(digits) - 1; i >= 0; i-- {
		str.WriteByte(digits[i])
	}
}
