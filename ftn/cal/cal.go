/*
 * FTN77 - CAL instruction formatter
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

package cal

import (
	"fmt"
	"hash/fnv"
	"io"
	"strings"

	"github.com/rcornwell/ftn77/ftn/regs"
	"github.com/rcornwell/ftn77/ftn/symbols"
	"github.com/rcornwell/ftn77/util/octal"
)

// Longest name the linker's symbol table accepts.
const maxName = 8

// Column positions for the three line fields. Labels occupy the
// first eight columns; an unlabelled instruction starts at the
// result field.
const (
	resultCol  = 9
	operandCol = 19
)

// One CAL line: an optional location label, the result field and the
// operand field. CAL expresses most operations as an assignment to
// the result field, so "S1" with operand "S2+S3" is an add.
type Inst struct {
	Label   string
	Result  string
	Operand string
}

// Emitter writes CAL text for one object file. Data section lines
// are collected during code emission and flushed before END.
type Emitter struct {
	w        io.Writer
	S        *regs.Bank
	A        *regs.Bank
	tbl      *symbols.Table
	data     []Inst
	unit     string
	bndLabel string
}

func NewEmitter(w io.Writer, tbl *symbols.Table) *Emitter {
	return &Emitter{
		w:   w,
		S:   regs.NewSBank(),
		A:   regs.NewABank(),
		tbl: tbl,
	}
}

// Table exposes the symbol table for the expression evaluator.
func (e *Emitter) Table() *symbols.Table {
	return e.tbl
}

// Map a source identifier to its CAL spelling: underscores become
// percent signs, and names over the linker limit are rewritten with
// a 16 bit FNV-1a tail to stay unique.
func MapName(name string) string {
	name = strings.ReplaceAll(name, "_", "%")
	if len(name) <= maxName {
		return name
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	sum := h.Sum32()
	hash := (sum >> 16) ^ (sum & 0xFFFF)
	return fmt.Sprintf("%s%04X", name[:maxName-4], hash)
}

// External entry name: visible symbols carry the @ prefix.
func ExtName(name string) string {
	return "@" + MapName(name)
}

// Print formats one line. Labels longer than the field run into the
// result column separator but stay on one line.
func (e *Emitter) Print(in Inst) {
	var line strings.Builder
	line.WriteString(in.Label)
	for line.Len() < resultCol {
		line.WriteByte(' ')
	}
	if in.Label != "" && line.Len() > resultCol {
		line.WriteByte(' ')
	}
	line.WriteString(in.Result)
	if in.Operand != "" {
		for line.Len() < operandCol {
			line.WriteByte(' ')
		}
		if line.Len() > operandCol {
			line.WriteByte(' ')
		}
		line.WriteString(in.Operand)
	}
	fmt.Fprintln(e.w, line.String())
}

// Emit prints an unlabelled instruction.
func (e *Emitter) Emit(result, operand string) {
	e.Print(Inst{Result: result, Operand: operand})
}

// EmitLabel prints a labelled instruction.
func (e *Emitter) EmitLabel(label, result, operand string) {
	e.Print(Inst{Label: label, Result: result, Operand: operand})
}

// Comment writes a comment line into the object text.
func (e *Emitter) Comment(text string) {
	fmt.Fprintln(e.w, "* "+text)
}

// Data queues an instruction for the unit's data section.
func (e *Emitter) Data(in Inst) {
	e.data = append(e.data, in)
}

// Ident brackets the start of a program unit module.
func (e *Emitter) Ident(name string) {
	e.unit = MapName(name)
	e.Emit("IDENT", e.unit)
	e.Emit("SECTION", "CODE")
}

// FlushData closes the code section and writes the collected data
// section, then the END directive.
func (e *Emitter) FlushData() {
	e.Emit("SECTION", "*")
	if len(e.data) > 0 {
		e.Emit("SECTION", "DATA")
		for _, in := range e.data {
			e.Print(in)
		}
		e.Emit("SECTION", "*")
		e.data = nil
	}
	e.Emit("END", "")
}

// StaticLabel names the unit's static data block.
func (e *Emitter) StaticLabel() string {
	return "D%" + e.unit
}

// FrameLabel names the word holding the unit's frame size.
func (e *Emitter) FrameLabel() string {
	return "F%" + e.unit
}

// NewLabel allocates a fresh local label.
func (e *Emitter) NewLabel() string {
	return e.tbl.NewLocalLabel()
}

// Define places a local label on the next line.
func (e *Emitter) Define(label string) {
	e.Print(Inst{Label: label, Result: "=", Operand: "*"})
}

// Sreg and Areg format register names.
func Sreg(reg int) string {
	return fmt.Sprintf("S%d", reg)
}

func Areg(reg int) string {
	return fmt.Sprintf("A%d", reg)
}

// Const formats a 64 bit word for an operand field. Small values
// print in decimal, wide ones in octal.
func Const(word uint64) string {
	if v := int64(word); v > -1000000 && v < 1000000 {
		return fmt.Sprintf("%d", v)
	}
	var str strings.Builder
	octal.FormatConst(&str, word)
	return str.String()
}

// Disp formats a signed word displacement.
func Disp(off int) string {
	var str strings.Builder
	octal.FormatDisp(&str, off)
	return str.String()
}
