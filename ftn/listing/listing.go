/*
 * FTN77 - Compilation listing
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

package listing

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	scan "github.com/rcornwell/ftn77/ftn/scanner"
	"github.com/rcornwell/ftn77/ftn/symbols"
)

// One diagnostic against a source line.
type ErrEntry struct {
	Line int
	Msg  string
	Warn bool
}

// ErrList accumulates a program unit's diagnostics. It satisfies
// error, so a failed compilation hands the whole list back to the
// driver.
type ErrList []ErrEntry

func (e ErrList) Error() string {
	l := make([]string, 0, len(e))
	for _, d := range e {
		l = append(l, d.String())
	}
	return strings.Join(l, "\n")
}

func (d ErrEntry) String() string {
	tag := "*ERROR*"
	if d.Warn {
		tag = "*WARNING*"
	}
	return fmt.Sprintf("line %d: %s %s", d.Line, tag, d.Msg)
}

// Counts splits the list into error and warning totals.
func (e ErrList) Counts() (int, int) {
	errs, warns := 0, 0
	for _, d := range e {
		if d.Warn {
			warns++
		} else {
			errs++
		}
	}
	return errs, warns
}

const (
	pageLines = 55
	cpuLabel  = "CRAY X-MP"
	compiler  = "FTN77"
	version   = "1.0"
)

// Listing paginates source echo lines, diagnostics and the end of
// unit symbol table. A nil writer suppresses all output; errors
// still go to the error stream.
type Listing struct {
	w    io.Writer
	errW io.Writer
	line int
	page int
	now  time.Time
}

func New(w io.Writer) *Listing {
	return &Listing{w: w, errW: os.Stderr, now: time.Now()}
}

// NewWith pins the error stream and clock, mainly for tests.
func NewWith(w, errW io.Writer, now time.Time) *Listing {
	return &Listing{w: w, errW: errW, now: now}
}

// put writes one listing line, breaking pages as needed.
func (l *Listing) put(text string) {
	if l.w == nil {
		return
	}
	if l.line%pageLines == 0 {
		l.page++
		if l.page > 1 {
			fmt.Fprint(l.w, "\f")
		}
		fmt.Fprintf(l.w, "%-12s %s %s   %s %s   PAGE %d\n\n",
			cpuLabel, compiler, version,
			l.now.Format("01/02/06"), l.now.Format("15:04:05"), l.page)
		l.line = 2
	}
	fmt.Fprintln(l.w, text)
	l.line++
}

// Echo prints a statement's source cards with the line number of the
// first card.
func (l *Listing) Echo(stmt *scan.Stmt) {
	for i, card := range stmt.Cards {
		if i == 0 {
			l.put(fmt.Sprintf("%5d  %s", stmt.Line, card))
		} else {
			l.put(fmt.Sprintf("       %s", card))
		}
	}
}

// Error annotates the listing beneath the offending statement. The
// diagnostic itself lives in the unit's ErrList until END.
func (l *Listing) Error(msg string) {
	l.put(fmt.Sprintf("*ERROR*   %s", msg))
}

// Warning annotates the listing beneath the offending statement.
func (l *Listing) Warning(msg string) {
	l.put(fmt.Sprintf("*WARNING* %s", msg))
}

// Report writes a unit's accumulated diagnostics to the error
// stream. Called once per program unit at END.
func (l *Listing) Report(list ErrList) {
	for _, d := range list {
		fmt.Fprintln(l.errW, d.String())
	}
}

// Summary prints the end of compilation totals.
func (l *Listing) Summary(errs, warns int) {
	l.put("")
	l.put(fmt.Sprintf("%d errors, %d warnings", errs, warns))
}

// SymbolTable appends the unit's symbols at END: name, class, type
// and relative address.
func (l *Listing) SymbolTable(tbl *symbols.Table) {
	if l.w == nil {
		return
	}
	rows := []string{}
	tbl.Walk(func(sym *symbols.Symbol) {
		if sym.Class == symbols.ClassUndefined {
			return
		}
		rows = append(rows, fmt.Sprintf("  %-8s %-8s %-10s %6d",
			sym.Name, sym.Class, sym.Type.Base, sym.Offset))
	})
	if len(rows) == 0 {
		return
	}
	sort.Strings(rows)
	l.put("")
	l.put("  NAME     CLASS    TYPE       ADDRESS")
	for _, row := range rows {
		l.put(row)
	}
}
