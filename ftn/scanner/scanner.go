/*
 * FTN77 - Fixed form source reader
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

package scanner

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"unicode"
)

// Maximum significant card length. Columns beyond 72 are sequence
// numbers and ignored; anything past the buffer limit is dropped.
const (
	cardLimit  = 72
	bufferLimit = 132
)

// One logical statement assembled from an initial card and its
// continuations.
type Stmt struct {
	Label int      // Statement label from columns 1-5, 0 if none.
	Text  string   // Body with insignificant blanks squeezed out.
	Line  int      // Source line number of the initial card.
	Cards []string // Raw card images for the listing echo.
}

// Card scanner over a fixed form source stream.
type Scanner struct {
	reader  *bufio.Reader
	line    int
	pending string // Lookahead card, significant columns only.
	pendNum int    // Line number of the pending card.
	hasPend bool
	eof     bool
	ioErr   error // Read failure other than end of stream.
}

func New(r io.Reader) *Scanner {
	return &Scanner{reader: bufio.NewReader(r)}
}

// Line returns the current source line number.
func (s *Scanner) Line() int {
	return s.line
}

// Check for a comment card: C, c, * or ! in column 1, or blank card.
func isComment(card string) bool {
	if strings.TrimSpace(card) == "" {
		return true
	}
	switch card[0] {
	case 'C', 'c', '*', '!':
		return true
	}
	return false
}

// Read the next significant card, padding short lines and dropping
// long ones at the buffer limit. Returns false at end of stream.
func (s *Scanner) nextCard() (string, int, bool) {
	for {
		if s.eof {
			return "", 0, false
		}
		text, err := s.reader.ReadString('\n')
		if err != nil {
			s.eof = true
			if !errors.Is(err, io.EOF) {
				s.ioErr = err
			}
			if text == "" {
				return "", 0, false
			}
		}
		s.line++
		text = strings.TrimRight(text, "\r\n")
		if len(text) > bufferLimit {
			text = text[:bufferLimit]
		}
		if isComment(text) {
			continue
		}
		for len(text) < 7 {
			text += " "
		}
		return text, s.line, true
	}
}

// Continuation cards have a non blank, non zero character in column 6.
func isContinuation(card string) bool {
	if len(card) < 6 {
		return false
	}
	by := card[5]
	return by != ' ' && by != '0'
}

// Next assembles one logical statement. A nil statement with nil
// error marks the end of input; a read failure surfaces as the
// error.
func (s *Scanner) Next() (*Stmt, error) {
	var card string
	var num int
	var ok bool

	if s.hasPend {
		card, num = s.pending, s.pendNum
		s.hasPend = false
	} else {
		card, num, ok = s.nextCard()
		if !ok {
			return nil, s.ioErr
		}
	}

	stmt := &Stmt{Line: num, Cards: []string{card}}

	// Statement label from columns 1-5.
	for i := 0; i < 5 && i < len(card); i++ {
		by := card[i]
		if unicode.IsDigit(rune(by)) {
			stmt.Label = stmt.Label*10 + int(by-'0')
		}
	}

	body := sliceBody(card)

	// Gather continuation cards.
	for {
		card, num, ok = s.nextCard()
		if !ok {
			break
		}
		if !isContinuation(card) {
			s.pending, s.pendNum = card, num
			s.hasPend = true
			break
		}
		stmt.Cards = append(stmt.Cards, card)
		body += sliceBody(card)
	}

	stmt.Text = squeeze(body)
	return stmt, nil
}

// Body of a card is columns 7-72.
func sliceBody(card string) string {
	if len(card) <= 6 {
		return ""
	}
	if len(card) > cardLimit {
		return card[6:cardLimit]
	}
	return card[6:]
}

// Remove insignificant blanks and fold to upper case. Blanks inside
// character literals are kept, as is the text of a hollerith constant.
func squeeze(body string) string {
	var out strings.Builder
	i := 0
	digits := 0
	prev := byte(0) // Significant byte before the current digit run.
	for i < len(body) {
		by := body[i]
		if by == '\'' {
			// Character literal, copy until closing quote. A doubled
			// quote stays inside the literal.
			out.WriteByte(by)
			i++
			for i < len(body) {
				by = body[i]
				out.WriteByte(by)
				i++
				if by == '\'' {
					if i < len(body) && body[i] == '\'' {
						out.WriteByte(body[i])
						i++
						continue
					}
					break
				}
			}
			digits = 0
			prev = '\''
			continue
		}
		if (by == 'H' || by == 'h') && digits > 0 && holleritContext(prev) {
			// Hollerith: nH followed by n significant characters.
			count := 0
			for n := out.Len() - digits; n < out.Len(); n++ {
				count = count*10 + int(out.String()[n]-'0')
			}
			out.WriteByte('H')
			i++
			for count > 0 && i < len(body) {
				out.WriteByte(body[i])
				i++
				count--
			}
			digits = 0
			continue
		}
		if by == ' ' || by == '\t' {
			i++
			continue
		}
		if unicode.IsDigit(rune(by)) {
			digits++
		} else {
			digits = 0
			prev = by
		}
		if by >= 'a' && by <= 'z' {
			by -= 'a' - 'A'
		}
		out.WriteByte(by)
		i++
	}
	return out.String()
}

// A hollerith count can only follow punctuation, never the tail of
// an identifier.
func holleritContext(prev byte) bool {
	switch prev {
	case 0, '(', ',', '=', '/', '*', '+', '-':
		return true
	}
	return false
}
