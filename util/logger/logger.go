/*
 * FTN77 - Compiler log handler for slog
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

package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler formats compiler phase records for the --log file. Records
// carry attributes like the source line or unit name; they print as
// key=value pairs after the message so a log line stays greppable by
// unit. Debug records mirror to stderr only under --debug; warnings
// and errors always do.
type Handler struct {
	log   io.Writer
	attrs []slog.Attr
	mu    *sync.Mutex
	echo  bool // Mirror debug records to stderr.
}

// NewHandler builds a handler writing to log, which may be nil when
// no --log file was given.
func NewHandler(log io.Writer, echo *bool) *Handler {
	return &Handler{log: log, mu: &sync.Mutex{}, echo: *echo}
}

// Every level is enabled; the compiler decides what it records.
func (h *Handler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &Handler{log: h.log, attrs: merged, mu: h.mu, echo: h.echo}
}

// Groups are flattened; the compiler's records are shallow.
func (h *Handler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var line strings.Builder
	line.WriteString(r.Time.Format("15:04:05"))
	line.WriteByte(' ')
	line.WriteString(r.Level.String())
	line.WriteString(": ")
	line.WriteString(r.Message)

	format := func(a slog.Attr) bool {
		line.WriteByte(' ')
		line.WriteString(a.Key)
		line.WriteByte('=')
		line.WriteString(a.Value.String())
		return true
	}
	for _, a := range h.attrs {
		format(a)
	}
	r.Attrs(format)
	line.WriteByte('\n')
	text := []byte(line.String())

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.log != nil {
		_, err = h.log.Write(text)
	}
	if h.echo || r.Level > slog.LevelDebug {
		_, err = os.Stderr.Write(text)
	}
	return err
}

// SetEcho flips the stderr mirror at run time.
func (h *Handler) SetEcho(echo bool) {
	h.echo = echo
}
