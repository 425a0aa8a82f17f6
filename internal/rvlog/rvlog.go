// Package rvlog provides the slog.Handler used by the simulator's CLI
// front end. It is grounded on the handler S370/util/logger wraps
// slog.NewTextHandler with: every record is mirrored to stderr, and
// additionally appended to an optional log file.
package rvlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler is a slog.Handler that always writes to stderr and optionally
// tees the same record to a file.
type Handler struct {
	file io.Writer // optional, nil disables file output
	text slog.Handler
	mu   *sync.Mutex
}

// NewHandler builds a Handler. file may be nil to log only to stderr.
func NewHandler(file io.Writer, opts *slog.HandlerOptions) *Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: slog.LevelInfo}
	}
	return &Handler{
		file: file,
		text: slog.NewTextHandler(os.Stderr, opts),
		mu:   &sync.Mutex{},
	}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.text.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{file: h.file, text: h.text.WithAttrs(attrs), mu: h.mu}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{file: h.file, text: h.text.WithGroup(name), mu: h.mu}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.text.Handle(ctx, r); err != nil {
		return err
	}
	if h.file == nil {
		return nil
	}

	var b strings.Builder
	b.WriteString(r.Time.Format("2006/01/02 15:04:05"))
	b.WriteString(" ")
	b.WriteString(r.Level.String())
	b.WriteString(" ")
	b.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		b.WriteString(" ")
		b.WriteString(a.Key)
		b.WriteString("=")
		b.WriteString(a.Value.String())
		return true
	})
	b.WriteString("\n")
	_, err := h.file.Write([]byte(b.String()))
	return err
}
