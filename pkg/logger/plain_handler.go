package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// consoleHandler prints the message with its intention prefix followed by
// key=value pairs. Time and level are left to the file sink.
type consoleHandler struct {
	mu      *sync.Mutex
	w       io.Writer
	leveler slog.Leveler
	attrs   []slog.Attr
}

func newConsoleHandler(w io.Writer, leveler slog.Leveler) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, leveler: leveler}
}

func (h *consoleHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	if h.leveler == nil {
		return true
	}
	return lvl >= h.leveler.Level()
}

// hidden attributes are context for file logs only.
func hidden(key string) bool {
	switch key {
	case "intention", "component", "run":
		return true
	}
	return false
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var intention string
	var pairs []string

	collect := func(a slog.Attr) {
		if a.Value.Kind() == slog.KindGroup {
			for _, ga := range a.Value.Group() {
				if ga.Key == "intention" {
					intention = ga.Value.String()
				}
				if !hidden(ga.Key) {
					pairs = append(pairs, fmt.Sprintf("%s=%v", ga.Key, ga.Value))
				}
			}
			return
		}
		if a.Key == "intention" {
			intention = a.Value.String()
		}
		if !hidden(a.Key) {
			pairs = append(pairs, fmt.Sprintf("%s=%v", a.Key, a.Value))
		}
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})

	var b strings.Builder
	if r.Level >= slog.LevelWarn {
		b.WriteString(strings.ToLower(r.Level.String()))
		b.WriteString(": ")
	} else if p := prefixFor(Intention(intention)); p != "" {
		b.WriteString(p)
		b.WriteByte(' ')
	}
	b.WriteString(r.Message)
	for _, p := range pairs {
		b.WriteByte(' ')
		b.WriteString(p)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

// WithGroup is flattened; the console output has no nesting.
func (h *consoleHandler) WithGroup(_ string) slog.Handler {
	return h
}
