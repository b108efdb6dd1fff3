// Package console renders a conversation as plain lines on a writer. It
// backs the non-interactive subcommands and works on any io.Writer.
package console

import (
	"fmt"
	"io"
	"sync"

	"chat-widget/internal/adapter/tui/theme"
	"chat-widget/internal/domain"
)

// Renderer writes one line per renderer call. Writes are serialized, so
// replies settling on different goroutines never interleave mid-line.
type Renderer struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
	pending map[string]struct{}
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithVerbose also prints pending markers and visibility changes.
func WithVerbose() Option {
	return func(r *Renderer) { r.verbose = true }
}

// New creates a Renderer writing to w.
func New(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{w: w, pending: make(map[string]struct{})}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Renderer) OnUserText(text string) {
	r.line("%s %s", theme.Symbols.User, text)
}

func (r *Renderer) OnPending(id string) {
	r.mu.Lock()
	r.pending[id] = struct{}{}
	r.mu.Unlock()
	if r.verbose {
		r.line("%s %s", theme.Symbols.Pending, id)
	}
}

func (r *Renderer) OnBotText(_, text string) {
	r.line("%s %s", theme.Symbols.Bot, text)
}

func (r *Renderer) OnError(_, message string) {
	r.line("%s %s", theme.Symbols.Error, message)
}

func (r *Renderer) OnPendingCleared(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

func (r *Renderer) OnHistoryEntry(role, text string) {
	sym := theme.Symbols.Bot
	if role == domain.RoleUser {
		sym = theme.Symbols.User
	}
	r.line("%s %s", sym, text)
}

func (r *Renderer) OnVisibilityToggle(visible bool) {
	if !r.verbose {
		return
	}
	state := "closed"
	if visible {
		state = "open"
	}
	r.line("[window %s]", state)
}

// Pending returns the number of submissions still awaiting a reply.
func (r *Renderer) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Renderer) line(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, format+"\n", args...)
}

var _ domain.Renderer = (*Renderer)(nil)
