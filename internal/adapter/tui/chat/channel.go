package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"chat-widget/internal/domain"
)

// Widget is the slice of usecase.Widget the chat window drives.
type Widget interface {
	Toggle(ctx context.Context) bool
	Close(ctx context.Context) bool
	Submit(ctx context.Context, raw string) (string, error)
	Available() bool
}

type sender interface {
	Send(msg tea.Msg)
}

// ProgramRenderer implements domain.Renderer by forwarding every call to a
// running Bubble Tea program. Calls made before Attach are dropped.
type ProgramRenderer struct {
	*domain.EventRenderer
	target atomic.Pointer[senderBox]
}

type senderBox struct{ s sender }

// NewProgramRenderer creates a renderer with no program attached.
func NewProgramRenderer() *ProgramRenderer {
	r := &ProgramRenderer{}
	r.EventRenderer = domain.NewEventRenderer(r.forward)
	return r
}

// Attach routes subsequent renderer calls to s.
func (r *ProgramRenderer) Attach(s sender) {
	r.target.Store(&senderBox{s: s})
}

func (r *ProgramRenderer) forward(ev domain.ConversationEvent) {
	if box := r.target.Load(); box != nil {
		box.s.Send(ConversationMsg{Event: ev})
	}
}

// Options configure the chat window.
type Options struct {
	Title    string
	Greeting string
	Logger   *slog.Logger
}

// Run shows the chat window for w until the user quits or ctx ends. r must
// be the renderer w was built with.
func Run(ctx context.Context, w Widget, r *ProgramRenderer, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(ctx, w, opts)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	r.Attach(program)

	go func() {
		<-ctx.Done()
		program.Send(QuitMsg{})
	}()

	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

var _ domain.Renderer = (*ProgramRenderer)(nil)
