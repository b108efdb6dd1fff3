package chat

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"chat-widget/internal/domain"
)

// Widget operations run as commands: they call back into the renderer,
// which sends to the program, so they must not run inside Update.

func toggleCmd(ctx context.Context, w Widget) tea.Cmd {
	return func() tea.Msg {
		w.Toggle(ctx)
		return nil
	}
}

func closeCmd(ctx context.Context, w Widget) tea.Cmd {
	return func() tea.Msg {
		w.Close(ctx)
		return nil
	}
}

func submitCmd(ctx context.Context, w Widget, text string) tea.Cmd {
	return func() tea.Msg {
		_, err := w.Submit(ctx, text)
		if err == nil || errors.Is(err, domain.ErrEmptyMessage) || errors.Is(err, domain.ErrRateLimited) {
			return nil
		}
		return SubmitFailedMsg{Err: err}
	}
}
