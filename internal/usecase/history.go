package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"chat-widget/internal/domain"
)

// Hydrator replays prior conversation turns from the backend into a Renderer.
type Hydrator struct {
	transport domain.Transport
	renderer  domain.Renderer
	logger    *slog.Logger
}

// NewHydrator creates a Hydrator.
func NewHydrator(transport domain.Transport, renderer domain.Renderer, logger *slog.Logger) *Hydrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hydrator{transport: transport, renderer: renderer, logger: logger}
}

// Hydrate fetches history and emits one history entry per turn, in order.
// On failure it logs, emits nothing and returns the error for callers that
// want it; the conversation is never told.
func (h *Hydrator) Hydrate(ctx context.Context, endpoint *url.URL, sessionToken string) (int, error) {
	entries, err := h.transport.FetchHistory(ctx, endpoint, sessionToken)
	if err != nil {
		h.logger.Warn("history hydration failed", "error", err)
		return 0, fmt.Errorf("hydrate history: %w", err)
	}
	for _, e := range entries {
		h.renderer.OnHistoryEntry(e.Role, e.Text)
	}
	h.logger.Debug("history hydrated", "entries", len(entries))
	return len(entries), nil
}
