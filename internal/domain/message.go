package domain

import (
	"context"
	"net/url"
	"strings"
)

// Role constants for conversation entries.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// OutboundMessage is one user submission. Text is already trimmed and non-empty.
type OutboundMessage struct {
	Text string `json:"message"`
}

// NewOutboundMessage trims raw and returns ErrEmptyMessage if nothing is left.
func NewOutboundMessage(raw string) (OutboundMessage, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return OutboundMessage{}, ErrEmptyMessage
	}
	return OutboundMessage{Text: text}, nil
}

// HistoryEntry is one prior conversation turn fetched from the backend.
type HistoryEntry struct {
	Role string
	Text string
}

// ClassifyRole maps a wire role to RoleUser or RoleBot. Only "user" is a
// user turn; every other role renders as the bot.
func ClassifyRole(wireRole string) string {
	if wireRole == RoleUser {
		return RoleUser
	}
	return RoleBot
}

// EndpointConfig holds the signals the endpoint resolver works from.
// It is immutable once built.
type EndpointConfig struct {
	ExplicitURL           string // override supplied by the embedding host
	Hostname              string // host page hostname, without port
	Origin                string // host page origin, e.g. "https://shop.example.com"
	IsLocal               bool   // hostname is an exact loopback name
	IsKnownHostingPattern bool   // hostname matched a cloud-hosting pattern
}

// Transport performs the wire exchanges with the chat backend.
type Transport interface {
	// Send posts one message. The returned outcome is never nil.
	Send(ctx context.Context, endpoint *url.URL, msg OutboundMessage, sessionToken string) RequestOutcome
	// FetchHistory reads prior turns. A missing history field yields no entries.
	FetchHistory(ctx context.Context, endpoint *url.URL, sessionToken string) ([]HistoryEntry, error)
}
