package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies a widget lifecycle event published on the event bus.
type EventType string

const (
	EventSubmissionStarted  EventType = "submission.started"
	EventSubmissionResolved EventType = "submission.resolved"
	EventSubmissionFailed   EventType = "submission.failed"
	EventHistoryLoaded      EventType = "history.loaded"
	EventProbeCompleted     EventType = "probe.completed"
	EventSessionUpdated     EventType = "session.updated"
	EventVisibilityChanged  EventType = "visibility.changed"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	WidgetID  string          `json:"widget_id,omitempty"`
	PendingID string          `json:"pending_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// SubmissionPayload is the payload of submission.* events.
type SubmissionPayload struct {
	Outcome    string  `json:"outcome,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	StatusCode int     `json:"status_code,omitempty"`
	DurationS  float64 `json:"duration_s,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// CountPayload is the payload of history.loaded events.
type CountPayload struct {
	Count int `json:"count"`
}

// ProbePayload is the payload of probe.completed events.
type ProbePayload struct {
	Reachable bool `json:"reachable"`
}

// VisibilityPayload is the payload of visibility.changed events.
type VisibilityPayload struct {
	Visible bool `json:"visible"`
}

// NewEvent builds an Event with a JSON-encoded payload. A payload that fails
// to encode is dropped rather than failing the publish.
func NewEvent(t EventType, widgetID, pendingID string, payload any) Event {
	ev := Event{
		Type:      t,
		Timestamp: time.Now(),
		WidgetID:  widgetID,
		PendingID: pendingID,
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			ev.Payload = raw
		}
	}
	return ev
}

// DecodePayload unmarshals the event payload into v.
func (e Event) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for lifecycle events.
type EventBus interface {
	// Publish sends an event to all matching subscribers. It must not block
	// the caller; handlers must not block either.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}
