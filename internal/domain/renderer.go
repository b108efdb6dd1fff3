package domain

// Renderer is the presentation boundary. The core calls it and never touches
// presentation state directly.
//
// Implementations must be safe for concurrent use: submissions settle on their
// own goroutines and may complete out of order. OnPendingCleared for an id
// that is unknown or already cleared must be a no-op.
type Renderer interface {
	OnUserText(text string)
	OnPending(id string)
	OnBotText(id, text string)
	OnError(id, message string)
	OnPendingCleared(id string)
	OnHistoryEntry(role, text string)
	OnVisibilityToggle(visible bool)
}

// EventKind tags a ConversationEvent.
type EventKind string

const (
	KindUserText       EventKind = "user_text"
	KindPending        EventKind = "pending"
	KindBotText        EventKind = "bot_text"
	KindError          EventKind = "error"
	KindPendingCleared EventKind = "pending_cleared"
	KindHistoryEntry   EventKind = "history_entry"
	KindVisibility     EventKind = "visibility"
)

// ConversationEvent is the value form of a Renderer call. The core keeps no
// transcript; events live only as long as the consumer holds them.
type ConversationEvent struct {
	Kind      EventKind
	PendingID string // Pending, BotText, Error, PendingCleared
	Role      string // HistoryEntry
	Text      string // UserText, BotText, Error, HistoryEntry
	Visible   bool   // Visibility
}

// EventSink receives ConversationEvents.
type EventSink func(ConversationEvent)

// EventRenderer adapts an EventSink to the Renderer interface. It is as
// concurrency-safe as the sink it wraps.
type EventRenderer struct {
	sink EventSink
}

// NewEventRenderer wraps sink. A nil sink discards events.
func NewEventRenderer(sink EventSink) *EventRenderer {
	if sink == nil {
		sink = func(ConversationEvent) {}
	}
	return &EventRenderer{sink: sink}
}

func (r *EventRenderer) OnUserText(text string) {
	r.sink(ConversationEvent{Kind: KindUserText, Text: text})
}

func (r *EventRenderer) OnPending(id string) {
	r.sink(ConversationEvent{Kind: KindPending, PendingID: id})
}

func (r *EventRenderer) OnBotText(id, text string) {
	r.sink(ConversationEvent{Kind: KindBotText, PendingID: id, Text: text})
}

func (r *EventRenderer) OnError(id, message string) {
	r.sink(ConversationEvent{Kind: KindError, PendingID: id, Text: message})
}

func (r *EventRenderer) OnPendingCleared(id string) {
	r.sink(ConversationEvent{Kind: KindPendingCleared, PendingID: id})
}

func (r *EventRenderer) OnHistoryEntry(role, text string) {
	r.sink(ConversationEvent{Kind: KindHistoryEntry, Role: role, Text: text})
}

func (r *EventRenderer) OnVisibilityToggle(visible bool) {
	r.sink(ConversationEvent{Kind: KindVisibility, Visible: visible})
}

// Dispatch replays ev onto r.
func Dispatch(r Renderer, ev ConversationEvent) {
	switch ev.Kind {
	case KindUserText:
		r.OnUserText(ev.Text)
	case KindPending:
		r.OnPending(ev.PendingID)
	case KindBotText:
		r.OnBotText(ev.PendingID, ev.Text)
	case KindError:
		r.OnError(ev.PendingID, ev.Text)
	case KindPendingCleared:
		r.OnPendingCleared(ev.PendingID)
	case KindHistoryEntry:
		r.OnHistoryEntry(ev.Role, ev.Text)
	case KindVisibility:
		r.OnVisibilityToggle(ev.Visible)
	}
}

var _ Renderer = (*EventRenderer)(nil)
