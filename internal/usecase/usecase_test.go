package usecase

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"chat-widget/internal/domain"
)

// --- shared fakes ---

type sendCall struct {
	Endpoint string
	Text     string
	Session  string
}

type fakeTransport struct {
	mu     sync.Mutex
	sends  []sendCall
	sendFn func(ctx context.Context, msg domain.OutboundMessage, session string) domain.RequestOutcome

	history        []domain.HistoryEntry
	historyErr     error
	historyCalls   int
	historySession string
}

func (f *fakeTransport) Send(ctx context.Context, endpoint *url.URL, msg domain.OutboundMessage, session string) domain.RequestOutcome {
	f.mu.Lock()
	f.sends = append(f.sends, sendCall{Endpoint: endpoint.String(), Text: msg.Text, Session: session})
	fn := f.sendFn
	f.mu.Unlock()
	if fn == nil {
		return domain.Success{ResponseText: "ok"}
	}
	return fn(ctx, msg, session)
}

func (f *fakeTransport) FetchHistory(_ context.Context, _ *url.URL, session string) ([]domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	f.historySession = session
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func (f *fakeTransport) Sends() []sendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendCall(nil), f.sends...)
}

func (f *fakeTransport) HistoryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.historyCalls
}

type recordingRenderer struct {
	*domain.EventRenderer
	mu     sync.Mutex
	events []domain.ConversationEvent
}

func newRecorder() *recordingRenderer {
	r := &recordingRenderer{}
	r.EventRenderer = domain.NewEventRenderer(r.record)
	return r
}

func (r *recordingRenderer) record(ev domain.ConversationEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingRenderer) Events() []domain.ConversationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ConversationEvent(nil), r.events...)
}

// assertPendingLifecycle checks that every Pending(id) is followed by exactly
// one BotText or Error for id and then exactly one PendingCleared for id.
func assertPendingLifecycle(t *testing.T, events []domain.ConversationEvent) {
	t.Helper()
	type state struct{ pending, terminal, cleared int }
	seen := map[string]*state{}
	for _, ev := range events {
		switch ev.Kind {
		case domain.KindPending:
			if seen[ev.PendingID] != nil {
				t.Errorf("pending id %s reused", ev.PendingID)
			}
			seen[ev.PendingID] = &state{pending: 1}
		case domain.KindBotText, domain.KindError:
			s := seen[ev.PendingID]
			if s == nil {
				t.Errorf("%s for unknown id %s", ev.Kind, ev.PendingID)
				continue
			}
			if s.cleared > 0 {
				t.Errorf("%s after clear for %s", ev.Kind, ev.PendingID)
			}
			s.terminal++
		case domain.KindPendingCleared:
			s := seen[ev.PendingID]
			if s == nil {
				t.Errorf("clear for unknown id %s", ev.PendingID)
				continue
			}
			s.cleared++
		}
	}
	for id, s := range seen {
		if s.terminal != 1 || s.cleared != 1 {
			t.Errorf("id %s: terminal=%d cleared=%d, want 1/1", id, s.terminal, s.cleared)
		}
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}
