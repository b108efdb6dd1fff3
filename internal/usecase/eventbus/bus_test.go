package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"chat-widget/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) handle(_ context.Context, ev domain.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func TestPublishTypedSubscriber(t *testing.T) {
	bus := New(nil)
	var rec recorder
	bus.Subscribe(domain.EventSubmissionResolved, rec.handle)

	bus.Publish(context.Background(), domain.NewEvent(domain.EventSubmissionStarted, "w", "p1", nil))
	bus.Publish(context.Background(), domain.NewEvent(domain.EventSubmissionResolved, "w", "p1", nil))
	bus.Close()

	got := rec.types()
	if len(got) != 1 || got[0] != domain.EventSubmissionResolved {
		t.Errorf("got %v, want only submission.resolved", got)
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	bus := New(nil)
	var rec recorder
	bus.SubscribeAll(rec.handle)

	want := []domain.EventType{
		domain.EventSubmissionStarted,
		domain.EventSubmissionFailed,
		domain.EventSessionUpdated,
		domain.EventVisibilityChanged,
	}
	for _, et := range want {
		bus.Publish(context.Background(), domain.NewEvent(et, "w", "", nil))
	}
	bus.Close()

	got := rec.types()
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := New(nil)
	var typed, all recorder
	unsubTyped := bus.Subscribe(domain.EventProbeCompleted, typed.handle)
	unsubAll := bus.SubscribeAll(all.handle)
	unsubTyped()
	unsubAll()

	bus.Publish(context.Background(), domain.NewEvent(domain.EventProbeCompleted, "w", "", nil))
	bus.Close()

	if n := len(typed.types()) + len(all.types()); n != 0 {
		t.Errorf("unsubscribed handlers received %d events", n)
	}
}

func TestHandlerPanicRecovered(t *testing.T) {
	bus := New(nil)
	var rec recorder
	bus.SubscribeAll(func(context.Context, domain.Event) { panic("boom") })
	bus.SubscribeAll(rec.handle)

	bus.Publish(context.Background(), domain.NewEvent(domain.EventHistoryLoaded, "w", "", domain.CountPayload{Count: 2}))
	bus.Close()

	if got := rec.types(); len(got) != 1 {
		t.Errorf("second handler got %d events after panic, want 1", len(got))
	}
}

func TestPublishAfterCloseIsNoop(t *testing.T) {
	bus := New(nil)
	var rec recorder
	bus.SubscribeAll(rec.handle)
	bus.Close()
	bus.Close()

	bus.Publish(context.Background(), domain.NewEvent(domain.EventSessionUpdated, "w", "", nil))
	if got := rec.types(); len(got) != 0 {
		t.Errorf("got %v after close", got)
	}
}

func TestHandlerContextOutlivesPublisher(t *testing.T) {
	bus := New(nil)
	errs := make(chan error, 1)
	bus.SubscribeAll(func(ctx context.Context, _ domain.Event) { errs <- ctx.Err() })

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, domain.NewEvent(domain.EventSubmissionStarted, "w", "p", nil))
	cancel()
	bus.Close()

	if err := <-errs; err != nil {
		t.Errorf("handler context canceled: %v", err)
	}
}

func TestPublishDoesNotBlockOnStuckHandler(t *testing.T) {
	bus := New(nil)
	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	bus.SubscribeAll(func(context.Context, domain.Event) {
		once.Do(func() { close(entered) })
		<-release
	})

	bus.Publish(context.Background(), domain.NewEvent(domain.EventSubmissionStarted, "w", "p0", nil))
	<-entered

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range defaultQueueSize + 10 {
			bus.Publish(context.Background(), domain.NewEvent(domain.EventSubmissionStarted, "w", "p", nil))
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		close(release)
		bus.Close()
		t.Fatal("Publish blocked behind a stuck handler")
	}

	if got := bus.Dropped(); got != 10 {
		t.Errorf("Dropped() = %d, want 10", got)
	}
	close(release)
	bus.Close()
}
