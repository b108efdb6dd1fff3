package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/domain"
)

type fakeWidget struct {
	mu        sync.Mutex
	available bool
	toggles   int
	closes    int
	submitted []string
	submitErr error
}

func (f *fakeWidget) Toggle(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
	return true
}

func (f *fakeWidget) Close(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return true
}

func (f *fakeWidget) Submit(_ context.Context, raw string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, raw)
	return "pending-1", f.submitErr
}

func (f *fakeWidget) Available() bool { return f.available }

func newTestModel(t *testing.T, greeting string) (Model, *fakeWidget) {
	t.Helper()
	w := &fakeWidget{available: true}
	m := NewModel(context.Background(), w, Options{Title: "Support", Greeting: greeting})
	return m, w
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return nm, cmd
}

func event(ev domain.ConversationEvent) ConversationMsg {
	return ConversationMsg{Event: ev}
}

func open(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindVisibility, Visible: true}))
	return m
}

func TestModelPendingLifecycle(t *testing.T) {
	m, _ := newTestModel(t, "")
	m = open(t, m)

	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindUserText, Text: "hi"}))
	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindPending, PendingID: "pending-1"}))
	assert.Equal(t, 1, m.transcript.pendingCount())

	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindBotText, PendingID: "pending-1", Text: "hello"}))
	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindPendingCleared, PendingID: "pending-1"}))
	assert.Equal(t, 0, m.transcript.pendingCount())
	require.Len(t, m.transcript.entries, 2)
	assert.Equal(t, entryUser, m.transcript.entries[0].kind)
	assert.Equal(t, entryBot, m.transcript.entries[1].kind)
}

func TestModelUnknownPendingClearIsNoop(t *testing.T) {
	m, _ := newTestModel(t, "")
	m = open(t, m)
	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindPending, PendingID: "pending-a"}))

	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindPendingCleared, PendingID: "pending-zzz"}))
	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindPendingCleared, PendingID: "pending-a"}))
	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindPendingCleared, PendingID: "pending-a"}))

	assert.Empty(t, m.transcript.entries)
}

func TestModelOutOfOrderReplies(t *testing.T) {
	m, _ := newTestModel(t, "")
	m = open(t, m)
	for _, id := range []string{"pending-a", "pending-b"} {
		m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindPending, PendingID: id}))
	}

	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindBotText, PendingID: "pending-b", Text: "second"}))
	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindPendingCleared, PendingID: "pending-b"}))

	require.Equal(t, 1, m.transcript.pendingCount())
	var pending string
	for _, e := range m.transcript.entries {
		if e.kind == entryPending {
			pending = e.pendingID
		}
	}
	assert.Equal(t, "pending-a", pending)

	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindError, PendingID: "pending-a", Text: "Connection error."}))
	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindPendingCleared, PendingID: "pending-a"}))
	assert.Equal(t, 0, m.transcript.pendingCount())
	last := m.transcript.entries[len(m.transcript.entries)-1]
	assert.Equal(t, entryError, last.kind)
	assert.Equal(t, "Connection error.", last.text)
}

func TestModelGreetingShownOnce(t *testing.T) {
	m, _ := newTestModel(t, "Hi! How can I help?")
	m = open(t, m)
	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindVisibility, Visible: false}))
	m = open(t, m)

	greetings := 0
	for _, e := range m.transcript.entries {
		if e.kind == entryGreeting {
			greetings++
		}
	}
	assert.Equal(t, 1, greetings)
	assert.True(t, m.visible)
}

func TestModelHistoryEntries(t *testing.T) {
	m, _ := newTestModel(t, "")
	m = open(t, m)
	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindHistoryEntry, Role: domain.RoleUser, Text: "hi"}))
	m, _ = send(t, m, event(domain.ConversationEvent{Kind: domain.KindHistoryEntry, Role: domain.RoleBot, Text: "hello"}))

	require.Len(t, m.transcript.entries, 2)
	assert.Equal(t, entryUser, m.transcript.entries[0].kind)
	assert.Equal(t, entryBot, m.transcript.entries[1].kind)
}

func TestModelEnterSubmitsAndResetsInput(t *testing.T) {
	m, w := newTestModel(t, "")
	m = open(t, m)
	m.input.SetValue("where is my order?")

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	assert.Nil(t, cmd())
	assert.Equal(t, []string{"where is my order?"}, w.submitted)
}

func TestModelEnterOnBlankInputDoesNothing(t *testing.T) {
	m, w := newTestModel(t, "")
	m = open(t, m)
	m.input.SetValue("   ")

	_, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, w.submitted)
}

func TestModelSubmitFailureShowsNotice(t *testing.T) {
	m, w := newTestModel(t, "")
	w.submitErr = errors.New("widget is hidden")
	m = open(t, m)
	m.input.SetValue("hi")

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, SubmitFailedMsg{}, msg)

	m, _ = send(t, m, msg)
	assert.Contains(t, m.View(), "widget is hidden")
}

func TestModelIgnoresRateLimitedSubmit(t *testing.T) {
	w := &fakeWidget{available: true, submitErr: domain.ErrRateLimited}
	assert.Nil(t, submitCmd(context.Background(), w, "hi")())
}

func TestModelToggleAndClose(t *testing.T) {
	m, w := newTestModel(t, "")

	_, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, w.toggles)

	// Esc is ignored while hidden.
	_, cmd = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)

	m = open(t, m)
	_, cmd = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, w.closes)
}

func TestModelView(t *testing.T) {
	m, w := newTestModel(t, "")
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})

	assert.Contains(t, m.View(), "Support")
	assert.NotContains(t, m.View(), "enter send")

	m = open(t, m)
	assert.Contains(t, m.View(), "enter send")

	w.available = false
	assert.Contains(t, m.View(), "unavailable")
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func TestProgramRendererForwards(t *testing.T) {
	r := NewProgramRenderer()
	r.OnUserText("dropped before attach")

	s := &recordingSender{}
	r.Attach(s)
	r.OnPending("pending-1")
	r.OnBotText("pending-1", "hello")
	r.OnPendingCleared("pending-1")

	require.Len(t, s.msgs, 3)
	first, ok := s.msgs[0].(ConversationMsg)
	require.True(t, ok)
	assert.Equal(t, domain.KindPending, first.Event.Kind)
	assert.Equal(t, "pending-1", first.Event.PendingID)
	last := s.msgs[2].(ConversationMsg)
	assert.Equal(t, domain.KindPendingCleared, last.Event.Kind)
}

func TestTranscriptBotMarkdownRendered(t *testing.T) {
	var tr transcript
	tr.setWidth(40)
	tr.apply(domain.ConversationEvent{Kind: domain.KindBotText, PendingID: "p", Text: "**bold** reply"})

	out := tr.view("")
	assert.Contains(t, out, "bold")
	assert.Contains(t, out, "reply")
	assert.NotEmpty(t, tr.entries[0].rendered, "bot text should be cached after rendering")

	tr.setWidth(60)
	assert.Empty(t, tr.entries[0].rendered, "width change should drop the cache")
}
