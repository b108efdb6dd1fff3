package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"chat-widget/internal/adapter/tui/theme"
	"chat-widget/internal/domain"
)

type entryKind int

const (
	entryGreeting entryKind = iota
	entryUser
	entryBot
	entryError
	entryPending
)

type entry struct {
	kind      entryKind
	pendingID string
	text      string
	rendered  string // cached glamour output for bot entries
}

// transcript is the on-screen message list. It lives only as long as the
// window; the backend is the system of record.
type transcript struct {
	entries    []entry
	width      int
	mdRenderer *glamour.TermRenderer
}

func (t *transcript) setWidth(w int) {
	if w == t.width {
		return
	}
	t.width = w
	t.mdRenderer = nil
	for i := range t.entries {
		t.entries[i].rendered = ""
	}
}

// apply folds one conversation event into the list.
func (t *transcript) apply(ev domain.ConversationEvent) {
	switch ev.Kind {
	case domain.KindUserText:
		t.entries = append(t.entries, entry{kind: entryUser, text: ev.Text})
	case domain.KindPending:
		t.entries = append(t.entries, entry{kind: entryPending, pendingID: ev.PendingID})
	case domain.KindBotText:
		t.entries = append(t.entries, entry{kind: entryBot, pendingID: ev.PendingID, text: ev.Text})
	case domain.KindError:
		t.entries = append(t.entries, entry{kind: entryError, pendingID: ev.PendingID, text: ev.Text})
	case domain.KindPendingCleared:
		t.clearPending(ev.PendingID)
	case domain.KindHistoryEntry:
		kind := entryBot
		if ev.Role == domain.RoleUser {
			kind = entryUser
		}
		t.entries = append(t.entries, entry{kind: kind, text: ev.Text})
	}
}

// clearPending drops the pending marker for id. Unknown ids are ignored.
func (t *transcript) clearPending(id string) {
	for i, e := range t.entries {
		if e.kind == entryPending && e.pendingID == id {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

func (t *transcript) greet(text string) {
	t.entries = append(t.entries, entry{kind: entryGreeting, text: text})
}

func (t *transcript) pendingCount() int {
	n := 0
	for _, e := range t.entries {
		if e.kind == entryPending {
			n++
		}
	}
	return n
}

func (t *transcript) view(spinnerFrame string) string {
	var b strings.Builder
	for i := range t.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t.renderEntry(&t.entries[i], spinnerFrame))
	}
	return b.String()
}

func (t *transcript) renderEntry(e *entry, spinnerFrame string) string {
	switch e.kind {
	case entryGreeting:
		return theme.GreetingText.Render(e.text)
	case entryUser:
		return theme.UserLabel.Render(theme.Symbols.User+": ") + e.text
	case entryError:
		return theme.ErrorText.Render(theme.Symbols.Error + " " + e.text)
	case entryPending:
		return theme.PendingText.Render(spinnerFrame + " " + theme.Symbols.Pending)
	}
	if e.rendered == "" {
		e.rendered = t.renderMarkdown(e.text)
	}
	return theme.BotLabel.Render(theme.Symbols.Bot+":") + "\n" + e.rendered
}

func (t *transcript) renderMarkdown(content string) string {
	if t.mdRenderer == nil {
		width := t.width
		if width <= 0 {
			width = theme.MaxWindowWidth
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		t.mdRenderer = r
	}
	out, err := t.mdRenderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
