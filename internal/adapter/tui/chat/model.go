package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chat-widget/internal/adapter/tui/theme"
	"chat-widget/internal/domain"
)

// Model is the Bubble Tea model of the chat window.
type Model struct {
	ctx    context.Context
	widget Widget
	opts   Options
	logger *slog.Logger

	transcript transcript
	input      textinput.Model
	viewport   viewport.Model
	spinner    spinner.Model

	visible  bool
	greeted  bool
	notice   string
	width    int
	height   int
	quitting bool
}

// NewModel creates the chat window model for w.
func NewModel(ctx context.Context, w Widget, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Title == "" {
		opts.Title = "Chat"
	}

	in := textinput.New()
	in.Placeholder = "Type your message..."
	in.Prompt = theme.InputPrompt.Render("> ")
	in.CharLimit = 2000

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)

	return Model{
		ctx:      ctx,
		widget:   w,
		opts:     opts,
		logger:   opts.Logger,
		input:    in,
		viewport: viewport.New(theme.MaxWindowWidth-2, theme.MaxWindowHeight-6),
		spinner:  s,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ConversationMsg:
		m.apply(msg.Event)
		return m, nil

	case SubmitFailedMsg:
		m.notice = msg.Err.Error()
		m.logger.Warn("submission refused", "error", msg.Err)
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.transcript.pendingCount() > 0 {
			m.refresh()
		}
		return m, cmd
	}

	if m.visible {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "ctrl+o":
		return m, toggleCmd(m.ctx, m.widget)
	}

	if !m.visible {
		if msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, closeCmd(m.ctx, m.widget)
	case "enter":
		text := m.input.Value()
		m.input.Reset()
		m.notice = ""
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		return m, submitCmd(m.ctx, m.widget, text)
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// apply renders one conversation event.
func (m *Model) apply(ev domain.ConversationEvent) {
	if ev.Kind == domain.KindVisibility {
		m.visible = ev.Visible
		if m.visible {
			if !m.greeted && m.opts.Greeting != "" {
				m.transcript.greet(m.opts.Greeting)
			}
			m.greeted = true
			m.input.Focus()
		} else {
			m.input.Blur()
		}
	} else {
		m.transcript.apply(ev)
	}
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript.view(m.spinner.View()))
	m.viewport.GotoBottom()
}

func (m *Model) layout() {
	w := theme.Clamp(m.width-2, theme.MinWindowWidth, theme.MaxWindowWidth)
	h := theme.Clamp(m.height-2, theme.MinWindowHeight, theme.MaxWindowHeight)
	// Border, header, input and hint lines.
	m.viewport.Width = w - 2
	m.viewport.Height = h - 6
	m.input.Width = w - 6
	m.transcript.setWidth(w - 4)
	m.refresh()
}

// View renders the launcher or the open window in the bottom-right corner.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.widget.Available() {
		return m.place(theme.Hint.Render("chat unavailable · q to quit"))
	}
	if !m.visible {
		launcher := theme.Launcher.Render(theme.Symbols.Launcher + " " + m.opts.Title)
		hint := theme.Hint.Render("ctrl+o open · q quit")
		return m.place(lipgloss.JoinVertical(lipgloss.Right, launcher, hint))
	}

	inner := m.viewport.Width
	header := theme.Header.Width(inner).Render(m.opts.Title + "  " + theme.Symbols.Close + " esc")
	footer := theme.Hint.Render("enter send · ctrl+o hide · ctrl+c quit")
	if m.notice != "" {
		footer = theme.ErrorText.Render(m.notice)
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.input.View(),
		footer,
	)
	return m.place(theme.Window.Render(body))
}

func (m Model) place(s string) string {
	if m.width == 0 || m.height == 0 {
		return s
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Right, lipgloss.Bottom, s)
}
