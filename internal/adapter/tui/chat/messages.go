// Package chat implements the terminal chat window for a widget instance.
package chat

import "chat-widget/internal/domain"

// ConversationMsg carries one renderer call into the Bubble Tea update loop.
type ConversationMsg struct {
	Event domain.ConversationEvent
}

// SubmitFailedMsg reports a submission the widget refused outright.
type SubmitFailedMsg struct {
	Err error
}

// QuitMsg signals the program to exit.
type QuitMsg struct{}
