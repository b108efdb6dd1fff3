// Package theme holds the colors, styles and symbols of the chat window.
// Colors adapt to light and dark terminals; lipgloss drops them when
// NO_COLOR is set.
package theme

import (
	"github.com/charmbracelet/lipgloss"
)

// --- Adaptive color palette ---

var (
	ColorError  = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	ColorInfo   = lipgloss.AdaptiveColor{Light: "#0277bd", Dark: "#4fc3f7"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#6a1b9a", Dark: "#ce93d8"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}

	ColorBorder       = lipgloss.AdaptiveColor{Light: "#bdbdbd", Dark: "#616161"}
	ColorBorderActive = lipgloss.AdaptiveColor{Light: "#1565c0", Dark: "#42a5f5"}

	ColorHeaderBg = lipgloss.AdaptiveColor{Light: "#1565c0", Dark: "#42a5f5"}
	ColorHeaderFg = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#1e1e1e"}
	ColorFgDim    = lipgloss.AdaptiveColor{Light: "#9e9e9e", Dark: "#757575"}
)

// --- Text styles ---

var (
	Dim = lipgloss.NewStyle().Faint(true)

	UserLabel    = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
	BotLabel     = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	ErrorText    = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	PendingText  = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
	GreetingText = lipgloss.NewStyle().Foreground(ColorMuted)
)

// --- Window chrome ---

var (
	// Window frames the open chat window.
	Window = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorderActive)

	// Header is the title bar with the close hint.
	Header = lipgloss.NewStyle().
		Foreground(ColorHeaderFg).
		Background(ColorHeaderBg).
		Bold(true).
		Padding(0, 1)

	// Launcher is the floating button shown while the window is closed.
	Launcher = lipgloss.NewStyle().
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Bold(true).
			Padding(0, 2)

	InputPrompt = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true)

	Hint = lipgloss.NewStyle().Foreground(ColorFgDim)
)

// Window sizing bounds, in cells.
const (
	MaxWindowWidth  = 60
	MaxWindowHeight = 24
	MinWindowWidth  = 24
	MinWindowHeight = 8
)

// Clamp returns v clamped to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
