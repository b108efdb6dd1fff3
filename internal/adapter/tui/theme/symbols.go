package theme

import (
	"os"
	"strings"
)

// SymbolSet holds the glyphs used by the chat window.
type SymbolSet struct {
	Launcher string
	Close    string
	Error    string
	Pending  string
	User     string
	Bot      string
}

var unicodeSymbols = SymbolSet{
	Launcher: "\U0001F4AC", // 💬
	Close:    "×",     // ×
	Error:    "✗",     // ✗
	Pending:  "…",     // …
	User:     "You",
	Bot:      "Bot",
}

var asciiSymbols = SymbolSet{
	Launcher: "[chat]",
	Close:    "x",
	Error:    "[ERR]",
	Pending:  "...",
	User:     "You",
	Bot:      "Bot",
}

// Symbols is the active symbol set, chosen by InitSymbols.
var Symbols = unicodeSymbols

// DetectUnicodeSupport reports whether the terminal likely renders Unicode.
// CHATWIDGET_ASCII_SYMBOLS=1 forces ASCII.
func DetectUnicodeSupport() bool {
	if v := os.Getenv("CHATWIDGET_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
		return false
	}
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		val := strings.ToLower(os.Getenv(key))
		if val == "" {
			continue
		}
		return strings.Contains(val, "utf-8") || strings.Contains(val, "utf8")
	}
	return true
}

// InitSymbols picks the symbol set for the current terminal.
func InitSymbols() {
	if DetectUnicodeSupport() {
		Symbols = unicodeSymbols
		return
	}
	Symbols = asciiSymbols
}

func init() {
	InitSymbols()
}
