package engine

import (
	"unicode"
	"unicode/utf8"
)

// KeyType distinguishes printable input from editing keys.
type KeyType uint8

const (
	KeyRune KeyType = iota
	KeyBackspace
	KeyEnter
)

// Key is one input event fed to the engine.
type Key struct {
	Type KeyType
	Rune rune
}

var (
	// Backspace removes the most recent commit.
	Backspace = Key{Type: KeyBackspace}
	// Enter commits a required line break in code mode.
	Enter = Key{Type: KeyEnter}
)

// RuneKey wraps a printable character.
func RuneKey(r rune) Key {
	if r == '\n' || r == '\r' {
		return Enter
	}
	return Key{Type: KeyRune, Rune: r}
}

// ParseKey maps a key name or a single glyph to a Key. Empty strings,
// multi-glyph strings and control characters are reported as not ok.
func ParseKey(s string) (Key, bool) {
	switch s {
	case "backspace", "Backspace", "ctrl+h":
		return Backspace, true
	case "enter", "Enter", "\n", "\r":
		return Enter, true
	case "space":
		return RuneKey(' '), true
	}
	if utf8.RuneCountInString(s) != 1 {
		return Key{}, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsControl(r) {
		return Key{}, false
	}
	return RuneKey(r), true
}
