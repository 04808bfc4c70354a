package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Status icons.
const (
	IconCheck   = "✓"
	IconCross   = "✗"
	IconWarning = "!"
)

// StatusIndicator renders one-line status messages with an icon.
type StatusIndicator struct {
	theme *Theme
}

// NewStatusIndicator creates a status indicator for theme, or the
// default theme when nil.
func NewStatusIndicator(theme *Theme) *StatusIndicator {
	if theme == nil {
		theme = DefaultTheme()
	}
	return &StatusIndicator{theme: theme}
}

// Success renders a success message
func (s *StatusIndicator) Success(message string) string {
	return s.render(s.theme.Palette.Success, IconCheck, message)
}

// Error renders an error message
func (s *StatusIndicator) Error(message string) string {
	return s.render(s.theme.Palette.Error, IconCross, message)
}

// Warning renders a warning message
func (s *StatusIndicator) Warning(message string) string {
	return s.render(s.theme.Palette.Warning, IconWarning, message)
}

func (s *StatusIndicator) render(color lipgloss.AdaptiveColor, icon, message string) string {
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(icon + " " + message)
}

// KeyValue renders aligned "key: value" lines.
type KeyValue struct {
	theme    *Theme
	keyWidth int
}

// NewKeyValue creates a key-value renderer for theme, or the default
// theme when nil.
func NewKeyValue(theme *Theme) *KeyValue {
	if theme == nil {
		theme = DefaultTheme()
	}
	return &KeyValue{theme: theme, keyWidth: 14}
}

// Render renders a key-value pair
func (kv *KeyValue) Render(key, value string) string {
	keyStyle := kv.theme.Muted.Width(kv.keyWidth)
	return keyStyle.Render(key+":") + " " + value
}

// RenderList renders the pairs of items in the given key order. Keys
// missing from items are skipped.
func (kv *KeyValue) RenderList(items map[string]string, order []string) string {
	var lines []string
	for _, key := range order {
		if value, ok := items[key]; ok {
			lines = append(lines, kv.Render(key, value))
		}
	}
	return strings.Join(lines, "\n")
}
