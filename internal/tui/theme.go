package tui

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of colors a theme is built from.
type Palette struct {
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Accent    lipgloss.AdaptiveColor

	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor

	Text       lipgloss.AdaptiveColor
	TextMuted  lipgloss.AdaptiveColor
	TextSubtle lipgloss.AdaptiveColor

	Surface lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor
}

// Theme contains the styles used by the breakpoint view.
type Theme struct {
	Name    string
	Palette Palette

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Muted    lipgloss.Style

	// Current renders the resolved breakpoint name.
	Current lipgloss.Style
	// Badge renders the strategy tag next to the title.
	Badge lipgloss.Style

	Box lipgloss.Style

	RowActive   lipgloss.Style
	RowInactive lipgloss.Style

	// Segments color the ruler, cycled per breakpoint.
	Segments []lipgloss.Style
	Marker   lipgloss.Style

	Visible lipgloss.Style
	Hidden  lipgloss.Style
}

// Preset names.
const (
	PresetDark    = "dark"
	PresetLight   = "light"
	PresetDracula = "dracula"
	PresetNord    = "nord"
)

var presets = map[string]func() Palette{
	PresetDark:    darkPalette,
	PresetLight:   lightPalette,
	PresetDracula: draculaPalette,
	PresetNord:    nordPalette,
}

// Presets returns the preset names, sorted.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ThemeByName builds a preset theme. The empty name selects PresetDark.
func ThemeByName(name string) (*Theme, error) {
	if name == "" {
		name = PresetDark
	}
	palette, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown theme %q", name)
	}
	return NewTheme(name, palette()), nil
}

// DefaultTheme returns the dark preset.
func DefaultTheme() *Theme {
	return NewTheme(PresetDark, darkPalette())
}

// NewTheme builds every style from p.
func NewTheme(name string, p Palette) *Theme {
	t := &Theme{Name: name, Palette: p}

	t.Title = lipgloss.NewStyle().Foreground(p.Primary).Bold(true)
	t.Subtitle = lipgloss.NewStyle().Foreground(p.Secondary).Bold(true)
	t.Muted = lipgloss.NewStyle().Foreground(p.TextMuted)

	t.Current = lipgloss.NewStyle().
		Foreground(p.Surface).
		Background(p.Primary).
		Bold(true).
		Padding(0, 2)
	t.Badge = lipgloss.NewStyle().
		Foreground(p.Accent).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Accent).
		Padding(0, 1)

	t.Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 1)

	t.RowActive = lipgloss.NewStyle().Foreground(p.Primary).Bold(true)
	t.RowInactive = lipgloss.NewStyle().Foreground(p.Text)

	t.Segments = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(p.Secondary),
		lipgloss.NewStyle().Foreground(p.Accent),
		lipgloss.NewStyle().Foreground(p.Warning),
		lipgloss.NewStyle().Foreground(p.Primary),
	}
	t.Marker = lipgloss.NewStyle().Foreground(p.Error).Bold(true)

	t.Visible = lipgloss.NewStyle().Foreground(p.Success).Bold(true)
	t.Hidden = lipgloss.NewStyle().Foreground(p.TextSubtle)

	return t
}

// Segment returns the ruler style of the i-th breakpoint.
func (t *Theme) Segment(i int) lipgloss.Style {
	return t.Segments[i%len(t.Segments)]
}

// HuhTheme returns a huh.Theme matching t.
func (t *Theme) HuhTheme() *huh.Theme {
	ht := huh.ThemeBase()
	p := t.Palette

	ht.Focused.Title = ht.Focused.Title.Foreground(p.Primary).Bold(true)
	ht.Focused.Description = ht.Focused.Description.Foreground(p.TextMuted)
	ht.Focused.Base = ht.Focused.Base.BorderForeground(p.Primary)
	ht.Focused.ErrorMessage = ht.Focused.ErrorMessage.Foreground(p.Error)
	ht.Focused.SelectedOption = ht.Focused.SelectedOption.Foreground(p.Accent)
	ht.Focused.SelectSelector = ht.Focused.SelectSelector.Foreground(p.Primary)
	ht.Focused.TextInput.Cursor = ht.Focused.TextInput.Cursor.Foreground(p.Primary)
	ht.Focused.TextInput.Placeholder = ht.Focused.TextInput.Placeholder.Foreground(p.TextSubtle)

	ht.Blurred.Title = ht.Blurred.Title.Foreground(p.TextMuted)
	ht.Blurred.Description = ht.Blurred.Description.Foreground(p.TextSubtle)

	return ht
}

func darkPalette() Palette {
	return Palette{
		Primary:    lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"},
		Secondary:  lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"},
		Accent:     lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"},
		Success:    lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"},
		Warning:    lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"},
		Error:      lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"},
		Text:       lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#F9FAFB"},
		TextMuted:  lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"},
		TextSubtle: lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"},
		Surface:    lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1F2937"},
		Border:     lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#374151"},
	}
}

func lightPalette() Palette {
	return Palette{
		Primary:    lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#7C3AED"},
		Secondary:  lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#2563EB"},
		Accent:     lipgloss.AdaptiveColor{Light: "#059669", Dark: "#059669"},
		Success:    lipgloss.AdaptiveColor{Light: "#059669", Dark: "#059669"},
		Warning:    lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#D97706"},
		Error:      lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#DC2626"},
		Text:       lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#1F2937"},
		TextMuted:  lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"},
		TextSubtle: lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#9CA3AF"},
		Surface:    lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"},
		Border:     lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#E5E7EB"},
	}
}

func draculaPalette() Palette {
	return Palette{
		Primary:    lipgloss.AdaptiveColor{Light: "#BD93F9", Dark: "#BD93F9"},
		Secondary:  lipgloss.AdaptiveColor{Light: "#8BE9FD", Dark: "#8BE9FD"},
		Accent:     lipgloss.AdaptiveColor{Light: "#FF79C6", Dark: "#FF79C6"},
		Success:    lipgloss.AdaptiveColor{Light: "#50FA7B", Dark: "#50FA7B"},
		Warning:    lipgloss.AdaptiveColor{Light: "#FFB86C", Dark: "#FFB86C"},
		Error:      lipgloss.AdaptiveColor{Light: "#FF5555", Dark: "#FF5555"},
		Text:       lipgloss.AdaptiveColor{Light: "#F8F8F2", Dark: "#F8F8F2"},
		TextMuted:  lipgloss.AdaptiveColor{Light: "#6272A4", Dark: "#6272A4"},
		TextSubtle: lipgloss.AdaptiveColor{Light: "#44475A", Dark: "#44475A"},
		Surface:    lipgloss.AdaptiveColor{Light: "#282A36", Dark: "#282A36"},
		Border:     lipgloss.AdaptiveColor{Light: "#44475A", Dark: "#44475A"},
	}
}

func nordPalette() Palette {
	return Palette{
		Primary:    lipgloss.AdaptiveColor{Light: "#88C0D0", Dark: "#88C0D0"},
		Secondary:  lipgloss.AdaptiveColor{Light: "#81A1C1", Dark: "#81A1C1"},
		Accent:     lipgloss.AdaptiveColor{Light: "#5E81AC", Dark: "#5E81AC"},
		Success:    lipgloss.AdaptiveColor{Light: "#A3BE8C", Dark: "#A3BE8C"},
		Warning:    lipgloss.AdaptiveColor{Light: "#EBCB8B", Dark: "#EBCB8B"},
		Error:      lipgloss.AdaptiveColor{Light: "#BF616A", Dark: "#BF616A"},
		Text:       lipgloss.AdaptiveColor{Light: "#ECEFF4", Dark: "#ECEFF4"},
		TextMuted:  lipgloss.AdaptiveColor{Light: "#D8DEE9", Dark: "#D8DEE9"},
		TextSubtle: lipgloss.AdaptiveColor{Light: "#4C566A", Dark: "#4C566A"},
		Surface:    lipgloss.AdaptiveColor{Light: "#2E3440", Dark: "#2E3440"},
		Border:     lipgloss.AdaptiveColor{Light: "#4C566A", Dark: "#4C566A"},
	}
}
