package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"vantage/internal/breakpoint"
	"vantage/internal/tracker"
)

const (
	rulerGlyph  = "━"
	markerGlyph = "▼"
	activeDot   = "●"
	idleDot     = "○"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	opts := m.session.Options()
	pad := m.padding.Get(m.result.Current, m.sorted)
	inner := max(m.width-2*pad, 20)

	sections := []string{
		m.header(),
		"",
		m.theme.Current.Render(m.result.Current),
		m.theme.Muted.Render(m.measurement(opts)),
		"",
		m.ruler(inner, opts.Unit),
		m.table(opts.Unit),
	}
	if m.rule != nil {
		sections = append(sections, m.ruleStatus())
	}
	if m.err != nil {
		sections = append(sections, lipgloss.NewStyle().Foreground(m.theme.Palette.Error).Render(m.err.Error()))
	}
	sections = append(sections, "", m.help.View(m.keys))

	return lipgloss.NewStyle().Padding(pad/2, pad).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) header() string {
	return lipgloss.JoinHorizontal(lipgloss.Center,
		m.theme.Title.Render(m.title),
		"  ",
		m.theme.Badge.Render(string(m.result.Strategy)),
	)
}

func (m *Model) measurement(opts tracker.Options) string {
	parts := []string{fmt.Sprintf("%d×%d cells", m.width, m.height)}

	if w, ok := m.result.Width(); ok {
		parts = append(parts, "width "+breakpoint.FormatLength(breakpoint.Convert(w, opts.Unit), opts.Unit))
	} else {
		parts = append(parts, "width not measured")
	}

	if opts.Strategy == tracker.StrategyContinuous {
		if opts.TrackWidth {
			parts = append(parts, "tracking width")
		} else {
			parts = append(parts, "snapping to breakpoints")
		}
	}
	return strings.Join(parts, " · ")
}

// ruler draws the breakpoint ranges across cols columns with a marker at
// the terminal width.
func (m *Model) ruler(cols int, unit breakpoint.Unit) string {
	largest, ok := m.sorted.Largest()
	if !ok {
		return ""
	}

	spanPx := math.Max(largest.Threshold*unitScale(unit)*1.25, float64(m.width)+1)
	pxPerCol := spanPx / float64(cols)

	rank := make(map[string]int, len(m.sorted))
	for i, b := range m.sorted {
		rank[b.Name] = len(m.sorted) - 1 - i
	}

	var bar strings.Builder
	for c := 0; c < cols; c++ {
		b, _ := m.sorted.Floor(breakpoint.Convert(float64(c)*pxPerCol, unit))
		bar.WriteString(m.theme.Segment(rank[b.Name]).Render(rulerGlyph))
	}

	at := min(int(float64(m.width)/pxPerCol), cols-1)
	marker := strings.Repeat(" ", max(at, 0)) + m.theme.Marker.Render(markerGlyph)

	return lipgloss.JoinVertical(lipgloss.Left, marker, bar.String())
}

func unitScale(unit breakpoint.Unit) float64 {
	if unit == breakpoint.UnitEm {
		return breakpoint.BaseFontSize
	}
	return 1
}

func (m *Model) table(unit breakpoint.Unit) string {
	queries := breakpoint.Compile(m.sorted, unit)

	nameWidth := 0
	for _, q := range queries {
		nameWidth = max(nameWidth, lipgloss.Width(q.Name))
	}

	rows := make([]string, 0, len(queries))
	for _, q := range queries {
		style, dot := m.theme.RowInactive, idleDot
		if q.Name == m.result.Current {
			style, dot = m.theme.RowActive, activeDot
		}
		row := fmt.Sprintf("%s %-*s  ≥ %-8s %s",
			dot, nameWidth, q.Name, breakpoint.FormatLength(q.Threshold, unit), q.Media)
		rows = append(rows, style.Render(row))
	}

	return m.theme.Box.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) ruleStatus() string {
	ok, err := m.rule.Evaluate(m.result)
	switch {
	case err != nil:
		return m.theme.Hidden.Render("rule: " + err.Error())
	case ok:
		return m.theme.Visible.Render("rule: visible")
	default:
		return m.theme.Hidden.Render("rule: hidden")
	}
}
