package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Accent colors shared with the TUI.
var (
	AccentColor = lipgloss.Color("45")  // Cyan
	MutedColor  = lipgloss.Color("243") // Medium gray

	// PrefixStyle renders the optional handler prefix.
	PrefixStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentColor)
)

// ConsoleHandler wraps charmbracelet/log to implement slog.Handler.
type ConsoleHandler struct {
	logger *charmlog.Logger
	writer io.Writer
	opts   ConsoleHandlerOptions
	attrs  []slog.Attr
	groups []string
}

// ConsoleHandlerOptions configures the console handler.
type ConsoleHandlerOptions struct {
	// Level is the minimum level to log.
	Level slog.Leveler
	// NoColor disables colored output.
	NoColor bool
	// TimeFormat is the format for timestamps.
	TimeFormat string
	// ShowCaller shows file:line in logs.
	ShowCaller bool
	// Prefix is prepended to all log messages.
	Prefix string
}

func levelStyle(label, color string) lipgloss.Style {
	return lipgloss.NewStyle().
		SetString(label).
		Bold(true).
		Foreground(lipgloss.Color(color))
}

// consoleStyles returns the level, key and value styles of the pretty format.
func consoleStyles() *charmlog.Styles {
	styles := charmlog.DefaultStyles()

	styles.Levels[charmlog.DebugLevel] = levelStyle("DBG", "63")
	styles.Levels[charmlog.InfoLevel] = levelStyle("INF", "42")
	styles.Levels[charmlog.WarnLevel] = levelStyle("WRN", "214")
	styles.Levels[charmlog.ErrorLevel] = levelStyle("ERR", "196")
	styles.Levels[charmlog.FatalLevel] = levelStyle("FTL", "231").Background(lipgloss.Color("196"))

	styles.Key = lipgloss.NewStyle().Foreground(AccentColor)
	styles.Value = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	styles.Separator = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styles.Timestamp = lipgloss.NewStyle().Foreground(MutedColor)
	styles.Caller = lipgloss.NewStyle().Foreground(lipgloss.Color("139")).Faint(true)
	styles.Prefix = PrefixStyle

	// "breakpoint" is the attribute everybody looks for.
	styles.Keys["breakpoint"] = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	styles.Values["breakpoint"] = lipgloss.NewStyle().Bold(true)

	return styles
}

func newCharmLogger(w io.Writer, opts ConsoleHandlerOptions) *charmlog.Logger {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		ReportCaller:    opts.ShowCaller,
		ReportTimestamp: true,
		TimeFormat:      opts.TimeFormat,
		Prefix:          opts.Prefix,
		Level:           charmLogLevel(opts.Level.Level()),
	})
	l.SetStyles(consoleStyles())
	if opts.NoColor {
		l.SetColorProfile(termenv.Ascii)
	}
	return l
}

// NewConsoleHandler creates a new charm-based console handler.
func NewConsoleHandler(w io.Writer, opts *ConsoleHandlerOptions) *ConsoleHandler {
	var o ConsoleHandlerOptions
	if opts != nil {
		o = *opts
	}
	if o.Level == nil {
		o.Level = slog.LevelInfo
	}
	if o.TimeFormat == "" {
		o.TimeFormat = time.TimeOnly
	}

	return &ConsoleHandler{
		logger: newCharmLogger(w, o),
		writer: w,
		opts:   o,
	}
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	kvs := make([]any, 0, (len(h.attrs)+r.NumAttrs())*2)

	// Handler-level attrs come first
	for _, attr := range h.attrs {
		kvs = h.appendAttr(kvs, attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		kvs = h.appendAttr(kvs, a)
		return true
	})

	switch {
	case r.Level >= slog.LevelError:
		h.logger.Error(r.Message, kvs...)
	case r.Level >= slog.LevelWarn:
		h.logger.Warn(r.Message, kvs...)
	case r.Level >= slog.LevelInfo:
		h.logger.Info(r.Message, kvs...)
	default:
		h.logger.Debug(r.Message, kvs...)
	}

	return nil
}

// appendAttr flattens attr into key/value pairs. Groups are joined with
// dots.
func (h *ConsoleHandler) appendAttr(kvs []any, attr slog.Attr) []any {
	key, value, ok := h.formatAttr(attr)
	if !ok {
		return kvs
	}
	return append(kvs, key, value)
}

func (h *ConsoleHandler) formatAttr(attr slog.Attr) (string, any, bool) {
	if attr.Key == "" {
		return "", nil, false
	}

	key := attr.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}

	if attr.Value.Kind() == slog.KindGroup {
		members := attr.Value.Group()
		if len(members) == 0 {
			return "", nil, false
		}
		parts := make([]string, 0, len(members))
		for _, m := range members {
			if k, v, ok := h.formatAttr(m); ok {
				parts = append(parts, fmt.Sprintf("%s=%v", k, v))
			}
		}
		return key, strings.Join(parts, " "), true
	}

	return key, formatSlogValue(attr.Value), true
}

// WithAttrs implements slog.Handler.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.attrs = append(c.attrs, attrs...)
	return c
}

// WithGroup implements slog.Handler.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.groups = append(c.groups, name)
	return c
}

func (h *ConsoleHandler) clone() *ConsoleHandler {
	return &ConsoleHandler{
		logger: h.logger,
		writer: h.writer,
		opts:   h.opts,
		attrs:  append([]slog.Attr{}, h.attrs...),
		groups: append([]string{}, h.groups...),
	}
}

// formatSlogValue converts slog.Value to a display value.
func formatSlogValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	default:
		return v.Any()
	}
}

// charmLogLevel converts slog.Level to charmlog.Level.
func charmLogLevel(level slog.Level) charmlog.Level {
	switch {
	case level >= slog.LevelError:
		return charmlog.ErrorLevel
	case level >= slog.LevelWarn:
		return charmlog.WarnLevel
	case level >= slog.LevelInfo:
		return charmlog.InfoLevel
	default:
		return charmlog.DebugLevel
	}
}
