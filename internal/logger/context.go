package logger

import (
	"context"
	"log/slog"
	"os/user"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	sessionContextKey contextKey = "session_context"
	loggerContextKey  contextKey = "logger"
)

// SessionContext identifies one breakpoint session: a CLI invocation or
// one SSH connection.
type SessionContext struct {
	ID      string    `json:"session_id"`
	Origin  string    `json:"origin"`
	User    string    `json:"user,omitempty"`
	Remote  string    `json:"remote,omitempty"`
	Started time.Time `json:"started"`
}

// NewSessionContext creates a SessionContext with a fresh ID.
func NewSessionContext(origin string) *SessionContext {
	return &SessionContext{
		ID:      uuid.NewString(),
		Origin:  origin,
		Started: time.Now(),
	}
}

// NewCommandContext creates a SessionContext for a Cobra command run by
// the local user.
func NewCommandContext(cmd *cobra.Command) *SessionContext {
	sc := NewSessionContext(cmd.CommandPath())
	if u, err := user.Current(); err == nil {
		sc.User = u.Username
	}
	return sc
}

// WithSessionContext stores a SessionContext in the context.
func WithSessionContext(ctx context.Context, sc *SessionContext) context.Context {
	return context.WithValue(ctx, sessionContextKey, sc)
}

// SessionContextFrom retrieves the SessionContext from the context.
func SessionContextFrom(ctx context.Context) *SessionContext {
	if sc, ok := ctx.Value(sessionContextKey).(*SessionContext); ok {
		return sc
	}
	return nil
}

// WithLogger stores a Logger in the context.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, l)
}

// LoggerFrom retrieves the Logger from the context.
func LoggerFrom(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return l
	}
	return Default()
}

// LogAttrs returns the SessionContext as slog attributes.
func (sc *SessionContext) LogAttrs() []slog.Attr {
	if sc == nil {
		return nil
	}

	attrs := []slog.Attr{
		slog.String("session_id", sc.ID),
		slog.String("origin", sc.Origin),
	}
	if sc.User != "" {
		attrs = append(attrs, slog.String("user", sc.User))
	}
	if sc.Remote != "" {
		attrs = append(attrs, slog.String("remote", sc.Remote))
	}
	return attrs
}
