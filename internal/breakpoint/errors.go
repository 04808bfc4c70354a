package breakpoint

import (
	"errors"
	"fmt"
)

// Configuration errors. They are returned at construction time and are
// never recovered internally: a table without breakpoints has no valid
// resolved state.
var (
	ErrNoBreakpoints     = errors.New("no breakpoints given")
	ErrNotMapping        = errors.New("breakpoints must be a mapping of name to threshold")
	ErrEmptyBreakpoints  = errors.New("breakpoints must contain at least one entry")
	ErrInvalidThreshold  = errors.New("invalid breakpoint threshold")
	ErrInvalidUnit       = errors.New("invalid breakpoint unit")
	ErrUnknownBreakpoint = errors.New("unknown breakpoint")
)

// docsHint is appended to configuration errors shown to users.
const docsHint = "breakpoints are configured as name: threshold pairs, e.g. {mobile: 320, tablet: 768, desktop: 1200}"

// ConfigError describes an invalid breakpoint configuration.
type ConfigError struct {
	// Err is one of the sentinel errors above.
	Err error
	// Detail names the offending key or value, if any.
	Detail string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v (%s); %s", e.Err, e.Detail, docsHint)
	}
	return fmt.Sprintf("%v; %s", e.Err, docsHint)
}

// Unwrap returns the sentinel error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configError(err error, detail string) error {
	return &ConfigError{Err: err, Detail: detail}
}
