// Package tracker keeps the resolved breakpoint of a viewport up to date.
//
// Two strategies are offered. A Continuous tracker reads the viewport size
// on every resize or orientation notification and resolves it against the
// breakpoint table. A Discrete tracker never reads a width: it subscribes
// to one boundary media query per breakpoint and resolves from their match
// states. A Session wraps either one behind a publish/subscribe boundary.
package tracker

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"vantage/internal/breakpoint"
	"vantage/internal/config"
	"vantage/internal/logger"
	"vantage/internal/metrics"
)

// ErrClosed is returned when a closed session is updated.
var ErrClosed = errors.New("tracker: session closed")

// Strategy selects how the resolved breakpoint is detected.
type Strategy string

const (
	// StrategyContinuous reads the viewport width.
	StrategyContinuous Strategy = "continuous"
	// StrategyDiscrete subscribes to boundary media queries.
	StrategyDiscrete Strategy = "discrete"
)

// ParseStrategy parses a strategy name. The empty string selects
// StrategyContinuous.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyContinuous:
		return StrategyContinuous, nil
	case StrategyDiscrete:
		return StrategyDiscrete, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (expected continuous or discrete)", s)
	}
}

// DefaultDebounceDelay is used when debouncing is enabled without a delay.
const DefaultDebounceDelay = 50 * time.Millisecond

// Debounce configures trailing-edge coalescing of resize notifications.
type Debounce struct {
	Enabled bool
	Delay   time.Duration
}

// Options is the construction input of a tracker or session.
type Options struct {
	// Breakpoints is required and must not be empty.
	Breakpoints breakpoint.Table
	// Unit of the thresholds; px when empty.
	Unit breakpoint.Unit
	// Strategy; continuous when empty.
	Strategy Strategy

	// DefaultBreakpoint is the discrete fallback name used when no query
	// matches. Empty means the smallest breakpoint.
	DefaultBreakpoint string

	// Hints for the continuous strategy when no width can be measured,
	// in the table's unit.
	GuessedWidth float64
	DefaultWidth float64

	// Debounce applies to resize notifications of the continuous strategy.
	// Orientation changes are never debounced.
	Debounce Debounce

	// TrackWidth publishes every width change, not only breakpoint changes.
	TrackWidth bool

	// IgnoreScreenSize makes the continuous strategy behave as if no
	// viewport were observable.
	IgnoreScreenSize bool
}

// normalize validates o and fills in defaults. The returned options own a
// private copy of the table.
func (o Options) normalize() (Options, breakpoint.Sorted, error) {
	if err := breakpoint.Validate(o.Breakpoints); err != nil {
		return Options{}, nil, err
	}
	o.Breakpoints = o.Breakpoints.Clone()

	unit, err := breakpoint.ParseUnit(string(o.Unit))
	if err != nil {
		return Options{}, nil, err
	}
	o.Unit = unit

	strategy, err := ParseStrategy(string(o.Strategy))
	if err != nil {
		return Options{}, nil, err
	}
	o.Strategy = strategy

	sorted := breakpoint.Sort(o.Breakpoints)
	if o.DefaultBreakpoint != "" {
		if _, ok := sorted.Lookup(o.DefaultBreakpoint); !ok {
			return Options{}, nil, &breakpoint.ConfigError{
				Err:    breakpoint.ErrUnknownBreakpoint,
				Detail: fmt.Sprintf("default breakpoint %q is not in the table", o.DefaultBreakpoint),
			}
		}
	}

	if o.Debounce.Enabled && o.Debounce.Delay <= 0 {
		o.Debounce.Delay = DefaultDebounceDelay
	}

	return o, sorted, nil
}

// Validate reports the configuration error NewSession would return for o.
func (o Options) Validate() error {
	_, _, err := o.normalize()
	return err
}

// hints returns the width hints in resolver form.
func (o Options) hints() breakpoint.Hints {
	return breakpoint.Hints{
		GuessedWidth: o.GuessedWidth,
		DefaultWidth: o.DefaultWidth,
	}
}

// OptionsFromConfig maps the loaded configuration onto tracker options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	unit, err := breakpoint.ParseUnit(cfg.Unit)
	if err != nil {
		return Options{}, err
	}
	strategy, err := ParseStrategy(cfg.Strategy)
	if err != nil {
		return Options{}, err
	}

	return Options{
		Breakpoints:       breakpoint.Table(cfg.Breakpoints).Clone(),
		Unit:              unit,
		Strategy:          strategy,
		DefaultBreakpoint: cfg.DefaultBreakpoint,
		GuessedWidth:      cfg.GuessedWidth,
		DefaultWidth:      cfg.DefaultWidth,
		Debounce: Debounce{
			Enabled: cfg.Debounce.Enabled,
			Delay:   cfg.Debounce.Delay,
		},
		TrackWidth: cfg.TrackWidth,
	}, nil
}

// Option configures the ambient dependencies of trackers and sessions.
type Option func(*settings)

type settings struct {
	log     *logger.Logger
	metrics *metrics.Metrics
	session *logger.SessionContext
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	s.log = logger.OrDiscard(s.log)
	return s
}

// WithLogger sets the logger. Without one nothing is logged.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) {
		s.log = l
	}
}

// WithMetrics records activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithSessionContext tags a session with an existing context instead of
// a freshly generated one.
func WithSessionContext(sc *logger.SessionContext) Option {
	return func(s *settings) {
		s.session = sc
	}
}

// Result is what a tracker publishes on every recomputation.
type Result struct {
	// Breakpoints is the table in effect. It is shared and must not be
	// modified.
	Breakpoints breakpoint.Table `json:"breakpoints" yaml:"breakpoints"`
	// Current is the resolved breakpoint name.
	Current string `json:"currentBreakpoint" yaml:"currentBreakpoint"`
	// ScreenWidth is the raw measured width; continuous strategy only.
	ScreenWidth *float64 `json:"screenWidth,omitempty" yaml:"screenWidth,omitempty"`
	// Strategy that produced the result.
	Strategy Strategy `json:"strategy" yaml:"strategy"`
}

// Width returns the measured width and whether the result carries one.
func (r Result) Width() (float64, bool) {
	if r.ScreenWidth == nil {
		return 0, false
	}
	return *r.ScreenWidth, true
}
