package tracker

import (
	"sync"

	"vantage/internal/breakpoint"
	"vantage/internal/logger"
	"vantage/internal/metrics"
	"vantage/internal/viewport"
)

// Continuous resolves the breakpoint from the measured viewport width and
// recomputes it on resize and orientation notifications.
type Continuous struct {
	vp         viewport.Viewport
	table      breakpoint.Table
	sorted     breakpoint.Sorted
	unit       breakpoint.Unit
	hints      breakpoint.Hints
	ignore     bool
	trackWidth bool
	publish    func(Result)
	log        *logger.Logger
	metrics    *metrics.Metrics

	debouncer *Debouncer
	removers  []func()

	// runMu serialises recomputation and publishing.
	runMu sync.Mutex

	mu     sync.RWMutex
	last   Result
	closed bool
}

// NewContinuous starts tracking vp. The initial result is available from
// Current; publish is called for every later change. A nil vp behaves as
// viewport.Static.
func NewContinuous(vp viewport.Viewport, opts Options, publish func(Result), options ...Option) (*Continuous, error) {
	norm, sorted, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	return newContinuous(vp, norm, sorted, publish, newSettings(options)), nil
}

func newContinuous(vp viewport.Viewport, opts Options, sorted breakpoint.Sorted, publish func(Result), s settings) *Continuous {
	if vp == nil {
		vp = viewport.Static{}
	}
	if publish == nil {
		publish = func(Result) {}
	}

	c := &Continuous{
		vp:         vp,
		table:      opts.Breakpoints,
		sorted:     sorted,
		unit:       opts.Unit,
		hints:      opts.hints(),
		ignore:     opts.IgnoreScreenSize,
		trackWidth: opts.TrackWidth,
		publish:    publish,
		log:        s.log.With("strategy", string(StrategyContinuous)),
		metrics:    s.metrics,
	}

	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.last = c.resolve()
	c.log.Debug("initial breakpoint resolved", "breakpoint", c.last.Current, "width", *c.last.ScreenWidth)

	if c.ignore {
		return c
	}

	if opts.Debounce.Enabled {
		c.debouncer = NewDebouncer(opts.Debounce.Delay, func() {
			c.recompute()
		})
	}

	c.removers = append(c.removers,
		vp.Listen(viewport.EventResize, c.onResize),
		vp.Listen(viewport.EventOrientation, c.onOrientation),
	)

	return c
}

func (c *Continuous) onResize() {
	c.metrics.ViewportEvent(viewport.EventResize.String())
	if c.debouncer == nil {
		c.recompute()
		return
	}
	if c.debouncer.Trigger() {
		c.metrics.Coalesced()
	}
}

func (c *Continuous) onOrientation() {
	c.metrics.ViewportEvent(viewport.EventOrientation.String())
	c.recompute()
}

// resolve reads the viewport and resolves it.
func (c *Continuous) resolve() Result {
	var width float64
	if !c.ignore {
		width = c.vp.Size().Width
	}

	// The table was validated at construction, so resolution cannot fail.
	name, _ := breakpoint.ResolveHints(width, c.unit, c.hints, c.sorted)
	c.metrics.Resolved(string(StrategyContinuous))

	return Result{
		Breakpoints: c.table,
		Current:     name,
		ScreenWidth: &width,
		Strategy:    StrategyContinuous,
	}
}

func (c *Continuous) recompute() {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.mu.RLock()
	closed, prev := c.closed, c.last
	c.mu.RUnlock()
	if closed {
		return
	}

	next := c.resolve()

	c.mu.Lock()
	c.last = next
	c.mu.Unlock()

	breakpointChanged := next.Current != prev.Current
	widthChanged := *next.ScreenWidth != *prev.ScreenWidth
	if !breakpointChanged && !(c.trackWidth && widthChanged) {
		return
	}

	if breakpointChanged {
		c.metrics.Changed(string(StrategyContinuous), next.Current)
		c.log.Debug("breakpoint changed", "from", prev.Current, "breakpoint", next.Current, "width", *next.ScreenWidth)
	}
	c.publish(next)
}

// Current returns the latest result.
func (c *Continuous) Current() Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Close removes every listener and cancels a pending debounced
// recomputation. No publish happens after Close returns. Close must not be
// called from the publish callback.
func (c *Continuous) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	if c.debouncer != nil {
		c.debouncer.Stop()
	}
	for _, remove := range c.removers {
		remove()
	}
	c.removers = nil

	// Wait for an in-flight recomputation to finish publishing.
	c.runMu.Lock()
	c.runMu.Unlock()
}
