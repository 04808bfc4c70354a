package tracker

import (
	"sync"

	"vantage/internal/breakpoint"
	"vantage/internal/logger"
	"vantage/internal/metrics"
	"vantage/internal/viewport"
)

// Discrete resolves the breakpoint from the match states of the compiled
// boundary queries, one listener per query. It never reads a width.
type Discrete struct {
	table    breakpoint.Table
	sorted   breakpoint.Sorted
	fallback string
	publish  func(Result)
	log      *logger.Logger
	metrics  *metrics.Metrics

	queries []breakpoint.Query
	subs    []*viewport.Subscription

	// runMu serialises match map updates and publishing.
	runMu   sync.Mutex
	matches map[string]bool

	mu      sync.RWMutex
	current string
	closed  bool
}

// NewDiscrete subscribes to the boundary queries of opts through matcher.
// A nil matcher, a query the matcher rejects, or a list without a
// subscription API all degrade silently: the initial resolution still
// succeeds and falls back to the default breakpoint.
func NewDiscrete(matcher viewport.MediaMatcher, opts Options, publish func(Result), options ...Option) (*Discrete, error) {
	norm, sorted, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	return newDiscrete(matcher, norm, sorted, publish, newSettings(options)), nil
}

func newDiscrete(matcher viewport.MediaMatcher, opts Options, sorted breakpoint.Sorted, publish func(Result), s settings) *Discrete {
	if publish == nil {
		publish = func(Result) {}
	}

	fallback := opts.DefaultBreakpoint
	if fallback == "" {
		smallest, _ := sorted.Smallest()
		fallback = smallest.Name
	}

	d := &Discrete{
		table:    opts.Breakpoints,
		sorted:   sorted,
		fallback: fallback,
		publish:  publish,
		log:      s.log.With("strategy", string(StrategyDiscrete)),
		metrics:  s.metrics,
		queries:  breakpoint.Compile(sorted, opts.Unit),
		matches:  make(map[string]bool, len(sorted)),
	}

	d.runMu.Lock()
	defer d.runMu.Unlock()

	if matcher == nil {
		d.log.Debug("no media matcher available, using static resolution")
	} else {
		for _, q := range d.queries {
			d.subscribe(matcher, q)
		}
	}

	d.current = d.resolve()
	d.log.Debug("initial breakpoint resolved", "breakpoint", d.current)
	return d
}

// subscribe attaches the listener for q and records its initial state.
// Must be called with runMu held.
func (d *Discrete) subscribe(matcher viewport.MediaMatcher, q breakpoint.Query) {
	list, err := matcher.MatchMedia(q.Media)
	if err != nil {
		d.log.Debug("media query rejected", "breakpoint", q.Name, "query", q.Media, logger.WithError(err))
		return
	}

	name := q.Name
	sub := viewport.Listen(list, func(e viewport.ChangeEvent) {
		d.onChange(name, e.Matches)
	})
	if sub.Kind() == viewport.SubscriptionNone {
		d.log.Debug("media query list cannot be observed", "breakpoint", name, "query", q.Media)
	}
	d.subs = append(d.subs, sub)
	d.matches[name] = list.Matches()
}

// resolve returns the largest breakpoint whose query matches, or the
// fallback. Must be called with runMu held.
func (d *Discrete) resolve() string {
	d.metrics.Resolved(string(StrategyDiscrete))
	for _, b := range d.sorted {
		if d.matches[b.Name] {
			return b.Name
		}
	}
	return d.fallback
}

func (d *Discrete) onChange(name string, matches bool) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	d.mu.RLock()
	closed, prev := d.closed, d.current
	d.mu.RUnlock()
	if closed {
		return
	}

	d.matches[name] = matches
	next := d.resolve()
	if next == prev {
		return
	}

	d.mu.Lock()
	d.current = next
	d.mu.Unlock()

	d.metrics.Changed(string(StrategyDiscrete), next)
	d.log.Debug("breakpoint changed", "from", prev, "breakpoint", next, "query", name, "matches", matches)
	d.publish(d.result(next))
}

func (d *Discrete) result(name string) Result {
	return Result{
		Breakpoints: d.table,
		Current:     name,
		Strategy:    StrategyDiscrete,
	}
}

// Current returns the latest result.
func (d *Discrete) Current() Result {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.result(d.current)
}

// Subscriptions returns how each query is observed, in query order.
func (d *Discrete) Subscriptions() []viewport.SubscriptionKind {
	kinds := make([]viewport.SubscriptionKind, len(d.subs))
	for i, sub := range d.subs {
		kinds[i] = sub.Kind()
	}
	return kinds
}

// Close removes every listener through the API it was added with. No
// publish happens after Close returns. Close must not be called from the
// publish callback.
func (d *Discrete) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	for _, sub := range d.subs {
		sub.Unsubscribe()
	}

	d.runMu.Lock()
	d.runMu.Unlock()
}
