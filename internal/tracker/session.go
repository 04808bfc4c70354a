package tracker

import (
	"sort"
	"sync"

	"vantage/internal/breakpoint"
	"vantage/internal/logger"
	"vantage/internal/metrics"
	"vantage/internal/viewport"
)

// Platform is the viewport capability a session reads from. Either field
// may be nil: a nil Viewport is never observable and a nil Matcher means
// no media query support.
type Platform struct {
	Viewport viewport.Viewport
	Matcher  viewport.MediaMatcher
}

// tracker is the part of Continuous and Discrete a Session drives.
type tracker interface {
	Current() Result
	Close()
}

// Session owns one tracker and fans its results out to subscribers.
// Sessions are independent: each has its own table, match map and size.
type Session struct {
	sc       *logger.SessionContext
	settings settings
	platform Platform
	log      *logger.Logger
	metrics  *metrics.Metrics

	// updateMu serialises Update and Close.
	updateMu   sync.Mutex
	// dispatchMu orders deliveries so the last one is the latest result.
	dispatchMu sync.Mutex

	mu      sync.Mutex
	opts    Options
	tracker tracker
	current Result
	seq     uint64 // bumped on every change of current
	gen     uint64
	closed  bool

	subMu   sync.RWMutex
	subs    map[uint64]func(Result)
	nextSub uint64
}

// NewSession validates opts and starts a tracker of the chosen strategy.
// Configuration errors are returned unchanged (see breakpoint.ConfigError).
func NewSession(opts Options, platform Platform, options ...Option) (*Session, error) {
	norm, sorted, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	s := newSettings(options)
	sc := s.session
	if sc == nil {
		sc = logger.NewSessionContext("local")
	}

	sess := &Session{
		sc:       sc,
		settings: s,
		platform: platform,
		log:      s.log.ForSession(sc),
		metrics:  s.metrics,
		opts:     norm,
		subs:     make(map[uint64]func(Result)),
	}
	sess.settings.log = sess.log

	sess.tracker = sess.build(norm, sorted, 0)
	sess.current = sess.tracker.Current()
	sess.metrics.SessionOpened()

	sess.log.Info("session started",
		"strategy", string(norm.Strategy),
		"unit", norm.Unit.String(),
		"breakpoints", len(norm.Breakpoints),
		"breakpoint", sess.current.Current,
	)
	return sess, nil
}

func (s *Session) build(opts Options, sorted breakpoint.Sorted, gen uint64) tracker {
	publish := func(r Result) { s.receive(gen, r) }

	if opts.Strategy == StrategyDiscrete {
		return newDiscrete(s.platform.Matcher, opts, sorted, publish, s.settings)
	}
	return newContinuous(s.platform.Viewport, opts, sorted, publish, s.settings)
}

// receive accepts results from the tracker of generation gen only.
func (s *Session) receive(gen uint64, r Result) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.current = r
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.publish(seq, r)
}

// publish delivers r unless a newer result has replaced it since it was
// stored as current.
func (s *Session) publish(seq uint64, r Result) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	stale := seq != s.seq
	s.mu.Unlock()
	if stale {
		return
	}
	s.dispatch(r)
}

func (s *Session) dispatch(r Result) {
	s.subMu.RLock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	fns := make(map[uint64]func(Result), len(s.subs))
	for id, fn := range s.subs {
		fns[id] = fn
	}
	s.subMu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fns[id](r)
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.sc.ID
}

// Context returns the session's logging context.
func (s *Session) Context() *logger.SessionContext {
	return s.sc
}

// Current returns the latest result.
func (s *Session) Current() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Options returns the normalised options in effect.
func (s *Session) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.opts
	o.Breakpoints = o.Breakpoints.Clone()
	return o
}

// Subscribe registers fn for every published result, in registration
// order. Callbacks run synchronously on the goroutine that caused the
// change and must not block or call Close. The returned function removes
// the subscription and is idempotent.
func (s *Session) Subscribe(fn func(Result)) (unsubscribe func()) {
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	s.subMu.Unlock()
	s.metrics.SubscriberAdded()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			_, ok := s.subs[id]
			delete(s.subs, id)
			s.subMu.Unlock()
			if ok {
				s.metrics.SubscriberRemoved()
			}
		})
	}
}

// Watch subscribes through a channel that holds the latest result not yet
// received; an unread result is replaced by a newer one. The returned
// function unsubscribes; the channel is never closed.
func (s *Session) Watch() (<-chan Result, func()) {
	ch := make(chan Result, 1)
	unsubscribe := s.Subscribe(func(r Result) {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- r:
		default:
		}
	})
	return ch, unsubscribe
}

// Update replaces the options. The tracker is rebuilt from scratch and the
// new result is published to every subscriber.
func (s *Session) Update(opts Options) error {
	norm, sorted, err := opts.normalize()
	if err != nil {
		return err
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	old := s.tracker
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	old.Close()
	t := s.build(norm, sorted, gen)

	s.mu.Lock()
	s.tracker = t
	s.opts = norm
	s.current = t.Current()
	s.seq++
	r, seq := s.current, s.seq
	s.mu.Unlock()

	s.log.Info("session options updated",
		"strategy", string(norm.Strategy),
		"breakpoints", len(norm.Breakpoints),
		"breakpoint", r.Current,
	)
	s.publish(seq, r)
	return nil
}

// SetBreakpoints replaces the breakpoint table, keeping the other options.
// An equal table is a no-op.
func (s *Session) SetBreakpoints(table breakpoint.Table) error {
	opts := s.Options()
	if opts.Breakpoints.Equal(table) {
		return nil
	}
	opts.Breakpoints = table
	return s.Update(opts)
}

// Close stops the tracker and drops every subscriber. It must not be
// called from a subscriber callback.
func (s *Session) Close() {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	t := s.tracker
	s.mu.Unlock()

	t.Close()

	s.subMu.Lock()
	n := len(s.subs)
	s.subs = make(map[uint64]func(Result))
	s.subMu.Unlock()
	for i := 0; i < n; i++ {
		s.metrics.SubscriberRemoved()
	}

	s.metrics.SessionClosed()
	s.log.Info("session closed")
}
