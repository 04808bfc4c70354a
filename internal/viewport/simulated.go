package viewport

import (
	"sort"
	"sync"
)

// Capability selects how much of the media query API a Simulated
// viewport exposes.
type Capability int

const (
	// CapabilityModern exposes lists implementing EventTarget.
	CapabilityModern Capability = iota
	// CapabilityLegacy exposes lists implementing LegacyListenerList only.
	CapabilityLegacy
	// CapabilityMatchOnly exposes lists that report a match state but
	// cannot be subscribed to.
	CapabilityMatchOnly
	// CapabilityNone exposes no media query matcher at all.
	CapabilityNone
)

// Simulated is an in-memory viewport whose size is set by the caller.
// It backs the Bubble Tea front end (fed from window size messages) and
// the tests. Its media query lists are evaluated against the simulated
// width and notify their listeners when their match state flips.
type Simulated struct {
	listeners listenerSet

	mu         sync.Mutex
	size       Size
	capability Capability
	nextToken  ListenerToken
	live       map[*simList]struct{}
}

// SimulatedOption configures a Simulated viewport.
type SimulatedOption func(*Simulated)

// WithCapability sets the media query capability level.
func WithCapability(c Capability) SimulatedOption {
	return func(s *Simulated) {
		s.capability = c
	}
}

// NewSimulated creates a viewport of the given raw size.
func NewSimulated(width, height float64, opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		size: Size{Width: width, Height: height},
		live: make(map[*simList]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Size implements Viewport.
func (s *Simulated) Size() Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Listen implements Viewport.
func (s *Simulated) Listen(kind EventKind, fn func()) func() {
	return s.listeners.add(kind, fn)
}

// ListenerCount returns the number of registered viewport listeners.
func (s *Simulated) ListenerCount(kind EventKind) int {
	return s.listeners.count(kind)
}

// MediaListenerCount returns the number of change listeners attached to
// media query lists, across both APIs.
func (s *Simulated) MediaListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for l := range s.live {
		n += len(l.listeners)
	}
	return n
}

// Resize sets the size and fires resize listeners, then notifies media
// query lists whose state changed.
func (s *Simulated) Resize(width, height float64) {
	s.set(Size{Width: width, Height: height}, EventResize)
}

// Rotate sets the size as an orientation change would.
func (s *Simulated) Rotate(width, height float64) {
	s.set(Size{Width: width, Height: height}, EventOrientation)
}

type pendingChange struct {
	event     ChangeEvent
	listeners []ChangeListener
}

func (s *Simulated) set(size Size, kind EventKind) {
	s.mu.Lock()
	s.size = size

	var starting, stopping []pendingChange
	for l := range s.live {
		now := l.query.Matches(size.Width)
		if now == l.matches {
			continue
		}
		l.matches = now
		change := pendingChange{
			event:     ChangeEvent{Matches: now, Media: l.query.String()},
			listeners: l.snapshot(),
		}
		if now {
			starting = append(starting, change)
		} else {
			stopping = append(stopping, change)
		}
	}
	s.mu.Unlock()

	s.listeners.fire(kind)

	// Lists that start matching are notified first so that observers
	// never see a moment where no list matches.
	for _, batch := range [][]pendingChange{starting, stopping} {
		for _, change := range batch {
			for _, fn := range change.listeners {
				fn(change.event)
			}
		}
	}
}

// MediaMatcher returns the viewport's matcher, or nil when the
// capability is CapabilityNone.
func (s *Simulated) MediaMatcher() MediaMatcher {
	if s.capability == CapabilityNone {
		return nil
	}
	return simMatcher{s}
}

type simMatcher struct {
	s *Simulated
}

func (m simMatcher) MatchMedia(query string) (MediaQueryList, error) {
	q, err := ParseMediaQuery(query)
	if err != nil {
		return nil, err
	}

	l := &simList{sim: m.s, query: q, listeners: make(map[ListenerToken]ChangeListener)}
	switch m.s.capability {
	case CapabilityModern:
		return modernList{l}, nil
	case CapabilityLegacy:
		return legacyList{l}, nil
	default:
		return l, nil
	}
}

// simList is a media query list bound to a Simulated viewport. It is
// tracked for change notifications only while it has listeners.
type simList struct {
	sim       *Simulated
	query     *MediaQuery
	matches   bool
	listeners map[ListenerToken]ChangeListener
}

func (l *simList) Media() string {
	return l.query.String()
}

func (l *simList) Matches() bool {
	return l.query.Matches(l.sim.Size().Width)
}

// snapshot must be called with sim.mu held.
func (l *simList) snapshot() []ChangeListener {
	tokens := make([]ListenerToken, 0, len(l.listeners))
	for token := range l.listeners {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })

	fns := make([]ChangeListener, len(tokens))
	for i, token := range tokens {
		fns[i] = l.listeners[token]
	}
	return fns
}

func (l *simList) add(fn ChangeListener) ListenerToken {
	s := l.sim
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextToken++
	token := s.nextToken
	if len(l.listeners) == 0 {
		l.matches = l.query.Matches(s.size.Width)
		s.live[l] = struct{}{}
	}
	l.listeners[token] = fn
	return token
}

func (l *simList) remove(token ListenerToken) {
	s := l.sim
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(l.listeners, token)
	if len(l.listeners) == 0 {
		delete(s.live, l)
	}
}

type modernList struct {
	*simList
}

func (l modernList) AddEventListener(event string, fn ChangeListener) ListenerToken {
	if event != ChangeEventType {
		return 0
	}
	return l.add(fn)
}

func (l modernList) RemoveEventListener(event string, token ListenerToken) {
	if event != ChangeEventType {
		return
	}
	l.remove(token)
}

type legacyList struct {
	*simList
}

func (l legacyList) AddListener(fn ChangeListener) ListenerToken {
	return l.add(fn)
}

func (l legacyList) RemoveListener(token ListenerToken) {
	l.remove(token)
}
