package viewport

import "sync"

// ChangeEventType is the event name used by the modern listener API.
const ChangeEventType = "change"

// ChangeEvent is delivered when a media query list starts or stops
// matching.
type ChangeEvent struct {
	Matches bool
	Media   string
}

// ChangeListener receives change events.
type ChangeListener func(ChangeEvent)

// ListenerToken identifies a registered listener for removal.
type ListenerToken uint64

// MediaMatcher compiles a query string into a live MediaQueryList.
type MediaMatcher interface {
	MatchMedia(query string) (MediaQueryList, error)
}

// MediaQueryList reports the current match state of one query. A list
// may additionally implement EventTarget, LegacyListenerList, both, or
// neither; Listen picks the best one available.
type MediaQueryList interface {
	Media() string
	Matches() bool
}

// EventTarget is the modern subscription API.
type EventTarget interface {
	AddEventListener(event string, fn ChangeListener) ListenerToken
	RemoveEventListener(event string, token ListenerToken)
}

// LegacyListenerList is the deprecated callback-list subscription API.
type LegacyListenerList interface {
	AddListener(fn ChangeListener) ListenerToken
	RemoveListener(token ListenerToken)
}

// SubscriptionKind tells which API a Subscription was made through.
type SubscriptionKind int

const (
	// SubscriptionNone means the list offers no change notifications.
	SubscriptionNone SubscriptionKind = iota
	// SubscriptionLegacy means the deprecated callback-list API was used.
	SubscriptionLegacy
	// SubscriptionModern means the event-target API was used.
	SubscriptionModern
)

// String implements fmt.Stringer.
func (k SubscriptionKind) String() string {
	switch k {
	case SubscriptionModern:
		return "modern"
	case SubscriptionLegacy:
		return "legacy"
	default:
		return "none"
	}
}

// Subscription is one change listener attached to a MediaQueryList
// through whichever API the list supports.
type Subscription struct {
	mu     sync.Mutex
	kind   SubscriptionKind
	list   MediaQueryList
	token  ListenerToken
	active bool
}

// Listen attaches fn to list, preferring the modern API over the legacy
// one. Lists supporting neither yield a SubscriptionNone that never
// fires; Listen never fails.
func Listen(list MediaQueryList, fn ChangeListener) *Subscription {
	s := &Subscription{list: list}

	switch l := list.(type) {
	case EventTarget:
		s.kind = SubscriptionModern
		s.token = l.AddEventListener(ChangeEventType, fn)
		s.active = true
	case LegacyListenerList:
		s.kind = SubscriptionLegacy
		s.token = l.AddListener(fn)
		s.active = true
	default:
		s.kind = SubscriptionNone
	}

	return s
}

// Kind returns the API the subscription was made through.
func (s *Subscription) Kind() SubscriptionKind {
	if s == nil {
		return SubscriptionNone
	}
	return s.kind
}

// Unsubscribe detaches the listener through the same API it was
// attached with. It is safe to call more than once and on nil.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}
	s.active = false

	switch s.kind {
	case SubscriptionModern:
		s.list.(EventTarget).RemoveEventListener(ChangeEventType, s.token)
	case SubscriptionLegacy:
		s.list.(LegacyListenerList).RemoveListener(s.token)
	}
}
