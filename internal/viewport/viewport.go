// Package viewport defines the platform ports the trackers read from:
// a size reader with resize/orientation notifications and a media query
// matcher, plus the implementations used by the CLI, the SSH server and
// tests.
package viewport

import (
	"sort"
	"sync"
)

// Size is a viewport size in raw pixels (terminal cells for terminals).
// The zero Size means "not observable".
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// EventKind identifies a viewport notification stream.
type EventKind int

const (
	// EventResize fires when the viewport size changes.
	EventResize EventKind = iota
	// EventOrientation fires when the device orientation changes.
	EventOrientation
)

// String implements fmt.Stringer.
func (k EventKind) String() string {
	switch k {
	case EventResize:
		return "resize"
	case EventOrientation:
		return "orientationchange"
	default:
		return "unknown"
	}
}

// Viewport is the size-reading half of the platform.
type Viewport interface {
	// Size returns the current size.
	Size() Size
	// Listen registers fn for kind and returns a function that removes
	// it. The remove function is idempotent.
	Listen(kind EventKind, fn func()) (remove func())
}

// Static is a viewport that cannot be observed, as in server-side
// rendering: its size is always zero and it never notifies.
type Static struct{}

// Size implements Viewport.
func (Static) Size() Size { return Size{} }

// Listen implements Viewport. Nothing is registered.
func (Static) Listen(EventKind, func()) func() { return func() {} }

// listenerSet is the listener registry shared by the viewport
// implementations.
type listenerSet struct {
	mu   sync.Mutex
	next uint64
	fns  map[EventKind]map[uint64]func()
}

func (l *listenerSet) add(kind EventKind, fn func()) func() {
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[EventKind]map[uint64]func())
	}
	if l.fns[kind] == nil {
		l.fns[kind] = make(map[uint64]func())
	}
	l.next++
	id := l.next
	l.fns[kind][id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns[kind], id)
			l.mu.Unlock()
		})
	}
}

// snapshot returns the listeners of kind in registration order.
func (l *listenerSet) snapshot(kind EventKind) []func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]uint64, 0, len(l.fns[kind]))
	for id := range l.fns[kind] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fns := make([]func(), len(ids))
	for i, id := range ids {
		fns[i] = l.fns[kind][id]
	}
	return fns
}

func (l *listenerSet) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns[kind])
}

func (l *listenerSet) fire(kind EventKind) {
	for _, fn := range l.snapshot(kind) {
		fn()
	}
}
