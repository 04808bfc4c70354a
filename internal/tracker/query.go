package tracker

import (
	"fmt"
	"sync"

	"vantage/internal/viewport"
)

// QueryWatcher tracks whether a single media query matches.
type QueryWatcher struct {
	query   string
	publish func(bool)
	sub     *viewport.Subscription

	runMu sync.Mutex

	mu      sync.RWMutex
	matches bool
	closed  bool
}

// WatchQuery evaluates query through matcher and calls publish whenever
// its match state flips. A nil matcher never matches and never publishes.
// A query the matcher rejects is an error.
func WatchQuery(matcher viewport.MediaMatcher, query string, publish func(matches bool), options ...Option) (*QueryWatcher, error) {
	s := newSettings(options)
	if publish == nil {
		publish = func(bool) {}
	}

	w := &QueryWatcher{query: query, publish: publish}
	if matcher == nil {
		s.log.Debug("no media matcher available, query never matches", "query", query)
		return w, nil
	}

	list, err := matcher.MatchMedia(query)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %q: %w", query, err)
	}

	w.runMu.Lock()
	defer w.runMu.Unlock()

	w.sub = viewport.Listen(list, func(e viewport.ChangeEvent) {
		w.onChange(e.Matches)
	})
	w.matches = list.Matches()
	return w, nil
}

func (w *QueryWatcher) onChange(matches bool) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	w.mu.Lock()
	if w.closed || w.matches == matches {
		w.mu.Unlock()
		return
	}
	w.matches = matches
	w.mu.Unlock()

	w.publish(matches)
}

// Query returns the watched query.
func (w *QueryWatcher) Query() string {
	return w.query
}

// Matches returns the current match state.
func (w *QueryWatcher) Matches() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.matches
}

// Subscription returns how the query is observed.
func (w *QueryWatcher) Subscription() viewport.SubscriptionKind {
	return w.sub.Kind()
}

// Close removes the listener. No publish happens after Close returns.
func (w *QueryWatcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	w.sub.Unsubscribe()

	w.runMu.Lock()
	w.runMu.Unlock()
}
