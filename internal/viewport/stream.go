package viewport

import "sync"

// Stream is a viewport fed by a channel of sizes, such as the window
// change notifications of an SSH session. Every received size replaces
// the current one and fires the resize listeners.
type Stream struct {
	listeners listenerSet

	mu   sync.RWMutex
	size Size

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewStream starts consuming updates. The stream stops when updates is
// closed or Close is called.
func NewStream(initial Size, updates <-chan Size) *Stream {
	s := &Stream{
		size:   initial,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.loop(updates)
	return s
}

func (s *Stream) loop(updates <-chan Size) {
	defer close(s.doneCh)

	for {
		select {
		case <-s.stopCh:
			return
		case size, ok := <-updates:
			if !ok {
				return
			}
			s.mu.Lock()
			s.size = size
			s.mu.Unlock()
			s.listeners.fire(EventResize)
		}
	}
}

// Size implements Viewport.
func (s *Stream) Size() Size {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Listen implements Viewport.
func (s *Stream) Listen(kind EventKind, fn func()) func() {
	return s.listeners.add(kind, fn)
}

// Done is closed once the stream has stopped consuming updates.
func (s *Stream) Done() <-chan struct{} {
	return s.doneCh
}

// Close stops consuming updates and waits for the consumer to exit.
func (s *Stream) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.doneCh
}
