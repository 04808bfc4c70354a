package viewport

import (
	"os"
	"sync"

	"golang.org/x/term"
)

// Terminal is the viewport of a local terminal. Width and height are in
// cells. Resize notifications come from SIGWINCH where the platform has
// it; the watcher starts with the first listener.
type Terminal struct {
	fd        int
	listeners listenerSet

	startOnce sync.Once
	stopOnce  sync.Once
	sigCh     chan os.Signal
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewTerminal returns the viewport of the terminal on fd.
func NewTerminal(fd int) *Terminal {
	return &Terminal{
		fd:     fd,
		sigCh:  make(chan os.Signal, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// NewStdoutTerminal returns the viewport of the terminal on stdout.
func NewStdoutTerminal() *Terminal {
	return NewTerminal(int(os.Stdout.Fd()))
}

// IsTerminal reports whether the fd refers to a terminal.
func (t *Terminal) IsTerminal() bool {
	return term.IsTerminal(t.fd)
}

// Size implements Viewport. A descriptor that is not a terminal reports
// the zero size.
func (t *Terminal) Size() Size {
	w, h, err := term.GetSize(t.fd)
	if err != nil {
		return Size{}
	}
	return Size{Width: float64(w), Height: float64(h)}
}

// Listen implements Viewport.
func (t *Terminal) Listen(kind EventKind, fn func()) func() {
	remove := t.listeners.add(kind, fn)
	t.startOnce.Do(t.start)
	return remove
}

func (t *Terminal) start() {
	notifyResize(t.sigCh)
	go t.watch()
}

func (t *Terminal) watch() {
	defer close(t.doneCh)

	for {
		select {
		case <-t.stopCh:
			return
		case <-t.sigCh:
			t.listeners.fire(EventResize)
		}
	}
}

// Close stops the resize watcher if it was started.
func (t *Terminal) Close() {
	t.stopOnce.Do(func() {
		started := true
		t.startOnce.Do(func() { started = false })
		if !started {
			return
		}
		stopResize(t.sigCh)
		close(t.stopCh)
		<-t.doneCh
	})
}
