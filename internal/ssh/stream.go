package ssh

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"

	"vantage/internal/logger"
	"vantage/internal/tracker"
	"vantage/internal/viewport"
)

// stream writes the session's results as JSON lines until the client
// disconnects. The client terminal is measured directly, so the session
// always uses the continuous strategy.
func (s *Server) stream(sess ssh.Session) {
	pty, windows, active := sess.Pty()
	if !active {
		wish.Fatalln(sess, "stream requires a terminal (ssh -t)")
		return
	}

	ctx := sess.Context()
	updates := make(chan viewport.Size)
	go forwardWindows(ctx, windows, updates)

	vp := viewport.NewStream(windowSize(pty.Window), updates)
	defer vp.Close()

	opts := s.options()
	opts.Strategy = tracker.StrategyContinuous

	sc := s.sessionContext(sess)
	session, err := tracker.NewSession(opts, tracker.Platform{Viewport: vp}, s.trackerOptions(sc)...)
	if err != nil {
		wish.Fatalln(sess, "failed to start session:", err)
		return
	}
	s.track(session, tracker.StrategyContinuous)
	defer func() {
		s.untrack(session)
		session.Close()
	}()

	results, unsubscribe := session.Watch()
	defer unsubscribe()

	enc := json.NewEncoder(sess)
	if err := enc.Encode(session.Current()); err != nil {
		return
	}

	for {
		select {
		case r := <-results:
			if err := enc.Encode(r); err != nil {
				s.log.Debug("stream write failed", "session_id", sc.ID, logger.WithError(err))
				return
			}
		case <-vp.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

// forwardWindows converts window change notifications into viewport sizes
// until ctx ends or windows is closed.
func forwardWindows(ctx context.Context, windows <-chan ssh.Window, updates chan<- viewport.Size) {
	defer close(updates)

	for {
		select {
		case <-ctx.Done():
			return
		case w, ok := <-windows:
			if !ok {
				return
			}
			select {
			case updates <- windowSize(w):
			case <-ctx.Done():
				return
			}
		}
	}
}

func windowSize(w ssh.Window) viewport.Size {
	return viewport.Size{Width: float64(w.Width), Height: float64(w.Height)}
}
