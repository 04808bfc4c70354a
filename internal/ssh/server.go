// Package ssh serves the breakpoint view over SSH. Every connection gets
// its own tracker session whose viewport is the client's terminal.
package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"

	"vantage/internal/condition"
	"vantage/internal/config"
	"vantage/internal/logger"
	"vantage/internal/metrics"
	"vantage/internal/tracker"
	"vantage/internal/tui"
)

// Server is the SSH server.
type Server struct {
	cfg     config.SSHConfig
	log     *logger.Logger
	metrics *metrics.Metrics
	theme   *tui.Theme
	rule    *condition.Rule
	limiter *RateLimiter
	keys    []ssh.PublicKey

	server   *ssh.Server
	listener net.Listener

	mu       sync.Mutex
	opts     tracker.Options
	sessions map[string]*liveSession
}

// liveSession is an open session. A non-empty strategy pins it to that
// strategy across option updates.
type liveSession struct {
	session  *tracker.Session
	strategy tracker.Strategy
}

func (l *liveSession) update(opts tracker.Options) error {
	if l.strategy != "" {
		opts.Strategy = l.strategy
	}
	return l.session.Update(opts)
}

// ServerOption configures the SSH server.
type ServerOption func(*Server)

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithMetrics records sessions in m.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTheme sets the TUI theme.
func WithTheme(theme *tui.Theme) ServerOption {
	return func(s *Server) {
		s.theme = theme
	}
}

// WithRule shows rule in every TUI session.
func WithRule(rule condition.Rule) ServerOption {
	return func(s *Server) {
		s.rule = &rule
	}
}

// NewServer creates a server resolving sessions with opts.
func NewServer(cfg config.SSHConfig, opts tracker.Options, options ...ServerOption) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		opts:     opts,
		limiter:  NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		sessions: make(map[string]*liveSession),
	}
	for _, opt := range options {
		opt(s)
	}
	s.log = logger.OrDiscard(s.log)

	if cfg.AuthorizedKeysPath != "" {
		keys, err := LoadAuthorizedKeys(cfg.AuthorizedKeysPath)
		if err != nil {
			return nil, err
		}
		s.keys = keys
	}

	return s, nil
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	srv, err := wish.NewServer(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(s.cfg.HostKeyPath),
		wish.WithPublicKeyAuth(s.publicKeyHandler),
		wish.WithIdleTimeout(s.cfg.IdleTimeout),
		wish.WithMaxTimeout(s.cfg.MaxTimeout),
		wish.WithMiddleware(
			s.commandMiddleware(),
			activeterm.Middleware(),
			s.limiter.Middleware(),
			logging.Middleware(),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create SSH server: %w", err)
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = srv
	s.listener = listener

	go func() {
		s.log.Info("starting SSH server", "addr", listener.Addr().String())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			s.log.Error("SSH server error", logger.ErrorGroup(err, true))
		}
	}()

	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down and closes every open session.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.log.Info("stopping SSH server")
	err := s.server.Shutdown(ctx)

	for _, live := range s.live() {
		live.session.Close()
	}

	return err
}

// SetOptions replaces the options of every open session and of the ones
// opened later. Invalid options leave everything unchanged.
func (s *Server) SetOptions(opts tracker.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()

	sessions := s.live()
	var errs []error
	for _, live := range sessions {
		if err := live.update(opts); err != nil && !errors.Is(err, tracker.ErrClosed) {
			errs = append(errs, fmt.Errorf("session %s: %w", live.session.ID(), err))
		}
	}
	s.log.Info("session options updated", "sessions", len(sessions))
	return errors.Join(errs...)
}

// SessionCount returns the number of open sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) options() tracker.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

func (s *Server) live() []*liveSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]*liveSession, 0, len(s.sessions))
	for _, live := range s.sessions {
		sessions = append(sessions, live)
	}
	return sessions
}

func (s *Server) track(sess *tracker.Session, strategy tracker.Strategy) {
	s.mu.Lock()
	s.sessions[sess.ID()] = &liveSession{session: sess, strategy: strategy}
	s.mu.Unlock()
}

func (s *Server) untrack(sess *tracker.Session) {
	s.mu.Lock()
	delete(s.sessions, sess.ID())
	s.mu.Unlock()
}

// publicKeyHandler accepts keys from the authorized keys file, or any key
// when none is configured.
func (s *Server) publicKeyHandler(ctx ssh.Context, key ssh.PublicKey) bool {
	fingerprint := Fingerprint(key)

	if len(s.keys) > 0 && !authorized(s.keys, key) {
		s.log.Warn("rejected public key",
			"user", ctx.User(),
			"remote", ctx.RemoteAddr().String(),
			"fingerprint", fingerprint,
		)
		return false
	}

	s.log.Debug("accepted public key",
		"user", ctx.User(),
		"remote", ctx.RemoteAddr().String(),
		"key_type", key.Type(),
		"fingerprint", fingerprint,
	)
	return true
}

func (s *Server) sessionContext(sess ssh.Session) *logger.SessionContext {
	sc := logger.NewSessionContext("ssh")
	sc.User = sess.User()
	sc.Remote = remoteHost(sess.RemoteAddr())
	return sc
}

func (s *Server) trackerOptions(sc *logger.SessionContext) []tracker.Option {
	return []tracker.Option{
		tracker.WithLogger(s.log),
		tracker.WithMetrics(s.metrics),
		tracker.WithSessionContext(sc),
	}
}

// commandMiddleware runs the TUI for plain logins and the line-oriented
// stream for "ssh host stream".
func (s *Server) commandMiddleware() wish.Middleware {
	teaMiddleware := bubbletea.Middleware(s.teaHandler)

	return func(next ssh.Handler) ssh.Handler {
		teaNext := teaMiddleware(next)
		return func(sess ssh.Session) {
			cmd := sess.Command()
			switch {
			case len(cmd) == 0:
				teaNext(sess)
			case cmd[0] == "stream":
				s.stream(sess)
				next(sess)
			default:
				wish.Fatalf(sess, "unknown command %q (try: stream)\n", cmd[0])
			}
		}
	}
}

func (s *Server) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, active := sess.Pty()
	if !active {
		return nil, nil
	}

	sc := s.sessionContext(sess)
	options := []tui.Option{
		tui.WithTitle("vantage · " + sess.User()),
		tui.WithInitialSize(pty.Window.Width, pty.Window.Height),
		tui.WithTrackerOptions(s.trackerOptions(sc)...),
	}
	if s.theme != nil {
		options = append(options, tui.WithTheme(s.theme))
	}
	if s.rule != nil {
		options = append(options, tui.WithRule(*s.rule))
	}

	model, err := tui.New(s.options(), options...)
	if err != nil {
		s.log.Error("failed to start session", "session_id", sc.ID, logger.ErrorGroup(err, false))
		wish.Fatalln(sess, "failed to start session:", err)
		return nil, nil
	}

	session := model.Session()
	s.track(session, "")
	go func() {
		<-sess.Context().Done()
		s.untrack(session)
		model.Close()
	}()

	return model, []tea.ProgramOption{tea.WithAltScreen()}
}
