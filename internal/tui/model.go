// Package tui renders a live view of the resolved breakpoint with Bubble
// Tea. The terminal is the viewport: window size messages drive a
// simulated viewport, a tracker session resolves it, and the session's
// results are fed back into the program as messages.
package tui

import (
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"vantage/internal/breakpoint"
	"vantage/internal/condition"
	"vantage/internal/logger"
	"vantage/internal/tracker"
	"vantage/internal/viewport"
)

// ResultMsg carries a result published by the session.
type ResultMsg tracker.Result

// ErrorMsg reports a failed option change.
type ErrorMsg struct{ Err error }

// Model is the Bubble Tea model of the breakpoint view.
type Model struct {
	sim     *viewport.Simulated
	session *tracker.Session

	results     <-chan tracker.Result
	done        chan struct{}
	unsubscribe func()
	closeOnce   sync.Once

	result tracker.Result
	sorted breakpoint.Sorted
	rule   *condition.Rule
	err    error

	width  int
	height int

	title    string
	theme    *Theme
	keys     keyMap
	help     help.Model
	padding  Responsive[int]
	quitting bool
}

// Option configures a Model.
type Option func(*modelConfig)

type modelConfig struct {
	title   string
	theme   *Theme
	rule    *condition.Rule
	width   int
	height  int
	tracker []tracker.Option
}

// WithTitle sets the header title.
func WithTitle(title string) Option {
	return func(c *modelConfig) {
		c.title = title
	}
}

// WithTheme sets the theme.
func WithTheme(theme *Theme) Option {
	return func(c *modelConfig) {
		c.theme = theme
	}
}

// WithRule shows whether rule holds for the current result.
func WithRule(rule condition.Rule) Option {
	return func(c *modelConfig) {
		c.rule = &rule
	}
}

// WithInitialSize sets the viewport size before the first window size
// message arrives.
func WithInitialSize(width, height int) Option {
	return func(c *modelConfig) {
		c.width = width
		c.height = height
	}
}

// WithTrackerOptions passes options to the underlying session.
func WithTrackerOptions(opts ...tracker.Option) Option {
	return func(c *modelConfig) {
		c.tracker = append(c.tracker, opts...)
	}
}

// New creates the model and starts its session. Close must be called
// when the program ends.
func New(opts tracker.Options, options ...Option) (*Model, error) {
	cfg := modelConfig{title: "vantage"}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.theme == nil {
		cfg.theme = DefaultTheme()
	}

	sim := viewport.NewSimulated(float64(cfg.width), float64(cfg.height))
	session, err := tracker.NewSession(opts, tracker.Platform{
		Viewport: sim,
		Matcher:  sim.MediaMatcher(),
	}, cfg.tracker...)
	if err != nil {
		return nil, err
	}

	m := &Model{
		sim:     sim,
		session: session,
		done:    make(chan struct{}),
		rule:    cfg.rule,
		width:   cfg.width,
		height:  cfg.height,
		title:   cfg.title,
		theme:   cfg.theme,
		keys:    defaultKeys(),
		help:    help.New(),
	}
	m.setResult(session.Current())
	m.results, m.unsubscribe = session.Watch()

	return m, nil
}

func (m *Model) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case r := <-m.results:
			return ResultMsg(r)
		case <-m.done:
			return nil
		}
	}
}

func (m *Model) setResult(r tracker.Result) {
	m.result = r
	m.sorted = breakpoint.Sort(r.Breakpoints)
	m.padding = NewResponsiveScale(m.sorted, 0, 1, 2)
}

// Session returns the model's session.
func (m *Model) Session() *tracker.Session {
	return m.session
}

// Result returns the result currently displayed.
func (m *Model) Result() tracker.Result {
	return m.result
}

// Close stops the session. It is safe to call more than once.
func (m *Model) Close() {
	m.closeOnce.Do(func() {
		m.unsubscribe()
		m.session.Close()
		close(m.done)
	})
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForResult()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.sim.Resize(float64(msg.Width), float64(msg.Height))
		return m, nil

	case ResultMsg:
		m.setResult(tracker.Result(msg))
		return m, m.waitForResult()

	case ErrorMsg:
		m.err = msg.Err
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Strategy):
			return m, m.switchStrategy()
		case key.Matches(msg, m.keys.Snap):
			return m, m.toggleTrackWidth()
		case key.Matches(msg, m.keys.Rotate):
			size := m.sim.Size()
			m.sim.Rotate(size.Width, size.Height)
		}
	}

	return m, nil
}

func (m *Model) switchStrategy() tea.Cmd {
	opts := m.session.Options()
	if opts.Strategy == tracker.StrategyDiscrete {
		opts.Strategy = tracker.StrategyContinuous
	} else {
		opts.Strategy = tracker.StrategyDiscrete
	}
	return m.update(opts)
}

func (m *Model) toggleTrackWidth() tea.Cmd {
	opts := m.session.Options()
	opts.TrackWidth = !opts.TrackWidth
	return m.update(opts)
}

func (m *Model) update(opts tracker.Options) tea.Cmd {
	if err := m.session.Update(opts); err != nil {
		return func() tea.Msg {
			return ErrorMsg{Err: logger.WrapError(err, "failed to update session")}
		}
	}
	m.err = nil
	return nil
}
