package tracker

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"vantage/internal/breakpoint"
	"vantage/internal/config"
	"vantage/internal/metrics"
	"vantage/internal/viewport"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func devices() breakpoint.Table {
	return breakpoint.Table{"mobile": 320, "tablet": 768, "desktop": 1200}
}

// recorder collects published results.
type recorder struct {
	mu      sync.Mutex
	results []Result
	ch      chan Result
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Result, 64)}
}

func (r *recorder) publish(res Result) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
	r.ch <- res
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.results))
	for i, res := range r.results {
		names[i] = res.Current
	}
	return names
}

func (r *recorder) wait(t *testing.T) Result {
	t.Helper()
	select {
	case res := <-r.ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a result")
		return Result{}
	}
}

func expectMetric(t *testing.T, m *metrics.Metrics, name, expected string) {
	t.Helper()
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), name); err != nil {
		t.Errorf("unexpected %s: %v", name, err)
	}
}

func activeSessions(n int) string {
	return fmt.Sprintf(`
# HELP vantage_active_sessions Breakpoint sessions currently open.
# TYPE vantage_active_sessions gauge
vantage_active_sessions %d
`, n)
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ==================== Options Tests ====================

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyContinuous, false},
		{"continuous", StrategyContinuous, false},
		{" Discrete ", StrategyDiscrete, false},
		{"polling", "", true},
	}

	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("expected error for %q", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("unexpected error for %q: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"nil table", Options{}, breakpoint.ErrNoBreakpoints},
		{"empty table", Options{Breakpoints: breakpoint.Table{}}, breakpoint.ErrEmptyBreakpoints},
		{"bad unit", Options{Breakpoints: devices(), Unit: "rem"}, breakpoint.ErrInvalidUnit},
		{"unknown default", Options{Breakpoints: devices(), DefaultBreakpoint: "watch"}, breakpoint.ErrUnknownBreakpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.opts.normalize()
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	table := devices()
	opts, sorted, err := Options{Breakpoints: table, Debounce: Debounce{Enabled: true}}.normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if opts.Unit != breakpoint.UnitPx {
		t.Errorf("expected px, got %q", opts.Unit)
	}
	if opts.Strategy != StrategyContinuous {
		t.Errorf("expected continuous, got %q", opts.Strategy)
	}
	if opts.Debounce.Delay != DefaultDebounceDelay {
		t.Errorf("expected default delay, got %v", opts.Debounce.Delay)
	}
	if len(sorted) != 3 || sorted[0].Name != "desktop" {
		t.Errorf("expected descending list, got %v", sorted)
	}

	table["watch"] = 100
	if _, ok := opts.Breakpoints["watch"]; ok {
		t.Error("expected options to own a copy of the table")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Strategy = "discrete"
	cfg.Unit = "em"
	cfg.TrackWidth = true

	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Strategy != StrategyDiscrete {
		t.Errorf("expected discrete, got %q", opts.Strategy)
	}
	if opts.Unit != breakpoint.UnitEm {
		t.Errorf("expected em, got %q", opts.Unit)
	}
	if !opts.TrackWidth {
		t.Error("expected TrackWidth to be carried over")
	}
	if !opts.Debounce.Enabled || opts.Debounce.Delay != cfg.Debounce.Delay {
		t.Errorf("expected debounce %v, got %+v", cfg.Debounce, opts.Debounce)
	}
	if !opts.Breakpoints.Equal(breakpoint.Table(cfg.Breakpoints)) {
		t.Errorf("expected table %v, got %v", cfg.Breakpoints, opts.Breakpoints)
	}

	cfg.Strategy = "polling"
	if _, err := OptionsFromConfig(cfg); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

// ==================== Debouncer Tests ====================

func TestDebouncerCoalesces(t *testing.T) {
	calls := make(chan struct{}, 10)
	d := NewDebouncer(20*time.Millisecond, func() { calls <- struct{}{} })

	if d.Trigger() {
		t.Error("expected first trigger not to coalesce")
	}
	if !d.Trigger() {
		t.Error("expected second trigger to coalesce")
	}
	if !d.Pending() {
		t.Error("expected a pending call")
	}

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced function never ran")
	}

	select {
	case <-calls:
		t.Error("expected exactly one call")
	case <-time.After(60 * time.Millisecond):
	}

	if d.Pending() {
		t.Error("expected nothing pending after the call")
	}
}

func TestDebouncerStop(t *testing.T) {
	calls := make(chan struct{}, 10)
	d := NewDebouncer(10*time.Millisecond, func() { calls <- struct{}{} })

	d.Trigger()
	d.Stop()

	if d.Trigger() {
		t.Error("expected trigger after stop to be ignored")
	}

	select {
	case <-calls:
		t.Error("expected no call after stop")
	case <-time.After(50 * time.Millisecond):
	}
}

// ==================== Continuous Tests ====================

func TestContinuousInitial(t *testing.T) {
	vp := viewport.NewSimulated(1920, 1080)
	c, err := NewContinuous(vp, Options{Breakpoints: devices()}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	res := c.Current()
	if res.Current != "desktop" {
		t.Errorf("expected desktop, got %q", res.Current)
	}
	if w, ok := res.Width(); !ok || w != 1920 {
		t.Errorf("expected width 1920, got %v (%v)", w, ok)
	}
	if res.Strategy != StrategyContinuous {
		t.Errorf("expected continuous, got %q", res.Strategy)
	}
}

func TestContinuousResize(t *testing.T) {
	vp := viewport.NewSimulated(1920, 1080)
	rec := newRecorder()
	c, err := NewContinuous(vp, Options{Breakpoints: devices()}, rec.publish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	vp.Resize(800, 600)
	vp.Resize(810, 600) // same breakpoint
	vp.Resize(100, 600)

	want := []string{"tablet", "mobile"}
	if got := rec.names(); !equalNames(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if c.Current().Current != "mobile" {
		t.Errorf("expected mobile, got %q", c.Current().Current)
	}
}

func TestContinuousTrackWidth(t *testing.T) {
	vp := viewport.NewSimulated(800, 600)
	rec := newRecorder()
	c, err := NewContinuous(vp, Options{Breakpoints: devices(), TrackWidth: true}, rec.publish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	vp.Resize(810, 600)
	vp.Resize(810, 700) // width unchanged

	got := rec.names()
	if len(got) != 1 || got[0] != "tablet" {
		t.Errorf("expected one tablet result, got %v", got)
	}
	if w, _ := c.Current().Width(); w != 810 {
		t.Errorf("expected width 810, got %v", w)
	}
}

func TestContinuousEm(t *testing.T) {
	vp := viewport.NewSimulated(400, 300)
	table := breakpoint.Table{"sm": 10, "md": 20, "lg": 30}
	c, err := NewContinuous(vp, Options{Breakpoints: table, Unit: breakpoint.UnitEm}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	// 400px is 25em.
	if got := c.Current().Current; got != "md" {
		t.Errorf("expected md, got %q", got)
	}
}

func TestContinuousDebounce(t *testing.T) {
	vp := viewport.NewSimulated(1920, 1080)
	rec := newRecorder()
	m := metrics.New()
	opts := Options{
		Breakpoints: devices(),
		Debounce:    Debounce{Enabled: true, Delay: 20 * time.Millisecond},
	}
	c, err := NewContinuous(vp, opts, rec.publish, WithMetrics(m))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	vp.Resize(800, 600)
	vp.Resize(500, 600)
	vp.Resize(100, 600)

	if got := rec.names(); len(got) != 0 {
		t.Errorf("expected no result before the delay, got %v", got)
	}

	res := rec.wait(t)
	if res.Current != "mobile" {
		t.Errorf("expected mobile, got %q", res.Current)
	}

	select {
	case extra := <-rec.ch:
		t.Errorf("expected a single result, got another %q", extra.Current)
	case <-time.After(60 * time.Millisecond):
	}

	expectMetric(t, m, "vantage_debounce_coalesced_total", `
# HELP vantage_debounce_coalesced_total Resize notifications absorbed by a pending debounce timer.
# TYPE vantage_debounce_coalesced_total counter
vantage_debounce_coalesced_total 2
`)
}

func TestContinuousOrientationNotDebounced(t *testing.T) {
	vp := viewport.NewSimulated(1920, 1080)
	rec := newRecorder()
	opts := Options{
		Breakpoints: devices(),
		Debounce:    Debounce{Enabled: true, Delay: time.Hour},
	}
	c, err := NewContinuous(vp, opts, rec.publish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	vp.Rotate(768, 1024)

	if got := rec.names(); !equalNames(got, []string{"tablet"}) {
		t.Errorf("expected immediate tablet result, got %v", got)
	}
}

func TestContinuousIgnoreScreenSize(t *testing.T) {
	vp := viewport.NewSimulated(1920, 1080)
	rec := newRecorder()
	opts := Options{Breakpoints: devices(), IgnoreScreenSize: true, GuessedWidth: 800}
	c, err := NewContinuous(vp, opts, rec.publish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if got := c.Current().Current; got != "tablet" {
		t.Errorf("expected guessed tablet, got %q", got)
	}
	if w, _ := c.Current().Width(); w != 0 {
		t.Errorf("expected zero width, got %v", w)
	}
	if vp.ListenerCount(viewport.EventResize) != 0 {
		t.Error("expected no listeners when the screen size is ignored")
	}

	vp.Resize(100, 100)
	if got := rec.names(); len(got) != 0 {
		t.Errorf("expected no results, got %v", got)
	}
}

func TestContinuousStatic(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"smallest", Options{Breakpoints: devices()}, "mobile"},
		{"guessed", Options{Breakpoints: devices(), GuessedWidth: 1300, DefaultWidth: 800}, "desktop"},
		{"default", Options{Breakpoints: devices(), DefaultWidth: 800}, "tablet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewContinuous(nil, tt.opts, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer c.Close()

			if got := c.Current().Current; got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestContinuousClose(t *testing.T) {
	vp := viewport.NewSimulated(1920, 1080)
	rec := newRecorder()
	opts := Options{
		Breakpoints: devices(),
		Debounce:    Debounce{Enabled: true, Delay: 10 * time.Millisecond},
	}
	c, err := NewContinuous(vp, opts, rec.publish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if vp.ListenerCount(viewport.EventResize) != 1 || vp.ListenerCount(viewport.EventOrientation) != 1 {
		t.Fatal("expected one listener per event kind")
	}

	vp.Resize(100, 100) // pending when closed
	c.Close()
	c.Close()

	if n := vp.ListenerCount(viewport.EventResize); n != 0 {
		t.Errorf("expected resize listeners removed, got %d", n)
	}
	if n := vp.ListenerCount(viewport.EventOrientation); n != 0 {
		t.Errorf("expected orientation listeners removed, got %d", n)
	}

	select {
	case res := <-rec.ch:
		t.Errorf("expected no result after close, got %q", res.Current)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestContinuousInvalidOptions(t *testing.T) {
	_, err := NewContinuous(nil, Options{}, nil)
	var cfgErr *breakpoint.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError, got %v", err)
	}
}

// ==================== Discrete Tests ====================

func TestDiscreteNoMatcher(t *testing.T) {
	d, err := NewDiscrete(nil, Options{Breakpoints: devices()}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Close()

	res := d.Current()
	if res.Current != "mobile" {
		t.Errorf("expected mobile, got %q", res.Current)
	}
	if res.ScreenWidth != nil {
		t.Error("expected no screen width for the discrete strategy")
	}
	if len(d.Subscriptions()) != 0 {
		t.Errorf("expected no subscriptions, got %v", d.Subscriptions())
	}
}

func TestDiscreteCapabilities(t *testing.T) {
	tests := []struct {
		name       string
		capability viewport.Capability
		kind       viewport.SubscriptionKind
		listeners  int
	}{
		{"modern", viewport.CapabilityModern, viewport.SubscriptionModern, 3},
		{"legacy", viewport.CapabilityLegacy, viewport.SubscriptionLegacy, 3},
		{"match only", viewport.CapabilityMatchOnly, viewport.SubscriptionNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vp := viewport.NewSimulated(800, 600, viewport.WithCapability(tt.capability))
			d, err := NewDiscrete(vp.MediaMatcher(), Options{Breakpoints: devices()}, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := d.Current().Current; got != "tablet" {
				t.Errorf("expected tablet, got %q", got)
			}
			kinds := d.Subscriptions()
			if len(kinds) != 3 {
				t.Fatalf("expected 3 subscriptions, got %d", len(kinds))
			}
			for _, k := range kinds {
				if k != tt.kind {
					t.Errorf("expected %v, got %v", tt.kind, k)
				}
			}
			if n := vp.MediaListenerCount(); n != tt.listeners {
				t.Errorf("expected %d listeners, got %d", tt.listeners, n)
			}

			d.Close()
			d.Close()
			if n := vp.MediaListenerCount(); n != 0 {
				t.Errorf("expected all listeners removed, got %d", n)
			}
		})
	}
}

// mixedMatcher rejects some queries and strips the listener API from
// others before handing lists out.
type mixedMatcher struct {
	inner     viewport.MediaMatcher
	rejected  map[string]bool
	matchOnly map[string]bool
}

// matchOnlyList exposes only the match state of a list.
type matchOnlyList struct {
	viewport.MediaQueryList
}

func (m mixedMatcher) MatchMedia(query string) (viewport.MediaQueryList, error) {
	if m.rejected[query] {
		return nil, fmt.Errorf("unsupported query %q", query)
	}
	list, err := m.inner.MatchMedia(query)
	if err != nil {
		return nil, err
	}
	if m.matchOnly[query] {
		return matchOnlyList{list}, nil
	}
	return list, nil
}

func TestDiscreteMixedCapabilities(t *testing.T) {
	queries := breakpoint.QueryMap(breakpoint.Sort(devices()), breakpoint.UnitPx)
	vp := viewport.NewSimulated(800, 600)
	matcher := mixedMatcher{
		inner:     vp.MediaMatcher(),
		rejected:  map[string]bool{queries["tablet"]: true},
		matchOnly: map[string]bool{queries["mobile"]: true},
	}

	rec := newRecorder()
	d, err := NewDiscrete(matcher, Options{Breakpoints: devices()}, rec.publish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := d.Current().Current; got != "mobile" {
		t.Errorf("expected mobile, got %q", got)
	}

	want := []viewport.SubscriptionKind{viewport.SubscriptionModern, viewport.SubscriptionNone}
	kinds := d.Subscriptions()
	if len(kinds) != len(want) {
		t.Fatalf("expected %d subscriptions, got %v", len(want), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("expected subscription %d to be %v, got %v", i, want[i], kinds[i])
		}
	}
	if n := vp.MediaListenerCount(); n != 1 {
		t.Errorf("expected 1 listener, got %d", n)
	}

	vp.Resize(1300, 600)
	vp.Resize(100, 600)
	if got := rec.names(); !equalNames(got, []string{"desktop", "mobile"}) {
		t.Errorf("expected [desktop mobile], got %v", got)
	}

	d.Close()
	d.Close()
	if n := vp.MediaListenerCount(); n != 0 {
		t.Errorf("expected all listeners removed, got %d", n)
	}

	vp.Resize(1300, 600)
	if got := len(rec.names()); got != 2 {
		t.Errorf("expected no publish after close, got %d results", got)
	}
}

func TestDiscreteChanges(t *testing.T) {
	vp := viewport.NewSimulated(1920, 1080)
	rec := newRecorder()
	d, err := NewDiscrete(vp.MediaMatcher(), Options{Breakpoints: devices()}, rec.publish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Close()

	if got := d.Current().Current; got != "desktop" {
		t.Fatalf("expected desktop, got %q", got)
	}

	vp.Resize(800, 600)
	vp.Resize(1000, 600)
	vp.Resize(100, 600)
	vp.Resize(1200, 600)

	want := []string{"tablet", "mobile", "desktop"}
	if got := rec.names(); !equalNames(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDiscreteLegacyChanges(t *testing.T) {
	vp := viewport.NewSimulated(100, 100, viewport.WithCapability(viewport.CapabilityLegacy))
	rec := newRecorder()
	d, err := NewDiscrete(vp.MediaMatcher(), Options{Breakpoints: devices()}, rec.publish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Close()

	vp.Resize(768, 100)

	if got := rec.names(); !equalNames(got, []string{"tablet"}) {
		t.Errorf("expected [tablet], got %v", got)
	}
}

func TestDiscreteDefaultBreakpoint(t *testing.T) {
	opts := Options{Breakpoints: devices(), DefaultBreakpoint: "desktop"}
	d, err := NewDiscrete(nil, opts, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Close()

	if got := d.Current().Current; got != "desktop" {
		t.Errorf("expected desktop, got %q", got)
	}

	opts.DefaultBreakpoint = "watch"
	if _, err := NewDiscrete(nil, opts, nil); !errors.Is(err, breakpoint.ErrUnknownBreakpoint) {
		t.Errorf("expected ErrUnknownBreakpoint, got %v", err)
	}
}

func TestDiscreteSingleBreakpoint(t *testing.T) {
	vp := viewport.NewSimulated(5, 5)
	d, err := NewDiscrete(vp.MediaMatcher(), Options{Breakpoints: breakpoint.Table{"xs": 1}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Close()

	if got := d.Current().Current; got != "xs" {
		t.Errorf("expected xs, got %q", got)
	}
}

func TestDiscreteCloseStopsPublishing(t *testing.T) {
	vp := viewport.NewSimulated(1920, 1080)
	rec := newRecorder()
	d, err := NewDiscrete(vp.MediaMatcher(), Options{Breakpoints: devices()}, rec.publish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d.Close()
	vp.Resize(100, 100)

	if got := rec.names(); len(got) != 0 {
		t.Errorf("expected no results after close, got %v", got)
	}
}

// ==================== QueryWatcher Tests ====================

func TestWatchQuery(t *testing.T) {
	vp := viewport.NewSimulated(1000, 800)
	var got []bool
	w, err := WatchQuery(vp.MediaMatcher(), "(min-width: 768px)", func(m bool) { got = append(got, m) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !w.Matches() {
		t.Error("expected initial match")
	}
	if w.Query() != "(min-width: 768px)" {
		t.Errorf("expected query to be kept, got %q", w.Query())
	}
	if w.Subscription() != viewport.SubscriptionModern {
		t.Errorf("expected modern subscription, got %v", w.Subscription())
	}

	vp.Resize(500, 800)
	vp.Resize(400, 800)
	vp.Resize(900, 800)

	if len(got) != 2 || got[0] || !got[1] {
		t.Errorf("expected [false true], got %v", got)
	}

	w.Close()
	w.Close()
	if n := vp.MediaListenerCount(); n != 0 {
		t.Errorf("expected no listeners after close, got %d", n)
	}
	vp.Resize(100, 100)
	if len(got) != 2 {
		t.Errorf("expected no publish after close, got %v", got)
	}
}

func TestWatchQueryNoMatcher(t *testing.T) {
	w, err := WatchQuery(nil, "(min-width: 768px)", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Close()

	if w.Matches() {
		t.Error("expected no match without a matcher")
	}
	if w.Subscription() != viewport.SubscriptionNone {
		t.Errorf("expected no subscription, got %v", w.Subscription())
	}
}

func TestWatchQueryInvalid(t *testing.T) {
	vp := viewport.NewSimulated(1000, 800)
	if _, err := WatchQuery(vp.MediaMatcher(), "(orientation: portrait)", nil); err == nil {
		t.Error("expected error for unsupported query")
	}
}

// ==================== Session Tests ====================

func TestSessionContinuous(t *testing.T) {
	vp := viewport.NewSimulated(1920, 1080)
	m := metrics.New()
	s, err := NewSession(Options{Breakpoints: devices()}, Platform{Viewport: vp}, WithMetrics(m))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.ID() == "" {
		t.Error("expected a session ID")
	}
	if s.Current().Current != "desktop" {
		t.Errorf("expected desktop, got %q", s.Current().Current)
	}
	expectMetric(t, m, "vantage_active_sessions", activeSessions(1))

	var first, second []string
	unsubFirst := s.Subscribe(func(r Result) { first = append(first, r.Current) })
	s.Subscribe(func(r Result) { second = append(second, r.Current+"!") })

	vp.Resize(800, 600)
	unsubFirst()
	unsubFirst()
	vp.Resize(100, 600)

	if !equalNames(first, []string{"tablet"}) {
		t.Errorf("expected [tablet], got %v", first)
	}
	if !equalNames(second, []string{"tablet!", "mobile!"}) {
		t.Errorf("expected [tablet! mobile!], got %v", second)
	}

	s.Close()
	s.Close()
	vp.Resize(1920, 1080)
	if len(second) != 2 {
		t.Errorf("expected no results after close, got %v", second)
	}
	if vp.ListenerCount(viewport.EventResize) != 0 {
		t.Error("expected listeners removed on close")
	}
	expectMetric(t, m, "vantage_active_sessions", activeSessions(0))
	expectMetric(t, m, "vantage_active_subscribers", `
# HELP vantage_active_subscribers Result subscribers attached to open sessions.
# TYPE vantage_active_subscribers gauge
vantage_active_subscribers 0
`)
}

func TestSessionDiscrete(t *testing.T) {
	vp := viewport.NewSimulated(800, 600)
	opts := Options{Breakpoints: devices(), Strategy: StrategyDiscrete}
	s, err := NewSession(opts, Platform{Viewport: vp, Matcher: vp.MediaMatcher()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	if s.Current().Current != "tablet" {
		t.Errorf("expected tablet, got %q", s.Current().Current)
	}
	if vp.ListenerCount(viewport.EventResize) != 0 {
		t.Error("expected the discrete strategy not to listen for resizes")
	}
	if vp.MediaListenerCount() != 3 {
		t.Errorf("expected 3 media listeners, got %d", vp.MediaListenerCount())
	}
}

func TestSessionInvalidOptions(t *testing.T) {
	if _, err := NewSession(Options{Breakpoints: breakpoint.Table{}}, Platform{}); !errors.Is(err, breakpoint.ErrEmptyBreakpoints) {
		t.Errorf("expected ErrEmptyBreakpoints, got %v", err)
	}
}

func TestSessionUpdate(t *testing.T) {
	vp := viewport.NewSimulated(800, 600)
	s, err := NewSession(Options{Breakpoints: devices()}, Platform{Viewport: vp, Matcher: vp.MediaMatcher()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	var got []Result
	s.Subscribe(func(r Result) { got = append(got, r) })

	opts := Options{Breakpoints: devices(), Strategy: StrategyDiscrete}
	if err := s.Update(opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 || got[0].Strategy != StrategyDiscrete || got[0].Current != "tablet" {
		t.Fatalf("expected one discrete tablet result, got %+v", got)
	}
	if vp.ListenerCount(viewport.EventResize) != 0 {
		t.Error("expected the continuous tracker to be torn down")
	}

	vp.Resize(100, 600)
	if len(got) != 2 || got[1].Current != "mobile" {
		t.Errorf("expected a mobile result, got %+v", got)
	}

	if err := s.Update(Options{}); !errors.Is(err, breakpoint.ErrNoBreakpoints) {
		t.Errorf("expected ErrNoBreakpoints, got %v", err)
	}
	if s.Options().Strategy != StrategyDiscrete {
		t.Error("expected a failed update to keep the previous options")
	}
}

func TestSessionSetBreakpoints(t *testing.T) {
	vp := viewport.NewSimulated(800, 600)
	s, err := NewSession(Options{Breakpoints: devices()}, Platform{Viewport: vp})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	calls := 0
	s.Subscribe(func(Result) { calls++ })

	if err := s.SetBreakpoints(devices()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected an equal table to be a no-op, got %d calls", calls)
	}

	if err := s.SetBreakpoints(breakpoint.Table{"narrow": 0, "wide": 700}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if got := s.Current().Current; got != "wide" {
		t.Errorf("expected wide, got %q", got)
	}
}

func TestSessionWatchLatestWins(t *testing.T) {
	vp := viewport.NewSimulated(1920, 1080)
	s, err := NewSession(Options{Breakpoints: devices()}, Platform{Viewport: vp})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	results, unsubscribe := s.Watch()

	vp.Resize(800, 600)
	vp.Resize(100, 600)

	select {
	case r := <-results:
		if r.Current != "mobile" {
			t.Errorf("expected the latest result mobile, got %q", r.Current)
		}
	default:
		t.Fatal("expected a pending result")
	}
	select {
	case r := <-results:
		t.Errorf("expected older results to be dropped, got %q", r.Current)
	default:
	}

	unsubscribe()
	vp.Resize(1920, 1080)
	select {
	case r := <-results:
		t.Errorf("expected nothing after unsubscribe, got %q", r.Current)
	default:
	}
}

func TestSessionSkipsSupersededResult(t *testing.T) {
	vp := viewport.NewSimulated(1920, 1080)
	s, err := NewSession(Options{Breakpoints: devices()}, Platform{Viewport: vp})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	rec := newRecorder()
	unsubscribe := s.Subscribe(rec.publish)
	defer unsubscribe()
	results, stop := s.Watch()
	defer stop()

	// An update stores its initial result, then the new tracker publishes
	// a newer one before the update gets to deliver.
	s.mu.Lock()
	s.seq++
	seq, initial := s.seq, s.current
	s.mu.Unlock()

	vp.Resize(800, 600)
	s.publish(seq, initial)

	if got := rec.names(); !equalNames(got, []string{"tablet"}) {
		t.Errorf("expected [tablet], got %v", got)
	}
	select {
	case r := <-results:
		if r.Current != "tablet" {
			t.Errorf("expected tablet, got %q", r.Current)
		}
	default:
		t.Fatal("expected a pending result")
	}
	if got := s.Current().Current; got != "tablet" {
		t.Errorf("expected current tablet, got %q", got)
	}
}

func TestSessionUpdateDeliversLatest(t *testing.T) {
	vp := viewport.NewSimulated(1920, 1080)
	s, err := NewSession(Options{Breakpoints: devices()}, Platform{Viewport: vp})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	var mu sync.Mutex
	var last string
	s.Subscribe(func(r Result) {
		mu.Lock()
		last = r.Current
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if i%2 == 0 {
				vp.Resize(800, 600)
			} else {
				vp.Resize(100, 600)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if err := s.Update(Options{Breakpoints: devices()}); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}
	}()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if want := s.Current().Current; last != want {
		t.Errorf("expected last delivered %q, got %q", want, last)
	}
}

func TestSessionClosed(t *testing.T) {
	s, err := NewSession(Options{Breakpoints: devices()}, Platform{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Close()

	if err := s.Update(Options{Breakpoints: devices()}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	narrow := viewport.NewSimulated(100, 100)
	wide := viewport.NewSimulated(1920, 1080)

	a, err := NewSession(Options{Breakpoints: devices()}, Platform{Viewport: narrow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()
	b, err := NewSession(Options{Breakpoints: devices()}, Platform{Viewport: wide})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer b.Close()

	if a.ID() == b.ID() {
		t.Error("expected distinct session IDs")
	}

	narrow.Resize(800, 100)
	if a.Current().Current != "tablet" || b.Current().Current != "desktop" {
		t.Errorf("expected tablet/desktop, got %q/%q", a.Current().Current, b.Current().Current)
	}
}
