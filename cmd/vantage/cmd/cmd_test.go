package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vantage/internal/breakpoint"
	"vantage/internal/logger"
	"vantage/internal/tracker"
	"vantage/internal/viewport"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const testConfig = `breakpoints:
  narrow: 0
  medium: 80
  wide: 120
unit: px
strategy: continuous
log:
  level: error
`

// execute runs the root command with args against a temporary config
// file and returns what was written to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	resetFlags()
	var buf bytes.Buffer
	stdout = &buf
	t.Cleanup(func() {
		stdout = os.Stdout
		resetFlags()
	})

	rootCmd.SetArgs(append([]string{"--config", path}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default between runs.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
	}
	cfg, log, cmdCtx = nil, nil, nil
}

// ==================== Output Tests ====================

func TestOutputWriterTable(t *testing.T) {
	var buf bytes.Buffer
	out := newOutputWriter("table", &buf)

	err := out.Write(nil, &TableData{
		Headers: []string{"NAME", "VALUE"},
		Rows:    [][]string{{"mobile", "0"}, {"desktop", "1200"}},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "NAME") || !strings.HasPrefix(lines[1], "----") {
		t.Errorf("expected header and separator, got %q", lines[:2])
	}
}

func TestOutputWriterFormats(t *testing.T) {
	data := map[string]string{"breakpoint": "tablet"}

	tests := []struct {
		format   string
		expected string
	}{
		{"json", `"breakpoint": "tablet"`},
		{"yaml", "breakpoint: tablet"},
		{"quiet", "tablet"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := newOutputWriter(tt.format, &buf).Write(data, nil, []string{"tablet"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.expected) {
				t.Errorf("expected %q in %q", tt.expected, buf.String())
			}
		})
	}
}

func TestOutputWriterFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := newOutputWriter("table", &buf).Write(map[string]int{"a": 1}, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"a": 1`) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}

// ==================== Helper Tests ====================

func TestParseWidth(t *testing.T) {
	if w, err := parseWidth("1024.5"); err != nil || w != 1024.5 {
		t.Errorf("expected 1024.5, got %v (%v)", w, err)
	}
	for _, s := range []string{"", "wide", "-1"} {
		if _, err := parseWidth(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestParseDelay(t *testing.T) {
	if d, err := parseDelay(" 75ms "); err != nil || d != 75*time.Millisecond {
		t.Errorf("expected 75ms, got %v (%v)", d, err)
	}
	if _, err := parseDelay("-1s"); err == nil {
		t.Error("expected error for negative delay")
	}
	if _, err := parseDelay("soon"); err == nil {
		t.Error("expected error for invalid delay")
	}
}

func TestFormatTable(t *testing.T) {
	got := formatTable(map[string]float64{"desktop": 1200, "mobile": 0, "tablet": 768.5})
	expected := "mobile=0,tablet=768.5,desktop=1200"
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}

	table, err := breakpoint.ParseTable(got)
	if err != nil {
		t.Fatalf("formatted table does not parse: %v", err)
	}
	if table["tablet"] != 768.5 {
		t.Errorf("expected tablet 768.5, got %v", table["tablet"])
	}
}

func TestDescribe(t *testing.T) {
	width := 100.0
	res := describe(tracker.Result{
		Breakpoints: breakpoint.Table{"narrow": 0, "medium": 80, "wide": 120},
		Current:     "medium",
		ScreenWidth: &width,
		Strategy:    tracker.StrategyContinuous,
	}, "")

	if res.Threshold != 80 {
		t.Errorf("expected threshold 80, got %v", res.Threshold)
	}
	if res.Unit != breakpoint.UnitPx {
		t.Errorf("expected unit px, got %q", res.Unit)
	}
	if res.Query != "(min-width: 80px) and (width < 120px)" {
		t.Errorf("unexpected query %q", res.Query)
	}
}

func TestResolveOnce(t *testing.T) {
	table := breakpoint.Table{"narrow": 0, "medium": 80, "wide": 120}

	for _, strategy := range []tracker.Strategy{tracker.StrategyContinuous, tracker.StrategyDiscrete} {
		t.Run(string(strategy), func(t *testing.T) {
			r, err := resolveOnce(tracker.Options{Breakpoints: table, Strategy: strategy}, sizeOf(130))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Current != "wide" {
				t.Errorf("expected wide, got %q", r.Current)
			}
			if r.Strategy != strategy {
				t.Errorf("expected strategy %q, got %q", strategy, r.Strategy)
			}
		})
	}

	r, err := resolveOnce(tracker.Options{Breakpoints: table, GuessedWidth: 90}, sizeOf(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Current != "medium" {
		t.Errorf("expected guessed width to resolve medium, got %q", r.Current)
	}

	if _, err := resolveOnce(tracker.Options{}, sizeOf(10)); err == nil {
		t.Error("expected error for missing breakpoints")
	}
}

func TestLineWriter(t *testing.T) {
	width := 42.0
	r := tracker.Result{Current: "narrow", ScreenWidth: &width, Strategy: tracker.StrategyContinuous}

	var buf bytes.Buffer
	if err := lineWriter("table", &buf)(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "narrow\t42\n" {
		t.Errorf("unexpected line %q", buf.String())
	}

	buf.Reset()
	if err := lineWriter("quiet", &buf)(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "narrow\n" {
		t.Errorf("unexpected quiet line %q", buf.String())
	}

	buf.Reset()
	if err := lineWriter("json", &buf)(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON line %q: %v", buf.String(), err)
	}
	if decoded["currentBreakpoint"] != "narrow" {
		t.Errorf("expected currentBreakpoint narrow, got %v", decoded["currentBreakpoint"])
	}
}

func TestSessionOptions(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)

	if opts := sessionOptions(); len(opts) != 1 {
		t.Errorf("expected 1 option without a command context, got %d", len(opts))
	}

	cmdCtx = logger.WithLogger(context.Background(), logger.Default())
	if opts := sessionOptions(); len(opts) != 1 {
		t.Errorf("expected 1 option without a session context, got %d", len(opts))
	}

	sc := logger.NewSessionContext("local")
	cmdCtx = logger.WithSessionContext(cmdCtx, sc)
	if opts := sessionOptions(); len(opts) != 2 {
		t.Errorf("expected 2 options with a session context, got %d", len(opts))
	}
}

// ==================== Command Tests ====================

func TestResolveCommand(t *testing.T) {
	out, err := execute(t, "resolve", "100", "-o", "quiet")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "medium" {
		t.Errorf("expected medium, got %q", out)
	}
}

func TestResolveCommandDiscrete(t *testing.T) {
	out, err := execute(t, "resolve", "150", "--strategy", "discrete", "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var res resolution
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if res.Breakpoint != "wide" || res.Strategy != tracker.StrategyDiscrete {
		t.Errorf("expected wide/discrete, got %s/%s", res.Breakpoint, res.Strategy)
	}
	if res.Width != nil {
		t.Errorf("expected no width from the discrete strategy, got %v", *res.Width)
	}
}

func TestResolveCommandBreakpointsFlag(t *testing.T) {
	out, err := execute(t, "resolve", "700", "--breakpoints", "mobile=0,tablet=768,desktop=1200", "-o", "quiet")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "mobile" {
		t.Errorf("expected mobile, got %q", out)
	}

	if _, err := execute(t, "resolve", "700", "--breakpoints", "mobile=small"); err == nil {
		t.Error("expected error for invalid --breakpoints")
	}
}

func TestQueriesCommand(t *testing.T) {
	out, err := execute(t, "queries", "--order", "asc", "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var queries []breakpoint.Query
	if err := json.Unmarshal([]byte(out), &queries); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if len(queries) != 3 {
		t.Fatalf("expected 3 queries, got %d", len(queries))
	}
	if queries[0].Name != "narrow" || queries[0].Media != "(width < 80px)" {
		t.Errorf("unexpected first query %+v", queries[0])
	}
	if queries[2].Name != "wide" || queries[2].Media != "(min-width: 120px)" {
		t.Errorf("unexpected last query %+v", queries[2])
	}

	if _, err := execute(t, "queries", "--order", "sideways"); err == nil {
		t.Error("expected error for unknown order")
	}
}

func TestCheckCommand(t *testing.T) {
	out, err := execute(t, "check", "100", "--min", "medium", "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res checkResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if !res.Visible || res.Breakpoint != "medium" {
		t.Errorf("expected visible medium, got %+v", res)
	}

	_, err = execute(t, "check", "50", "--min", "medium", "-o", "quiet")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Errorf("expected exit status 1, got %v", err)
	}
}

func TestCheckCommandNameCase(t *testing.T) {
	if _, err := execute(t, "check", "100", "--min", "Medium", "-o", "quiet"); err != nil {
		t.Errorf("expected --min Medium to hold, got %v", err)
	}
	if _, err := execute(t, "check", "50", "--is", "NARROW,Wide", "-o", "quiet"); err != nil {
		t.Errorf("expected --is NARROW to hold, got %v", err)
	}

	_, err := execute(t, "check", "50", "--not", "Narrow", "-o", "quiet")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Errorf("expected exit status 1, got %v", err)
	}
}

func TestCanonicalName(t *testing.T) {
	table := breakpoint.Table{"mobile": 0, "Tablet": 768, "desk": 1200, "DESK": 1300}

	tests := []struct {
		name string
		want string
	}{
		{"mobile", "mobile"},
		{"Mobile", "mobile"},
		{"tablet", "Tablet"},
		{"desk", "desk"},
		{"Desk", "Desk"},
		{"watch", "watch"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := canonicalName(table, tt.name); got != tt.want {
			t.Errorf("expected %q for %q, got %q", tt.want, tt.name, got)
		}
	}
}

func TestCheckCommandWhen(t *testing.T) {
	if _, err := execute(t, "check", "130", "--when", "measured && width - threshold > 5.0", "-o", "quiet"); err != nil {
		t.Errorf("expected condition to hold, got %v", err)
	}
	if _, err := execute(t, "check", "130", "--when", "width + 1"); err == nil {
		t.Error("expected error for non-boolean expression")
	}
}

func TestMatchCommand(t *testing.T) {
	out, err := execute(t, "match", "(min-width: 80px)", "100", "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res matchResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if !res.Matches || res.Width != 100 {
		t.Errorf("expected match at 100, got %+v", res)
	}

	_, err = execute(t, "match", "(width < 80px)", "100", "-o", "quiet")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Errorf("expected exit error, got %v", err)
	}

	if _, err := execute(t, "match", "(orientation: portrait)", "100"); err == nil || errors.As(err, &exitErr) {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestInitCommandDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vantage.yaml")

	resetFlags()
	stdout = &bytes.Buffer{}
	t.Cleanup(func() {
		stdout = os.Stdout
		resetFlags()
	})

	rootCmd.SetArgs([]string{"--config", path, "init", "--defaults", "--breakpoints", "small=0,large=100", "--log-level", "error"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "large: 100") {
		t.Errorf("expected breakpoints in written config, got:\n%s", data)
	}

	resetFlags()
	rootCmd.SetArgs([]string{"--config", path, "init", "--defaults", "--log-level", "error"})
	if err := rootCmd.Execute(); err == nil {
		t.Error("expected error when config exists without --force")
	}
}

func sizeOf(width float64) viewport.Size {
	return viewport.Size{Width: width}
}
