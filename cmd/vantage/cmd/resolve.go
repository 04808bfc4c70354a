package cmd

import (
	"fmt"
	"strconv"

	"vantage/internal/breakpoint"
	"vantage/internal/tracker"
	"vantage/internal/viewport"

	"github.com/spf13/cobra"
)

var (
	resolveGuess             float64
	resolveDefault           float64
	resolveDefaultBreakpoint string
)

// resolveCmd resolves a single width
var resolveCmd = &cobra.Command{
	Use:   "resolve [width]",
	Short: "Resolve the breakpoint of a width",
	Long: `Resolve the breakpoint that applies to a raw width.

Without a width the size of the current terminal (in cells) is used.
When nothing can be measured the --guess and --default widths apply,
and finally the smallest breakpoint.

Examples:
  vantage resolve 1024
  vantage resolve 700 --breakpoints "mobile=0,tablet=768,desktop=1200"
  vantage resolve --strategy discrete -o json
  vantage resolve --guess 90 < /dev/null`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().Float64Var(&resolveGuess, "guess", 0, "guessed width (in the table's unit) used when nothing is measured")
	resolveCmd.Flags().Float64Var(&resolveDefault, "default", 0, "default width (in the table's unit) used when there is no guess")
	resolveCmd.Flags().StringVar(&resolveDefaultBreakpoint, "default-breakpoint", "", "discrete fallback breakpoint")
}

// resolution is the output of resolve and check.
type resolution struct {
	Breakpoint string           `json:"breakpoint" yaml:"breakpoint"`
	Threshold  float64          `json:"threshold" yaml:"threshold"`
	Unit       breakpoint.Unit  `json:"unit" yaml:"unit"`
	Width      *float64         `json:"width,omitempty" yaml:"width,omitempty"`
	Strategy   tracker.Strategy `json:"strategy" yaml:"strategy"`
	Query      string           `json:"query" yaml:"query"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	opts, err := trackerOptions()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("guess") {
		opts.GuessedWidth = resolveGuess
	}
	if flags.Changed("default") {
		opts.DefaultWidth = resolveDefault
	}
	if flags.Changed("default-breakpoint") {
		opts.DefaultBreakpoint = resolveDefaultBreakpoint
	}

	size, err := measure(args)
	if err != nil {
		return err
	}

	result, err := resolveOnce(opts, size)
	if err != nil {
		return err
	}

	res := describe(result, opts.Unit)
	width := "-"
	if res.Width != nil {
		width = strconv.FormatFloat(*res.Width, 'f', -1, 64)
	}

	return NewOutputWriter().Write(res, &TableData{
		Headers: []string{"BREAKPOINT", "THRESHOLD", "WIDTH", "STRATEGY", "QUERY"},
		Rows: [][]string{{
			res.Breakpoint,
			breakpoint.FormatLength(res.Threshold, res.Unit),
			width,
			string(res.Strategy),
			res.Query,
		}},
	}, []string{res.Breakpoint})
}

// measure returns the width given as the only argument, or the size of
// the terminal on stdout.
func measure(args []string) (viewport.Size, error) {
	if len(args) == 0 {
		return viewport.NewStdoutTerminal().Size(), nil
	}
	width, err := parseWidth(args[0])
	if err != nil {
		return viewport.Size{}, err
	}
	return viewport.Size{Width: width}, nil
}

func parseWidth(s string) (float64, error) {
	width, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid width %q: %w", s, err)
	}
	if width < 0 {
		return 0, fmt.Errorf("invalid width %q: must not be negative", s)
	}
	return width, nil
}

// resolveOnce runs a session against a fixed simulated viewport and
// returns its first result.
func resolveOnce(opts tracker.Options, size viewport.Size) (tracker.Result, error) {
	sim := viewport.NewSimulated(size.Width, size.Height)
	session, err := tracker.NewSession(opts,
		tracker.Platform{Viewport: sim, Matcher: sim.MediaMatcher()},
		sessionOptions()...,
	)
	if err != nil {
		return tracker.Result{}, err
	}
	defer session.Close()

	return session.Current(), nil
}

// describe adds the threshold and query of the current breakpoint.
func describe(r tracker.Result, unit breakpoint.Unit) resolution {
	res := resolution{
		Breakpoint: r.Current,
		Unit:       unit,
		Width:      r.ScreenWidth,
		Strategy:   r.Strategy,
	}
	if res.Unit == "" {
		res.Unit = breakpoint.UnitPx
	}
	for _, q := range breakpoint.Compile(breakpoint.Sort(r.Breakpoints), res.Unit) {
		if q.Name == r.Current {
			res.Threshold = q.Threshold
			res.Query = q.Media
		}
	}
	return res
}
