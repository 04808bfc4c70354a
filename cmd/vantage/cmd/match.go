package cmd

import (
	"fmt"

	"vantage/internal/tracker"
	"vantage/internal/viewport"

	"github.com/spf13/cobra"
)

// matchCmd tests a media query against a width
var matchCmd = &cobra.Command{
	Use:   "match <query> [width]",
	Short: "Test a width media query against a width",
	Long: `Test a media query against a width (or the current terminal). The
exit status is 0 when it matches and 1 otherwise.

Only width features are understood: min-width, max-width and the
range forms width < N, width >= N, and so on, joined with "and".

Examples:
  vantage match "(min-width: 768px)" 1024
  vantage match "(min-width: 48em) and (width < 75em)" 900`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
}

// matchResult is the output of match.
type matchResult struct {
	Query   string  `json:"query" yaml:"query"`
	Width   float64 `json:"width" yaml:"width"`
	Matches bool    `json:"matches" yaml:"matches"`
}

func runMatch(cmd *cobra.Command, args []string) error {
	size, err := measure(args[1:])
	if err != nil {
		return err
	}

	sim := viewport.NewSimulated(size.Width, size.Height)
	watcher, err := tracker.WatchQuery(sim.MediaMatcher(), args[0], func(bool) {}, sessionOptions()...)
	if err != nil {
		return err
	}
	defer watcher.Close()

	res := matchResult{Query: watcher.Query(), Width: size.Width, Matches: watcher.Matches()}
	if err := NewOutputWriter().Write(res, &TableData{
		Headers: []string{"QUERY", "WIDTH", "MATCHES"},
		Rows:    [][]string{{res.Query, fmt.Sprint(res.Width), fmt.Sprint(res.Matches)}},
	}, []string{}); err != nil {
		return err
	}

	if !res.Matches {
		return &ExitError{Code: 1}
	}
	return nil
}
