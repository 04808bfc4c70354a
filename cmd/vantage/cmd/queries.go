package cmd

import (
	"slices"

	"vantage/internal/breakpoint"

	"github.com/spf13/cobra"
)

var queriesOrder string

// queriesCmd prints the boundary media queries of the table
var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Print the boundary media query of every breakpoint",
	Long: `Print the media query that matches exactly the widths owned by
each breakpoint. Together the queries cover every width without overlap.

Examples:
  vantage queries
  vantage queries --order asc -o json
  vantage queries --unit em --breakpoints "small=0,medium=48,large=75"`,
	Args: cobra.NoArgs,
	RunE: runQueries,
}

func init() {
	rootCmd.AddCommand(queriesCmd)

	queriesCmd.Flags().StringVar(&queriesOrder, "order", "desc", "display order (asc, desc)")
}

func runQueries(cmd *cobra.Command, args []string) error {
	opts, err := trackerOptions()
	if err != nil {
		return err
	}
	order, err := breakpoint.ParseOrder(queriesOrder)
	if err != nil {
		return err
	}

	// Compile needs the descending list; the order only affects display.
	queries := breakpoint.Compile(breakpoint.Sort(opts.Breakpoints), opts.Unit)
	if order == breakpoint.Ascending {
		slices.Reverse(queries)
	}

	table := TableData{Headers: []string{"BREAKPOINT", "THRESHOLD", "QUERY"}}
	names := make([]string, 0, len(queries))
	for _, q := range queries {
		table.Rows = append(table.Rows, []string{q.Name, breakpoint.FormatLength(q.Threshold, q.Unit), q.Media})
		names = append(names, q.Media)
	}

	return NewOutputWriter().Write(queries, &table, names)
}
