package cmd

import (
	"fmt"
	"strings"

	"vantage/internal/breakpoint"
	"vantage/internal/condition"

	"github.com/spf13/cobra"
)

var (
	condIs   []string
	condNot  []string
	condMin  string
	condMax  string
	condWhen string
)

// checkCmd evaluates a visibility condition
var checkCmd = &cobra.Command{
	Use:   "check [width]",
	Short: "Evaluate a visibility condition for a width",
	Long: `Resolve a width (or the current terminal) and evaluate a visibility
condition against the resolved breakpoint. Every constraint that is given
must hold. The exit status is 0 when the condition holds and 1 otherwise.

--min and --max compare thresholds and are both inclusive. Names match the
breakpoint table without regard to case, since names read from a config
file are lowercased. --when takes a
CEL expression over breakpoint, threshold, width, measured, strategy and
breakpoints.

Examples:
  vantage check 1024 --min tablet
  vantage check 500 --is mobile,tablet
  vantage check --not mobile && echo "wide enough"
  vantage check 900 --when 'measured && width >= threshold + 100.0'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	addConditionFlags(checkCmd)
}

// addConditionFlags registers the visibility condition flags on cmd.
func addConditionFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&condIs, "is", nil, "breakpoints the current one must be among")
	cmd.Flags().StringSliceVar(&condNot, "not", nil, "breakpoints the current one must not be")
	cmd.Flags().StringVar(&condMin, "min", "", "smallest breakpoint allowed (inclusive)")
	cmd.Flags().StringVar(&condMax, "max", "", "largest breakpoint allowed (inclusive)")
	cmd.Flags().StringVar(&condWhen, "when", "", "CEL expression that must evaluate to true")
}

// ruleFromFlags builds the rule of the condition flags. ok is false when
// none of them was given.
func ruleFromFlags() (rule condition.Rule, ok bool, err error) {
	var table breakpoint.Table
	if cfg != nil {
		table = cfg.Breakpoints
	}
	match := breakpoint.Condition{
		Is:  canonicalNames(table, condIs),
		Not: canonicalNames(table, condNot),
		Min: canonicalName(table, condMin),
		Max: canonicalName(table, condMax),
	}
	if match.IsZero() && condWhen == "" {
		return condition.Rule{}, false, nil
	}
	rule, err = condition.NewRule(match, condWhen)
	if err != nil {
		return condition.Rule{}, false, err
	}
	return rule, true, nil
}

// canonicalName returns the table's spelling of name when exactly one
// breakpoint matches it without regard to case.
func canonicalName(table breakpoint.Table, name string) string {
	if _, ok := table[name]; ok || name == "" {
		return name
	}
	found := ""
	for n := range table {
		if strings.EqualFold(n, name) {
			if found != "" {
				return name
			}
			found = n
		}
	}
	if found == "" {
		return name
	}
	return found
}

func canonicalNames(table breakpoint.Table, names []string) []string {
	if len(names) == 0 {
		return names
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = canonicalName(table, n)
	}
	return out
}

// checkResult is the output of check.
type checkResult struct {
	resolution `yaml:",inline"`
	Visible    bool `json:"visible" yaml:"visible"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	opts, err := trackerOptions()
	if err != nil {
		return err
	}
	rule, _, err := ruleFromFlags()
	if err != nil {
		return err
	}

	size, err := measure(args)
	if err != nil {
		return err
	}
	result, err := resolveOnce(opts, size)
	if err != nil {
		return err
	}

	visible, err := rule.Evaluate(result)
	if err != nil {
		return err
	}
	log.Debug("condition evaluated", "breakpoint", result.Current, "visible", visible)

	out := NewOutputWriter()
	res := checkResult{resolution: describe(result, opts.Unit), Visible: visible}
	if err := out.Write(res, &TableData{
		Headers: []string{"BREAKPOINT", "VISIBLE"},
		Rows:    [][]string{{res.Breakpoint, fmt.Sprint(visible)}},
	}, []string{}); err != nil {
		return err
	}

	if !visible {
		return &ExitError{Code: 1}
	}
	return nil
}
