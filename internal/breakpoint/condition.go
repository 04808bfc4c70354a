package breakpoint

import (
	"fmt"
	"slices"
)

// Condition is a declarative visibility rule over the resolved
// breakpoint. Every field that is set must hold for Match to succeed.
type Condition struct {
	// Is requires the current breakpoint to be one of these names.
	Is []string `json:"is,omitempty" yaml:"is,omitempty" mapstructure:"is"`
	// Not requires the current breakpoint to be none of these names.
	Not []string `json:"not,omitempty" yaml:"not,omitempty" mapstructure:"not"`
	// Min requires threshold(current) >= threshold(Min).
	Min string `json:"min,omitempty" yaml:"min,omitempty" mapstructure:"min"`
	// Max requires threshold(current) <= threshold(Max). Inclusive.
	Max string `json:"max,omitempty" yaml:"max,omitempty" mapstructure:"max"`
}

// IsZero reports whether c sets no constraint; such a condition always
// matches.
func (c Condition) IsZero() bool {
	return len(c.Is) == 0 && len(c.Not) == 0 && c.Min == "" && c.Max == ""
}

// Match evaluates c for the current breakpoint. Names in Is and Not that
// are not in the list simply never match; an unknown current, Min or Max
// breakpoint is an error because no threshold comparison is possible.
func (c Condition) Match(current string, sorted Sorted) (bool, error) {
	if len(c.Is) > 0 && !slices.Contains(c.Is, current) {
		return false, nil
	}
	if len(c.Not) > 0 && slices.Contains(c.Not, current) {
		return false, nil
	}
	if c.Min == "" && c.Max == "" {
		return true, nil
	}

	cur, ok := sorted.Lookup(current)
	if !ok {
		return false, configError(ErrUnknownBreakpoint, fmt.Sprintf("current breakpoint %q", current))
	}

	if c.Min != "" {
		lower, ok := sorted.Lookup(c.Min)
		if !ok {
			return false, configError(ErrUnknownBreakpoint, fmt.Sprintf("min %q", c.Min))
		}
		if cur.Threshold < lower.Threshold {
			return false, nil
		}
	}
	if c.Max != "" {
		upper, ok := sorted.Lookup(c.Max)
		if !ok {
			return false, configError(ErrUnknownBreakpoint, fmt.Sprintf("max %q", c.Max))
		}
		if cur.Threshold > upper.Threshold {
			return false, nil
		}
	}
	return true, nil
}
