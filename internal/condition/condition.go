// Package condition evaluates visibility rules against a tracker result.
//
// A Rule combines the declarative is/not/min/max breakpoint.Condition with
// an optional CEL expression. Expressions see these variables:
//
//	breakpoint   string              resolved breakpoint name
//	threshold    double              its threshold, in the table's unit
//	width        double              measured width; 0 when not measured
//	measured     bool                whether width was measured
//	strategy     string              "continuous" or "discrete"
//	breakpoints  map(string, double) the whole table
//
// For example: breakpoint != "mobile" && width >= breakpoints["tablet"].
package condition

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"vantage/internal/breakpoint"
	"vantage/internal/tracker"
)

// ErrNotBoolean is returned for expressions that do not yield a bool.
var ErrNotBoolean = errors.New("condition: expression must evaluate to a bool")

var newEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("breakpoint", cel.StringType),
		cel.Variable("threshold", cel.DoubleType),
		cel.Variable("width", cel.DoubleType),
		cel.Variable("measured", cel.BoolType),
		cel.Variable("strategy", cel.StringType),
		cel.Variable("breakpoints", cel.MapType(cel.StringType, cel.DoubleType)),
	)
})

// Expression is a compiled CEL expression.
type Expression struct {
	source  string
	program cel.Program
}

// Compile parses and type-checks src.
func Compile(src string) (*Expression, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w, got %s", ErrNotBoolean, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}

	return &Expression{source: src, program: program}, nil
}

// String returns the expression source.
func (e *Expression) String() string {
	return e.source
}

// Eval evaluates the expression against r.
func (e *Expression) Eval(r tracker.Result) (bool, error) {
	vars, err := variables(r)
	if err != nil {
		return false, err
	}

	out, _, err := e.program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate %q: %w", e.source, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, ErrNotBoolean
	}
	return matched, nil
}

func variables(r tracker.Result) (map[string]any, error) {
	sorted := breakpoint.Sort(r.Breakpoints)
	current, ok := sorted.Lookup(r.Current)
	if !ok {
		return nil, &breakpoint.ConfigError{
			Err:    breakpoint.ErrUnknownBreakpoint,
			Detail: fmt.Sprintf("current breakpoint %q", r.Current),
		}
	}

	width, measured := r.Width()
	table := make(map[string]float64, len(r.Breakpoints))
	for name, v := range r.Breakpoints {
		table[name] = v
	}

	return map[string]any{
		"breakpoint":  current.Name,
		"threshold":   current.Threshold,
		"width":       width,
		"measured":    measured,
		"strategy":    string(r.Strategy),
		"breakpoints": table,
	}, nil
}

// Rule is a visibility rule. Both parts must hold; a zero Rule always
// matches.
type Rule struct {
	Match breakpoint.Condition
	When  *Expression
}

// NewRule builds a rule, compiling when if it is not empty.
func NewRule(match breakpoint.Condition, when string) (Rule, error) {
	r := Rule{Match: match}
	if when == "" {
		return r, nil
	}

	expr, err := Compile(when)
	if err != nil {
		return Rule{}, err
	}
	r.When = expr
	return r, nil
}

// Evaluate reports whether the rule holds for r.
func (rule Rule) Evaluate(r tracker.Result) (bool, error) {
	ok, err := rule.Match.Match(r.Current, breakpoint.Sort(r.Breakpoints))
	if err != nil || !ok {
		return false, err
	}
	if rule.When == nil {
		return true, nil
	}
	return rule.When.Eval(r)
}
