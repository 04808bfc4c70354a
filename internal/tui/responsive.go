package tui

import "vantage/internal/breakpoint"

// Responsive maps breakpoint names to values. A breakpoint without its
// own value inherits the value of the nearest smaller breakpoint that has
// one, and Default applies below all of them.
type Responsive[T any] struct {
	Values  map[string]T
	Default T
}

// Get returns the value for current.
func (r Responsive[T]) Get(current string, sorted breakpoint.Sorted) T {
	start := -1
	for i, b := range sorted {
		if b.Name == current {
			start = i
			break
		}
	}
	if start < 0 {
		return r.Default
	}

	// sorted is descending, so smaller breakpoints follow.
	for _, b := range sorted[start:] {
		if v, ok := r.Values[b.Name]; ok {
			return v
		}
	}
	return r.Default
}

// NewResponsiveScale assigns values to breakpoints by rank, smallest
// first. Breakpoints beyond the last value reuse it.
func NewResponsiveScale[T any](sorted breakpoint.Sorted, values ...T) Responsive[T] {
	r := Responsive[T]{Values: make(map[string]T, len(sorted))}
	if len(values) == 0 {
		return r
	}
	r.Default = values[0]

	for rank := range sorted {
		b := sorted[len(sorted)-1-rank]
		v := values[len(values)-1]
		if rank < len(values) {
			v = values[rank]
		}
		r.Values[b.Name] = v
	}
	return r
}
