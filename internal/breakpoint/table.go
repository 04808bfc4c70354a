// Package breakpoint resolves named viewport breakpoints from a measured
// size and compiles the boundary queries that partition all widths
// between them.
package breakpoint

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Table maps breakpoint names to their thresholds, e.g.
// {"mobile": 320, "tablet": 768, "desktop": 1200}. The unit of the
// thresholds is chosen separately (see Unit).
type Table map[string]float64

// Breakpoint is a single named threshold.
type Breakpoint struct {
	Name      string  `json:"name" yaml:"name"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// Sorted is a breakpoint list ordered by threshold. Lists produced by
// Sort are descending: index 0 is the largest breakpoint.
type Sorted []Breakpoint

// Order selects the direction of a sorted list.
type Order int

const (
	// Descending is the order used for resolution.
	Descending Order = iota
	// Ascending is offered for display only.
	Ascending
)

// ParseOrder parses "desc"/"descending" or "asc"/"ascending".
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return Descending, nil
	case "asc", "ascending":
		return Ascending, nil
	default:
		return Descending, fmt.Errorf("unknown order %q (expected asc or desc)", s)
	}
}

// Validate checks that t is usable: non-nil, non-empty, and every
// threshold a finite, non-negative number.
func Validate(t Table) error {
	if t == nil {
		return configError(ErrNoBreakpoints, "")
	}
	if len(t) == 0 {
		return configError(ErrEmptyBreakpoints, "")
	}
	for name, threshold := range t {
		if name == "" {
			return configError(ErrInvalidThreshold, "empty breakpoint name")
		}
		if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold < 0 {
			return configError(ErrInvalidThreshold, fmt.Sprintf("%s: %v", name, threshold))
		}
	}
	return nil
}

// FromAny converts loosely typed input (decoded YAML/JSON, viper
// settings, flag values) into a validated Table. nil, non-mapping values
// and empty mappings are rejected.
func FromAny(v any) (Table, error) {
	if v == nil {
		return nil, configError(ErrNoBreakpoints, "")
	}

	switch m := v.(type) {
	case Table:
		if err := Validate(m); err != nil {
			return nil, err
		}
		return m.clone(), nil
	case map[string]float64:
		if err := Validate(m); err != nil {
			return nil, err
		}
		return Table(m).clone(), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, configError(ErrNoBreakpoints, "")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, configError(ErrNotMapping, fmt.Sprintf("got %T", v))
	}

	t := make(Table, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		name := iter.Key().String()
		threshold, err := toFloat(iter.Value())
		if err != nil {
			return nil, configError(ErrNotMapping, fmt.Sprintf("%s: %v", name, err))
		}
		t[name] = threshold
	}
	if err := Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

func toFloat(v reflect.Value) (float64, error) {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return 0, fmt.Errorf("missing threshold")
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		if err != nil {
			return 0, fmt.Errorf("threshold %q is not a number", v.String())
		}
		return f, nil
	default:
		return 0, fmt.Errorf("threshold of type %s is not a number", v.Type())
	}
}

// ParseTable parses the compact "name=threshold,name=threshold" form used
// by command-line flags.
func ParseTable(s string) (Table, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, configError(ErrEmptyBreakpoints, "")
	}

	t := make(Table)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			name, value, ok = strings.Cut(pair, ":")
		}
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, configError(ErrNotMapping, fmt.Sprintf("expected name=threshold, got %q", pair))
		}
		threshold, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, configError(ErrInvalidThreshold, fmt.Sprintf("%s: %q", name, value))
		}
		if _, dup := t[name]; dup {
			return nil, configError(ErrNotMapping, fmt.Sprintf("duplicate breakpoint %q", name))
		}
		t[name] = threshold
	}
	if err := Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (t Table) clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Clone returns a copy of t.
func (t Table) Clone() Table {
	return t.clone()
}

// Equal reports whether t and other hold the same entries.
func (t Table) Equal(other Table) bool {
	if len(t) != len(other) {
		return false
	}
	for k, v := range t {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Sort returns the breakpoints of t in descending threshold order.
// Breakpoints sharing a threshold are ordered by name, so the lexically
// smallest name wins resolution among ties.
func Sort(t Table) Sorted {
	return SortOrder(t, Descending)
}

// SortOrder returns the breakpoints of t in the given order. An empty
// table yields an empty list.
func SortOrder(t Table, order Order) Sorted {
	out := make(Sorted, 0, len(t))
	for name, threshold := range t {
		out = append(out, Breakpoint{Name: name, Threshold: threshold})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Threshold != b.Threshold {
			if order == Ascending {
				return a.Threshold < b.Threshold
			}
			return a.Threshold > b.Threshold
		}
		return a.Name < b.Name
	})
	return out
}

// Smallest returns the breakpoint with the lowest threshold of a
// descending list.
func (s Sorted) Smallest() (Breakpoint, bool) {
	if len(s) == 0 {
		return Breakpoint{}, false
	}
	return s[len(s)-1], true
}

// Largest returns the breakpoint with the highest threshold of a
// descending list.
func (s Sorted) Largest() (Breakpoint, bool) {
	if len(s) == 0 {
		return Breakpoint{}, false
	}
	return s[0], true
}

// Lookup finds a breakpoint by name.
func (s Sorted) Lookup(name string) (Breakpoint, bool) {
	for _, b := range s {
		if b.Name == name {
			return b, true
		}
	}
	return Breakpoint{}, false
}

// Names returns the breakpoint names in list order.
func (s Sorted) Names() []string {
	names := make([]string, len(s))
	for i, b := range s {
		names[i] = b.Name
	}
	return names
}

// Table rebuilds the mapping the list was derived from.
func (s Sorted) Table() Table {
	t := make(Table, len(s))
	for _, b := range s {
		t[b.Name] = b.Threshold
	}
	return t
}
