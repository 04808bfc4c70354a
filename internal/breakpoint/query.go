package breakpoint

import (
	"math"
	"strconv"
	"strings"
)

// AllQuery matches every viewport. It stands in for an empty query,
// which some media query engines reject.
const AllQuery = "all"

// Query is the boundary query of one breakpoint: the half-open range
// [Lower, Upper) of measurements it owns. The smallest breakpoint has
// Lower = -Inf and the largest has Upper = +Inf.
type Query struct {
	Name      string  `json:"name" yaml:"name"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Lower     float64 `json:"-" yaml:"-"`
	Upper     float64 `json:"-" yaml:"-"`
	Unit      Unit    `json:"unit" yaml:"unit"`
	Media     string  `json:"query" yaml:"query"`
}

// Matches reports whether a measurement (in the query's unit) falls in
// the query's range.
func (q Query) Matches(measurement float64) bool {
	return measurement >= q.Lower && measurement < q.Upper
}

// Compile derives a boundary query for every breakpoint of a descending
// list. A breakpoint with a smaller neighbour gets a lower bound at its
// own threshold; one with a larger neighbour gets an exclusive upper
// bound at that neighbour's threshold. A lone breakpoint gets AllQuery.
// Together the queries partition the real line.
func Compile(sorted Sorted, unit Unit) []Query {
	if unit == "" {
		unit = UnitPx
	}

	queries := make([]Query, 0, len(sorted))
	for i, b := range sorted {
		q := Query{
			Name:      b.Name,
			Threshold: b.Threshold,
			Lower:     math.Inf(-1),
			Upper:     math.Inf(1),
			Unit:      unit,
		}

		var clauses []string
		if i+1 < len(sorted) {
			q.Lower = b.Threshold
			clauses = append(clauses, minWidth(b.Threshold, unit))
		}
		if i > 0 {
			q.Upper = sorted[i-1].Threshold
			clauses = append(clauses, belowWidth(sorted[i-1].Threshold, unit))
		}
		if len(clauses) == 0 {
			clauses = append(clauses, AllQuery)
		}
		q.Media = strings.Join(clauses, " and ")

		queries = append(queries, q)
	}
	return queries
}

// QueryMap returns the compiled queries keyed by breakpoint name.
func QueryMap(sorted Sorted, unit Unit) map[string]string {
	out := make(map[string]string, len(sorted))
	for _, q := range Compile(sorted, unit) {
		out[q.Name] = q.Media
	}
	return out
}

func minWidth(v float64, unit Unit) string {
	return "(min-width: " + FormatLength(v, unit) + ")"
}

func belowWidth(v float64, unit Unit) string {
	return "(width < " + FormatLength(v, unit) + ")"
}

// FormatLength renders a length such as "768px" or "37.5em".
func FormatLength(v float64, unit Unit) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + unit.String()
}
