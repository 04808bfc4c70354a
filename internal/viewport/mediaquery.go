package viewport

import (
	"fmt"
	"strconv"
	"strings"

	"vantage/internal/breakpoint"
)

// MediaQuery is a parsed width query. It understands the subset of media
// query syntax the breakpoint compiler emits: "all", and clauses of the
// forms "(min-width: L)", "(max-width: L)" and "(width OP L)" joined
// with "and", where L is a px or em length and OP one of < <= > >= =.
type MediaQuery struct {
	raw     string
	clauses []widthClause
}

type widthClause struct {
	op    string
	limit float64 // pixels
}

// ParseMediaQuery parses s.
func ParseMediaQuery(s string) (*MediaQuery, error) {
	q := &MediaQuery{raw: s}

	text := strings.TrimSpace(s)
	if text == "" {
		return nil, fmt.Errorf("empty media query")
	}
	if strings.EqualFold(text, breakpoint.AllQuery) {
		return q, nil
	}

	for _, part := range strings.Split(text, " and ") {
		c, err := parseClause(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid media query %q: %w", s, err)
		}
		q.clauses = append(q.clauses, c)
	}
	return q, nil
}

func parseClause(s string) (widthClause, error) {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return widthClause{}, fmt.Errorf("clause %q is not parenthesised", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])

	if feature, value, ok := strings.Cut(body, ":"); ok {
		limit, err := parseLength(value)
		if err != nil {
			return widthClause{}, err
		}
		switch strings.TrimSpace(feature) {
		case "min-width":
			return widthClause{op: ">=", limit: limit}, nil
		case "max-width":
			return widthClause{op: "<=", limit: limit}, nil
		default:
			return widthClause{}, fmt.Errorf("unsupported feature %q", feature)
		}
	}

	rest, ok := strings.CutPrefix(body, "width")
	if !ok {
		return widthClause{}, fmt.Errorf("unsupported clause %q", body)
	}
	rest = strings.TrimSpace(rest)
	for _, op := range []string{"<=", ">=", "<", ">", "="} {
		if value, ok := strings.CutPrefix(rest, op); ok {
			limit, err := parseLength(value)
			if err != nil {
				return widthClause{}, err
			}
			return widthClause{op: op, limit: limit}, nil
		}
	}
	return widthClause{}, fmt.Errorf("missing comparison in %q", body)
}

func parseLength(s string) (float64, error) {
	s = strings.TrimSpace(s)
	unit := breakpoint.UnitPx
	switch {
	case strings.HasSuffix(s, "em"):
		unit = breakpoint.UnitEm
		s = strings.TrimSuffix(s, "em")
	case strings.HasSuffix(s, "px"):
		s = strings.TrimSuffix(s, "px")
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q", s)
	}
	if unit == breakpoint.UnitEm {
		v *= breakpoint.BaseFontSize
	}
	return v, nil
}

// Matches evaluates the query against a raw pixel width.
func (q *MediaQuery) Matches(widthPx float64) bool {
	for _, c := range q.clauses {
		var ok bool
		switch c.op {
		case "<":
			ok = widthPx < c.limit
		case "<=":
			ok = widthPx <= c.limit
		case ">":
			ok = widthPx > c.limit
		case ">=":
			ok = widthPx >= c.limit
		case "=":
			ok = widthPx == c.limit
		}
		if !ok {
			return false
		}
	}
	return true
}

// String returns the query as given to ParseMediaQuery.
func (q *MediaQuery) String() string {
	return q.raw
}
