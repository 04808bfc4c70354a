package breakpoint

import (
	"fmt"
	"strings"
)

// Unit is the measurement unit breakpoint thresholds are expressed in.
type Unit string

const (
	// UnitPx passes raw pixel (or terminal cell) measurements through.
	UnitPx Unit = "px"
	// UnitEm divides raw pixels by BaseFontSize.
	UnitEm Unit = "em"
)

// BaseFontSize is the assumed number of pixels per em.
const BaseFontSize = 16

// ParseUnit parses a unit name. The empty string selects UnitPx.
func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case "", UnitPx:
		return UnitPx, nil
	case UnitEm:
		return UnitEm, nil
	default:
		return "", configError(ErrInvalidUnit, fmt.Sprintf("%q (expected px or em)", s))
	}
}

// String implements fmt.Stringer.
func (u Unit) String() string {
	if u == "" {
		return string(UnitPx)
	}
	return string(u)
}

// Convert converts a raw pixel measurement into u. NaN propagates.
func Convert(rawPx float64, u Unit) float64 {
	if u == UnitEm {
		return rawPx / BaseFontSize
	}
	return rawPx
}
