package breakpoint

// Floor returns the largest breakpoint whose threshold is <= measurement.
// When the measurement is below every threshold (or NaN) the smallest
// breakpoint is returned instead, so a non-empty list always resolves.
// ok is false only for an empty list.
func (s Sorted) Floor(measurement float64) (Breakpoint, bool) {
	if len(s) == 0 {
		return Breakpoint{}, false
	}
	for _, b := range s {
		if b.Threshold <= measurement {
			return b, true
		}
	}
	return s[len(s)-1], true
}

// Resolve returns the name of the breakpoint that applies to measurement
// (already converted to the table's unit). See Sorted.Floor.
func Resolve(measurement float64, sorted Sorted) (string, error) {
	b, ok := sorted.Floor(measurement)
	if !ok {
		return "", configError(ErrEmptyBreakpoints, "")
	}
	return b.Name, nil
}

// Hints are the fallbacks used when no viewport width can be measured.
// Both are expressed in the table's unit; zero means "not given".
type Hints struct {
	// GuessedWidth is a best guess supplied by the caller, e.g. from
	// server-side user agent sniffing.
	GuessedWidth float64
	// DefaultWidth is used when there is neither a measurement nor a guess.
	DefaultWidth float64
}

// ResolveHints picks the measurement to resolve with, in order of
// precedence: the measured raw width (converted to unit) when it is
// non-zero, the guessed width, the default width, and finally the
// smallest breakpoint's own threshold.
func ResolveHints(rawWidth float64, unit Unit, hints Hints, sorted Sorted) (string, error) {
	smallest, ok := sorted.Smallest()
	if !ok {
		return "", configError(ErrEmptyBreakpoints, "")
	}

	switch {
	case rawWidth != 0:
		return Resolve(Convert(rawWidth, unit), sorted)
	case hints.GuessedWidth != 0:
		return Resolve(hints.GuessedWidth, sorted)
	case hints.DefaultWidth != 0:
		return Resolve(hints.DefaultWidth, sorted)
	default:
		return smallest.Name, nil
	}
}
