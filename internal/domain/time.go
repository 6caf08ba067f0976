package domain

import (
	"fmt"
	"strings"
)

// TimeGranularity is the grain of a time dimension or window.
type TimeGranularity string

const (
	GranularityDay     TimeGranularity = "DAY"
	GranularityWeek    TimeGranularity = "WEEK"
	GranularityMonth   TimeGranularity = "MONTH"
	GranularityQuarter TimeGranularity = "QUARTER"
	GranularityYear    TimeGranularity = "YEAR"
)

// granularityOrder lists granularities from finest to coarsest.
var granularityOrder = []TimeGranularity{
	GranularityDay,
	GranularityWeek,
	GranularityMonth,
	GranularityQuarter,
	GranularityYear,
}

// AllGranularities returns every granularity from finest to coarsest.
func AllGranularities() []TimeGranularity {
	out := make([]TimeGranularity, len(granularityOrder))
	copy(out, granularityOrder)
	return out
}

// ParseGranularity parses a granularity name, accepting singular and plural
// lower/upper case forms ("day", "days", "MONTH").
func ParseGranularity(s string) (TimeGranularity, error) {
	normalized := strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(s), "s"))
	normalized = strings.TrimSuffix(normalized, "S")
	for _, g := range granularityOrder {
		if normalized == string(g) {
			return g, nil
		}
	}
	return "", ErrValidation("unknown time granularity %q", s)
}

// rank returns the position of g in granularityOrder, or -1 if unknown.
func (g TimeGranularity) rank() int {
	for i, known := range granularityOrder {
		if g == known {
			return i
		}
	}
	return -1
}

// IsValid reports whether g is a known granularity.
func (g TimeGranularity) IsValid() bool { return g.rank() >= 0 }

// FinerThan reports whether g is strictly finer than other.
func (g TimeGranularity) FinerThan(other TimeGranularity) bool {
	return g.rank() >= 0 && other.rank() >= 0 && g.rank() < other.rank()
}

// MetricTimeWindow is a trailing interval expressed as a count of grains,
// e.g. "7 days" or "1 month".
type MetricTimeWindow struct {
	Count       int
	Granularity TimeGranularity
}

// ParseWindow parses window strings of the form "<count> <granularity>".
func ParseWindow(s string) (*MetricTimeWindow, error) {
	parts := strings.Fields(strings.TrimSpace(s))
	if len(parts) != 2 {
		return nil, ErrValidation("window %q must have the form \"<count> <granularity>\"", s)
	}
	var count int
	if _, err := fmt.Sscanf(parts[0], "%d", &count); err != nil || count <= 0 {
		return nil, ErrValidation("window %q must have a positive integer count", s)
	}
	grain, err := ParseGranularity(parts[1])
	if err != nil {
		return nil, ErrValidation("window %q has an unknown granularity %q", s, parts[1])
	}
	return &MetricTimeWindow{Count: count, Granularity: grain}, nil
}

// String renders the window in its canonical "<count> <granularity>" form.
func (w MetricTimeWindow) String() string {
	return fmt.Sprintf("%d %s", w.Count, strings.ToLower(string(w.Granularity)))
}
