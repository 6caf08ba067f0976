// Package query resolves the items of a metric query request against a
// semantic manifest: each textual group-by or filter reference becomes
// exactly one concrete spec, or a resolution issue explaining why not.
package query

import (
	"strings"

	"github.com/hwantajee/metricflow/internal/domain"
)

// SpecPattern is a predicate over candidate specs, parsed from a query-level
// item reference. The same textual name may resolve differently depending on
// the queried metrics' home data sources, so patterns are matched against a
// candidate set rather than looked up directly.
type SpecPattern struct {
	Raw         string
	ElementName string
	EntityLinks []string
	Granularity domain.TimeGranularity // optional; empty matches any
}

// ParsePattern parses an item reference of the form
// "element", "entity__element", or "[entity__]element__granularity".
// A trailing component that names a time granularity is treated as the
// requested granularity.
func ParsePattern(raw string) (SpecPattern, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return SpecPattern{}, domain.ErrValidation("group-by item reference must be non-empty")
	}

	parts := strings.Split(trimmed, domain.SpecSeparator)
	for _, part := range parts {
		if part == "" {
			return SpecPattern{}, domain.ErrValidation("group-by item reference %q has an empty path segment", raw)
		}
	}

	pattern := SpecPattern{Raw: trimmed}
	if len(parts) > 1 {
		if grain, err := domain.ParseGranularity(parts[len(parts)-1]); err == nil {
			pattern.Granularity = grain
			parts = parts[:len(parts)-1]
			if len(parts) == 0 {
				return SpecPattern{}, domain.ErrValidation(
					"group-by item reference %q names only a granularity", raw)
			}
		}
	}
	pattern.ElementName = parts[len(parts)-1]
	if len(parts) > 1 {
		pattern.EntityLinks = parts[:len(parts)-1]
	}
	return pattern, nil
}

// Matches reports whether the pattern matches a candidate spec. Patterns
// without entity links match a candidate with any links; patterns with links
// require an exact link chain. A requested granularity matches a time
// dimension candidate whose own granularity is the same or finer, so
// "ds__month" matches a day-grained ds dimension. Patterns carrying a
// granularity never match categorical dimensions or entities.
func (p SpecPattern) Matches(spec domain.Spec) bool {
	switch s := spec.(type) {
	case domain.DimensionSpec:
		return p.Granularity == "" &&
			p.ElementName == s.ElementName &&
			p.linksMatch(s.EntityLinks)
	case domain.TimeDimensionSpec:
		if p.ElementName != s.ElementName || !p.linksMatch(s.EntityLinks) {
			return false
		}
		return p.Granularity == "" || p.Granularity == s.Granularity || s.Granularity.FinerThan(p.Granularity)
	case domain.EntitySpec:
		return p.Granularity == "" &&
			p.ElementName == s.ElementName &&
			p.linksMatch(s.EntityLinks)
	default:
		return false
	}
}

func (p SpecPattern) linksMatch(links []string) bool {
	if len(p.EntityLinks) == 0 {
		return true
	}
	if len(p.EntityLinks) != len(links) {
		return false
	}
	for i := range links {
		if p.EntityLinks[i] != links[i] {
			return false
		}
	}
	return true
}

// MatchesAnyTime reports whether the pattern matches any of the time
// dimension specs.
func (p SpecPattern) MatchesAnyTime(specs []domain.TimeDimensionSpec) bool {
	for _, s := range specs {
		if p.Matches(s) {
			return true
		}
	}
	return false
}

// String returns the raw reference.
func (p SpecPattern) String() string { return p.Raw }
