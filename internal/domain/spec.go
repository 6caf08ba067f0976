package domain

import "strings"

// SpecSeparator joins entity links, element names, and granularity suffixes
// in qualified item names, e.g. "listing__country" or "metric_time__month".
const SpecSeparator = "__"

// Spec is the fully qualified identity of a resolvable query item: an
// element name plus the ordered entity-link chain through which it was
// reached from the queried data source. Two specs are equal iff all fields
// match; equality is the basis for group-by matching.
type Spec interface {
	// QualifiedName renders the spec in entity-link__element[__grain] form.
	QualifiedName() string
	specNode()
}

// linkedName renders entityLinks + element joined by SpecSeparator.
func linkedName(entityLinks []string, element string) string {
	if len(entityLinks) == 0 {
		return element
	}
	return strings.Join(entityLinks, SpecSeparator) + SpecSeparator + element
}

// equalLinks reports element-wise equality of two entity-link chains.
func equalLinks(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DimensionSpec identifies a categorical dimension.
type DimensionSpec struct {
	ElementName string
	EntityLinks []string
}

func (s DimensionSpec) QualifiedName() string { return linkedName(s.EntityLinks, s.ElementName) }
func (DimensionSpec) specNode()               {}

// Equal reports full-field equality.
func (s DimensionSpec) Equal(other DimensionSpec) bool {
	return s.ElementName == other.ElementName && equalLinks(s.EntityLinks, other.EntityLinks)
}

// TimeDimensionSpec identifies a time dimension at a granularity.
type TimeDimensionSpec struct {
	ElementName string
	Granularity TimeGranularity
	EntityLinks []string
}

func (s TimeDimensionSpec) QualifiedName() string {
	return linkedName(s.EntityLinks, s.ElementName) + SpecSeparator + strings.ToLower(string(s.Granularity))
}
func (TimeDimensionSpec) specNode() {}

// Equal reports full-field equality.
func (s TimeDimensionSpec) Equal(other TimeDimensionSpec) bool {
	return s.ElementName == other.ElementName &&
		s.Granularity == other.Granularity &&
		equalLinks(s.EntityLinks, other.EntityLinks)
}

// IsMetricTime reports whether the spec is the generic time axis.
func (s TimeDimensionSpec) IsMetricTime() bool {
	return s.ElementName == MetricTimeElementName && len(s.EntityLinks) == 0
}

// MetricTimeSpecs returns the generic time axis at every granularity.
func MetricTimeSpecs() []TimeDimensionSpec {
	grains := AllGranularities()
	specs := make([]TimeDimensionSpec, 0, len(grains))
	for _, g := range grains {
		specs = append(specs, TimeDimensionSpec{ElementName: MetricTimeElementName, Granularity: g})
	}
	return specs
}

// EntitySpec identifies an entity (join key).
type EntitySpec struct {
	ElementName string
	EntityLinks []string
}

func (s EntitySpec) QualifiedName() string { return linkedName(s.EntityLinks, s.ElementName) }
func (EntitySpec) specNode()               {}

// Equal reports full-field equality.
func (s EntitySpec) Equal(other EntitySpec) bool {
	return s.ElementName == other.ElementName && equalLinks(s.EntityLinks, other.EntityLinks)
}

// SpecsEqual reports equality of two specs of any kind. Specs of different
// kinds are never equal.
func SpecsEqual(a, b Spec) bool {
	switch as := a.(type) {
	case DimensionSpec:
		bs, ok := b.(DimensionSpec)
		return ok && as.Equal(bs)
	case TimeDimensionSpec:
		bs, ok := b.(TimeDimensionSpec)
		return ok && as.Equal(bs)
	case EntitySpec:
		bs, ok := b.(EntitySpec)
		return ok && as.Equal(bs)
	default:
		return false
	}
}
