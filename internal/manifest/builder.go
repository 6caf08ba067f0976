package manifest

import (
	"sort"

	"github.com/hwantajee/metricflow/internal/domain"
)

// DimensionSetBuilder accumulates dimensions per data source from
// independent mapping passes. Re-declaring an identical dimension is
// idempotent; redefining a dimension differently for the same
// (data source, name) key is a conflict, never a silent overwrite.
type DimensionSetBuilder struct {
	dims map[string]map[string]domain.Dimension
}

// NewDimensionSetBuilder creates an empty builder.
func NewDimensionSetBuilder() *DimensionSetBuilder {
	return &DimensionSetBuilder{dims: map[string]map[string]domain.Dimension{}}
}

// Insert adds a dimension for a data source. Inserting the exact same
// dimension again is a no-op; inserting a differing definition under the
// same name returns a ConflictError identifying both definitions.
func (b *DimensionSetBuilder) Insert(dataSource string, dim domain.Dimension) error {
	byName, ok := b.dims[dataSource]
	if !ok {
		byName = map[string]domain.Dimension{}
		b.dims[dataSource] = byName
	}
	existing, ok := byName[dim.Name]
	if !ok {
		byName[dim.Name] = dim
		return nil
	}
	if existing != dim {
		return domain.ErrConflict(
			"dimension %q on data source %q redefined with a different definition: have %+v, got %+v",
			dim.Name, dataSource, existing, dim)
	}
	return nil
}

// Dimensions returns the accumulated dimensions for a data source, ordered
// by name for deterministic output.
func (b *DimensionSetBuilder) Dimensions(dataSource string) []domain.Dimension {
	byName := b.dims[dataSource]
	if len(byName) == 0 {
		return nil
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]domain.Dimension, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out
}
