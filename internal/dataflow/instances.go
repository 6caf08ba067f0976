package dataflow

import (
	"fmt"

	"github.com/hwantajee/metricflow/internal/domain"
)

// TimeDimensionInstance is one time-dimension column present in a dataset,
// carrying the validity-window flags of its defining dimension.
type TimeDimensionInstance struct {
	Spec            domain.TimeDimensionSpec
	IsValidityStart bool
	IsValidityEnd   bool
}

// InstanceSet describes the columns available in a dataflow dataset. Only
// the time-dimension instances matter for validity-window detection.
type InstanceSet struct {
	TimeDimensions []TimeDimensionInstance
}

// InstanceSetFromDataSource builds the instance set of a source scan.
func InstanceSetFromDataSource(ds *domain.DataSource) InstanceSet {
	var set InstanceSet
	for _, dim := range ds.Dimensions {
		if dim.Kind != domain.DimensionTime {
			continue
		}
		set.TimeDimensions = append(set.TimeDimensions, TimeDimensionInstance{
			Spec: domain.TimeDimensionSpec{
				ElementName: dim.Name,
				Granularity: dim.Granularity,
			},
			IsValidityStart: dim.IsValidityStart,
			IsValidityEnd:   dim.IsValidityEnd,
		})
	}
	return set
}

// MergeInstanceSets concatenates instance sets, as when two datasets are
// joined.
func MergeInstanceSets(sets ...InstanceSet) InstanceSet {
	var merged InstanceSet
	for _, set := range sets {
		merged.TimeDimensions = append(merged.TimeDimensions, set.TimeDimensions...)
	}
	return merged
}

// ValidityWindowJoinDescription describes the validity interval of a
// slowly-changing dimension source. A fact row at time t joins the
// dimension row where WindowStart <= t < WindowEnd.
type ValidityWindowJoinDescription struct {
	WindowStart domain.TimeDimensionSpec
	WindowEnd   domain.TimeDimensionSpec
}

// CreateValidityWindowJoinDescription scans an instance set for its
// validity-window pair. No flagged instances yield nil. Finding more than
// one distinct start/end pair indicates a manifest or join-order defect
// that validation should already have caught, so it is treated as an
// assertion rather than a recoverable issue.
func CreateValidityWindowJoinDescription(set InstanceSet) *ValidityWindowJoinDescription {
	var starts, ends []domain.TimeDimensionSpec
	for _, instance := range set.TimeDimensions {
		if instance.IsValidityStart {
			starts = append(starts, instance.Spec)
		}
		if instance.IsValidityEnd {
			ends = append(ends, instance.Spec)
		}
	}

	if len(starts) == 0 && len(ends) == 0 {
		return nil
	}
	if len(starts) > 1 || len(ends) > 1 {
		panic(fmt.Sprintf(
			"found more than one set of validity window specs in the instance set: starts %d, ends %d",
			len(starts), len(ends)))
	}
	if len(starts) != 1 || len(ends) != 1 {
		panic(fmt.Sprintf(
			"incomplete validity window in the instance set: starts %d, ends %d", len(starts), len(ends)))
	}
	return &ValidityWindowJoinDescription{WindowStart: starts[0], WindowEnd: ends[0]}
}
