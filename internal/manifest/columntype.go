package manifest

import (
	"strings"

	"github.com/hwantajee/metricflow/internal/domain"
)

// columnTypeToDimensionKind is the fixed, total column-type mapping table.
// An unmapped column type is a lookup failure, never a default.
var columnTypeToDimensionKind = map[string]domain.DimensionKind{
	"DATE":          domain.DimensionTime,
	"TIMESTAMP_TZ":  domain.DimensionTime,
	"TIMESTAMP_NTZ": domain.DimensionTime,
	"TEXT":          domain.DimensionCategorical,
	"BOOLEAN":       domain.DimensionCategorical,
	"NUMBER":        domain.DimensionCategorical,
	"FLOAT":         domain.DimensionCategorical,
}

// DimensionForColumn builds the dimension backed by a physical column. The
// dimension kind is determined solely by the column type: date and timestamp
// types become time dimensions at day granularity, text/boolean/numeric
// types become categorical dimensions.
func DimensionForColumn(name, columnType string) (domain.Dimension, error) {
	kind, ok := columnTypeToDimensionKind[strings.ToUpper(strings.TrimSpace(columnType))]
	if !ok {
		return domain.Dimension{}, domain.ErrNotFound(
			"column type %q for column %q has no dimension kind mapping", columnType, name)
	}
	switch kind {
	case domain.DimensionTime:
		return domain.Dimension{Name: name, Kind: domain.DimensionTime, Granularity: domain.GranularityDay}, nil
	case domain.DimensionCategorical:
		return domain.Dimension{Name: name, Kind: domain.DimensionCategorical}, nil
	default:
		return domain.Dimension{}, domain.ErrNotFound(
			"column type %q maps to unknown dimension kind %q", columnType, kind)
	}
}
