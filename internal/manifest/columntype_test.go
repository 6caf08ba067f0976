package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwantajee/metricflow/internal/domain"
)

func TestDimensionForColumn(t *testing.T) {
	tests := []struct {
		columnType string
		wantKind   domain.DimensionKind
	}{
		{columnType: "DATE", wantKind: domain.DimensionTime},
		{columnType: "TIMESTAMP_TZ", wantKind: domain.DimensionTime},
		{columnType: "TIMESTAMP_NTZ", wantKind: domain.DimensionTime},
		{columnType: "TEXT", wantKind: domain.DimensionCategorical},
		{columnType: "BOOLEAN", wantKind: domain.DimensionCategorical},
		{columnType: "NUMBER", wantKind: domain.DimensionCategorical},
		{columnType: "FLOAT", wantKind: domain.DimensionCategorical},
		{columnType: "text", wantKind: domain.DimensionCategorical}, // case-insensitive
	}
	for _, tt := range tests {
		t.Run(tt.columnType, func(t *testing.T) {
			dim, err := DimensionForColumn("col", tt.columnType)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, dim.Kind)
			if tt.wantKind == domain.DimensionTime {
				assert.Equal(t, domain.GranularityDay, dim.Granularity)
			} else {
				assert.Empty(t, dim.Granularity)
			}
		})
	}
}

func TestDimensionForColumnUnmappedType(t *testing.T) {
	_, err := DimensionForColumn("payload", "VARIANT")
	require.Error(t, err)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, err.Error(), `"VARIANT"`)
}

func TestDimensionSetBuilder(t *testing.T) {
	b := NewDimensionSetBuilder()
	country := domain.Dimension{Name: "country", Kind: domain.DimensionCategorical}

	require.NoError(t, b.Insert("listings", country))
	// Identical re-declaration is idempotent.
	require.NoError(t, b.Insert("listings", country))

	// Differing redefinition is a conflict, not a silent overwrite.
	err := b.Insert("listings", domain.Dimension{
		Name: "country", Kind: domain.DimensionTime, Granularity: domain.GranularityDay,
	})
	require.Error(t, err)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, err.Error(), `dimension "country"`)

	require.NoError(t, b.Insert("listings", domain.Dimension{Name: "capacity", Kind: domain.DimensionCategorical}))
	dims := b.Dimensions("listings")
	require.Len(t, dims, 2)
	assert.Equal(t, "capacity", dims[0].Name)
	assert.Equal(t, "country", dims[1].Name)
	assert.Equal(t, domain.DimensionCategorical, dims[1].Kind)

	assert.Empty(t, b.Dimensions("bookings_source"))
}
