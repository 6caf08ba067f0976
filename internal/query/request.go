package query

import (
	"strings"

	"github.com/hwantajee/metricflow/internal/domain"
)

// MetricQueryRequest is the declarative query surface: requested metrics,
// group-by item references, and a conjunction of filter clauses.
type MetricQueryRequest struct {
	Metrics []string       `yaml:"metrics" json:"metrics"`
	GroupBy []string       `yaml:"group_by" json:"group_by"`
	Filters []FilterClause `yaml:"filters" json:"filters"`
	Limit   *int64         `yaml:"limit" json:"limit,omitempty"`
}

// FilterClause is one conjunct of the query's filter intersection. Field is
// resolved through the same spec-pattern machinery as group-by items, or may
// name a queried metric for a post-aggregation filter.
type FilterClause struct {
	Field string `yaml:"field" json:"field"`
	Op    string `yaml:"op" json:"op"`
	Value string `yaml:"value" json:"value"`
}

// Validate checks the request shape before resolution.
func (r *MetricQueryRequest) Validate() error {
	if len(r.Metrics) == 0 {
		return domain.ErrValidation("at least one metric is required")
	}
	for _, clause := range r.Filters {
		switch strings.TrimSpace(clause.Op) {
		case "=", "!=", "<", "<=", ">", ">=":
		default:
			return domain.ErrValidation("filter on %q has unknown comparison %q", clause.Field, clause.Op)
		}
	}
	return nil
}

// GroupByItemInput is one group-by item request holding its spec pattern.
type GroupByItemInput struct {
	Pattern SpecPattern
}

// FilterInput is one filter clause with its parsed spec pattern.
type FilterInput struct {
	Pattern SpecPattern
	Op      string
	Value   string
}

// ResolverInputForQuery is the parsed form of a query request: metric
// references plus one pattern per group-by item and filter field.
type ResolverInputForQuery struct {
	Metrics      []string
	GroupByItems []GroupByItemInput
	Filters      []FilterInput
}

// ParseResolverInput parses the textual references of a request into spec
// patterns.
func ParseResolverInput(req *MetricQueryRequest) (*ResolverInputForQuery, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	input := &ResolverInputForQuery{Metrics: append([]string(nil), req.Metrics...)}
	for _, item := range req.GroupBy {
		pattern, err := ParsePattern(item)
		if err != nil {
			return nil, err
		}
		input.GroupByItems = append(input.GroupByItems, GroupByItemInput{Pattern: pattern})
	}
	for _, clause := range req.Filters {
		pattern, err := ParsePattern(clause.Field)
		if err != nil {
			return nil, err
		}
		input.Filters = append(input.Filters, FilterInput{
			Pattern: pattern,
			Op:      strings.TrimSpace(clause.Op),
			Value:   clause.Value,
		})
	}
	return input, nil
}

// IncludesMetricTime reports whether any group-by item matches the generic
// time axis at any granularity.
func (in *ResolverInputForQuery) IncludesMetricTime() bool {
	metricTime := domain.MetricTimeSpecs()
	for _, item := range in.GroupByItems {
		if item.Pattern.MatchesAnyTime(metricTime) {
			return true
		}
	}
	return false
}

// IncludesAnyTime reports whether any group-by item matches one of the
// given time dimension specs.
func (in *ResolverInputForQuery) IncludesAnyTime(specs []domain.TimeDimensionSpec) bool {
	for _, item := range in.GroupByItems {
		if item.Pattern.MatchesAnyTime(specs) {
			return true
		}
	}
	return false
}
