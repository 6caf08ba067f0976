package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hwantajee/metricflow/internal/domain"
	"github.com/hwantajee/metricflow/internal/manifest"
)

// ResolutionIssueKind distinguishes the resolution failure sub-kinds.
type ResolutionIssueKind string

const (
	IssueUnresolvable ResolutionIssueKind = "UNRESOLVABLE"
	IssueAmbiguous    ResolutionIssueKind = "AMBIGUOUS"
)

// ResolutionIssue describes a group-by item or metric reference that could
// not be resolved to exactly one spec.
type ResolutionIssue struct {
	Kind       ResolutionIssueKind
	Pattern    string
	Message    string
	Candidates []string // qualified names; set for ambiguous items
	Path       ResolutionPath
}

// MetricResolution is the per-metric node of the resolution DAG: the
// decisions (home data sources, input metrics) recorded while resolving the
// query for this metric.
type MetricResolution struct {
	Name        string
	Type        domain.MetricType
	Path        ResolutionPath
	HomeSources []string
	Inputs      []MetricResolution
}

// ResolvedGroupByItem pairs a group-by input with the single spec it
// resolved to.
type ResolvedGroupByItem struct {
	Input GroupByItemInput
	Spec  domain.Spec
}

// ResolvedFilter is a filter clause with its resolved target: either a
// spec (row filter, applied pre-aggregation) or a queried metric name
// (having-style filter, applied post-aggregation).
type ResolvedFilter struct {
	Input      FilterInput
	Spec       domain.Spec // nil when MetricName is set
	MetricName string
}

// Resolution is the output of the group-by item resolver: resolved specs,
// the per-metric resolution DAG, and any resolution issues.
type Resolution struct {
	Input   *ResolverInputForQuery
	Metrics []MetricResolution
	GroupBy []ResolvedGroupByItem
	Filters []ResolvedFilter
	Issues  []ResolutionIssue
}

// Resolver resolves query items against the manifest lookup.
type Resolver struct {
	lookup *manifest.Lookup
}

// NewResolver creates a resolver over an immutable manifest lookup.
func NewResolver(lookup *manifest.Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve produces a Resolution for the query input. Resolution failures
// are reported as issues on the result, not as errors; an error return
// indicates a malformed input rather than an unresolvable item.
func (r *Resolver) Resolve(input *ResolverInputForQuery) (*Resolution, error) {
	if input == nil || len(input.Metrics) == 0 {
		return nil, domain.ErrValidation("at least one metric is required")
	}

	res := &Resolution{Input: input}
	queryPath := QueryPath()

	for _, metricName := range input.Metrics {
		metricRes, issue := r.resolveMetric(metricName, queryPath)
		if issue != nil {
			res.Issues = append(res.Issues, *issue)
			continue
		}
		res.Metrics = append(res.Metrics, *metricRes)
	}

	candidates := r.candidateSpecs(res.Metrics)

	for _, item := range input.GroupByItems {
		spec, issue := r.resolveItem(item.Pattern, candidates, queryPath)
		if issue != nil {
			res.Issues = append(res.Issues, *issue)
			continue
		}
		res.GroupBy = append(res.GroupBy, ResolvedGroupByItem{Input: item, Spec: spec})
	}

	queriedMetrics := map[string]bool{}
	for _, name := range input.Metrics {
		queriedMetrics[name] = true
	}
	for _, filter := range input.Filters {
		// A filter naming a queried metric becomes a post-aggregation
		// filter on the computed metric value.
		if len(filter.Pattern.EntityLinks) == 0 && filter.Pattern.Granularity == "" &&
			queriedMetrics[filter.Pattern.ElementName] {
			res.Filters = append(res.Filters, ResolvedFilter{Input: filter, MetricName: filter.Pattern.ElementName})
			continue
		}
		spec, issue := r.resolveItem(filter.Pattern, candidates, queryPath)
		if issue != nil {
			res.Issues = append(res.Issues, *issue)
			continue
		}
		res.Filters = append(res.Filters, ResolvedFilter{Input: filter, Spec: spec})
	}

	return res, nil
}

// resolveMetric builds the resolution DAG node for one metric, following
// derived and ratio inputs.
func (r *Resolver) resolveMetric(name string, parent ResolutionPath) (*MetricResolution, *ResolutionIssue) {
	var path ResolutionPath
	if parent[len(parent)-1].Kind == StepQuery {
		path = parent.ForMetric(name)
	} else {
		path = parent.ForInputMetric(name)
	}

	metric, err := r.lookup.Metric(name)
	if err != nil {
		available := r.lookup.MetricNames()
		return nil, &ResolutionIssue{
			Kind:    IssueUnresolvable,
			Pattern: name,
			Message: fmt.Sprintf("metric %q not found in semantic manifest; known metrics: %s",
				name, strings.Join(available, ", ")),
			Path: path,
		}
	}

	homes, err := r.lookup.MetricHomeSources(name)
	if err != nil {
		return nil, &ResolutionIssue{
			Kind:    IssueUnresolvable,
			Pattern: name,
			Message: err.Error(),
			Path:    path,
		}
	}

	node := &MetricResolution{Name: name, Type: metric.Type, Path: path, HomeSources: homes}
	for _, in := range metric.InputMetrics() {
		inputNode, issue := r.resolveMetric(in.Name, path)
		if issue != nil {
			return nil, issue
		}
		node.Inputs = append(node.Inputs, *inputNode)
	}
	return node, nil
}

// candidate is one resolvable spec with a stable qualified name.
type candidate struct {
	spec domain.Spec
	name string
}

// candidateSpecs gathers every spec reachable from every queried metric's
// home data sources: local dimensions and entities (empty entity links),
// dimensions and entities one shared-entity hop away, and the generic time
// axis. A spec reachable from only some of the queried metrics is excluded,
// since the other metrics' aggregation subtrees could never materialize it.
// Candidates are deduplicated by qualified name and sorted for deterministic
// issue output.
func (r *Resolver) candidateSpecs(metrics []MetricResolution) []candidate {
	// With no resolved metrics only the generic time axis remains, so the
	// metric's own issue is not compounded by noise about its items.
	byName := r.metricCandidates(MetricResolution{})
	if len(metrics) > 0 {
		byName = r.metricCandidates(metrics[0])
		for _, m := range metrics[1:] {
			reachable := r.metricCandidates(m)
			for name := range byName {
				if _, ok := reachable[name]; !ok {
					delete(byName, name)
				}
			}
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]candidate, 0, len(names))
	for _, name := range names {
		out = append(out, candidate{spec: byName[name], name: name})
	}
	return out
}

// metricCandidates returns the specs reachable from one metric's home data
// sources, keyed by qualified name.
func (r *Resolver) metricCandidates(metric MetricResolution) map[string]domain.Spec {
	byName := map[string]domain.Spec{}

	add := func(spec domain.Spec) {
		name := spec.QualifiedName()
		if _, ok := byName[name]; !ok {
			byName[name] = spec
		}
	}

	addSourceSpecs := func(sourceName string, links []string) {
		ds, err := r.lookup.DataSource(sourceName)
		if err != nil {
			return
		}
		for _, dim := range ds.Dimensions {
			switch dim.Kind {
			case domain.DimensionCategorical:
				add(domain.DimensionSpec{ElementName: dim.Name, EntityLinks: links})
			case domain.DimensionTime:
				add(domain.TimeDimensionSpec{ElementName: dim.Name, Granularity: dim.Granularity, EntityLinks: links})
			}
		}
		for _, entity := range ds.Entities {
			// The key an entity-linked source was joined through is already
			// represented by the unlinked entity spec.
			if len(links) > 0 && entity.Reference == links[len(links)-1] {
				continue
			}
			add(domain.EntitySpec{ElementName: entity.Reference, EntityLinks: links})
		}
	}

	// The generic time axis is always resolvable; its canonical candidate
	// is day grain, with coarser grains reachable via the pattern's
	// granularity request.
	add(domain.TimeDimensionSpec{ElementName: domain.MetricTimeElementName, Granularity: domain.GranularityDay})

	for _, home := range metric.HomeSources {
		addSourceSpecs(home, nil)

		ds, err := r.lookup.DataSource(home)
		if err != nil {
			continue
		}
		for _, entity := range ds.Entities {
			for _, joined := range r.lookup.EntityDataSources(entity.Reference) {
				if joined == home {
					continue
				}
				addSourceSpecs(joined, []string{entity.Reference})
			}
		}
	}

	return byName
}

// resolveItem matches one pattern against the candidate set: exactly one
// match resolves, zero or multiple matches become issues.
func (r *Resolver) resolveItem(pattern SpecPattern, candidates []candidate, path ResolutionPath) (domain.Spec, *ResolutionIssue) {
	var matches []candidate
	for _, c := range candidates {
		if pattern.Matches(c.spec) {
			matches = append(matches, c)
		}
	}

	switch len(matches) {
	case 1:
		return applyGranularity(matches[0].spec, pattern), nil
	case 0:
		suggestions := nearMisses(pattern, candidates)
		msg := fmt.Sprintf("group-by item %q does not match any dimension, entity, or time axis "+
			"reachable from the queried metrics", pattern.Raw)
		if len(suggestions) > 0 {
			msg += fmt.Sprintf("; did you mean one of: %s", strings.Join(suggestions, ", "))
		}
		return nil, &ResolutionIssue{
			Kind:    IssueUnresolvable,
			Pattern: pattern.Raw,
			Message: msg,
			Path:    path,
		}
	default:
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, m.name)
		}
		return nil, &ResolutionIssue{
			Kind:    IssueAmbiguous,
			Pattern: pattern.Raw,
			Message: fmt.Sprintf("group-by item %q is ambiguous; qualify it with an entity link. Candidates: %s",
				pattern.Raw, strings.Join(names, ", ")),
			Candidates: names,
			Path:       path,
		}
	}
}

// applyGranularity narrows a resolved time dimension spec to the pattern's
// requested granularity.
func applyGranularity(spec domain.Spec, pattern SpecPattern) domain.Spec {
	timeSpec, ok := spec.(domain.TimeDimensionSpec)
	if !ok || pattern.Granularity == "" {
		return spec
	}
	timeSpec.Granularity = pattern.Granularity
	return timeSpec
}

// nearMisses suggests candidate names related to an unresolvable pattern:
// same element name reached through different links, or names sharing the
// element name as a substring. Capped to keep messages readable.
func nearMisses(pattern SpecPattern, candidates []candidate) []string {
	const maxSuggestions = 5
	var out []string
	for _, c := range candidates {
		if len(out) == maxSuggestions {
			break
		}
		if strings.Contains(c.name, pattern.ElementName) || strings.Contains(pattern.ElementName, elementOf(c.name)) {
			out = append(out, c.name)
		}
	}
	return out
}

func elementOf(qualified string) string {
	parts := strings.Split(qualified, domain.SpecSeparator)
	return parts[len(parts)-1]
}
