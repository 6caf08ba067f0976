package validation

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hwantajee/metricflow/internal/manifest"
	"github.com/hwantajee/metricflow/internal/query"
)

// Engine runs the rule catalogs. Model rules and query rules share no
// mutable state, so independent rule invocations run in parallel; results
// are merged by stable input order, never completion order.
type Engine struct {
	lookup      *manifest.Lookup
	modelRules  []ModelRule
	queryRules  []QueryRule
	parallelism int
}

// NewEngine creates an engine with the default rule catalogs.
func NewEngine(lookup *manifest.Lookup) *Engine {
	return &Engine{
		lookup: lookup,
		modelRules: []ModelRule{
			UnusedEntityRule{},
			MeasureAggTimeRule{},
		},
		queryRules: []QueryRule{
			MetricTimeRule{},
		},
		parallelism: 8,
	}
}

// ValidateModel runs every model rule over the manifest.
func (e *Engine) ValidateModel() Results {
	batches := make([][]Issue, len(e.modelRules))

	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for i, rule := range e.modelRules {
		g.Go(func() error {
			batches[i] = runSafely(rule.Name(), query.ResolutionPath{}, func() []Issue {
				return rule.ValidateModel(e.lookup)
			})
			return nil
		})
	}
	_ = g.Wait()

	var issues []Issue
	for _, batch := range batches {
		issues = append(issues, batch...)
	}
	return FromIssues(issues)
}

// ValidateQuery runs every query rule for every metric of a resolution.
// Resolution issues (unresolvable or ambiguous items) are folded in as
// error issues ahead of rule output.
func (e *Engine) ValidateQuery(resolution *query.Resolution) Results {
	var issues []Issue
	for _, ri := range resolution.Issues {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Message:  ri.Message,
			Context:  Context{Path: ri.Path},
		})
	}

	type invocation struct {
		rule   QueryRule
		metric query.MetricResolution
	}
	var invocations []invocation
	for _, rule := range e.queryRules {
		for _, metric := range resolution.Metrics {
			invocations = append(invocations, invocation{rule: rule, metric: metric})
		}
	}

	batches := make([][]Issue, len(invocations))
	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for i, inv := range invocations {
		g.Go(func() error {
			batches[i] = runSafely(inv.rule.Name(), inv.metric.Path, func() []Issue {
				return inv.rule.ValidateMetric(e.lookup, inv.metric, resolution.Input, inv.metric.Path)
			})
			return nil
		})
	}
	_ = g.Wait()

	for _, batch := range batches {
		issues = append(issues, batch...)
	}
	return FromIssues(issues)
}

// runSafely invokes one rule for one subject, converting a panic into a
// structured error issue carrying the failure description and resolution
// path. A failing invocation never aborts the rest of the pass.
func runSafely(ruleName string, path query.ResolutionPath, fn func() []Issue) (issues []Issue) {
	defer func() {
		if r := recover(); r != nil {
			issues = []Issue{{
				Severity: SeverityError,
				Message:  fmt.Sprintf("validation rule %q failed: %v", ruleName, r),
				Context:  Context{Path: path},
			}}
		}
	}()
	return fn()
}
