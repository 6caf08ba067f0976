package query

import "strings"

// PathStepKind tags one decision step in a resolution path.
type PathStepKind string

const (
	StepQuery       PathStepKind = "query"
	StepMetric      PathStepKind = "metric"
	StepInputMetric PathStepKind = "input_metric"
)

// PathStep is one step in a resolution path.
type PathStep struct {
	Kind PathStepKind
	Name string
}

// ResolutionPath records the ordered chain of decisions
// (query -> metric -> input metric -> ...) that led to a resolution.
// It is attached to issues for diagnostics.
type ResolutionPath []PathStep

// QueryPath returns the root path for a query.
func QueryPath() ResolutionPath {
	return ResolutionPath{{Kind: StepQuery, Name: "query"}}
}

// ForMetric extends the path with a metric step.
func (p ResolutionPath) ForMetric(name string) ResolutionPath {
	return p.append(PathStep{Kind: StepMetric, Name: name})
}

// ForInputMetric extends the path with an input-metric step.
func (p ResolutionPath) ForInputMetric(name string) ResolutionPath {
	return p.append(PathStep{Kind: StepInputMetric, Name: name})
}

func (p ResolutionPath) append(step PathStep) ResolutionPath {
	out := make(ResolutionPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, step)
}

// String renders the path as "query -> metric:bookings -> input_metric:visits".
func (p ResolutionPath) String() string {
	if len(p) == 0 {
		return "(empty path)"
	}
	parts := make([]string, 0, len(p))
	for _, step := range p {
		if step.Kind == StepQuery {
			parts = append(parts, string(step.Kind))
			continue
		}
		parts = append(parts, string(step.Kind)+":"+step.Name)
	}
	return strings.Join(parts, " -> ")
}
