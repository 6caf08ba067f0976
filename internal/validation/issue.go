// Package validation checks a semantic manifest and a resolved query for
// semantic legality. Rules are pure functions from their inputs to an
// ordered issue list; independent rule invocations may run in parallel and
// are merged by stable input order.
package validation

import (
	"fmt"
	"strings"

	"github.com/hwantajee/metricflow/internal/query"
)

// Severity classifies a validation issue. Only errors block use of the
// model or query.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	// SeverityFutureError marks behavior that will become an error in a
	// later release; informational today.
	SeverityFutureError Severity = "FUTURE_ERROR"
)

// Context locates the subject of an issue: a file, a data-source element,
// or a resolution path. Unset fields are omitted from rendering.
type Context struct {
	File       string
	DataSource string
	Element    string
	Path       query.ResolutionPath
}

// String renders the non-empty context parts.
func (c Context) String() string {
	var parts []string
	if c.File != "" {
		parts = append(parts, "file "+c.File)
	}
	if c.DataSource != "" {
		elem := c.DataSource
		if c.Element != "" {
			elem += "." + c.Element
		}
		parts = append(parts, "data source "+elem)
	}
	if len(c.Path) > 0 {
		parts = append(parts, c.Path.String())
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ", ")
}

// Issue is one validation finding.
type Issue struct {
	Severity Severity
	Message  string
	Context  Context
}

// String renders the issue with its severity and context.
func (i Issue) String() string {
	if ctx := i.Context.String(); ctx != "" {
		return fmt.Sprintf("[%s] %s (%s)", i.Severity, i.Message, ctx)
	}
	return fmt.Sprintf("[%s] %s", i.Severity, i.Message)
}

// Results partitions issues by severity, preserving input order within each
// partition. A model or query is usable only when the error partition is
// empty.
type Results struct {
	Errors       []Issue
	Warnings     []Issue
	FutureErrors []Issue
}

// FromIssues partitions an ordered issue list.
func FromIssues(issues []Issue) Results {
	var r Results
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			r.Errors = append(r.Errors, issue)
		case SeverityWarning:
			r.Warnings = append(r.Warnings, issue)
		case SeverityFutureError:
			r.FutureErrors = append(r.FutureErrors, issue)
		default:
			// An unknown severity must never be dropped silently.
			r.Errors = append(r.Errors, Issue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("issue with unknown severity %q: %s", issue.Severity, issue.Message),
				Context:  issue.Context,
			})
		}
	}
	return r
}

// Merge appends other's partitions after r's, preserving order.
func (r Results) Merge(other Results) Results {
	return Results{
		Errors:       append(append([]Issue(nil), r.Errors...), other.Errors...),
		Warnings:     append(append([]Issue(nil), r.Warnings...), other.Warnings...),
		FutureErrors: append(append([]Issue(nil), r.FutureErrors...), other.FutureErrors...),
	}
}

// Blocking reports whether the error partition is non-empty.
func (r Results) Blocking() bool { return len(r.Errors) > 0 }

// All returns every issue, errors first, then warnings, then future errors.
func (r Results) All() []Issue {
	out := make([]Issue, 0, len(r.Errors)+len(r.Warnings)+len(r.FutureErrors))
	out = append(out, r.Errors...)
	out = append(out, r.Warnings...)
	out = append(out, r.FutureErrors...)
	return out
}
