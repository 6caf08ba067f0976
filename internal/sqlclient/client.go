// Package sqlclient abstracts the SQL engine the compiled plans run
// against behind a single capability interface.
package sqlclient

import (
	"context"
	"database/sql"
)

// Client is the full engine surface the rest of the system depends on.
// Implementations must be safe for concurrent use.
type Client interface {
	// Query runs a statement that returns rows.
	Query(ctx context.Context, stmt string) (*sql.Rows, error)

	// Execute runs a statement for its side effects.
	Execute(ctx context.Context, stmt string) error

	// DryRun asks the engine to plan the statement without running it,
	// surfacing syntax and binding errors cheaply.
	DryRun(ctx context.Context, stmt string) error

	// CreateTableAsSelect materializes the result of a SELECT.
	CreateTableAsSelect(ctx context.Context, table string, selectStmt string) error

	CreateSchema(ctx context.Context, name string) error
	DropSchema(ctx context.Context, name string, cascade bool) error

	Close() error
}
