package sqlclient

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// requestIDPrefix marks statements issued by this process so they can be
// correlated in the engine's query log.
const requestIDPrefix = "mf_rid_"

var _ Client = (*Tagged)(nil)

// Tagged decorates a Client so every statement carries a unique request ID
// as a leading SQL comment, and logs each statement with its duration and
// outcome.
type Tagged struct {
	inner  Client
	logger *slog.Logger
}

// NewTagged wraps a client. A nil logger falls back to slog.Default().
func NewTagged(inner Client, logger *slog.Logger) *Tagged {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tagged{inner: inner, logger: logger}
}

// NewRequestID generates a fresh tag value.
func NewRequestID() string {
	return requestIDPrefix + uuid.NewString()
}

// TagStatement prepends the request ID comment to a statement.
func TagStatement(requestID, stmt string) string {
	return fmt.Sprintf("-- %s\n%s", requestID, stmt)
}

// RequestIDFromStatement recovers the tag from a tagged statement, or ""
// when the statement carries none.
func RequestIDFromStatement(stmt string) string {
	line, _, _ := strings.Cut(stmt, "\n")
	rest, found := strings.CutPrefix(line, "-- ")
	if !found || !strings.HasPrefix(rest, requestIDPrefix) {
		return ""
	}
	return strings.TrimSpace(rest)
}

func (c *Tagged) run(ctx context.Context, verb, stmt string,
	fn func(ctx context.Context, tagged string) error) error {

	requestID := NewRequestID()
	start := time.Now()
	err := fn(ctx, TagStatement(requestID, stmt))

	logger := c.logger.With(
		slog.String("request_id", requestID),
		slog.String("verb", verb),
		slog.Duration("duration", time.Since(start)))
	if err != nil {
		logger.ErrorContext(ctx, "statement failed", slog.String("error", err.Error()))
		return err
	}
	logger.DebugContext(ctx, "statement finished")
	return nil
}

func (c *Tagged) Query(ctx context.Context, stmt string) (*sql.Rows, error) {
	var rows *sql.Rows
	err := c.run(ctx, "query", stmt, func(ctx context.Context, tagged string) error {
		var err error
		rows, err = c.inner.Query(ctx, tagged)
		return err
	})
	return rows, err
}

func (c *Tagged) Execute(ctx context.Context, stmt string) error {
	return c.run(ctx, "execute", stmt, func(ctx context.Context, tagged string) error {
		return c.inner.Execute(ctx, tagged)
	})
}

func (c *Tagged) DryRun(ctx context.Context, stmt string) error {
	return c.run(ctx, "dry_run", stmt, func(ctx context.Context, tagged string) error {
		return c.inner.DryRun(ctx, tagged)
	})
}

func (c *Tagged) CreateTableAsSelect(ctx context.Context, table string, selectStmt string) error {
	return c.run(ctx, "create_table_as_select", selectStmt,
		func(ctx context.Context, tagged string) error {
			return c.inner.CreateTableAsSelect(ctx, table, tagged)
		})
}

func (c *Tagged) CreateSchema(ctx context.Context, name string) error {
	return c.inner.CreateSchema(ctx, name)
}

func (c *Tagged) DropSchema(ctx context.Context, name string, cascade bool) error {
	return c.inner.DropSchema(ctx, name, cascade)
}

func (c *Tagged) Close() error {
	return c.inner.Close()
}
