package sqlclient

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var _ Client = (*DB)(nil)

// DB implements Client over a database/sql pool. The driver is chosen by
// the caller at open time, so the same implementation serves DuckDB in the
// CLI and SQLite in tests.
type DB struct {
	db *sql.DB
}

// NewDB wraps an already-open pool.
func NewDB(db *sql.DB) *DB {
	return &DB{db: db}
}

// Open opens a pool for the given driver and DSN and verifies it is
// usable before returning.
func Open(driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return &DB{db: db}, nil
}

func (c *DB) Query(ctx context.Context, stmt string) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, stmt)
}

func (c *DB) Execute(ctx context.Context, stmt string) error {
	_, err := c.db.ExecContext(ctx, stmt)
	return err
}

func (c *DB) DryRun(ctx context.Context, stmt string) error {
	rows, err := c.db.QueryContext(ctx, "EXPLAIN "+stmt)
	if err != nil {
		return err
	}
	return rows.Close()
}

func (c *DB) CreateTableAsSelect(ctx context.Context, table string, selectStmt string) error {
	return c.Execute(ctx, fmt.Sprintf("CREATE TABLE %s AS %s", table, selectStmt))
}

func (c *DB) CreateSchema(ctx context.Context, name string) error {
	return c.Execute(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", name))
}

func (c *DB) DropSchema(ctx context.Context, name string, cascade bool) error {
	stmt := fmt.Sprintf("DROP SCHEMA IF EXISTS %s", name)
	if cascade {
		stmt += " CASCADE"
	}
	return c.Execute(ctx, stmt)
}

func (c *DB) Close() error {
	return c.db.Close()
}
