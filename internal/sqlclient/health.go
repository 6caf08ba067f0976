package sqlclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HealthCheckResult is the outcome of one engine probe.
type HealthCheckResult struct {
	Name     string
	Duration time.Duration
	Err      error
}

// OK reports whether the probe passed.
func (r HealthCheckResult) OK() bool { return r.Err == nil }

// HealthChecks probes the engine with a fixed sequence of cheap
// operations: a trivial select, a dry run, and a schema round trip in a
// throwaway schema. All probes run even when earlier ones fail, so the
// result slice always has one entry per probe.
func HealthChecks(ctx context.Context, client Client) []HealthCheckResult {
	schema := "mf_health_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	probes := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"select_one", func(ctx context.Context) error {
			rows, err := client.Query(ctx, "SELECT 1")
			if err != nil {
				return err
			}
			return rows.Close()
		}},
		{"dry_run_select_one", func(ctx context.Context) error {
			return client.DryRun(ctx, "SELECT 1")
		}},
		{"schema_round_trip", func(ctx context.Context) error {
			if err := client.CreateSchema(ctx, schema); err != nil {
				return fmt.Errorf("create schema %s: %w", schema, err)
			}
			// Best-effort cleanup so a failed probe does not leave the
			// throwaway schema behind. The drop is idempotent.
			defer func() { _ = client.DropSchema(ctx, schema, true) }()
			table := schema + ".health_probe"
			if err := client.CreateTableAsSelect(ctx, table, "SELECT 1 AS ok"); err != nil {
				return fmt.Errorf("create table %s: %w", table, err)
			}
			if err := client.DropSchema(ctx, schema, true); err != nil {
				return fmt.Errorf("drop schema %s: %w", schema, err)
			}
			return nil
		}},
	}

	results := make([]HealthCheckResult, 0, len(probes))
	for _, probe := range probes {
		start := time.Now()
		err := probe.fn(ctx)
		results = append(results, HealthCheckResult{
			Name:     probe.name,
			Duration: time.Since(start),
			Err:      err,
		})
	}
	return results
}
