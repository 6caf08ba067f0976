package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hwantajee/metricflow/internal/sqlclient"
)

func newPingCmd() *cobra.Command {
	var (
		driver string
		dsn    string
	)

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Probe the SQL engine with a sequence of health checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := sqlclient.Open(driver, dsn)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			tagged := sqlclient.NewTagged(client, slog.Default())
			results := sqlclient.HealthChecks(cmd.Context(), tagged)

			out := cmd.OutOrStdout()
			failed := 0
			for _, result := range results {
				status := "ok"
				if !result.OK() {
					status = fmt.Sprintf("failed: %v", result.Err)
					failed++
				}
				fmt.Fprintf(out, "%-20s %-12s %s\n", result.Name, result.Duration.Round(0), status)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d health checks failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "duckdb", "database/sql driver name")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Connection string (empty for in-memory DuckDB)")
	return cmd
}
