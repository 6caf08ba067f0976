// Package main is the entry point for the metricflow CLI binary.
package main

import (
	"os"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/hwantajee/metricflow/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
