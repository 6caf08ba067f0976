package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hwantajee/metricflow/internal/manifest"
	"github.com/hwantajee/metricflow/internal/query"
	"github.com/hwantajee/metricflow/internal/validation"
)

func newValidateCmd() *cobra.Command {
	var (
		manifestPath string
		queryPath    string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a semantic manifest, and optionally a query against it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			model, err := manifest.Load(manifestPath)
			if err != nil {
				return err
			}
			lookup, err := manifest.NewLookup(model)
			if err != nil {
				return err
			}

			engine := validation.NewEngine(lookup)
			results := engine.ValidateModel()

			if queryPath != "" {
				req, err := loadQueryRequest(queryPath)
				if err != nil {
					return err
				}
				input, err := query.ParseResolverInput(req)
				if err != nil {
					return err
				}
				resolution, err := query.NewResolver(lookup).Resolve(input)
				if err != nil {
					return err
				}
				results = results.Merge(engine.ValidateQuery(resolution))
			}

			out := cmd.OutOrStdout()
			for _, issue := range results.All() {
				fmt.Fprintln(out, issue.String())
			}
			if results.Blocking() {
				return fmt.Errorf("validation failed with %d error(s)", len(results.Errors))
			}
			fmt.Fprintln(out, "OK")
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Path to the semantic manifest YAML (required)")
	cmd.Flags().StringVar(&queryPath, "query", "", "Path to a query request YAML to validate as well")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}
