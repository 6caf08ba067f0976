package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hwantajee/metricflow/internal/dataflow"
	"github.com/hwantajee/metricflow/internal/manifest"
	"github.com/hwantajee/metricflow/internal/query"
	"github.com/hwantajee/metricflow/internal/validation"
)

func newExplainCmd() *cobra.Command {
	var (
		manifestPath string
		queryPath    string
	)

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Compile a query into a dataflow plan and print it",
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

			results := validation.NewEngine(lookup).ValidateQuery(resolution)
			if results.Blocking() {
				for _, issue := range results.All() {
					fmt.Fprintln(cmd.ErrOrStderr(), issue.String())
				}
				return fmt.Errorf("query failed validation with %d error(s)", len(results.Errors))
			}

			plan, err := dataflow.NewBuilder(lookup).Build(resolution)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), dataflow.FormatPlan(plan))
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Path to the semantic manifest YAML (required)")
	cmd.Flags().StringVar(&queryPath, "query", "", "Path to the query request YAML (required)")
	_ = cmd.MarkFlagRequired("manifest")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}
