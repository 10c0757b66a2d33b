package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridsmith/sldgen/pkg/pipeline"
	"github.com/gridsmith/sldgen/pkg/validate"
)

// validateCommand creates the validate command: run the pipeline up to
// the validator and report findings without emitting a document.
func (c *CLI) validateCommand() *cobra.Command {
	opts := generateOpts{
		endpoint:   "http://localhost:3030",
		convention: pipeline.DefaultConvention,
	}

	cmd := &cobra.Command{
		Use:   "validate [dataset]",
		Short: "Report topology findings for a dataset",
		Long: `Run the conversion pipeline and list topology findings: orphan
connectivity nodes, open ends, and equipment with no resolvable
connection to the rest of the topology. Findings never fail a
conversion; this command surfaces them for model cleanup.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataset := ""
			if len(args) == 1 {
				dataset = args[0]
			}
			if dataset == "" && opts.input == "" {
				return fmt.Errorf("a dataset argument or --input is required")
			}
			return c.runValidate(cmd.Context(), dataset, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.endpoint, "endpoint", opts.endpoint, "SPARQL endpoint base URL")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "replay rows from a captured JSON file instead of fetching")
	cmd.Flags().StringVar(&opts.convention, "convention", opts.convention, "drawing convention")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runValidate(ctx context.Context, dataset string, opts *generateOpts) error {
	// Validation always recomputes: a cached document would skip the
	// validator and carry only the findings count.
	result, err := c.runPipeline(ctx, dataset, opts.endpoint, opts.input, opts.convention, true, opts.noCache)
	if err != nil {
		return err
	}

	if len(result.Findings) == 0 {
		printSuccess("No findings (%d equipments, %d connectivity nodes)",
			result.Stats.EquipmentCount, result.Stats.NodeCount)
		return nil
	}

	printWarning("%d findings", len(result.Findings))
	for _, code := range []validate.FindingCode{
		validate.FindingOrphanNode,
		validate.FindingOpenEnd,
		validate.FindingDisconnectedEquipment,
		validate.FindingBusbarConflict,
	} {
		group := result.Findings.ByCode(code)
		if len(group) == 0 {
			continue
		}
		printInfo("%s (%d)", code, len(group))
		for _, f := range group {
			detail := trimURI(f.Subject)
			if f.Detail != "" {
				detail += " " + StyleDim.Render(f.Detail)
			}
			printDetail("%s", detail)
		}
	}
	return nil
}
