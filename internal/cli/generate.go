package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridsmith/sldgen/pkg/extract"
	"github.com/gridsmith/sldgen/pkg/pipeline"
	"github.com/gridsmith/sldgen/pkg/sparql"
)

// generateOpts holds the command-line flags for the generate command.
type generateOpts struct {
	endpoint   string // SPARQL endpoint base URL
	input      string // captured rows file (replay, skips the endpoint)
	output     string // output file path; "-" or empty means stdout
	convention string // drawing convention name
	config     string // TOML convention override file
	refresh    bool   // bypass caches
	noCache    bool   // disable caching entirely
}

// generateCommand creates the generate command, the main conversion entry
// point: fetch a dataset, resolve its topology, and write the layout
// document.
func (c *CLI) generateCommand() *cobra.Command {
	opts := generateOpts{
		endpoint:   "http://localhost:3030",
		convention: pipeline.DefaultConvention,
	}

	cmd := &cobra.Command{
		Use:   "generate [dataset]",
		Short: "Convert a dataset into a layout document",
		Long: `Convert a substation dataset into a single-line-diagram layout document.

The dataset is fetched from the SPARQL endpoint, or replayed from a
captured rows file with --input. The same rows and convention always
produce byte-identical output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataset := ""
			if len(args) == 1 {
				dataset = args[0]
			}
			if dataset == "" && opts.input == "" {
				return fmt.Errorf("a dataset argument or --input is required")
			}
			return c.runGenerate(cmd.Context(), dataset, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.endpoint, "endpoint", opts.endpoint, "SPARQL endpoint base URL")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "replay rows from a captured JSON file instead of fetching")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.convention, "convention", opts.convention, "drawing convention")
	cmd.Flags().StringVar(&opts.config, "config", "", "TOML convention override file")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass caches and refetch")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runGenerate(ctx context.Context, dataset string, opts *generateOpts) error {
	if err := loadConventionConfig(opts.config); err != nil {
		return err
	}

	result, err := c.runPipeline(ctx, dataset, opts.endpoint, opts.input, opts.convention, opts.refresh, opts.noCache)
	if err != nil {
		return err
	}

	data, err := result.Document.Marshal()
	if err != nil {
		return fmt.Errorf("serialize document: %w", err)
	}

	stats := result.Document.Statistics
	printSuccess("Generated layout (%d substations, %d voltage levels, %d bays)",
		stats.Substations, stats.VoltageLevels, stats.Bays)
	printRunStats(result)

	if opts.output == "" || opts.output == "-" {
		fmt.Print(string(data))
		return nil
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return err
	}
	printFile(opts.output)
	return nil
}

// runPipeline assembles the source and runner shared by generate,
// validate, and dot.
func (c *CLI) runPipeline(ctx context.Context, dataset, endpoint, input, conventionName string, refresh, noCache bool) (*pipeline.Result, error) {
	src, pipelineOpts, err := c.buildSource(dataset, endpoint, input, conventionName, refresh)
	if err != nil {
		return nil, err
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return nil, fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	label := dataset
	if label == "" {
		label = input
	}
	spin := newSpinnerWithContext(ctx, fmt.Sprintf("Converting %s", label))
	spin.Start()
	result, err := runner.Execute(ctx, src, pipelineOpts)
	spin.Stop()
	if err != nil {
		return nil, err
	}
	return result, nil
}

// buildSource picks between endpoint fetch and file replay.
func (c *CLI) buildSource(dataset, endpoint, input, conventionName string, refresh bool) (pipeline.Source, pipeline.Options, error) {
	opts := pipeline.Options{
		Convention: conventionName,
		Refresh:    refresh,
		Logger:     c.Logger,
	}

	if input != "" {
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, opts, fmt.Errorf("read rows file %s: %w", input, err)
		}
		var rows extract.Rows
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, opts, fmt.Errorf("parse rows file %s: %w", input, err)
		}
		return &pipeline.StaticSource{Rows: &rows}, opts, nil
	}

	opts.Endpoint = endpoint
	opts.Dataset = dataset
	client := sparql.NewClient(endpoint, sparql.WithLogger(c.Logger))
	return &sparql.Source{Client: client, Dataset: dataset}, opts, nil
}

// printRunStats prints one summary line for a finished run.
func printRunStats(result *pipeline.Result) {
	var parts []string
	parts = append(parts, fmt.Sprintf("%d rows", result.Stats.RowCount))
	parts = append(parts, fmt.Sprintf("%d equipments", result.Stats.EquipmentCount))
	if result.Stats.FindingCount > 0 {
		parts = append(parts, fmt.Sprintf("%d findings", result.Stats.FindingCount))
	}
	status := iconFresh
	statusStyle := styleComputed
	if result.CacheInfo.DocumentHit || result.CacheInfo.RowsHit {
		status = iconCached
		statusStyle = styleCached
	}
	parts = append(parts, statusStyle.Render(status))

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	fmt.Println(line)
}

// trimURI shortens a URI to its fragment or last path segment for display.
func trimURI(uri string) string {
	if i := strings.LastIndexAny(uri, "#/"); i >= 0 && i < len(uri)-1 {
		return uri[i+1:]
	}
	return uri
}
