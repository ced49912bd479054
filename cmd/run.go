package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/turnover-cli/internal/config"
	"github.com/sells-group/turnover-cli/internal/model"
	"github.com/sells-group/turnover-cli/internal/tabular"
)

// previewLines is the number of output lines echoed by --preview (header included).
const previewLines = 12

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process an input table and write the output CSV",
	Example: `  turnover-cli run --input companies.csv
  turnover-cli run --input companies.xlsx --output out.csv --fast=false --deep-fetch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		applyRunOverrides(cmd, cfg)
		return runBatch(cmd.Context(), cfg, opts, cmd.OutOrStdout())
	},
}

type runOptions struct {
	Input   string
	Output  string
	Limit   int
	DryRun  bool
	Preview bool
}

func runOptionsFromFlags(cmd *cobra.Command) (runOptions, error) {
	var o runOptions
	o.Input, _ = cmd.Flags().GetString("input")
	o.Output, _ = cmd.Flags().GetString("output")
	o.Limit, _ = cmd.Flags().GetInt("limit")
	o.DryRun, _ = cmd.Flags().GetBool("dry-run")
	o.Preview, _ = cmd.Flags().GetBool("preview")
	if o.Input == "" {
		return o, eris.New("run: --input is required")
	}
	return o, nil
}

// applyRunOverrides copies explicitly set mode flags over the loaded config.
func applyRunOverrides(cmd *cobra.Command, c *config.Config) {
	if cmd.Flags().Changed("fast") {
		c.Pipeline.FastMode, _ = cmd.Flags().GetBool("fast")
	}
	if cmd.Flags().Changed("deep-fetch") {
		c.Pipeline.DeepFetch, _ = cmd.Flags().GetBool("deep-fetch")
	}
	if cmd.Flags().Changed("workers") {
		c.Pipeline.Workers, _ = cmd.Flags().GetInt("workers")
	}
}

// runBatch reads the input table, enriches every row and writes the output.
func runBatch(ctx context.Context, c *config.Config, o runOptions, out io.Writer) error {
	records, err := tabular.ReadFile(o.Input)
	if err != nil {
		return eris.Wrap(err, "run: read input")
	}
	if o.Limit > 0 && len(records) > o.Limit {
		records = records[:o.Limit]
	}

	log := zap.L().With(zap.String("input", o.Input))
	log.Info("run: input loaded", zap.Int("records", len(records)))

	if o.DryRun {
		return printRecords(out, records)
	}

	env, err := initPipeline(ctx, c)
	if err != nil {
		return err
	}
	defer env.Close()

	res := env.Pipeline.Process(ctx, filepath.Base(o.Input), records)

	if err := tabular.WriteFile(o.Output, res.Records); err != nil {
		return eris.Wrap(err, "run: write output")
	}

	if o.Preview {
		var buf bytes.Buffer
		if err := tabular.WriteCSV(&buf, res.Records); err != nil {
			return eris.Wrap(err, "run: render preview")
		}
		writePreview(out, &buf, previewLines)
	}

	_, _ = fmt.Fprintf(out, "done: %s\n", o.Output)
	return nil
}

func printRecords(out io.Writer, records []model.InputRecord) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []model.InputRecord{}
	}
	return eris.Wrap(enc.Encode(records), "run: encode records")
}

// writePreview copies at most n lines of r to out.
func writePreview(out io.Writer, r io.Reader, n int) {
	sc := bufio.NewScanner(r)
	for i := 0; i < n && sc.Scan(); i++ {
		_, _ = fmt.Fprintln(out, sc.Text())
	}
}

func init() {
	runCmd.Flags().String("input", "", "input CSV or XLSX file (required)")
	runCmd.Flags().String("output", "output_extracted.csv", "output CSV file")
	runCmd.Flags().Bool("fast", true, "skip all network evidence gathering (default from config)")
	runCmd.Flags().Bool("deep-fetch", false, "also fetch full page text for search results (default from config)")
	runCmd.Flags().Int("workers", 0, "concurrent records (default from config)")
	runCmd.Flags().Int("limit", 0, "process at most this many rows (0 = all)")
	runCmd.Flags().Bool("dry-run", false, "print parsed rows as JSON and exit")
	runCmd.Flags().Bool("preview", false, "print the first lines of the output")
	rootCmd.AddCommand(runCmd)
}
