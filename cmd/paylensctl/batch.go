package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/PayLens/internal/dataset"
	"github.com/MikeSquared-Agency/PayLens/internal/service"
)

var (
	batchOut       string
	batchFormat    string
	batchThreshold float64
	batchWorkers   int
	batchTimeLimit time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch <payroll.csv>",
	Short: "Explain every row of a payroll CSV and suggest the eligible pay codes",
	Long: `Reads a payroll CSV with one column per pay code plus contribution_amount and
contribution_rate, explains every row and prints the codes selected in at least
--threshold of the rows.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.StringVarP(&batchOut, "out", "o", "", "write the report to this file")
	f.StringVar(&batchFormat, "format", "", "report file format: csv or json (default from --out extension)")
	f.Float64Var(&batchThreshold, "threshold", -1, "suggestion threshold in [0, 1] (default from config)")
	f.IntVarP(&batchWorkers, "workers", "w", 0, "rows solved concurrently (default from config)")
	f.DurationVar(&batchTimeLimit, "time-limit", 0, "per-row solver time limit (default from config)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := dataset.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	opts := svc.BatchOptions()
	if batchThreshold >= 0 {
		opts.SummaryThreshold = batchThreshold
	}
	if batchWorkers > 0 {
		opts.Workers = batchWorkers
	}
	if batchTimeLimit > 0 {
		opts.TimeLimit = batchTimeLimit
	}

	format := outputFormat(batchOut, batchFormat)
	res, err := svc.RunBatch(cmd.Context(), service.BatchRequest{
		Rows:    rows,
		Options: opts,
		Format:  format,
	})
	if err != nil {
		return err
	}

	if err := dataset.WriteText(cmd.OutOrStdout(), res.Report); err != nil {
		return err
	}
	if batchOut == "" {
		return nil
	}

	out, err := os.Create(batchOut)
	if err != nil {
		return err
	}
	if err := dataset.Render(out, res.Report, format); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nReport written to %s\n", batchOut)
	return nil
}

// outputFormat prefers an explicit format, then the output file extension.
func outputFormat(path, format string) string {
	if format != "" {
		return format
	}
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); dataset.ValidFormat(ext) {
		return ext
	}
	return dataset.FormatCSV
}
