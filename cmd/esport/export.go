package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helmuth/esport/internal/index"
	"github.com/helmuth/esport/internal/query"
	"github.com/helmuth/esport/internal/sink"
	"github.com/helmuth/esport/internal/transfer"
)

var indexExportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Export every matching record to the console or a file",
	Long: `Walk an index with a scroll cursor and write every page to one destination.

The destination is chosen by --output: none prints one record per line,
a .json file receives a single JSON array, and any other file is written as
CSV (tab-separated for .tsv). Lists and objects are written as JSON text
inside delimited cells.

The cursor is always released, also when the export fails or is interrupted.

Examples:
  esport index export people
  esport index export people --output people.csv --header
  esport index export people --query "name:bob or age:42" --include name,age
  esport index export logs --size 1000 --ttl 5m --output logs.json`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexExport,
}

var (
	exportSize    int
	exportTTL     string
	exportInclude string
	exportExclude string
	exportQuery   string
	exportOutput  string
	exportHeader  bool
)

func init() {
	indexCmd.AddCommand(indexExportCmd)

	indexExportCmd.Flags().IntVar(&exportSize, "size", 0, "Records per page (default export.batch_size)")
	indexExportCmd.Flags().StringVar(&exportTTL, "ttl", "", "Cursor keep-alive, e.g. 10m (default export.scroll_ttl)")
	indexExportCmd.Flags().StringVar(&exportInclude, "include", "", "Comma-separated fields to include")
	indexExportCmd.Flags().StringVar(&exportExclude, "exclude", "", "Comma-separated fields to exclude")
	indexExportCmd.Flags().StringVarP(&exportQuery, "query", "q", "", "Query string; empty matches every record")
	indexExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (.csv, .tsv or .json)")
	indexExportCmd.Flags().BoolVar(&exportHeader, "header", false, "Write a header row (default export.header)")
}

// ExportResult is the response for exports written to a file.
type ExportResult struct {
	*transfer.Stats
	Output string `json:"output"`
}

func runIndexExport(cmd *cobra.Command, args []string) error {
	size := cfg.Export.BatchSize
	if cmd.Flags().Changed("size") {
		size = exportSize
	}
	ttl := cfg.Export.ScrollTTL
	if cmd.Flags().Changed("ttl") {
		ttl = exportTTL
	}
	header := cfg.Export.Header
	if cmd.Flags().Changed("header") {
		header = exportHeader
	}

	req := index.CursorRequest{
		Index: args[0],
		Size:  size,
		TTL:   ttl,
		Projection: index.Projection{
			Include: splitFields(exportInclude),
			Exclude: splitFields(exportExclude),
		},
		Query: query.Normalize(exportQuery),
	}
	if err := req.Validate(); err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := sink.Open(exportOutput, sink.Options{Header: header, Stdout: stdout})
	if err != nil {
		return err
	}

	stats, err := transfer.Export(cmd.Context(), s, req, out,
		transfer.WithLogger(logger),
		transfer.WithProgress(func(done, _ int) {
			logger.Debug("export progress", "index", req.Index, "records", done)
		}),
	)
	if err != nil {
		return fmt.Errorf("exporting %s: %w", req.Index, err)
	}

	logger.Info("export finished", "index", stats.Index, "records", stats.Records, "batches", stats.Batches, "duration", stats.Duration)
	if out.Kind() == sink.KindConsole {
		return nil
	}
	if humanOutput {
		outputHuman("Exported %d records from %s to %s\n", stats.Records, stats.Index, exportOutput)
		return nil
	}
	return outputJSON(ExportResult{Stats: stats, Output: exportOutput})
}

// splitFields parses a comma-separated field list, dropping blanks.
func splitFields(s string) []string {
	var fields []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
