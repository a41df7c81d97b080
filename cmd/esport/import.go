package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helmuth/esport/internal/importer"
	"github.com/helmuth/esport/internal/index"
	"github.com/helmuth/esport/internal/prompt"
	"github.com/helmuth/esport/internal/transfer"
)

var indexImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Index records from a CSV, TSV or JSON file",
	Long: `Read records from a file and bulk-index them.

CSV and TSV files must start with a header row; you are asked to confirm
that before anything is read (--yes skips the question). Cells holding a
JSON object or list become nested values; every other cell stays text.
A column named _id sets the document id.

JSON files must hold one array of objects.

Examples:
  esport index import people --file people.csv
  esport index import people --file people.json
  esport index import logs --file logs.tsv --yes --bulk-size 1000`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexImport,
}

var (
	importFile     string
	importYes      bool
	importBulkSize int
)

func init() {
	indexCmd.AddCommand(indexImportCmd)

	indexImportCmd.Flags().StringVarP(&importFile, "file", "f", "", "File to import (.csv, .tsv or .json)")
	indexImportCmd.Flags().BoolVarP(&importYes, "yes", "y", false, "Accept the header row without asking")
	indexImportCmd.Flags().IntVar(&importBulkSize, "bulk-size", 0, "Records per bulk request (default import.bulk_size)")
	indexImportCmd.MarkFlagRequired("file")
}

// ImportResult is the response for index import.
type ImportResult struct {
	Index   string                `json:"index"`
	File    string                `json:"file"`
	Records int                   `json:"records"`
	Indexed int                   `json:"indexed"`
	Failed  int                   `json:"failed"`
	Errors  []index.BulkItemError `json:"errors,omitempty"`
	Message string                `json:"message,omitempty"`
}

func runIndexImport(cmd *cobra.Command, args []string) error {
	name := args[0]
	bulkSize := cfg.Import.BulkSize
	if cmd.Flags().Changed("bulk-size") {
		bulkSize = importBulkSize
	}
	if bulkSize <= 0 {
		return fmt.Errorf("%w: --bulk-size must be positive", index.ErrInvalidRequest)
	}

	format, err := importer.FormatFor(importFile)
	if err != nil {
		return err
	}
	var c prompt.Confirmer = prompt.Always(true)
	if format != importer.FormatJSON {
		if c, err = confirmerFor(importYes); err != nil {
			return err
		}
	}

	recs, err := importer.Import(cmd.Context(), importFile, c)
	if err != nil {
		return err
	}

	result := ImportResult{Index: name, File: importFile, Records: len(recs)}
	if len(recs) == 0 {
		result.Message = transfer.ErrNothingToImport.Error()
		if humanOutput {
			outputHuman("No records to import from %s\n", importFile)
			return nil
		}
		return outputJSON(result)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := transfer.Index(cmd.Context(), s, name, recs, bulkSize,
		transfer.WithLogger(logger),
		transfer.WithProgress(func(done, total int) {
			logger.Debug("import progress", "index", name, "done", done, "total", total)
		}),
	)
	if err != nil {
		if res != nil {
			logger.Warn("import stopped early", "index", name, "indexed", res.Indexed, "failed", res.Failed)
		}
		return fmt.Errorf("importing %s: %w", importFile, err)
	}
	result.Indexed = res.Indexed
	result.Failed = res.Failed
	result.Errors = res.Errors

	if !humanOutput {
		return outputJSON(result)
	}
	outputHuman("Imported %d of %d records from %s into %s\n", res.Indexed, len(recs), importFile, name)
	for _, e := range res.Errors {
		outputHuman("  record %d: %s\n", e.Position+1, e.Reason)
	}
	return nil
}
