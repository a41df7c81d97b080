package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helmuth/esport/internal/index"
	"github.com/helmuth/esport/internal/query"
	"github.com/helmuth/esport/internal/sink"
	"github.com/helmuth/esport/internal/transfer"
)

var searchCmd = &cobra.Command{
	Use:   "search <index> <query>",
	Short: "Run one bounded search",
	Long: `Run a single query-string search and show one page of hits.

Lower-case and/or/not are treated as boolean operators. With --output the
hits are written to a file the same way index export writes them.

Examples:
  esport search people "name:bob or name:ann"
  esport search people "age:42" --include name --human
  esport search logs "level:error" --size 100 --output errors.csv --header`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

var (
	searchSize    int
	searchPage    int
	searchInclude string
	searchExclude string
	searchOutput  string
	searchHeader  bool
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchSize, "size", 10, "Maximum number of hits")
	searchCmd.Flags().IntVar(&searchPage, "page", 0, "Zero-based page number")
	searchCmd.Flags().StringVar(&searchInclude, "include", "", "Comma-separated fields to include")
	searchCmd.Flags().StringVar(&searchExclude, "exclude", "", "Comma-separated fields to exclude")
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", "", "Output file (.csv, .tsv or .json)")
	searchCmd.Flags().BoolVar(&searchHeader, "header", false, "Write a header row")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchSize < 0 || searchPage < 0 {
		return fmt.Errorf("%w: --size and --page must not be negative", index.ErrInvalidRequest)
	}
	req := index.SearchRequest{
		Index: args[0],
		Query: query.Normalize(args[1]),
		Size:  searchSize,
		From:  searchPage * searchSize,
		Projection: index.Projection{
			Include: splitFields(searchInclude),
			Exclude: splitFields(searchExclude),
		},
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if searchOutput == "" && !humanOutput {
		batch, err := s.Search(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("searching %s: %w", req.Index, err)
		}
		return outputRecords(batch)
	}

	out, err := sink.Open(searchOutput, sink.Options{Header: searchHeader, Stdout: stdout})
	if err != nil {
		return err
	}
	stats, err := transfer.Search(cmd.Context(), s, req, out, transfer.WithLogger(logger))
	if err != nil {
		return err
	}

	if out.Kind() == sink.KindConsole {
		return nil
	}
	if humanOutput {
		outputHuman("Wrote %d hits from %s to %s\n", stats.Records, stats.Index, searchOutput)
		return nil
	}
	return outputJSON(ExportResult{Stats: stats, Output: searchOutput})
}
