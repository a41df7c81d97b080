package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/helmuth/esport/internal/index"
)

// countConcurrency bounds parallel count requests.
const countConcurrency = 4

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage indices and move their records",
	Long: `Commands for index administration, export and import.

Subcommands:
  list      List all indices
  create    Create an empty index
  delete    Delete an index and its documents
  settings  Show index settings
  mappings  Show index mappings
  count     Count documents in one or more indices
  export    Export every matching record to the console or a file
  import    Index records from a CSV, TSV or JSON file`,
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all indices",
	Args:  cobra.NoArgs,
	RunE:  runIndexList,
}

var indexCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexCreate,
}

var indexDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an index and its documents",
	Long: `Delete an index and every document in it.

Asks for confirmation unless --yes is given. Without a terminal --yes is required.

Examples:
  esport index delete people
  esport index delete people --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexDelete,
}

var indexSettingsCmd = &cobra.Command{
	Use:   "settings <name>",
	Short: "Show index settings",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexSettings,
}

var indexMappingsCmd = &cobra.Command{
	Use:   "mappings <name>",
	Short: "Show index mappings",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexMappings,
}

var indexCountCmd = &cobra.Command{
	Use:   "count <name>...",
	Short: "Count documents in one or more indices",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIndexCount,
}

var indexDeleteYes bool

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexListCmd)
	indexCmd.AddCommand(indexCreateCmd)
	indexCmd.AddCommand(indexDeleteCmd)
	indexCmd.AddCommand(indexSettingsCmd)
	indexCmd.AddCommand(indexMappingsCmd)
	indexCmd.AddCommand(indexCountCmd)

	indexDeleteCmd.Flags().BoolVarP(&indexDeleteYes, "yes", "y", false, "Delete without asking")
}

// IndexCount is one entry of index count output.
type IndexCount struct {
	Index string `json:"index"`
	Count int64  `json:"count"`
}

func runIndexList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	infos, err := s.ListIndices(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing indices: %w", err)
	}

	if !humanOutput {
		if infos == nil {
			infos = []index.IndexInfo{}
		}
		return outputJSON(infos)
	}

	if len(infos) == 0 {
		outputHuman("No indices\n")
		return nil
	}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			info.Name,
			info.Health,
			info.Status,
			strconv.FormatInt(info.DocsCount, 10),
			info.StoreSize,
		})
	}
	outputTable([]string{"INDEX", "HEALTH", "STATUS", "DOCS", "SIZE"}, rows)
	return nil
}

func runIndexCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.CreateIndex(cmd.Context(), name); err != nil {
		return fmt.Errorf("creating index %s: %w", name, err)
	}

	if humanOutput {
		outputHuman("Created index %s\n", name)
		return nil
	}
	return outputJSON(StatusResponse{Status: "created", Index: name})
}

func runIndexDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	c, err := confirmerFor(indexDeleteYes)
	if err != nil {
		return err
	}
	ok, err := c.Confirm(cmd.Context(), fmt.Sprintf("Delete index %s and all of its documents?", name))
	if err != nil {
		return err
	}
	if !ok {
		return errCancelled
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DeleteIndex(cmd.Context(), name); err != nil {
		return fmt.Errorf("deleting index %s: %w", name, err)
	}

	if humanOutput {
		outputHuman("Deleted index %s\n", name)
		return nil
	}
	return outputJSON(StatusResponse{Status: "deleted", Index: name})
}

func runIndexSettings(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	settings, err := s.Settings(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("reading settings of %s: %w", args[0], err)
	}
	return outputJSON(settings)
}

func runIndexMappings(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	mapping, err := s.Mapping(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("reading mappings of %s: %w", args[0], err)
	}
	return outputJSON(mapping)
}

func runIndexCount(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	counts := make([]IndexCount, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(countConcurrency)
	for i, name := range args {
		g.Go(func() error {
			n, err := s.Count(ctx, name)
			if err != nil {
				return fmt.Errorf("counting %s: %w", name, err)
			}
			counts[i] = IndexCount{Index: name, Count: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if !humanOutput {
		return outputJSON(counts)
	}
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Index, strconv.FormatInt(c.Count, 10)})
	}
	outputTable([]string{"INDEX", "COUNT"}, rows)
	return nil
}
