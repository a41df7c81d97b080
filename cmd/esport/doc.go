package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helmuth/esport/internal/index"
	"github.com/helmuth/esport/internal/record"
	"github.com/helmuth/esport/internal/sink"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Read and write single documents",
	Long: `Commands for individual documents.

Subcommands:
  get   Show one document
  put   Store one document
  list  Show one page of documents`,
}

var docGetCmd = &cobra.Command{
	Use:   "get <index> <id>",
	Short: "Show one document",
	Args:  cobra.ExactArgs(2),
	RunE:  runDocGet,
}

var docPutCmd = &cobra.Command{
	Use:   "put <index> <json>",
	Short: "Store one document",
	Long: `Store a JSON object as a document. Field order is preserved.

Without --id the store assigns an identifier. An existing document with the
same id is replaced.

Examples:
  esport doc put people '{"name":"Ann","age":31}'
  esport doc put people '{"name":"Bob"}' --id p2`,
	Args: cobra.ExactArgs(2),
	RunE: runDocPut,
}

var docListCmd = &cobra.Command{
	Use:   "list <index>",
	Short: "Show one page of documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocList,
}

var (
	docPutID    string
	docListSize int
	docListPage int
)

func init() {
	rootCmd.AddCommand(docCmd)
	docCmd.AddCommand(docGetCmd)
	docCmd.AddCommand(docPutCmd)
	docCmd.AddCommand(docListCmd)

	docPutCmd.Flags().StringVar(&docPutID, "id", "", "Document id (assigned by the store if empty)")
	docListCmd.Flags().IntVar(&docListSize, "size", 20, "Documents per page")
	docListCmd.Flags().IntVar(&docListPage, "page", 0, "Zero-based page number")
}

// DocResult is one document in command output.
type DocResult struct {
	ID     string         `json:"_id"`
	Source *record.Record `json:"_source"`
}

// PutResult is the response for doc put.
type PutResult struct {
	Index  string `json:"index"`
	ID     string `json:"_id"`
	Result string `json:"result"`
}

func runDocGet(cmd *cobra.Command, args []string) error {
	name, id := args[0], args[1]
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.Get(cmd.Context(), name, id)
	if err != nil {
		return fmt.Errorf("getting %s/%s: %w", name, id, err)
	}
	return outputRecords(index.Batch{rec})
}

func runDocPut(cmd *cobra.Command, args []string) error {
	name := args[0]
	rec, err := record.Decode(docPutID, []byte(args[1]))
	if err != nil {
		return fmt.Errorf("%w: document must be a JSON object: %v", index.ErrInvalidRequest, err)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.Put(cmd.Context(), name, rec)
	if err != nil {
		return fmt.Errorf("storing document in %s: %w", name, err)
	}

	if humanOutput {
		outputHuman("Stored %s/%s\n", name, id)
		return nil
	}
	return outputJSON(PutResult{Index: name, ID: id, Result: "stored"})
}

func runDocList(cmd *cobra.Command, args []string) error {
	if docListSize <= 0 || docListPage < 0 {
		return fmt.Errorf("%w: --size must be positive and --page must not be negative", index.ErrInvalidRequest)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	batch, err := s.Search(cmd.Context(), index.SearchRequest{
		Index: args[0],
		Size:  docListSize,
		From:  docListPage * docListSize,
	})
	if err != nil {
		return fmt.Errorf("listing %s: %w", args[0], err)
	}
	return outputRecords(batch)
}

// outputRecords prints documents as a JSON array, or one per line with --human.
func outputRecords(batch index.Batch) error {
	if humanOutput {
		out, err := sink.Open("", sink.Options{Stdout: stdout})
		if err != nil {
			return err
		}
		if err := out.Write(batch, true); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	}

	docs := make([]DocResult, 0, len(batch))
	for _, rec := range batch {
		docs = append(docs, DocResult{ID: rec.ID, Source: rec})
	}
	return outputJSON(docs)
}
