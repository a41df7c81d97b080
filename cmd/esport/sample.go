package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/helmuth/esport/internal/index"
	"github.com/helmuth/esport/internal/sample"
	"github.com/helmuth/esport/internal/transfer"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate test data",
}

var sampleCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Fill an index with generated records",
	Long: `Generate records of one kind and index them into a fresh index.

The index name comes from the kind registry (the indices section of the
config file). An existing index is deleted first after confirmation.

Kinds:
  sample  Rich documents with nested objects, lists and mixed types
  person  Flat records with name, age and birthdate

Examples:
  esport sample create
  esport sample create --kind person --count 1000 --yes
  esport sample create --seed 42`,
	Args: cobra.NoArgs,
	RunE: runSampleCreate,
}

var (
	sampleKind  string
	sampleCount int
	sampleYes   bool
	sampleSeed  uint64
)

func init() {
	rootCmd.AddCommand(sampleCmd)
	sampleCmd.AddCommand(sampleCreateCmd)

	sampleCreateCmd.Flags().StringVar(&sampleKind, "kind", sample.KindSample, "Record kind to generate")
	sampleCreateCmd.Flags().IntVarP(&sampleCount, "count", "n", 100, "Number of records")
	sampleCreateCmd.Flags().BoolVarP(&sampleYes, "yes", "y", false, "Replace an existing index without asking")
	sampleCreateCmd.Flags().Uint64Var(&sampleSeed, "seed", 0, "Random seed (default: current time)")
}

// SampleResult is the response for sample create.
type SampleResult struct {
	Index   string `json:"index"`
	Kind    string `json:"kind"`
	Indexed int    `json:"indexed"`
	Failed  int    `json:"failed"`
}

func runSampleCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if sampleCount <= 0 {
		return fmt.Errorf("%w: --count must be positive", index.ErrInvalidRequest)
	}

	name, err := cfg.Registry().Resolve(sampleKind)
	if err != nil {
		return err
	}
	seed := sampleSeed
	if !cmd.Flags().Changed("seed") {
		seed = uint64(time.Now().UnixNano())
	}
	recs, err := sample.New(seed, time.Now()).Generate(sampleKind, sampleCount)
	if err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	_, err = s.Count(ctx, name)
	switch {
	case err == nil:
		c, err := confirmerFor(sampleYes)
		if err != nil {
			return err
		}
		ok, err := c.Confirm(ctx, fmt.Sprintf("Index %s already exists. Delete it and create a new one?", name))
		if err != nil {
			return err
		}
		if !ok {
			return errCancelled
		}
		if err := s.DeleteIndex(ctx, name); err != nil {
			return fmt.Errorf("deleting index %s: %w", name, err)
		}
	case !index.IsNotFound(err):
		return fmt.Errorf("checking index %s: %w", name, err)
	}

	if err := s.CreateIndex(ctx, name); err != nil {
		return fmt.Errorf("creating index %s: %w", name, err)
	}
	res, err := transfer.Index(ctx, s, name, recs, cfg.Import.BulkSize, transfer.WithLogger(logger))
	if err != nil {
		return err
	}

	result := SampleResult{Index: name, Kind: sampleKind, Indexed: res.Indexed, Failed: res.Failed}
	if humanOutput {
		outputHuman("Indexed %d %s records into %s\n", result.Indexed, result.Kind, result.Index)
		return nil
	}
	return outputJSON(result)
}
