package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the index store is reachable",
	Long: `Ping the configured index store and report its cluster health.

Examples:
  esport health
  esport health --host https://search.internal:9200 --human`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	h, err := s.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("checking %s: %w", cfg.Host, err)
	}

	if !humanOutput {
		return outputJSON(h)
	}
	outputTable([]string{"CLUSTER", "VERSION", "STATUS", "NODES", "SHARDS"}, [][]string{{
		h.ClusterName,
		h.Version,
		h.Status,
		strconv.Itoa(h.NumberOfNodes),
		strconv.Itoa(h.ActiveShards),
	}})
	return nil
}
