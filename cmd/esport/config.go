package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/helmuth/esport/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration",
	Long: `Show or create the configuration.

Settings are read from the config file, then .env, then ESPORT_* environment
variables, then flags; later sources win.

Usage:
  esport config show           # Effective configuration, secrets masked
  esport config path           # Config file location
  esport config init           # Write a starter config file
  esport config init --force   # Replace an existing config file

Keys:
  host                Elasticsearch URL or sqlite:///path/to/index.db
  username, password  Basic authentication
  api_key             API key authentication (wins over basic auth)
  request_timeout     Per-request timeout, e.g. 30s
  rate_limit          Requests per second, 0 for unlimited
  export.batch_size   Records per scroll page
  export.scroll_ttl   Scroll keep-alive, e.g. 10m
  export.header       Write header rows by default
  import.bulk_size    Records per bulk request
  indices             Record kind to index name for sample create`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Show the config file location",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	RunE:        runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a starter config file",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	RunE:        runConfigInit,
}

var configInitForce bool

// configFilePath returns the --config value or the default location.
func configFilePath() string {
	if cfgFile != "" {
		return config.ExpandPath(cfgFile)
	}
	return config.Path()
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	data, err := cfg.Redacted().YAML()
	if err != nil {
		return err
	}
	if humanOutput {
		outputHuman("%s", data)
		return nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	return outputJSON(doc)
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := configFilePath()
	if humanOutput {
		outputHuman("%s\n", path)
		return nil
	}
	return outputJSON(StatusResponse{Status: "ok", Path: path})
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFilePath()
	if err := config.Init(path, configInitForce); err != nil {
		return err
	}
	if humanOutput {
		outputHuman("Wrote %s\n", path)
		return nil
	}
	return outputJSON(StatusResponse{Status: "created", Path: path})
}
