package main

import (
	"net/http"

	"github.com/helmuth/esport/internal/config"
	"github.com/helmuth/esport/internal/elastic"
	"github.com/helmuth/esport/internal/index"
	"github.com/helmuth/esport/internal/localindex"
	"github.com/helmuth/esport/internal/prompt"
)

// openStore connects to the index store the configured host selects.
// The caller is responsible for calling Close() on the returned store.
func openStore() (index.Store, error) {
	backend, err := cfg.Backend()
	if err != nil {
		return nil, err
	}

	if backend == config.BackendSQLite {
		return localindex.Open(cfg.SQLitePath(), localindex.WithLogger(logger))
	}

	opts := []elastic.ClientOption{
		elastic.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
		elastic.WithRateLimit(cfg.RateLimit),
		elastic.WithLogger(logger),
	}
	if cfg.Username != "" {
		opts = append(opts, elastic.WithBasicAuth(cfg.Username, cfg.Password))
	}
	if cfg.APIKey != "" {
		opts = append(opts, elastic.WithAPIKey(cfg.APIKey))
	}
	return elastic.NewClient(cfg.Host, opts...), nil
}

// confirmerFor returns the prompter for a command; tests replace it.
var confirmerFor = func(assumeYes bool) (prompt.Confirmer, error) {
	return prompt.Require(prompt.NewConsole(), assumeYes)
}
