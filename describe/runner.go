package describe

import (
	"database/sql"

	"github.com/prompteng/ape/ai/limits"
	"github.com/prompteng/ape/ai/provider"
	"github.com/prompteng/ape/config"
	"github.com/prompteng/ape/errors"
	"github.com/prompteng/ape/internal/id"
)

// RunOptions are per-invocation overrides on top of the configuration.
// Zero values defer to config defaults.
type RunOptions struct {
	BatchSize     int
	MaxIterations int
	Workers       int
	Provider      string
	Model         string
	Prior         []string
}

// NewConfiguredSession wires a session to the configured provider, with
// rate limiting, per-run call budgeting and usage tracking. The db may
// be nil to skip tracking.
func NewConfiguredSession(cfg *config.Config, db *sql.DB, verbosity int, opts RunOptions) (*Session, error) {
	runID := id.NewRun()

	var client provider.CompletionClient
	if opts.Provider != "" {
		p, err := provider.ParseProvider(opts.Provider)
		if err != nil {
			return nil, err
		}
		client = provider.NewCompletionClientWithProvider(cfg, p, provider.ClientConfig{
			DB:            db,
			Verbosity:     verbosity,
			OperationType: "describe",
			RunID:         runID,
		})
	} else {
		client = provider.NewCompletionClient(cfg, db, verbosity, "describe", runID)
	}
	if client == nil {
		return nil, errors.NewNotConfiguredError("no completion provider available")
	}

	limited := limits.Wrap(client, limits.Config{
		RequestsPerMinute: cfg.AI.Limits.RequestsPerMinute,
		MaxCallsPerRun:    cfg.AI.Limits.MaxCallsPerRun,
	})

	dcfg := cfg.GetDescribeConfig()
	if opts.BatchSize > 0 {
		dcfg.BatchSize = opts.BatchSize
	}
	if opts.MaxIterations > 0 {
		dcfg.MaxIterations = opts.MaxIterations
	}
	if opts.Workers > 0 {
		dcfg.Workers = opts.Workers
	}

	return NewSession(SessionConfig{
		Loop: LoopConfig{
			Client:        limited,
			MaxIterations: dcfg.MaxIterations,
			Retries:       dcfg.Retries,
			Policy:        MergePolicy{SimilarityThreshold: dcfg.MergeThreshold},
			Model:         opts.Model,
		},
		Summarizer: SummarizerConfig{
			Client:  limited,
			Retries: dcfg.Retries,
			Model:   opts.Model,
		},
		BatchSize: dcfg.BatchSize,
		Workers:   dcfg.Workers,
		Prior:     opts.Prior,
		RunID:     runID,
	})
}
