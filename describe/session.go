package describe

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prompteng/ape/dataset"
	"github.com/prompteng/ape/errors"
	"github.com/prompteng/ape/internal/id"
	"github.com/prompteng/ape/logger"
)

// SessionConfig configures a full dataset-description run
type SessionConfig struct {
	Loop       LoopConfig
	Summarizer SummarizerConfig

	// BatchSize is how many examples each prompt presents (default 5)
	BatchSize int
	// Workers bounds concurrent shard loops (default 1, sequential)
	Workers int
	// Prior seeds every shard's observation set
	Prior []string
	// RunID overrides the generated run identifier, so usage tracked
	// at the client level correlates with the report
	RunID string

	Logger *zap.SugaredLogger
}

// DefaultBatchSize is how many examples a prompt presents when unset
const DefaultBatchSize = 5

// Report is the user-facing outcome of a session
type Report struct {
	RunID        string        `json:"run_id"`
	Status       Status        `json:"status"`
	Observations []string      `json:"observations"`
	Summary      string        `json:"summary"`
	Iterations   int           `json:"iterations"`
	Duration     time.Duration `json:"duration"`
}

// Session runs the whole describe workflow: split the dataset into
// batches, shard the batches across concurrent observation loops, merge
// the per-shard sets, then summarize once.
type Session struct {
	cfg SessionConfig
	log *zap.SugaredLogger
}

// NewSession validates the config and fills defaults
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Loop.Client == nil {
		return nil, errors.New("session requires a completion client")
	}
	if cfg.Summarizer.Client == nil {
		cfg.Summarizer.Client = cfg.Loop.Client
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize < 1 {
		return nil, errors.Newf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.Workers < 1 {
		return nil, errors.Newf("workers must be positive, got %d", cfg.Workers)
	}

	s := &Session{cfg: cfg, log: cfg.Logger}
	if s.log == nil {
		s.log = logger.ComponentLogger("describe")
	}
	return s, nil
}

type shardResult struct {
	shard  int
	result *LoopResult
	err    error
}

// Run describes the dataset. Shards run concurrently up to Workers;
// iterations within a shard stay sequential. The merge is single-writer
// after every shard finishes. The merged run converged only if every
// shard converged. A failed shard cancels the rest; the returned
// *CompletionError then carries everything merged from the shards that
// did finish.
func (s *Session) Run(ctx context.Context, examples []dataset.Example) (*Report, error) {
	start := time.Now()
	runID := s.cfg.RunID
	if runID == "" {
		runID = id.NewRun()
	}
	log := logger.ChildLogger(s.log, "run_id", runID)

	batches, err := dataset.Split(examples, s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	shards := dataset.Shards(batches, s.cfg.Workers)

	log.Infow("starting describe session",
		"examples", len(examples),
		"batches", len(batches),
		"shards", len(shards))

	shardCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]shardResult, len(shards))
	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup

	for i, shard := range shards {
		wg.Add(1)
		go func(i int, shard []dataset.Batch) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-shardCtx.Done():
				results[i] = shardResult{shard: i, err: shardCtx.Err()}
				return
			}

			loop, err := NewLoop(s.cfg.Loop)
			if err != nil {
				results[i] = shardResult{shard: i, err: err}
				cancel()
				return
			}
			res, err := loop.Run(shardCtx, shard, s.cfg.Prior)
			results[i] = shardResult{shard: i, result: res, err: err}
			if err != nil {
				cancel()
			}
		}(i, shard)
	}
	wg.Wait()

	// Single-writer merge, in shard order for determinism
	merged := NewSet(s.cfg.Loop.Policy)
	merged.Merge(s.cfg.Prior)
	status := StatusConverged
	iterations := 0
	var failure error

	for _, res := range results {
		switch {
		case res.err != nil:
			var ce *CompletionError
			if errors.As(res.err, &ce) {
				merged.MergeSet(ce.Set)
			}
			// Prefer the causal failure: a failed shard cancels its
			// siblings, whose own errors just report the cancellation.
			if failure == nil || (errors.Is(failure, context.Canceled) && !errors.Is(res.err, context.Canceled)) {
				failure = res.err
			}
		case res.result != nil:
			merged.MergeSet(res.result.Set)
			iterations += res.result.Iterations
			if res.result.Status != StatusConverged {
				status = StatusTruncated
			}
		}
	}

	if failure != nil {
		log.Warnw("shard failed", "error", failure, "observations_kept", merged.Len())
		var ce *CompletionError
		if errors.As(failure, &ce) {
			return nil, &CompletionError{Set: merged, Iteration: ce.Iteration, Err: ce.Err}
		}
		return nil, &CompletionError{Set: merged, Err: failure}
	}

	summarizer, err := NewSummarizer(s.cfg.Summarizer)
	if err != nil {
		return nil, err
	}
	summary, err := summarizer.Summarize(ctx, merged)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:        runID,
		Status:       status,
		Observations: merged.Texts(),
		Summary:      summary,
		Iterations:   iterations,
		Duration:     time.Since(start),
	}
	log.Infow("describe session finished",
		"status", report.Status,
		"observations", len(report.Observations),
		"iterations", report.Iterations,
		"duration", report.Duration)
	return report, nil
}
