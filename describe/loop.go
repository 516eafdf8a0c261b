package describe

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/prompteng/ape/ai/openrouter"
	"github.com/prompteng/ape/ai/provider"
	"github.com/prompteng/ape/dataset"
	"github.com/prompteng/ape/errors"
	"github.com/prompteng/ape/logger"
	"github.com/prompteng/ape/prompt"
)

// Status is how an observation run ended
type Status string

const (
	// StatusConverged means the model signalled completion or stopped
	// producing new observations
	StatusConverged Status = "converged"
	// StatusTruncated means the iteration bound was hit first; the
	// partial set is still usable
	StatusTruncated Status = "truncated"
)

const (
	// DefaultMaxIterations bounds one observation run
	DefaultMaxIterations = 10
	// DefaultRetries is how many extra attempts an iteration gets on
	// transient failures
	DefaultRetries = 2
)

// LoopConfig configures one observation loop
type LoopConfig struct {
	Client        provider.CompletionClient
	MaxIterations int         // 0 means DefaultMaxIterations
	Retries       int         // extra attempts per iteration; -1 disables retry
	Policy        MergePolicy // zero value disables similarity merging
	Model         string      // overrides the template's model when set
	Logger        *zap.SugaredLogger

	// Descriptor and DescriptorWithPrior override the builtin
	// characterization templates. They must declare the same inputs
	// and the observations output.
	Descriptor          *prompt.Template
	DescriptorWithPrior *prompt.Template
}

// LoopResult is the outcome of one observation run
type LoopResult struct {
	Set        *ObservationSet
	Status     Status
	Iterations int
}

// Loop iteratively observes dataset batches until the model converges
// or the iteration bound is hit. Iterations are strictly sequential:
// each prompt presents the set accumulated so far.
type Loop struct {
	cfg                 LoopConfig
	descriptor          *prompt.Template
	descriptorWithPrior *prompt.Template
	log                 *zap.SugaredLogger
}

// NewLoop builds a loop, loading builtin templates for any not
// overridden in the config
func NewLoop(cfg LoopConfig) (*Loop, error) {
	if cfg.Client == nil {
		return nil, errors.New("observation loop requires a completion client")
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MaxIterations < 1 {
		return nil, errors.Newf("max iterations must be positive, got %d", cfg.MaxIterations)
	}
	if cfg.Retries == 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	l := &Loop{
		cfg:                 cfg,
		descriptor:          cfg.Descriptor,
		descriptorWithPrior: cfg.DescriptorWithPrior,
		log:                 cfg.Logger,
	}
	if l.log == nil {
		l.log = logger.ComponentLogger("describe")
	}

	var err error
	if l.descriptor == nil {
		if l.descriptor, err = BuiltinTemplate(TemplateDescriptor); err != nil {
			return nil, err
		}
	}
	if l.descriptorWithPrior == nil {
		if l.descriptorWithPrior, err = BuiltinTemplate(TemplateDescriptorWithPrior); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Run observes the batches until convergence or the iteration bound.
// prior seeds the set; a seeded run starts with the prior-observations
// prompt variant. Batches cycle when iterations outnumber them, so
// later iterations re-present earlier data against the grown set.
//
// Transient completion failures and unparseable responses are retried
// per iteration; exhaustion aborts with a *CompletionError carrying the
// set accumulated so far. Hitting MaxIterations is not an error.
func (l *Loop) Run(ctx context.Context, batches []dataset.Batch, prior []string) (*LoopResult, error) {
	if len(batches) == 0 {
		return nil, errors.New("no batches to observe")
	}

	set := NewSet(l.cfg.Policy)
	set.Merge(prior)

	for iter := 1; iter <= l.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, &CompletionError{Set: set, Iteration: iter, Err: err}
		}

		batch := batches[(iter-1)%len(batches)]
		examples, err := batch.Render()
		if err != nil {
			return nil, &CompletionError{Set: set, Iteration: iter, Err: err}
		}

		tpl := l.descriptor
		vars := map[string]string{"examples": examples}
		if set.Len() > 0 {
			tpl = l.descriptorWithPrior
			vars["prior_observations"] = strings.Join(set.Texts(), "\n")
		}

		obsText, sentinel, err := l.observe(ctx, tpl, vars)
		if err != nil {
			return nil, &CompletionError{Set: set, Iteration: iter, Err: err}
		}
		if sentinel {
			l.log.Debugw("model signalled completion", "iteration", iter, "observations", set.Len())
			return &LoopResult{Set: set, Status: StatusConverged, Iterations: iter}, nil
		}

		added := set.Merge(ParseObservations(obsText))
		l.log.Debugw("iteration merged",
			"iteration", iter,
			"added", added,
			"total", set.Len())

		if added == 0 {
			return &LoopResult{Set: set, Status: StatusConverged, Iterations: iter}, nil
		}
	}

	return &LoopResult{Set: set, Status: StatusTruncated, Iterations: l.cfg.MaxIterations}, nil
}

// observe runs one characterization call with per-iteration retries,
// returning the observations output or a sentinel signal
func (l *Loop) observe(ctx context.Context, tpl *prompt.Template, vars map[string]string) (string, bool, error) {
	system, user, err := tpl.Render(vars)
	if err != nil {
		// Deterministic, never retried
		return "", false, err
	}

	req := openrouter.ChatRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		Temperature:  tpl.Temperature,
		MaxTokens:    tpl.MaxTokens,
	}
	if l.cfg.Model != "" {
		req.Model = &l.cfg.Model
	} else if tpl.Model != "" {
		req.Model = &tpl.Model
	}

	var lastErr error
	for attempt := 0; attempt <= l.cfg.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}

		resp, err := l.cfg.Client.Chat(ctx, req)
		if err != nil {
			if errors.IsBudgetExhausted(err) || ctx.Err() != nil {
				return "", false, err
			}
			lastErr = err
			l.log.Debugw("completion attempt failed", "attempt", attempt+1, "error", err)
			continue
		}

		if IsCompleteSentinel(resp.Content) {
			return "", true, nil
		}

		outputs, err := prompt.ExtractOutputs(tpl, resp.Content)
		if err != nil {
			lastErr = errors.Wrap(err, "unparseable response")
			l.log.Debugw("extraction failed", "attempt", attempt+1, "error", err)
			continue
		}

		obsText := outputs["observations"]
		if IsCompleteSentinel(obsText) {
			return "", true, nil
		}
		return obsText, false, nil
	}

	return "", false, errors.Wrapf(lastErr, "after %d attempts", l.cfg.Retries+1)
}
