package describe

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/prompteng/ape/ai/openrouter"
	"github.com/prompteng/ape/ai/provider"
	"github.com/prompteng/ape/errors"
	"github.com/prompteng/ape/logger"
	"github.com/prompteng/ape/prompt"
)

// SummarizerConfig configures observation summarization
type SummarizerConfig struct {
	Client  provider.CompletionClient
	Retries int    // extra attempts; -1 disables retry
	Model   string // overrides the template's model when set
	Logger  *zap.SugaredLogger

	// Template overrides the builtin summarizer; it must declare the
	// observations input and the summary output.
	Template *prompt.Template
}

// Summarizer compresses an observation set into a short prose summary
// with a single completion call.
type Summarizer struct {
	cfg SummarizerConfig
	tpl *prompt.Template
	log *zap.SugaredLogger
}

// NewSummarizer builds a summarizer, loading the builtin template when
// none is given
func NewSummarizer(cfg SummarizerConfig) (*Summarizer, error) {
	if cfg.Client == nil {
		return nil, errors.New("summarizer requires a completion client")
	}
	if cfg.Retries == 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	s := &Summarizer{cfg: cfg, tpl: cfg.Template, log: cfg.Logger}
	if s.log == nil {
		s.log = logger.ComponentLogger("describe")
	}
	if s.tpl == nil {
		var err error
		if s.tpl, err = BuiltinTemplate(TemplateSummarizer); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Summarize turns the set into a two-to-three sentence summary. Retry
// exhaustion raises a *CompletionError carrying the set unchanged; a
// summary is never silently degraded or fabricated locally.
func (s *Summarizer) Summarize(ctx context.Context, set *ObservationSet) (string, error) {
	if set == nil || set.Len() == 0 {
		return "", errors.New("nothing to summarize: observation set is empty")
	}

	system, user, err := s.tpl.Render(map[string]string{
		"observations": strings.Join(set.Texts(), "\n"),
	})
	if err != nil {
		return "", err
	}

	req := openrouter.ChatRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		Temperature:  s.tpl.Temperature,
		MaxTokens:    s.tpl.MaxTokens,
	}
	if s.cfg.Model != "" {
		req.Model = &s.cfg.Model
	} else if s.tpl.Model != "" {
		req.Model = &s.tpl.Model
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", &CompletionError{Set: set, Err: err}
		}

		resp, err := s.cfg.Client.Chat(ctx, req)
		if err != nil {
			if errors.IsBudgetExhausted(err) || ctx.Err() != nil {
				return "", &CompletionError{Set: set, Err: err}
			}
			lastErr = err
			s.log.Debugw("summarizer attempt failed", "attempt", attempt+1, "error", err)
			continue
		}

		outputs, err := prompt.ExtractOutputs(s.tpl, resp.Content)
		if err != nil {
			lastErr = errors.Wrap(err, "unparseable response")
			continue
		}
		summary := strings.TrimSpace(outputs["summary"])
		if summary == "" {
			lastErr = errors.New("empty summary")
			continue
		}
		return summary, nil
	}

	return "", &CompletionError{
		Set: set,
		Err: errors.Wrapf(lastErr, "after %d attempts", s.cfg.Retries+1),
	}
}
