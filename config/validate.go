package config

import "github.com/prompteng/ape/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Database path is optional - empty defaults to "ape.db" per defaults.go

	// Provider: empty means auto-select, anything else must be a known provider
	switch c.AI.Provider {
	case "", "auto", "openrouter", "anthropic":
	default:
		return errors.Newf("ai.provider must be auto, openrouter, or anthropic, got %q", c.AI.Provider)
	}

	// Temperature bounds follow the completion APIs
	if t := c.AI.OpenRouter.Temperature; t != nil && (*t < 0 || *t > 2) {
		return errors.Newf("ai.openrouter.temperature must be in [0, 2], got %f", *t)
	}
	if t := c.AI.Anthropic.Temperature; t != nil && (*t < 0 || *t > 1) {
		return errors.Newf("ai.anthropic.temperature must be in [0, 1], got %f", *t)
	}
	if m := c.AI.OpenRouter.MaxTokens; m != nil && *m < 1 {
		return errors.Newf("ai.openrouter.max_tokens must be >= 1, got %d", *m)
	}
	if m := c.AI.Anthropic.MaxTokens; m != nil && *m < 1 {
		return errors.Newf("ai.anthropic.max_tokens must be >= 1, got %d", *m)
	}

	// Rate limits: 0 = disabled, negative = invalid
	if c.AI.Limits.RequestsPerMinute < 0 {
		return errors.Newf("ai.limits.requests_per_minute must be >= 0, got %d", c.AI.Limits.RequestsPerMinute)
	}
	if c.AI.Limits.MaxCallsPerRun < 0 {
		return errors.Newf("ai.limits.max_calls_per_run must be >= 0, got %d", c.AI.Limits.MaxCallsPerRun)
	}

	// Loop bounds: 0 = use default (per struct docs), negative = invalid
	if c.Describe.MaxIterations < 0 {
		return errors.Newf("describe.max_iterations must be >= 0, got %d", c.Describe.MaxIterations)
	}
	if c.Describe.BatchSize < 0 {
		return errors.Newf("describe.batch_size must be >= 0, got %d", c.Describe.BatchSize)
	}
	if c.Describe.Workers < 0 {
		return errors.Newf("describe.workers must be >= 0, got %d", c.Describe.Workers)
	}
	if c.Describe.Retries < 0 {
		return errors.Newf("describe.retries must be >= 0, got %d", c.Describe.Retries)
	}

	// Merge threshold is a similarity ratio
	if c.Describe.MergeThreshold < 0 || c.Describe.MergeThreshold > 1 {
		return errors.Newf("describe.merge_threshold must be in [0, 1], got %f", c.Describe.MergeThreshold)
	}

	return nil
}
