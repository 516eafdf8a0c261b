package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "ape.db")

	// Provider defaults
	v.SetDefault("ai.provider", "auto") // Pick whichever API key is configured

	// OpenRouter defaults
	v.SetDefault("ai.openrouter.model", "openai/gpt-4o-mini") // Cost-effective default
	v.SetDefault("ai.openrouter.temperature", 0.2)            // Deterministic
	v.SetDefault("ai.openrouter.max_tokens", 1000)            // Token limit

	// Anthropic defaults
	v.SetDefault("ai.anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("ai.anthropic.max_tokens", 4096)

	// Outbound traffic limits
	v.SetDefault("ai.limits.requests_per_minute", 30) // Sustained pace across a run
	v.SetDefault("ai.limits.max_calls_per_run", 0)    // 0 = no per-run budget

	// Observation loop defaults
	v.SetDefault("describe.max_iterations", 10)
	v.SetDefault("describe.batch_size", 5)
	v.SetDefault("describe.workers", 1)
	v.SetDefault("describe.retries", 2)
	v.SetDefault("describe.merge_threshold", 0.85)

	// Output defaults
	v.SetDefault("output.json", false)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	// Provider API keys
	v.BindEnv("ai.openrouter.api_key", "APE_AI_OPENROUTER_API_KEY")
	v.BindEnv("ai.anthropic.api_key", "APE_AI_ANTHROPIC_API_KEY")

	// Database path
	v.BindEnv("database.path", "APE_DATABASE_PATH")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "ape.db" // Fallback default
	}
	return c.Database.Path
}

// GetProvider returns the configured provider selection mode (default: auto)
func (c *Config) GetProvider() string {
	if c.AI.Provider == "" {
		return "auto"
	}
	return c.AI.Provider
}

// GetDescribeConfig returns the observation loop configuration with defaults applied
func (c *Config) GetDescribeConfig() DescribeConfig {
	cfg := c.Describe

	// Apply defaults for zero values
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 10
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 5
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.Retries == 0 {
		cfg.Retries = 2
	}
	if cfg.MergeThreshold == 0 {
		cfg.MergeThreshold = 0.85
	}

	return cfg
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, AI: {Provider: %s}, Describe: {Workers: %d}}",
		c.Database.Path, c.AI.Provider, c.Describe.Workers)
}
