package config

// Config represents the core ape configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	AI       AIConfig       `mapstructure:"ai"`
	Describe DescribeConfig `mapstructure:"describe"`
	Output   OutputConfig   `mapstructure:"output"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AIConfig configures completion providers
type AIConfig struct {
	Provider   string           `mapstructure:"provider"` // "openrouter", "anthropic", or "auto" (default: auto)
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Limits     LimitsConfig     `mapstructure:"limits"`
}

// OpenRouterConfig configures OpenRouter.ai API access
type OpenRouterConfig struct {
	APIKey      string   `mapstructure:"api_key"`     // OpenRouter API key
	Model       string   `mapstructure:"model"`       // Default model (e.g., "openai/gpt-4o-mini")
	Temperature *float64 `mapstructure:"temperature"` // Sampling temperature (nil = default 0.2)
	MaxTokens   *int     `mapstructure:"max_tokens"`  // Maximum tokens per request (nil = default 1000)
}

// AnthropicConfig configures direct Anthropic API access
type AnthropicConfig struct {
	APIKey      string   `mapstructure:"api_key"`     // Anthropic API key
	Model       string   `mapstructure:"model"`       // Default model (e.g., "claude-sonnet-4-20250514")
	Temperature *float64 `mapstructure:"temperature"` // Sampling temperature (nil = provider default)
	MaxTokens   *int     `mapstructure:"max_tokens"`  // Maximum tokens per request (nil = default 4096)
}

// LimitsConfig bounds outbound completion traffic
type LimitsConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"` // Sustained request rate (0 = unpaced)
	MaxCallsPerRun    int `mapstructure:"max_calls_per_run"`   // Completion calls per run (0 = unlimited)
}

// DescribeConfig configures the dataset observation loop
type DescribeConfig struct {
	MaxIterations  int     `mapstructure:"max_iterations"`  // Observation calls before giving up (default: 10)
	BatchSize      int     `mapstructure:"batch_size"`      // Examples shown per call (default: 5)
	Workers        int     `mapstructure:"workers"`         // Concurrent shards (default: 1)
	Retries        int     `mapstructure:"retries"`         // Extra attempts per failed call (default: 2)
	MergeThreshold float64 `mapstructure:"merge_threshold"` // Similarity above which observations merge (default: 0.85)
}

// OutputConfig configures CLI output rendering
type OutputConfig struct {
	JSON bool `mapstructure:"json"` // Emit machine-readable JSON instead of human output
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
