package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/prompteng/ape/internal/util"
)

func TestLoad_Defaults(t *testing.T) {
	// Create isolated viper instance without loading user/system config
	v := viper.New()
	SetDefaults(v)

	// Load config from isolated viper
	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}

	// Check default values are applied
	if cfg.Database.Path != "ape.db" {
		t.Errorf("expected default database path 'ape.db', got %q", cfg.Database.Path)
	}

	if cfg.AI.Provider != "auto" {
		t.Errorf("expected default provider 'auto', got %q", cfg.AI.Provider)
	}

	if cfg.AI.OpenRouter.Model != "openai/gpt-4o-mini" {
		t.Errorf("expected default OpenRouter model, got %q", cfg.AI.OpenRouter.Model)
	}

	if cfg.AI.OpenRouter.Temperature == nil || *cfg.AI.OpenRouter.Temperature != 0.2 {
		t.Errorf("expected default temperature 0.2, got %v", cfg.AI.OpenRouter.Temperature)
	}

	if cfg.Describe.MaxIterations != 10 {
		t.Errorf("expected default max iterations 10, got %d", cfg.Describe.MaxIterations)
	}

	if cfg.AI.Limits.RequestsPerMinute != 30 {
		t.Errorf("expected default rate limit 30, got %d", cfg.AI.Limits.RequestsPerMinute)
	}
}

func TestValidate_ZeroValues(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "zero workers is valid (default applies later)",
			config: Config{
				Describe: DescribeConfig{Workers: 0},
			},
			wantErr: false,
		},
		{
			name: "negative workers is invalid",
			config: Config{
				Describe: DescribeConfig{Workers: -1},
			},
			wantErr: true,
		},
		{
			name: "zero rate limit is valid (unpaced)",
			config: Config{
				AI: AIConfig{Limits: LimitsConfig{RequestsPerMinute: 0}},
			},
			wantErr: false,
		},
		{
			name: "negative rate limit is invalid",
			config: Config{
				AI: AIConfig{Limits: LimitsConfig{RequestsPerMinute: -1}},
			},
			wantErr: true,
		},
		{
			name: "zero call budget is valid (unlimited)",
			config: Config{
				AI: AIConfig{Limits: LimitsConfig{MaxCallsPerRun: 0}},
			},
			wantErr: false,
		},
		{
			name: "empty database path is valid",
			config: Config{
				Database: DatabaseConfig{Path: ""},
			},
			wantErr: false,
		},
		{
			name: "unknown provider is invalid",
			config: Config{
				AI: AIConfig{Provider: "gemini"},
			},
			wantErr: true,
		},
		{
			name: "temperature above bound is invalid",
			config: Config{
				AI: AIConfig{OpenRouter: OpenRouterConfig{Temperature: util.Ptr(3.0)}},
			},
			wantErr: true,
		},
		{
			name: "nil temperature is valid",
			config: Config{
				AI: AIConfig{OpenRouter: OpenRouterConfig{Temperature: nil}},
			},
			wantErr: false,
		},
		{
			name: "merge threshold above 1 is invalid",
			config: Config{
				Describe: DescribeConfig{MergeThreshold: 1.5},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	// Verify critical defaults are set
	tests := []struct {
		key      string
		expected interface{}
	}{
		{"database.path", "ape.db"},
		{"ai.provider", "auto"},
		{"ai.openrouter.model", "openai/gpt-4o-mini"},
		{"ai.openrouter.temperature", 0.2},
		{"ai.anthropic.model", "claude-sonnet-4-20250514"},
		{"ai.limits.requests_per_minute", 30},
		{"describe.max_iterations", 10},
		{"describe.batch_size", 5},
		{"describe.merge_threshold", 0.85},
		{"output.json", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := v.Get(tt.key)
			if got != tt.expected {
				t.Errorf("default %s = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestEnvBinding(t *testing.T) {
	t.Setenv("APE_AI_OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("APE_AI_ANTHROPIC_API_KEY", "sk-ant-test")

	v := viper.New()
	SetDefaults(v)
	BindSensitiveEnvVars(v)

	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}

	if cfg.AI.OpenRouter.APIKey != "sk-or-test" {
		t.Errorf("expected OpenRouter key from env, got %q", cfg.AI.OpenRouter.APIKey)
	}
	if cfg.AI.Anthropic.APIKey != "sk-ant-test" {
		t.Errorf("expected Anthropic key from env, got %q", cfg.AI.Anthropic.APIKey)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ape.toml")

	content := `
[ai]
provider = "anthropic"

[describe]
batch_size = 3
`
	if err := os.WriteFile(configPath, []byte(content), DefaultFilePermissions); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}

	if cfg.AI.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic', got %q", cfg.AI.Provider)
	}
	if cfg.Describe.BatchSize != 3 {
		t.Errorf("expected batch size 3, got %d", cfg.Describe.BatchSize)
	}

	// Values absent from the file keep their defaults
	if cfg.Database.Path != "ape.db" {
		t.Errorf("expected default database path, got %q", cfg.Database.Path)
	}
	if cfg.AI.OpenRouter.Model != "openai/gpt-4o-mini" {
		t.Errorf("expected default model, got %q", cfg.AI.OpenRouter.Model)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestGetDescribeConfig(t *testing.T) {
	// Zero config picks up every default
	var cfg Config
	dc := cfg.GetDescribeConfig()
	if dc.MaxIterations != 10 {
		t.Errorf("expected default max iterations 10, got %d", dc.MaxIterations)
	}
	if dc.BatchSize != 5 {
		t.Errorf("expected default batch size 5, got %d", dc.BatchSize)
	}
	if dc.Workers != 1 {
		t.Errorf("expected default workers 1, got %d", dc.Workers)
	}
	if dc.MergeThreshold != 0.85 {
		t.Errorf("expected default merge threshold 0.85, got %f", dc.MergeThreshold)
	}

	// Explicit values survive
	cfg.Describe.Workers = 4
	cfg.Describe.BatchSize = 8
	dc = cfg.GetDescribeConfig()
	if dc.Workers != 4 {
		t.Errorf("expected workers 4, got %d", dc.Workers)
	}
	if dc.BatchSize != 8 {
		t.Errorf("expected batch size 8, got %d", dc.BatchSize)
	}
}

func TestFindProjectConfig(t *testing.T) {
	// Create temporary directory structure
	tmpDir := t.TempDir()

	// Test 1: ape.toml preferred over config.toml
	t.Run("prefers ape.toml", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test1", "subdir")
		os.MkdirAll(subDir, DefaultDirPermissions)

		// Create both config files
		os.WriteFile(filepath.Join(tmpDir, "test1", "ape.toml"), []byte(""), DefaultFilePermissions)
		os.WriteFile(filepath.Join(tmpDir, "test1", "config.toml"), []byte(""), DefaultFilePermissions)

		// Change to subdirectory
		oldWd, _ := os.Getwd()
		defer os.Chdir(oldWd)
		os.Chdir(subDir)

		result := findProjectConfig()
		if result == "" {
			t.Error("expected to find config file")
		}
		if !filepath.IsAbs(result) {
			t.Error("expected absolute path")
		}
		if filepath.Base(result) != "ape.toml" {
			t.Errorf("expected ape.toml, got %s", filepath.Base(result))
		}
	})

	// Test 2: Falls back to config.toml if ape.toml not present
	t.Run("fallback to config.toml", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test2", "subdir")
		os.MkdirAll(subDir, DefaultDirPermissions)

		// Create only config.toml
		os.WriteFile(filepath.Join(tmpDir, "test2", "config.toml"), []byte(""), DefaultFilePermissions)

		oldWd, _ := os.Getwd()
		defer os.Chdir(oldWd)
		os.Chdir(subDir)

		result := findProjectConfig()
		if result == "" {
			t.Error("expected to find config file")
		}
		if filepath.Base(result) != "config.toml" {
			t.Errorf("expected config.toml, got %s", filepath.Base(result))
		}
	})

	// Test 3: Returns empty string when no config found
	t.Run("no config found", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test3", "subdir")
		os.MkdirAll(subDir, DefaultDirPermissions)

		oldWd, _ := os.Getwd()
		defer os.Chdir(oldWd)
		os.Chdir(subDir)

		result := findProjectConfig()
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})
}

func TestSetAndUnset(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := Set("ai.openrouter.model", "openai/gpt-4o"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := Set("describe.batch_size", 8); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	overridesPath := GetOverridesPath()
	if _, err := os.Stat(overridesPath); err != nil {
		t.Fatalf("expected overrides file at %s: %v", overridesPath, err)
	}

	cfg, err := LoadFromFile(overridesPath)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}
	if cfg.AI.OpenRouter.Model != "openai/gpt-4o" {
		t.Errorf("expected persisted model 'openai/gpt-4o', got %q", cfg.AI.OpenRouter.Model)
	}
	if cfg.Describe.BatchSize != 8 {
		t.Errorf("expected persisted batch size 8, got %d", cfg.Describe.BatchSize)
	}

	// Unset restores the default on the next load
	if err := Unset("ai.openrouter.model"); err != nil {
		t.Fatalf("Unset() failed: %v", err)
	}
	cfg, err = LoadFromFile(overridesPath)
	if err != nil {
		t.Fatalf("LoadFromFile() failed after Unset: %v", err)
	}
	if cfg.AI.OpenRouter.Model != "openai/gpt-4o-mini" {
		t.Errorf("expected default model after Unset, got %q", cfg.AI.OpenRouter.Model)
	}

	// Unsetting a key that was never set is not an error
	if err := Unset("ai.anthropic.model"); err != nil {
		t.Errorf("Unset() of absent key failed: %v", err)
	}
	if err := Unset("never.seen.key"); err != nil {
		t.Errorf("Unset() of absent section failed: %v", err)
	}
}

func TestSet_EmptyKey(t *testing.T) {
	if err := Set("", "value"); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestCreateBackupRotation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ape_overrides.toml")

	// Four write+backup cycles: the oldest generation falls off
	for i := 1; i <= 4; i++ {
		if err := os.WriteFile(configPath, []byte(fmt.Sprintf("v%d", i)), DefaultFilePermissions); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
		if err := createBackup(configPath); err != nil {
			t.Fatalf("createBackup %d failed: %v", i, err)
		}
	}

	checks := map[string]string{
		configPath + ".back1": "v4",
		configPath + ".back2": "v3",
		configPath + ".back3": "v2",
	}
	for path, want := range checks {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("expected backup %s: %v", path, err)
		}
		if string(data) != want {
			t.Errorf("backup %s = %q, want %q", filepath.Base(path), string(data), want)
		}
	}
}

func TestCreateBackup_NoFile(t *testing.T) {
	// Backing up a file that doesn't exist yet is a no-op
	if err := createBackup(filepath.Join(t.TempDir(), "absent.toml")); err != nil {
		t.Errorf("createBackup() of absent file failed: %v", err)
	}
}
