package provider

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/prompteng/ape/ai/anthropic"
	"github.com/prompteng/ape/ai/openrouter"
	"github.com/prompteng/ape/config"
)

// Provider represents an LLM provider type
type Provider string

const (
	// ProviderOpenRouter uses OpenRouter.ai API
	ProviderOpenRouter Provider = "openrouter"
	// ProviderAnthropic uses direct Anthropic API
	ProviderAnthropic Provider = "anthropic"
	// ProviderAuto automatically selects based on configuration
	ProviderAuto Provider = "auto"
)

// CompletionClient is the completion capability every provider implements.
// The loop, summarizer and run command only ever see this interface.
type CompletionClient interface {
	Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error)
}

// StreamingClient is an optional interface for clients that support streaming
// Check if a client implements this interface using type assertion
type StreamingClient interface {
	CompletionClient
	// ChatStreaming sends a request and streams the response token by token
	// The stream channel receives chunks as they arrive and is closed when done
	ChatStreaming(ctx context.Context, req openrouter.ChatRequest, streamChan chan<- StreamChunk) error
}

// StreamChunk represents a chunk of streamed LLM response
type StreamChunk struct {
	Content string // Token/chunk of text
	Done    bool   // True when stream is complete
	Error   error  // Error if streaming failed
}

// ClientConfig holds common configuration for creating completion clients
type ClientConfig struct {
	DB            *sql.DB
	Logger        *zap.SugaredLogger
	Verbosity     int
	OperationType string
	RunID         string
}

// NewCompletionClient creates a completion client based on configuration (auto-selection)
// Priority: Anthropic (if API key set) → OpenRouter
func NewCompletionClient(cfg *config.Config, db *sql.DB, verbosity int, operationType, runID string) CompletionClient {
	clientCfg := ClientConfig{
		DB:            db,
		Verbosity:     verbosity,
		OperationType: operationType,
		RunID:         runID,
	}
	return NewCompletionClientWithProvider(cfg, ProviderAuto, clientCfg)
}

// NewCompletionClientWithProvider creates a completion client for a specific provider
// Use ProviderAuto to let the factory decide based on configuration
func NewCompletionClientWithProvider(cfg *config.Config, provider Provider, clientCfg ClientConfig) CompletionClient {
	switch provider {
	case ProviderAnthropic:
		return newAnthropicClient(cfg, clientCfg)
	case ProviderOpenRouter:
		return newOpenRouterClient(cfg, clientCfg)
	case ProviderAuto:
		return autoSelectClient(cfg, clientCfg)
	default:
		// Unknown provider, fall back to auto
		return autoSelectClient(cfg, clientCfg)
	}
}

// autoSelectClient automatically selects the best available provider
// Priority: Anthropic (if API key set) → OpenRouter
func autoSelectClient(cfg *config.Config, clientCfg ClientConfig) CompletionClient {
	if cfg.AI.Anthropic.APIKey != "" {
		return newAnthropicClient(cfg, clientCfg)
	}

	return newOpenRouterClient(cfg, clientCfg)
}

// newAnthropicClient creates an Anthropic API client wrapped in an adapter
// The adapter provides StreamingClient compatibility
func newAnthropicClient(cfg *config.Config, clientCfg ClientConfig) CompletionClient {
	var temperature float64
	if cfg.AI.Anthropic.Temperature != nil {
		temperature = *cfg.AI.Anthropic.Temperature
	}
	var maxTokens int
	if cfg.AI.Anthropic.MaxTokens != nil {
		maxTokens = *cfg.AI.Anthropic.MaxTokens
	}

	client := anthropic.NewClient(anthropic.Config{
		APIKey:        cfg.AI.Anthropic.APIKey,
		Model:         cfg.AI.Anthropic.Model,
		Temperature:   temperature,
		MaxTokens:     maxTokens,
		DB:            clientCfg.DB,
		Verbosity:     clientCfg.Verbosity,
		OperationType: clientCfg.OperationType,
		RunID:         clientCfg.RunID,
	})
	return &AnthropicAdapter{client: client}
}

// newOpenRouterClient creates an OpenRouter API client
func newOpenRouterClient(cfg *config.Config, clientCfg ClientConfig) CompletionClient {
	return openrouter.NewClient(openrouter.Config{
		APIKey:        cfg.AI.OpenRouter.APIKey,
		Model:         cfg.AI.OpenRouter.Model,
		Temperature:   cfg.AI.OpenRouter.Temperature,
		MaxTokens:     cfg.AI.OpenRouter.MaxTokens,
		Logger:        clientCfg.Logger,
		DB:            clientCfg.DB,
		Verbosity:     clientCfg.Verbosity,
		OperationType: clientCfg.OperationType,
		RunID:         clientCfg.RunID,
	})
}

// GetAvailableProviders returns a list of configured/available providers
func GetAvailableProviders(cfg *config.Config) []Provider {
	var providers []Provider

	// Anthropic available if API key is set
	if cfg.AI.Anthropic.APIKey != "" {
		providers = append(providers, ProviderAnthropic)
	}

	// OpenRouter available if API key is set
	if cfg.AI.OpenRouter.APIKey != "" {
		providers = append(providers, ProviderOpenRouter)
	}

	return providers
}

// ParseProvider converts a string to a Provider type
func ParseProvider(s string) (Provider, error) {
	switch s {
	case "openrouter", "or":
		return ProviderOpenRouter, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "auto", "":
		return ProviderAuto, nil
	default:
		return "", fmt.Errorf("unknown provider: %s (valid: openrouter, anthropic, auto)", s)
	}
}

// AnthropicAdapter wraps an Anthropic client to implement StreamingClient
// This adapter converts between anthropic.StreamChunk and provider.StreamChunk
type AnthropicAdapter struct {
	client *anthropic.Client
}

// Chat delegates to the underlying Anthropic client
func (a *AnthropicAdapter) Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	return a.client.Chat(ctx, req)
}

// ChatStreaming implements StreamingClient by converting stream chunk types
func (a *AnthropicAdapter) ChatStreaming(ctx context.Context, req openrouter.ChatRequest, streamChan chan<- StreamChunk) error {
	// Create internal channel for anthropic chunks
	anthropicChan := make(chan anthropic.StreamChunk, 10)

	// Start streaming in goroutine
	errChan := make(chan error, 1)
	go func() {
		err := a.client.ChatStreaming(ctx, req, anthropicChan)
		errChan <- err
	}()

	// Convert and forward chunks
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-anthropicChan:
			if !ok {
				return <-errChan
			}
			streamChan <- StreamChunk{
				Content: chunk.Content,
				Done:    chunk.Done,
				Error:   chunk.Error,
			}
			if chunk.Done || chunk.Error != nil {
				return chunk.Error
			}
		}
	}
}

// Verify interfaces are implemented
var _ CompletionClient = (*openrouter.Client)(nil)
var _ CompletionClient = (*anthropic.Client)(nil)
var _ CompletionClient = (*AnthropicAdapter)(nil)
var _ StreamingClient = (*AnthropicAdapter)(nil)
