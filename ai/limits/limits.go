// Package limits wraps a completion client with outbound traffic bounds:
// a sustained request rate and a hard per-run call budget.
package limits

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/prompteng/ape/ai/openrouter"
	"github.com/prompteng/ape/ai/provider"
	"github.com/prompteng/ape/errors"
)

// Client paces and budgets calls to an underlying completion client.
// Safe for concurrent use; the budget is shared across goroutines.
type Client struct {
	inner   provider.CompletionClient
	limiter *rate.Limiter // nil = unpaced
	budget  int64         // 0 = unlimited
	used    atomic.Int64
}

// Config bounds a wrapped client
type Config struct {
	RequestsPerMinute int // Sustained request rate (0 = unpaced)
	MaxCallsPerRun    int // Total calls allowed through this wrapper (0 = unlimited)
}

// Wrap bounds the given client with the configured rate and budget
func Wrap(inner provider.CompletionClient, cfg Config) *Client {
	c := &Client{
		inner:  inner,
		budget: int64(cfg.MaxCallsPerRun),
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	return c
}

// Chat forwards to the wrapped client after charging the budget and
// waiting out the rate limiter. Budget exhaustion returns
// errors.ErrBudgetExhausted without consuming a rate token.
func (c *Client) Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	if err := c.reserve(ctx); err != nil {
		return nil, err
	}
	return c.inner.Chat(ctx, req)
}

// ChatStreaming forwards a streaming request under the same bounds. An
// inner client without streaming support is called once and its whole
// response is emitted as a single chunk.
func (c *Client) ChatStreaming(ctx context.Context, req openrouter.ChatRequest, streamChan chan<- provider.StreamChunk) error {
	if err := c.reserve(ctx); err != nil {
		return err
	}
	if s, ok := c.inner.(provider.StreamingClient); ok {
		return s.ChatStreaming(ctx, req, streamChan)
	}
	resp, err := c.inner.Chat(ctx, req)
	if err != nil {
		return err
	}
	streamChan <- provider.StreamChunk{Content: resp.Content}
	streamChan <- provider.StreamChunk{Done: true}
	return nil
}

// reserve charges one call against the budget, then waits out the rate
// limiter. A call cancelled while waiting never went out and is
// refunded.
func (c *Client) reserve(ctx context.Context) error {
	if c.budget > 0 {
		if c.used.Add(1) > c.budget {
			c.used.Add(-1)
			return errors.Wrapf(errors.ErrBudgetExhausted, "%d calls", c.budget)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if c.budget > 0 {
				c.used.Add(-1)
			}
			return err
		}
	}

	return nil
}

// CallsUsed reports how many calls have been charged against the budget
func (c *Client) CallsUsed() int {
	return int(c.used.Load())
}

var _ provider.CompletionClient = (*Client)(nil)
var _ provider.StreamingClient = (*Client)(nil)
