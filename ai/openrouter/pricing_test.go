package openrouter

import (
	"math"
	"testing"
)

func TestCalculateCost_KnownModels(t *testing.T) {
	tests := []struct {
		name             string
		model            string
		promptTokens     int
		completionTokens int
		expectedCost     float64
		tolerance        float64
	}{
		{
			name:             "GPT-4o mini - small request",
			model:            "openai/gpt-4o-mini",
			promptTokens:     1000,
			completionTokens: 500,
			// ($0.15 * 1000/1M) + ($0.60 * 500/1M) = $0.00015 + $0.0003 = $0.00045
			expectedCost: 0.00045,
			tolerance:    0.0000001,
		},
		{
			name:             "GPT-4o - medium request",
			model:            "openai/gpt-4o",
			promptTokens:     5000,
			completionTokens: 2000,
			// ($2.50 * 5000/1M) + ($10.00 * 2000/1M) = $0.0125 + $0.02 = $0.0325
			expectedCost: 0.0325,
			tolerance:    0.0000001,
		},
		{
			name:             "Claude 3.5 Sonnet - large request",
			model:            "anthropic/claude-3.5-sonnet",
			promptTokens:     10000,
			completionTokens: 5000,
			// ($3.00 * 10000/1M) + ($15.00 * 5000/1M) = $0.03 + $0.075 = $0.105
			expectedCost: 0.105,
			tolerance:    0.0000001,
		},
		{
			name:             "Llama 3.1 8B - cheap request",
			model:            "meta-llama/llama-3.1-8b-instruct",
			promptTokens:     2000,
			completionTokens: 2000,
			// ($0.055 * 2000/1M) + ($0.055 * 2000/1M) = $0.00011 + $0.00011 = $0.00022
			expectedCost: 0.00022,
			tolerance:    0.0000001,
		},
		{
			name:             "Zero tokens",
			model:            "openai/gpt-4o-mini",
			promptTokens:     0,
			completionTokens: 0,
			expectedCost:     0.0,
			tolerance:        0.0000001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cost := CalculateCost(tt.model, tt.promptTokens, tt.completionTokens)

			if math.Abs(cost-tt.expectedCost) > tt.tolerance {
				t.Errorf("CalculateCost() = %v, want %v (tolerance %v)", cost, tt.expectedCost, tt.tolerance)
			}
		})
	}
}

func TestCalculateCost_UnknownModel(t *testing.T) {
	cost := CalculateCost("unknown/some-model", 1000, 1000)
	if cost != DefaultPricingFallback {
		t.Errorf("expected fallback cost %v for unknown model, got %v", DefaultPricingFallback, cost)
	}
}

func TestGetPricing(t *testing.T) {
	pricing, found := GetPricing("openai/gpt-4o-mini")
	if !found {
		t.Fatal("expected pricing for gpt-4o-mini")
	}
	if pricing.PromptPrice != 0.15 || pricing.CompletionPrice != 0.60 {
		t.Errorf("unexpected pricing: %+v", pricing)
	}

	if _, found := GetPricing("unknown/some-model"); found {
		t.Error("expected no pricing for unknown model")
	}
}
