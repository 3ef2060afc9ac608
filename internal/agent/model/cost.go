package model

import (
	"github.com/cloudwego/eino/schema"
)

// Pricing defines USD cost per 1M tokens for input/output.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// defaultPricing provides hardcoded USD pricing per 1M tokens (text tokens).
var defaultPricing = map[string]Pricing{
	"gemini-2.5-pro":        {InputPerM: 1.25, OutputPerM: 10.00},
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
}

// ResolvePricing returns hardcoded pricing for a model, zero when unknown.
func ResolvePricing(model string) Pricing {
	return defaultPricing[model]
}

// Usage is the token and cost accounting of one generation call.
type Usage struct {
	Model            string  `json:"model"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	InputCostUSD     float64 `json:"input_cost"`
	OutputCostUSD    float64 `json:"output_cost"`
	TotalCostUSD     float64 `json:"total_cost"`
}

// ComputeUsage converts token usage to USD cost using per-1M Pricing.
func ComputeUsage(model string, usage *schema.TokenUsage) Usage {
	u := Usage{Model: model}
	if usage == nil {
		return u
	}
	p := ResolvePricing(model)
	u.PromptTokens = usage.PromptTokens
	u.CompletionTokens = usage.CompletionTokens
	u.TotalTokens = usage.TotalTokens
	u.InputCostUSD = p.InputPerM * float64(usage.PromptTokens) / 1_000_000.0
	u.OutputCostUSD = p.OutputPerM * float64(usage.CompletionTokens) / 1_000_000.0
	u.TotalCostUSD = u.InputCostUSD + u.OutputCostUSD
	return u
}
