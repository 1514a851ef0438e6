package llm

import (
	"strings"
	"sync"
)

// modelPricing holds per-model pricing in USD per 1M tokens.
type modelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// priceTable maps model identifiers to their pricing.
var priceTable = map[string]modelPricing{
	// OpenAI models
	"gpt-4o":       {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini":  {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"gpt-4.1-mini": {InputPerMillion: 0.40, OutputPerMillion: 1.60},

	// Anthropic models
	"claude-haiku-4-5-20251001":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
	"claude-sonnet-4-5-20250929": {InputPerMillion: 3.00, OutputPerMillion: 15.00},

	// Embedding models (output tokens are not billed)
	"text-embedding-3-small": {InputPerMillion: 0.02},
	"text-embedding-3-large": {InputPerMillion: 0.13},
}

// lookupPricing matches model exactly, then by the longest priced prefix so
// dated snapshots such as "gpt-4o-mini-2024-07-18" resolve.
func lookupPricing(model string) (modelPricing, bool) {
	if p, ok := priceTable[model]; ok {
		return p, true
	}
	best := ""
	for name := range priceTable {
		if strings.HasPrefix(model, name+"-") && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return modelPricing{}, false
	}
	return priceTable[best], true
}

// EstimateCost returns the estimated cost in USD for the given model and token counts.
// Returns 0 if the model is not found in the price table.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := lookupPricing(model)
	if !ok {
		return 0
	}

	inputCost := float64(inputTokens) / 1_000_000.0 * pricing.InputPerMillion
	outputCost := float64(outputTokens) / 1_000_000.0 * pricing.OutputPerMillion
	return inputCost + outputCost
}

// EstimateTokens provides a rough token count estimation for the given text.
// Uses the approximation of 1 token per 4 characters.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		return 1
	}
	return n
}

// Usage accumulates token counts and cost across calls. Safe for concurrent use.
type Usage struct {
	mu           sync.Mutex
	calls        int
	inputTokens  int
	outputTokens int
	costUSD      float64
}

// Record adds one response to the totals.
func (u *Usage) Record(resp *CompletionResponse) {
	if resp == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	u.inputTokens += resp.InputTokens
	u.outputTokens += resp.OutputTokens
	u.costUSD += EstimateCost(resp.Model, resp.InputTokens, resp.OutputTokens)
}

// Totals returns the call count, token counts and estimated cost so far.
func (u *Usage) Totals() (calls, inputTokens, outputTokens int, costUSD float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls, u.inputTokens, u.outputTokens, u.costUSD
}
