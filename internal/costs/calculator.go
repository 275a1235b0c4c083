// Package costs provides cost estimation for model backend usage.
package costs

import (
	"math"
	"os"
	"strconv"
)

// Pricing constants (in cents per unit for precision).
// Defaults follow Claude 3 Haiku list prices and can be overridden via environment variables.
var (
	// LLMCentsPerThousandInputTokens is the cost per 1K input tokens.
	// Default: $0.25/1M = $0.00025/1K = 0.025 cents/1K tokens
	LLMCentsPerThousandInputTokens = getEnvFloat("COST_LLM_INPUT_CENTS_PER_1K", 0.025)

	// LLMCentsPerThousandOutputTokens is the cost per 1K output tokens.
	// Default: $1.25/1M = $0.00125/1K = 0.125 cents/1K tokens
	LLMCentsPerThousandOutputTokens = getEnvFloat("COST_LLM_OUTPUT_CENTS_PER_1K", 0.125)
)

// Usage contains the token counts reported by the model backend.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Breakdown contains the calculated costs in cents.
type Breakdown struct {
	InputCents  float64
	OutputCents float64
	TotalCents  float64
}

// CalculateLLMCost computes the cost of the given token usage.
// Values are rounded to four decimal places; single calls are usually well below one cent.
func CalculateLLMCost(u Usage) Breakdown {
	inputCents := (float64(u.InputTokens) / 1000.0) * LLMCentsPerThousandInputTokens
	outputCents := (float64(u.OutputTokens) / 1000.0) * LLMCentsPerThousandOutputTokens

	b := Breakdown{
		InputCents:  roundTo(inputCents, 4),
		OutputCents: roundTo(outputCents, 4),
	}
	b.TotalCents = roundTo(inputCents+outputCents, 4)
	return b
}

// roundTo rounds f to the given number of decimal places.
func roundTo(f float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(f*scale) / scale
}

// getEnvFloat returns an environment variable as float64, or the default if not set.
func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
