package metrics

import (
	"github.com/intellibus/insights/internal/costs"
)

// Summary aggregates a metrics snapshot.
type Summary struct {
	Requests           int     `json:"requests"`
	Successes          int     `json:"successes"`
	Failures           int     `json:"failures"`
	AvgAPICallMs       float64 `json:"avgApiCallMs"`
	AvgTotalMs         float64 `json:"avgTotalMs"`
	InputTokens        int64   `json:"inputTokens"`
	OutputTokens       int64   `json:"outputTokens"`
	ResponseChars      int64   `json:"responseChars"`
	EstimatedCostCents float64 `json:"estimatedCostCents"`
}

// Summarize computes aggregate statistics over entries.
// API call averages only consider successful calls; failed calls may not have reached the backend.
func Summarize(entries map[string]RequestMetrics) Summary {
	var s Summary
	var apiTotal, allTotal float64

	for _, m := range entries {
		s.Requests++
		allTotal += float64(m.TotalProcessingDuration.Milliseconds())
		s.InputTokens += m.InputTokens
		s.OutputTokens += m.OutputTokens
		if m.Success {
			s.Successes++
			apiTotal += float64(m.APICallDuration.Milliseconds())
			s.ResponseChars += int64(m.ResponseLength)
		} else {
			s.Failures++
		}
	}

	if s.Successes > 0 {
		s.AvgAPICallMs = apiTotal / float64(s.Successes)
	}
	if s.Requests > 0 {
		s.AvgTotalMs = allTotal / float64(s.Requests)
	}

	s.EstimatedCostCents = costs.CalculateLLMCost(costs.Usage{
		InputTokens:  s.InputTokens,
		OutputTokens: s.OutputTokens,
	}).TotalCents

	return s
}
