package llm

import "context"

// Completion is the outcome of a single gateway call.
// Text is never empty: on failure it carries a readable error or apology string.
type Completion struct {
	Text      string
	RequestID string
	OK        bool
}

// Generator sends a prompt to the model backend and returns its text response.
// Implementations must record exactly one metrics entry per call.
type Generator interface {
	Generate(ctx context.Context, prompt string) Completion
}
