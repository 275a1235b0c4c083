package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/intellibus/insights/internal/llm"
)

// fakeGenerator answers prompts with a scripted function and records every prompt.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) llm.Completion
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) llm.Completion {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	n := len(f.prompts)
	f.mu.Unlock()

	c := f.reply(prompt)
	if c.RequestID == "" {
		c.RequestID = fmt.Sprintf("req_%d", n)
	}
	return c
}

func (f *fakeGenerator) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func ok(text string) llm.Completion {
	return llm.Completion{Text: text, OK: true}
}

const positiveJSON = `{"sentiment":"positive","score":0.8,"confidence":0.9,` +
	`"dominant_emotions":["joy"],"key_phrases":["great"],"insights":"Upbeat tone."}`

const chatJSON = `{"main_topics":["greeting"],"user_intents":["get help"],"key_questions":[],` +
	`"identified_issues":[],"action_items":["follow up"],"conversation_summary":"A short greeting."}`

// textUnderAnalysis returns the quoted text of a sentiment prompt.
func textUnderAnalysis(prompt string) string {
	const marker = "Text to analyze: \""
	i := strings.Index(prompt, marker)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(marker):]
	j := strings.Index(rest, "\"\n\n")
	if j < 0 {
		return ""
	}
	return rest[:j]
}

func isChatPrompt(prompt string) bool {
	return strings.HasPrefix(prompt, "Analyze the following conversation.")
}
