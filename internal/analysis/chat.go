package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/intellibus/insights/internal/eventlog"
	"github.com/intellibus/insights/internal/llm"
)

// ChatAnalyzer combines a conversation-level analysis with overall and per-message sentiment.
type ChatAnalyzer struct {
	gen       llm.Generator
	sentiment *SentimentAnalyzer
	opts      options
}

// NewChatAnalyzer creates a ChatAnalyzer. sentiment is used for the overall and per-message calls.
func NewChatAnalyzer(gen llm.Generator, sentiment *SentimentAnalyzer, opts ...Option) *ChatAnalyzer {
	return &ChatAnalyzer{gen: gen, sentiment: sentiment, opts: buildOptions(opts)}
}

// FormatTranscript renders messages as "ROLE: content" blocks separated by blank lines.
func FormatTranscript(msgs []ChatMessage) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(strings.ToUpper(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// BuildChatPrompt renders the conversation analysis instruction for req.
func BuildChatPrompt(req ChatRequest) string {
	var b strings.Builder
	b.WriteString("Analyze the following conversation. Respond with ONLY a JSON object containing chat analysis details.\n\n")
	b.WriteString("Conversation to analyze:\n")
	b.WriteString(FormatTranscript(req.Messages))
	b.WriteString("\n\n")
	if req.Context != "" {
		b.WriteString("Context: " + req.Context + "\n\n")
	}
	b.WriteString("Remember to respond with ONLY a JSON object with these fields:\n")
	fmt.Fprintf(&b, "- %s: array of main topics discussed\n", fieldMainTopics)
	fmt.Fprintf(&b, "- %s: array of identified user intentions\n", fieldUserIntents)
	fmt.Fprintf(&b, "- %s: array of important questions asked\n", fieldKeyQuestions)
	fmt.Fprintf(&b, "- %s: array of issues or problems in the conversation\n", fieldIdentifiedIssues)
	fmt.Fprintf(&b, "- %s: array of action items extracted from the conversation\n", fieldActionItems)
	fmt.Fprintf(&b, "- %s: a concise summary of the conversation", fieldConversationSummary)
	return b.String()
}

// ParseChat maps a JSON candidate onto the conversation-level fields of a ChatResult.
func ParseChat(candidate string) (ChatResult, error) {
	f, err := llm.ParseObject(candidate)
	if err != nil {
		return ChatResult{}, err
	}
	return ChatResult{
		MainTopics:          f.Strings(fieldMainTopics),
		UserIntents:         f.Strings(fieldUserIntents),
		KeyQuestions:        f.Strings(fieldKeyQuestions),
		IdentifiedIssues:    f.Strings(fieldIdentifiedIssues),
		ActionItems:         f.Strings(fieldActionItems),
		ConversationSummary: f.String(fieldConversationSummary),
	}, nil
}

// Analyze runs the conversation analysis. The conversation-level call comes first;
// if it cannot be parsed no sentiment calls are made.
func (a *ChatAnalyzer) Analyze(ctx context.Context, req ChatRequest) ChatResult {
	start := time.Now()
	requestID := uuid.NewString()
	log := a.opts.logger.WithFields(logrus.Fields{
		"component":  "chat_analysis",
		"request_id": requestID,
		"messages":   len(req.Messages),
	})
	log.Info("analyzing chat conversation")

	c := a.gen.Generate(ctx, BuildChatPrompt(req))

	var result ChatResult
	var err error
	if c.OK {
		result, err = ParseChat(llm.ExtractJSON(c.Text))
	} else {
		err = errors.New(c.Text)
	}
	if err != nil {
		log.WithError(err).WithField("response", llm.Snippet(c.Text, 200)).Warn("chat analysis failed")
		a.opts.events.LogAsync(requestID, eventlog.EventChatFailed, map[string]any{
			"gateway_request_id": c.RequestID,
			"error":              err.Error(),
		})
		return chatError(requestID, start, err)
	}

	overall, analytics := a.analyzeSentiments(ctx, req.Messages)

	result.OverallSentiment = &overall
	result.MessageAnalytics = analytics
	result.RequestID = requestID
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	log.WithFields(logrus.Fields{
		"analyzed_messages": len(analytics),
		"overall":           overall.Sentiment,
		"duration":          result.ProcessingTimeMs,
	}).Info("chat analysis complete")
	a.opts.events.LogAsync(requestID, eventlog.EventChatAnalyzed, map[string]any{
		"gateway_request_id": c.RequestID,
		"messages":           len(req.Messages),
		"analyzed_messages":  len(analytics),
		"overall_sentiment":  overall.Sentiment,
		"processing_ms":      result.ProcessingTimeMs,
	})

	return result
}

// analyzeSentiments issues the overall call and one call per substantive message concurrently.
// Results are placed by message index.
func (a *ChatAnalyzer) analyzeSentiments(ctx context.Context, msgs []ChatMessage) (SentimentResult, map[int]MessageAnalytics) {
	contents := make([]string, len(msgs))
	for i, m := range msgs {
		contents[i] = m.Content
	}

	var overall SentimentResult
	perMessage := make([]*MessageAnalytics, len(msgs))

	var g errgroup.Group
	g.SetLimit(a.opts.concurrency)

	g.Go(func() error {
		overall = a.sentiment.Analyze(ctx, SentimentRequest{Text: strings.Join(contents, " ")})
		return nil
	})

	for i, m := range msgs {
		if !substantive(m.Content) {
			continue
		}
		g.Go(func() error {
			s := a.sentiment.Analyze(ctx, SentimentRequest{Text: m.Content})
			perMessage[i] = &MessageAnalytics{
				Sentiment:        s,
				Topics:           []string{},
				Importance:       DefaultImportance,
				ContainsQuestion: strings.Contains(m.Content, "?"),
			}
			return nil
		})
	}
	_ = g.Wait()

	analytics := make(map[int]MessageAnalytics)
	for i, ma := range perMessage {
		if ma != nil {
			analytics[i] = *ma
		}
	}
	return overall, analytics
}

func substantive(content string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(content)) > minAnalyzedLength
}

func chatError(requestID string, start time.Time, err error) ChatResult {
	return ChatResult{
		MainTopics:          []string{},
		UserIntents:         []string{},
		KeyQuestions:        []string{},
		IdentifiedIssues:    []string{},
		ActionItems:         []string{},
		ConversationSummary: "Error analyzing chat: " + err.Error(),
		MessageAnalytics:    map[int]MessageAnalytics{},
		RequestID:           requestID,
		ProcessingTimeMs:    time.Since(start).Milliseconds(),
	}
}
