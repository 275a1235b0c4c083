package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/iter"

	"github.com/intellibus/insights/internal/eventlog"
	"github.com/intellibus/insights/internal/llm"
)

// SentimentAnalyzer classifies the sentiment of free text through the model backend.
type SentimentAnalyzer struct {
	gen  llm.Generator
	opts options
}

// NewSentimentAnalyzer creates a SentimentAnalyzer that issues one gateway call per text.
func NewSentimentAnalyzer(gen llm.Generator, opts ...Option) *SentimentAnalyzer {
	return &SentimentAnalyzer{gen: gen, opts: buildOptions(opts)}
}

// BuildSentimentPrompt renders the sentiment instruction for req.
func BuildSentimentPrompt(req SentimentRequest) string {
	var b strings.Builder
	b.WriteString("Analyze the sentiment of the following text. Respond with ONLY a JSON object containing sentiment analysis details.\n\n")
	b.WriteString("Text to analyze: \"" + req.Text + "\"\n\n")
	if req.Context != "" {
		b.WriteString("Context: " + req.Context + "\n\n")
	}
	if req.Source != "" {
		b.WriteString("Source: " + req.Source + "\n\n")
	}
	b.WriteString("Remember to respond with ONLY a JSON object that has these exact fields:\n")
	fmt.Fprintf(&b, "- %s: overall sentiment (POSITIVE, NEGATIVE, NEUTRAL, or MIXED)\n", fieldSentiment)
	fmt.Fprintf(&b, "- %s: a decimal score from -1.0 (extremely negative) to 1.0 (extremely positive)\n", fieldScore)
	fmt.Fprintf(&b, "- %s: a decimal between 0.0 and 1.0 indicating your confidence\n", fieldConfidence)
	fmt.Fprintf(&b, "- %s: array of emotions detected\n", fieldDominantEmotions)
	fmt.Fprintf(&b, "- %s: array of notable phrases\n", fieldKeyPhrases)
	fmt.Fprintf(&b, "- %s: brief textual explanation", fieldInsights)
	return b.String()
}

// ParseSentiment maps a JSON candidate onto a SentimentResult.
// Missing fields keep their zero value; out-of-range numbers are clamped.
func ParseSentiment(candidate string) (SentimentResult, error) {
	f, err := llm.ParseObject(candidate)
	if err != nil {
		return SentimentResult{}, err
	}
	return SentimentResult{
		Sentiment:        sentimentLabel(f.String(fieldSentiment)),
		Score:            clamp(f.Float(fieldScore, 0), -1, 1),
		Confidence:       clamp(f.Float(fieldConfidence, 0), 0, 1),
		DominantEmotions: f.Strings(fieldDominantEmotions),
		KeyPhrases:       f.Strings(fieldKeyPhrases),
		Insights:         f.String(fieldInsights),
	}, nil
}

// Analyze runs a single sentiment analysis. Failures are encoded as an ERROR result.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, req SentimentRequest) SentimentResult {
	start := time.Now()
	log := a.opts.logger.WithField("component", "sentiment")

	c := a.gen.Generate(ctx, BuildSentimentPrompt(req))
	log = log.WithField("request_id", c.RequestID)

	var result SentimentResult
	var err error
	if c.OK {
		result, err = ParseSentiment(llm.ExtractJSON(c.Text))
	} else {
		err = errors.New(c.Text)
	}
	if err != nil {
		log.WithError(err).WithField("response", llm.Snippet(c.Text, 200)).Warn("sentiment analysis failed")
		a.opts.events.LogAsync(c.RequestID, eventlog.EventSentimentFailed, map[string]any{
			"error": err.Error(),
		})
		return sentimentError(req.Text, c.RequestID, start, err)
	}

	result.OriginalText = req.Text
	result.RequestID = c.RequestID
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	log.WithFields(logrus.Fields{
		"sentiment": result.Sentiment,
		"score":     result.Score,
	}).Info("sentiment analysis complete")
	a.opts.events.LogAsync(c.RequestID, eventlog.EventSentimentAnalyzed, map[string]any{
		"sentiment":     result.Sentiment,
		"score":         result.Score,
		"confidence":    result.Confidence,
		"processing_ms": result.ProcessingTimeMs,
	})

	return result
}

// AnalyzeBatch analyzes every request and returns results in input order.
// Entries are independent: one failure does not affect its siblings.
func (a *SentimentAnalyzer) AnalyzeBatch(ctx context.Context, reqs []SentimentRequest) []SentimentResult {
	start := time.Now()
	mapper := iter.Mapper[SentimentRequest, SentimentResult]{MaxGoroutines: a.opts.concurrency}
	results := mapper.Map(reqs, func(req *SentimentRequest) SentimentResult {
		return a.Analyze(ctx, *req)
	})

	failed := 0
	for _, r := range results {
		if r.IsError() {
			failed++
		}
	}
	a.opts.logger.WithFields(logrus.Fields{
		"component": "sentiment",
		"batch":     len(reqs),
		"failed":    failed,
		"duration":  time.Since(start).Milliseconds(),
	}).Info("sentiment batch complete")

	return results
}

func sentimentError(text, requestID string, start time.Time, err error) SentimentResult {
	return SentimentResult{
		Sentiment:        SentimentError,
		DominantEmotions: []string{},
		KeyPhrases:       []string{},
		Insights:         "Error analyzing sentiment: " + err.Error(),
		OriginalText:     text,
		RequestID:        requestID,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
}

// sentimentLabel upper-cases a model label. Anything outside the four analysis
// labels becomes empty; ERROR is reserved for failed calls.
func sentimentLabel(s string) string {
	switch l := strings.ToUpper(strings.TrimSpace(s)); l {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return l
	}
	return ""
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
