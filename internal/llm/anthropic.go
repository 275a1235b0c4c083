package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/intellibus/insights/internal/metrics"
)

var errInvalidResponse = errors.New(InvalidResponseFormat)

// AnthropicClient implements Generator using the Anthropic Messages API.
type AnthropicClient struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	timeout     time.Duration
	metrics     *metrics.Store
	logger      *logrus.Logger
}

// AnthropicConfig holds configuration for the Anthropic client.
type AnthropicConfig struct {
	APIKey      string
	BaseURL     string // optional, for proxies and tests
	Model       string // e.g., "claude-3-haiku-20240307"
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration // per call; zero means no extra deadline
	HTTPClient  *http.Client
}

// NewAnthropicClient creates a new Anthropic client. Every call is recorded in store.
func NewAnthropicClient(cfg AnthropicConfig, store *metrics.Store, logger *logrus.Logger) *AnthropicClient {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Single attempt per call.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &AnthropicClient{
		client:      anthropic.NewClient(opts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		metrics:     store,
		logger:      logger,
	}
}

// Model returns the model identifier sent with each request.
func (c *AnthropicClient) Model() string {
	return c.model
}

// Generate sends prompt as a single user message and returns the first text block of the reply.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string) Completion {
	requestID := "req_" + uuid.NewString()
	start := time.Now()
	log := c.logger.WithFields(logrus.Fields{"component": "llm", "request_id": requestID, "model": c.model})

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	rec := metrics.RequestMetrics{
		RequestID:        requestID,
		Prompt:           prompt,
		Model:            c.model,
		RequestTimestamp: start,
	}

	apiStart := time.Now()
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		System: []anthropic.TextBlockParam{
			{Text: SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	apiDuration := time.Since(apiStart)

	if err != nil {
		c.finish(rec, start, apiDuration, "", err)
		log.WithError(err).Warn("model backend call failed")
		sentry.CaptureException(err)
		return Completion{Text: ErrorPrefix + err.Error(), RequestID: requestID}
	}

	rec.InputTokens = msg.Usage.InputTokens
	rec.OutputTokens = msg.Usage.OutputTokens

	// Only a missing or non-text first block is invalid; empty text is a valid, empty answer.
	if len(msg.Content) == 0 || msg.Content[0].Type != "text" {
		c.finish(rec, start, apiDuration, "", errInvalidResponse)
		log.Warn("model backend returned no text content")
		return Completion{Text: ApologyText, RequestID: requestID}
	}

	text := msg.Content[0].Text
	c.finish(rec, start, apiDuration, text, nil)
	log.WithFields(logrus.Fields{
		"api_ms":        apiDuration.Milliseconds(),
		"response_len":  len(text),
		"input_tokens":  msg.Usage.InputTokens,
		"output_tokens": msg.Usage.OutputTokens,
	}).Debug("model backend call completed")

	return Completion{Text: text, RequestID: requestID, OK: true}
}

// finish completes rec and inserts it; called exactly once per Generate.
func (c *AnthropicClient) finish(rec metrics.RequestMetrics, start time.Time, apiDuration time.Duration, text string, err error) {
	if c.metrics == nil {
		return
	}
	rec.ResponseTimestamp = time.Now()
	rec.APICallDuration = apiDuration
	rec.TotalProcessingDuration = rec.ResponseTimestamp.Sub(start)
	if err != nil {
		rec.ErrorMessage = err.Error()
	} else {
		rec.Success = true
		rec.ResponseLength = len([]rune(text))
	}
	c.metrics.Put(rec.RequestID, rec)
}
