package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Discord is a simple Discord webhook notifier.
type Discord struct {
	webhookURL string
	logger     *logrus.Logger
	client     *http.Client
	wg         sync.WaitGroup
}

// NewDiscord creates a new Discord notifier. If webhookURL is empty,
// notifications are silently skipped.
func NewDiscord(webhookURL string, logger *logrus.Logger) *Discord {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Discord{
		webhookURL: webhookURL,
		logger:     logger,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled returns true if the webhook is configured.
func (d *Discord) Enabled() bool {
	return d.webhookURL != ""
}

// discordMessage is the payload for Discord webhook.
type discordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// send posts a message to Discord webhook asynchronously.
// Errors are logged but don't affect caller. The request outlives ctx cancellation.
func (d *Discord) send(ctx context.Context, msg discordMessage) {
	if !d.Enabled() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := d.logger.WithField("component", "discord")

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		body, err := json.Marshal(msg)
		if err != nil {
			log.WithError(err).Warn("failed to marshal message")
			return
		}

		req, err := http.NewRequestWithContext(ctx, "POST", d.webhookURL, bytes.NewReader(body))
		if err != nil {
			log.WithError(err).Warn("failed to create request")
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.client.Do(req)
		if err != nil {
			log.WithError(err).Warn("failed to send webhook")
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			log.WithField("status", resp.StatusCode).Warn("webhook returned error status")
		}
	}()
}

// Wait blocks until all pending webhook posts have finished.
func (d *Discord) Wait() {
	d.wg.Wait()
}

// NotifyReportFailed sends a notification when a report could not be generated.
func (d *Discord) NotifyReportFailed(ctx context.Context, reportID, reportType, title, reason string) {
	msg := discordMessage{
		Embeds: []discordEmbed{{
			Title:       "Report generation failed",
			Description: truncate(reason, 1000),
			Color:       0xFF0000, // Red
			Fields: []embedField{
				{Name: "Report ID", Value: fmt.Sprintf("`%s`", reportID), Inline: true},
				{Name: "Type", Value: reportType, Inline: true},
				{Name: "Title", Value: title},
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}},
	}
	d.send(ctx, msg)
}

// NotifyBatchDegraded sends a notification when most of a sentiment batch failed.
func (d *Discord) NotifyBatchDegraded(ctx context.Context, total, failed int) {
	msg := discordMessage{
		Embeds: []discordEmbed{{
			Title:       "Sentiment batch degraded",
			Description: fmt.Sprintf("%d of %d entries failed", failed, total),
			Color:       0xFFA500, // Orange
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
	}
	d.send(ctx, msg)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
