package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/intellibus/insights/internal/analysis"
	"github.com/intellibus/insights/internal/llm"
)

// maxBatchSize bounds the number of texts in one batch request.
const maxBatchSize = 100

// ChatRequest is the body of the raw model passthrough.
type ChatRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

// ChatResponse is the raw model reply plus its timing.
type ChatResponse struct {
	Response         string `json:"response"`
	Model            string `json:"model"`
	RequestID        string `json:"requestId"`
	Success          bool   `json:"success"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	APICallTimeMs    int64  `json:"apiCallTimeMs"`
}

func (r *Router) requestLog(req *http.Request) *logrus.Entry {
	fields := logrus.Fields{"component": "httpapi", "path": req.URL.Path}
	if sub := authSubject(req.Context()); sub != "" {
		fields["subject"] = sub
	}
	return r.logger.WithFields(fields)
}

// chat calls the gateway and joins the reply with the metrics recorded for it.
func (r *Router) chat(ctx context.Context, prompt string) ChatResponse {
	c := r.svc.Gateway.Generate(ctx, prompt)
	resp := ChatResponse{
		Response:  c.Text,
		Model:     r.svc.Gateway.Model(),
		RequestID: c.RequestID,
		Success:   c.OK,
	}
	if r.svc.Metrics != nil {
		if m, ok := r.svc.Metrics.Get(c.RequestID); ok {
			resp.ProcessingTimeMs = m.TotalProcessingDuration.Milliseconds()
			resp.APICallTimeMs = m.APICallDuration.Milliseconds()
		}
	}
	return resp
}

func (r *Router) handleChat(w http.ResponseWriter, req *http.Request) {
	var body ChatRequest
	if !r.decodeBody(w, req, &body) {
		return
	}
	if !r.track(w) {
		return
	}
	defer r.registry.Done()

	r.requestLog(req).WithField("prompt", llm.Snippet(body.Prompt, 50)).Info("chat request")
	writeJSON(w, http.StatusOK, r.chat(workContext(req), body.Prompt))
}

func (r *Router) handleChatAsync(w http.ResponseWriter, req *http.Request) {
	var body ChatRequest
	if !r.decodeBody(w, req, &body) {
		return
	}
	if !r.track(w) {
		return
	}
	respond(r, w, req, runTask(r, req, func(ctx context.Context) ChatResponse {
		return r.chat(ctx, body.Prompt)
	}))
}

func (r *Router) handleSentiment(w http.ResponseWriter, req *http.Request) {
	var body analysis.SentimentRequest
	if !r.decodeBody(w, req, &body) {
		return
	}
	if !r.track(w) {
		return
	}
	defer r.registry.Done()

	r.requestLog(req).WithField("text", llm.Snippet(body.Text, 50)).Info("sentiment request")
	writeJSON(w, http.StatusOK, r.svc.Sentiment.Analyze(workContext(req), body))
}

func (r *Router) handleSentimentAsync(w http.ResponseWriter, req *http.Request) {
	var body analysis.SentimentRequest
	if !r.decodeBody(w, req, &body) {
		return
	}
	if !r.track(w) {
		return
	}
	respond(r, w, req, runTask(r, req, func(ctx context.Context) analysis.SentimentResult {
		return r.svc.Sentiment.Analyze(ctx, body)
	}))
}

func (r *Router) handleSentimentBatch(w http.ResponseWriter, req *http.Request) {
	var body []analysis.SentimentRequest
	if !r.decodeBatch(w, req, &body) {
		return
	}
	if !r.track(w) {
		return
	}
	defer r.registry.Done()

	r.requestLog(req).WithField("count", len(body)).Info("batch sentiment request")
	ctx := workContext(req)
	results := r.svc.Sentiment.AnalyzeBatch(ctx, body)
	r.checkBatch(ctx, results)
	writeJSON(w, http.StatusOK, results)
}

func (r *Router) decodeBatch(w http.ResponseWriter, req *http.Request, body *[]analysis.SentimentRequest) bool {
	raw, ok := readBody(w, req)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if len(*body) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch exceeds %d entries", maxBatchSize))
		return false
	}
	for i := range *body {
		if err := r.validate.Struct((*body)[i]); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("entry %d: %s", i, validationMessage(err)))
			return false
		}
	}
	return true
}

// checkBatch alerts when more than half of a batch failed.
func (r *Router) checkBatch(ctx context.Context, results []analysis.SentimentResult) {
	failed := 0
	for _, res := range results {
		if res.IsError() {
			failed++
		}
	}
	if failed*2 <= len(results) {
		return
	}
	r.logger.WithFields(logrus.Fields{"component": "httpapi", "total": len(results), "failed": failed}).
		Warn("sentiment batch degraded")
	if r.cfg.AlertOnDegradedBatch && r.svc.Alerts != nil {
		r.svc.Alerts.NotifyBatchDegraded(ctx, len(results), failed)
	}
}

func (r *Router) handleChatAnalysis(w http.ResponseWriter, req *http.Request) {
	var body analysis.ChatRequest
	if !r.decodeBody(w, req, &body) {
		return
	}
	if !r.track(w) {
		return
	}
	defer r.registry.Done()

	r.requestLog(req).WithField("messages", len(body.Messages)).Info("chat analysis request")
	writeJSON(w, http.StatusOK, r.svc.Chat.Analyze(workContext(req), body))
}

func (r *Router) handleChatAnalysisAsync(w http.ResponseWriter, req *http.Request) {
	var body analysis.ChatRequest
	if !r.decodeBody(w, req, &body) {
		return
	}
	if !r.track(w) {
		return
	}
	respond(r, w, req, runTask(r, req, func(ctx context.Context) analysis.ChatResult {
		return r.svc.Chat.Analyze(ctx, body)
	}))
}
