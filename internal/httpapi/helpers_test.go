package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/intellibus/insights/internal/analysis"
	"github.com/intellibus/insights/internal/llm"
	"github.com/intellibus/insights/internal/metrics"
	"github.com/intellibus/insights/internal/report"
)

const sentimentJSON = `{"sentiment":"positive","score":0.8,"confidence":0.9,` +
	`"dominant_emotions":["joy"],"key_phrases":["great"],"insights":"Upbeat tone."}`

const chatJSON = `{"main_topics":["billing"],"user_intents":["refund"],"key_questions":["Where is my refund?"],` +
	`"identified_issues":["late refund"],"action_items":["escalate"],"conversation_summary":"Customer asks about a refund."}`

const reportJSON = `{"executive_summary":"Strong turnout.","key_findings":["120 participants"],` +
	`"sections":[{"title":"Overview","content":"Went well."}],"recommendations":["Repeat next year"],` +
	`"metrics_data":{"participants":120},"visual_elements":[{"title":"Attendance","description":"By hour"}]}`

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeGateway answers by prompt shape and records metrics like the real gateway.
// Sentiment prompts whose text contains "fail" get a gateway error; "garbled"
// gets a reply with non-numeric scores and a bogus label.
type fakeGateway struct {
	mu      sync.Mutex
	n       int
	prompts []string
	ctxErrs []error
	metrics *metrics.Store
	panics  bool
}

func (g *fakeGateway) Model() string { return "claude-test" }

func (g *fakeGateway) Generate(ctx context.Context, prompt string) llm.Completion {
	if g.panics {
		panic("gateway exploded")
	}
	g.mu.Lock()
	g.n++
	id := fmt.Sprintf("req_%d", g.n)
	g.prompts = append(g.prompts, prompt)
	g.ctxErrs = append(g.ctxErrs, ctx.Err())
	g.mu.Unlock()

	c := llm.Completion{RequestID: id, OK: true}
	switch {
	case strings.HasPrefix(prompt, "Analyze the following conversation."):
		c.Text = chatJSON
	case strings.HasPrefix(prompt, "Analyze the sentiment"):
		if strings.Contains(prompt, "fail") {
			c = llm.Completion{RequestID: id, Text: "Error: upstream unavailable"}
		} else if strings.Contains(prompt, "garbled") {
			c.Text = `{"sentiment":"error","score":"NaN","confidence":"Infinity","insights":"?"}`
		} else {
			c.Text = sentimentJSON
		}
	case strings.HasPrefix(prompt, "Generate a"):
		c.Text = "Report follows.\n" + reportJSON
	default:
		c.Text = "echo: " + prompt
	}

	if g.metrics != nil {
		now := time.Now()
		g.metrics.Put(id, metrics.RequestMetrics{
			RequestID:               id,
			Prompt:                  prompt,
			Model:                   g.Model(),
			RequestTimestamp:        now,
			ResponseTimestamp:       now,
			APICallDuration:         40 * time.Millisecond,
			TotalProcessingDuration: 55 * time.Millisecond,
			ResponseLength:          len(c.Text),
			Success:                 c.OK,
		})
	}
	return c
}

type recordingAlerts struct {
	mu    sync.Mutex
	calls [][2]int
}

func (a *recordingAlerts) NotifyBatchDegraded(_ context.Context, total, failed int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, [2]int{total, failed})
}

type testServer struct {
	handler  http.Handler
	gateway  *fakeGateway
	metrics  *metrics.Store
	registry *Registry
	alerts   *recordingAlerts
}

func newTestServer(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()

	store := metrics.NewStore()
	gw := &fakeGateway{metrics: store}
	logger := quietLogger()
	sentiment := analysis.NewSentimentAnalyzer(gw, analysis.WithLogger(logger))
	alerts := &recordingAlerts{}
	reg := NewRegistry()

	svc := Services{
		Gateway:   gw,
		Metrics:   store,
		Sentiment: sentiment,
		Chat:      analysis.NewChatAnalyzer(gw, sentiment, analysis.WithLogger(logger)),
		Reports:   report.NewGenerator(gw, report.WithLogger(logger)),
		Alerts:    alerts,
	}

	return &testServer{
		handler:  NewRouter(cfg, logger, svc, reg),
		gateway:  gw,
		metrics:  store,
		registry: reg,
		alerts:   alerts,
	}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}
