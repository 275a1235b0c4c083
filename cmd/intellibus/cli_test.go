package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/intellibus/insights/internal/analysis"
	"github.com/intellibus/insights/internal/httpapi"
	"github.com/intellibus/insights/internal/metrics"
	"github.com/intellibus/insights/internal/report"
)

type apiStub struct {
	*httptest.Server
	paths []string
	auth  []string
	body  []byte
}

func newAPIStub(t *testing.T) *apiStub {
	t.Helper()
	s := &apiStub{}
	mux := http.NewServeMux()
	record := func(r *http.Request) {
		s.paths = append(s.paths, r.URL.Path)
		s.auth = append(s.auth, r.Header.Get("Authorization"))
		if r.Body != nil {
			buf := new(bytes.Buffer)
			_, _ = buf.ReadFrom(r.Body)
			s.body = buf.Bytes()
		}
	}
	reply := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("POST /api/sentiment/analyze", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		var req analysis.SentimentRequest
		_ = json.Unmarshal(s.body, &req)
		if strings.Contains(req.Text, "fail") {
			reply(w, analysis.SentimentResult{Sentiment: analysis.SentimentError, Insights: "Failed to parse sentiment analysis"})
			return
		}
		reply(w, analysis.SentimentResult{
			Sentiment:        analysis.SentimentPositive,
			Score:            0.8,
			Confidence:       0.9,
			DominantEmotions: []string{"joy"},
			Insights:         "upbeat",
			OriginalText:     req.Text,
		})
	})
	mux.HandleFunc("POST /api/chat-analysis", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		reply(w, analysis.ChatResult{
			OverallSentiment:    &analysis.SentimentResult{Sentiment: analysis.SentimentNeutral, Score: 0.1},
			MainTopics:          []string{"billing"},
			ActionItems:         []string{"send invoice"},
			ConversationSummary: "Customer asked about an invoice.",
			MessageAnalytics: map[int]analysis.MessageAnalytics{
				0: {Sentiment: analysis.SentimentResult{Sentiment: analysis.SentimentNegative}, ContainsQuestion: true},
			},
		})
	})
	mux.HandleFunc("POST /api/reports/post-event", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		reply(w, report.Response{
			ReportID:         "rpt-1",
			ReportType:       report.TypePostEvent,
			Title:            "Hackathon",
			ExecutiveSummary: "It went well.",
			KeyFindings:      []string{"High turnout"},
			Sections: []report.Section{{
				Title:       "Attendance",
				Content:     "120 people",
				Subsections: []report.Section{{Title: "Returning", Content: "40"}},
			}},
		})
	})
	mux.HandleFunc("GET /api/metrics/summary", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		reply(w, metrics.Summary{Requests: 2, Successes: 1, Failures: 1, AvgAPICallMs: 40, InputTokens: 30, OutputTokens: 20})
	})
	mux.HandleFunc("GET /api/metrics", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		reply(w, []metrics.RequestMetrics{
			{RequestID: "req_1", Prompt: "hello", RequestTimestamp: now, APICallDuration: 40 * time.Millisecond, TotalProcessingDuration: 55 * time.Millisecond, InputTokens: 30, OutputTokens: 20, Success: true},
			{RequestID: "req_2", Prompt: "boom", RequestTimestamp: now.Add(time.Second), ErrorMessage: "backend down"},
		})
	})
	mux.HandleFunc("POST /api/metrics/clear", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		reply(w, map[string]int{"cleared": 2})
	})
	mux.HandleFunc("GET /api/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"report not found"}`))
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSentimentCommand(t *testing.T) {
	s := newAPIStub(t)

	out, _, err := runCLI(t, "--server", s.URL, "--token", "tok", "sentiment", "great", "demo", "--source", "slack")
	if err != nil {
		t.Fatalf("sentiment: %v", err)
	}
	for _, want := range []string{"POSITIVE", "0.80", "joy", "upbeat"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if len(s.auth) != 1 || s.auth[0] != "Bearer tok" {
		t.Errorf("auth = %v, want [Bearer tok]", s.auth)
	}

	var sent analysis.SentimentRequest
	if err := json.Unmarshal(s.body, &sent); err != nil {
		t.Fatal(err)
	}
	if sent.Text != "great demo" || sent.Source != "slack" {
		t.Errorf("request = %+v", sent)
	}
}

func TestSentimentCommand_ErrorResult(t *testing.T) {
	s := newAPIStub(t)

	out, _, err := runCLI(t, "--server", s.URL, "sentiment", "please fail")
	if err == nil || !strings.Contains(err.Error(), "Failed to parse") {
		t.Errorf("err = %v, want analysis failure", err)
	}
	if !strings.Contains(out, "ERROR") {
		t.Errorf("output = %q, want ERROR row", out)
	}
}

func TestSentimentCommand_JSON(t *testing.T) {
	s := newAPIStub(t)

	out, _, err := runCLI(t, "--server", s.URL, "--json", "sentiment", "great")
	if err != nil {
		t.Fatalf("sentiment: %v", err)
	}
	var got analysis.SentimentResult
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.Sentiment != analysis.SentimentPositive || got.OriginalText != "great" {
		t.Errorf("result = %+v", got)
	}
}

func TestChatCommand(t *testing.T) {
	s := newAPIStub(t)
	file := writeTempFile(t, "chat.json", `{"messages":[{"role":"user","content":"Where is my invoice?"},{"role":"assistant","content":"ok"}]}`)

	out, _, err := runCLI(t, "--server", s.URL, "chat", "-f", file)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	for _, want := range []string{"Customer asked about an invoice.", "NEUTRAL", "billing", "send invoice", "NEGATIVE", "Where is my invoice?"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if len(s.paths) != 1 || s.paths[0] != "/api/chat-analysis" {
		t.Errorf("paths = %v", s.paths)
	}
}

func TestChatCommand_MissingFile(t *testing.T) {
	_, _, err := runCLI(t, "chat")
	if err == nil {
		t.Fatal("expected error without --file")
	}
}

func TestReportCommand(t *testing.T) {
	s := newAPIStub(t)
	file := writeTempFile(t, "event.json", `{"title":"Hackathon","eventName":"Hackathon"}`)

	out, _, err := runCLI(t, "--server", s.URL, "report", "--file", file, "--type", "post-event")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	for _, want := range []string{"Hackathon [post_event] rpt-1", "It went well.", "High turnout", "## Attendance", "### Returning"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if string(bytes.TrimSpace(s.body)) != `{"title":"Hackathon","eventName":"Hackathon"}` {
		t.Errorf("body = %s, want file contents", s.body)
	}
}

func TestReportCommand_Errors(t *testing.T) {
	s := newAPIStub(t)

	tests := []struct {
		name    string
		content string
		typ     string
		want    string
	}{
		{"invalid json", `{"title":`, "post_event", "invalid JSON"},
		{"unknown type", `{}`, "quarterly", `unknown report type "quarterly"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := writeTempFile(t, "r.json", tt.content)
			_, _, err := runCLI(t, "--server", s.URL, "report", "-f", file, "-t", tt.typ)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
	if len(s.paths) != 0 {
		t.Errorf("server was called: %v", s.paths)
	}
}

func TestMetricsCommand(t *testing.T) {
	s := newAPIStub(t)

	out, _, err := runCLI(t, "--server", s.URL, "metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	for _, want := range []string{"req_1", "req_2", "error: backend down", "55", "30/20", "Requests", "Failures"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMetricsCommand_Summary(t *testing.T) {
	s := newAPIStub(t)

	out, _, err := runCLI(t, "--server", s.URL, "metrics", "--summary")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if strings.Contains(out, "req_1") {
		t.Errorf("--summary printed request rows:\n%s", out)
	}
	if len(s.paths) != 1 || s.paths[0] != "/api/metrics/summary" {
		t.Errorf("paths = %v", s.paths)
	}
}

func TestMetricsCommand_Clear(t *testing.T) {
	s := newAPIStub(t)

	out, _, err := runCLI(t, "--server", s.URL, "metrics", "--clear")
	if err != nil {
		t.Fatalf("metrics --clear: %v", err)
	}
	if strings.TrimSpace(out) != "Cleared 2 entries" {
		t.Errorf("output = %q", out)
	}
}

func TestAPIClient_ErrorBody(t *testing.T) {
	s := newAPIStub(t)

	err := newAPIClient(s.URL, "").get(t.Context(), "/api/missing", nil)
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *apiError", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Message != "report not found" {
		t.Errorf("apiError = %+v", apiErr)
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	out, stderr, err := runCLI(t, "token", "--subject", "dashboard", "--secret", "s3cret", "--ttl", "1h")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if !strings.HasPrefix(stderr, "expires ") {
		t.Errorf("stderr = %q, want expiry line", stderr)
	}

	claims := &httpapi.Claims{}
	_, err = jwt.ParseWithClaims(strings.TrimSpace(out), claims, func(*jwt.Token) (any, error) {
		return []byte("s3cret"), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != "dashboard" {
		t.Errorf("subject = %q, want dashboard", claims.Subject)
	}
	if left := time.Until(claims.ExpiresAt.Time); left <= 50*time.Minute || left > time.Hour {
		t.Errorf("expires in %v, want about 1h", left)
	}
}

func TestTokenCommand_NoSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, _, err := runCLI(t, "token", "--subject", "dashboard")
	if err == nil || !strings.Contains(err.Error(), "no signing secret") {
		t.Errorf("err = %v, want missing secret error", err)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]column{{header: "Name"}, {header: "Count", align: alignRight}}, [][]string{
		{"alpha", "1"},
		{"beta"},
	})
	for _, want := range []string{"Name", "Count", "alpha", "beta", "╭"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil) != "" {
		t.Error("renderTable(nil) should be empty")
	}
}
