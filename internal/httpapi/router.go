package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/intellibus/insights/internal/analysis"
	"github.com/intellibus/insights/internal/llm"
	"github.com/intellibus/insights/internal/metrics"
	"github.com/intellibus/insights/internal/report"
	"github.com/intellibus/insights/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 4 << 20

type RouterConfig struct {
	// JWT Authentication. An empty secret leaves /api open.
	JWTSecret string

	// Sentiment batches where more than half the entries fail raise an alert.
	AlertOnDegradedBatch bool
}

// Gateway is the raw model passthrough used by /api/chat.
type Gateway interface {
	llm.Generator
	Model() string
}

// BatchAlerter is notified when most of a sentiment batch failed.
type BatchAlerter interface {
	NotifyBatchDegraded(ctx context.Context, total, failed int)
}

// Services bundles the components the handlers call into.
type Services struct {
	Gateway   Gateway
	Metrics   *metrics.Store
	Sentiment *analysis.SentimentAnalyzer
	Chat      *analysis.ChatAnalyzer
	Reports   *report.Generator
	Archive   *store.Store
	Alerts    BatchAlerter
}

type Router struct {
	cfg      RouterConfig
	logger   *logrus.Logger
	svc      Services
	registry *Registry
	validate *validator.Validate
	started  time.Time
	mux      *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *logrus.Logger, svc Services, registry *Registry) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if registry == nil {
		registry = NewRegistry()
	}

	r := &Router{
		cfg:      cfg,
		logger:   logger,
		svc:      svc,
		registry: registry,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		started:  time.Now(),
		mux:      http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	// Health checks (public)
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)
	r.mux.HandleFunc("GET /readyz", r.handleReadyz)
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.HandleFunc("GET /health/details", r.handleHealthDetails)
	for _, name := range controllers {
		r.mux.HandleFunc("GET /api/"+name+"/health", r.handleControllerHealth(name))
	}

	// Raw model passthrough
	r.mux.HandleFunc("POST /api/chat", r.withAuth(r.handleChat))
	r.mux.HandleFunc("POST /api/chat/async", r.withAuth(r.handleChatAsync))

	// Sentiment
	r.mux.HandleFunc("POST /api/sentiment/analyze", r.withAuth(r.handleSentiment))
	r.mux.HandleFunc("POST /api/sentiment/analyze/async", r.withAuth(r.handleSentimentAsync))
	r.mux.HandleFunc("POST /api/sentiment/analyze/batch", r.withAuth(r.handleSentimentBatch))

	// Conversation analysis
	r.mux.HandleFunc("POST /api/chat-analysis", r.withAuth(r.handleChatAnalysis))
	r.mux.HandleFunc("POST /api/chat-analysis/async", r.withAuth(r.handleChatAnalysisAsync))

	// Reports
	r.mux.HandleFunc("POST /api/reports", r.withAuth(r.handleReport("")))
	r.mux.HandleFunc("POST /api/reports/async", r.withAuth(r.handleReportAsync("")))
	for path, reportType := range reportRoutes {
		r.mux.HandleFunc("POST /api/reports/"+path, r.withAuth(r.handleReport(reportType)))
		r.mux.HandleFunc("POST /api/reports/"+path+"/async", r.withAuth(r.handleReportAsync(reportType)))
	}
	r.mux.HandleFunc("GET /api/reports", r.withAuth(r.handleListReports))
	r.mux.HandleFunc("GET /api/reports/{reportId}", r.withAuth(r.handleGetReport))
	r.mux.HandleFunc("GET /api/events/{subjectId}", r.withAuth(r.handleListEvents))

	// Metrics
	r.mux.HandleFunc("GET /api/metrics", r.withAuth(r.handleListMetrics))
	r.mux.HandleFunc("GET /api/metrics/summary", r.withAuth(r.handleMetricsSummary))
	r.mux.HandleFunc("GET /api/metrics/{requestId}", r.withAuth(r.handleGetMetrics))
	r.mux.HandleFunc("POST /api/metrics/clear", r.withAuth(r.handleClearMetrics))

	// Streaming jobs
	r.mux.HandleFunc("GET /api/ws", r.withAuth(r.handleAnalysisWS))
}

// writeJSON encodes v before writing the header, so a value that cannot be
// encoded yields a 500 with an error body rather than an empty response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody reads a JSON body into v and validates it.
// On failure it writes a 400 and returns false.
func (r *Router) decodeBody(w http.ResponseWriter, req *http.Request, v any) bool {
	body, ok := readBody(w, req)
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return r.validateBody(w, v)
}

func (r *Router) validateBody(w http.ResponseWriter, v any) bool {
	if err := r.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func readBody(w http.ResponseWriter, req *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return body, true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request: " + err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// track registers in-flight work. It writes a 503 and returns false while draining.
func (r *Router) track(w http.ResponseWriter) bool {
	if !r.registry.Add() {
		writeError(w, http.StatusServiceUnavailable, "server is shutting down")
		return false
	}
	return true
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func nowUTC() time.Time { return time.Now().UTC() }

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
