package httpapi

import (
	"net/http"
	"time"
)

// controllers are the API prefixes with their own health check.
var controllers = []string{"chat", "sentiment", "chat-analysis", "reports"}

// HealthResponse is returned by the per-controller health checks.
type HealthResponse struct {
	Status     string    `json:"status"`
	Controller string    `json:"controller"`
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message"`
}

type serviceStatus struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}

type componentHealth struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details"`
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz fails while draining so load balancers stop routing new work here.
func (r *Router) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if r.registry.IsDraining() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("draining"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status, message := r.overallStatus()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"timestamp": nowUTC(),
		"services": []serviceStatus{
			{Service: "gateway", Status: status},
			{Service: "sentiment", Status: status},
			{Service: "chat-analysis", Status: status},
			{Service: "reports", Status: status},
		},
		"message": message,
	})
}

func (r *Router) handleHealthDetails(w http.ResponseWriter, _ *http.Request) {
	status, message := r.overallStatus()

	model := ""
	if r.svc.Gateway != nil {
		model = r.svc.Gateway.Model()
	}
	requests := 0
	if r.svc.Metrics != nil {
		requests = r.svc.Metrics.Len()
	}
	archive := "DISABLED"
	if r.svc.Archive.Enabled() {
		archive = "UP"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        status,
		"timestamp":     nowUTC(),
		"uptimeSeconds": int64(time.Since(r.started).Seconds()),
		"components": map[string]componentHealth{
			"gateway": {Status: status, Details: map[string]any{
				"model":        model,
				"requestCount": requests,
			}},
			"sentiment":    {Status: status, Details: map[string]any{"service": "Sentiment Analysis"}},
			"chatAnalysis": {Status: status, Details: map[string]any{"service": "Chat Analysis"}},
			"reports":      {Status: status, Details: map[string]any{"service": "Report Generation"}},
			"archive":      {Status: archive, Details: map[string]any{"service": "Report Archive"}},
			"registry": {Status: status, Details: map[string]any{
				"inFlight": r.registry.ActiveCount(),
				"draining": r.registry.IsDraining(),
			}},
		},
		"message": message,
	})
}

func (r *Router) handleControllerHealth(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:     "UP",
			Controller: name,
			Timestamp:  nowUTC(),
			Message:    name + " is operational",
		})
	}
}

func (r *Router) overallStatus() (string, string) {
	if r.registry.IsDraining() {
		return "DRAINING", "Server is shutting down"
	}
	return "UP", "All services are operational"
}
