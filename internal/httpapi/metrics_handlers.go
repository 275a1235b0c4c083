package httpapi

import (
	"net/http"

	"github.com/intellibus/insights/internal/metrics"
)

func (r *Router) handleListMetrics(w http.ResponseWriter, req *http.Request) {
	entries := r.svc.Metrics.List()
	if req.URL.Query().Get("sorted") == "true" {
		writeJSON(w, http.StatusOK, metrics.Sorted(entries))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (r *Router) handleMetricsSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, metrics.Summarize(r.svc.Metrics.List()))
}

func (r *Router) handleGetMetrics(w http.ResponseWriter, req *http.Request) {
	m, ok := r.svc.Metrics.Get(req.PathValue("requestId"))
	if !ok {
		writeError(w, http.StatusNotFound, "metrics not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (r *Router) handleClearMetrics(w http.ResponseWriter, req *http.Request) {
	n := r.svc.Metrics.Len()
	r.svc.Metrics.Clear()
	r.requestLog(req).WithField("cleared", n).Info("metrics cleared")
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}
