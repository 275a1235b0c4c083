package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/intellibus/insights/internal/report"
	"github.com/intellibus/insights/internal/store"
)

// reportRoutes maps the typed report paths to their report type.
var reportRoutes = map[string]string{
	"engagement-metrics": report.TypeEngagementMetrics,
	"post-event":         report.TypePostEvent,
	"daily-monitoring":   report.TypeDailyMonitoring,
}

// decodeReport reads a report request. An empty reportType takes the variant
// from the body's reportType field.
func (r *Router) decodeReport(w http.ResponseWriter, req *http.Request, reportType string) (report.Request, bool) {
	body, ok := readBody(w, req)
	if !ok {
		return report.Request{}, false
	}

	var rr report.Request
	var err error
	if reportType == "" {
		err = json.Unmarshal(body, &rr)
	} else {
		rr, err = report.DecodeAs(body, reportType)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return report.Request{}, false
	}
	if !r.validateBody(w, rr) {
		return report.Request{}, false
	}
	return rr, true
}

func (r *Router) handleReport(reportType string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		rr, ok := r.decodeReport(w, req, reportType)
		if !ok {
			return
		}
		if !r.track(w) {
			return
		}
		defer r.registry.Done()

		r.requestLog(req).WithField("report_type", rr.Label()).Info("report request")
		writeJSON(w, http.StatusOK, r.svc.Reports.Generate(workContext(req), rr))
	}
}

func (r *Router) handleReportAsync(reportType string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		rr, ok := r.decodeReport(w, req, reportType)
		if !ok {
			return
		}
		if !r.track(w) {
			return
		}
		respond(r, w, req, runTask(r, req, func(ctx context.Context) report.Response {
			return r.svc.Reports.Generate(ctx, rr)
		}))
	}
}

func (r *Router) requireArchive(w http.ResponseWriter) bool {
	if !r.svc.Archive.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "report archive not configured")
		return false
	}
	return true
}

func (r *Router) handleListReports(w http.ResponseWriter, req *http.Request) {
	if !r.requireArchive(w) {
		return
	}
	reports, err := r.svc.Archive.ListReports(req.Context(), queryLimit(req))
	if err != nil {
		r.requestLog(req).WithError(err).Error("list reports failed")
		captureError(req, err, "list reports failed")
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (r *Router) handleGetReport(w http.ResponseWriter, req *http.Request) {
	if !r.requireArchive(w) {
		return
	}
	id := req.PathValue("reportId")
	rep, err := r.svc.Archive.GetReport(req.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		r.requestLog(req).WithError(err).WithField("report_id", id).Error("get report failed")
		captureError(req, err, "get report failed")
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (r *Router) handleListEvents(w http.ResponseWriter, req *http.Request) {
	if !r.requireArchive(w) {
		return
	}
	subjectID := req.PathValue("subjectId")
	events, err := r.svc.Archive.ListEvents(req.Context(), subjectID, queryLimit(req))
	if err != nil {
		r.requestLog(req).WithError(err).WithField("subject_id", subjectID).Error("list events failed")
		captureError(req, err, "list events failed")
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// queryLimit reads ?limit=; zero lets the store pick its default.
func queryLimit(req *http.Request) int {
	n, err := strconv.Atoi(req.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}
