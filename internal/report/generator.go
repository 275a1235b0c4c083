package report

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/intellibus/insights/internal/eventlog"
	"github.com/intellibus/insights/internal/llm"
)

const errorSummaryPrefix = "Error generating report: "

// Notifier is told about reports that could not be generated.
type Notifier interface {
	NotifyReportFailed(ctx context.Context, reportID, reportType, title, reason string)
}

// Archive stores generated reports.
type Archive interface {
	SaveReport(ctx context.Context, r Response) error
}

// Generator dispatches report requests to the matching prompt and parser.
type Generator struct {
	gen      llm.Generator
	logger   *logrus.Logger
	events   *eventlog.Logger
	notifier Notifier
	archive  Archive
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithEventLog records generated and failed reports.
func WithEventLog(l *eventlog.Logger) Option {
	return func(g *Generator) { g.events = l }
}

// WithNotifier alerts on failed reports.
func WithNotifier(n Notifier) Option {
	return func(g *Generator) { g.notifier = n }
}

// WithArchive persists successful reports.
func WithArchive(a Archive) Option {
	return func(g *Generator) { g.archive = a }
}

// NewGenerator creates a Generator backed by gen.
func NewGenerator(gen llm.Generator, opts ...Option) *Generator {
	g := &Generator{gen: gen, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logrus.New()
		g.logger.SetOutput(io.Discard)
	}
	return g
}

// Generate produces a report for r. It never fails: errors yield an error report.
func (g *Generator) Generate(ctx context.Context, r Request) Response {
	start := time.Now()
	reportID := uuid.NewString()
	label := r.Label()
	log := g.logger.WithFields(logrus.Fields{
		"component":   "report",
		"report_id":   reportID,
		"report_type": label,
	})
	log.WithField("title", r.Title).Info("generating report")

	c := g.gen.Generate(ctx, BuildPrompt(r))

	var resp Response
	var err error
	if c.OK {
		resp, err = Parse(llm.ExtractJSON(c.Text))
	} else {
		err = errors.New(c.Text)
	}
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"request_id": c.RequestID,
			"response":   llm.Snippet(c.Text, 200),
		}).Warn("report generation failed")
		g.events.LogAsync(reportID, eventlog.EventReportFailed, map[string]any{
			"report_type": label,
			"request_id":  c.RequestID,
			"error":       err.Error(),
		})
		if g.notifier != nil {
			g.notifier.NotifyReportFailed(ctx, reportID, label, r.Title, err.Error())
		}
		return g.errorReport(reportID, label, r.Title, err, start)
	}

	resp.ReportID = reportID
	resp.ReportType = label
	resp.Title = r.Title
	resp.GeneratedAt = g.now().UTC()
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()

	if g.archive != nil {
		if err := g.archive.SaveReport(ctx, resp); err != nil {
			log.WithError(err).Warn("failed to archive report")
		}
	}

	log.WithFields(logrus.Fields{
		"request_id": c.RequestID,
		"sections":   len(resp.Sections),
		"duration":   resp.ProcessingTimeMs,
	}).Info("report generated")
	g.events.LogAsync(reportID, eventlog.EventReportGenerated, map[string]any{
		"report_type":   label,
		"request_id":    c.RequestID,
		"sections":      len(resp.Sections),
		"processing_ms": resp.ProcessingTimeMs,
	})

	return resp
}

func (g *Generator) errorReport(reportID, reportType, title string, err error, start time.Time) Response {
	return Response{
		ReportID:         reportID,
		ReportType:       reportType,
		Title:            title,
		GeneratedAt:      g.now().UTC(),
		ExecutiveSummary: errorSummaryPrefix + err.Error(),
		KeyFindings:      []string{"An error occurred during report generation."},
		Sections: []Section{{
			Title:   "Error Details",
			Content: "The report generation process encountered an error: " + err.Error(),
		}},
		Recommendations:  []string{},
		MetricsData:      map[string]any{},
		VisualElements:   []VisualElement{},
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
}
