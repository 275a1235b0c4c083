// Package report generates multi-section reports from structured request data.
package report

import (
	"encoding/json"
	"strings"
	"time"
)

// Report type labels for the built-in variants.
const (
	TypeEngagementMetrics = "engagement_metrics"
	TypePostEvent         = "post_event"
	TypeDailyMonitoring   = "daily_monitoring"

	// typeGeneric labels a generic request that did not name a type.
	typeGeneric = "generic"
)

// Request is a report request. Details holds the variant-specific fields;
// nil selects the generic report path.
type Request struct {
	ReportType string           `json:"reportType"`
	Title      string           `json:"title" validate:"required"`
	StartDate  string           `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate    string           `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Data       []map[string]any `json:"data,omitempty"`
	Context    string           `json:"context,omitempty"`
	Tags       []string         `json:"tags,omitempty"`
	Details    Details          `json:"-"`
}

// Details is implemented by the closed set of report variants.
type Details interface {
	reportType() string
}

// EngagementMetrics holds the fields of an engagement metrics report.
type EngagementMetrics struct {
	MetricsToInclude         []string            `json:"metricsToInclude,omitempty"`
	BreakdownCategories      map[string][]string `json:"breakdownCategories,omitempty"`
	Audience                 string              `json:"audience,omitempty"`
	Channels                 []string            `json:"channels,omitempty"`
	IncludeSentimentAnalysis bool                `json:"includeSentimentAnalysis,omitempty"`
}

// PostEvent holds the fields of a post-event report.
type PostEvent struct {
	EventType              string         `json:"eventType,omitempty"`
	Location               string         `json:"location,omitempty"`
	EventDateTime          string         `json:"eventDateTime,omitempty"`
	ParticipantCount       int            `json:"participantCount,omitempty"`
	Sponsors               []string       `json:"sponsors,omitempty"`
	Activities             []string       `json:"activities,omitempty"`
	ParticipantFeedback    []string       `json:"participantFeedback,omitempty"`
	KPIs                   map[string]any `json:"kpis,omitempty"`
	IncludeRecommendations bool           `json:"includeRecommendations,omitempty"`
}

// DailyMonitoring holds the fields of a daily monitoring report.
type DailyMonitoring struct {
	MetricsToTrack        []string       `json:"metricsToTrack,omitempty"`
	CurrentMetrics        map[string]any `json:"currentMetrics,omitempty"`
	PreviousPeriodMetrics map[string]any `json:"previousPeriodMetrics,omitempty"`
	TargetMetrics         map[string]any `json:"targetMetrics,omitempty"`
	NotableEvents         []string       `json:"notableEvents,omitempty"`
	TimeInterval          string         `json:"timeInterval,omitempty"`
	HighlightTrends       bool           `json:"highlightTrends,omitempty"`
	IncludeAlerts         bool           `json:"includeAlerts,omitempty"`
	AlertThresholds       map[string]any `json:"alertThresholds,omitempty"`
}

func (*EngagementMetrics) reportType() string { return TypeEngagementMetrics }
func (*PostEvent) reportType() string         { return TypePostEvent }
func (*DailyMonitoring) reportType() string   { return TypeDailyMonitoring }

// Label returns the report type recorded in the response.
func (r Request) Label() string {
	if r.Details != nil {
		return r.Details.reportType()
	}
	if r.ReportType == "" {
		return typeGeneric
	}
	return r.ReportType
}

// NormalizeType maps spellings such as "Post-Event" onto the built-in labels.
// Unknown types are returned trimmed but otherwise unchanged.
func NormalizeType(reportType string) string {
	t := strings.ToLower(strings.TrimSpace(reportType))
	t = strings.NewReplacer("-", "_", " ", "_").Replace(t)
	switch t {
	case TypeEngagementMetrics, TypePostEvent, TypeDailyMonitoring:
		return t
	}
	return strings.TrimSpace(reportType)
}

func detailsFor(reportType string) Details {
	switch NormalizeType(reportType) {
	case TypeEngagementMetrics:
		return &EngagementMetrics{}
	case TypePostEvent:
		return &PostEvent{}
	case TypeDailyMonitoring:
		return &DailyMonitoring{}
	}
	return nil
}

// UnmarshalJSON decodes the base fields and selects the variant from reportType,
// so the tag and the shape of a decoded Request always agree.
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Request(p)

	d := detailsFor(r.ReportType)
	if d == nil {
		return nil
	}
	if err := json.Unmarshal(data, d); err != nil {
		return err
	}
	r.ReportType = d.reportType()
	r.Details = d
	return nil
}

// MarshalJSON flattens the variant fields next to the base fields.
func (r Request) MarshalJSON() ([]byte, error) {
	type plain Request
	p := plain(r)
	p.ReportType = r.Label()
	base, err := json.Marshal(p)
	if err != nil || r.Details == nil {
		return base, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	extra, err := json.Marshal(r.Details)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(extra, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// DecodeAs decodes data as a request of the given report type, ignoring any
// reportType in the payload. An empty or unknown reportType decodes a generic request.
func DecodeAs(data []byte, reportType string) (Request, error) {
	type plain Request
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return Request{}, err
	}
	r := Request(p)
	r.ReportType = reportType

	if d := detailsFor(reportType); d != nil {
		if err := json.Unmarshal(data, d); err != nil {
			return Request{}, err
		}
		r.ReportType = d.reportType()
		r.Details = d
	}
	return r, nil
}

// Section is a titled block of report content. Subsections nest recursively.
type Section struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Subsections []Section `json:"subsections,omitempty"`
}

// VisualElement describes a chart or graph the report should include.
type VisualElement struct {
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
}

// Response is a generated report.
type Response struct {
	ReportID         string          `json:"reportId"`
	ReportType       string          `json:"reportType"`
	Title            string          `json:"title"`
	GeneratedAt      time.Time       `json:"generatedAt"`
	ExecutiveSummary string          `json:"executive_summary"`
	KeyFindings      []string        `json:"key_findings"`
	Sections         []Section       `json:"sections"`
	Recommendations  []string        `json:"recommendations"`
	MetricsData      map[string]any  `json:"metrics_data"`
	VisualElements   []VisualElement `json:"visual_elements"`
	ProcessingTimeMs int64           `json:"processingTimeMs"`
}

// Failed reports whether the response is an error report.
func (r Response) Failed() bool {
	return strings.HasPrefix(r.ExecutiveSummary, errorSummaryPrefix)
}
