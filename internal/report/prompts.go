package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// JSON field names requested from the model. Shared with Parse.
const (
	fieldExecutiveSummary = "executive_summary"
	fieldKeyFindings      = "key_findings"
	fieldSections         = "sections"
	fieldRecommendations  = "recommendations"
	fieldMetricsData      = "metrics_data"
	fieldVisualElements   = "visual_elements"

	fieldTitle       = "title"
	fieldContent     = "content"
	fieldSubsections = "subsections"
	fieldType        = "type"
	fieldDescription = "description"
	fieldData        = "data"
)

const formatInstruction = "Respond with ONLY a JSON object structured according to the format specified at the end.\n\n"

// schemaHints are the per-variant descriptions in the trailing field list.
type schemaHints struct {
	summary         string
	findings        string
	recommendations string
	metrics         string
}

// BuildPrompt selects the builder for the request's variant.
func BuildPrompt(r Request) string {
	switch d := r.Details.(type) {
	case *EngagementMetrics:
		return BuildEngagementMetricsPrompt(r, *d)
	case *PostEvent:
		return BuildPostEventPrompt(r, *d)
	case *DailyMonitoring:
		return BuildDailyMonitoringPrompt(r, *d)
	default:
		return BuildGenericPrompt(r)
	}
}

// BuildEngagementMetricsPrompt renders the engagement metrics instruction.
func BuildEngagementMetricsPrompt(r Request, d EngagementMetrics) string {
	var b strings.Builder
	b.WriteString("Generate a detailed engagement metrics report with the following specifications. ")
	b.WriteString(formatInstruction)

	b.WriteString("Report Title: " + r.Title + "\n")
	writePeriod(&b, r)
	if d.Audience != "" {
		b.WriteString("Target Audience: " + d.Audience + "\n")
	}

	writeList(&b, "Metrics to include:", d.MetricsToInclude)
	if len(d.BreakdownCategories) > 0 {
		b.WriteString("\nBreakdown categories:\n")
		for _, k := range sortedKeys(d.BreakdownCategories) {
			b.WriteString("- " + k + ": " + strings.Join(d.BreakdownCategories[k], ", ") + "\n")
		}
	}
	if len(d.Channels) > 0 {
		b.WriteString("\nEngagement channels: " + strings.Join(d.Channels, ", ") + "\n")
	}
	if d.IncludeSentimentAnalysis {
		b.WriteString("\nPlease include sentiment analysis of participant feedback.\n")
	}
	if len(r.Data) > 0 {
		b.WriteString("\nRaw data for analysis:\n" + toJSON(r.Data) + "\n")
	}
	writeContext(&b, r)

	writeSchema(&b, schemaHints{
		summary:         "A concise overview of the engagement metrics",
		findings:        "Array of the most important insights from the data",
		recommendations: "Array of actionable recommendations based on the findings",
		metrics:         "Processed metrics data with calculated values",
	})
	return b.String()
}

// BuildPostEventPrompt renders the post-event instruction.
func BuildPostEventPrompt(r Request, d PostEvent) string {
	var b strings.Builder
	b.WriteString("Generate a comprehensive post-event report with the following specifications. ")
	b.WriteString(formatInstruction)

	b.WriteString("Event Title: " + r.Title + "\n")
	if d.EventType != "" {
		b.WriteString("Event Type: " + d.EventType + "\n")
	}
	if d.EventDateTime != "" {
		b.WriteString("Date: " + d.EventDateTime + "\n")
	}
	if d.Location != "" {
		b.WriteString("Location: " + d.Location + "\n")
	}
	if d.ParticipantCount > 0 {
		b.WriteString("Participants: " + strconv.Itoa(d.ParticipantCount) + "\n")
	}

	if len(d.Sponsors) > 0 {
		b.WriteString("\nSponsors: " + strings.Join(d.Sponsors, ", ") + "\n")
	}
	writeList(&b, "Activities/Sessions:", d.Activities)
	if len(d.KPIs) > 0 {
		b.WriteString("\nKey Performance Indicators:\n" + toJSON(d.KPIs) + "\n")
	}
	writeList(&b, "Participant Feedback:", d.ParticipantFeedback)
	if d.IncludeRecommendations {
		b.WriteString("\nPlease include recommendations for future events.\n")
	}
	if len(r.Data) > 0 {
		b.WriteString("\nAdditional data for analysis:\n" + toJSON(r.Data) + "\n")
	}
	writeContext(&b, r)

	writeSchema(&b, schemaHints{
		summary:         "A concise overview of the event's success and outcomes",
		findings:        "Array of the most important insights from the event",
		recommendations: "Array of suggestions for future events",
		metrics:         "Key metrics and their values",
	})
	return b.String()
}

// BuildDailyMonitoringPrompt renders the daily monitoring instruction.
func BuildDailyMonitoringPrompt(r Request, d DailyMonitoring) string {
	var b strings.Builder
	b.WriteString("Generate a daily monitoring report with the following specifications. ")
	b.WriteString(formatInstruction)

	b.WriteString("Report Title: " + r.Title + "\n")
	if r.StartDate != "" {
		b.WriteString("Date: " + r.StartDate + "\n")
	}
	if d.TimeInterval != "" {
		b.WriteString("Time Interval: " + d.TimeInterval + "\n")
	}

	writeList(&b, "Metrics to track:", d.MetricsToTrack)
	if len(d.CurrentMetrics) > 0 {
		b.WriteString("\nCurrent metrics:\n" + toJSON(d.CurrentMetrics) + "\n")
	}
	if len(d.PreviousPeriodMetrics) > 0 {
		b.WriteString("\nPrevious period metrics (for comparison):\n" + toJSON(d.PreviousPeriodMetrics) + "\n")
	}
	if len(d.TargetMetrics) > 0 {
		b.WriteString("\nTarget metrics:\n" + toJSON(d.TargetMetrics) + "\n")
	}
	writeList(&b, "Notable events:", d.NotableEvents)
	if d.HighlightTrends {
		b.WriteString("\nPlease highlight significant trends in the data.\n")
	}
	if d.IncludeAlerts {
		b.WriteString("\nPlease include alerts for metrics outside expected ranges.\n")
		if len(d.AlertThresholds) > 0 {
			b.WriteString("Alert thresholds:\n" + toJSON(d.AlertThresholds) + "\n")
		}
	}
	if len(r.Data) > 0 {
		b.WriteString("\nAdditional data for analysis:\n" + toJSON(r.Data) + "\n")
	}
	writeContext(&b, r)

	writeSchema(&b, schemaHints{
		summary:         "A concise overview of the day's performance",
		findings:        "Array of the most important insights from the data",
		recommendations: "Array of actionable recommendations",
		metrics:         "Key metrics and their values, with comparisons to targets and previous periods",
	})
	return b.String()
}

// BuildGenericPrompt renders the instruction for a free-form report type.
func BuildGenericPrompt(r Request) string {
	var b strings.Builder
	b.WriteString("Generate a " + r.Label() + " report with the following specifications. ")
	b.WriteString(formatInstruction)

	b.WriteString("Report Title: " + r.Title + "\n")
	writePeriod(&b, r)
	if len(r.Tags) > 0 {
		b.WriteString("\nTags: " + strings.Join(r.Tags, ", ") + "\n")
	}
	if len(r.Data) > 0 {
		b.WriteString("\nData for analysis:\n" + toJSON(r.Data) + "\n")
	}
	writeContext(&b, r)

	writeSchema(&b, schemaHints{
		summary:         "A concise overview of the report findings",
		findings:        "Array of the most important insights",
		recommendations: "Array of actionable recommendations",
		metrics:         "Any relevant metrics and their values",
	})
	return b.String()
}

func writePeriod(b *strings.Builder, r Request) {
	if r.StartDate != "" && r.EndDate != "" {
		b.WriteString("Time Period: " + r.StartDate + " to " + r.EndDate + "\n")
	}
}

func writeContext(b *strings.Builder, r Request) {
	if r.Context != "" {
		b.WriteString("\nAdditional context: " + r.Context + "\n")
	}
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n" + heading + "\n")
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
}

func writeSchema(b *strings.Builder, h schemaHints) {
	b.WriteString("\nRespond with ONLY a JSON object with these fields:\n")
	fmt.Fprintf(b, "- %s: %s\n", fieldExecutiveSummary, h.summary)
	fmt.Fprintf(b, "- %s: %s\n", fieldKeyFindings, h.findings)
	fmt.Fprintf(b, "- %s: Array of report sections, each with %s, %s, and optional %s\n", fieldSections, fieldTitle, fieldContent, fieldSubsections)
	fmt.Fprintf(b, "- %s: %s\n", fieldRecommendations, h.recommendations)
	fmt.Fprintf(b, "- %s: %s\n", fieldMetricsData, h.metrics)
	fmt.Fprintf(b, "- %s: Descriptions of charts/graphs that should be included, each with %s, %s, %s, and %s\n",
		fieldVisualElements, fieldType, fieldTitle, fieldDescription, fieldData)
}

// toJSON renders v compactly; map keys come out sorted.
func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
