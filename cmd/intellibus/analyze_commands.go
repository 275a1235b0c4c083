package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/intellibus/insights/internal/analysis"
	"github.com/intellibus/insights/internal/report"
)

// reportPaths maps --type values to the typed report endpoints.
var reportPaths = map[string]string{
	report.TypeEngagementMetrics: "/api/reports/engagement-metrics",
	report.TypePostEvent:         "/api/reports/post-event",
	report.TypeDailyMonitoring:   "/api/reports/daily-monitoring",
}

func newSentimentCommand(ctx *commandContext) *cobra.Command {
	var contextText, source string

	cmd := &cobra.Command{
		Use:   "sentiment <text>",
		Short: "Analyze the sentiment of a text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := analysis.SentimentRequest{
				Text:    strings.Join(args, " "),
				Context: contextText,
				Source:  source,
			}
			var res analysis.SentimentResult
			if err := ctx.client().post(cmd.Context(), "/api/sentiment/analyze", req, &res); err != nil {
				return err
			}
			if ctx.jsonMode {
				return writeJSON(cmd, res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSentiment([]analysis.SentimentResult{res}))
			if res.IsError() {
				return errors.New(res.Insights)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&contextText, "context", "", "Additional context for the analysis")
	cmd.Flags().StringVar(&source, "source", "", "Where the text came from")
	return cmd
}

func renderSentiment(results []analysis.SentimentResult) string {
	cols := []column{
		{header: "Sentiment"},
		{header: "Score", align: alignRight},
		{header: "Confidence", align: alignRight},
		{header: "Emotions"},
		{header: "Insights", wide: true},
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Sentiment,
			strconv.FormatFloat(r.Score, 'f', 2, 64),
			strconv.FormatFloat(r.Confidence, 'f', 2, 64),
			strings.Join(r.DominantEmotions, ", "),
			r.Insights,
		})
	}
	return renderTable(cols, rows)
}

func newChatCommand(ctx *commandContext) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Analyze a conversation read from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req analysis.ChatRequest
			if err := readJSONFile(file, &req); err != nil {
				return err
			}
			var res analysis.ChatResult
			if err := ctx.client().post(cmd.Context(), "/api/chat-analysis", req, &res); err != nil {
				return err
			}
			if ctx.jsonMode {
				return writeJSON(cmd, res)
			}
			printChat(cmd, req, res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Conversation JSON file ({\"messages\": [...]})")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printChat(cmd *cobra.Command, req analysis.ChatRequest, res analysis.ChatResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Summary: %s\n", res.ConversationSummary)
	if res.OverallSentiment != nil {
		fmt.Fprintf(out, "Overall: %s (%.2f)\n", res.OverallSentiment.Sentiment, res.OverallSentiment.Score)
	}
	fmt.Fprintf(out, "Topics: %s\n", strings.Join(res.MainTopics, ", "))
	if len(res.ActionItems) > 0 {
		fmt.Fprintf(out, "Action items: %s\n", strings.Join(res.ActionItems, "; "))
	}

	cols := []column{
		{header: "#", align: alignRight},
		{header: "Role"},
		{header: "Sentiment"},
		{header: "Question"},
		{header: "Content", wide: true},
	}
	rows := make([][]string, 0, len(req.Messages))
	for i, m := range req.Messages {
		sentiment, question := "-", ""
		if a, ok := res.MessageAnalytics[i]; ok {
			sentiment = a.Sentiment.Sentiment
			if a.ContainsQuestion {
				question = "yes"
			}
		}
		rows = append(rows, []string{strconv.Itoa(i), m.Role, sentiment, question, m.Content})
	}
	fmt.Fprintln(out, renderTable(cols, rows))
}

func newReportCommand(ctx *commandContext) *cobra.Command {
	var file, reportType string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a report from a JSON request file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			if !json.Valid(data) {
				return fmt.Errorf("%s: invalid JSON", file)
			}

			path := "/api/reports"
			if reportType != "" {
				p, ok := reportPaths[report.NormalizeType(reportType)]
				if !ok {
					return fmt.Errorf("unknown report type %q", reportType)
				}
				path = p
			}

			var res report.Response
			if err := ctx.client().post(cmd.Context(), path, json.RawMessage(data), &res); err != nil {
				return err
			}
			if ctx.jsonMode {
				return writeJSON(cmd, res)
			}
			printReport(cmd, res)
			if res.Failed() {
				return errors.New(res.ExecutiveSummary)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Report request JSON file")
	cmd.Flags().StringVarP(&reportType, "type", "t", "", "Report type (engagement_metrics, post_event, daily_monitoring); default reads reportType from the file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printReport(cmd *cobra.Command, r report.Response) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s [%s] %s\n\n", r.Title, r.ReportType, r.ReportID)
	fmt.Fprintf(out, "%s\n", r.ExecutiveSummary)
	if len(r.KeyFindings) > 0 {
		fmt.Fprintln(out, "\nKey findings:")
		for _, f := range r.KeyFindings {
			fmt.Fprintf(out, "  - %s\n", f)
		}
	}
	for _, s := range r.Sections {
		printSection(cmd, s, 1)
	}
	if len(r.Recommendations) > 0 {
		fmt.Fprintln(out, "\nRecommendations:")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(out, "  - %s\n", rec)
		}
	}
}

func printSection(cmd *cobra.Command, s report.Section, depth int) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s %s\n%s\n", strings.Repeat("#", depth+1), s.Title, s.Content)
	for _, sub := range s.Subsections {
		printSection(cmd, sub, depth+1)
	}
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
