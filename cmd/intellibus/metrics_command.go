package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/intellibus/insights/internal/llm"
	"github.com/intellibus/insights/internal/metrics"
)

func newMetricsCommand(ctx *commandContext) *cobra.Command {
	var summaryOnly, clear bool

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show model call metrics recorded by the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()

			if clear {
				var res map[string]int
				if err := client.post(cmd.Context(), "/api/metrics/clear", nil, &res); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d entries\n", res["cleared"])
				return nil
			}

			var summary metrics.Summary
			if err := client.get(cmd.Context(), "/api/metrics/summary", &summary); err != nil {
				return err
			}

			var entries []metrics.RequestMetrics
			if !summaryOnly {
				if err := client.get(cmd.Context(), "/api/metrics?sorted=true", &entries); err != nil {
					return err
				}
			}

			if ctx.jsonMode {
				return writeJSON(cmd, map[string]any{"summary": summary, "requests": entries})
			}

			out := cmd.OutOrStdout()
			if !summaryOnly {
				fmt.Fprintln(out, renderMetrics(entries))
			}
			fmt.Fprintln(out, renderSummary(summary))
			return nil
		},
	}

	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "Only print the aggregate summary")
	cmd.Flags().BoolVar(&clear, "clear", false, "Clear the server's metrics")
	return cmd
}

func renderMetrics(entries []metrics.RequestMetrics) string {
	cols := []column{
		{header: "Request ID"},
		{header: "Time"},
		{header: "Status"},
		{header: "API ms", align: alignRight},
		{header: "Total ms", align: alignRight},
		{header: "Tokens in/out", align: alignRight},
		{header: "Prompt", wide: true},
	}
	rows := make([][]string, 0, len(entries))
	for _, m := range entries {
		status := "ok"
		if !m.Success {
			status = "error: " + llm.Snippet(m.ErrorMessage, 40)
		}
		rows = append(rows, []string{
			m.RequestID,
			m.RequestTimestamp.Local().Format("15:04:05"),
			status,
			strconv.FormatInt(m.APICallDuration.Milliseconds(), 10),
			strconv.FormatInt(m.TotalProcessingDuration.Milliseconds(), 10),
			fmt.Sprintf("%d/%d", m.InputTokens, m.OutputTokens),
			llm.Snippet(m.Prompt, 80),
		})
	}
	return renderTable(cols, rows)
}

func renderSummary(s metrics.Summary) string {
	cols := []column{{header: "Metric"}, {header: "Value", align: alignRight}}
	rows := [][]string{
		{"Requests", strconv.Itoa(s.Requests)},
		{"Successes", strconv.Itoa(s.Successes)},
		{"Failures", strconv.Itoa(s.Failures)},
		{"Avg API ms", strconv.FormatFloat(s.AvgAPICallMs, 'f', 1, 64)},
		{"Avg total ms", strconv.FormatFloat(s.AvgTotalMs, 'f', 1, 64)},
		{"Input tokens", strconv.FormatInt(s.InputTokens, 10)},
		{"Output tokens", strconv.FormatInt(s.OutputTokens, 10)},
		{"Est. cost (cents)", strconv.FormatFloat(s.EstimatedCostCents, 'f', 3, 64)},
	}
	return renderTable(cols, rows)
}
