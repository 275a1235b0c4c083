package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/intellibus/insights/internal/app"
)

const defaultServer = "http://localhost:8080"

// commandContext holds the persistent flags shared by every subcommand.
type commandContext struct {
	server   string
	token    string
	jsonMode bool
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "intellibus",
		Short:         "Sentiment, conversation and report analysis client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.LoadDotEnv()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.server, "server", envOr("INSIGHTS_SERVER", defaultServer), "Base URL of the analysis server")
	rootCmd.PersistentFlags().StringVar(&ctx.token, "token", os.Getenv("INSIGHTS_TOKEN"), "Bearer token for the API")
	rootCmd.PersistentFlags().BoolVar(&ctx.jsonMode, "json", false, "Print raw JSON responses")

	rootCmd.AddCommand(newSentimentCommand(ctx))
	rootCmd.AddCommand(newChatCommand(ctx))
	rootCmd.AddCommand(newReportCommand(ctx))
	rootCmd.AddCommand(newMetricsCommand(ctx))
	rootCmd.AddCommand(newTokenCommand())

	return rootCmd
}

func (c *commandContext) client() *apiClient {
	return newAPIClient(c.server, c.token)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
