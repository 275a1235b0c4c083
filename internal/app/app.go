package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/intellibus/insights/internal/analysis"
	"github.com/intellibus/insights/internal/eventlog"
	"github.com/intellibus/insights/internal/httpapi"
	"github.com/intellibus/insights/internal/jobs"
	"github.com/intellibus/insights/internal/llm"
	"github.com/intellibus/insights/internal/metrics"
	"github.com/intellibus/insights/internal/notifications"
	"github.com/intellibus/insights/internal/report"
	"github.com/intellibus/insights/internal/store"
)

type App struct {
	cfg       Config
	logger    *logrus.Logger
	db        *pgxpool.Pool
	store     *store.Store
	eventLog  *eventlog.Logger
	discord   *notifications.Discord
	retention *jobs.RetentionJob

	metrics   *metrics.Store
	gateway   *llm.AnthropicClient
	sentiment *analysis.SentimentAnalyzer
	chat      *analysis.ChatAnalyzer
	reports   *report.Generator
}

// New wires the service. The database is optional: without DATABASE_URL the
// event log and report archive are disabled.
func New(cfg Config, logger *logrus.Logger) (*App, error) {
	a := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewStore(),
		discord: notifications.NewDiscord(cfg.DiscordWebhookURL, logger),
	}

	if cfg.DatabaseURL != "" {
		db, err := connectDB(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.db = db
	} else {
		logger.Warn("DATABASE_URL not set, event log and report archive disabled")
	}
	a.store = store.New(a.db)
	a.eventLog = eventlog.New(a.db)

	if cfg.MigrateOnStart && a.store.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.store.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	if a.store.Enabled() {
		a.retention = jobs.NewRetentionJob(a.store, logger, cfg.ArchiveRetention, cfg.ArchivePruneInterval)
		a.retention.Start()
	}

	if cfg.AnthropicAPIKey == "" {
		logger.Warn("ANTHROPIC_API_KEY not set, model calls will fail")
	}

	// Shared HTTP client with connection pooling for the model backend.
	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   cfg.AnalysisConcurrency * 2,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	a.gateway = llm.NewAnthropicClient(llm.AnthropicConfig{
		APIKey:      cfg.AnthropicAPIKey,
		BaseURL:     cfg.AnthropicBaseURL,
		Model:       cfg.AnthropicModel,
		MaxTokens:   int64(cfg.LLMMaxTokens),
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout,
		HTTPClient:  httpClient,
	}, a.metrics, logger)

	opts := []analysis.Option{
		analysis.WithLogger(logger),
		analysis.WithEventLog(a.eventLog),
		analysis.WithConcurrency(cfg.AnalysisConcurrency),
	}
	a.sentiment = analysis.NewSentimentAnalyzer(a.gateway, opts...)
	a.chat = analysis.NewChatAnalyzer(a.gateway, a.sentiment, opts...)

	reportOpts := []report.Option{
		report.WithLogger(logger),
		report.WithEventLog(a.eventLog),
		report.WithNotifier(a.discord),
	}
	if a.store.Enabled() {
		reportOpts = append(reportOpts, report.WithArchive(a.store))
	}
	a.reports = report.NewGenerator(a.gateway, reportOpts...)

	logger.WithFields(logrus.Fields{
		"model":       a.gateway.Model(),
		"concurrency": cfg.AnalysisConcurrency,
		"database":    a.store.Enabled(),
		"auth":        cfg.JWTSecret != "",
		"discord":     a.discord.Enabled(),
	}).Info("app initialized")

	return a, nil
}

func connectDB(url string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (a *App) Router(registry *httpapi.Registry) http.Handler {
	routerCfg := httpapi.RouterConfig{
		JWTSecret:            a.cfg.JWTSecret,
		AlertOnDegradedBatch: a.cfg.AlertOnDegradedBatch,
	}
	svc := httpapi.Services{
		Gateway:   a.gateway,
		Metrics:   a.metrics,
		Sentiment: a.sentiment,
		Chat:      a.chat,
		Reports:   a.reports,
		Archive:   a.store,
		Alerts:    a.discord,
	}
	return httpapi.NewRouter(routerCfg, a.logger, svc, registry)
}

// Close stops background jobs, waits for pending notifications and releases the database.
func (a *App) Close() error {
	if a.retention != nil {
		a.retention.Stop()
	}
	a.discord.Wait()
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
