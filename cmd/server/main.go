package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/intellibus/insights/internal/app"
	"github.com/intellibus/insights/internal/httpapi"
)

func main() {
	dotenvErr := app.LoadDotEnv()
	cfg := app.LoadConfigFromEnv()

	logger := app.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if dotenvErr != nil {
		logger.WithError(dotenvErr).Warn("failed to load .env")
	}

	// Initialize Sentry for error monitoring
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2, // 20% of requests for performance monitoring
			Environment:      cfg.Environment,
		})
		if err != nil {
			logger.WithError(err).Warn("sentry init failed")
		} else {
			logger.Info("sentry initialized")
			defer sentry.Flush(2 * time.Second)
		}
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		if cfg.SentryDSN != "" {
			sentry.CaptureException(err)
			sentry.Flush(2 * time.Second)
		}
		logger.WithError(err).Fatal("init app")
	}

	registry := httpapi.NewRegistry()
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("listen")
		}
	}()

	<-ctx.Done()

	// Reject new work, then let in-flight analyses finish.
	registry.StartDraining()
	logger.WithField("in_flight", registry.ActiveCount()).Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := registry.WaitContext(shutdownCtx); err != nil {
		logger.WithField("in_flight", registry.ActiveCount()).Warn("drain timed out")
	}
	_ = srv.Shutdown(shutdownCtx)
	_ = a.Close()
}
