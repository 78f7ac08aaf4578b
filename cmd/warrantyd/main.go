package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/n8dizzle/Christmas-automations/api"
	"github.com/n8dizzle/Christmas-automations/api/handler"
	"github.com/n8dizzle/Christmas-automations/browser"
	"github.com/n8dizzle/Christmas-automations/cache"
	"github.com/n8dizzle/Christmas-automations/config"
	"github.com/n8dizzle/Christmas-automations/events"
	"github.com/n8dizzle/Christmas-automations/lookup"
	"github.com/n8dizzle/Christmas-automations/sitecheck"
	"github.com/n8dizzle/Christmas-automations/telemetry"
	"github.com/n8dizzle/Christmas-automations/webhook"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	os.Exit(run())
}

// run returns the exit code. Failures return instead of exiting so deferred
// cleanup, Chrome included, always runs.
func run() int {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("warrantyd starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxSessions", cfg.Browser.MaxSessions,
		"outputDir", cfg.Lookup.OutputDir,
	)

	shutdownTracing, err := telemetry.Setup(context.Background(), cfg.Trace, os.Stdout)
	if err != nil {
		slog.Error("failed to set up tracing", "exporter", cfg.Trace.Exporter, "error", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Warn("failed to flush spans", "error", err)
		}
	}()

	// ── 3. Launch browser ───────────────────────────────────────────
	launcher, err := browser.NewRodLauncher(cfg.Browser)
	if err != nil {
		slog.Error("failed to launch browser", "error", err)
		return 1
	}
	defer launcher.Close()

	// ── 4. Initialise cache and event publishing ────────────────────
	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	defer cc.Close()

	opts := []lookup.Option{lookup.WithCache(cc)}
	if cfg.Events.NATSURL != "" {
		pub, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			slog.Error("failed to connect to NATS", "url", cfg.Events.NATSURL, "error", err)
			return 1
		}
		defer pub.Close()
		opts = append(opts, lookup.WithPublisher(pub))
		slog.Info("publishing lookups", "subject", cfg.Events.Subject)
	}

	// ── 5. Initialise dispatcher ────────────────────────────────────
	dispatcher := lookup.New(launcher, cfg.Lookup, opts...)
	for _, a := range dispatcher.Adapters() {
		slog.Info("adapter registered", "adapter", a.Name(), "tokens", a.Tokens(), "url", a.URL())
	}

	webhooks := webhook.NewSender()
	batches := &handler.BatchRunner{
		Dispatcher:  dispatcher,
		Store:       handler.NewBatchStore(),
		Webhooks:    webhooks,
		Concurrency: cfg.Lookup.BatchConcurrency,
	}

	// ── 6. Setup router ─────────────────────────────────────────────
	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	startTime := time.Now()
	router := api.NewRouter(rootCtx, api.Deps{
		Dispatcher: dispatcher,
		Stats:      launcher,
		Prober:     sitecheck.New(10 * time.Second),
		Batches:    batches,
	}, cfg, startTime)

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: otelhttp.NewHandler(router, "warrantyd"),
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-serveErr:
		slog.Error("HTTP server error", "error", err)
		return 1
	}

	// A lookup can take close to a minute; give in-flight requests that long.
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	done := make(chan struct{})
	go func() {
		batches.Wait()
		webhooks.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("batch jobs still running at shutdown")
	}

	// launcher.Close() runs via defer and kills Chrome.
	slog.Info("warrantyd stopped")
	return 0
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
