package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nexusquest/backend/api/routes"
	"github.com/nexusquest/backend/internal/chronicle"
	"github.com/nexusquest/backend/internal/ledger"
	"github.com/nexusquest/backend/internal/quest"
	"github.com/nexusquest/backend/internal/roster"
	"github.com/nexusquest/backend/internal/sequencer"
	"github.com/nexusquest/backend/internal/watch"
	"github.com/nexusquest/backend/pkg/config"
	"github.com/nexusquest/backend/pkg/logger"
	"github.com/nexusquest/backend/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	coreMetrics := metrics.NewCoreMetrics(registry)

	ledgerClient, err := ledger.Dial(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to connect to ledger", err)
		os.Exit(1)
	}
	defer ledgerClient.Close()

	cache, err := roster.New(roster.Params{
		Reader:    ledgerClient,
		Logger:    logg,
		Metrics:   coreMetrics,
		ScanLimit: cfg.Market.ScanLimit,
	})
	if err != nil {
		logg.Error(ctx, "failed to create roster cache", err)
		os.Exit(1)
	}
	go func() {
		if err := cache.Run(ctx); err != nil && ctx.Err() == nil {
			logg.Error(ctx, "roster cache stopped unexpectedly", err)
		}
	}()

	merger, err := chronicle.New(chronicle.Params{
		Source:  ledgerClient,
		Logger:  logg,
		Metrics: coreMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create chronicle merger", err)
		os.Exit(1)
	}

	seq, err := sequencer.New(sequencer.Params{
		Confirmer: ledgerClient,
		Logger:    logg,
		Metrics:   coreMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create transaction sequencer", err)
		os.Exit(1)
	}

	questService, err := quest.NewService(quest.ServiceParams{
		Ledger:     ledgerClient,
		Cache:      cache,
		Chronicler: merger,
		Runner:     seq,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create quest service", err)
		os.Exit(1)
	}

	watcher, err := watch.New(watch.Params{
		Subscriber: ledgerClient,
		Pusher:     cache,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create event watcher", err)
		os.Exit(1)
	}
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			logg.Error(ctx, "event watcher stopped unexpectedly", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"account": ledgerClient.Account().Hex(),
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, ledgerClient, questService, registry),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(startCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
