package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"klinehub/internal/aggregator"
	"klinehub/internal/bybit"
	"klinehub/internal/config"
	"klinehub/internal/feed"
	"klinehub/internal/httpapi"
	"klinehub/internal/instrumentation"
	"klinehub/internal/kvstore"
	"klinehub/internal/session"
	"klinehub/internal/util"
)

func main() {
	// Load config.
	cfgPath := "config/klinehub.yaml"
	if p := os.Getenv("KLINEHUB_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Setup logging.
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	metrics := instrumentation.NewMetrics()

	// Optional Redis-backed threshold/signal store.
	var (
		configStore kvstore.ConfigStore
		signalStore kvstore.SignalStore
	)
	if cfg.Redis.URL != "" {
		rs, err := kvstore.NewRedisStore(cfg.Redis.URL, cfg.Redis.Password, logger)
		if err != nil {
			log.Fatalf("connecting to redis: %v", err)
		}
		defer rs.Close()
		configStore = rs
		signalStore = rs
	} else {
		logger.Warn("no redis url configured, thresholds and signal markers disabled")
	}

	market := bybit.NewClient(cfg.Bybit.RestURL, logger,
		bybit.WithCategory(cfg.Bybit.Category),
		bybit.WithPageLimit(cfg.Fetch.PageLimit),
		bybit.WithPageBudget(cfg.Fetch.PageBudget),
		bybit.WithTimeout(time.Duration(cfg.Fetch.TimeoutSec)*time.Second),
		bybit.WithRateLimiter(util.NewRateLimiter(cfg.Fetch.RateLimitPerMin)),
		bybit.WithMetrics(metrics),
	)

	feedClient := feed.NewClient(cfg.Bybit.WSURL, logger)

	anchor := session.NewAnchor(cfg.Session.UTCOffsetHours, cfg.Session.AnchorHour, cfg.Session.AnchorMinute)

	agg := aggregator.New(anchor, market, feedClient, configStore, signalStore, metrics, aggregator.Options{
		TargetCount: cfg.Fetch.TargetCount,
		MaxLen:      cfg.Series.MaxLen,
	}, logger)
	defer agg.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := feedClient.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("feed client stopped", "error", err)
		}
	}()

	for _, w := range cfg.Watch {
		agg.Track(ctx, w.Symbol, w.Interval)
		logger.Info("tracking series", "symbol", w.Symbol, "interval", w.Interval)
	}

	srv := httpapi.NewServer(agg, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("klinehub server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down klinehub server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
