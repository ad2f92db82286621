package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"klinehub/internal/bybit"
	"klinehub/internal/config"
	"klinehub/internal/export"
	"klinehub/internal/util"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "instrument symbol")
	interval := flag.String("interval", "1", "kline interval (1, 5, 15, 60, D, ...)")
	count := flag.Int("count", 2000, "number of historical bars to fetch")
	out := flag.String("out", "", "output path (defaults to <export dir>/<symbol>_<interval>.<ext>)")
	format := flag.String("format", "", "output format: parquet or json (defaults to config)")
	flag.Parse()

	cfgPath := "config/klinehub.yaml"
	if p := os.Getenv("KLINEHUB_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, "text")
	util.SetDefault(logger)

	outFormat := cfg.Export.Format
	if *format != "" {
		outFormat = *format
	}
	if outFormat != "parquet" && outFormat != "json" {
		log.Fatalf("unsupported export format %q", outFormat)
	}

	outPath := *out
	if outPath == "" {
		ext := "parquet"
		if outFormat == "json" {
			ext = "json"
		}
		outPath = filepath.Join(cfg.Export.Dir, fmt.Sprintf("%s_%s.%s", *symbol, *interval, ext))
	}

	client := bybit.NewClient(cfg.Bybit.RestURL, logger,
		bybit.WithCategory(cfg.Bybit.Category),
		bybit.WithPageLimit(cfg.Fetch.PageLimit),
		bybit.WithPageBudget(cfg.Fetch.PageBudget),
		bybit.WithTimeout(time.Duration(cfg.Fetch.TimeoutSec)*time.Second),
		bybit.WithRateLimiter(util.NewRateLimiter(cfg.Fetch.RateLimitPerMin)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	start := time.Now()
	bars, _, err := client.FetchHistory(ctx, *symbol, *interval, *count)
	if err != nil {
		log.Fatalf("fetching %s/%s: %v", *symbol, *interval, err)
	}
	logger.Info("fetched history",
		"symbol", *symbol, "interval", *interval,
		"bars", len(bars), "elapsed", time.Since(start).Round(time.Millisecond))

	switch outFormat {
	case "parquet":
		err = export.WriteParquet(outPath, *symbol, *interval, bars)
	case "json":
		err = export.WriteJSON(outPath, *symbol, *interval, bars)
	}
	if err != nil {
		log.Fatalf("writing %s: %v", outPath, err)
	}
	logger.Info("wrote export", "path", outPath, "format", outFormat)
}
