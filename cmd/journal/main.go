package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/bybit_trade_journal/internal/config"
	"github.com/vitos/bybit_trade_journal/internal/infrastructure/exchange"
	"github.com/vitos/bybit_trade_journal/internal/infrastructure/logger"
	"github.com/vitos/bybit_trade_journal/internal/infrastructure/sink"
	"github.com/vitos/bybit_trade_journal/internal/infrastructure/storage"
	"github.com/vitos/bybit_trade_journal/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Encoding)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := storage.NewSQLiteStore(cfg.Output.DBPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	csvSink, err := sink.NewCSVSink(cfg.Output.Dir)
	if err != nil {
		log.Fatal("Failed to init sink", zap.Error(err))
	}

	adapter := exchange.NewBybitAdapter(cfg.Bybit.APIKey, cfg.Bybit.APISecret, cfg.Bybit.RESTEndpoint)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serverTime, err := adapter.ServerTime(ctx); err != nil {
		log.Warn("exchange connectivity check failed, proceeding anyway", zap.Error(err))
	} else {
		log.Info("exchange reachable", zap.Time("serverTime", serverTime))
	}

	history := usecase.NewHistoryService(adapter, log, cfg.CallDelay())
	matcher := usecase.NewMatcher(log)
	syncSvc := usecase.NewSyncService(history, matcher, csvSink, store, log)

	now := time.Now()
	ranges := usecase.SyncRanges{}
	var ok bool
	if ranges.Futures, ok = config.RangeFrom(cfg.Sync.FuturesStartDate, now); !ok {
		log.Warn("invalid futures start date, using default range",
			zap.String("value", cfg.Sync.FuturesStartDate))
	}
	if ranges.Spot, ok = config.RangeFrom(cfg.Sync.SpotStartDate, now); !ok {
		log.Warn("invalid spot start date, using default range",
			zap.String("value", cfg.Sync.SpotStartDate))
	}
	if ranges.Transfers, ok = config.RangeFrom(cfg.Sync.TransferStartDate, now); !ok {
		log.Warn("invalid transfer start date, using default range",
			zap.String("value", cfg.Sync.TransferStartDate))
	}
	ranges.Flows.Start = now.AddDate(0, 0, -cfg.Sync.WalletDaysBack)
	ranges.Flows.End = now

	summary, err := syncSvc.Run(ctx, ranges)
	if err != nil {
		log.Fatal("sync failed", zap.Error(err))
	}

	log.Info("journal updated",
		zap.Int64("runId", summary.RunID),
		zap.Int("futuresPositions", summary.Futures),
		zap.Int("spotTrades", summary.Spot),
		zap.Int("walletFlows", summary.Flows),
		zap.Int("transfers", summary.Transfers),
		zap.Int("conversions", summary.Conversions),
		zap.Int("coinBalances", summary.Balances),
		zap.String("outputDir", cfg.Output.Dir))
}
