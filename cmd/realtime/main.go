package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vitos/bybit_trade_journal/internal/config"
	"github.com/vitos/bybit_trade_journal/internal/infrastructure/exchange"
	"github.com/vitos/bybit_trade_journal/internal/infrastructure/logger"
	"github.com/vitos/bybit_trade_journal/internal/infrastructure/sink"
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

	csvSink, err := sink.NewCSVSink(cfg.Output.Dir)
	if err != nil {
		log.Fatal("Failed to init sink", zap.Error(err))
	}

	stream := exchange.NewBybitPrivateStream(cfg.Bybit.APIKey, cfg.Bybit.APISecret, cfg.Bybit.WSEndpoint, log)
	rt := usecase.NewRealtimeLogger(csvSink, log)
	rt.Attach(stream)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("realtime logging active", zap.String("outputDir", cfg.Output.Dir))
	if err := stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("stream terminated", zap.Error(err))
	}
	log.Info("realtime logger stopped")
}
