package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/sbi/service/bot"
	"github.com/brojonat/sbi/service/config"
	"github.com/brojonat/sbi/service/metrics"
	"github.com/brojonat/sbi/service/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 30 * time.Second

func botCommand() *cli.Command {
	return &cli.Command{
		Name:  "bot",
		Usage: "Run the Telegram bot and its ops server",
		Action: func(c *cli.Context) error {
			// Load and validate configuration from environment
			// This fails fast if any required config is missing or invalid
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runBot(ctx, cfg)
		},
	}
}

func runBot(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting bot",
		"server_addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"solana_rpc", endpointLabel(cfg.SolanaRPCURL),
		"indexer_url", cfg.IndexerURL,
	)

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	builder, err := newReportBuilder(cfg, m, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize report builder: %w", err)
	}

	dispatcher := bot.NewDispatcher(m, logger)
	bot.RegisterHandlers(dispatcher, builder, logger)

	telegram, err := bot.NewTelegramBot(cfg.TelegramBotToken, dispatcher, logger)
	if err != nil {
		return err
	}

	opsServer := server.New(cfg.ServerAddr, prometheus.DefaultGatherer, m, logger)

	// Start ops server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- opsServer.Start()
	}()

	// Run the bot until shutdown signal or server error
	botCtx, cancelBot := context.WithCancel(ctx)
	defer cancelBot()
	botDone := make(chan error, 1)
	go func() {
		botDone <- telegram.Run(botCtx)
	}()

	var runErr error
	botStopped := false
	select {
	case err := <-serverErrors:
		logger.Error("ops server error", "error", err)
		runErr = err
	case err := <-botDone:
		botStopped = true
		if err != nil {
			logger.Error("bot stopped", "error", err)
			runErr = err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	// Graceful shutdown with timeout
	cancelBot()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if !botStopped {
		select {
		case <-botDone:
		case <-shutdownCtx.Done():
			logger.Warn("timed out waiting for in-flight commands")
		}
	}

	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown ops server gracefully", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	logger.Info("shutdown complete")
	return runErr
}
