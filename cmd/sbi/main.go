package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/url"
	"os"

	"github.com/brojonat/sbi/service/config"
	"github.com/brojonat/sbi/service/indexer"
	"github.com/brojonat/sbi/service/metrics"
	"github.com/brojonat/sbi/service/report"
	"github.com/brojonat/sbi/service/solana"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "sbi",
		Usage: "Solana's Bureau of Investigation chat bot",
		Description: `Runs the Telegram bot that reports on Solana wallets.

Use "sbi track ADDRESS" to print a wallet report without going through Telegram.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Before: func(c *cli.Context) error {
			// A .env file is optional; real environment variables take precedence.
			if err := godotenv.Load(c.String("env-file")); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load %s: %w", c.String("env-file"), err)
			}
			return nil
		},
		Commands: []*cli.Command{
			botCommand(),
			trackCommand(),
			// Server utility commands
			{
				Name:  "server",
				Usage: "Ops server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Environment file to load before running",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "Ops server URL for health checks",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
		},
	}
}

// newReportBuilder wires the chain and indexer clients into a report builder.
func newReportBuilder(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*report.Builder, error) {
	query, err := config.CompileQuery(cfg.IndexerNFTQuery)
	if err != nil {
		return nil, err
	}

	// Note: For premium RPC endpoints, include API key in the URL
	rpcClient := solana.NewRPCClient(cfg.SolanaRPCURL)
	chain := solana.NewClient(rpcClient, endpointLabel(cfg.SolanaRPCURL), cfg.CallTimeout, m, logger)
	nfts := indexer.NewClient(cfg.IndexerURL, cfg.IndexerAPIKey, query, cfg.CallTimeout, nil, m, logger)

	return report.NewBuilder(chain, nfts, cfg.MaxHistoryPages, m, logger), nil
}

// endpointLabel reduces an RPC URL to its host so API keys embedded in the
// path or query never reach logs or metric labels.
func endpointLabel(rpcURL string) string {
	u, err := url.Parse(rpcURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
