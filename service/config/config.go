package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/itchyny/gojq"
)

const (
	// DefaultIndexerURL is the Solana Beach public API.
	DefaultIndexerURL = "https://api.solanabeach.io"

	// DefaultNFTQuery maps the indexer's NFT list to {name, mint} objects.
	DefaultNFTQuery = `.[] | {name: (.name // ""), mint: (.mintAddress // "")}`
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Telegram configuration
	TelegramBotToken string

	// Solana configuration
	SolanaRPCURL string

	// Indexer configuration
	IndexerURL      string
	IndexerAPIKey   string
	IndexerNFTQuery string

	// Report configuration
	CallTimeout     time.Duration
	MaxHistoryPages int
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Telegram configuration
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if cfg.TelegramBotToken == "" {
		errs = append(errs, fmt.Errorf("TELEGRAM_BOT_TOKEN is required"))
	}

	// Solana configuration
	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	// Indexer configuration
	cfg.IndexerURL = getEnvOrDefault("INDEXER_URL", DefaultIndexerURL)
	cfg.IndexerAPIKey = os.Getenv("INDEXER_API_KEY")
	cfg.IndexerNFTQuery = getEnvOrDefault("INDEXER_NFT_QUERY", DefaultNFTQuery)
	if _, err := CompileQuery(cfg.IndexerNFTQuery); err != nil {
		errs = append(errs, fmt.Errorf("INDEXER_NFT_QUERY: %w", err))
	}

	callTimeout, err := parseDuration("CALL_TIMEOUT", "5s")
	if err != nil {
		errs = append(errs, err)
	} else if callTimeout <= 0 {
		errs = append(errs, fmt.Errorf("CALL_TIMEOUT must be positive, got %v", callTimeout))
	} else {
		cfg.CallTimeout = callTimeout
	}

	maxPages, err := parseInt("MAX_HISTORY_PAGES", 5)
	if err != nil {
		errs = append(errs, err)
	} else if maxPages < 1 {
		errs = append(errs, fmt.Errorf("MAX_HISTORY_PAGES must be at least 1, got %d", maxPages))
	} else {
		cfg.MaxHistoryPages = maxPages
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// Validate checks every field the bot needs.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error
	if c.TelegramBotToken == "" {
		errs = append(errs, fmt.Errorf("TelegramBotToken is required"))
	}
	errs = append(errs, c.reportErrors()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}
	return nil
}

// ValidateReport checks only the fields needed to build wallet reports.
// The one-shot track command runs without a Telegram token.
func (c *Config) ValidateReport() error {
	if errs := c.reportErrors(); len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}
	return nil
}

func (c *Config) reportErrors() []error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.IndexerURL == "" {
		errs = append(errs, fmt.Errorf("IndexerURL is required"))
	}

	if _, err := CompileQuery(c.IndexerNFTQuery); err != nil {
		errs = append(errs, fmt.Errorf("IndexerNFTQuery: %w", err))
	}

	if c.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("CallTimeout must be positive"))
	}

	if c.MaxHistoryPages < 1 {
		errs = append(errs, fmt.Errorf("MaxHistoryPages must be at least 1"))
	}

	return errs
}

// CompileQuery parses and compiles a jq expression.
func CompileQuery(expr string) (*gojq.Code, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq query %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq query %q: %w", expr, err)
	}
	return code, nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
