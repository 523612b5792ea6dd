package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brojonat/sbi/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	// signaturePageSize is the largest page getSignaturesForAddress accepts.
	signaturePageSize = 1000

	maxAttempts = 3
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetBalance(
		ctx context.Context,
		account solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetBalanceResult, error)

	GetTokenAccountsByOwner(
		ctx context.Context,
		owner solana.PublicKey,
		conf *rpc.GetTokenAccountsConfig,
		opts *rpc.GetTokenAccountsOpts,
	) (*rpc.GetTokenAccountsResult, error)

	GetSignaturesForAddress(
		ctx context.Context,
		address solana.PublicKey,
		opts *rpc.GetSignaturesForAddressOpts,
	) ([]*rpc.TransactionSignature, error)

	GetTransaction(
		ctx context.Context,
		signature solana.Signature,
		opts *rpc.GetTransactionOpts,
	) (*rpc.GetTransactionResult, error)
}

// Client provides the wallet lookups the report needs.
// It wraps the RPC client with per-call deadlines, rate limit retries and metrics.
type Client struct {
	rpc          RPCClient
	logger       *slog.Logger
	metrics      *metrics.Metrics
	endpoint     string // RPC endpoint identifier for metrics (e.g., "mainnet", rpc host)
	timeout      time.Duration
	retryBackoff time.Duration
}

// NewClient creates a new Solana client.
// Every RPC attempt is bounded by timeout. If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:          rpcClient,
		logger:       logger,
		metrics:      m,
		endpoint:     endpoint,
		timeout:      timeout,
		retryBackoff: 2 * time.Second,
	}
}

// GetBalance returns the wallet's native balance in lamports.
func (c *Client) GetBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	var result *rpc.GetBalanceResult
	err := c.call(ctx, "GetBalance", func(ctx context.Context) error {
		var err error
		result, err = c.rpc.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get balance for %s: %w", owner, err)
	}
	if result == nil {
		return 0, nil
	}
	return result.Value, nil
}

// GetTokenHoldings lists the SPL token accounts owned by the wallet under the
// standard token program, in the order the node returns them.
func (c *Client) GetTokenHoldings(ctx context.Context, owner solana.PublicKey) ([]TokenHolding, error) {
	programID := TokenProgramID
	conf := &rpc.GetTokenAccountsConfig{
		ProgramId: &programID,
	}
	opts := &rpc.GetTokenAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingJSONParsed,
	}

	var result *rpc.GetTokenAccountsResult
	err := c.call(ctx, "GetTokenAccountsByOwner", func(ctx context.Context) error {
		var err error
		result, err = c.rpc.GetTokenAccountsByOwner(ctx, owner, conf, opts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get token accounts for %s: %w", owner, err)
	}

	holdings, err := parseTokenHoldings(result)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "fetched token holdings",
		"wallet", owner.String(),
		"count", len(holdings),
	)
	return holdings, nil
}

// GetRecentSignatures returns up to limit confirmed signatures for the address,
// newest first.
func (c *Client) GetRecentSignatures(ctx context.Context, owner solana.PublicKey, limit int) ([]SignatureRecord, error) {
	sigs, err := c.getSignatures(ctx, owner, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, err
	}

	records := make([]SignatureRecord, 0, len(sigs))
	for _, sig := range sigs {
		records = append(records, signatureToRecord(sig))
	}
	return records, nil
}

// GetOldestSignature walks the address's signature history backwards and
// returns the oldest signature it reaches within maxPages pages.
// Returns nil if the address has no signatures.
func (c *Client) GetOldestSignature(ctx context.Context, owner solana.PublicKey, maxPages int) (*SignatureRecord, error) {
	limit := signaturePageSize
	var oldest *rpc.TransactionSignature

	for page := 0; page < maxPages; page++ {
		opts := &rpc.GetSignaturesForAddressOpts{
			Limit:      &limit,
			Commitment: rpc.CommitmentConfirmed,
		}
		if oldest != nil {
			opts.Before = oldest.Signature
		}

		sigs, err := c.getSignatures(ctx, owner, opts)
		if err != nil {
			return nil, err
		}
		if len(sigs) == 0 {
			break
		}

		oldest = sigs[len(sigs)-1]
		if len(sigs) < limit {
			break
		}

		if page == maxPages-1 {
			c.logger.DebugContext(ctx, "signature history exceeds page budget, using oldest seen",
				"wallet", owner.String(),
				"pages", maxPages,
			)
		}
	}

	if oldest == nil {
		return nil, nil
	}
	record := signatureToRecord(oldest)
	return &record, nil
}

// GetTransaction fetches a transaction by signature.
// Returns nil if the node does not have the transaction.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*TransactionDetail, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", signature, err)
	}

	// Fetch full transaction details with support for versioned transactions
	txnOpts := &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &[]uint64{0}[0],
	}

	var result *rpc.GetTransactionResult
	err = c.call(ctx, "GetTransaction", func(ctx context.Context) error {
		var err error
		result, err = c.rpc.GetTransaction(ctx, sig, txnOpts)
		return err
	})

	// Handle parsing errors for legacy transactions
	if err != nil && isLegacyDecodeError(err) {
		c.logger.WarnContext(ctx, "could not parse as versioned tx, retrying as legacy",
			"signature", signature,
		)
		if c.metrics != nil {
			c.metrics.RecordRPCRetry("GetTransaction", "parse_error")
		}

		legacyTxnOpts := &rpc.GetTransactionOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: rpc.CommitmentConfirmed,
		}
		err = c.call(ctx, "GetTransaction", func(ctx context.Context) error {
			var err error
			result, err = c.rpc.GetTransaction(ctx, sig, legacyTxnOpts)
			return err
		})
	}

	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", signature, err)
	}
	if result == nil {
		return nil, nil
	}

	return parseTransactionDetail(signature, result)
}

func (c *Client) getSignatures(ctx context.Context, owner solana.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error) {
	c.logger.DebugContext(ctx, "calling GetSignaturesForAddress",
		"wallet", owner.String(),
		"limit", *opts.Limit,
		"before", opts.Before,
	)

	var sigs []*rpc.TransactionSignature
	err := c.call(ctx, "GetSignaturesForAddress", func(ctx context.Context) error {
		var err error
		sigs, err = c.rpc.GetSignaturesForAddress(ctx, owner, opts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get signatures for %s: %w", owner, err)
	}
	return sigs, nil
}

// call runs fn with a per-attempt deadline, recording metrics for every attempt.
// Rate limited attempts (429) are retried with exponential backoff.
func (c *Client) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := range maxAttempts {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		start := time.Now()
		err = fn(callCtx)
		duration := time.Since(start).Seconds()
		cancel()

		status := "success"
		if err != nil {
			status = "error"
		}
		if c.metrics != nil {
			c.metrics.RecordRPCCall(method, status, c.endpoint, duration)
		}

		if err == nil {
			return nil
		}

		if !isRateLimited(err) || attempt == maxAttempts-1 {
			c.logger.ErrorContext(ctx, "solana rpc call failed",
				"method", method,
				"attempt", attempt+1,
				"error", err,
			)
			return err
		}

		backoff := c.retryBackoff << uint(attempt) // 2s, 4s
		c.logger.WarnContext(ctx, "rate limited, sleeping before retry",
			"method", method,
			"attempt", attempt+1,
			"backoff_seconds", backoff.Seconds(),
		)
		if c.metrics != nil {
			c.metrics.RecordRateLimitHit(c.endpoint)
			c.metrics.RecordRPCRetry(method, "rate_limit")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}

func isRateLimited(err error) bool {
	return strings.Contains(err.Error(), "429")
}

func isLegacyDecodeError(err error) bool {
	return strings.Contains(err.Error(), "expects '\"' or 'n', but found '{'")
}
