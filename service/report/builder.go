package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/brojonat/sbi/service/indexer"
	"github.com/brojonat/sbi/service/metrics"
	"github.com/brojonat/sbi/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// recentTransactionLimit is how many signatures the history section lists.
const recentTransactionLimit = 10

// Section names used in logs and metrics.
const (
	sectionCreationDate = "creation_date"
	sectionTokens       = "tokens"
	sectionNFTs         = "nfts"
	sectionTransactions = "transactions"
	sectionProfitLoss   = "profit_loss"
)

// ChainClient is the set of chain lookups the builder needs.
type ChainClient interface {
	GetBalance(ctx context.Context, owner solanago.PublicKey) (uint64, error)
	GetTokenHoldings(ctx context.Context, owner solanago.PublicKey) ([]solana.TokenHolding, error)
	GetRecentSignatures(ctx context.Context, owner solanago.PublicKey, limit int) ([]solana.SignatureRecord, error)
	GetOldestSignature(ctx context.Context, owner solanago.PublicKey, maxPages int) (*solana.SignatureRecord, error)
	GetTransaction(ctx context.Context, signature string) (*solana.TransactionDetail, error)
}

// NFTIndexer lists the NFTs an address holds.
type NFTIndexer interface {
	NFTsByOwner(ctx context.Context, address string) ([]indexer.NFT, error)
}

// Builder assembles wallet reports. It holds no per-request state and is
// safe for concurrent use.
type Builder struct {
	chain           ChainClient
	nfts            NFTIndexer
	maxHistoryPages int
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

// NewBuilder creates a report builder.
// maxHistoryPages bounds how far back the creation date lookup walks.
// If metrics is nil, no metrics will be recorded.
func NewBuilder(chain ChainClient, nfts NFTIndexer, maxHistoryPages int, m *metrics.Metrics, logger *slog.Logger) *Builder {
	if maxHistoryPages < 1 {
		maxHistoryPages = 1
	}
	return &Builder{
		chain:           chain,
		nfts:            nfts,
		maxHistoryPages: maxHistoryPages,
		metrics:         m,
		logger:          logger,
	}
}

// BuildTrackReport builds the report for addressText and renders it as text.
func (b *Builder) BuildTrackReport(ctx context.Context, addressText string) (string, error) {
	report, err := b.Build(ctx, addressText)
	if err != nil {
		return "", err
	}
	return Render(report), nil
}

// Build fetches every section of the report for addressText.
//
// Sections are fetched concurrently and each fails on its own: a failed
// section is marked unavailable and the rest of the report is kept. The
// balance is the one essential lookup; if it fails Build returns
// ErrUpstreamUnavailable.
func (b *Builder) Build(ctx context.Context, addressText string) (*Report, error) {
	owner, err := solanago.PublicKeyFromBase58(strings.TrimSpace(addressText))
	if err != nil {
		b.recordBuild("invalid_address", time.Time{})
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	start := time.Now()
	address := owner.String()
	report := &Report{Address: address}

	var balanceErr error
	var wg sync.WaitGroup

	wg.Go(func() {
		balanceErr = recovered(func() error {
			var err error
			report.BalanceLamports, err = b.chain.GetBalance(ctx, owner)
			return err
		})
	})

	wg.Go(func() {
		b.section(ctx, sectionCreationDate, address, func() error {
			var err error
			report.CreationDate, err = b.creationDate(ctx, owner)
			return err
		})
	})

	wg.Go(func() {
		report.Tokens.Available = b.section(ctx, sectionTokens, address, func() error {
			var err error
			report.Tokens.Items, err = b.chain.GetTokenHoldings(ctx, owner)
			return err
		})
	})

	wg.Go(func() {
		report.NFTs.Available = b.section(ctx, sectionNFTs, address, func() error {
			var err error
			report.NFTs.Items, err = b.nfts.NFTsByOwner(ctx, address)
			return err
		})
	})

	wg.Go(func() {
		report.Transactions.Available = b.section(ctx, sectionTransactions, address, func() error {
			var err error
			report.Transactions.Items, err = b.chain.GetRecentSignatures(ctx, owner, recentTransactionLimit)
			return err
		})
		if !report.Transactions.Available {
			return
		}
		b.section(ctx, sectionProfitLoss, address, func() error {
			var err error
			report.ProfitLoss, err = b.profitLoss(ctx, address, report.Transactions.Items)
			return err
		})
	})

	wg.Wait()

	if balanceErr != nil {
		b.logger.ErrorContext(ctx, "failed to fetch balance",
			"address", address,
			"error", balanceErr,
		)
		b.recordBuild("upstream_error", start)
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, balanceErr)
	}

	b.logger.InfoContext(ctx, "built wallet report",
		"address", address,
		"tokens", len(report.Tokens.Items),
		"nfts", len(report.NFTs.Items),
		"transactions", len(report.Transactions.Items),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	b.recordBuild("success", start)
	return report, nil
}

// creationDate approximates the wallet's creation date by the block time of
// the oldest transaction reachable in its signature history.
func (b *Builder) creationDate(ctx context.Context, owner solanago.PublicKey) (*time.Time, error) {
	oldest, err := b.chain.GetOldestSignature(ctx, owner, b.maxHistoryPages)
	if err != nil {
		return nil, err
	}
	if oldest == nil {
		return nil, nil
	}

	txn, err := b.chain.GetTransaction(ctx, oldest.Signature)
	if err != nil {
		return nil, err
	}
	if txn == nil || txn.BlockTime == nil {
		return nil, nil
	}
	return txn.BlockTime, nil
}

// profitLoss sums the tracked address's own post-balance across the given
// transactions. Transactions the node no longer has, or that do not list the
// address among their accounts, contribute nothing.
func (b *Builder) profitLoss(ctx context.Context, address string, sigs []solana.SignatureRecord) (*decimal.Decimal, error) {
	total := decimal.Zero
	for _, sig := range sigs {
		txn, err := b.chain.GetTransaction(ctx, sig.Signature)
		if err != nil {
			return nil, err
		}
		if txn == nil {
			continue
		}

		balance, ok := txn.PostBalanceOf(address)
		if !ok {
			b.logger.DebugContext(ctx, "address not found in transaction accounts",
				"address", address,
				"signature", sig.Signature,
			)
			continue
		}
		total = total.Add(lamportsToSOL(balance))
	}
	return &total, nil
}

// section runs fn as an isolated part of the report. It reports whether fn
// succeeded; failures and panics are logged and counted, never propagated.
func (b *Builder) section(ctx context.Context, name, address string, fn func() error) bool {
	err := recovered(fn)
	if err == nil {
		return true
	}

	b.logger.WarnContext(ctx, "report section unavailable",
		"section", name,
		"address", address,
		"error", err,
	)
	if b.metrics != nil {
		b.metrics.RecordSectionDegraded(name)
	}
	return false
}

// recovered runs fn, turning a panic into an error.
func recovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (b *Builder) recordBuild(outcome string, start time.Time) {
	if b.metrics == nil {
		return
	}
	var duration float64
	if !start.IsZero() {
		duration = time.Since(start).Seconds()
	}
	b.metrics.RecordReportBuild(outcome, duration)
}
