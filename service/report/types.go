package report

import (
	"math/big"
	"time"

	"github.com/brojonat/sbi/service/indexer"
	"github.com/brojonat/sbi/service/solana"
	"github.com/shopspring/decimal"
)

// lamportsPerSOLExp is the exponent of the lamport unit relative to SOL.
const lamportsPerSOLExp = -9

// Section is a list section of the report. Available is false when the
// section's lookup failed and the list should render as unavailable.
type Section[T any] struct {
	Items     []T
	Available bool
}

// Report is the aggregate built for a single /track request.
type Report struct {
	Address         string
	BalanceLamports uint64

	// CreationDate is the block time of the oldest transaction found, nil if unknown.
	CreationDate *time.Time

	// ProfitLoss is the sum of the wallet's post-balances over its recent
	// transactions, in SOL. nil if it could not be computed.
	ProfitLoss *decimal.Decimal

	Tokens       Section[solana.TokenHolding]
	NFTs         Section[indexer.NFT]
	Transactions Section[solana.SignatureRecord]
}

// lamportsToSOL converts a lamport amount to SOL without loss of precision.
func lamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), lamportsPerSOLExp)
}
