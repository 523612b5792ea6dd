package solana

import (
	"time"
)

// TokenHolding is one SPL token account owned by a wallet.
type TokenHolding struct {
	Mint   string
	Amount string // human-formatted amount as reported by the node (uiAmountString)
}

// SignatureRecord is one confirmed signature for an address.
type SignatureRecord struct {
	Signature string
	BlockTime *time.Time // nil if the node did not report a block time
}

// TransactionDetail is the part of a fetched transaction the report needs.
// AccountKeys and PostBalances are index-aligned.
type TransactionDetail struct {
	Signature    string
	BlockTime    *time.Time
	AccountKeys  []string
	PostBalances []uint64
}

// PostBalanceOf returns the post-execution lamport balance of address,
// or false if address is not one of the transaction's accounts.
func (t *TransactionDetail) PostBalanceOf(address string) (uint64, bool) {
	for i, key := range t.AccountKeys {
		if key != address {
			continue
		}
		if i >= len(t.PostBalances) {
			return 0, false
		}
		return t.PostBalances[i], true
	}
	return 0, false
}
