package report

import (
	"testing"

	"github.com/brojonat/sbi/service/indexer"
	"github.com/brojonat/sbi/service/solana"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		lamports uint64
		expected string
	}{
		{0, "0.00"},
		{1, "0.00"},
		{9_999_999, "0.00"},
		{10_000_000, "0.01"},
		{1_500_000_000, "1.50"},
		{1_999_999_999, "1.99"},
		{2_000_000_000, "2.00"},
		{123_456_789_012, "123.45"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatBalance(tt.lamports))
		})
	}
}

func TestRender_UnavailableSections(t *testing.T) {
	r := &Report{
		Address:         walletA,
		BalanceLamports: 2_000_000_000,
	}

	expected := "Wallet Info for " + walletA + "\n\n" +
		"Balance: 2.00 SOL\n" +
		"Creation Date: N/A\n" +
		"Profit/Loss: N/A\n" +
		"Tokens:\n- unavailable\n" +
		"\nNFTs:\n- unavailable\n" +
		"\nLatest Transactions:\n- unavailable\n"
	assert.Equal(t, expected, Render(r))
}

func TestRender_UnknownTransactionDate(t *testing.T) {
	pl := decimal.RequireFromString("-0.004")
	r := &Report{
		Address:      walletA,
		ProfitLoss:   &pl,
		CreationDate: unix(0),
		Tokens:       Section[solana.TokenHolding]{Available: true},
		NFTs:         Section[indexer.NFT]{Available: true, Items: []indexer.NFT{{Name: "", Mint: "m"}}},
		Transactions: Section[solana.SignatureRecord]{
			Available: true,
			Items:     []solana.SignatureRecord{{Signature: "sig1"}},
		},
	}

	out := Render(r)
	assert.Contains(t, out, "Creation Date: 1970-01-01 00:00:00 UTC\n")
	assert.Contains(t, out, "Profit/Loss: 0.00 SOL\n")
	assert.Contains(t, out, "- NFT: , Mint: m\n")
	assert.Contains(t, out, "- Tx: sig1, Date: Unknown Date\n")
}
