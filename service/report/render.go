package report

import (
	"fmt"
	"strings"
	"time"
)

const (
	unavailableMarker = "N/A"
	unknownDateMarker = "Unknown Date"
	dateLayout        = "2006-01-02 15:04:05"
)

// Render formats the report as plain text. Output depends only on the report,
// so equal reports render byte-for-byte identically.
func Render(r *Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Wallet Info for %s\n\n", r.Address)
	fmt.Fprintf(&sb, "Balance: %s SOL\n", FormatBalance(r.BalanceLamports))
	fmt.Fprintf(&sb, "Creation Date: %s\n", formatDate(r.CreationDate, unavailableMarker))

	if r.ProfitLoss != nil {
		fmt.Fprintf(&sb, "Profit/Loss: %s SOL\n", r.ProfitLoss.StringFixed(2))
	} else {
		fmt.Fprintf(&sb, "Profit/Loss: %s\n", unavailableMarker)
	}

	sb.WriteString("Tokens:\n")
	writeUnavailable(&sb, r.Tokens.Available)
	for _, token := range r.Tokens.Items {
		fmt.Fprintf(&sb, "- Token: %s, Amount: %s\n", token.Mint, token.Amount)
	}

	sb.WriteString("\nNFTs:\n")
	writeUnavailable(&sb, r.NFTs.Available)
	for _, nft := range r.NFTs.Items {
		fmt.Fprintf(&sb, "- NFT: %s, Mint: %s\n", nft.Name, nft.Mint)
	}

	sb.WriteString("\nLatest Transactions:\n")
	writeUnavailable(&sb, r.Transactions.Available)
	for _, tx := range r.Transactions.Items {
		fmt.Fprintf(&sb, "- Tx: %s, Date: %s\n", tx.Signature, formatDate(tx.BlockTime, unknownDateMarker))
	}

	return sb.String()
}

// FormatBalance renders lamports as SOL floored to two decimals.
func FormatBalance(lamports uint64) string {
	return lamportsToSOL(lamports).Truncate(2).StringFixed(2)
}

func formatDate(t *time.Time, missing string) string {
	if t == nil {
		return missing
	}
	return t.UTC().Format(dateLayout) + " UTC"
}

func writeUnavailable(sb *strings.Builder, available bool) {
	if !available {
		sb.WriteString("- unavailable\n")
	}
}
