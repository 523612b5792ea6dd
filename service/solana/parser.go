package solana

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Well-known Solana program IDs
var (
	// TokenProgramID is the SPL Token program
	TokenProgramID = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
)

// parsedTokenAccount is the jsonParsed layout of an SPL token account.
type parsedTokenAccount struct {
	Program string `json:"program"`
	Parsed  struct {
		Type string `json:"type"`
		Info struct {
			Mint        string `json:"mint"`
			Owner       string `json:"owner"`
			TokenAmount struct {
				Amount         string `json:"amount"`
				Decimals       int    `json:"decimals"`
				UIAmountString string `json:"uiAmountString"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// parseTokenHoldings converts a jsonParsed getTokenAccountsByOwner result into holdings.
// Order is preserved; accounts without parsed data are skipped.
func parseTokenHoldings(result *rpc.GetTokenAccountsResult) ([]TokenHolding, error) {
	if result == nil {
		return []TokenHolding{}, nil
	}

	holdings := make([]TokenHolding, 0, len(result.Value))
	for _, acct := range result.Value {
		if acct == nil || acct.Account.Data == nil {
			continue
		}

		raw := acct.Account.Data.GetRawJSON()
		if len(raw) == 0 {
			// Binary encoding: the node ignored jsonParsed for this account.
			continue
		}

		var parsed parsedTokenAccount
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("failed to decode token account %s: %w", acct.Pubkey, err)
		}

		holdings = append(holdings, TokenHolding{
			Mint:   parsed.Parsed.Info.Mint,
			Amount: parsed.Parsed.Info.TokenAmount.UIAmountString,
		})
	}

	return holdings, nil
}

// signatureToRecord converts an RPC TransactionSignature to our domain record.
func signatureToRecord(sig *rpc.TransactionSignature) SignatureRecord {
	record := SignatureRecord{
		Signature: sig.Signature.String(),
	}
	if sig.BlockTime != nil {
		t := sig.BlockTime.Time().UTC()
		record.BlockTime = &t
	}
	return record
}

// parseTransactionDetail extracts block time, account keys and post balances
// from a full GetTransactionResult.
//
// Account keys follow the runtime ordering: static message keys, then
// addresses loaded from lookup tables (writable before readonly). This is the
// ordering meta.postBalances is indexed by.
func parseTransactionDetail(signature string, result *rpc.GetTransactionResult) (*TransactionDetail, error) {
	detail := &TransactionDetail{
		Signature: signature,
	}

	if result.BlockTime != nil {
		t := result.BlockTime.Time().UTC()
		detail.BlockTime = &t
	}

	if result.Transaction != nil {
		tx, err := result.Transaction.GetTransaction()
		if err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		if tx != nil {
			for _, key := range tx.Message.AccountKeys {
				detail.AccountKeys = append(detail.AccountKeys, key.String())
			}
		}
	}

	if result.Meta != nil {
		for _, key := range result.Meta.LoadedAddresses.Writable {
			detail.AccountKeys = append(detail.AccountKeys, key.String())
		}
		for _, key := range result.Meta.LoadedAddresses.ReadOnly {
			detail.AccountKeys = append(detail.AccountKeys, key.String())
		}
		detail.PostBalances = append(detail.PostBalances, result.Meta.PostBalances...)
	}

	return detail, nil
}
