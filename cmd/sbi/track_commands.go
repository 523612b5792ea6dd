package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brojonat/sbi/service/config"
	"github.com/brojonat/sbi/service/report"
	"github.com/urfave/cli/v2"
)

func trackCommand() *cli.Command {
	return &cli.Command{
		Name:      "track",
		Usage:     "Print the wallet report for an address",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "Solana RPC endpoint",
				EnvVars: []string{"SOLANA_RPC_URL"},
			},
			&cli.StringFlag{
				Name:    "indexer-url",
				Usage:   "Address indexer base URL",
				EnvVars: []string{"INDEXER_URL"},
				Value:   config.DefaultIndexerURL,
			},
			&cli.StringFlag{
				Name:    "indexer-api-key",
				Usage:   "Bearer token for the indexer",
				EnvVars: []string{"INDEXER_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "indexer-nft-query",
				Usage:   "jq expression mapping the indexer response to {name, mint} objects",
				EnvVars: []string{"INDEXER_NFT_QUERY"},
				Value:   config.DefaultNFTQuery,
			},
			&cli.DurationFlag{
				Name:    "call-timeout",
				Usage:   "Deadline for each upstream call",
				EnvVars: []string{"CALL_TIMEOUT"},
				Value:   5 * time.Second,
			},
			&cli.IntFlag{
				Name:    "max-history-pages",
				Usage:   "Signature pages to walk when looking for the creation date",
				EnvVars: []string{"MAX_HISTORY_PAGES"},
				Value:   5,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: "error",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			cfg := &config.Config{
				SolanaRPCURL:    c.String("rpc-url"),
				IndexerURL:      c.String("indexer-url"),
				IndexerAPIKey:   c.String("indexer-api-key"),
				IndexerNFTQuery: c.String("indexer-nft-query"),
				CallTimeout:     c.Duration("call-timeout"),
				MaxHistoryPages: c.Int("max-history-pages"),
			}
			if err := cfg.ValidateReport(); err != nil {
				return err
			}

			logger := setupLogger(c.String("log-level"))
			builder, err := newReportBuilder(cfg, nil, logger)
			if err != nil {
				return err
			}

			r, err := builder.Build(c.Context, c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("failed to build wallet report: %w", err)
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(reportJSON(r), "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal report: %w", err)
				}
				fmt.Fprintln(c.App.Writer, string(data))
				return nil
			}

			fmt.Fprint(c.App.Writer, report.Render(r))
			return nil
		},
	}
}

type tokenJSON struct {
	Mint   string `json:"mint"`
	Amount string `json:"amount"`
}

type nftJSON struct {
	Name string `json:"name"`
	Mint string `json:"mint"`
}

type transactionJSON struct {
	Signature string     `json:"signature"`
	BlockTime *time.Time `json:"block_time,omitempty"`
}

type walletReportJSON struct {
	Address      string            `json:"address"`
	BalanceSOL   string            `json:"balance_sol"`
	CreationDate *time.Time        `json:"creation_date,omitempty"`
	ProfitLoss   *string           `json:"profit_loss_sol,omitempty"`
	Tokens       []tokenJSON       `json:"tokens"`
	NFTs         []nftJSON         `json:"nfts"`
	Transactions []transactionJSON `json:"transactions"`
	Unavailable  []string          `json:"unavailable,omitempty"`
}

// reportJSON flattens a report for machine-readable output. Sections that
// could not be fetched are listed under "unavailable".
func reportJSON(r *report.Report) walletReportJSON {
	out := walletReportJSON{
		Address:      r.Address,
		BalanceSOL:   report.FormatBalance(r.BalanceLamports),
		CreationDate: r.CreationDate,
		Tokens:       []tokenJSON{},
		NFTs:         []nftJSON{},
		Transactions: []transactionJSON{},
	}
	if r.ProfitLoss != nil {
		pl := r.ProfitLoss.StringFixed(2)
		out.ProfitLoss = &pl
	}

	for _, t := range r.Tokens.Items {
		out.Tokens = append(out.Tokens, tokenJSON{Mint: t.Mint, Amount: t.Amount})
	}
	for _, n := range r.NFTs.Items {
		out.NFTs = append(out.NFTs, nftJSON{Name: n.Name, Mint: n.Mint})
	}
	for _, tx := range r.Transactions.Items {
		out.Transactions = append(out.Transactions, transactionJSON{Signature: tx.Signature, BlockTime: tx.BlockTime})
	}

	if !r.Tokens.Available {
		out.Unavailable = append(out.Unavailable, "tokens")
	}
	if !r.NFTs.Available {
		out.Unavailable = append(out.Unavailable, "nfts")
	}
	if !r.Transactions.Available {
		out.Unavailable = append(out.Unavailable, "transactions")
	}
	return out
}
