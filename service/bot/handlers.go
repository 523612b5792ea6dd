package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/brojonat/sbi/service/report"
)

// Reply texts.
const (
	MessageWelcome        = "Welcome to the Solana's Bureau of Investigation Bot! Use /track to track a wallet or /memecoins for token info."
	MessageTrackUsage     = "Please provide a wallet address. Example: /track <wallet_address>"
	MessageInvalidAddress = "Please provide a valid Solana wallet address. Example: /track <wallet_address>"
	MessageFailure        = "Failed to retrieve wallet data. Please try again later."
	MessageMemecoins      = "Fetching memecoin details is under construction 🚧"
)

// ReportBuilder renders the wallet report for an address.
type ReportBuilder interface {
	BuildTrackReport(ctx context.Context, addressText string) (string, error)
}

// RegisterHandlers binds start, track and memecoins on d.
func RegisterHandlers(d *Dispatcher, builder ReportBuilder, logger *slog.Logger) {
	d.Register("start", handleStart(logger))
	d.Register("track", handleTrack(builder, logger))
	d.Register("memecoins", handleMemecoins(logger))
}

func handleStart(logger *slog.Logger) HandlerFunc {
	return func(ctx context.Context, cmd Command, reply Reply) Outcome {
		return send(ctx, logger, cmd, reply, MessageWelcome, OutcomeOK)
	}
}

// handleTrack answers /track <address> with the wallet report.
// Extra arguments after the address are ignored.
func handleTrack(builder ReportBuilder, logger *slog.Logger) HandlerFunc {
	return func(ctx context.Context, cmd Command, reply Reply) Outcome {
		if len(cmd.Args) == 0 {
			return send(ctx, logger, cmd, reply, MessageTrackUsage, OutcomeUsage)
		}

		text, err := builder.BuildTrackReport(ctx, cmd.Args[0])
		switch {
		case err == nil:
			return send(ctx, logger, cmd, reply, text, OutcomeOK)
		case errors.Is(err, report.ErrInvalidAddress):
			logger.DebugContext(ctx, "invalid address", "address", cmd.Args[0], "error", err)
			return send(ctx, logger, cmd, reply, MessageInvalidAddress, OutcomeInvalidAddress)
		default:
			logger.ErrorContext(ctx, "failed to build wallet report", "address", cmd.Args[0], "error", err)
			return send(ctx, logger, cmd, reply, MessageFailure, OutcomeUpstreamError)
		}
	}
}

func handleMemecoins(logger *slog.Logger) HandlerFunc {
	return func(ctx context.Context, cmd Command, reply Reply) Outcome {
		return send(ctx, logger, cmd, reply, MessageMemecoins, OutcomeOK)
	}
}

func send(ctx context.Context, logger *slog.Logger, cmd Command, reply Reply, text string, outcome Outcome) Outcome {
	if err := reply(ctx, text); err != nil {
		logger.ErrorContext(ctx, "failed to send reply", "command", cmd.Name, "error", err)
		return OutcomeReplyError
	}
	return outcome
}
