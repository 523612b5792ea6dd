package report

import "errors"

var (
	// ErrInvalidAddress means the address text is not a base58 public key.
	// No lookups are attempted.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrUpstreamUnavailable means an essential lookup failed.
	ErrUpstreamUnavailable = errors.New("wallet data unavailable")
)
