package model

import "errors"

// ErrMalformedEvent is returned when a snapshot cannot be decoded.
var ErrMalformedEvent = errors.New("malformed event")

// Commit refusal kinds carried by *CommitError.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBettingClosed     = errors.New("betting closed")
	ErrAlreadyCommitted  = errors.New("already committed")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidChoice     = errors.New("invalid choice")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrEventNotFound     = errors.New("event not found")
	ErrCommitRejected    = errors.New("commit rejected")
)
