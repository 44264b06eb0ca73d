package model

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Commitment is the viewing user's bet on an event. Immutable once the backend accepted it.
type Commitment struct {
	ID              ID              `json:"id"`
	EventID         ID              `json:"battle_id,omitempty"`
	ChoiceID        ID              `json:"chosen_fighter"`
	Amount          decimal.Decimal `json:"bet_amount"`
	OddsAtCommit    decimal.Decimal `json:"odds_at_bet"`
	PotentialPayout decimal.Decimal `json:"potential_payout"`
	Payout          decimal.Decimal `json:"payout_amount"`
	Settled         bool            `json:"is_settled"`
	Winner          *bool           `json:"is_winner,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ExpectedPayout is Amount * OddsAtCommit, used when the backend omits potential_payout.
func (c Commitment) ExpectedPayout() decimal.Decimal {
	if !c.PotentialPayout.IsZero() {
		return c.PotentialPayout
	}
	return c.Amount.Mul(c.OddsAtCommit).Round(2)
}

// CommitError is returned when a commit action is refused.
// Kind is one of the Err* commit sentinels and is matched by errors.Is.
type CommitError struct {
	Kind    error
	Status  int
	Message string
}

func (e *CommitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("commit: %v", e.Kind)
	}
	return fmt.Sprintf("commit: %v: %s", e.Kind, e.Message)
}

func (e *CommitError) Unwrap() error { return e.Kind }

// NewCommitError builds a CommitError, inferring Kind from the status and the
// backend's message.
func NewCommitError(status int, message string) *CommitError {
	return &CommitError{Kind: commitKind(status, message), Status: status, Message: message}
}

// Backend refusal messages, mapped to kinds.
var commitMessages = []struct { //nolint:gochecknoglobals // immutable lookup table
	fragment string
	kind     error
}{
	{"金幣不足", ErrInsufficientFunds},
	{"金币不足", ErrInsufficientFunds},
	{"insufficient", ErrInsufficientFunds},
	{"已經對此戰鬥下注", ErrAlreadyCommitted},
	{"已经对此战斗下注", ErrAlreadyCommitted},
	{"already", ErrAlreadyCommitted},
	{"下注時間已過", ErrBettingClosed},
	{"不接受下注", ErrBettingClosed},
	{"closed", ErrBettingClosed},
	{"下注金額", ErrInvalidAmount},
	{"amount", ErrInvalidAmount},
	{"無效的選手", ErrInvalidChoice},
	{"fighter", ErrInvalidChoice},
}

func commitKind(status int, message string) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return ErrUnauthorized
	}
	lower := strings.ToLower(message)
	for _, m := range commitMessages {
		if strings.Contains(lower, m.fragment) {
			return m.kind
		}
	}
	if status == http.StatusNotFound {
		return ErrEventNotFound
	}
	return ErrCommitRejected
}

// IsCommitError reports whether err is a *CommitError.
func IsCommitError(err error) bool {
	var ce *CommitError
	return errors.As(err, &ce)
}
