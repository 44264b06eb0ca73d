// Package model contains domain models passed between layers.
// JSON field names mirror the battle backend.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/arenasync/internal/domain/phase"
	"github.com/shopspring/decimal"
)

// ID is an opaque backend identifier. The backend sends ids as strings or
// numbers, and nested references as objects carrying an "id" field.
type ID string

// UnmarshalJSON accepts "abc", 42 and {"id": ...}.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	case b[0] == '{':
		var ref struct {
			ID ID `json:"id"`
		}
		if err := json.Unmarshal(b, &ref); err != nil {
			return err
		}
		*id = ref.ID
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*id = ID(n.String())
		return nil
	}
}

func (id ID) String() string { return string(id) }

// Character is the display data of a participant.
type Character struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
	Level    int    `json:"level"`
	Strength int    `json:"strength"`
	Agility  int    `json:"agility"`
	Luck     int    `json:"luck"`
}

// Participant is one of the two competitors of a scheduled event.
type Participant struct {
	ID          ID        `json:"id"`
	Character   Character `json:"character"`
	RankPoints  int       `json:"rank_points"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	CurrentRank int       `json:"current_rank"`
}

// ScheduledEvent is a fetched snapshot of a battle.
type ScheduledEvent struct {
	ID              ID          `json:"id"`
	Phase           phase.Phase `json:"status"`
	ScheduledAt     time.Time   `json:"scheduled_time"`
	BettingStartsAt time.Time   `json:"betting_start_time"`
	BettingEndsAt   time.Time   `json:"betting_end_time"`

	Fighter1 Participant  `json:"fighter1"`
	Fighter2 Participant  `json:"fighter2"`
	Winner   *Participant `json:"winner,omitempty"`

	TotalPool    decimal.Decimal `json:"total_bets_amount"`
	Fighter1Pool decimal.Decimal `json:"fighter1_bets_amount"`
	Fighter2Pool decimal.Decimal `json:"fighter2_bets_amount"`
	Fighter1Odds decimal.Decimal `json:"fighter1_odds"`
	Fighter2Odds decimal.Decimal `json:"fighter2_odds"`

	// ResultLog is nil until the backend attaches the combat log.
	ResultLog *ResultLog `json:"battle_log,omitempty"`

	UserCommitment *Commitment `json:"user_bet,omitempty"`
	CanCommit      *bool       `json:"can_bet,omitempty"`
}

// SnapshotID identifies the event for the phase machine.
func (e ScheduledEvent) SnapshotID() string { return string(e.ID) }

// SnapshotPhase returns the event's phase for the phase machine.
func (e ScheduledEvent) SnapshotPhase() phase.Phase { return e.Phase }

// Participants returns both competitors in backend order.
func (e ScheduledEvent) Participants() [2]Participant {
	return [2]Participant{e.Fighter1, e.Fighter2}
}

// HasParticipant reports whether id names one of the competitors.
func (e ScheduledEvent) HasParticipant(id ID) bool {
	if id == "" {
		return false
	}
	for _, p := range e.Participants() {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Deadline returns the target time of p's countdown:
// Scheduled counts to betting start, BettingOpen to betting end and
// BettingClosed to the scheduled start. Other phases have none.
func (e ScheduledEvent) Deadline(p phase.Phase) (time.Time, bool) {
	var t time.Time
	switch p {
	case phase.Scheduled:
		t = e.BettingStartsAt
	case phase.BettingOpen:
		t = e.BettingEndsAt
	case phase.BettingClosed:
		t = e.ScheduledAt
	default:
		return time.Time{}, false
	}
	return t, !t.IsZero()
}

// CurrentDeadline is Deadline for the event's own phase.
func (e ScheduledEvent) CurrentDeadline() (time.Time, bool) {
	return e.Deadline(e.Phase)
}

// Log returns the result rounds and whether the log is available.
// An attached but empty log is available.
func (e ScheduledEvent) Log() ([]RoundRecord, bool) {
	if e.ResultLog == nil || e.ResultLog.Rounds == nil {
		return nil, false
	}
	return e.ResultLog.Rounds, true
}

// UnmarshalJSON decodes the backend shape and normalizes derived fields.
func (e *ScheduledEvent) UnmarshalJSON(b []byte) error {
	type plain ScheduledEvent
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	*e = ScheduledEvent(v)
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedEvent)
	}
	if e.UserCommitment != nil && e.UserCommitment.EventID == "" {
		e.UserCommitment.EventID = e.ID
	}
	return nil
}
