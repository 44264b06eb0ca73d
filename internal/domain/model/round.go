package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RoundRecord is one step of a completed event's result log.
type RoundRecord struct {
	ActorID   string  `json:"attacker"`
	TargetID  string  `json:"defender"`
	Action    string  `json:"action"`
	Magnitude float64 `json:"damage"`
	// RemainingValue is the target's value after the round. Nil when the backend omitted it.
	RemainingValue *float64 `json:"remaining_hp,omitempty"`
	Narrative      string   `json:"description"`
	Category       Category `json:"category"`
}

// Remaining returns the round's remaining value, or fallback when absent.
func (r RoundRecord) Remaining(fallback float64) float64 {
	if r.RemainingValue == nil {
		return fallback
	}
	return *r.RemainingValue
}

// normalize clamps negative remaining values and classifies the narrative.
func (r *RoundRecord) normalize() {
	if r.RemainingValue != nil && *r.RemainingValue < 0 {
		zero := 0.0
		r.RemainingValue = &zero
	}
	r.Category = ClassifyRound(*r)
}

// ResultLog is the combat log attached to a completed event.
type ResultLog struct {
	Winner      string        `json:"winner,omitempty"`
	Description string        `json:"battle_description,omitempty"`
	Rounds      []RoundRecord `json:"battle_log"`
}

// UnmarshalJSON accepts both the wrapped object form
// {"winner": ..., "battle_log": [...]} and a bare array of rounds.
// An object without rounds leaves Rounds nil (log not yet available).
func (l *ResultLog) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*l = ResultLog{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] == '[' {
		if err := json.Unmarshal(b, &l.Rounds); err != nil {
			return fmt.Errorf("%w: battle_log: %w", ErrMalformedEvent, err)
		}
	} else {
		type plain ResultLog
		var v plain
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("%w: battle_log: %w", ErrMalformedEvent, err)
		}
		*l = ResultLog(v)
	}

	for i := range l.Rounds {
		l.Rounds[i].normalize()
	}
	return nil
}

// NewRound builds a normalized round record.
func NewRound(actor, target string, magnitude, remaining float64, narrative string) RoundRecord {
	r := RoundRecord{
		ActorID:        actor,
		TargetID:       target,
		Magnitude:      magnitude,
		RemainingValue: &remaining,
		Narrative:      narrative,
	}
	r.normalize()
	return r
}
