package service

import (
	"time"

	"github.com/okian/arenasync/internal/domain/countdown"
	"github.com/okian/arenasync/internal/domain/model"
	"github.com/okian/arenasync/internal/domain/overlay"
	"github.com/okian/arenasync/internal/domain/phase"
	"github.com/okian/arenasync/internal/domain/polling"
)

// Session modes.
const (
	ModeFollow = "follow"
	ModePinned = "pinned"
)

// PlaybackStatus reports log playback of the tracked event.
type PlaybackStatus struct {
	EventID  model.ID `json:"event_id,omitempty"`
	Total    int      `json:"total"`
	Revealed int      `json:"revealed"`
	Value    float64  `json:"value"`
	Complete bool     `json:"complete"`
}

// View is the observable state of a session at one instant.
type View struct {
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`

	// Event is nil while no event is tracked.
	Event *model.ScheduledEvent `json:"event,omitempty"`
	Phase phase.Phase           `json:"phase,omitempty"`

	Countdown       countdown.Remaining `json:"countdown"`
	CountdownTarget time.Time           `json:"countdown_target,omitzero"`
	Overlay         overlay.Status      `json:"overlay"`
	Polling         polling.State       `json:"polling"`
	Playback        PlaybackStatus      `json:"playback"`

	// LastError is the last fetch failure, cleared by the next accepted snapshot.
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitzero"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Tracking reports whether an event is held.
func (v View) Tracking() bool { return v.Event != nil }
