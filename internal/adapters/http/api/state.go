package api

import (
	"net/http"
	"time"
)

// StateHandler serves read-only session state.
type StateHandler struct {
	deps Dependencies
}

// NewStateHandler creates a new state handler.
func NewStateHandler(deps Dependencies) *StateHandler {
	return &StateHandler{deps: deps}
}

// HandleState handles GET /state requests.
func (h *StateHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.View())
}

type countdownResponse struct {
	Hours   int64  `json:"hours"`
	Minutes int64  `json:"minutes"`
	Seconds int64  `json:"seconds"`
	Expired bool   `json:"expired"`
	Phase   string `json:"phase,omitempty"`
	Target  string `json:"target,omitempty"`
}

// HandleCountdown handles GET /countdown requests.
func (h *StateHandler) HandleCountdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	v := h.deps.View()
	if !v.Tracking() {
		writeError(w, r, "api.countdown", http.StatusNotFound, "not_found", ErrNoEvent)
		return
	}
	rem := h.deps.Countdown()
	resp := countdownResponse{
		Hours:   rem.Hours,
		Minutes: rem.Minutes,
		Seconds: rem.Seconds,
		Expired: rem.Expired,
		Phase:   v.Phase.String(),
	}
	if !v.CountdownTarget.IsZero() {
		resp.Target = v.CountdownTarget.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}
