package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/okian/arenasync/internal/domain/model"
)

// betRequest is the body of POST /bets. Amount accepts a JSON number or string.
type betRequest struct {
	ChoiceID string          `json:"choice_id"`
	Amount   decimal.Decimal `json:"amount"`
}

func (b betRequest) validate() error {
	switch {
	case strings.TrimSpace(b.ChoiceID) == "":
		return errors.New("missing choice_id")
	case !b.Amount.IsPositive():
		return errors.New("amount must be positive")
	}
	return nil
}

// BetsHandler handles commitment requests.
type BetsHandler struct {
	deps Dependencies
}

// NewBetsHandler creates a new bets handler.
func NewBetsHandler(deps Dependencies) *BetsHandler {
	return &BetsHandler{deps: deps}
}

// HandlePostBet handles POST /bets requests.
func (h *BetsHandler) HandlePostBet(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_bet"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req betRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, op, http.StatusBadRequest, "bad_request", withCause(ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, op, http.StatusBadRequest, "bad_request", withCause(ErrBadRequest, err))
		return
	}

	c, err := h.deps.PlaceBet(r.Context(), model.ID(strings.TrimSpace(req.ChoiceID)), req.Amount)
	if err != nil {
		status, code := commitStatus(err)
		writeError(w, r, op, status, code, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// commitStatus maps a commit failure to an HTTP status and error code.
func commitStatus(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidAmount), errors.Is(err, model.ErrInvalidChoice):
		return http.StatusBadRequest, "invalid_bet"
	case errors.Is(err, model.ErrEventNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, model.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(err, model.ErrBettingClosed), errors.Is(err, model.ErrAlreadyCommitted):
		return http.StatusConflict, "conflict"
	case model.IsCommitError(err):
		return http.StatusUnprocessableEntity, "rejected"
	default:
		return http.StatusBadGateway, "upstream_error"
	}
}
