// Package api exposes a session's state, betting and live updates over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	service "github.com/okian/arenasync/internal/app"
	"github.com/okian/arenasync/internal/domain/countdown"
	"github.com/okian/arenasync/internal/domain/model"
	"github.com/okian/arenasync/pkg/logger"
)

// Dependencies required by HTTP handlers. *service.Session satisfies it.
type Dependencies interface {
	View() service.View
	Countdown() countdown.Remaining
	PlaceBet(ctx context.Context, choiceID model.ID, amount decimal.Decimal) (model.Commitment, error)
	Subscribe(buffer int) (<-chan service.Update, func())
}

// Server wires HTTP routes for the status API.
type Server struct {
	healthHandler *HealthHandler
	stateHandler  *StateHandler
	betsHandler   *BetsHandler
	streamHandler *StreamHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := defaultStreamConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		stateHandler:  NewStateHandler(deps),
		betsHandler:   NewBetsHandler(deps),
		streamHandler: newStreamHandler(deps, cfg),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/state", MetricsMiddleware(s.stateHandler.HandleState, "state"))
	mux.HandleFunc("/countdown", MetricsMiddleware(s.stateHandler.HandleCountdown, "countdown"))
	mux.HandleFunc("/bets", MetricsMiddleware(s.betsHandler.HandlePostBet, "bets"))
	// upgraded connections must see the raw writer
	mux.HandleFunc("/stream", s.streamHandler.HandleStream)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Get().Named("api").Debug(context.Background(), "write response failed", logger.Error(err))
	}
}

// writeError answers with code and err's message. op names the handler in
// the log line only.
func writeError(w http.ResponseWriter, r *http.Request, op string, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}

	log := logger.Get().Named("api")
	fields := []logger.Field{
		logger.String("op", op),
		logger.Int("status", status),
		logger.String("code", code),
		logger.String("error", msg),
	}
	if status >= http.StatusInternalServerError {
		log.Warn(r.Context(), "request failed", fields...)
	} else {
		log.Debug(r.Context(), "request refused", fields...)
	}

	if n, ok := w.(codeNoter); ok {
		n.noteCode(code)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
