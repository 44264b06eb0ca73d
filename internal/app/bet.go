package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/okian/arenasync/internal/domain/model"
	"github.com/okian/arenasync/pkg/logger"
	"github.com/okian/arenasync/pkg/metrics"
)

// PlaceBet commits amount on choiceID for the tracked event. Refusals are
// returned as *model.CommitError; polling is not affected by a failure.
// On success an immediate refresh is requested so the commitment shows up
// in the view without waiting for the next due fetch.
func (s *Session) PlaceBet(ctx context.Context, choiceID model.ID, amount decimal.Decimal) (model.Commitment, error) {
	if amount.LessThan(s.minBet) || amount.GreaterThan(s.maxBet) {
		metrics.RecordCommit(commitOutcome(model.ErrInvalidAmount))
		return model.Commitment{}, &model.CommitError{
			Kind:    model.ErrInvalidAmount,
			Message: fmt.Sprintf("amount must be between %s and %s", s.minBet, s.maxBet),
		}
	}

	ev := s.View().Event
	if ev == nil {
		metrics.RecordCommit(commitOutcome(model.ErrEventNotFound))
		return model.Commitment{}, &model.CommitError{Kind: model.ErrEventNotFound, Message: "no event tracked"}
	}
	if !ev.HasParticipant(choiceID) {
		metrics.RecordCommit(commitOutcome(model.ErrInvalidChoice))
		return model.Commitment{}, &model.CommitError{
			Kind:    model.ErrInvalidChoice,
			Message: fmt.Sprintf("%q is not a participant of event %s", choiceID, ev.ID),
		}
	}

	c, err := s.backend.PlaceBet(ctx, ev.ID, choiceID, amount)
	if err != nil {
		var ce *model.CommitError
		if errors.As(err, &ce) {
			metrics.RecordCommit(commitOutcome(ce.Kind))
		} else {
			metrics.RecordCommit("error")
			err = fmt.Errorf("place bet: %w", err)
		}
		s.logger.Warn(ctx, "bet refused",
			logger.String("event_id", ev.ID.String()),
			logger.String("choice_id", choiceID.String()),
			logger.String("amount", amount.String()),
			logger.Error(err),
		)
		return model.Commitment{}, err
	}

	metrics.RecordCommit("accepted")
	s.logger.Info(ctx, "bet placed",
		logger.String("event_id", ev.ID.String()),
		logger.String("choice_id", choiceID.String()),
		logger.String("amount", amount.String()),
	)
	s.Refresh()
	return c, nil
}

// commitOutcome turns a commit kind into a metric label.
func commitOutcome(kind error) string {
	if kind == nil {
		return "error"
	}
	return strings.ReplaceAll(kind.Error(), " ", "_")
}
