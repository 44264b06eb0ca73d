package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/arenasync/internal/adapters/clock"
	"github.com/okian/arenasync/internal/domain/model"
	"github.com/okian/arenasync/internal/domain/playback"
	"github.com/okian/arenasync/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithPinnedEvent tracks one event by id instead of following the current event.
func WithPinnedEvent(id model.ID) Option {
	return func(s *Session) {
		s.pinned = id
	}
}

// WithClock sets the tick source. Tests pass a source over a fake clock.
func WithClock(src *clock.Source) Option {
	return func(s *Session) {
		if src != nil {
			s.clock = src
		}
	}
}

// WithFetchWorkers sets the number of concurrent fetch workers.
func WithFetchWorkers(count int) Option {
	return func(s *Session) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithResultQueueSize bounds the fetch request and result queues.
func WithResultQueueSize(size int) Option {
	return func(s *Session) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRequestTimeout bounds each fetch.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithOverlayGrace sets the overlay's hard timeout.
func WithOverlayGrace(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.overlayGrace = d
		}
	}
}

// WithMinFetchGap sets a floor between two scheduled fetches.
func WithMinFetchGap(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.minGap = d
		}
	}
}

// WithPlaybackOptions configures log playback pacing and interpolation.
func WithPlaybackOptions(opts ...playback.Option) Option {
	return func(s *Session) {
		s.playbackOpts = append(s.playbackOpts, opts...)
	}
}

// WithBetBounds sets the accepted commit amount range.
func WithBetBounds(lo, hi decimal.Decimal) Option {
	return func(s *Session) {
		if lo.IsPositive() && hi.GreaterThanOrEqual(lo) {
			s.minBet, s.maxBet = lo, hi
		}
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithLogger sets a custom logger for the session.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}
