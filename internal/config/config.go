// Package config defines process configuration and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Durations are configured in milliseconds and exposed as time.Duration via accessors.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the status API listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// BackendURL is the base URL of the battle backend, e.g. "https://arena.example.com".
	BackendURL string `koanf:"backend_url"`

	// AuthToken is sent as a bearer token when set.
	AuthToken string `koanf:"auth_token"`

	// BattleID pins the session to one event. Empty follows the current event.
	BattleID string `koanf:"battle_id"`

	// RequestTimeoutMS bounds each backend request.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// TickIntervalMS is the nominal clock tick period.
	TickIntervalMS int `koanf:"tick_interval_ms"`

	// OverlayGraceMS is the overlay's hard timeout after it is shown.
	OverlayGraceMS int `koanf:"overlay_grace_ms"`

	// MinFetchGapMS is an optional floor between two scheduled fetches. Zero disables it.
	MinFetchGapMS int `koanf:"min_fetch_gap_ms"`

	// FetchWorkers sets the number of concurrent fetch workers.
	FetchWorkers int `koanf:"fetch_workers"`

	// ResultQueueSize bounds the fetch result inbox.
	ResultQueueSize int `koanf:"result_queue_size"`

	// RoundIntervalMS, InterpSteps and InterpStepMS pace log playback.
	RoundIntervalMS int `koanf:"round_interval_ms"`
	InterpSteps     int `koanf:"interp_steps"`
	InterpStepMS    int `koanf:"interp_step_ms"`

	// BaselineValue is the tracked value before the first round.
	BaselineValue float64 `koanf:"baseline_value"`

	// MinBet and MaxBet bound commit amounts.
	MinBet int64 `koanf:"min_bet"`
	MaxBet int64 `koanf:"max_bet"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		BackendURL:       "http://localhost:8000",
		RequestTimeoutMS: 5_000,
		TickIntervalMS:   1_000,
		OverlayGraceMS:   20_000,
		MinFetchGapMS:    0,
		FetchWorkers:     2,
		ResultQueueSize:  64,
		RoundIntervalMS:  1_000,
		InterpSteps:      20,
		InterpStepMS:     20,
		BaselineValue:    100,
		MinBet:           10,
		MaxBet:           10_000,
	}
}

// Validate checks ranges and relations between fields.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.BackendURL == "":
		return fmt.Errorf("%w: backend_url must not be empty", ErrInvalidConfig)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case c.TickIntervalMS <= 0:
		return fmt.Errorf("%w: tick_interval_ms must be positive", ErrInvalidConfig)
	case c.OverlayGraceMS <= 0:
		return fmt.Errorf("%w: overlay_grace_ms must be positive", ErrInvalidConfig)
	case c.MinFetchGapMS < 0:
		return fmt.Errorf("%w: min_fetch_gap_ms must not be negative", ErrInvalidConfig)
	case c.FetchWorkers <= 0:
		return fmt.Errorf("%w: fetch_workers must be positive", ErrInvalidConfig)
	case c.ResultQueueSize <= 0:
		return fmt.Errorf("%w: result_queue_size must be positive", ErrInvalidConfig)
	case c.RoundIntervalMS <= 0 || c.InterpSteps <= 0 || c.InterpStepMS <= 0:
		return fmt.Errorf("%w: playback pacing must be positive", ErrInvalidConfig)
	case c.InterpSteps*c.InterpStepMS > c.RoundIntervalMS:
		return fmt.Errorf("%w: interpolation must fit inside round_interval_ms", ErrInvalidConfig)
	case c.BaselineValue < 0:
		return fmt.Errorf("%w: baseline_value must not be negative", ErrInvalidConfig)
	case c.MinBet <= 0 || c.MaxBet < c.MinBet:
		return fmt.Errorf("%w: bet bounds must satisfy 0 < min_bet <= max_bet", ErrInvalidConfig)
	}
	return nil
}

// RequestTimeout returns the per-request backend timeout.
func (c *Config) RequestTimeout() time.Duration { return ms(c.RequestTimeoutMS) }

// TickInterval returns the clock tick period.
func (c *Config) TickInterval() time.Duration { return ms(c.TickIntervalMS) }

// OverlayGrace returns the overlay timeout.
func (c *Config) OverlayGrace() time.Duration { return ms(c.OverlayGraceMS) }

// MinFetchGap returns the scheduler's fetch floor.
func (c *Config) MinFetchGap() time.Duration { return ms(c.MinFetchGapMS) }

// RoundInterval returns the pause between two revealed rounds.
func (c *Config) RoundInterval() time.Duration { return ms(c.RoundIntervalMS) }

// InterpStep returns the period between two interpolation steps.
func (c *Config) InterpStep() time.Duration { return ms(c.InterpStepMS) }

// BetBounds returns the inclusive commit amount bounds.
func (c *Config) BetBounds() (decimal.Decimal, decimal.Decimal) {
	return decimal.NewFromInt(c.MinBet), decimal.NewFromInt(c.MaxBet)
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
