// Package polling decides when the next snapshot fetch is due.
package polling

import (
	"time"

	"github.com/okian/arenasync/internal/domain/phase"
)

// Reference intervals.
const (
	DiscoveryInterval  = 10 * time.Second
	ScheduledInterval  = 10 * time.Second
	InProgressInterval = 3 * time.Second
)

type tier struct {
	below    time.Duration
	interval time.Duration
}

// Tiers are checked in order; the first whose bound exceeds the time to deadline wins.
var ( //nolint:gochecknoglobals // immutable tier tables
	bettingOpenTiers = []tier{
		{30 * time.Second, 2 * time.Second},
		{60 * time.Second, 5 * time.Second},
	}
	bettingOpenDefault = 15 * time.Second

	bettingClosedTiers = []tier{
		{10 * time.Second, 1 * time.Second},
		{30 * time.Second, 3 * time.Second},
	}
	bettingClosedDefault = 10 * time.Second
)

// Interval returns the polling interval for an event in phase p whose
// relevant deadline is ttd away. Terminal phases return 0 (no polling);
// Unknown returns the discovery interval.
func Interval(p phase.Phase, ttd time.Duration) time.Duration {
	switch p {
	case phase.BettingOpen:
		return tiered(bettingOpenTiers, bettingOpenDefault, ttd)
	case phase.BettingClosed:
		return tiered(bettingClosedTiers, bettingClosedDefault, ttd)
	case phase.InProgress:
		return InProgressInterval
	case phase.Scheduled:
		return ScheduledInterval
	case phase.Completed, phase.Cancelled:
		return 0
	default:
		return DiscoveryInterval
	}
}

func tiered(tiers []tier, fallback, ttd time.Duration) time.Duration {
	for _, t := range tiers {
		if ttd < t.below {
			return t.interval
		}
	}
	return fallback
}
