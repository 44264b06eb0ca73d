// Package countdown computes the remaining time until a phase deadline.
package countdown

import (
	"encoding/json"
	"time"
)

// Remaining is the broken-down time left until a target.
type Remaining struct {
	Hours   int64         `json:"hours"`
	Minutes int64         `json:"minutes"`
	Seconds int64         `json:"seconds"`
	Total   time.Duration `json:"-"`
	Expired bool          `json:"expired"`
}

// Compute returns the time from now until target. A zero or past target
// yields an all-zero, expired result. Hours are not wrapped at 24.
func Compute(now, target time.Time) Remaining {
	if target.IsZero() {
		return Remaining{Expired: true}
	}
	total := target.Sub(now)
	if total <= 0 {
		return Remaining{Expired: true}
	}
	secs := int64(total / time.Second)
	return Remaining{
		Hours:   secs / 3600,
		Minutes: secs % 3600 / 60,
		Seconds: secs % 60,
		Total:   total,
	}
}

// TotalMS returns the remaining time in milliseconds.
func (r Remaining) TotalMS() int64 {
	return r.Total.Milliseconds()
}

// MarshalJSON adds total_ms next to the broken-down fields.
func (r Remaining) MarshalJSON() ([]byte, error) {
	type plain Remaining
	return json.Marshal(struct {
		plain
		TotalMS int64 `json:"total_ms"`
	}{plain(r), r.TotalMS()})
}
