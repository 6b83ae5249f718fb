package staleness

import (
	"math/rand/v2"
	"time"
)

// Policy is the interface for the staleness checker.
// Implementations determine when a snapshot should be reloaded on access.
type Policy interface {
	// IsStale returns true if the snapshot must be reloaded.
	// The now parameter represents the current time, lastReloadAt is the time the last reload was attempted,
	// and interval is the configured reload interval.
	IsStale(now, lastReloadAt time.Time, interval time.Duration) bool
}

// IntervalPolicy is a policy that reloads once strictly more than the interval has elapsed.
type IntervalPolicy struct{}

var _ Policy = IntervalPolicy{}

// IsStale returns true if now - lastReloadAt > interval.
// An elapsed time equal to the interval is still fresh.
func (IntervalPolicy) IsStale(now, lastReloadAt time.Time, interval time.Duration) bool {
	return now.Sub(lastReloadAt) > interval
}

// NeverPolicy is a policy that never reloads on access.
// Snapshots change only through an explicit Reload call.
type NeverPolicy struct{}

var _ Policy = NeverPolicy{}

// IsStale always returns false.
func (NeverPolicy) IsStale(now, lastReloadAt time.Time, interval time.Duration) bool {
	return false
}

// JitterPolicy is a policy that can reload a snapshot before the interval has fully elapsed.
// Many processes reading the same file with the same interval otherwise tend to reload in lockstep.
type JitterPolicy struct {
	// Duration is how much earlier the snapshot can become stale.
	Duration time.Duration

	// Percentage is the chance (between 0 and 1) that the snapshot becomes stale early.
	// A value of 0 behaves like IntervalPolicy, while 1 always reloads Duration early.
	Percentage float64

	// Random is the random number generator to decide early reloads.
	// If not set, the default system random generator is used.
	Random *rand.Rand
}

var _ Policy = (*JitterPolicy)(nil)

// IsStale checks if the snapshot is stale.
// With probability (1-Percentage) it behaves like IntervalPolicy,
// otherwise it checks if (now + Duration) - lastReloadAt > interval.
func (p *JitterPolicy) IsStale(now, lastReloadAt time.Time, interval time.Duration) bool {
	if p.randFloat64() > p.Percentage {
		return now.Sub(lastReloadAt) > interval
	}
	return now.Add(p.Duration).Sub(lastReloadAt) > interval
}

func (p *JitterPolicy) randFloat64() float64 {
	if p.Random == nil {
		return rand.Float64()
	}
	return p.Random.Float64()
}
