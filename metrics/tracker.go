package metrics

import (
	"context"
	"sync/atomic"
	"time"
)

// Tracker is a recorder that keeps in-process counters over all sources.
type Tracker struct {
	loaded  atomic.Int64
	missing atomic.Int64
	failed  atomic.Int64

	lastElapsed atomic.Int64
	lastEntries atomic.Int64
}

var _ Recorder = (*Tracker)(nil)

// Stats is a point-in-time copy of the counters of a Tracker.
type Stats struct {
	Loaded      int64
	Missing     int64
	Failed      int64
	LastElapsed time.Duration
	LastEntries int
}

// Reloads returns the total number of reload attempts.
func (s Stats) Reloads() int64 {
	return s.Loaded + s.Missing + s.Failed
}

// ObserveReload counts the reload attempt by its outcome.
func (t *Tracker) ObserveReload(_ context.Context, _ string, outcome Outcome, elapsed time.Duration) {
	switch outcome {
	case OutcomeLoaded:
		t.loaded.Add(1)
	case OutcomeMissing:
		t.missing.Add(1)
	case OutcomeFailed:
		t.failed.Add(1)
	}
	t.lastElapsed.Store(int64(elapsed))
}

// ObserveSize keeps the latest number of entries.
func (t *Tracker) ObserveSize(_ context.Context, _ string, entries int) {
	t.lastEntries.Store(int64(entries))
}

// Stats returns the current counters.
func (t *Tracker) Stats() Stats {
	return Stats{
		Loaded:      t.loaded.Load(),
		Missing:     t.missing.Load(),
		Failed:      t.failed.Load(),
		LastElapsed: time.Duration(t.lastElapsed.Load()),
		LastEntries: int(t.lastEntries.Load()),
	}
}
