package metrics

import (
	"context"
	"time"
)

// Outcome is the result of one reload attempt.
type Outcome string

const (
	// OutcomeLoaded means the backing content was read and parsed.
	OutcomeLoaded Outcome = "loaded"
	// OutcomeMissing means the backing content did not exist and the container was reset to empty.
	OutcomeMissing Outcome = "missing"
	// OutcomeFailed means the reload returned an error and the previous snapshot was kept.
	OutcomeFailed Outcome = "failed"
)

// Recorder is an interface for recording reload metrics.
// Implementations must be thread-safe.
type Recorder interface {
	// ObserveReload records one reload attempt of the named source.
	ObserveReload(ctx context.Context, source string, outcome Outcome, elapsed time.Duration)

	// ObserveSize records the number of entries of a freshly loaded snapshot.
	ObserveSize(ctx context.Context, source string, entries int)
}

// NopRecorder is a recorder that discards everything.
type NopRecorder struct{}

var _ Recorder = NopRecorder{}

// ObserveReload does nothing.
func (NopRecorder) ObserveReload(context.Context, string, Outcome, time.Duration) {}

// ObserveSize does nothing.
func (NopRecorder) ObserveSize(context.Context, string, int) {}

// MultiRecorder fans out every observation to all recorders in order.
type MultiRecorder []Recorder

var _ Recorder = MultiRecorder(nil)

// ObserveReload calls ObserveReload of every recorder.
func (m MultiRecorder) ObserveReload(ctx context.Context, source string, outcome Outcome, elapsed time.Duration) {
	for _, r := range m {
		r.ObserveReload(ctx, source, outcome, elapsed)
	}
}

// ObserveSize calls ObserveSize of every recorder.
func (m MultiRecorder) ObserveSize(ctx context.Context, source string, entries int) {
	for _, r := range m {
		r.ObserveSize(ctx, source, entries)
	}
}
