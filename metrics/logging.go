package metrics

import (
	"context"
	"time"

	"github.com/projecteru2/core/log"
)

// LoggingRecorder writes every observation to the eru core logger.
type LoggingRecorder struct{}

var _ Recorder = LoggingRecorder{}

// ObserveReload logs the reload attempt.
// Failed reloads are logged at warning level, others at debug level.
func (LoggingRecorder) ObserveReload(ctx context.Context, source string, outcome Outcome, elapsed time.Duration) {
	logger := log.WithFunc("metrics.ObserveReload")
	if outcome == OutcomeFailed {
		logger.Warnf(ctx, "reload of %s failed after %s", source, elapsed)
		return
	}
	logger.Debugf(ctx, "reload of %s %s in %s", source, outcome, elapsed)
}

// ObserveSize logs the size of the loaded snapshot.
func (LoggingRecorder) ObserveSize(ctx context.Context, source string, entries int) {
	log.WithFunc("metrics.ObserveSize").Debugf(ctx, "%s holds %d entries", source, entries)
}
