// Package datadog provides a reload metrics recorder publishing to a DataDog agent over StatsD.
package datadog

import (
	"context"
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/projecteru2/core/log"

	"github.com/karupanerura/reloadable/metrics"
)

// Metric names, relative to the configured namespace.
const (
	ReloadMetric   = "reloadable.reload"
	DurationMetric = "reloadable.reload.duration"
	EntriesMetric  = "reloadable.entries"
)

// Config is the connection setting of the StatsD client.
type Config struct {
	AgentHost string
	Port      int

	// Prefix is prepended to every metric name with a dot separator.
	Prefix string

	// Tags are attached to every metric.
	Tags []string
}

// Recorder implements metrics.Recorder using the DataDog StatsD client.
type Recorder struct {
	client statsd.ClientInterface
}

var _ metrics.Recorder = (*Recorder)(nil)

// NewRecorder creates a new Recorder connected to the agent.
func NewRecorder(cfg Config) (*Recorder, error) {
	addr := fmt.Sprintf("%s:%d", cfg.AgentHost, cfg.Port)

	opts := []statsd.Option{statsd.WithTags(cfg.Tags)}
	if cfg.Prefix != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Prefix+"."))
	}
	client, err := statsd.New(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("create statsd client: %w", err)
	}
	return NewRecorderWithClient(client), nil
}

// NewRecorderWithClient creates a new Recorder using the given client.
func NewRecorderWithClient(client statsd.ClientInterface) *Recorder {
	return &Recorder{client: client}
}

// ObserveReload counts the reload attempt tagged with its source and outcome, and records its duration.
func (r *Recorder) ObserveReload(ctx context.Context, source string, outcome metrics.Outcome, elapsed time.Duration) {
	tags := []string{"source:" + source, "outcome:" + string(outcome)}
	if err := r.client.Incr(ReloadMetric, tags, 1); err != nil {
		log.WithFunc("datadog.ObserveReload").Debugf(ctx, "send %s: %v", ReloadMetric, err)
	}
	if err := r.client.Timing(DurationMetric, elapsed, tags, 1); err != nil {
		log.WithFunc("datadog.ObserveReload").Debugf(ctx, "send %s: %v", DurationMetric, err)
	}
}

// ObserveSize records the number of entries as a gauge tagged with the source.
func (r *Recorder) ObserveSize(ctx context.Context, source string, entries int) {
	if err := r.client.Gauge(EntriesMetric, float64(entries), []string{"source:" + source}, 1); err != nil {
		log.WithFunc("datadog.ObserveSize").Debugf(ctx, "send %s: %v", EntriesMetric, err)
	}
}

// Close flushes and closes the client.
func (r *Recorder) Close() error {
	return r.client.Close()
}
