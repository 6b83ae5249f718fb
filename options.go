package reloadable

import (
	"context"
	"time"

	"github.com/karupanerura/reloadable/metrics"
	"github.com/karupanerura/reloadable/staleness"
)

// DefaultReloadInterval is the default minimum interval between reloads triggered by access.
var DefaultReloadInterval = 60 * time.Second

// Option is the interface for the options of the containers.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) {
	f(o)
}

// WithReloadInterval sets the minimum interval between reloads triggered by access.
// Zero means the content is reloaded on every access.
// A negative interval is rejected when the container is created.
func WithReloadInterval(interval time.Duration) Option {
	return optionFunc(func(o *options) {
		o.interval = interval
	})
}

// WithClock sets the clock to the container.
func WithClock(clock Clock) Option {
	return optionFunc(func(o *options) {
		o.clock = clock
	})
}

// WithPolicy sets the staleness policy to the container.
// The default policy is staleness.IntervalPolicy.
func WithPolicy(policy staleness.Policy) Option {
	return optionFunc(func(o *options) {
		o.policy = policy
	})
}

// WithMaxSize limits the size of the backing content in bytes.
// Zero means no limit.
func WithMaxSize(maxSize int64) Option {
	if maxSize < 0 {
		panic("maxSize must not be negative")
	}
	return optionFunc(func(o *options) {
		o.maxSize = maxSize
	})
}

// WithRecorder sets the metrics recorder to the container.
func WithRecorder(recorder metrics.Recorder) Option {
	return optionFunc(func(o *options) {
		o.recorder = recorder
	})
}

// WithContextProvider sets the provider of the context passed to Source.Open.
// The provider must return a new context for each call.
// The default context provider is context.Background.
func WithContextProvider(provider func() context.Context) Option {
	return optionFunc(func(o *options) {
		o.context = provider
	})
}

// WithRecordDecoder sets the structured-text decoder used by Record.
// The default decoder is JSONDecoder. Other containers ignore it.
func WithRecordDecoder(decoder RecordDecoder) Option {
	return optionFunc(func(o *options) {
		o.recordDecoder = decoder
	})
}

type options struct {
	interval      time.Duration
	clock         Clock
	policy        staleness.Policy
	maxSize       int64
	recorder      metrics.Recorder
	context       func() context.Context
	recordDecoder RecordDecoder
}

func defaultOptions() options {
	return options{
		interval:      DefaultReloadInterval,
		clock:         SystemClock,
		policy:        staleness.IntervalPolicy{},
		recorder:      metrics.NopRecorder{},
		context:       context.Background,
		recordDecoder: JSONDecoder{},
	}
}

func newOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	return o
}
