package reloadable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	units "github.com/docker/go-units"
	"github.com/projecteru2/core/log"
	"github.com/sourcegraph/conc/panics"

	"github.com/karupanerura/reloadable/internal/panicutil"
	"github.com/karupanerura/reloadable/metrics"
)

// Container holds a snapshot of T parsed from a Source and re-reads it when the snapshot becomes stale.
// Staleness is checked on every data access; there is no background timer.
//
// A Container is not safe for concurrent use. Callers sharing one across goroutines
// must synchronize externally.
type Container[T any] struct {
	source Source
	parser Parser[T]
	empty  func() T
	size   func(T) int
	opts   options

	data         T
	lastReloadAt time.Time
}

// New creates a new Container and performs the first reload.
// The empty function returns the value held while the backing content does not exist.
// A missing backing content is not an error; any other open, read or parse error is returned.
func New[T any](src Source, parser Parser[T], empty func() T, opts ...Option) (*Container[T], error) {
	return newContainer(src, parser, empty, nil, newOptions(opts))
}

func newContainer[T any](src Source, parser Parser[T], empty func() T, size func(T) int, o options) (*Container[T], error) {
	if o.interval < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNegativeInterval, o.interval)
	}

	c := &Container[T]{
		source:       src,
		parser:       parser,
		empty:        empty,
		size:         size,
		opts:         o,
		lastReloadAt: o.clock.Now(),
	}
	c.data = empty()
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the backing content and replaces the snapshot.
//
// The reload time is recorded before the content is read, so a failed reload is not retried
// until the snapshot becomes stale again. If the backing content does not exist, the snapshot
// is reset to the empty value. On any other error the previous snapshot is kept.
func (c *Container[T]) Reload() error {
	startedAt := c.opts.clock.Now()
	if startedAt.After(c.lastReloadAt) {
		c.lastReloadAt = startedAt
	}

	ctx := c.opts.context()
	name := c.sourceName()
	outcome, err := c.load(ctx, name)
	c.opts.recorder.ObserveReload(ctx, name, outcome, c.opts.clock.Now().Sub(startedAt))
	if err != nil {
		log.WithFunc("reloadable.Reload").Warnf(ctx, "keep previous snapshot of %s: %v", name, err)
		return err
	}
	return nil
}

func (c *Container[T]) load(ctx context.Context, name string) (metrics.Outcome, error) {
	rc, err := c.source.Open(ctx)
	if errors.Is(err, fs.ErrNotExist) {
		log.WithFunc("reloadable.Reload").Debugf(ctx, "%s does not exist, reset to empty", name)
		c.replace(ctx, name, c.empty())
		return metrics.OutcomeMissing, nil
	} else if err != nil {
		return metrics.OutcomeFailed, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()

	var r io.Reader = rc
	var limited *sizeLimitedReader
	if c.opts.maxSize > 0 {
		limited = &sizeLimitedReader{r: rc, remaining: c.opts.maxSize, limit: c.opts.maxSize}
		r = limited
	}

	data, err := panicutil.Catch(func() (T, error) {
		return c.parser.Parse(r)
	})
	switch {
	case limited != nil && limited.exceeded:
		return metrics.OutcomeFailed, fmt.Errorf("read %s: %w (limit %s)", name, ErrTooLarge, units.BytesSize(float64(limited.limit)))
	case isRecovered(err):
		return metrics.OutcomeFailed, fmt.Errorf("parse %s: %w: %w", name, ErrParserPanicked, err)
	case err != nil:
		return metrics.OutcomeFailed, fmt.Errorf("parse %s: %w", name, err)
	}

	c.replace(ctx, name, data)
	return metrics.OutcomeLoaded, nil
}

func (c *Container[T]) replace(ctx context.Context, name string, data T) {
	c.data = data
	if c.size != nil {
		c.opts.recorder.ObserveSize(ctx, name, c.size(data))
	}
}

// ensureFresh reloads the snapshot if the staleness policy says so.
func (c *Container[T]) ensureFresh() error {
	if c.opts.policy.IsStale(c.opts.clock.Now(), c.lastReloadAt, c.opts.interval) {
		return c.Reload()
	}
	return nil
}

// Snapshot returns the current snapshot after reloading it if stale.
// The returned value is shared with the container until the next reload replaces it.
func (c *Container[T]) Snapshot() (T, error) {
	if err := c.ensureFresh(); err != nil {
		var zero T
		return zero, err
	}
	return c.data, nil
}

// LastReloadAt returns the time the last reload was attempted.
func (c *Container[T]) LastReloadAt() time.Time {
	return c.lastReloadAt
}

// ReloadInterval returns the minimum interval between reloads triggered by access.
func (c *Container[T]) ReloadInterval() time.Duration {
	return c.opts.interval
}

// Source returns the backing source.
func (c *Container[T]) Source() Source {
	return c.source
}

// current returns the snapshot for rendering; a failed reload is logged and the kept snapshot is used.
func (c *Container[T]) current() T {
	if err := c.ensureFresh(); err != nil {
		log.WithFunc("reloadable.String").Warnf(c.opts.context(), "render stale snapshot of %s: %v", c.sourceName(), err)
	}
	return c.data
}

func (c *Container[T]) sourceName() string {
	if s, ok := c.source.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", c.source)
}

func isRecovered(err error) bool {
	var recovered *panics.ErrRecovered
	return errors.As(err, &recovered)
}

// sizeLimitedReader fails reads once more than limit bytes have been read.
type sizeLimitedReader struct {
	r         io.Reader
	remaining int64
	limit     int64
	exceeded  bool
}

func (l *sizeLimitedReader) Read(p []byte) (int, error) {
	if l.exceeded {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return 0, ErrTooLarge
	}
	return n, err
}
