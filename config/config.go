// Package config builds reloadable containers from a declarative YAML configuration.
package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	units "github.com/docker/go-units"
	"github.com/projecteru2/core/log"
	coretypes "github.com/projecteru2/core/types"

	"github.com/karupanerura/reloadable"
	"github.com/karupanerura/reloadable/metrics"
	"github.com/karupanerura/reloadable/metrics/datadog"
)

// Kind is the container variant.
type Kind string

const (
	KindList   Kind = "list"
	KindRecord Kind = "record"
)

// Format is the structured-text format of a record file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrInvalidConfig is returned when the configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the configuration of one container.
type Config struct {
	// Path is the backing file of the container.
	Path string `yaml:"path"`
	// Kind selects the container variant.
	Kind Kind `yaml:"kind"`
	// Format is the record file format. Lists ignore it.
	Format Format `yaml:"format"`
	// ReloadEvery is the minimum interval between reloads. Zero reloads on every access.
	ReloadEvery time.Duration `yaml:"reload_every"`
	// MaxSize limits the backing file size, in human readable form such as "4MiB".
	// Empty means no limit.
	MaxSize string `yaml:"max_size"`
	// DataDog configures reload metrics publishing.
	DataDog DataDogConfig `yaml:"datadog"`
	// Log configuration, uses eru core's ServerLogConfig.
	Log coretypes.ServerLogConfig `yaml:"log"`
}

// DataDogConfig holds the DataDog agent setting.
type DataDogConfig struct {
	Enabled   bool     `yaml:"enabled"`
	AgentHost string   `yaml:"agent_host"`
	Port      int      `yaml:"port"`
	Prefix    string   `yaml:"prefix"`
	Tags      []string `yaml:"tags"`
}

// DefaultConfig returns a Config with sensible defaults.
// Path is left empty and must be set before validation.
func DefaultConfig() *Config {
	return &Config{
		Kind:        KindList,
		Format:      FormatJSON,
		ReloadEvery: reloadable.DefaultReloadInterval,
		DataDog: DataDogConfig{
			AgentHost: "localhost",
			Port:      8125,
		},
		Log: coretypes.ServerLogConfig{
			Level:      "info",
			MaxSize:    500,
			MaxAge:     28,
			MaxBackups: 3,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidConfig)
	}
	switch c.Kind {
	case KindList, KindRecord:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidConfig, c.Kind)
	}
	switch c.Format {
	case FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	}
	if c.ReloadEvery < 0 {
		return fmt.Errorf("%w: reload_every must not be negative", ErrInvalidConfig)
	}
	if _, err := c.maxSize(); err != nil {
		return err
	}
	if c.DataDog.Enabled {
		if c.DataDog.AgentHost == "" {
			return fmt.Errorf("%w: datadog.agent_host is required when datadog is enabled", ErrInvalidConfig)
		}
		if c.DataDog.Port <= 0 {
			return fmt.Errorf("%w: datadog.port must be positive", ErrInvalidConfig)
		}
	}
	return nil
}

func (c *Config) maxSize() (int64, error) {
	if c.MaxSize == "" {
		return 0, nil
	}
	n, err := units.RAMInBytes(c.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("%w: max_size: %w", ErrInvalidConfig, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: max_size must not be negative", ErrInvalidConfig)
	}
	return n, nil
}

// SetupLog configures the eru core logger.
func (c *Config) SetupLog(ctx context.Context) error {
	return log.SetupLog(ctx, &c.Log, "")
}

// Options returns the container options described by the configuration.
// The returned close function releases the metrics client; call it once the container is no longer used.
func (c *Config) Options() ([]reloadable.Option, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	maxSize, err := c.maxSize()
	if err != nil {
		return nil, nil, err
	}
	opts := []reloadable.Option{
		reloadable.WithReloadInterval(c.ReloadEvery),
		reloadable.WithMaxSize(maxSize),
	}
	if c.Format == FormatYAML {
		opts = append(opts, reloadable.WithRecordDecoder(reloadable.YAMLDecoder{}))
	}

	closer := func() error { return nil }
	recorder := metrics.Recorder(metrics.LoggingRecorder{})
	if c.DataDog.Enabled {
		dd, err := datadog.NewRecorder(datadog.Config{
			AgentHost: c.DataDog.AgentHost,
			Port:      c.DataDog.Port,
			Prefix:    c.DataDog.Prefix,
			Tags:      c.DataDog.Tags,
		})
		if err != nil {
			return nil, nil, err
		}
		recorder = metrics.MultiRecorder{recorder, dd}
		closer = dd.Close
	}
	opts = append(opts, reloadable.WithRecorder(recorder))
	return opts, closer, nil
}

// OpenList creates the list container described by the configuration.
func (c *Config) OpenList(extra ...reloadable.Option) (*reloadable.List, func() error, error) {
	if c.Kind != KindList {
		return nil, nil, fmt.Errorf("%w: kind is %q, not %q", ErrInvalidConfig, c.Kind, KindList)
	}
	opts, closer, err := c.Options()
	if err != nil {
		return nil, nil, err
	}
	l, err := reloadable.NewList(c.Path, append(opts, extra...)...)
	if err != nil {
		_ = closer()
		return nil, nil, err
	}
	return l, closer, nil
}

// OpenRecord creates the record container described by the configuration.
func (c *Config) OpenRecord(extra ...reloadable.Option) (*reloadable.Record, func() error, error) {
	if c.Kind != KindRecord {
		return nil, nil, fmt.Errorf("%w: kind is %q, not %q", ErrInvalidConfig, c.Kind, KindRecord)
	}
	opts, closer, err := c.Options()
	if err != nil {
		return nil, nil, err
	}
	r, err := reloadable.NewRecord(c.Path, append(opts, extra...)...)
	if err != nil {
		_ = closer()
		return nil, nil, err
	}
	return r, closer, nil
}
