package jsonbatch

import (
	"fmt"
	"net/url"
	"time"

	"github.com/bft-labs/jsonbatch/internal/domain"
)

// Compression values accepted by Config.Compression.
const (
	CompressionNone = ""
	CompressionGzip = "gzip"
)

// Config holds the settings of a Sink. Start from DefaultConfig; the zero
// value disables RetryIndividual.
type Config struct {
	// URL is the endpoint every batch is POSTed to. Required.
	URL string

	// Headers are sent with every request. Content-Type defaults to
	// application/json unless set here, in any letter case.
	Headers map[string]string

	// FlushSize is the number of records that triggers an immediate flush.
	// Default: 50
	FlushSize int

	// IdleFlushTime is the idle timer period. A tick flushes pending records
	// when no flush happened since the previous tick.
	// Default: 5 seconds
	IdleFlushTime time.Duration

	// RetryIndividual splits a failed multi-record batch into single-record
	// batches. A failed single-record batch is dropped.
	// Default: true
	RetryIndividual bool

	// RetryMaxAttempts enables whole-batch retries when RetryIndividual is
	// false. Zero drops a failed batch at once.
	RetryMaxAttempts int

	// RetryDelay is the pause before each whole-batch retry.
	// Default: 100 milliseconds
	RetryDelay time.Duration

	// PoolMax caps the number of concurrently in-flight requests.
	// Default: 50
	PoolMax int

	// HTTPTimeout bounds a single request when no custom client is injected.
	// Default: 60 seconds
	HTTPTimeout time.Duration

	// Compression is CompressionNone or CompressionGzip.
	Compression string

	// ShutdownTimeout bounds the drain performed by Stop.
	// Default: 30 seconds
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with default values. URL must still be set.
func DefaultConfig() Config {
	return Config{
		Headers:         map[string]string{},
		FlushSize:       50,
		IdleFlushTime:   5 * time.Second,
		RetryIndividual: true,
		RetryDelay:      100 * time.Millisecond,
		PoolMax:         50,
		HTTPTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// SetDefaults fills unset sizes and durations with their defaults.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.FlushSize == 0 {
		c.FlushSize = d.FlushSize
	}
	if c.IdleFlushTime == 0 {
		c.IdleFlushTime = d.IdleFlushTime
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.PoolMax == 0 {
		c.PoolMax = d.PoolMax
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = d.HTTPTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: url is required", domain.ErrInvalidConfig)
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url %q is not an absolute http(s) url", domain.ErrInvalidConfig, c.URL)
	}
	if c.FlushSize <= 0 {
		return fmt.Errorf("%w: flush size must be positive", domain.ErrInvalidConfig)
	}
	if c.IdleFlushTime <= 0 {
		return fmt.Errorf("%w: idle flush time must be positive", domain.ErrInvalidConfig)
	}
	if c.PoolMax <= 0 {
		return fmt.Errorf("%w: pool max must be positive", domain.ErrInvalidConfig)
	}
	if c.HTTPTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", domain.ErrInvalidConfig)
	}
	if c.RetryMaxAttempts < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry settings must not be negative", domain.ErrInvalidConfig)
	}
	if c.Compression != CompressionNone && c.Compression != CompressionGzip {
		return fmt.Errorf("%w: unsupported compression %q", domain.ErrInvalidConfig, c.Compression)
	}
	return nil
}
