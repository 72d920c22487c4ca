package jsonbatch

import (
	gometrics "github.com/rcrowley/go-metrics"

	"github.com/bft-labs/jsonbatch/internal/domain"
	"github.com/bft-labs/jsonbatch/internal/ports"
)

// Re-exported types so callers need only this package.
type (
	// Record is one upstream JSON object.
	Record = domain.Record

	// HTTPClient is the interface for making HTTP requests.
	// *http.Client satisfies this interface.
	HTTPClient = ports.HTTPClient

	// Logger is the interface for structured logging.
	Logger = ports.Logger

	// LogField represents a structured log field.
	LogField = ports.Field
)

// Errors returned by the public API. They can be checked with errors.Is.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrNilRecord       = domain.ErrNilRecord
)

// Option configures optional behavior of a Sink.
type Option func(*options)

type options struct {
	httpClient    ports.HTTPClient
	logger        ports.Logger
	eventHandler  EventHandler
	plugins       []Plugin
	registry      gometrics.Registry
	metricsPrefix string
}

// WithHTTPClient sets a custom HTTP client. If not provided, a client with
// Config.HTTPTimeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for sink events.
// Events are called synchronously from delivery goroutines.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the sink starts.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithMetricsRegistry registers the delivery counters in r, under
// "<prefix>." when prefix is not empty.
func WithMetricsRegistry(r gometrics.Registry, prefix string) Option {
	return func(o *options) {
		o.registry = r
		o.metricsPrefix = prefix
	}
}
