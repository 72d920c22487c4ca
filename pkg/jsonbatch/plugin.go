package jsonbatch

import "context"

// Plugin extends a Sink with optional behavior that runs for the lifetime
// of the sink.
type Plugin interface {
	// Name returns a unique identifier used in logs.
	Name() string

	// Initialize is called from Start, in registration order. An error
	// aborts Start and moves the sink to StateCrashed.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called from Stop, in reverse registration order.
	Shutdown(ctx context.Context) error
}

// HeaderSetter replaces the request headers of a running sink.
type HeaderSetter interface {
	SetHeaders(headers map[string]string)
}

// PluginConfig is handed to every plugin on Initialize.
type PluginConfig struct {
	URL     string
	Headers map[string]string
	Logger  Logger

	// Sink lets a plugin swap request headers at runtime.
	Sink HeaderSetter
}

// BasePlugin implements Plugin with no-ops. Embed it to override only what
// you need.
type BasePlugin struct {
	name string
}

// NewBasePlugin returns a BasePlugin with the given name.
func NewBasePlugin(name string) BasePlugin {
	return BasePlugin{name: name}
}

func (p BasePlugin) Name() string                                  { return p.name }
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (BasePlugin) Shutdown(context.Context) error                  { return nil }
