package configwatcher

import "github.com/bft-labs/jsonbatch/pkg/jsonbatch"

// WithConfigWatcher returns a jsonbatch Option that reloads request headers
// whenever the config file changes.
//
// Usage:
//
//	sink, err := jsonbatch.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/jsonbatch/config.toml",
//	        DebounceDelay: 200 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) jsonbatch.Option {
	return jsonbatch.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher watches ~/.jsonbatch/config.toml with a 100ms debounce.
func WithDefaultConfigWatcher() jsonbatch.Option {
	return WithConfigWatcher(DefaultConfig())
}
