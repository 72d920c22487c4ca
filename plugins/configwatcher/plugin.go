// Package configwatcher reloads request headers when the jsonbatch config
// file changes. It watches the TOML file and swaps the [headers] table into
// the running sink, so rotated credentials take effect without a restart.
package configwatcher

import (
	"context"
	"maps"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/jsonbatch/internal/cliconfig"
	jblog "github.com/bft-labs/jsonbatch/pkg/log"
	"github.com/bft-labs/jsonbatch/pkg/jsonbatch"
)

// Plugin watches a config file and applies its headers on change.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration

	logger   jsonbatch.Logger
	sink     jsonbatch.HeaderSetter
	current  map[string]string
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	reloads  int
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the TOML file to watch. Empty disables the plugin.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig watches the default config path.
func DefaultConfig() Config {
	return Config{
		Path:          cliconfig.DefaultConfigPath(),
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the config file.
func (p *Plugin) Initialize(ctx context.Context, cfg jsonbatch.PluginConfig) error {
	p.mu.Lock()
	p.logger = cfg.Logger
	p.sink = cfg.Sink
	p.current = maps.Clone(cfg.Headers)
	p.mu.Unlock()

	if p.path == "" || p.sink == nil {
		p.logger.Warn("config watcher disabled: no config file or sink")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// The directory is watched so editors that replace the file by rename
	// keep triggering events.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher started", jblog.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Reloads returns how many times headers were applied to the sink.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	target := filepath.Clean(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.scheduleReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", jblog.Err(err))
		}
	}
}

func (p *Plugin) scheduleReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload re-reads the file and applies its headers if they changed. A file
// that cannot be parsed leaves the current headers in place.
func (p *Plugin) reload() {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		p.logger.Error("config reload failed, keeping current headers",
			jblog.String("path", p.path),
			jblog.Err(err))
		return
	}

	p.mu.Lock()
	if maps.Equal(p.current, fc.Headers) {
		p.mu.Unlock()
		p.logger.Debug("config changed, headers unchanged", jblog.String("path", p.path))
		return
	}
	p.current = maps.Clone(fc.Headers)
	p.reloads++
	sink := p.sink
	p.mu.Unlock()

	sink.SetHeaders(fc.Headers)
	p.logger.Info("config reloaded", jblog.String("path", p.path), jblog.Int("headers", len(fc.Headers)))
}

// Ensure Plugin implements jsonbatch.Plugin.
var _ jsonbatch.Plugin = (*Plugin)(nil)
