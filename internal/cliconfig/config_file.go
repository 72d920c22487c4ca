package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	URL              string            `toml:"url"`
	Headers          map[string]string `toml:"headers"`
	FlushSize        int               `toml:"flush_size"`
	IdleFlushTime    string            `toml:"idle_flush_time"`
	RetryIndividual  *bool             `toml:"retry_individual"`
	RetryMaxAttempts int               `toml:"retry_max_attempts"`
	RetryDelay       string            `toml:"retry_delay"`
	PoolMax          int               `toml:"pool_max"`
	HTTPTimeout      string            `toml:"http_timeout"`
	Compression      string            `toml:"compression"`
	ShutdownTimeout  string            `toml:"shutdown_timeout"`
	LogLevel         string            `toml:"log_level"`
	Input            string            `toml:"input"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.jsonbatch/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".jsonbatch", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("url", fc.URL, &cfg.URL)
	s.setString("compression", fc.Compression, &cfg.Compression)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("input", fc.Input, &cfg.Input)
	s.setHeaders("header", fc.Headers, &cfg.Headers)

	s.setInt("flush-size", fc.FlushSize, &cfg.FlushSize)
	s.setInt("pool-max", fc.PoolMax, &cfg.PoolMax)
	s.setInt("retry-max-attempts", fc.RetryMaxAttempts, &cfg.RetryMaxAttempts)

	s.setBool("retry-individual", fc.RetryIndividual, &cfg.RetryIndividual)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"idle-flush-time", fc.IdleFlushTime, &cfg.IdleFlushTime},
		{"retry-delay", fc.RetryDelay, &cfg.RetryDelay},
		{"timeout", fc.HTTPTimeout, &cfg.HTTPTimeout},
		{"shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
