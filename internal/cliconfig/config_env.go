package cliconfig

import (
	"fmt"
	"os"
)

// ApplyEnvConfig applies configuration from environment variables (JSONBATCH_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("url", os.Getenv("JSONBATCH_URL"), &cfg.URL)
	s.setString("compression", os.Getenv("JSONBATCH_COMPRESSION"), &cfg.Compression)
	s.setString("log-level", os.Getenv("JSONBATCH_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("input", os.Getenv("JSONBATCH_INPUT"), &cfg.Input)

	if raw := os.Getenv("JSONBATCH_HEADERS"); raw != "" {
		headers, err := ParseHeaderList(raw)
		if err != nil {
			return fmt.Errorf("parse JSONBATCH_HEADERS: %w", err)
		}
		s.setHeaders("header", headers, &cfg.Headers)
	}

	ints := []struct {
		flag string
		env  string
		dst  *int
	}{
		{"flush-size", "JSONBATCH_FLUSH_SIZE", &cfg.FlushSize},
		{"pool-max", "JSONBATCH_POOL_MAX", &cfg.PoolMax},
		{"retry-max-attempts", "JSONBATCH_RETRY_MAX_ATTEMPTS", &cfg.RetryMaxAttempts},
	}
	for _, i := range ints {
		if err := s.setIntFromString(i.flag, os.Getenv(i.env), i.dst); err != nil {
			return err
		}
	}

	if err := s.setDuration("idle-flush-time", os.Getenv("JSONBATCH_IDLE_FLUSH_TIME"), &cfg.IdleFlushTime); err != nil {
		return err
	}
	if err := s.setDuration("retry-delay", os.Getenv("JSONBATCH_RETRY_DELAY"), &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("JSONBATCH_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", os.Getenv("JSONBATCH_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}

	s.setBoolFromString("retry-individual", os.Getenv("JSONBATCH_RETRY_INDIVIDUAL"), &cfg.RetryIndividual)

	return nil
}
