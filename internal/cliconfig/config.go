package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/jsonbatch/pkg/jsonbatch"
)

// Config holds CLI configuration for jsonbatch.
type Config struct {
	URL     string
	Headers map[string]string

	FlushSize     int
	IdleFlushTime time.Duration

	RetryIndividual  bool
	RetryMaxAttempts int
	RetryDelay       time.Duration

	PoolMax         int
	HTTPTimeout     time.Duration
	Compression     string
	ShutdownTimeout time.Duration

	LogLevel string
	Input    string
}

// DefaultConfig returns a Config with default values. URL has no default.
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
		LogLevel:        "info",
		Input:           "-",
	}
}

// Validate fills derived defaults and checks the configuration with the
// same rules the library applies. Errors wrap domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Input == "" {
		c.Input = "-"
	}
	if c.Headers == nil {
		c.Headers = map[string]string{}
	}
	return c.SinkConfig().Validate()
}

// SinkConfig returns the library configuration for c.
func (c Config) SinkConfig() jsonbatch.Config {
	return jsonbatch.Config{
		URL:              c.URL,
		Headers:          c.Headers,
		FlushSize:        c.FlushSize,
		IdleFlushTime:    c.IdleFlushTime,
		RetryIndividual:  c.RetryIndividual,
		RetryMaxAttempts: c.RetryMaxAttempts,
		RetryDelay:       c.RetryDelay,
		PoolMax:          c.PoolMax,
		HTTPTimeout:      c.HTTPTimeout,
		Compression:      c.Compression,
		ShutdownTimeout:  c.ShutdownTimeout,
	}
}

// ParseHeaderList parses "Name=value,Other=value" into a map.
func ParseHeaderList(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("header %q: want Name=value", pair)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setHeaders replaces the header map if the source has any entries.
func (s *configSetter) setHeaders(flag string, value map[string]string, dst *map[string]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	m := make(map[string]string, len(value))
	for k, v := range value {
		m[k] = v
	}
	*dst = m
}

// setIntFromString parses a string to int and sets the destination if positive.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses "true"/"1" as true and anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
