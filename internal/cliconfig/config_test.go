package cliconfig

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bft-labs/jsonbatch/internal/domain"
	"github.com/bft-labs/jsonbatch/pkg/jsonbatch"
)

func validConfig() Config {
	c := DefaultConfig()
	c.URL = "http://localhost:8080/ingest"
	return c
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	if c.FlushSize != 50 || c.PoolMax != 50 {
		t.Errorf("FlushSize/PoolMax = %d/%d, want 50/50", c.FlushSize, c.PoolMax)
	}
	if c.IdleFlushTime != 5*time.Second {
		t.Errorf("IdleFlushTime = %v, want 5s", c.IdleFlushTime)
	}
	if !c.RetryIndividual {
		t.Error("RetryIndividual should default to true")
	}
	if c.RetryMaxAttempts != 0 {
		t.Errorf("RetryMaxAttempts = %d, want 0", c.RetryMaxAttempts)
	}
	if c.HTTPTimeout != 60*time.Second {
		t.Errorf("HTTPTimeout = %v, want 60s", c.HTTPTimeout)
	}
	if c.Input != "-" {
		t.Errorf("Input = %q, want -", c.Input)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"https url", func(c *Config) { c.URL = "https://example.com/v1" }, false},
		{"gzip", func(c *Config) { c.Compression = "gzip" }, false},
		{"missing url", func(c *Config) { c.URL = "" }, true},
		{"relative url", func(c *Config) { c.URL = "/ingest" }, true},
		{"ftp scheme", func(c *Config) { c.URL = "ftp://example.com" }, true},
		{"zero flush size", func(c *Config) { c.FlushSize = 0 }, true},
		{"zero idle flush", func(c *Config) { c.IdleFlushTime = 0 }, true},
		{"negative pool", func(c *Config) { c.PoolMax = -1 }, true},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }, true},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }, true},
		{"negative retries", func(c *Config) { c.RetryMaxAttempts = -1 }, true},
		{"negative retry delay", func(c *Config) { c.RetryDelay = -time.Second }, true},
		{"brotli", func(c *Config) { c.Compression = "br" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)

			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want wrapped ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_Validate_FillsDerivedDefaults(t *testing.T) {
	c := validConfig()
	c.Input = ""
	c.Headers = nil

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if c.Input != "-" {
		t.Errorf("Input = %q, want -", c.Input)
	}
	if c.Headers == nil {
		t.Error("Headers should be non-nil after Validate")
	}
}

func TestParseHeaderList(t *testing.T) {
	tests := []struct {
		in      string
		want    map[string]string
		wantErr bool
	}{
		{"", map[string]string{}, false},
		{"X-A=1", map[string]string{"X-A": "1"}, false},
		{"X-A=1, Authorization=Bearer abc ", map[string]string{"X-A": "1", "Authorization": "Bearer abc"}, false},
		{"X-Empty=", map[string]string{"X-Empty": ""}, false},
		{"novalue", nil, true},
		{"=orphan", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseHeaderList(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHeaderList(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if diff := cmp.Diff(tt.want, got); !tt.wantErr && diff != "" {
			t.Errorf("ParseHeaderList(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestConfigSetter_setHeaders(t *testing.T) {
	dst := map[string]string{"A": "1"}

	newConfigSetter(map[string]bool{"header": true}).setHeaders("header", map[string]string{"B": "2"}, &dst)
	if diff := cmp.Diff(map[string]string{"A": "1"}, dst); diff != "" {
		t.Errorf("changed flag should win (-want +got):\n%s", diff)
	}

	src := map[string]string{"B": "2"}
	newConfigSetter(nil).setHeaders("header", src, &dst)
	src["C"] = "3"
	if diff := cmp.Diff(map[string]string{"B": "2"}, dst); diff != "" {
		t.Errorf("headers should be replaced by a copy (-want +got):\n%s", diff)
	}
}

func TestConfig_SinkConfig(t *testing.T) {
	c := validConfig()
	c.Headers = map[string]string{"Authorization": "Bearer x"}
	c.Compression = "gzip"
	c.RetryIndividual = false
	c.RetryMaxAttempts = 3

	got := c.SinkConfig()
	want := jsonbatch.Config{
		URL:              c.URL,
		Headers:          map[string]string{"Authorization": "Bearer x"},
		FlushSize:        c.FlushSize,
		IdleFlushTime:    c.IdleFlushTime,
		RetryIndividual:  false,
		RetryMaxAttempts: 3,
		RetryDelay:       c.RetryDelay,
		PoolMax:          c.PoolMax,
		HTTPTimeout:      c.HTTPTimeout,
		Compression:      "gzip",
		ShutdownTimeout:  c.ShutdownTimeout,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SinkConfig() mismatch (-want +got):\n%s", diff)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("library rejected a config the CLI accepts: %v", err)
	}
}
