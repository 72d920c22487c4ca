package cliconfig

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"JSONBATCH_URL":                "http://env/ingest",
				"JSONBATCH_HEADERS":            "X-A=1,X-B=2",
				"JSONBATCH_FLUSH_SIZE":         "7",
				"JSONBATCH_POOL_MAX":           "3",
				"JSONBATCH_RETRY_MAX_ATTEMPTS": "2",
				"JSONBATCH_IDLE_FLUSH_TIME":    "750ms",
				"JSONBATCH_RETRY_DELAY":        "1s",
				"JSONBATCH_HTTP_TIMEOUT":       "5s",
				"JSONBATCH_SHUTDOWN_TIMEOUT":   "9s",
				"JSONBATCH_RETRY_INDIVIDUAL":   "false",
				"JSONBATCH_COMPRESSION":        "gzip",
				"JSONBATCH_LOG_LEVEL":          "warn",
				"JSONBATCH_INPUT":              "/data/in.ndjson",
			},
			changed: map[string]bool{},
			initial: Config{RetryIndividual: true},
			expected: Config{
				URL:              "http://env/ingest",
				Headers:          map[string]string{"X-A": "1", "X-B": "2"},
				FlushSize:        7,
				PoolMax:          3,
				RetryMaxAttempts: 2,
				IdleFlushTime:    750 * time.Millisecond,
				RetryDelay:       time.Second,
				HTTPTimeout:      5 * time.Second,
				ShutdownTimeout:  9 * time.Second,
				RetryIndividual:  false,
				Compression:      "gzip",
				LogLevel:         "warn",
				Input:            "/data/in.ndjson",
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"JSONBATCH_URL":        "http://env/ingest",
				"JSONBATCH_FLUSH_SIZE": "7",
			},
			changed:  map[string]bool{"url": true},
			initial:  Config{URL: "http://flag/ingest"},
			expected: Config{URL: "http://flag/ingest", FlushSize: 7},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"JSONBATCH_RETRY_DELAY": "not-a-duration"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"JSONBATCH_POOL_MAX": "lots"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for malformed headers",
			envVars: map[string]string{"JSONBATCH_HEADERS": "just-a-name"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.expected, cfg); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Precedence order: flags > env > file > defaults.
func TestConfigPrecedence(t *testing.T) {
	fileConf := FileConfig{
		URL:       "http://file/ingest",
		FlushSize: 10,
		PoolMax:   8,
		Headers:   map[string]string{"X-From": "file"},
	}

	t.Setenv("JSONBATCH_FLUSH_SIZE", "20")
	t.Setenv("JSONBATCH_URL", "http://env/ingest")

	changed := map[string]bool{"url": true}
	cfg := DefaultConfig()
	cfg.URL = "http://flag/ingest"

	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.URL != "http://flag/ingest" {
		t.Errorf("URL = %v, want flag value", cfg.URL)
	}
	if cfg.FlushSize != 20 {
		t.Errorf("FlushSize = %v, want 20 (env should override file)", cfg.FlushSize)
	}
	if cfg.PoolMax != 8 {
		t.Errorf("PoolMax = %v, want 8 (file should set)", cfg.PoolMax)
	}
	if cfg.IdleFlushTime != 5*time.Second {
		t.Errorf("IdleFlushTime = %v, want default 5s", cfg.IdleFlushTime)
	}
	if cfg.Headers["X-From"] != "file" {
		t.Errorf("Headers = %v, want file headers", cfg.Headers)
	}
}
