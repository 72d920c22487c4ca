package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/jsonbatch/internal/ports"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(NewLogger(&buf, "debug"))

	l.Error("delivery failed",
		ports.String("url", "http://example.com"),
		ports.Int("records", 3),
		ports.Int64("failed_total", 7),
		ports.Bool("split", false),
		ports.Duration("took", time.Second),
		ports.Any("headers", map[string]string{"X-A": "1"}),
		ports.Err(errors.New("boom")),
	)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}

	if got["level"] != "error" {
		t.Errorf("level = %v, want error", got["level"])
	}
	if got["message"] != "delivery failed" {
		t.Errorf("message = %v", got["message"])
	}
	if got["url"] != "http://example.com" {
		t.Errorf("url = %v", got["url"])
	}
	if got["records"] != float64(3) {
		t.Errorf("records = %v", got["records"])
	}
	if got["error"] != "boom" {
		t.Errorf("error = %v", got["error"])
	}
	headers, ok := got["headers"].(map[string]any)
	if !ok || headers["X-A"] != "1" {
		t.Errorf("headers = %v", got["headers"])
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(NewLogger(&buf, "warn"))

	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got %q", buf.String())
	}

	l.Warn("shown")
	if buf.Len() == 0 {
		t.Error("expected warn output")
	}
}

func TestNewLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(NewLogger(&buf, "chatty"))

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug should be disabled, got %q", buf.String())
	}
	l.Info("shown")
	if buf.Len() == 0 {
		t.Error("expected info output")
	}
}
