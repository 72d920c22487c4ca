package fs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"

	"github.com/bft-labs/jsonbatch/internal/domain"
	"github.com/bft-labs/jsonbatch/internal/ports"
)

type mockLogger struct {
	warnings int
}

func (*mockLogger) Debug(string, ...ports.Field)  {}
func (*mockLogger) Info(string, ...ports.Field)   {}
func (m *mockLogger) Warn(string, ...ports.Field) { m.warnings++ }
func (*mockLogger) Error(string, ...ports.Field)  {}

func readAll(t *testing.T, s *NDJSONSource) []domain.Record {
	t.Helper()
	var out []domain.Record
	for {
		r, err := s.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next() = %v", err)
		}
		out = append(out, r)
	}
}

func TestNDJSONSource_Next(t *testing.T) {
	input := strings.Join([]string{
		`{"msg":"a","n":1}`,
		``,
		`   `,
		`not json`,
		`[1,2,3]`,
		`null`,
		`{"msg":"b","n":12345678901234567890}`,
		`{"msg":"c"} {"extra":true}`,
		`{"msg":"d"}`, // no trailing newline
	}, "\n")

	logger := &mockLogger{}
	s := NewNDJSONSource(strings.NewReader(input), logger)

	got := readAll(t, s)
	want := []domain.Record{
		{"msg": "a", "n": json.Number("1")},
		{"msg": "b", "n": json.Number("12345678901234567890")},
		{"msg": "d"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if s.Skipped() != 4 {
		t.Errorf("Skipped() = %d, want 4", s.Skipped())
	}
	if logger.warnings != 4 {
		t.Errorf("warnings = %d, want 4", logger.warnings)
	}
}

func TestNDJSONSource_PreservesLargeNumbers(t *testing.T) {
	s := NewNDJSONSource(strings.NewReader(`{"id":9007199254740993}`+"\n"), &mockLogger{})
	r, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() = %v", err)
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"id":9007199254740993}` {
		t.Errorf("re-encoded = %s", b)
	}
}

func TestNDJSONSource_Canceled(t *testing.T) {
	s := NewNDJSONSource(strings.NewReader(`{"a":1}`+"\n"), &mockLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() = %v, want context.Canceled", err)
	}
}

func TestOpenNDJSON_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.ndjson")
	if err := os.WriteFile(path, []byte("{\"a\":1}\n{\"a\":2}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := OpenNDJSON(path, &mockLogger{})
	if err != nil {
		t.Fatalf("OpenNDJSON() = %v", err)
	}
	defer s.Close()

	if got := len(readAll(t, s)); got != 2 {
		t.Errorf("read %d records, want 2", got)
	}
}

func TestOpenNDJSON_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.ndjson.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte("{\"a\":1}\n{\"a\":2}\n{\"a\":3}\n")); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	s, err := OpenNDJSON(path, &mockLogger{})
	if err != nil {
		t.Fatalf("OpenNDJSON() = %v", err)
	}
	if got := len(readAll(t, s)); got != 3 {
		t.Errorf("read %d records, want 3", got)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestOpenNDJSON_Missing(t *testing.T) {
	if _, err := OpenNDJSON(filepath.Join(t.TempDir(), "nope"), &mockLogger{}); err == nil {
		t.Error("expected error for missing input")
	}
}
