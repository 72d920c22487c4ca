// Package fs reads upstream records from files.
package fs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/bft-labs/jsonbatch/internal/domain"
	"github.com/bft-labs/jsonbatch/internal/ports"
)

// StdinPath selects standard input as the record source.
const StdinPath = "-"

// NDJSONSource yields one record per line of newline-delimited JSON.
// Blank lines are ignored; lines that are not a JSON object are logged and
// skipped.
type NDJSONSource struct {
	reader  *bufio.Reader
	closers []io.Closer
	logger  ports.Logger

	line    int
	skipped int
}

// NewNDJSONSource reads records from r. Close does not close r.
func NewNDJSONSource(r io.Reader, logger ports.Logger) *NDJSONSource {
	return &NDJSONSource{
		reader: bufio.NewReaderSize(r, 64*1024),
		logger: logger,
	}
}

// OpenNDJSON opens path, or standard input for "-". Paths ending in ".gz"
// are decompressed on the fly.
func OpenNDJSON(path string, logger ports.Logger) (*NDJSONSource, error) {
	if path == "" || path == StdinPath {
		return NewNDJSONSource(os.Stdin, logger), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	var r io.Reader = f
	closers := []io.Closer{f}

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip input: %w", err)
		}
		r = gz
		closers = append([]io.Closer{gz}, closers...)
	}

	s := NewNDJSONSource(r, logger)
	s.closers = closers
	return s, nil
}

// Next returns the next record, or io.EOF once the input is exhausted.
func (s *NDJSONSource) Next(ctx context.Context) (domain.Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := s.reader.ReadBytes('\n')
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, err
		}
		s.line++

		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			if err != nil {
				return nil, io.EOF
			}
			continue
		}

		rec, decodeErr := decodeRecord(raw)
		if decodeErr != nil {
			s.skipped++
			s.logger.Warn("skipping malformed input line",
				ports.Int("line", s.line),
				ports.Err(decodeErr),
			)
			if err != nil {
				return nil, io.EOF
			}
			continue
		}
		return rec, nil
	}
}

// decodeRecord parses a JSON object, keeping numbers as json.Number so they
// are re-encoded without precision loss.
func decodeRecord(raw []byte) (domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var rec domain.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.New("expected a JSON object, got null")
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON object")
	}
	return rec, nil
}

// Skipped returns the number of malformed lines seen so far.
func (s *NDJSONSource) Skipped() int {
	return s.skipped
}

// Close releases the underlying file, if OpenNDJSON opened one.
func (s *NDJSONSource) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

var _ ports.RecordSource = (*NDJSONSource)(nil)
