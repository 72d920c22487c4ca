package ports

import (
	"context"
	"io"

	"github.com/bft-labs/jsonbatch/internal/domain"
)

// RecordSource yields upstream records one at a time.
type RecordSource interface {
	// Next returns the next record.
	// Returns io.EOF when the source is exhausted.
	Next(ctx context.Context) (domain.Record, error)

	// Close releases all resources held by the source.
	Close() error
}

// ErrSourceExhausted indicates that the source has no more records.
var ErrSourceExhausted = io.EOF
