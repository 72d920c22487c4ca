package ports

import (
	"context"

	"github.com/bft-labs/jsonbatch/internal/domain"
)

// BatchSender accepts a flushed batch for asynchronous delivery.
// Send may block while the delivery pool is saturated but never waits for
// the network exchange itself. Delivery failures are not returned.
type BatchSender interface {
	Send(ctx context.Context, batch domain.Batch)
}
