package domain

import (
	"strconv"

	"github.com/google/uuid"
)

// Batch is an ordered group of records flushed together for one delivery.
// The Records slice is owned by the batch and must not be modified after
// construction.
type Batch struct {
	// ID identifies the batch in logs. Children of a split carry the parent
	// ID followed by "/<index>".
	ID string

	// Records are the documents in flush order.
	Records []Record
}

// NewBatch wraps records in a batch with a fresh random ID.
func NewBatch(records []Record) Batch {
	return Batch{
		ID:      uuid.NewString(),
		Records: records,
	}
}

// Size returns the number of records in the batch.
func (b Batch) Size() int {
	return len(b.Records)
}

// Empty returns true if the batch has no records.
func (b Batch) Empty() bool {
	return len(b.Records) == 0
}

// Split returns one single-record batch per record, in order.
// A batch with one or zero records returns nil.
func (b Batch) Split() []Batch {
	if len(b.Records) <= 1 {
		return nil
	}
	children := make([]Batch, len(b.Records))
	for i, r := range b.Records {
		children[i] = Batch{
			ID:      b.ID + "/" + strconv.Itoa(i),
			Records: []Record{r},
		}
	}
	return children
}
