// Package domain contains the core entities and value objects of jsonbatch.
//
// This package is the innermost layer. It has no dependencies on
// infrastructure concerns (HTTP, logging, configuration) and holds only the
// types that every other layer exchanges.
//
// # Entities
//
//   - [Record]: one opaque key/value document produced upstream
//   - [Batch]: an ordered, immutable group of records delivered together
//   - [Outcome]: the result of one delivery attempt for a batch
//
// Records and batches are never mutated once handed to the batcher. A split
// produces new child batches and leaves the parent untouched.
package domain
