// Package retry decides the fate of a failed delivery.
//
// The primary rule splits a failed multi-record batch into single-record
// batches so a poison record only takes itself down. Single-record batches
// are terminal. When splitting is disabled, an optional bounded whole-batch
// retry with a fixed delay can be configured; it never retries forever.
package retry

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bft-labs/jsonbatch/internal/domain"
)

// Action is what the dispatcher does with a failed batch.
type Action int

const (
	// Drop ends the batch: its records are counted as failed.
	Drop Action = iota
	// Split resubmits every record as its own batch, immediately.
	Split
	// Retry resubmits the whole batch unchanged after Decision.Delay.
	Retry
)

// String returns a human-readable representation of the action.
func (a Action) String() string {
	switch a {
	case Drop:
		return "drop"
	case Split:
		return "split"
	case Retry:
		return "retry"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating a failure.
type Decision struct {
	Action Action

	// Delay before a Retry is resubmitted.
	Delay time.Duration

	// Reason wraps the failure for Drop decisions with the terminal cause
	// (split exhausted or retries exhausted).
	Reason error
}

// Policy holds the retry configuration.
type Policy struct {
	// RetryIndividual enables splitting failed multi-record batches.
	RetryIndividual bool

	// MaxAttempts caps whole-batch retries when RetryIndividual is false.
	// Zero disables whole-batch retry.
	MaxAttempts int

	// Delay is the fixed pause between whole-batch retries.
	Delay time.Duration
}

// NewBackOff returns the retry schedule for one batch, or nil when
// whole-batch retry is disabled. Each batch needs its own schedule.
func (p Policy) NewBackOff() backoff.BackOff {
	if p.RetryIndividual || p.MaxAttempts <= 0 {
		return nil
	}
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(p.MaxAttempts))
}

// Decide returns what to do with batch after a failed delivery. attempt is
// zero for the first delivery; schedule is the batch's NewBackOff result and
// is advanced on every call that does not split.
func (p Policy) Decide(batch domain.Batch, attempt int, schedule backoff.BackOff, err error) Decision {
	if p.RetryIndividual {
		if batch.Size() > 1 {
			return Decision{Action: Split}
		}
		return Decision{
			Action: Drop,
			Reason: fmt.Errorf("%w: %w", domain.ErrSplitExhausted, err),
		}
	}

	if schedule == nil {
		return Decision{Action: Drop, Reason: err}
	}
	delay := schedule.NextBackOff()
	if delay == backoff.Stop {
		return Decision{
			Action: Drop,
			Reason: fmt.Errorf("%w after %d attempts: %w", domain.ErrRetriesExhausted, attempt+1, err),
		}
	}
	return Decision{Action: Retry, Delay: delay}
}
