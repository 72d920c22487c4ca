package domain

import (
	"errors"
	"fmt"
)

// Lifecycle errors returned by the public API. They can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("jsonbatch: already running")

	// ErrNotRunning is returned when Stop() or Receive() is called on a stopped instance.
	ErrNotRunning = errors.New("jsonbatch: not running")

	// ErrShutdownTimeout is returned when outstanding deliveries did not settle in time.
	ErrShutdownTimeout = errors.New("jsonbatch: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("jsonbatch: invalid configuration")

	// ErrClosed is returned by the batcher after it has been closed.
	ErrClosed = errors.New("jsonbatch: batcher closed")

	// ErrNilRecord is returned when a nil record is received. Every element
	// of a batch body must be a JSON object.
	ErrNilRecord = errors.New("jsonbatch: nil record")
)

// Delivery errors. None of these are ever returned to the record producer;
// they flow through the retry policy and end up in logs and counters.
var (
	// ErrRequestConstruction means the request could not be built, so no
	// token was acquired and nothing reached the network.
	ErrRequestConstruction = errors.New("request construction failed")

	// ErrSplitExhausted marks a terminal failure of a batch that cannot be
	// split any further.
	ErrSplitExhausted = errors.New("split exhausted")

	// ErrRetriesExhausted marks a terminal failure after the whole-batch
	// retry cap was reached.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrDispatchAborted marks work dropped because the sink shut down
	// before it could be sent.
	ErrDispatchAborted = errors.New("dispatch aborted")
)

// TransportError wraps a network level failure: connection refused,
// timeout, protocol error.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPStatusError reports a response received with a status outside 2xx.
type HTTPStatusError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, string(e.Body))
}
