package log

import (
	"time"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/jsonbatch/internal/adapters/log"
	"github.com/bft-labs/jsonbatch/internal/ports"
)

// Logger provides structured logging capabilities.
type Logger = ports.Logger

// Field represents a key-value pair for structured logging.
type Field = ports.Field

// NewZerolog adapts a zerolog.Logger to Logger.
func NewZerolog(logger zerolog.Logger) Logger {
	return logAdapter.NewZerologAdapterWithLogger(logger)
}

// NewConsole returns a human-readable stderr logger at the given level.
// An unknown level falls back to info.
func NewConsole(level string) Logger {
	return NewZerolog(logAdapter.NewConsoleLogger(level))
}

// NewNoop returns a Logger that discards everything.
func NewNoop() Logger {
	return logAdapter.NewNoopLogger()
}

// String creates a string field.
func String(key, value string) Field { return ports.String(key, value) }

// Int creates an int field.
func Int(key string, value int) Field { return ports.Int(key, value) }

// Int64 creates an int64 field.
func Int64(key string, value int64) Field { return ports.Int64(key, value) }

// Bool creates a bool field.
func Bool(key string, value bool) Field { return ports.Bool(key, value) }

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field { return ports.Duration(key, value) }

// Any creates a field with any value.
func Any(key string, value interface{}) Field { return ports.Any(key, value) }

// Err creates an error field with key "error".
func Err(err error) Field { return ports.Err(err) }
