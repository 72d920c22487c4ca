// Package log exposes the logging abstraction used by jsonbatch so that
// plugins and embedders outside this module can build log fields and
// adapters without reaching into internal packages.
//
// Wrap an existing zerolog logger:
//
//	logger := log.NewZerolog(zerolog.New(os.Stderr))
//	sink, err := jsonbatch.New(cfg, jsonbatch.WithLogger(logger))
//
// Or implement Logger to bridge any other logging library:
//
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
package log
