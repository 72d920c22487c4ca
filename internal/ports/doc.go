// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the sink core and the outside world. They
// state what the core needs from external systems without saying how those
// needs are met.
//
// # Port Interfaces
//
//   - [RecordSource]: yields upstream records one at a time
//   - [BatchSender]: accepts flushed batches for delivery
//   - [Logger]: structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// implementations (NDJSON files, HTTP, zerolog).
package ports
