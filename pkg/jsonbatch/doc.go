// Package jsonbatch provides an embeddable batching sink that ships JSON
// records to an HTTP endpoint.
//
// Records handed to [Sink.Receive] are buffered and flushed as a JSON array
// POST when the buffer reaches [Config.FlushSize] or when the idle timer
// fires. At most [Config.PoolMax] requests are in flight; when the pool is
// saturated the goroutine that triggered the flush waits, which is the only
// backpressure a producer sees.
//
// # Basic Usage
//
//	cfg := jsonbatch.DefaultConfig()
//	cfg.URL = "https://logs.example.com/bulk"
//	cfg.Headers = map[string]string{"Authorization": "Bearer " + token}
//
//	sink, err := jsonbatch.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := sink.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	_ = sink.Receive(ctx, jsonbatch.Record{"msg": "hello"})
//
//	if err := sink.Stop(context.Background()); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Failure Handling
//
// A batch that fails with a non-2xx status or a transport error is split
// into single-record batches when [Config.RetryIndividual] is set, so one
// bad record cannot sink its neighbours. A failed single-record batch is
// dropped, logged, and counted in [Stats.Failed]. With RetryIndividual off,
// [Config.RetryMaxAttempts] enables a bounded whole-batch retry instead.
// Delivery failures are never returned to the producer.
//
// # Event Handling
//
// Implement [EventHandler] and pass it via [WithEventHandler] to observe
// deliveries, splits, retries and drops. Embed [BaseEventHandler] for no-op
// defaults. Handlers run on delivery goroutines and should return quickly.
//
// # Lifecycle States
//
// A Sink is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] or [StateCrashed]. [Sink.Stop] flushes pending records
// and waits for every outstanding delivery; if [Config.ShutdownTimeout]
// expires first the sink ends in StateCrashed and Stop returns
// [ErrShutdownTimeout].
//
// # Plugins
//
//	import "github.com/bft-labs/jsonbatch/plugins/configwatcher"
//
//	sink, err := jsonbatch.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{Path: "/etc/jsonbatch.toml"}),
//	)
package jsonbatch
