package jsonbatch_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/bft-labs/jsonbatch/pkg/jsonbatch"
)

// ExampleNew shows the embed, start, receive, stop cycle.
func ExampleNew() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	cfg := jsonbatch.DefaultConfig()
	cfg.URL = srv.URL
	cfg.FlushSize = 2

	sink, err := jsonbatch.New(cfg)
	if err != nil {
		fmt.Printf("failed to create sink: %v\n", err)
		return
	}
	if err := sink.Start(context.Background()); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}

	for i := 0; i < 5; i++ {
		_ = sink.Receive(context.Background(), jsonbatch.Record{"seq": i})
	}

	// Stop flushes the fifth record and waits for every delivery.
	if err := sink.Stop(context.Background()); err != nil {
		fmt.Printf("shutdown error: %v\n", err)
		return
	}

	stats := sink.Stats()
	fmt.Printf("delivered=%d failed=%d\n", stats.Delivered, stats.Failed)
	// Output: delivered=5 failed=0
}

// Example_withEventHandler shows how to observe dropped batches.
func Example_withEventHandler() {
	cfg := jsonbatch.DefaultConfig()
	cfg.URL = "https://logs.example.com/bulk"
	cfg.IdleFlushTime = time.Second

	sink, err := jsonbatch.New(cfg, jsonbatch.WithEventHandler(&dropReporter{}))
	if err != nil {
		fmt.Printf("failed to create sink: %v\n", err)
		return
	}
	_ = sink
}

// dropReporter prints every batch the sink gave up on.
type dropReporter struct {
	jsonbatch.BaseEventHandler
}

func (dropReporter) OnFailed(ev jsonbatch.FailedEvent) {
	fmt.Printf("dropped %d records from %s: %v\n", ev.Records, ev.BatchID, ev.Error)
}
