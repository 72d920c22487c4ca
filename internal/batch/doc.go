// Package batch groups a stream of records into bounded batches.
//
// Two independent triggers flush the pending buffer: reaching the flush size
// inside Receive, and the idle timer driven by Run. Both swap the buffer in
// the same critical section, so concurrent producers and the timer never
// lose or duplicate a record.
//
// # Usage
//
//	b, err := batch.NewBatcher(50, 5*time.Second, dispatcher.Send, logger)
//	if err != nil {
//	    return err
//	}
//	go b.Run(ctx)
//
//	for rec := range records {
//	    if err := b.Receive(ctx, rec); err != nil {
//	        return err
//	    }
//	}
//
//	// Shutdown: stop the timer, then ship what is left.
//	if final := b.Close(); !final.Empty() {
//	    dispatcher.Send(ctx, final)
//	}
package batch
