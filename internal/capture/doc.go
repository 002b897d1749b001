// Package capture binds to a target process's console accessibility
// notifications and turns them into an ordered notify.Record stream.
//
// OWNERSHIP:
//
// Hook state is process-wide, so a Bridge hands out an ownership Token from
// Attach. Every later operation (Queue, Settle, Detach) requires that token.
// A second Attach for a process that already has a live token fails with
// ErrAlreadyAttached.
//
// DELIVERY:
//
// The Hook collaborator invokes notify.Callbacks on its own delivery context
// (an OS message-loop thread, a simulator goroutine). Each callback builds one
// Record and appends it to the session's notify.Queue. Nothing else happens on
// the delivery path.
//
// Detach closes the queue before removing the hook. A notification that
// races with Detach is either fully enqueued or dropped; it is never partly
// written.
//
// QUIESCENCE:
//
// The host never signals "all notifications for this action were sent".
// Settle approximates it three ways:
//
//	count  wait for the delivered total to reach a watermark, then an idle window
//	idle   wait until nothing has arrived for the idle window
//	fixed  sleep for a fixed duration
//
// A Settle that times out is not an error. The comparator sees the short
// stream and reports a count mismatch with full detail.
package capture
