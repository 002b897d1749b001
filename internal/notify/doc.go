// Package notify defines the canonical notification record emitted by a
// console host's accessibility layer, the FIFO queues that carry records
// between the capture bridge and the oracle, and the callback capability
// through which raw notifications are delivered.
//
// # Record Model
//
// A Record is one accessibility notification: a Kind drawn from a closed set
// of eight console events, and exactly four signed integer parameters whose
// meaning depends on the kind:
//
//	CaretSelection, CaretVisible   x, y, 0, 0
//	UpdateRegion                   left, top, right, bottom
//	UpdateScroll                   dx, dy, 0, 0
//	UpdateSimple                   x, y, char, attribute
//	StartApplication, EndApplication, Layout  0, 0, 0, 0
//
// Start and end application notifications also carry the process id and
// child id delivered by the host. Those values are not deterministically
// predictable, so they are kept for diagnostics but excluded from Equal.
//
// Records are immutable values. Construct them with the per-kind
// constructors (UpdateSimple, CaretVisible, ...) or New.
//
// # Queues
//
// Queue is an unbounded FIFO safe for many producers and one consumer.
// Enqueue after Close drops the record whole; a record is never partially
// visible. The queue also tracks how many records it has ever accepted and
// when the last one arrived, which is what quiescence waits observe.
package notify
