// Package store persists capture sessions in SQLite so a run can be
// inspected and reconciled again offline.
//
// The store holds:
//   - Sessions: one scenario run against one target process
//   - Steps: per-step outcome and failure text
//   - Records: the expected and captured streams of each step
//
// # Ordering
//
// Streams are stored with an explicit seq column and always read back
// ORDER BY seq ASC. Wall-clock time is kept for display only and never used
// for ordering records.
//
// # Identifiers
//
// Process and child identifiers of Start/EndApplication records are stored
// alongside the four params so diagnostics survive a round trip, even though
// they take no part in record equality.
//
// # Connection
//
// Journal mode (WAL), synchronous=NORMAL, a 5s busy timeout and foreign
// keys are set through driver DSN parameters rather than per-connection
// PRAGMA statements. Schema changes after schema.sql are an ordered list of
// migrations, each committed together with its user_version bump.
package store
