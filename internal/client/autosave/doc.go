// Package autosave drives open cards from in-memory edits to durable local
// copies and, for signed-in users, to the remote cards table.
//
// Every edit restarts a short local-save timer; only the last edit of a
// burst is written. A successful local save restarts a longer remote-sync
// timer, so a card under continuous editing reaches the remote only once
// the user pauses. At most one remote sync per card id is in flight; edits
// saved meanwhile are picked up by a follow-up sync when it completes.
//
// Editor methods never perform I/O. All storage and network work happens on
// timer goroutines owned by the Controller, or in the explicit Flush and
// Close calls.
package autosave
