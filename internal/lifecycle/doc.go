// Package lifecycle holds the in-memory post lifecycle and deduplication
// engine: which items were already evaluated, which profiles were already
// answered in a discussion, how often a failing item may be retried, and
// which of the bot's own replies are still being watched.
//
// Nothing here is safe for concurrent use. The structures are owned by a
// single State value that the bot mutates from one goroutine.
package lifecycle
