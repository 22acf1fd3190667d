// Package engine runs batches of entity mutation requests against the
// backend. A Batch processes its requests strictly in order: in standard mode
// each request is sent to the backend once, in strict mode each request is
// prechecked with read-only lookups and nothing is mutated. Strict runs keep a
// reservation table of unique values claimed by earlier executable create
// requests so duplicates inside the same batch are caught before anything is
// persisted; that table depends on the sequential loop and must not be
// replaced by concurrent evaluation.
//
// Engine wraps Batch with persistence, live outcome streaming and optional
// asynchronous submission.
package engine
