// Package queue persists the ordered list of pending uploads.
//
// A Queue keeps its entries in memory and rewrites the whole document through
// a Backend on every mutation (push, remove, clear). A mutation whose write
// fails is rolled back in memory and reported as a PersistenceError, so the
// in-memory and durable views never diverge. Backends store one opaque record:
// SQLite (default, single-row table with busy retry), Redis (one key), or an
// in-memory stub for tests and throwaway daemons.
//
// The queue is a plain FIFO list. It has no notion of an in-flight item; the
// uploads coordinator treats the head as running by convention and removes it
// when the transport reports a terminal event.
package queue
