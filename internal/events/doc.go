// Package events carries upload lifecycle events from the router to
// listeners.
//
// The Hub invokes subscribed handlers synchronously in publish order, so a
// listener always sees an upload's terminal event before the queue advances.
// It also keeps a bounded ring of recent events that streaming clients (the
// HTTP API's server-sent events endpoint) can page through by sequence number.
package events
