// Package uploads is the upload lifecycle core.
//
// A Manager owns three cooperating parts:
//
//   - the Coordinator, which keeps the persisted FIFO queue and makes sure at
//     most one queued upload is handed to the transport at a time;
//   - the Router, the single goroutine that consumes transport events,
//     republishes them on the events hub, and then tells the Coordinator about
//     terminal events so the queue can advance;
//   - direct submission, which validates a request and hands it to the
//     transport without touching the queue.
//
// Listeners always observe an upload's terminal event before the next queued
// upload is submitted.
package uploads
