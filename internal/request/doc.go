// Package request turns caller-supplied upload option bags into validated
// upload requests.
//
// Options is the JSON-shaped bag accepted from the CLI, IPC, and HTTP API and
// persisted verbatim by the queue. Normalize checks it field by field, applies
// defaults (POST, raw, notifications enabled, transport tuning), assigns the
// upload id, and finishes with struct-tag validation. The same routine runs for
// direct submissions and for queue entries when they reach the head, so a
// request is judged identically on both paths.
package request
