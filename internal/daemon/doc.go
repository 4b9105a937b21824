// Package daemon coordinates the long-running Hoist process.
//
// It wires configuration, the upload manager, notifications, and the optional
// HTTP API into a single lifecycle with flock-based locking to prevent
// multiple instances from sharing one state directory. Upload orchestration
// lives in the uploads package; the daemon focuses on startup, shutdown, and
// exposing manager operations to the IPC and HTTP layers.
package daemon
