// Package notifications delivers upload events as ntfy push notifications.
//
// NewService publishes to the topic configured in config.toml and degrades to
// a no-op when no topic is set. Listener turns hub events into messages,
// honoring each upload's notification options, and sends them off the
// routing goroutine.
package notifications
