// Package transport executes uploads and reports their lifecycle.
//
// A Transport accepts normalized requests through Submit and reports progress
// and exactly one terminal event per accepted upload on its Events channel.
// The HTTP implementation runs one goroutine per upload and serializes the
// events of each upload so they reach the channel in production order.
package transport
