// Package daemonctl launches and stops the hoist daemon on behalf of the CLI.
//
// The daemon is started as a detached `hoist daemon` process and stopped with
// SIGTERM, which the daemon treats as a graceful shutdown. Processes that do
// not exit within the grace period are killed.
package daemonctl
