// Package logs tails the daemon log file for `hoist logs`.
//
// Negative offsets mean "the last N lines"; non-negative offsets resume from a
// byte position returned by a previous call. The daemon log is rotated by
// lumberjack, so an offset past the end of the current file restarts from the
// beginning of the new file.
package logs
