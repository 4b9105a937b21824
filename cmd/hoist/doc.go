// Command hoist is the command-line front end for the Hoist upload daemon.
//
// `hoist daemon` runs the daemon in the foreground. Every other command talks
// to the running daemon over its Unix socket, except `hoist info` and the
// config helpers which work locally.
package main
