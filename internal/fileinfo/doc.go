// Package fileinfo inspects local files referenced by upload requests.
//
// Lookup never fails: a missing or unreadable path yields Exists=false. Paths
// may be plain filesystem paths or file:// URIs.
package fileinfo
