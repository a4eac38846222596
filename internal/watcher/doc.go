// Package watcher re-verifies rig documents when they change on disk.
//
// A Watcher observes a set of directories through fsnotify, coalesces the
// event bursts editors produce while saving, and runs each settled .dna or
// .json file back through the document loader. Results are reported through
// a callback; verification failures are never fatal to the watch loop.
package watcher
