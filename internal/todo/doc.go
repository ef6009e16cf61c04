// Package todo stores workspaces of tasks in a single JSON document.
//
// The document is shared by the HTTP server and the CLI, possibly in
// different processes, so every read-modify-write holds an advisory lock on
// <document>.lock (gofrs/flock), polled until the configured timeout. Writes
// go to a temp file that is renamed over the document, so readers never take
// the lock. Document I/O goes through afero so tests can use an in-memory
// filesystem.
package todo
