// Package history records every file-processing run in a small SQLite
// database (modernc.org/sqlite, WAL mode) so operators can see what the
// server did after the request workspaces are gone.
//
// Only counts, sizes, timings and the client-facing error message are kept.
// Uploaded content and client filenames are never stored.
package history
