// Package workspace owns the per-request scratch directories that every file
// transformation runs in.
//
// A Manager allocates one uniquely named directory per request below the
// configured root, persists uploads into it under regenerated names, and
// removes it exactly once when the request finishes, successfully or not.
// Client filenames never take part in path construction; only a validated
// extension survives.
//
// The maintenance helpers sweep directories left behind by a crash and list
// what is currently on disk for the CLI.
package workspace
