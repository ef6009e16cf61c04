// Package serverrun owns the lifecycle of the Workbench HTTP server process.
//
// Run is shared by `workbench serve` and the workbenchd binary. It builds the
// logger from configuration, logs a dependency snapshot, takes an advisory
// instance lock in the data directory so two servers never sweep each other's
// workspaces, removes stale workspaces left by a previous crash, opens the
// history database, and serves until the process is signalled.
package serverrun
