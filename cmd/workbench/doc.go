// Package main hosts the Workbench CLI entrypoint and command graph.
//
// The Cobra command tree runs the HTTP server in the foreground, reports
// dependency and directory health, scaffolds and validates configuration,
// inspects and sweeps request workspaces, edits the todo document through the
// same locked store the server uses, and prints the processing history.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through dedicated commands or flags here.
package main
