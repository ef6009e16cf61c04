// Package config loads, normalizes, and validates Workbench configuration data.
//
// It supplies repository defaults rooted in the XDG base directories, expands
// user paths (including tilde shortcuts), reads TOML files, and honours the
// WORKBENCH_API_BIND, WORKBENCH_WORKSPACE_ROOT and WORKBENCH_LOG_LEVEL
// environment overrides. The Config type centralizes every knob the server and
// CLI need: where request workspaces are allocated, how many files each route
// accepts, which external tools to invoke, and how the todo document is locked.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
