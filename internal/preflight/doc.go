// Package preflight provides readiness checks for the external binaries and
// filesystem paths that Workbench depends on.
//
// These checks run in three contexts:
//   - The server logs a summary at start so a missing ffmpeg is visible before
//     the first video request fails.
//   - GET /api/status serves a Report as JSON.
//   - The CLI "workbench status" command renders the same Report as status lines.
//
// Ghostscript is optional: PDF compression falls back to pdfcpu optimisation.
package preflight
