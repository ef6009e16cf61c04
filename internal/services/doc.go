// Package services defines shared utilities consumed by the transformation
// services and the HTTP layer.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, route names, and workspace
//     names for logging.
//   - Structured error markers, the Wrap helper for internal context, and
//     Fail/Message/HTTPStatus for client-facing errors.
//   - The Executor abstraction that makes external tools (ffmpeg, ffprobe,
//     ghostscript) testable.
//
// Use these helpers when wiring new transformations so error handling and
// observability stay uniform across routes.
package services
