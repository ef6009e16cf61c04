// Package deps reports whether the external binaries used by the PDF and
// video tools can be found, and resolves ffprobe alongside a bundled ffmpeg.
package deps
