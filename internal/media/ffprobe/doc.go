// Package ffprobe runs ffprobe through a services.Executor and decodes the
// few fields video planning needs: stream codec types, the first video
// stream's frame size and the container duration.
//
// Inspect returns the decoded Result; Duration is the shortcut used to trim
// music overlays to the video length.
package ffprobe
