// Package videotools concatenates uploaded clips and lays a music track over
// the result with ffmpeg. Stream layout and durations come from ffprobe. Both
// binaries run through a services.Executor.
package videotools
