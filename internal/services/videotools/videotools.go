package videotools

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"workbench/internal/fileutil"
	"workbench/internal/logging"
	"workbench/internal/media/ffprobe"
	"workbench/internal/services"
)

// Options are the music overlay settings.
type Options struct {
	// MusicStart is the offset into the music track in seconds.
	MusicStart int
	// Volume scales the music track; 1.0 keeps it unchanged.
	Volume float64
}

// Tools runs video transformations.
type Tools struct {
	ffmpeg  string
	ffprobe string
	exec    services.Executor
	logger  *slog.Logger
}

// New returns Tools that call the given ffmpeg and ffprobe binaries through exec.
func New(ffmpeg, ffprobe string, exec services.Executor, logger *slog.Logger) *Tools {
	if exec == nil {
		exec = services.CommandExecutor{}
	}
	if strings.TrimSpace(ffmpeg) == "" {
		ffmpeg = "ffmpeg"
	}
	if strings.TrimSpace(ffprobe) == "" {
		ffprobe = "ffprobe"
	}
	return &Tools{
		ffmpeg:  strings.TrimSpace(ffmpeg),
		ffprobe: strings.TrimSpace(ffprobe),
		exec:    exec,
		logger:  logging.NewComponentLogger(logger, "videotools"),
	}
}

// Process writes the final video to out. More than one video is concatenated
// in order; with music, the track is trimmed from MusicStart to the length of
// the video and replaces its audio. A single video without music is copied.
func (t *Tools) Process(ctx context.Context, videos []string, music string, out string, opts Options) error {
	if len(videos) == 0 {
		return services.Fail(services.ErrValidation, "At least one video is required", nil)
	}
	if opts.MusicStart < 0 {
		return services.Fail(services.ErrValidation, "music_start must be zero or greater", nil)
	}
	if math.IsNaN(opts.Volume) || opts.Volume < 0 || opts.Volume > 10 {
		return services.Fail(services.ErrValidation, "volume must be between 0 and 10", nil)
	}

	base := videos[0]
	if len(videos) > 1 {
		target := out
		if music != "" {
			target = strings.TrimSuffix(out, filepath.Ext(out)) + "_concat.mp4"
			defer os.Remove(target)
		}
		if err := t.Concat(ctx, videos, target); err != nil {
			return err
		}
		base = target
	}

	if music == "" {
		if base == out {
			return nil
		}
		if err := fileutil.CopyFile(base, out); err != nil {
			return services.Fail(services.ErrFilesystem, "Could not write output video", err)
		}
		return nil
	}
	return t.AddMusic(ctx, base, music, out, opts)
}

// Concat joins videos in order into out, re-encoding to H.264/AAC. Every
// clip is scaled and padded to the first clip's frame size. Audio is kept
// only when every clip carries an audio stream.
func (t *Tools) Concat(ctx context.Context, videos []string, out string) error {
	probes := make([]ffprobe.Result, len(videos))
	for i, path := range videos {
		result, err := ffprobe.Inspect(ctx, t.exec, t.ffprobe, path)
		if err != nil {
			return services.Fail(services.ErrTransformation, fmt.Sprintf("Could not read video %d", i+1), err)
		}
		if !result.HasVideo() {
			return services.Fail(services.ErrTransformation, fmt.Sprintf("Video %d has no video stream", i+1), nil)
		}
		probes[i] = result
	}

	width, height := frameSize(probes[0])
	withAudio := true
	for _, probe := range probes {
		if !probe.HasAudio() {
			withAudio = false
			break
		}
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, path := range videos {
		args = append(args, "-i", path)
	}
	args = append(args, "-filter_complex", concatFilter(len(videos), width, height, withAudio), "-map", "[v]")
	if withAudio {
		args = append(args, "-map", "[a]", "-c:a", "aac")
	}
	args = append(args, h264Args()...)
	args = append(args, out)

	if err := t.run(ctx, "video_concat", args); err != nil {
		return services.Fail(services.ErrExternalTool, "Could not concatenate videos", err)
	}
	t.logger.Debug("video concat complete",
		logging.Int("clips", len(videos)),
		logging.Bool("audio", withAudio),
		logging.String(logging.FieldEventType, "video_concat"),
	)
	return nil
}

// AddMusic replaces the audio of video with music, starting opts.MusicStart
// seconds into the track and lasting as long as the video. When the rest of
// the track is shorter than the video, the track repeats from its beginning.
func (t *Tools) AddMusic(ctx context.Context, video, music, out string, opts Options) error {
	duration, err := ffprobe.Duration(ctx, t.exec, t.ffprobe, video)
	if err != nil {
		return services.Fail(services.ErrTransformation, "Could not read video duration", err)
	}
	musicLength, err := ffprobe.Duration(ctx, t.exec, t.ffprobe, music)
	if err != nil {
		return services.Fail(services.ErrTransformation, "Could not read music file", err)
	}
	if float64(opts.MusicStart) >= musicLength {
		return services.Fail(services.ErrValidation, "music_start is beyond the end of the music track", nil)
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", video}
	if musicLength-float64(opts.MusicStart) < duration {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args,
		"-ss", strconv.Itoa(opts.MusicStart),
		"-i", music,
		"-filter_complex", "[1:a:0]volume="+formatVolume(opts.Volume)+"[a]",
		"-map", "0:v:0",
		"-map", "[a]",
		"-c:a", "aac",
		"-t", formatSeconds(duration),
	)
	args = append(args, h264Args()...)
	args = append(args, out)

	if err := t.run(ctx, "video_music", args); err != nil {
		return services.Fail(services.ErrExternalTool, "Could not add music to video", err)
	}
	return nil
}

func (t *Tools) run(ctx context.Context, stage string, args []string) error {
	logger := logging.WithContext(ctx, t.logger)
	err := t.exec.Run(ctx, t.ffmpeg, args, func(line string) {
		logger.Debug("ffmpeg output", logging.String("stage", stage), logging.String("line", line))
	})
	if err != nil {
		logging.WarnWithContext(logger, "ffmpeg failed", "ffmpeg_failed",
			logging.String("stage", stage),
			logging.String("binary", t.ffmpeg),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the uploaded media or the tools.ffmpeg setting"),
			logging.String(logging.FieldImpact, "video request failed"),
		)
	}
	return err
}

func h264Args() []string {
	return []string{"-c:v", "libx264", "-preset", "veryfast", "-crf", "23", "-pix_fmt", "yuv420p", "-movflags", "+faststart"}
}

func concatFilter(n, width, height int, withAudio bool) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "[%d:v:0]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1[v%d];", i, width, height, width, height, i)
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "[v%d]", i)
		if withAudio {
			fmt.Fprintf(&b, "[%d:a:0]", i)
		}
	}
	audio := 0
	if withAudio {
		audio = 1
	}
	fmt.Fprintf(&b, "concat=n=%d:v=1:a=%d[v]", n, audio)
	if withAudio {
		b.WriteString("[a]")
	}
	return b.String()
}

// frameSize returns the first video stream's size rounded down to even
// values, which libx264 with yuv420p requires.
func frameSize(probe ffprobe.Result) (int, int) {
	if width, height, ok := probe.FrameSize(); ok {
		return width &^ 1, height &^ 1
	}
	return 1280, 720
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}

func formatVolume(volume float64) string {
	return strconv.FormatFloat(volume, 'f', -1, 64)
}
