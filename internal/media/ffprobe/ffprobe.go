package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"workbench/internal/services"
)

// Codec types reported in Stream.CodecType.
const (
	CodecVideo = "video"
	CodecAudio = "audio"
)

// Result holds the parts of an ffprobe report used to plan ffmpeg runs.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Format captures container-level metadata.
type Format struct {
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Inspect runs ffprobe against path through exec and decodes the JSON response.
func Inspect(ctx context.Context, exec services.Executor, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	if exec == nil {
		exec = services.CommandExecutor{}
	}

	var output strings.Builder
	args := []string{
		"-v", "error", "-hide_banner",
		"-show_entries", "stream=index,codec_name,codec_type,width,height:format=duration,format_name",
		"-of", "json", "--", path,
	}
	if err := exec.Run(ctx, binary, args, func(line string) {
		output.WriteString(line)
		output.WriteByte('\n')
	}); err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}

	var result Result
	if err := json.Unmarshal([]byte(output.String()), &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// Duration inspects path and returns its container duration in seconds. A
// missing or unparsable duration is an error.
func Duration(ctx context.Context, exec services.Executor, binary string, path string) (float64, error) {
	result, err := Inspect(ctx, exec, binary, path)
	if err != nil {
		return 0, err
	}
	seconds := result.DurationSeconds()
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0, fmt.Errorf("ffprobe inspect: no duration reported for %s", path)
	}
	return seconds, nil
}

// StreamCount returns the number of streams of codecType.
func (r Result) StreamCount(codecType string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			count++
		}
	}
	return count
}

// HasVideo reports whether at least one video stream exists.
func (r Result) HasVideo() bool { return r.StreamCount(CodecVideo) > 0 }

// HasAudio reports whether at least one audio stream exists.
func (r Result) HasAudio() bool { return r.StreamCount(CodecAudio) > 0 }

// FrameSize returns the first video stream's dimensions, or false when no
// video stream reports them.
func (r Result) FrameSize() (int, int, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, CodecVideo) && stream.Width > 0 && stream.Height > 0 {
			return stream.Width, stream.Height, true
		}
	}
	return 0, 0, false
}

// DurationSeconds returns the container duration in seconds, 0 when absent
// and NaN when unparsable.
func (r Result) DurationSeconds() float64 {
	cleaned := strings.TrimSpace(r.Format.Duration)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return math.NaN()
	}
	return parsed
}
