package ffprobe

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio"},
			{CodecType: "video", Width: 1920, Height: 1080},
			{CodecType: "audio"},
		},
		Format: Format{Duration: "123.45"},
	}
	if result.StreamCount(CodecVideo) != 1 || !result.HasVideo() {
		t.Fatalf("expected 1 video stream, got %d", result.StreamCount(CodecVideo))
	}
	if result.StreamCount(CodecAudio) != 2 || !result.HasAudio() {
		t.Fatalf("expected 2 audio streams, got %d", result.StreamCount(CodecAudio))
	}
	if w, h, ok := result.FrameSize(); !ok || w != 1920 || h != 1080 {
		t.Fatalf("unexpected frame size %dx%d (%v)", w, h, ok)
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
}

func TestResultHelpersHandleMissingData(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.HasVideo() || result.HasAudio() {
		t.Fatal("expected no streams")
	}
	if _, _, ok := result.FrameSize(); ok {
		t.Fatal("expected no frame size without a video stream")
	}
	if (Result{}).DurationSeconds() != 0 {
		t.Fatal("expected 0 for missing duration")
	}
}

type scriptedExecutor struct {
	lines  []string
	err    error
	binary string
	args   []string
}

func (s *scriptedExecutor) Run(_ context.Context, binary string, args []string, onOutput func(string)) error {
	s.binary = binary
	s.args = args
	for _, line := range s.lines {
		onOutput(line)
	}
	return s.err
}

func TestInspectParsesExecutorOutput(t *testing.T) {
	exec := &scriptedExecutor{lines: []string{
		`{"streams": [{"index": 0, "codec_type": "video", "width": 1280, "height": 720},`,
		`{"index": 1, "codec_type": "audio"}],`,
		`"format": {"duration": "12.500000", "format_name": "mov,mp4"}}`,
	}}
	result, err := Inspect(context.Background(), exec, "", "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if exec.binary != "ffprobe" {
		t.Fatalf("expected default binary, got %q", exec.binary)
	}
	if exec.args[len(exec.args)-1] != "/tmp/clip.mp4" || exec.args[len(exec.args)-2] != "--" {
		t.Fatalf("path must follow --: %v", exec.args)
	}
	if !result.HasVideo() || !result.HasAudio() {
		t.Fatalf("unexpected streams %+v", result.Streams)
	}
	if result.Format.FormatName != "mov,mp4" {
		t.Fatalf("unexpected format %q", result.Format.FormatName)
	}
}

func TestDuration(t *testing.T) {
	exec := &scriptedExecutor{lines: []string{`{"streams": [], "format": {"duration": "7.25"}}`}}
	seconds, err := Duration(context.Background(), exec, "ffprobe", "in.mp4")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if seconds != 7.25 {
		t.Fatalf("expected 7.25, got %v", seconds)
	}

	exec = &scriptedExecutor{lines: []string{`{"streams": [], "format": {}}`}}
	if _, err := Duration(context.Background(), exec, "ffprobe", "in.mp4"); err == nil {
		t.Fatal("expected error for missing duration")
	}
}

func TestInspectPropagatesFailure(t *testing.T) {
	exec := &scriptedExecutor{err: errors.New("exit status 1")}
	if _, err := Inspect(context.Background(), exec, "ffprobe", "in.mp4"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := Inspect(context.Background(), exec, "ffprobe", " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
