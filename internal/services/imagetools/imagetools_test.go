package imagetools_test

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"

	"workbench/internal/services"
	"workbench/internal/services/imagetools"
	"workbench/internal/testsupport"
)

func pixelAt(t *testing.T, path string, x, y int) color.NRGBA {
	t.Helper()
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func TestResizeProducesExactDimensions(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jpg")
	out := filepath.Join(dir, "out.jpg")
	testsupport.WriteImage(t, in, 64, 48, color.NRGBA{R: 200, G: 10, B: 10, A: 255})

	if err := imagetools.Resize(in, out, 32, 20); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	img, err := imaging.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 20 {
		t.Fatalf("expected 32x20, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestResizeRejectsUndecodableInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	testsupport.WriteFile(t, in, 128)

	err := imagetools.Resize(in, filepath.Join(dir, "out.png"), 10, 10)
	if !errors.Is(err, services.ErrTransformation) {
		t.Fatalf("expected transformation error, got %v", err)
	}
}

func TestApplyFiltersInvertFull(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	testsupport.WriteImage(t, in, 4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	if err := imagetools.ApplyFilters(in, out, []string{imagetools.Invert}, 100); err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}
	got := pixelAt(t, out, 1, 1)
	want := color.NRGBA{R: 245, G: 235, B: 225, A: 255}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestApplyFiltersZeroIntensityKeepsPixels(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	fill := color.NRGBA{R: 90, G: 140, B: 30, A: 255}
	testsupport.WriteImage(t, in, 4, 4, fill)

	if err := imagetools.ApplyFilters(in, out, []string{imagetools.Invert, imagetools.Sepia}, 0); err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}
	if got := pixelAt(t, out, 2, 2); got != fill {
		t.Fatalf("expected unchanged %v, got %v", fill, got)
	}
}

func TestApplyFiltersGrayscaleEqualizesChannels(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	testsupport.WriteImage(t, in, 4, 4, color.NRGBA{R: 250, G: 30, B: 60, A: 255})

	if err := imagetools.ApplyFilters(in, out, []string{imagetools.Grayscale}, 100); err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}
	got := pixelAt(t, out, 0, 0)
	if got.R != got.G || got.G != got.B {
		t.Fatalf("expected gray pixel, got %v", got)
	}
}

func TestApplyFiltersSepiaTonesGray(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	testsupport.WriteImage(t, in, 4, 4, color.NRGBA{R: 100, G: 100, B: 100, A: 255})

	if err := imagetools.ApplyFilters(in, out, []string{imagetools.Sepia}, 100); err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}
	got := pixelAt(t, out, 0, 0)
	if !(got.R > got.G && got.G > got.B) {
		t.Fatalf("expected warm sepia tone, got %v", got)
	}
}

func TestApplyFiltersBlurKeepsSize(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	testsupport.WriteImage(t, in, 16, 12, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	if err := imagetools.ApplyFilters(in, out, []string{imagetools.Blur}, 50); err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}
	img, err := imaging.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 12 {
		t.Fatalf("unexpected size %v", b)
	}
}

func TestApplyFiltersValidation(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	testsupport.WriteImage(t, in, 2, 2, color.White)

	tests := []struct {
		name      string
		filters   []string
		intensity int
		want      string
	}{
		{"none", nil, 50, "No filters selected"},
		{"too strong", []string{imagetools.Blur}, 101, "Intensity must be between 0 and 100"},
		{"unknown", []string{"posterize", imagetools.Blur, "emboss"}, 50, "Invalid filters: emboss, posterize"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := imagetools.ApplyFilters(in, filepath.Join(dir, tc.name+".png"), tc.filters, tc.intensity)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if services.Message(err) != tc.want {
				t.Fatalf("got %q want %q", services.Message(err), tc.want)
			}
		})
	}
}

func TestOutputExt(t *testing.T) {
	tests := map[string]string{
		".jpg":  ".jpg",
		".JPEG": ".jpeg",
		"png":   ".png",
		"":      ".png",
		".webp": ".png",
	}
	for in, want := range tests {
		if got := imagetools.OutputExt(in); got != want {
			t.Errorf("OutputExt(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBatchRunsEveryIndex(t *testing.T) {
	results := make([]int, 20)
	err := imagetools.Batch(context.Background(), len(results), func(_ context.Context, i int) error {
		results[i] = i * i
		return nil
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	for i, v := range results {
		if v != i*i {
			t.Fatalf("index %d not processed", i)
		}
	}
}

func TestBatchReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	err := imagetools.Batch(context.Background(), 5, func(_ context.Context, i int) error {
		calls.Add(1)
		if i == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls.Load() == 0 {
		t.Fatal("expected calls")
	}
}

func TestBatchRecoversPanics(t *testing.T) {
	err := imagetools.Batch(context.Background(), 3, func(_ context.Context, i int) error {
		if i == 1 {
			var m map[string]int
			m["boom"] = 1
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected error from panicking call")
	}
	if !errors.Is(err, services.ErrTransformation) {
		t.Fatalf("expected transformation error, got %v", err)
	}
	if services.Message(err) != "Image processing failed" {
		t.Fatalf("unexpected message %q", services.Message(err))
	}
}

func TestCheckDimensions(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.png")
	testsupport.WriteImage(t, small, 40, 30, color.White)
	huge := filepath.Join(dir, "huge.png")
	if err := os.WriteFile(huge, testsupport.PNGDeclaringSize(t, 50000, 50000), 0o644); err != nil {
		t.Fatalf("write huge: %v", err)
	}

	if err := imagetools.CheckDimensions(small, 40); err != nil {
		t.Fatalf("expected image at the limit to pass, got %v", err)
	}
	if err := imagetools.CheckDimensions(huge, 0); err != nil {
		t.Fatalf("expected zero limit to disable the check, got %v", err)
	}

	err := imagetools.CheckDimensions(huge, 10000)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if msg := services.Message(err); !strings.Contains(msg, "50000x50000") || !strings.Contains(msg, "10000") {
		t.Fatalf("unexpected message %q", msg)
	}

	err = imagetools.CheckDimensions(small, 39)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for 40px image over 39px limit, got %v", err)
	}
}
