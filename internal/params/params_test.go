package params_test

import (
	"errors"
	"mime/multipart"
	"testing"

	"workbench/internal/params"
	"workbench/internal/services"
)

func formWith(values map[string][]string, files map[string]int) *multipart.Form {
	form := &multipart.Form{Value: map[string][]string{}, File: map[string][]*multipart.FileHeader{}}
	for k, v := range values {
		form.Value[k] = v
	}
	for field, n := range files {
		list := make([]*multipart.FileHeader, 0, n)
		for i := 0; i < n; i++ {
			list = append(list, &multipart.FileHeader{Filename: field + ".bin"})
		}
		form.File[field] = list
	}
	return form
}

func expectMessage(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %q, got nil", want)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := services.Message(err); got != want {
		t.Fatalf("expected message %q, got %q", want, got)
	}
}

func TestParseResize(t *testing.T) {
	limits := params.DefaultLimits()
	tests := []struct {
		name   string
		values map[string][]string
		files  int
		want   string
	}{
		{"no files", map[string][]string{"preset": {"1280x720"}}, 0, "No files provided"},
		{"too many files", map[string][]string{"preset": {"1280x720"}}, 11, "Maximum 10 images allowed"},
		{"bad width", map[string][]string{"width": {"wide"}, "height": {"10"}}, 1, "Width and height must be integers"},
		{"both groups", map[string][]string{"preset": {"1280x720"}, "width": {"10"}, "height": {"10"}}, 1, "Provide either a preset or width and height, not both"},
		{"neither group", map[string][]string{"preset": {""}}, 1, "Provide a preset or width and height"},
		{"unknown preset", map[string][]string{"preset": {"800x600"}}, 1, "Invalid resize preset"},
		{"width only", map[string][]string{"width": {"10"}}, 1, "Width and height must be provided for custom resize"},
		{"zero height", map[string][]string{"width": {"10"}, "height": {"0"}}, 1, "Width and height must be positive integers"},
		{"width over ceiling", map[string][]string{"width": {"10001"}, "height": {"10"}}, 1, "Width and height must not exceed 10000 pixels"},
		{"huge width", map[string][]string{"width": {"4611686018427387904"}, "height": {"4"}}, 1, "Width and height must not exceed 10000 pixels"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := params.ParseResize(formWith(tc.values, map[string]int{"files": tc.files}), limits)
			expectMessage(t, err, tc.want)
		})
	}

	got, files, err := params.ParseResize(formWith(map[string][]string{"preset": {"1280x720"}}, map[string]int{"files": 2}), limits)
	if err != nil {
		t.Fatalf("ParseResize: %v", err)
	}
	if len(files) != 2 || got.Strategy() != params.StrategyPreset || got.Size() != (params.Size{Width: 1280, Height: 720}) {
		t.Fatalf("unexpected preset result %+v (%d files)", got, len(files))
	}

	got, _, err = params.ParseResize(formWith(map[string][]string{"width": {" 300 "}, "height": {"200"}}, map[string]int{"files": 1}), limits)
	if err != nil {
		t.Fatalf("ParseResize: %v", err)
	}
	if got.Strategy() != params.StrategyDimensions || got.Size().String() != "300x200" {
		t.Fatalf("unexpected dimensions result %+v", got)
	}

	got, _, err = params.ParseResize(formWith(map[string][]string{"width": {"10000"}, "height": {"10000"}}, map[string]int{"files": 1}), limits)
	if err != nil || got.Size().String() != "10000x10000" {
		t.Fatalf("expected targets at the ceiling to pass, got %+v %v", got, err)
	}
}

func TestParseFilters(t *testing.T) {
	limits := params.DefaultLimits()
	tests := []struct {
		name   string
		values map[string][]string
		files  int
		want   string
	}{
		{"no files", map[string][]string{"filters": {"invert"}, "intensity": {"50"}}, 0, "No files provided"},
		{"too many", map[string][]string{"filters": {"invert"}, "intensity": {"50"}}, 11, "Maximum 10 images allowed"},
		{"no filters", map[string][]string{"intensity": {"50"}}, 1, "No filters selected"},
		{"missing intensity", map[string][]string{"filters": {"invert"}}, 1, "Intensity is required"},
		{"text intensity", map[string][]string{"filters": {"invert"}, "intensity": {"high"}}, 1, "Intensity must be an integer"},
		{"unknown filters", map[string][]string{"filters": {"vignette", "invert", "emboss", "vignette"}, "intensity": {"50"}}, 1, "Invalid filters: emboss, vignette"},
		{"intensity above range", map[string][]string{"filters": {"invert"}, "intensity": {"101"}}, 1, "Intensity must be between 0 and 100"},
		{"intensity below range", map[string][]string{"filters": {"invert"}, "intensity": {"-1"}}, 1, "Intensity must be between 0 and 100"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := params.ParseFilters(formWith(tc.values, map[string]int{"files": tc.files}), limits)
			expectMessage(t, err, tc.want)
		})
	}

	got, _, err := params.ParseFilters(formWith(map[string][]string{"filters": {"sepia", "blur"}, "intensity": {"100"}}, map[string]int{"files": 1}), limits)
	if err != nil {
		t.Fatalf("ParseFilters: %v", err)
	}
	if len(got.Names) != 2 || got.Names[0] != "sepia" || got.Names[1] != "blur" || got.Intensity != 100 {
		t.Fatalf("unexpected filters %+v", got)
	}
}

func TestParseMerge(t *testing.T) {
	limits := params.DefaultLimits()
	_, err := params.ParseMerge(formWith(nil, nil), limits)
	expectMessage(t, err, "No files uploaded")

	_, err = params.ParseMerge(formWith(nil, map[string]int{"pdfs": 1}), limits)
	expectMessage(t, err, "Please upload at least two PDFs")

	files, err := params.ParseMerge(formWith(nil, map[string]int{"pdfs": 3}), limits)
	if err != nil || len(files) != 3 {
		t.Fatalf("expected 3 files, got %d (%v)", len(files), err)
	}
}

func TestParseSplitAndCompress(t *testing.T) {
	_, err := params.ParseSplit(formWith(nil, nil))
	expectMessage(t, err, "No file uploaded")

	_, _, err = params.ParseCompress(formWith(map[string][]string{"quality": {"20"}}, nil))
	expectMessage(t, err, "No file uploaded")

	_, _, err = params.ParseCompress(formWith(map[string][]string{"quality": {"best"}}, map[string]int{"pdf": 1}))
	expectMessage(t, err, "Quality must be an integer")

	_, _, err = params.ParseCompress(formWith(map[string][]string{"quality": {"0"}}, map[string]int{"pdf": 1}))
	expectMessage(t, err, "Quality must be between 1 and 100")

	got, file, err := params.ParseCompress(formWith(nil, map[string]int{"pdf": 1}))
	if err != nil || file == nil {
		t.Fatalf("ParseCompress: %v", err)
	}
	if got.Quality != params.DefaultCompressQuality {
		t.Fatalf("expected default quality, got %d", got.Quality)
	}
}

func TestParseVideo(t *testing.T) {
	limits := params.DefaultLimits()
	tests := []struct {
		name   string
		values map[string][]string
		videos int
		want   string
	}{
		{"no videos", nil, 0, "At least one video is required"},
		{"too many", nil, 4, "Maximum 3 videos allowed"},
		{"bad start", map[string][]string{"music_start": {"1.5"}}, 1, "music_start must be an integer"},
		{"bad volume", map[string][]string{"volume": {"loud"}}, 1, "volume must be a number"},
		{"nan volume", map[string][]string{"volume": {"NaN"}}, 1, "volume must be a number"},
		{"negative start", map[string][]string{"music_start": {"-3"}}, 1, "music_start must be zero or greater"},
		{"volume too high", map[string][]string{"volume": {"11"}}, 1, "volume must be between 0 and 10"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, err := params.ParseVideo(formWith(tc.values, map[string]int{"videos": tc.videos}), limits)
			expectMessage(t, err, tc.want)
		})
	}

	opts, videos, music, err := params.ParseVideo(formWith(nil, map[string]int{"videos": 2}), limits)
	if err != nil {
		t.Fatalf("ParseVideo: %v", err)
	}
	if len(videos) != 2 || music != nil || opts.MusicStart != 0 || opts.Volume != 1.0 {
		t.Fatalf("unexpected defaults %+v music=%v", opts, music)
	}

	opts, _, music, err = params.ParseVideo(formWith(map[string][]string{"music_start": {"5"}, "volume": {"0.5"}}, map[string]int{"videos": 1, "music": 1}), limits)
	if err != nil {
		t.Fatalf("ParseVideo: %v", err)
	}
	if music == nil || opts.MusicStart != 5 || opts.Volume != 0.5 {
		t.Fatalf("unexpected options %+v music=%v", opts, music)
	}
}

func TestLimitsComeFromCaller(t *testing.T) {
	limits := params.Limits{MaxImages: 2, MaxVideos: 1, MinMergePDFs: 3}
	_, _, err := params.ParseResize(formWith(map[string][]string{"preset": {"1280x720"}}, map[string]int{"files": 3}), limits)
	expectMessage(t, err, "Maximum 2 images allowed")

	_, err = params.ParseMerge(formWith(nil, map[string]int{"pdfs": 2}), limits)
	expectMessage(t, err, "Please upload at least three PDFs")
}
