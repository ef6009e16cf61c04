package params

import (
	"fmt"
	"math"
	"mime/multipart"
	"sort"
	"strconv"
	"strings"

	"workbench/internal/services"
)

// Limits holds the per-route file count ceilings and floors. MaxDimension
// caps explicit resize targets; zero leaves them unbounded.
type Limits struct {
	MaxImages    int
	MaxVideos    int
	MinMergePDFs int
	MaxDimension int
}

// DefaultLimits mirrors the [limits] defaults.
func DefaultLimits() Limits {
	return Limits{MaxImages: 10, MaxVideos: 3, MinMergePDFs: 2, MaxDimension: 10000}
}

// Presets maps resize preset names to their target dimensions.
var Presets = map[string]Size{
	"1920x1080": {Width: 1920, Height: 1080},
	"1280x720":  {Width: 1280, Height: 720},
	"1080x1080": {Width: 1080, Height: 1080},
}

// Filter names accepted by the filters route.
const (
	FilterGrayscale = "grayscale"
	FilterSepia     = "sepia"
	FilterInvert    = "invert"
	FilterBlur      = "blur"
)

var supportedFilters = map[string]struct{}{
	FilterGrayscale: {},
	FilterSepia:     {},
	FilterInvert:    {},
	FilterBlur:      {},
}

// DefaultCompressQuality is used when the compress route omits quality.
const DefaultCompressQuality = 20

// Size is a target width and height in pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Resize strategies.
const (
	StrategyPreset     = "preset"
	StrategyDimensions = "dimensions"
)

// Resize is a validated resize request. Exactly one of Preset or
// Width/Height is set.
type Resize struct {
	Preset string
	Width  int
	Height int
}

// Strategy reports which group of fields determines the target size.
func (r Resize) Strategy() string {
	if r.Preset != "" {
		return StrategyPreset
	}
	return StrategyDimensions
}

// Size resolves the target dimensions.
func (r Resize) Size() Size {
	if r.Preset != "" {
		return Presets[r.Preset]
	}
	return Size{Width: r.Width, Height: r.Height}
}

// Filters is a validated filters request; Names keeps the client order.
type Filters struct {
	Names     []string
	Intensity int
}

// Compress is a validated compress request.
type Compress struct {
	Quality int
}

// Video is a validated video processing request.
type Video struct {
	MusicStart int
	Volume     float64
}

func invalid(message string) error {
	return services.Fail(services.ErrValidation, message, nil)
}

// ImageFiles returns the "files" uploads after presence and count checks.
func ImageFiles(form *multipart.Form, limits Limits) ([]*multipart.FileHeader, error) {
	files := fileList(form, "files")
	if len(files) == 0 {
		return nil, invalid("No files provided")
	}
	if len(files) > limits.MaxImages {
		return nil, invalid(fmt.Sprintf("Maximum %d images allowed", limits.MaxImages))
	}
	return files, nil
}

// ParseResize validates the resize route.
func ParseResize(form *multipart.Form, limits Limits) (Resize, []*multipart.FileHeader, error) {
	files, err := ImageFiles(form, limits)
	if err != nil {
		return Resize{}, nil, err
	}

	preset, hasPreset := value(form, "preset")
	widthRaw, hasWidth := value(form, "width")
	heightRaw, hasHeight := value(form, "height")

	var width, height int
	if hasWidth {
		if width, err = strconv.Atoi(widthRaw); err != nil {
			return Resize{}, nil, invalid("Width and height must be integers")
		}
	}
	if hasHeight {
		if height, err = strconv.Atoi(heightRaw); err != nil {
			return Resize{}, nil, invalid("Width and height must be integers")
		}
	}

	switch {
	case hasPreset && (hasWidth || hasHeight):
		return Resize{}, nil, invalid("Provide either a preset or width and height, not both")
	case !hasPreset && !hasWidth && !hasHeight:
		return Resize{}, nil, invalid("Provide a preset or width and height")
	case hasPreset:
		if _, ok := Presets[preset]; !ok {
			return Resize{}, nil, invalid("Invalid resize preset")
		}
		return Resize{Preset: preset}, files, nil
	case !hasWidth || !hasHeight:
		return Resize{}, nil, invalid("Width and height must be provided for custom resize")
	case width <= 0 || height <= 0:
		return Resize{}, nil, invalid("Width and height must be positive integers")
	case limits.MaxDimension > 0 && (width > limits.MaxDimension || height > limits.MaxDimension):
		return Resize{}, nil, invalid(fmt.Sprintf("Width and height must not exceed %d pixels", limits.MaxDimension))
	default:
		return Resize{Width: width, Height: height}, files, nil
	}
}

// ParseFilters validates the filters route.
func ParseFilters(form *multipart.Form, limits Limits) (Filters, []*multipart.FileHeader, error) {
	files, err := ImageFiles(form, limits)
	if err != nil {
		return Filters{}, nil, err
	}

	names := values(form, "filters")
	if len(names) == 0 {
		return Filters{}, nil, invalid("No filters selected")
	}
	raw, ok := value(form, "intensity")
	if !ok {
		return Filters{}, nil, invalid("Intensity is required")
	}
	intensity, err := strconv.Atoi(raw)
	if err != nil {
		return Filters{}, nil, invalid("Intensity must be an integer")
	}

	var unknown []string
	seen := map[string]struct{}{}
	for _, name := range names {
		if _, ok := supportedFilters[name]; ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		unknown = append(unknown, name)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Filters{}, nil, invalid("Invalid filters: " + strings.Join(unknown, ", "))
	}
	if intensity < 0 || intensity > 100 {
		return Filters{}, nil, invalid("Intensity must be between 0 and 100")
	}
	return Filters{Names: append([]string(nil), names...), Intensity: intensity}, files, nil
}

// ParseMerge validates the merge route.
func ParseMerge(form *multipart.Form, limits Limits) ([]*multipart.FileHeader, error) {
	if form == nil || form.File == nil {
		return nil, invalid("No files uploaded")
	}
	if _, present := form.File["pdfs"]; !present {
		return nil, invalid("No files uploaded")
	}
	files := fileList(form, "pdfs")
	if len(files) < limits.MinMergePDFs {
		return nil, invalid(fmt.Sprintf("Please upload at least %s PDFs", countWord(limits.MinMergePDFs)))
	}
	return files, nil
}

// ParseSplit validates the split route.
func ParseSplit(form *multipart.Form) (*multipart.FileHeader, error) {
	return singleFile(form, "pdf")
}

// ParseCompress validates the compress route.
func ParseCompress(form *multipart.Form) (Compress, *multipart.FileHeader, error) {
	file, err := singleFile(form, "pdf")
	if err != nil {
		return Compress{}, nil, err
	}
	quality := DefaultCompressQuality
	if raw, ok := value(form, "quality"); ok {
		if quality, err = strconv.Atoi(raw); err != nil {
			return Compress{}, nil, invalid("Quality must be an integer")
		}
	}
	if quality < 1 || quality > 100 {
		return Compress{}, nil, invalid("Quality must be between 1 and 100")
	}
	return Compress{Quality: quality}, file, nil
}

// ParseVideo validates the video route and returns the video uploads plus the
// optional music upload (nil when absent).
func ParseVideo(form *multipart.Form, limits Limits) (Video, []*multipart.FileHeader, *multipart.FileHeader, error) {
	videos := fileList(form, "videos")
	if len(videos) == 0 {
		return Video{}, nil, nil, invalid("At least one video is required")
	}
	if len(videos) > limits.MaxVideos {
		return Video{}, nil, nil, invalid(fmt.Sprintf("Maximum %d videos allowed", limits.MaxVideos))
	}

	opts := Video{MusicStart: 0, Volume: 1.0}
	var err error
	if raw, ok := value(form, "music_start"); ok {
		if opts.MusicStart, err = strconv.Atoi(raw); err != nil {
			return Video{}, nil, nil, invalid("music_start must be an integer")
		}
	}
	if raw, ok := value(form, "volume"); ok {
		opts.Volume, err = strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(opts.Volume) || math.IsInf(opts.Volume, 0) {
			return Video{}, nil, nil, invalid("volume must be a number")
		}
	}
	if opts.MusicStart < 0 {
		return Video{}, nil, nil, invalid("music_start must be zero or greater")
	}
	if opts.Volume < 0 || opts.Volume > 10 {
		return Video{}, nil, nil, invalid("volume must be between 0 and 10")
	}

	var music *multipart.FileHeader
	if list := fileList(form, "music"); len(list) > 0 {
		music = list[0]
	}
	return opts, videos, music, nil
}

func singleFile(form *multipart.Form, field string) (*multipart.FileHeader, error) {
	files := fileList(form, field)
	if len(files) == 0 {
		return nil, invalid("No file uploaded")
	}
	return files[0], nil
}

// fileList drops parts submitted without a filename (empty file inputs).
func fileList(form *multipart.Form, field string) []*multipart.FileHeader {
	if form == nil || form.File == nil {
		return nil
	}
	out := make([]*multipart.FileHeader, 0, len(form.File[field]))
	for _, fh := range form.File[field] {
		if fh != nil && strings.TrimSpace(fh.Filename) != "" {
			out = append(out, fh)
		}
	}
	return out
}

// value returns the first trimmed value of a form field; blank counts as absent.
func value(form *multipart.Form, field string) (string, bool) {
	if form == nil || form.Value == nil {
		return "", false
	}
	list := form.Value[field]
	if len(list) == 0 {
		return "", false
	}
	v := strings.TrimSpace(list[0])
	return v, v != ""
}

func values(form *multipart.Form, field string) []string {
	if form == nil || form.Value == nil {
		return nil
	}
	out := make([]string, 0, len(form.Value[field]))
	for _, v := range form.Value[field] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func countWord(n int) string {
	words := []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}
	if n >= 0 && n < len(words) {
		return words[n]
	}
	return strconv.Itoa(n)
}
