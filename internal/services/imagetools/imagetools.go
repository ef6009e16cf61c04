package imagetools

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"workbench/internal/services"
)

// Filter names understood by ApplyFilters.
const (
	Grayscale = "grayscale"
	Sepia     = "sepia"
	Invert    = "invert"
	Blur      = "blur"
)

const defaultExt = ".png"

// Resize scales the image at in to exactly width x height with a Lanczos
// filter and writes it to out.
func Resize(in, out string, width, height int) error {
	if width <= 0 || height <= 0 {
		return services.Fail(services.ErrValidation, "Width and height must be positive integers", nil)
	}
	img, err := open(in)
	if err != nil {
		return err
	}
	resized := imaging.Resize(img, width, height, imaging.Lanczos)
	return save(resized, out)
}

// ApplyFilters applies names in order. Each filter result is blended over the
// current image with opacity intensity/100, so 0 leaves the image unchanged
// and 100 applies the filter fully.
func ApplyFilters(in, out string, names []string, intensity int) error {
	if len(names) == 0 {
		return services.Fail(services.ErrValidation, "No filters selected", nil)
	}
	if intensity < 0 || intensity > 100 {
		return services.Fail(services.ErrValidation, "Intensity must be between 0 and 100", nil)
	}
	if unknown := unknownFilters(names); len(unknown) > 0 {
		return services.Fail(services.ErrValidation, "Invalid filters: "+strings.Join(unknown, ", "), nil)
	}

	img, err := open(in)
	if err != nil {
		return err
	}
	strength := float64(intensity) / 100
	current := imaging.Clone(img)
	for _, name := range names {
		filtered := applyFilter(current, name, strength)
		current = imaging.Overlay(current, filtered, image.Pt(0, 0), strength)
	}
	return save(current, out)
}

// OutputExt returns the extension results for an input with inputExt should be
// written with: the input extension when imaging can encode it, otherwise PNG.
func OutputExt(inputExt string) string {
	ext := strings.ToLower(strings.TrimSpace(inputExt))
	if ext == "" {
		return defaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if _, err := imaging.FormatFromExtension(ext); err != nil {
		return defaultExt
	}
	return ext
}

func applyFilter(img *image.NRGBA, name string, strength float64) *image.NRGBA {
	switch name {
	case Grayscale:
		return imaging.Grayscale(img)
	case Sepia:
		return sepia(img)
	case Invert:
		return imaging.Invert(img)
	case Blur:
		return imaging.Blur(img, blurSigma(strength))
	default:
		return img
	}
}

func blurSigma(strength float64) float64 {
	return 0.1 + strength*5
}

// sepia tones the grayscale rendition of img with the usual sepia matrix.
func sepia(img *image.NRGBA) *image.NRGBA {
	gray := imaging.Grayscale(img)
	return imaging.AdjustFunc(gray, func(c color.NRGBA) color.NRGBA {
		r, g, b := float64(c.R), float64(c.G), float64(c.B)
		return color.NRGBA{
			R: clamp(0.393*r + 0.769*g + 0.189*b),
			G: clamp(0.349*r + 0.686*g + 0.168*b),
			B: clamp(0.272*r + 0.534*g + 0.131*b),
			A: c.A,
		}
	})
}

func clamp(v float64) uint8 {
	if v >= 255 {
		return 255
	}
	if v <= 0 {
		return 0
	}
	return uint8(math.Floor(v))
}

func unknownFilters(names []string) []string {
	seen := map[string]struct{}{}
	var unknown []string
	for _, name := range names {
		switch name {
		case Grayscale, Sepia, Invert, Blur:
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		unknown = append(unknown, name)
	}
	sort.Strings(unknown)
	return unknown
}

// CheckDimensions reads only the header of the image at path and fails when
// either side exceeds maxDimension. A non-positive maxDimension disables the
// check.
func CheckDimensions(path string, maxDimension int) error {
	if maxDimension <= 0 {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return services.Fail(services.ErrFilesystem, "Could not read image", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return services.Fail(services.ErrTransformation, "Could not read image: "+decodeReason(err), err)
	}
	if cfg.Width > maxDimension || cfg.Height > maxDimension {
		return services.Fail(services.ErrValidation,
			fmt.Sprintf("Image dimensions %dx%d exceed the %d pixel limit", cfg.Width, cfg.Height, maxDimension), nil)
	}
	return nil
}

func open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, services.Fail(services.ErrTransformation, "Could not read image: "+decodeReason(err), err)
	}
	return img, nil
}

func save(img image.Image, path string) error {
	if _, err := imaging.FormatFromFilename(path); err != nil {
		return services.Fail(services.ErrTransformation, fmt.Sprintf("Unsupported output format %q", filepath.Ext(path)), err)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		return services.Fail(services.ErrTransformation, "Could not write image", err)
	}
	return nil
}

func decodeReason(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "unknown format") {
		return "unsupported or corrupt image"
	}
	return msg
}
