package pdftools

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"workbench/internal/fileutil"
	"workbench/internal/logging"
	"workbench/internal/services"
)

const pdfMIME = "application/pdf"

var disableConfigDir sync.Once

// Tools runs PDF transformations.
type Tools struct {
	ghostscript string
	exec        services.Executor
	lookPath    func(string) (string, error)
	logger      *slog.Logger
}

// Option customises Tools.
type Option func(*Tools)

// WithExecutor overrides the executor used for Ghostscript.
func WithExecutor(exec services.Executor) Option {
	return func(t *Tools) {
		if exec != nil {
			t.exec = exec
		}
	}
}

// WithLookPath overrides binary discovery (tests).
func WithLookPath(fn func(string) (string, error)) Option {
	return func(t *Tools) {
		if fn != nil {
			t.lookPath = fn
		}
	}
}

// New returns Tools that call ghostscript for compression when it resolves.
func New(ghostscript string, logger *slog.Logger, opts ...Option) *Tools {
	disableConfigDir.Do(api.DisableConfigDir)
	t := &Tools{
		ghostscript: strings.TrimSpace(ghostscript),
		exec:        services.CommandExecutor{},
		lookPath:    exec.LookPath,
		logger:      logging.NewComponentLogger(logger, "pdftools"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// EnsurePDF fails with a transformation error when path does not sniff as a PDF.
func EnsurePDF(path, displayName string) error {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return services.Fail(services.ErrFilesystem, "Could not read upload", err)
	}
	if !mt.Is(pdfMIME) {
		name := strings.TrimSpace(displayName)
		if name == "" {
			name = "Uploaded file"
		}
		return services.Fail(services.ErrTransformation, fmt.Sprintf("%s is not a PDF", name), nil)
	}
	return nil
}

// PageCount returns the number of pages in path.
func (t *Tools) PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, services.Fail(services.ErrTransformation, "Could not read PDF: "+reason(err), err)
	}
	return n, nil
}

// Merge concatenates inputs page by page, in order, into out.
func (t *Tools) Merge(inputs []string, out string) error {
	if len(inputs) == 0 {
		return services.Fail(services.ErrValidation, "No files uploaded", nil)
	}
	if err := api.MergeCreateFile(inputs, out, false, configuration()); err != nil {
		return services.Fail(services.ErrTransformation, "Could not merge PDFs: "+reason(err), err)
	}
	t.logger.Debug("pdf merge complete",
		logging.Int("inputs", len(inputs)),
		logging.String(logging.FieldEventType, "pdf_merged"),
	)
	return nil
}

// Split writes one single-page PDF per page of in into dir, which is created
// when missing. The returned paths follow page order.
func (t *Tools) Split(in, dir string) ([]string, error) {
	count, err := t.PageCount(in)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, services.Fail(services.ErrTransformation, "PDF has no pages", nil)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, services.Fail(services.ErrFilesystem, "Could not prepare output directory", err)
	}
	conf := configuration()
	pages := make([]string, 0, count)
	width := len(strconv.Itoa(count))
	for i := 1; i <= count; i++ {
		out := filepath.Join(dir, fmt.Sprintf("page_%0*d.pdf", width, i))
		if err := api.TrimFile(in, out, []string{strconv.Itoa(i)}, conf); err != nil {
			return nil, services.Fail(services.ErrTransformation, fmt.Sprintf("Could not extract page %d: %s", i, reason(err)), err)
		}
		pages = append(pages, out)
	}
	t.logger.Debug("pdf split complete",
		logging.Int("pages", count),
		logging.String(logging.FieldEventType, "pdf_split"),
	)
	return pages, nil
}

// Compress writes a smaller rendition of in to out. quality (1-100) drives
// the Ghostscript JPEG quality and image resolution. When the result is not
// smaller than the input, the input is copied instead.
func (t *Tools) Compress(ctx context.Context, in, out string, quality int) error {
	if quality < 1 || quality > 100 {
		return services.Fail(services.ErrValidation, "Quality must be between 1 and 100", nil)
	}

	source := in
	if gs, ok := t.resolveGhostscript(); ok {
		rendered := out + ".gs.pdf"
		defer os.Remove(rendered)
		err := t.exec.Run(ctx, gs, ghostscriptArgs(in, rendered, quality), func(line string) {
			t.logger.Debug("ghostscript output", logging.String("line", line))
		})
		if err != nil {
			logging.WarnWithContext(t.logger, "ghostscript compression failed", "pdf_compress_failed",
				logging.String("binary", gs),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the ghostscript installation or set tools.ghostscript"),
			)
			return services.Fail(services.ErrExternalTool, "Ghostscript failed to compress the PDF", err)
		}
		source = rendered
	} else {
		t.logger.Debug("ghostscript unavailable; optimising only",
			logging.String("binary", t.ghostscript),
			logging.String(logging.FieldEventType, "pdf_compress_fallback"),
		)
	}

	if err := api.OptimizeFile(source, out, configuration()); err != nil {
		return services.Fail(services.ErrTransformation, "Could not optimise PDF: "+reason(err), err)
	}

	before, errIn := os.Stat(in)
	after, errOut := os.Stat(out)
	if errIn == nil && errOut == nil && after.Size() >= before.Size() {
		if err := fileutil.CopyFile(in, out); err != nil {
			return services.Fail(services.ErrFilesystem, "Could not write compressed PDF", err)
		}
	}
	return nil
}

// GhostscriptAvailable reports whether compression will use Ghostscript.
func (t *Tools) GhostscriptAvailable() bool {
	_, ok := t.resolveGhostscript()
	return ok
}

func (t *Tools) resolveGhostscript() (string, bool) {
	if t.ghostscript == "" {
		return "", false
	}
	resolved, err := t.lookPath(t.ghostscript)
	if err != nil {
		return "", false
	}
	return resolved, true
}

// ghostscriptArgs maps quality onto JPEG quality and a 50-300 dpi image
// resolution.
func ghostscriptArgs(in, out string, quality int) []string {
	dpi := 50 + quality*250/100
	return []string{
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dNOPAUSE",
		"-dBATCH",
		"-dQUIET",
		"-dSAFER",
		"-dDetectDuplicateImages=true",
		"-dDownsampleColorImages=true",
		"-dDownsampleGrayImages=true",
		"-dDownsampleMonoImages=true",
		"-dColorImageDownsampleType=/Bicubic",
		"-dGrayImageDownsampleType=/Bicubic",
		fmt.Sprintf("-dColorImageResolution=%d", dpi),
		fmt.Sprintf("-dGrayImageResolution=%d", dpi),
		fmt.Sprintf("-dMonoImageResolution=%d", dpi*2),
		"-dAutoFilterColorImages=false",
		"-dAutoFilterGrayImages=false",
		"-dColorImageFilter=/DCTEncode",
		"-dGrayImageFilter=/DCTEncode",
		fmt.Sprintf("-dJPEGQ=%d", quality),
		"-sOutputFile=" + out,
		in,
	}
}

func reason(err error) string {
	msg := strings.TrimSpace(err.Error())
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	if msg == "" {
		return "unknown error"
	}
	return msg
}
