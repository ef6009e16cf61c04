package pdftools_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"workbench/internal/logging"
	"workbench/internal/services"
	"workbench/internal/services/pdftools"
	"workbench/internal/testsupport"
)

func pageWidths(t *testing.T, path string) []int {
	t.Helper()
	dims, err := api.PageDimsFile(path)
	if err != nil {
		t.Fatalf("PageDimsFile(%s): %v", path, err)
	}
	widths := make([]int, len(dims))
	for i, d := range dims {
		widths[i] = int(d.Width)
	}
	return widths
}

func noGhostscript(string) (string, error) {
	return "", errors.New("not found")
}

func newTools(opts ...pdftools.Option) *pdftools.Tools {
	return pdftools.New("gs", logging.NewNop(), append([]pdftools.Option{pdftools.WithLookPath(noGhostscript)}, opts...)...)
}

func writeWidths(t *testing.T, path string, widths ...int) {
	t.Helper()
	if err := os.WriteFile(path, testsupport.PDFWidthsBytes(widths...), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
}

func TestMergeKeepsInputOrder(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	writeWidths(t, a, 300)
	writeWidths(t, b, 400, 500)
	out := filepath.Join(dir, "merged.pdf")

	tools := newTools()
	if err := tools.Merge([]string{a, b}, out); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	count, err := tools.PageCount(out)
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 pages, got %d", count)
	}
	got := pageWidths(t, out)
	want := []int{300, 400, 500}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("page order %v, want %v", got, want)
		}
	}
}

func TestMergeThenSplitRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	writeWidths(t, a, 310)
	writeWidths(t, b, 320)
	merged := filepath.Join(dir, "merged.pdf")

	tools := newTools()
	if err := tools.Merge([]string{a, b}, merged); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	pages, err := tools.Split(merged, filepath.Join(dir, "pages"))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	for i, want := range []int{310, 320} {
		widths := pageWidths(t, pages[i])
		if len(widths) != 1 || widths[0] != want {
			t.Fatalf("page %d widths %v, want [%d]", i+1, widths, want)
		}
	}
}

func TestSplitRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.pdf")
	testsupport.WriteFile(t, in, 64)

	_, err := newTools().Split(in, filepath.Join(dir, "pages"))
	if !errors.Is(err, services.ErrTransformation) {
		t.Fatalf("expected transformation error, got %v", err)
	}
}

func TestEnsurePDF(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.pdf")
	testsupport.WritePDF(t, good, "A")
	if err := pdftools.EnsurePDF(good, "good.pdf"); err != nil {
		t.Fatalf("EnsurePDF(good): %v", err)
	}

	bad := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(bad, []byte("just some text"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := pdftools.EnsurePDF(bad, "notes.pdf")
	if !errors.Is(err, services.ErrTransformation) {
		t.Fatalf("expected transformation error, got %v", err)
	}
	if services.Message(err) != "notes.pdf is not a PDF" {
		t.Fatalf("unexpected message %q", services.Message(err))
	}
}

func TestCompressWithoutGhostscriptOptimises(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	testsupport.WritePDF(t, in, "A", "B")

	tools := newTools()
	if tools.GhostscriptAvailable() {
		t.Fatal("ghostscript should be unavailable")
	}
	if err := tools.Compress(context.Background(), in, out, 20); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	count, err := tools.PageCount(out)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 pages, got %d (%v)", count, err)
	}
}

type stubExecutor struct {
	calls [][]string
	fail  error
}

func (s *stubExecutor) Run(_ context.Context, binary string, args []string, onOutput func(string)) error {
	s.calls = append(s.calls, append([]string{binary}, args...))
	if s.fail != nil {
		return s.fail
	}
	var out string
	for _, arg := range args {
		if strings.HasPrefix(arg, "-sOutputFile=") {
			out = strings.TrimPrefix(arg, "-sOutputFile=")
		}
	}
	data, err := os.ReadFile(args[len(args)-1])
	if err != nil {
		return err
	}
	if onOutput != nil {
		onOutput("rendered")
	}
	return os.WriteFile(out, data, 0o644)
}

func foundGhostscript(name string) (string, error) {
	return "/usr/bin/" + name, nil
}

func TestCompressRunsGhostscriptWithQuality(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	testsupport.WritePDF(t, in, "A")

	exec := &stubExecutor{}
	tools := pdftools.New("gs", logging.NewNop(), pdftools.WithExecutor(exec), pdftools.WithLookPath(foundGhostscript))
	if err := tools.Compress(context.Background(), in, out, 35); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected one ghostscript call, got %d", len(exec.calls))
	}
	call := strings.Join(exec.calls[0], " ")
	if !strings.HasPrefix(call, "/usr/bin/gs ") || !strings.Contains(call, "-dJPEGQ=35") {
		t.Fatalf("unexpected ghostscript call %q", call)
	}
	if _, err := os.Stat(out + ".gs.pdf"); !os.IsNotExist(err) {
		t.Fatalf("intermediate file should be removed, stat err=%v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestCompressGhostscriptFailure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	testsupport.WritePDF(t, in, "A")

	exec := &stubExecutor{fail: errors.New("exit status 1")}
	tools := pdftools.New("gs", logging.NewNop(), pdftools.WithExecutor(exec), pdftools.WithLookPath(foundGhostscript))
	err := tools.Compress(context.Background(), in, filepath.Join(dir, "out.pdf"), 20)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestCompressRejectsQuality(t *testing.T) {
	err := newTools().Compress(context.Background(), "in.pdf", "out.pdf", 0)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
