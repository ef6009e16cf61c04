package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"workbench/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkspaceRoot = filepath.Join(base, "workspaces")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Todo.Document = filepath.Join(base, "data", "todo.json")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Workspace.SweepOnStart = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLimits overrides the per-route upload limits.
func WithLimits(maxImages, maxVideos, minMergePDFs int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Limits.MaxImages = maxImages
		b.cfg.Limits.MaxVideos = maxVideos
		b.cfg.Limits.MinMergePDFs = minMergePDFs
	}
}

// WithMaxUploadMB overrides the multipart body ceiling.
func WithMaxUploadMB(mb int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.MaxUploadMB = mb
	}
}

// WithMaxDimension overrides the image dimension ceiling.
func WithMaxDimension(pixels int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Limits.MaxDimension = pixels
	}
}

// WithHistoryDisabled turns off run recording.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithTools points the external tool settings at explicit binaries.
func WithTools(ffmpeg, ffprobe, ghostscript string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tools.FFmpeg = ffmpeg
		b.cfg.Tools.FFprobe = ffprobe
		b.cfg.Tools.Ghostscript = ghostscript
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default workbench external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "gs"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkspaceRoot)
}

// WorkspaceEntries lists what is currently inside the workspace root. A root
// that does not exist yet counts as empty.
func WorkspaceEntries(t testing.TB, cfg *config.Config) []string {
	t.Helper()

	entries, err := os.ReadDir(cfg.Paths.WorkspaceRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read workspace root: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}
