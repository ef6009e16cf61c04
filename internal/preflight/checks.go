package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"workbench/internal/config"
	"workbench/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// SystemRequirements lists the external binaries for the configured tools.
// Both the server status endpoint and the CLI status command use this to
// avoid duplicating the requirements list.
func SystemRequirements(cfg *config.Config) []deps.Requirement {
	return []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Tools.FFmpeg,
			Description: "Required for video concatenation and music overlay",
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobe(cfg.Tools.FFmpeg, cfg.Tools.FFprobe),
			Description: "Required for video inspection",
		},
		{
			Name:        "Ghostscript",
			Command:     cfg.Tools.Ghostscript,
			Description: "Improves PDF compression; pdfcpu optimisation runs without it",
			Optional:    true,
		},
	}
}

// CheckSystemDeps evaluates SystemRequirements for cfg.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	if cfg == nil {
		return nil
	}
	return deps.CheckBinaries(SystemRequirements(cfg))
}
