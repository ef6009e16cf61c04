package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkspaceRoot string `toml:"workspace_root"`
	DataDir       string `toml:"data_dir"`
	LogDir        string `toml:"log_dir"`
}

// API contains HTTP listener settings.
type API struct {
	Bind        string   `toml:"bind"`
	MaxUploadMB int      `toml:"max_upload_mb"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Limits contains per-route upload count limits and the image size ceiling.
type Limits struct {
	MaxImages    int `toml:"max_images"`
	MaxVideos    int `toml:"max_videos"`
	MinMergePDFs int `toml:"min_merge_pdfs"`
	MaxDimension int `toml:"max_dimension"`
}

// Tools names the external binaries used by the PDF and video transformations.
type Tools struct {
	FFmpeg      string `toml:"ffmpeg"`
	FFprobe     string `toml:"ffprobe"`
	Ghostscript string `toml:"ghostscript"`
}

// Todo contains settings for the todo document store.
type Todo struct {
	Document      string `toml:"document"`
	LockTimeoutMS int    `toml:"lock_timeout_ms"`
	LockPollMS    int    `toml:"lock_poll_ms"`
}

// Workspace contains settings for leftover scratch directory maintenance.
type Workspace struct {
	StaleAfterMinutes int  `toml:"stale_after_minutes"`
	SweepOnStart      bool `toml:"sweep_on_start"`
}

// History contains settings for the processing history database.
type History struct {
	Enabled bool `toml:"enabled"`
	Retain  int  `toml:"retain"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Workbench.
//
// Configuration sections by subsystem:
//   - Paths: workspace root, data and log directories
//   - API: bind address, upload size ceiling, CORS origins
//   - Limits: per-route file count limits
//   - Tools: ffmpeg, ffprobe and ghostscript binaries
//   - Todo: todo document location and lock timing
//   - Workspace: stale scratch directory sweeping
//   - History: processing history retention
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	API       API       `toml:"api"`
	Limits    Limits    `toml:"limits"`
	Tools     Tools     `toml:"tools"`
	Todo      Todo      `toml:"todo"`
	Workspace Workspace `toml:"workspace"`
	History   History   `toml:"history"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(filepath.Join(xdg.ConfigHome, "workbench", "config.toml"))
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	// Pick up XDG_* overrides made after process start.
	xdg.Reload()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("workbench.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the workspace root, data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkspaceRoot, c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Todo.Document); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create todo directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryDBPath returns the location of the processing history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// LockTimeout returns how long todo writers wait for the document lock.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Todo.LockTimeoutMS) * time.Millisecond
}

// LockPollInterval returns the delay between todo lock attempts.
func (c *Config) LockPollInterval() time.Duration {
	return time.Duration(c.Todo.LockPollMS) * time.Millisecond
}

// StaleAfter returns the age after which a leftover workspace is swept.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Workspace.StaleAfterMinutes) * time.Minute
}

// MaxUploadBytes returns the request body ceiling for multipart uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.API.MaxUploadMB) << 20
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
