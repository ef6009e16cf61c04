package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeTools()
	if err := c.normalizeTodo(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

// applyEnv applies WORKBENCH_* overrides from the environment (or a loaded .env file).
func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv("WORKBENCH_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.API.Bind = value
	}
	if value, ok := os.LookupEnv("WORKBENCH_WORKSPACE_ROOT"); ok && strings.TrimSpace(value) != "" {
		c.Paths.WorkspaceRoot = value
	}
	if value, ok := os.LookupEnv("WORKBENCH_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkspaceRoot) == "" {
		c.Paths.WorkspaceRoot = defaultWorkspaceRoot()
	}
	if c.Paths.WorkspaceRoot, err = expandPath(c.Paths.WorkspaceRoot); err != nil {
		return fmt.Errorf("paths.workspace_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir()
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	if c.API.MaxUploadMB <= 0 {
		c.API.MaxUploadMB = defaultMaxUploadMB
	}
	origins := make([]string, 0, len(c.API.CORSOrigins))
	seen := make(map[string]struct{}, len(c.API.CORSOrigins))
	for _, origin := range c.API.CORSOrigins {
		normalized := strings.TrimRight(strings.TrimSpace(origin), "/")
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		origins = append(origins, normalized)
	}
	c.API.CORSOrigins = origins
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
	c.Tools.Ghostscript = strings.TrimSpace(c.Tools.Ghostscript)
	if c.Tools.Ghostscript == "" {
		c.Tools.Ghostscript = defaultGhostscript
	}
}

func (c *Config) normalizeTodo() error {
	var err error
	if strings.TrimSpace(c.Todo.Document) == "" {
		c.Todo.Document = filepath.Join(c.Paths.DataDir, defaultTodoDocumentName)
	}
	if c.Todo.Document, err = expandPath(c.Todo.Document); err != nil {
		return fmt.Errorf("todo.document: %w", err)
	}
	if c.Todo.LockTimeoutMS == 0 {
		c.Todo.LockTimeoutMS = defaultLockTimeoutMS
	}
	if c.Todo.LockPollMS == 0 {
		c.Todo.LockPollMS = defaultLockPollMS
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
