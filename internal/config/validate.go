package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLimits(); err != nil {
		return err
	}
	if err := c.validateTodo(); err != nil {
		return err
	}
	if err := c.validateWorkspace(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkspaceRoot) == "" {
		return errors.New("paths.workspace_root must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.WorkspaceRoot == c.Paths.DataDir {
		return errors.New("paths.workspace_root must differ from paths.data_dir (stale workspace sweeps would remove data)")
	}
	return nil
}

func (c *Config) validateLimits() error {
	if err := ensurePositiveMap(map[string]int{
		"api.max_upload_mb":     c.API.MaxUploadMB,
		"limits.max_images":     c.Limits.MaxImages,
		"limits.max_videos":     c.Limits.MaxVideos,
		"limits.min_merge_pdfs": c.Limits.MinMergePDFs,
		"limits.max_dimension":  c.Limits.MaxDimension,
	}); err != nil {
		return err
	}
	if c.Limits.MinMergePDFs < 2 {
		return errors.New("limits.min_merge_pdfs must be >= 2")
	}
	return nil
}

func (c *Config) validateTodo() error {
	if strings.TrimSpace(c.Todo.Document) == "" {
		return errors.New("todo.document must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"todo.lock_timeout_ms": c.Todo.LockTimeoutMS,
		"todo.lock_poll_ms":    c.Todo.LockPollMS,
	}); err != nil {
		return err
	}
	if c.Todo.LockPollMS > c.Todo.LockTimeoutMS {
		return errors.New("todo.lock_poll_ms must not exceed todo.lock_timeout_ms")
	}
	return nil
}

func (c *Config) validateWorkspace() error {
	if c.Workspace.StaleAfterMinutes <= 0 {
		return errors.New("workspace.stale_after_minutes must be positive")
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.Retain < 0 {
		return errors.New("history.retain must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
