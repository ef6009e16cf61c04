package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"workbench/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	t.Setenv("WORKBENCH_API_BIND", "")
	t.Setenv("WORKBENCH_WORKSPACE_ROOT", "")
	t.Setenv("WORKBENCH_LOG_LEVEL", "")
	return home
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	home := isolateEnv(t)
	root := filepath.Join(home, "scratch")
	t.Setenv("WORKBENCH_WORKSPACE_ROOT", root)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(home, ".local", "share", "workbench")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.WorkspaceRoot != root {
		t.Fatalf("unexpected workspace root: got %q want %q", cfg.Paths.WorkspaceRoot, root)
	}
	if cfg.Todo.Document != filepath.Join(wantData, "todo.json") {
		t.Fatalf("unexpected todo document: %q", cfg.Todo.Document)
	}
	if cfg.HistoryDBPath() != filepath.Join(wantData, "history.db") {
		t.Fatalf("unexpected history db path: %q", cfg.HistoryDBPath())
	}
	if cfg.API.Bind != "127.0.0.1:5000" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.Limits.MaxImages != 10 || cfg.Limits.MaxVideos != 3 || cfg.Limits.MinMergePDFs != 2 || cfg.Limits.MaxDimension != 10000 {
		t.Fatalf("unexpected limits: %+v", cfg.Limits)
	}
	if cfg.LockTimeout().Milliseconds() != 5000 {
		t.Fatalf("unexpected lock timeout: %s", cfg.LockTimeout())
	}
	if cfg.LockPollInterval().Milliseconds() != 100 {
		t.Fatalf("unexpected lock poll interval: %s", cfg.LockPollInterval())
	}
	if cfg.MaxUploadBytes() != 512<<20 {
		t.Fatalf("unexpected upload ceiling: %d", cfg.MaxUploadBytes())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.WorkspaceRoot, cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	isolateEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "workbench.toml")

	type payload struct {
		Paths struct {
			WorkspaceRoot string `toml:"workspace_root"`
			DataDir       string `toml:"data_dir"`
		} `toml:"paths"`
		API struct {
			CORSOrigins []string `toml:"cors_origins"`
		} `toml:"api"`
		Limits struct {
			MaxImages int `toml:"max_images"`
		} `toml:"limits"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.WorkspaceRoot = filepath.Join(tempDir, "ws")
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.API.CORSOrigins = []string{" http://localhost:3000/ ", "http://localhost:3000", ""}
	custom.Limits.MaxImages = 4
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.WorkspaceRoot != filepath.Join(tempDir, "ws") {
		t.Fatalf("unexpected workspace root: %q", cfg.Paths.WorkspaceRoot)
	}
	if cfg.Limits.MaxImages != 4 {
		t.Fatalf("expected max images 4, got %d", cfg.Limits.MaxImages)
	}
	if cfg.Limits.MaxVideos != 3 {
		t.Fatalf("expected default max videos to survive partial file, got %d", cfg.Limits.MaxVideos)
	}
	if len(cfg.API.CORSOrigins) != 1 || cfg.API.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %v", cfg.API.CORSOrigins)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	isolateEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "workbench.toml")
	contents := "[api]\nbind = \"127.0.0.1:6000\"\n\n[logging]\nlevel = \"info\"\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("WORKBENCH_API_BIND", "0.0.0.0:7000")
	t.Setenv("WORKBENCH_LOG_LEVEL", "DEBUG")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.Bind != "0.0.0.0:7000" {
		t.Errorf("expected bind from env, got %q", cfg.API.Bind)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level from env, got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(configPath, []byte("[limits\nmax_images = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "workspace_root") {
		t.Fatalf("sample config missing workspace_root: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Limits.MaxImages != 10 {
		t.Fatalf("expected sample max_images 10, got %d", cfg.Limits.MaxImages)
	}
	if cfg.Todo.LockTimeoutMS != 5000 {
		t.Fatalf("expected sample lock timeout 5000, got %d", cfg.Todo.LockTimeoutMS)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero max images", func(c *config.Config) { c.Limits.MaxImages = 0 }, "limits.max_images"},
		{"merge floor below two", func(c *config.Config) { c.Limits.MinMergePDFs = 1 }, "limits.min_merge_pdfs"},
		{"zero max dimension", func(c *config.Config) { c.Limits.MaxDimension = 0 }, "limits.max_dimension"},
		{"negative lock timeout", func(c *config.Config) { c.Todo.LockTimeoutMS = -1 }, "todo.lock_timeout_ms"},
		{"poll longer than timeout", func(c *config.Config) { c.Todo.LockPollMS = 10000 }, "todo.lock_poll_ms"},
		{"stale sweep disabled", func(c *config.Config) { c.Workspace.StaleAfterMinutes = 0 }, "workspace.stale_after_minutes"},
		{"shared root", func(c *config.Config) { c.Paths.WorkspaceRoot = c.Paths.DataDir }, "paths.workspace_root"},
		{"unknown level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadEnvFileFeedsOverrides(t *testing.T) {
	isolateEnv(t)
	os.Unsetenv("WORKBENCH_API_BIND")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("WORKBENCH_API_BIND=127.0.0.1:6123\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := config.LoadEnvFile(envPath); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	cfg, _, _, err := config.Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Bind != "127.0.0.1:6123" {
		t.Fatalf("expected bind from env file, got %q", cfg.API.Bind)
	}

	if err := config.LoadEnvFile(filepath.Join(dir, "absent.env")); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}
