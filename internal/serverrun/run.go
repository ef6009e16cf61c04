package serverrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"

	"workbench/internal/config"
	"workbench/internal/history"
	"workbench/internal/httpapi"
	"workbench/internal/logging"
	"workbench/internal/preflight"
	"workbench/internal/workspace"
)

// File names kept in paths.data_dir while the server runs.
const (
	LockFileName = "workbench.lock"
	PIDFileName  = "workbench.pid"
)

// ErrAlreadyRunning is returned when another server holds the instance lock.
var ErrAlreadyRunning = errors.New("another workbench server is already running")

// Options configures server process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel string
	// Bind overrides api.bind when set.
	Bind string
}

// Run starts the HTTP server and blocks until cmdCtx ends or the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	effective := *cfg
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		effective.Logging.Level = level
	}
	if bind := strings.TrimSpace(opts.Bind); bind != "" {
		effective.API.Bind = bind
	}
	cfg = &effective

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logDependencySnapshot(logger, cfg)

	rt, err := Start(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("server start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "server_start_failed"),
			logging.String(logging.FieldErrorHint, "check api.bind and whether another instance uses the same data_dir"),
		)
		return err
	}
	defer rt.Close()

	pidPath := filepath.Join(cfg.Paths.DataDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	<-signalCtx.Done()
	logger.Info("workbench server shutting down")
	return nil
}

// Runtime is a started server with the resources it owns.
type Runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	lock    *flock.Flock
	history *history.Store
	server  *httpapi.Server
}

// Start takes the instance lock, sweeps stale workspaces when configured,
// opens the history store and starts listening. The server stops when ctx
// ends; Close releases everything.
func Start(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.DataDir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}

	rt := &Runtime{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "server"),
		lock:   lock,
	}

	if cfg.Workspace.SweepOnStart {
		rt.sweep(ctx)
	}

	var apiOpts []httpapi.Option
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryDBPath())
		if err != nil {
			logging.WarnWithContext(rt.logger, "history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String("history_db", cfg.HistoryDBPath()),
				logging.String(logging.FieldErrorHint, "remove or repair history.db, or set history.enabled = false"),
				logging.String(logging.FieldImpact, "runs are not recorded"),
			)
		} else {
			rt.history = store
			apiOpts = append(apiOpts, httpapi.WithHistory(store))
		}
	}

	server, err := httpapi.New(cfg, logger, apiOpts...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if err := server.Start(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	rt.server = server

	rt.logger.Info("workbench server started",
		logging.String("address", server.Addr()),
		logging.String("workspace_root", cfg.Paths.WorkspaceRoot),
		logging.Bool("history", rt.history != nil),
		logging.String(logging.FieldEventType, "server_started"),
	)
	return rt, nil
}

// Addr reports the listening address.
func (r *Runtime) Addr() string {
	if r == nil || r.server == nil {
		return ""
	}
	return r.server.Addr()
}

// Close stops the server and releases the history store and instance lock.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	if r.server != nil {
		r.server.Stop()
		r.server = nil
	}
	if r.history != nil {
		_ = r.history.Close()
		r.history = nil
	}
	if r.lock != nil {
		_ = r.lock.Unlock()
	}
}

func (r *Runtime) sweep(ctx context.Context) {
	result := workspace.CleanStale(ctx, r.cfg.Paths.WorkspaceRoot, r.cfg.StaleAfter(), r.logger)
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		return
	}
	r.logger.Info("stale workspace sweep finished",
		logging.Int("removed", len(result.Removed)),
		logging.Int("failed", len(result.Errors)),
		logging.Duration("stale_after", r.cfg.StaleAfter()),
		logging.String(logging.FieldEventType, "workspace_sweep"),
	)
}

// Running reports whether a server currently holds the instance lock in
// dataDir.
func Running(dataDir string) (bool, error) {
	lockPath := filepath.Join(dataDir, LockFileName)
	if _, err := os.Stat(lockPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	_ = lock.Unlock()
	return false, nil
}

// ReadPID returns the pid recorded by a running server, or 0.
func ReadPID(dataDir string) int {
	data, err := os.ReadFile(filepath.Join(dataDir, PIDFileName))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	report := preflight.Collect(cfg)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("ready", report.Ready()),
	}
	for _, dep := range report.Dependencies {
		key := strings.ToLower(dep.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", dep.Available),
			logging.String(key+"_binary", dep.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	for _, check := range report.Checks {
		if check.Passed {
			continue
		}
		logging.WarnWithContext(logger, "directory check failed", "preflight_failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldImpact, "requests touching this directory will fail"),
		)
	}
}
