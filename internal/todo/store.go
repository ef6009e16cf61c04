package todo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"workbench/internal/config"
	"workbench/internal/logging"
	"workbench/internal/services"
)

const (
	defaultLockTimeout  = 5 * time.Second
	defaultPollInterval = 100 * time.Millisecond
)

// ErrLockTimeout is wrapped by errors returned when the document lock could
// not be acquired in time.
var ErrLockTimeout = errors.New("todo lock timeout")

// Client-facing messages.
const (
	MsgWorkspaceRequired = "Workspace name is required"
	MsgWorkspaceExists   = "Workspace already exists"
	MsgWorkspaceMissing  = "Workspace does not exist"
	MsgTitleRequired     = "Task title is required"
	MsgIndexOutOfRange   = "Task index out of range"
)

// Store reads and writes the todo document. Writers serialise on an advisory
// lock file next to the document; readers never lock because writes replace
// the document atomically.
type Store struct {
	fs           afero.Fs
	path         string
	lockPath     string
	lockTimeout  time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithFs replaces the filesystem used for the document itself. The lock file
// always lives on the real filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(s *Store) {
		if fsys != nil {
			s.fs = fsys
		}
	}
}

// WithLockTiming overrides how long writers wait for the lock and how often
// they retry.
func WithLockTiming(timeout, poll time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.lockTimeout = timeout
		}
		if poll > 0 {
			s.pollInterval = poll
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.NewComponentLogger(logger, "todo")
	}
}

// New returns a store for the document at path.
func New(path string, opts ...Option) *Store {
	s := &Store{
		fs:           afero.NewOsFs(),
		path:         filepath.Clean(path),
		lockPath:     filepath.Clean(path) + ".lock",
		lockTimeout:  defaultLockTimeout,
		pollInterval: defaultPollInterval,
		logger:       logging.NewComponentLogger(nil, "todo"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig returns a store configured from the [todo] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Store {
	return New(cfg.Todo.Document,
		WithLockTiming(cfg.LockTimeout(), cfg.LockPollInterval()),
		WithLogger(logger),
	)
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Load reads the document. A missing file is an empty document.
func (s *Store) Load() (*Document, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewDocument(), nil
		}
		return nil, services.Fail(services.ErrFilesystem, "Could not read todo document", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return NewDocument(), nil
	}
	doc := NewDocument()
	if err := doc.UnmarshalJSON(data); err != nil {
		return nil, services.Fail(services.ErrFilesystem, "Todo document is corrupt", err)
	}
	return doc, nil
}

// Update runs fn on the current document while holding the writer lock and
// saves the result when fn succeeds.
func (s *Store) Update(ctx context.Context, fn func(doc *Document) error) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(doc)
}

func (s *Store) lock(ctx context.Context) (func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ensureDir(afero.NewOsFs(), filepath.Dir(s.lockPath)); err != nil {
		return nil, services.Fail(services.ErrFilesystem, "Could not prepare todo directory", err)
	}
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	fileLock := flock.New(s.lockPath)
	locked, err := fileLock.TryLockContext(lockCtx, s.pollInterval)
	if err != nil || !locked {
		if err == nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			logging.WarnWithContext(s.logger, "todo lock not acquired", "lock_timeout",
				logging.String("lock_path", s.lockPath),
				logging.Duration("timeout", s.lockTimeout),
				logging.String(logging.FieldErrorHint, "another writer holds the lock; retry or raise todo.lock_timeout_ms"),
				logging.String(logging.FieldImpact, "todo change rejected"),
			)
			return nil, services.Fail(services.ErrTimeout, fmt.Sprintf("could not acquire lock on %s", s.lockPath), ErrLockTimeout)
		}
		return nil, services.Fail(services.ErrFilesystem, "Could not lock todo document", err)
	}
	return func() {
		if err := fileLock.Unlock(); err != nil {
			logging.WarnWithContext(s.logger, "todo unlock failed", "lock_release_failed",
				logging.String("lock_path", s.lockPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "lock is released when the process exits"),
			)
		}
	}, nil
}

// save writes doc to a temp file in the document directory and renames it
// over the document.
func (s *Store) save(doc *Document) error {
	data, err := doc.encode()
	if err != nil {
		return services.Fail(services.ErrFilesystem, "Could not encode todo document", err)
	}
	dir := filepath.Dir(s.path)
	if err := ensureDir(s.fs, dir); err != nil {
		return services.Fail(services.ErrFilesystem, "Could not prepare todo directory", err)
	}
	tmp, err := afero.TempFile(s.fs, dir, ".todo-*.json")
	if err != nil {
		return services.Fail(services.ErrFilesystem, "Could not write todo document", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return services.Fail(services.ErrFilesystem, "Could not write todo document", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return services.Fail(services.ErrFilesystem, "Could not write todo document", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return services.Fail(services.ErrFilesystem, "Could not write todo document", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return services.Fail(services.ErrFilesystem, "Could not write todo document", err)
	}
	return nil
}

func ensureDir(fsys afero.Fs, dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return fsys.MkdirAll(dir, 0o755)
}
