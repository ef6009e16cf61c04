package workspace

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"workbench/internal/fileutil"
	"workbench/internal/logging"
	"workbench/internal/services"
	"workbench/internal/textutil"
)

const maxExtLen = 10

// Upload is a client file that has not been persisted yet.
type Upload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// FromFileHeader adapts a multipart file part.
func FromFileHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// Input is an upload persisted inside a workspace under a regenerated name.
type Input struct {
	Path         string
	OriginalName string
	Size         int64
}

// Ext returns the extension kept from the client filename (may be empty).
func (in Input) Ext() string {
	return filepath.Ext(in.Path)
}

// Workspace is one request's private scratch directory.
type Workspace struct {
	Name    string
	Path    string
	Tag     string
	Created time.Time

	mu        sync.Mutex
	files     []string
	destroyed bool
}

// Manager allocates and destroys workspaces below a configured root.
type Manager struct {
	root   string
	logger *slog.Logger
}

// NewManager returns a manager rooted at root.
func NewManager(root string, logger *slog.Logger) *Manager {
	return &Manager{
		root:   filepath.Clean(root),
		logger: logging.NewComponentLogger(logger, "workspace"),
	}
}

// Root returns the directory that holds all workspaces.
func (m *Manager) Root() string {
	return m.root
}

// Allocate creates <root>/<tag>_<32 hex>. The directory is created with
// os.Mkdir so an existing path is never reused.
func (m *Manager) Allocate(tag string) (*Workspace, error) {
	tag = textutil.SanitizeToken(tag)
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, services.Fail(services.ErrFilesystem, "Could not create workspace", err)
	}
	name := tag + "_" + token()
	path := filepath.Join(m.root, name)
	if err := os.Mkdir(path, 0o700); err != nil {
		logging.ErrorWithContext(m.logger, "workspace allocation failed", "workspace_allocation_failed",
			logging.String("workspace_path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.workspace_root permissions and free space"),
		)
		return nil, services.Fail(services.ErrFilesystem, "Could not create workspace", err)
	}
	m.logger.Debug("workspace allocated",
		logging.String(logging.FieldWorkspace, name),
		logging.String(logging.FieldEventType, "workspace_allocated"),
	)
	return &Workspace{Name: name, Path: path, Tag: tag, Created: time.Now()}, nil
}

// Destroy removes the workspace recursively. It is safe to call more than once
// and never fails; removal errors are logged and swallowed.
func (m *Manager) Destroy(ws *Workspace) {
	if ws == nil {
		return
	}
	ws.mu.Lock()
	if ws.destroyed {
		ws.mu.Unlock()
		return
	}
	ws.destroyed = true
	ws.mu.Unlock()

	if err := os.RemoveAll(ws.Path); err != nil {
		logging.WarnWithContext(m.logger, "workspace cleanup failed; directory remains", "workspace_cleanup_failed",
			logging.String(logging.FieldWorkspace, ws.Name),
			logging.String("workspace_path", ws.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'workbench workspace clean' once the files are released"),
			logging.String(logging.FieldImpact, "disk space not reclaimed until the stale sweep"),
		)
		return
	}
	m.logger.Debug("workspace removed",
		logging.String(logging.FieldWorkspace, ws.Name),
		logging.Duration("lifetime", time.Since(ws.Created)),
		logging.String(logging.FieldEventType, "workspace_removed"),
	)
}

// With allocates a workspace, runs fn, and destroys the workspace after fn
// returns, including when fn fails or panics. fn is expected to finish writing
// any response that streams files from the workspace before it returns.
func (m *Manager) With(tag string, fn func(ws *Workspace) error) error {
	ws, err := m.Allocate(tag)
	if err != nil {
		return err
	}
	defer m.Destroy(ws)
	return fn(ws)
}

// Save persists an upload as <prefix>_<32 hex><ext>.
func (w *Workspace) Save(upload Upload, prefix string) (Input, error) {
	return w.SaveAs(upload, prefix, "")
}

// SaveAs is Save with an extension used when the client filename carries none.
// Only the extension of the client filename is kept, and only when it is a
// short lower-case alphanumeric suffix.
func (w *Workspace) SaveAs(upload Upload, prefix, fallbackExt string) (Input, error) {
	if upload.Open == nil {
		return Input{}, services.Fail(services.ErrValidation, "No file uploaded", nil)
	}
	ext := SafeExt(upload.Filename)
	if ext == "" {
		ext = SafeExt(fallbackExt)
	}
	path := w.newPath(prefix, ext)

	src, err := upload.Open()
	if err != nil {
		return Input{}, services.Fail(services.ErrFilesystem, "Could not read upload", err)
	}
	defer src.Close()

	written, err := fileutil.WriteNew(path, src)
	if err != nil {
		return Input{}, services.Fail(services.ErrFilesystem, "Could not save upload", err)
	}
	w.track(path)
	return Input{Path: path, OriginalName: upload.Filename, Size: written}, nil
}

// OutputPath returns a fresh path inside the workspace for a transformation
// result. Nothing is created.
func (w *Workspace) OutputPath(ext string) string {
	path := w.newPath("output", SafeExt(ext))
	w.track(path)
	return path
}

// Files lists the paths handed out by Save and OutputPath, in order.
func (w *Workspace) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.files))
	copy(out, w.files)
	return out
}

func (w *Workspace) newPath(prefix, ext string) string {
	prefix = textutil.SanitizeToken(prefix)
	return filepath.Join(w.Path, fmt.Sprintf("%s_%s%s", prefix, token(), ext))
}

func (w *Workspace) track(path string) {
	w.mu.Lock()
	w.files = append(w.files, path)
	w.mu.Unlock()
}

// SafeExt returns the lower-cased extension of name when it only contains
// [.a-z0-9] and is at most ten characters long; otherwise "".
func SafeExt(name string) string {
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func token() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsWorkspaceName reports whether name looks like a directory produced by Allocate.
func IsWorkspaceName(name string) bool {
	idx := strings.LastIndexByte(name, '_')
	if idx <= 0 || len(name)-idx-1 != 32 {
		return false
	}
	for _, r := range name[idx+1:] {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
