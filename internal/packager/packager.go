package packager

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"workbench/internal/services"
	"workbench/internal/textutil"
	"workbench/internal/workspace"
)

const fallbackContentType = "application/octet-stream"

// Artifact is one transformation output: a file inside the workspace and the
// name it should be downloaded as.
type Artifact struct {
	Path string
	Name string
}

// Options controls how artifacts are turned into a response.
type Options struct {
	// ArchiveName is the download name used when a zip is produced.
	ArchiveName string
	// ForceArchive zips even a single artifact.
	ForceArchive bool
}

// Result is the single file a route streams back.
type Result struct {
	Path        string
	Name        string
	ContentType string
	Size        int64
	Archived    bool
	Members     []string
}

// Package turns artifacts into one downloadable file. A lone artifact is
// returned as-is unless ForceArchive is set; otherwise the artifacts are
// zipped inside ws in their given order.
func Package(ws *workspace.Workspace, artifacts []Artifact, opts Options) (Result, error) {
	if len(artifacts) == 0 {
		return Result{}, services.Fail(services.ErrTransformation, "transformation produced no output", nil)
	}

	if len(artifacts) == 1 && !opts.ForceArchive {
		art := artifacts[0]
		info, err := os.Stat(art.Path)
		if err != nil {
			return Result{}, services.Fail(services.ErrTransformation, "transformation output missing", err)
		}
		return Result{
			Path:        art.Path,
			Name:        downloadName(art),
			ContentType: detectContentType(art.Path),
			Size:        info.Size(),
		}, nil
	}

	archiveName := textutil.SanitizeFileName(opts.ArchiveName)
	if archiveName == "" {
		archiveName = "outputs.zip"
	}
	if !strings.HasSuffix(strings.ToLower(archiveName), ".zip") {
		archiveName += ".zip"
	}

	archivePath := ws.OutputPath(".zip")
	members, size, err := writeArchive(archivePath, artifacts)
	if err != nil {
		_ = os.Remove(archivePath)
		return Result{}, services.Fail(services.ErrTransformation, "could not build archive: "+err.Error(), err)
	}
	return Result{
		Path:        archivePath,
		Name:        archiveName,
		ContentType: "application/zip",
		Size:        size,
		Archived:    true,
		Members:     members,
	}, nil
}

func writeArchive(path string, artifacts []Artifact) ([]string, int64, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	zw := zip.NewWriter(file)
	names := newMemberNames()
	members := make([]string, 0, len(artifacts))
	for _, art := range artifacts {
		name := names.claim(downloadName(art))
		if err := addMember(zw, art.Path, name); err != nil {
			_ = zw.Close()
			return nil, 0, fmt.Errorf("add %s: %w", name, err)
		}
		members = append(members, name)
	}
	if err := zw.Close(); err != nil {
		return nil, 0, err
	}
	info, err := file.Stat()
	if err != nil {
		return nil, 0, err
	}
	if err := file.Close(); err != nil {
		return nil, 0, err
	}
	return members, info.Size(), nil
}

func addMember(zw *zip.Writer, src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	modified := time.Now()
	if info, err := in.Stat(); err == nil {
		modified = info.ModTime()
	}
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

// downloadName is the sanitized base of the artifact name, or of its path.
func downloadName(art Artifact) string {
	name := art.Name
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	if name = textutil.SanitizeFileName(name); name != "" {
		return name
	}
	return filepath.Base(art.Path)
}

func detectContentType(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil || mt == nil {
		return fallbackContentType
	}
	return mt.String()
}

// memberNames hands out unique zip member names: "a.jpg", "a (2).jpg", ...
type memberNames struct {
	used map[string]struct{}
}

func newMemberNames() *memberNames {
	return &memberNames{used: map[string]struct{}{}}
}

func (m *memberNames) claim(name string) string {
	if _, taken := m.used[strings.ToLower(name)]; !taken {
		m.used[strings.ToLower(name)] = struct{}{}
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := stem + " (" + strconv.Itoa(n) + ")" + ext
		if _, taken := m.used[strings.ToLower(candidate)]; !taken {
			m.used[strings.ToLower(candidate)] = struct{}{}
			return candidate
		}
	}
}
