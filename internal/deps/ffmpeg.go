package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe picks the ffprobe binary that belongs with ffmpegCommand.
//
// An explicitly configured path wins. Otherwise, when ffmpeg resolves to a
// real file and an ffprobe executable sits next to it, that sibling is used,
// so a self-contained ffmpeg build inspects media with its own ffprobe.
// Failing both, the configured command is returned unchanged for PATH lookup.
func ResolveFFprobe(ffmpegCommand, ffprobeCommand string) string {
	ffprobeCommand = strings.TrimSpace(ffprobeCommand)
	if ffprobeCommand == "" {
		ffprobeCommand = "ffprobe"
	}
	if strings.ContainsRune(ffprobeCommand, filepath.Separator) {
		return ffprobeCommand
	}

	ffmpegBinary := strings.TrimSpace(ffmpegCommand)
	if ffmpegBinary == "" {
		return ffprobeCommand
	}
	resolved, err := exec.LookPath(ffmpegBinary)
	if err != nil {
		return ffprobeCommand
	}
	candidate := siblingExecutable(resolved, ffprobeCommand)
	if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
		return candidate
	}
	return ffprobeCommand
}

func siblingExecutable(primary, name string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(primary), name)
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
