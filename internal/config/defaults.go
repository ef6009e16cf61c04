package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	defaultAPIBind              = "127.0.0.1:5000"
	defaultMaxUploadMB          = 512
	defaultMaxImages            = 10
	defaultMaxVideos            = 3
	defaultMinMergePDFs         = 2
	defaultMaxDimension         = 10000
	defaultFFmpeg               = "ffmpeg"
	defaultFFprobe              = "ffprobe"
	defaultGhostscript          = "gs"
	defaultLockTimeoutMS        = 5000
	defaultLockPollMS           = 100
	defaultStaleAfterMinutes    = 60
	defaultHistoryRetain        = 1000
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultTodoDocumentName     = "todo.json"
	defaultWorkspaceRootDirName = "workbench"
	defaultDataDirName          = "workbench"
	defaultLogDirName           = "logs"
)

func defaultDataDir() string {
	return filepath.Join(xdg.DataHome, defaultDataDirName)
}

func defaultWorkspaceRoot() string {
	return filepath.Join(os.TempDir(), defaultWorkspaceRootDirName)
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Paths: Paths{
			WorkspaceRoot: defaultWorkspaceRoot(),
			DataDir:       dataDir,
			LogDir:        filepath.Join(dataDir, defaultLogDirName),
		},
		API: API{
			Bind:        defaultAPIBind,
			MaxUploadMB: defaultMaxUploadMB,
		},
		Limits: Limits{
			MaxImages:    defaultMaxImages,
			MaxVideos:    defaultMaxVideos,
			MinMergePDFs: defaultMinMergePDFs,
			MaxDimension: defaultMaxDimension,
		},
		Tools: Tools{
			FFmpeg:      defaultFFmpeg,
			FFprobe:     defaultFFprobe,
			Ghostscript: defaultGhostscript,
		},
		Todo: Todo{
			Document:      filepath.Join(dataDir, defaultTodoDocumentName),
			LockTimeoutMS: defaultLockTimeoutMS,
			LockPollMS:    defaultLockPollMS,
		},
		Workspace: Workspace{
			StaleAfterMinutes: defaultStaleAfterMinutes,
			SweepOnStart:      true,
		},
		History: History{
			Enabled: true,
			Retain:  defaultHistoryRetain,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
