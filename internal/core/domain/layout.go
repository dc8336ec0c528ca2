package domain

import "path/filepath"

const (
	// DirName is the name of the internal workspace directory.
	DirName = ".fsnap"

	// StoreDirName is the name of the snapshot store directory.
	StoreDirName = "store"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "fsnap.yaml"

	// DebugLogFile is the name of the debug log file.
	DebugLogFile = "debug.log"

	// ManifestFileName is the package manifest read to identify managed items.
	ManifestFileName = "package.json"

	// NodeModulesDirName is the directory name that opens a nested dependency tree.
	NodeModulesDirName = "node_modules"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultStorePath returns the default path for the snapshot store.
// It joins .fsnap and store.
func DefaultStorePath() string {
	return filepath.Join(DirName, StoreDirName)
}

// DefaultDebugLogPath returns the default path for the debug log.
// It joins .fsnap and debug.log.
func DefaultDebugLogPath() string {
	return filepath.Join(DirName, DebugLogFile)
}
