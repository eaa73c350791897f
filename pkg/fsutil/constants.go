// Package fsutil provides file system helpers and permission constants shared by
// the download, archive and installer packages.
package fsutil

// File and directory permission constants.
const (
	// FileModeMask keeps only the permission bits of a mode.
	FileModeMask = 0o777

	FileModeDefault = 0o644 // -rw-r--r--
	FileModeSecure  = 0o640 // -rw-r-----
	FileModeExec    = 0o755 // -rwxr-xr-x

	DirModeDefault = 0o755 // drwxr-xr-x
	DirModeSecure  = 0o750 // drwxr-x---
	DirModePrivate = 0o700 // drwx------
)

// MaxFilenameLength is the longest name SanitizeFilename returns.
const MaxFilenameLength = 240

// Fallback name for inputs that sanitize to nothing.
const unnamed = "unnamed"
