package archive

import (
	"archive/tar"
	stdzip "archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	szip "github.com/STARRY-S/zip"
	"github.com/mholt/archives"
	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/fsutil"
)

// Host system identifiers stored in the upper byte of a zip CreatorVersion.
const (
	creatorUnix   = 3
	creatorMacOSX = 19
)

// extractEntry writes one archive entry below destDir.
func (am *Manager) extractEntry(destDir string, info archives.FileInfo) error {
	name := info.NameInArchive
	target, ok := resolveEntryPath(destDir, name)
	if !ok {
		logger.Warn("Skipping archive entry outside destination", logger.Fields{"entry": name})
		return nil
	}

	if info.IsDir() {
		if err := os.MkdirAll(target, fsutil.DirModeDefault); err != nil {
			return errors.E(errors.IO, "create directory "+name, err)
		}
		return nil
	}

	if info.LinkTarget != "" || !info.Mode().IsRegular() {
		logger.Debug("Skipping non-regular archive entry", logger.Fields{"entry": name, "mode": info.Mode().String()})
		return nil
	}

	return am.writeRegularFile(info, target)
}

// writeRegularFile copies the entry bytes to target and reapplies stored
// unix permission bits.
func (am *Manager) writeRegularFile(info archives.FileInfo, target string) error {
	name := info.NameInArchive

	src, err := info.Open()
	if err != nil {
		return errors.E(errors.Archive, "open entry "+name, err)
	}
	defer src.Close()

	if err := fsutil.EnsureFileDir(target); err != nil {
		return errors.E(errors.IO, "create parent of "+name, err)
	}

	dst, err := fsutil.CreateFilePerm(target, fsutil.FileModeDefault)
	if err != nil {
		return errors.E(errors.IO, "create "+name, err)
	}

	tr := &trackingReader{r: src}
	if _, err := io.Copy(dst, tr); err != nil {
		_ = dst.Close()
		if tr.err != nil {
			return errors.E(errors.Archive, "read entry "+name, err)
		}
		return errors.E(errors.IO, "write "+name, err)
	}
	if err := dst.Close(); err != nil {
		return errors.E(errors.IO, "close "+name, err)
	}

	if perm, ok := storedPerm(info); ok && runtime.GOOS != "windows" {
		if err := os.Chmod(target, perm); err != nil {
			return errors.E(errors.IO, "chmod "+name, err)
		}
	}
	return nil
}

// resolveEntryPath maps an entry name to a path strictly inside destDir.
// It reports false for absolute names and names escaping destDir.
func resolveEntryPath(destDir, name string) (string, bool) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", false
	}
	slashed := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", false
	}

	target := filepath.Join(destDir, filepath.FromSlash(slashed))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return target, true
}

// storedPerm returns the permission bits recorded in the entry header when
// the archive was produced on a system with unix permissions.
func storedPerm(info archives.FileInfo) (fs.FileMode, bool) {
	switch h := info.Header.(type) {
	case szip.FileHeader:
		return unixPerm(h.CreatorVersion, info.Mode())
	case *szip.FileHeader:
		return unixPerm(h.CreatorVersion, info.Mode())
	case stdzip.FileHeader:
		return unixPerm(h.CreatorVersion, info.Mode())
	case *stdzip.FileHeader:
		return unixPerm(h.CreatorVersion, info.Mode())
	case *tar.Header:
		return fs.FileMode(h.Mode).Perm(), h.Mode != 0
	}
	return 0, false
}

func unixPerm(creatorVersion uint16, mode fs.FileMode) (fs.FileMode, bool) {
	switch creatorVersion >> 8 {
	case creatorUnix, creatorMacOSX:
		perm := mode.Perm()
		return perm, perm != 0
	}
	return 0, false
}

// trackingReader remembers read errors so that corrupt entry data can be
// told apart from a failing disk write.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
