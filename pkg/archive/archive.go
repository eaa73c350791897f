// Package archive sniffs downloaded payloads and unpacks archive containers.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mholt/archives"
	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/fsutil"
)

// Manager handles archive extraction and creation operations.
type Manager struct{}

// NewManager creates a new Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// ExtractAll unpacks every entry of the archive at archivePath below destDir.
//
// The container format is detected from the content, so besides zip any
// format understood by mholt/archives (tar.gz, 7z, rar, ...) is accepted.
// Entries that would land outside destDir are skipped. A container that cannot
// be read fails with an errors.Archive error, a failed write with errors.IO.
// The caller owns cleanup of a partially populated destDir.
func (am *Manager) ExtractAll(ctx context.Context, archivePath, destDir string) error {
	const op = "extract"

	f, err := os.Open(archivePath)
	if err != nil {
		return errors.E(errors.IO, op, err)
	}
	defer f.Close()

	format, _, err := archives.Identify(ctx, "", f)
	if err != nil {
		return archiveFormatError(archivePath, err)
	}
	extractor, ok := format.(archives.Extractor)
	if !ok {
		return archiveFormatError(archivePath, fmt.Errorf("%s is not an archive", format.Extension()))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return errors.E(errors.IO, op, err)
	}

	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return errors.E(errors.IO, op, err)
	}
	if err := os.MkdirAll(absDest, fsutil.DirModeDefault); err != nil {
		return errors.E(errors.IO, op, err)
	}

	logger.Debug("Extracting archive", logger.Fields{"archive": archivePath, "dest": absDest, "format": format.Extension()})

	err = extractor.Extract(ctx, f, func(ctx context.Context, info archives.FileInfo) error {
		return am.extractEntry(absDest, info)
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var kinded *errors.Error
	if errors.As(err, &kinded) {
		return err
	}
	return archiveFormatError(archivePath, err)
}

// Create writes a zip archive containing the contents of sourceDir.
// Filesystem failures are errors.IO, a failure while encoding the zip is
// errors.Archive.
func (am *Manager) Create(ctx context.Context, sourceDir, archivePath string) error {
	const op = "create archive"

	absolutePath, err := filepath.Abs(sourceDir)
	if err != nil {
		return errors.E(errors.IO, op, err)
	}

	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		absolutePath + string(os.PathSeparator): "",
	})
	if err != nil {
		return errors.E(errors.IO, "read "+sourceDir, err)
	}

	if err := fsutil.EnsureFileDir(archivePath); err != nil {
		return errors.E(errors.IO, op, err)
	}
	out, err := os.Create(archivePath)
	if err != nil {
		return errors.E(errors.IO, op, err)
	}

	if err := (archives.Zip{}).Archive(ctx, out, files); err != nil {
		_ = out.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.E(errors.Archive, op, err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return errors.E(errors.IO, op, err)
	}
	return errors.E(errors.IO, op, out.Close())
}

func archiveFormatError(path string, cause error) error {
	return &errors.Error{
		Kind:   errors.Archive,
		Op:     "extract " + filepath.Base(path),
		Detail: cause.Error(),
		Err:    errors.ErrArchiveFormat,
	}
}
