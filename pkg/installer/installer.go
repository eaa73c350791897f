// Package installer acquires trainers into local directories and removes them.
package installer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/archive"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/fsutil"
	"github.com/xinggaoya/GameModMaster/pkg/hook"
	"github.com/xinggaoya/GameModMaster/pkg/model"
)

// Installer ties the download engine, the extractor and the store together.
type Installer struct {
	DownloadDir string
	// AutoExtract unpacks zip payloads. When false they are moved into the
	// install directory as is.
	AutoExtract bool

	DL         Downloader
	Extractor  Extractor
	Store      Store
	HookRunner HookRunner // optional
	Hooks      Hooks

	now       func() time.Time
	removeAll func(path string) error // failure cleanup

	mu     sync.Mutex
	active map[string]struct{} // sanitized ids with an acquisition in flight
}

// New creates an installer with auto extraction enabled.
func New(downloadDir string, dl Downloader, extractor Extractor, st Store) *Installer {
	return &Installer{
		DownloadDir: downloadDir,
		AutoExtract: true,
		DL:          dl,
		Extractor:   extractor,
		Store:       st,
	}
}

// InstallDir returns the directory a trainer is installed into.
func (i *Installer) InstallDir(t model.Trainer) string {
	return filepath.Join(i.DownloadDir, fsutil.SanitizeFilename(t.Name)+"_"+fsutil.SanitizeFilename(t.ID))
}

// TempPath returns the download location of a trainer payload.
func (i *Installer) TempPath(id string) string {
	return filepath.Join(i.DownloadDir, "temp_"+fsutil.SanitizeFilename(id)+".zip")
}

// Acquire downloads the trainer payload, unpacks or places it into the
// install directory, writes trainer.json and records the install. On failure
// the partial install is removed and the original error is returned.
func (i *Installer) Acquire(ctx context.Context, t model.Trainer) (string, error) {
	if t.ID == "" {
		return "", errors.New(errors.Validation, "trainer id cannot be empty")
	}
	if t.DownloadURL == "" {
		return "", errors.Newf(errors.Validation, "trainer %s has no download url", t.ID)
	}
	if i.DL == nil || i.Store == nil {
		return "", errors.New(errors.Config, "installer is not configured")
	}

	// A running acquisition of the same trainer owns dir and temp until it
	// returns, so nothing on disk is touched before the claim.
	if err := i.claim(t.ID); err != nil {
		i.Hooks.emit(Event{Phase: PhaseError, ID: t.ID, Msg: err.Error()})
		return "", err
	}
	defer i.release(t.ID)

	dir := i.InstallDir(t)
	temp := i.TempPath(t.ID)

	if err := i.resetDir(dir); err != nil {
		i.Hooks.emit(Event{Phase: PhaseError, ID: t.ID, Msg: err.Error()})
		return "", err
	}

	if err := i.acquire(ctx, t, dir, temp); err != nil {
		i.cleanup(dir, temp)
		i.Hooks.emit(Event{Phase: PhaseError, ID: t.ID, Msg: err.Error()})
		logger.Debug("Acquisition failed", logger.Fields{"id": t.ID, "error": err.Error()})
		return "", err
	}

	i.runHook(ctx, hook.PostInstall, t, dir)
	i.Hooks.emit(Event{Phase: PhaseDone, ID: t.ID, Msg: dir})
	logger.Debug("Trainer acquired", logger.Fields{"id": t.ID, "path": dir})
	return dir, nil
}

func (i *Installer) claim(id string) error {
	key := fsutil.SanitizeFilename(id)
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, busy := i.active[key]; busy {
		return &errors.Error{Kind: errors.Download, Op: "acquire " + id, Detail: "already in progress", Err: errors.ErrTransferActive}
	}
	if i.active == nil {
		i.active = make(map[string]struct{})
	}
	i.active[key] = struct{}{}
	return nil
}

func (i *Installer) release(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.active, fsutil.SanitizeFilename(id))
}

func (i *Installer) resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return errors.E(errors.IO, "clear install directory", err)
	}
	if err := fsutil.EnsureDir(dir); err != nil {
		return errors.E(errors.IO, "create install directory", err)
	}
	return nil
}

func (i *Installer) acquire(ctx context.Context, t model.Trainer, dir, temp string) error {
	op := "acquire " + t.ID

	i.Hooks.emit(Event{Phase: PhaseDownloading, ID: t.ID, Msg: t.DownloadURL})
	if err := fsutil.RemoveIfExists(temp); err != nil {
		return errors.E(errors.IO, op, err)
	}
	if err := i.DL.Start(ctx, t.DownloadURL, t.ID, temp, i.Hooks.OnProgress); err != nil {
		return err
	}

	i.Hooks.emit(Event{Phase: PhaseProcessing, ID: t.ID})
	if !fsutil.IsNonEmptyFile(temp) {
		return &errors.Error{Kind: errors.Validation, Op: op, Detail: "downloaded file is empty", Err: errors.ErrEmptyPayload}
	}

	if err := i.place(ctx, t, dir, temp); err != nil {
		return err
	}

	i.Hooks.emit(Event{Phase: PhasePersisting, ID: t.ID})
	info := model.InstallInfo{
		Trainer:     t,
		InstallPath: dir,
		InstallTime: i.clock(),
	}
	if err := WriteInstallInfo(dir, info); err != nil {
		return err
	}
	return i.Store.RecordInstall(ctx, info.Installed())
}

// place moves the payload at temp into dir according to its sniffed format.
func (i *Installer) place(ctx context.Context, t model.Trainer, dir, temp string) error {
	op := "install " + t.ID
	safeID := fsutil.SanitizeFilename(t.ID)

	switch {
	case archive.IsZip(temp) && i.AutoExtract:
		i.Hooks.emit(Event{Phase: PhaseExtracting, ID: t.ID})
		if err := i.extract(ctx, temp, dir); err != nil {
			return err
		}
		return i.removeTemp(op, temp)

	case archive.IsZip(temp):
		i.Hooks.emit(Event{Phase: PhaseMoving, ID: t.ID})
		return errors.E(errors.IO, op, fsutil.Move(temp, filepath.Join(dir, safeID+".zip")))

	case archive.IsExecutable(temp):
		i.Hooks.emit(Event{Phase: PhaseMoving, ID: t.ID})
		return errors.E(errors.IO, op, fsutil.Move(temp, filepath.Join(dir, safeID+".exe")))
	}

	// Unknown payloads may still be another container format.
	i.Hooks.emit(Event{Phase: PhaseExtracting, ID: t.ID})
	if i.AutoExtract {
		err := i.extract(ctx, temp, dir)
		if err == nil {
			return i.removeTemp(op, temp)
		}
		if ctx.Err() != nil {
			return errors.E(errors.Download, op, ctx.Err())
		}
		logger.Debug("Payload is not an archive, keeping it as a binary", logger.Fields{"id": t.ID, "error": err.Error()})
	}
	if err := fsutil.Copy(temp, filepath.Join(dir, "unknown_file_"+safeID+".bin")); err != nil {
		return errors.E(errors.IO, op, err)
	}
	return i.removeTemp(op, temp)
}

func (i *Installer) extract(ctx context.Context, archivePath, dir string) error {
	if i.Extractor == nil {
		return errors.New(errors.Config, "no extractor configured")
	}
	return i.Extractor.ExtractAll(ctx, archivePath, dir)
}

func (i *Installer) removeTemp(op, temp string) error {
	if err := fsutil.RemoveIfExists(temp); err != nil {
		return errors.E(errors.IO, op, err)
	}
	return nil
}

// cleanup removes the partial install. Failures are logged only.
func (i *Installer) cleanup(paths ...string) {
	for _, p := range paths {
		if err := i.remove(p); err != nil {
			logger.Warn("Failed to clean up after failed install", logger.Fields{"path": p, "error": err.Error()})
		}
	}
}

// Remove deletes an installed trainer's directory and its installed record.
// The directory is found through trainer.json, then through the store.
func (i *Installer) Remove(ctx context.Context, id string) error {
	op := "remove " + id

	info, dir, found := Locate(i.DownloadDir, id)
	if !found && i.Store != nil {
		rec, ok, err := i.Store.GetInstalled(ctx, id)
		if err != nil {
			return err
		}
		if ok && rec.InstallPath != "" {
			info = model.InstallInfo{Trainer: rec.Trainer, InstallPath: rec.InstallPath}
			dir, found = rec.InstallPath, true
		}
	}
	if !found {
		return &errors.Error{Kind: errors.NotFound, Op: op, Detail: "trainer " + id, Err: errors.ErrTrainerNotFound}
	}

	if err := os.RemoveAll(dir); err != nil {
		return errors.E(errors.IO, op, err)
	}
	if i.Store != nil {
		if err := i.Store.DeleteInstalled(ctx, id); err != nil {
			return err
		}
	}

	i.runHook(ctx, hook.PostRemove, info.Trainer, dir)
	logger.Debug("Trainer removed", logger.Fields{"id": id, "path": dir})
	return nil
}

func (i *Installer) runHook(ctx context.Context, hookType hook.Type, t model.Trainer, dir string) {
	if i.HookRunner == nil {
		return
	}
	err := i.HookRunner.Execute(ctx, hookType, hook.Context{
		TrainerID:      t.ID,
		TrainerName:    t.Name,
		TrainerVersion: t.Version,
		InstallPath:    dir,
	})
	if err != nil {
		logger.Warn("Hook failed", logger.Fields{"type": string(hookType), "id": t.ID, "error": err.Error()})
	}
}

func (i *Installer) remove(path string) error {
	if i.removeAll != nil {
		return i.removeAll(path)
	}
	return os.RemoveAll(path)
}

func (i *Installer) clock() time.Time {
	if i.now != nil {
		return i.now()
	}
	return time.Now()
}
