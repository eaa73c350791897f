// Package launcher starts installed trainers.
package launcher

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/fsutil"
	"github.com/xinggaoya/GameModMaster/pkg/installer"
	"github.com/xinggaoya/GameModMaster/pkg/model"
)

// Store is the subset of the persistent store used by the launcher.
type Store interface {
	GetInstalled(ctx context.Context, id string) (model.InstalledTrainer, bool, error)
	UpdateLastLaunch(ctx context.Context, id string, at time.Time) error
}

// StartFunc starts the executable at path with dir as working directory and
// returns once the process is running.
type StartFunc func(path, dir string) error

// Launcher finds and starts installed trainers.
type Launcher struct {
	downloadDir string
	store       Store
	start       StartFunc
	now         func() time.Time
}

// New creates a launcher. A nil start function starts detached processes.
func New(downloadDir string, st Store, start StartFunc) *Launcher {
	if start == nil {
		start = startDetached
	}
	return &Launcher{downloadDir: downloadDir, store: st, start: start, now: time.Now}
}

// Launch starts the trainer's executable and records the launch time. It
// returns the path of the started executable.
func (l *Launcher) Launch(ctx context.Context, id string) (string, error) {
	op := "launch " + id

	info, dir, fromMetadata := installer.Locate(l.downloadDir, id)
	if !fromMetadata && l.store != nil {
		rec, ok, err := l.store.GetInstalled(ctx, id)
		if err != nil {
			return "", err
		}
		if ok && rec.InstallPath != "" && fsutil.Exists(rec.InstallPath) {
			dir = rec.InstallPath
		}
	}
	if dir == "" {
		return "", &errors.Error{Kind: errors.NotFound, Op: op, Detail: "trainer " + id, Err: errors.ErrTrainerNotFound}
	}

	exe, err := FindExecutable(dir, id)
	if err != nil {
		return "", err
	}

	if err := l.start(exe, dir); err != nil {
		return "", &errors.Error{Kind: errors.Execution, Op: op, Detail: err.Error(), Err: err}
	}
	logger.Info("Trainer launched", logger.Fields{"id": id, "path": exe})

	at := l.now()
	if fromMetadata {
		info.LastLaunchTime = &at
		if err := installer.WriteInstallInfo(dir, info); err != nil {
			logger.Warn("Failed to update install metadata", logger.Fields{"id": id, "error": err.Error()})
		}
	}
	if l.store != nil {
		if err := l.store.UpdateLastLaunch(ctx, id, at); err != nil {
			logger.Warn("Failed to record launch time", logger.Fields{"id": id, "error": err.Error()})
		}
	}
	return exe, nil
}

// FindExecutable returns the first .exe file in dir, falling back to <id>.exe.
func FindExecutable(dir, id string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.E(errors.IO, "read "+dir, err)
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.EqualFold(filepath.Ext(entry.Name()), ".exe") {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	fallback := filepath.Join(dir, fsutil.SanitizeFilename(id)+".exe")
	if fsutil.Exists(fallback) {
		return fallback, nil
	}
	return "", &errors.Error{Kind: errors.NotFound, Op: "find executable", Detail: "no executable in " + dir, Err: errors.ErrExecutableNotFound}
}

func startDetached(path, dir string) error {
	cmd := exec.Command(path)
	cmd.Dir = dir
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
