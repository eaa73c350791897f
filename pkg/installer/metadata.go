package installer

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/fsutil"
	"github.com/xinggaoya/GameModMaster/pkg/model"
)

// MetadataFile is the name of the install metadata document in every
// install directory.
const MetadataFile = "trainer.json"

// ReadInstallInfo loads dir/trainer.json.
func ReadInstallInfo(dir string) (model.InstallInfo, error) {
	path := filepath.Join(dir, MetadataFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.InstallInfo{}, &errors.Error{Kind: errors.NotFound, Op: "read " + path, Detail: MetadataFile, Err: err}
		}
		return model.InstallInfo{}, errors.E(errors.IO, "read "+path, err)
	}
	var info model.InstallInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return model.InstallInfo{}, errors.E(errors.JSON, "decode "+path, err)
	}
	return info, nil
}

// WriteInstallInfo writes info as indented JSON to dir/trainer.json.
func WriteInstallInfo(dir string, info model.InstallInfo) error {
	path := filepath.Join(dir, MetadataFile)
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return errors.E(errors.JSON, "encode "+path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, fsutil.FileModeDefault); err != nil {
		return errors.E(errors.IO, "write "+path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.E(errors.IO, "write "+path, err)
	}
	return nil
}

// Locate scans downloadDir/*/trainer.json for the trainer id and returns its
// metadata and directory. Unreadable metadata files are skipped.
func Locate(downloadDir, id string) (model.InstallInfo, string, bool) {
	matches, err := filepath.Glob(filepath.Join(downloadDir, "*", MetadataFile))
	if err != nil {
		return model.InstallInfo{}, "", false
	}
	for _, path := range matches {
		dir := filepath.Dir(path)
		info, err := ReadInstallInfo(dir)
		if err != nil {
			logger.Debug("Skipping unreadable install metadata", logger.Fields{"path": path, "error": err.Error()})
			continue
		}
		if info.Trainer.ID == id {
			return info, dir, true
		}
	}
	return model.InstallInfo{}, "", false
}
