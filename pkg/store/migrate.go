package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/model"
	"gorm.io/gorm"
)

// MigrationReport summarizes an import of legacy key/value data.
type MigrationReport struct {
	Imported    int      `json:"imported"`
	Dropped     int      `json:"dropped"`
	DroppedKeys []string `json:"dropped_keys,omitempty"`
}

// legacyInstalled accepts both the install_path field written by the backend
// and the installed_path field written by the old frontend store.
type legacyInstalled struct {
	model.Trainer
	InstallPath    string  `json:"install_path"`
	InstalledPath  string  `json:"installed_path"`
	InstallTime    string  `json:"install_time"`
	LastLaunchTime *string `json:"last_launch_time"`
}

func (l legacyInstalled) installed() model.InstalledTrainer {
	out := model.InstalledTrainer{
		Trainer:     l.Trainer,
		InstallPath: l.InstallPath,
		InstallTime: parseLegacyTime(l.InstallTime),
	}
	if out.InstallPath == "" {
		out.InstallPath = l.InstalledPath
	}
	if l.LastLaunchTime != nil {
		if t := parseLegacyTime(*l.LastLaunchTime); !t.IsZero() {
			out.LastLaunchTime = &t
		}
	}
	return out
}

func parseLegacyTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Migrate imports a legacy key/value dump in one transaction. Record keys
// replace their table, cache keys keep their original timestamps. Malformed,
// expired and unknown entries are dropped and counted in the report.
func (s *Store) Migrate(ctx context.Context, entries map[string]json.RawMessage) (MigrationReport, error) {
	var report MigrationReport
	now := s.nowMillis()

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	drop := func(key, reason string) {
		report.Dropped++
		report.DroppedKeys = append(report.DroppedKeys, key)
		logger.Debug("Dropping legacy entry", logger.Fields{"key": key, "reason": reason})
	}

	err := s.transaction(ctx, "migrate legacy data", func(tx *gorm.DB) error {
		for _, key := range keys {
			raw := entries[key]
			switch key {
			case InstalledKey:
				var legacy []legacyInstalled
				if err := json.Unmarshal(raw, &legacy); err != nil {
					drop(key, "malformed installed list")
					continue
				}
				rows := make([]installedRow, 0, len(legacy))
				for _, l := range legacy {
					if l.ID == "" {
						continue
					}
					rows = append(rows, toInstalledRow(l.installed()))
				}
				if err := replaceAll(tx, &installedRow{}, rows); err != nil {
					return err
				}
				report.Imported++

			case DownloadedKey:
				var trainers []model.Trainer
				if err := json.Unmarshal(raw, &trainers); err != nil {
					drop(key, "malformed downloaded list")
					continue
				}
				rows := make([]downloadedRow, 0, len(trainers))
				for _, t := range trainers {
					if t.ID == "" {
						continue
					}
					rows = append(rows, toDownloadedRow(t))
				}
				if err := replaceAll(tx, &downloadedRow{}, rows); err != nil {
					return err
				}
				report.Imported++

			default:
				cacheKey, err := ParseKey(key)
				if err != nil {
					drop(key, "unknown key")
					continue
				}
				var item CacheItem[json.RawMessage]
				if err := json.Unmarshal(raw, &item); err != nil || len(item.Data) == 0 || !json.Valid(item.Data) {
					drop(key, "malformed envelope")
					continue
				}
				if item.Expiration <= now {
					drop(key, "expired")
					continue
				}
				if err := putCacheTx(tx, cacheKey, item); err != nil {
					return err
				}
				report.Imported++
			}
		}
		return nil
	})
	if err != nil {
		return MigrationReport{}, err
	}

	logger.Info("Legacy data migrated", logger.Fields{"imported": report.Imported, "dropped": report.Dropped})
	return report, nil
}
