package store

import (
	"time"

	"github.com/xinggaoya/GameModMaster/pkg/model"
)

// trainerColumns are the catalog fields shared by both record tables.
type trainerColumns struct {
	Name          string `gorm:"size:500"`
	Version       string `gorm:"size:100"`
	GameVersion   string `gorm:"size:100"`
	DownloadURL   string `gorm:"size:2000"`
	Description   string
	Thumbnail     string `gorm:"size:2000"`
	DownloadCount int    `gorm:"default:0"`
	LastUpdate    string `gorm:"size:100"`
}

type downloadedRow struct {
	ID      string         `gorm:"primaryKey;size:255"`
	Columns trainerColumns `gorm:"embedded"`
}

func (downloadedRow) TableName() string { return "downloaded_trainers" }

type installedRow struct {
	ID             string         `gorm:"primaryKey;size:255"`
	Columns        trainerColumns `gorm:"embedded"`
	InstallPath    string         `gorm:"size:4096"`
	InstallTime    time.Time
	LastLaunchTime *time.Time
}

func (installedRow) TableName() string { return "installed_trainers" }

// listingCacheRow caches one page of the catalog listing.
type listingCacheRow struct {
	Page       int    `gorm:"primaryKey;autoIncrement:false"`
	Data       string `gorm:"not null"`
	Timestamp  int64  `gorm:"not null"`
	Expiration int64  `gorm:"not null;index"`
}

func (listingCacheRow) TableName() string { return "trainer_list_cache" }

// searchCacheRow caches one page of search results.
type searchCacheRow struct {
	Query      string `gorm:"primaryKey;size:500"`
	Page       int    `gorm:"primaryKey;autoIncrement:false"`
	Data       string `gorm:"not null"`
	Timestamp  int64  `gorm:"not null"`
	Expiration int64  `gorm:"not null;index"`
}

func (searchCacheRow) TableName() string { return "search_cache" }

func columnsFrom(t model.Trainer) trainerColumns {
	return trainerColumns{
		Name:          t.Name,
		Version:       t.Version,
		GameVersion:   t.GameVersion,
		DownloadURL:   t.DownloadURL,
		Description:   t.Description,
		Thumbnail:     t.Thumbnail,
		DownloadCount: t.DownloadCount,
		LastUpdate:    t.LastUpdate,
	}
}

func (c trainerColumns) trainer(id string) model.Trainer {
	return model.Trainer{
		ID:            id,
		Name:          c.Name,
		Version:       c.Version,
		GameVersion:   c.GameVersion,
		DownloadURL:   c.DownloadURL,
		Description:   c.Description,
		Thumbnail:     c.Thumbnail,
		DownloadCount: c.DownloadCount,
		LastUpdate:    c.LastUpdate,
	}
}

func toDownloadedRow(t model.Trainer) downloadedRow {
	return downloadedRow{ID: t.ID, Columns: columnsFrom(t)}
}

func (r downloadedRow) record() model.Trainer {
	return r.Columns.trainer(r.ID)
}

func toInstalledRow(t model.InstalledTrainer) installedRow {
	return installedRow{
		ID:             t.ID,
		Columns:        columnsFrom(t.Trainer),
		InstallPath:    t.InstallPath,
		InstallTime:    t.InstallTime,
		LastLaunchTime: t.LastLaunchTime,
	}
}

func (r installedRow) record() model.InstalledTrainer {
	return model.InstalledTrainer{
		Trainer:        r.Columns.trainer(r.ID),
		InstallPath:    r.InstallPath,
		InstallTime:    r.InstallTime,
		LastLaunchTime: r.LastLaunchTime,
	}
}
