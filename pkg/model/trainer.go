// Package model holds the data types shared between the catalog, the store
// and the installer.
package model

import "time"

// Trainer is a catalog entry describing a downloadable trainer.
type Trainer struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Version       string `json:"version"`
	GameVersion   string `json:"game_version"`
	DownloadURL   string `json:"download_url"`
	Description   string `json:"description"`
	Thumbnail     string `json:"thumbnail"`
	DownloadCount int    `json:"download_count"`
	LastUpdate    string `json:"last_update"`
}

// InstalledTrainer is a trainer that has been acquired into a local directory.
type InstalledTrainer struct {
	Trainer
	InstallPath    string     `json:"install_path"`
	InstallTime    time.Time  `json:"install_time"`
	LastLaunchTime *time.Time `json:"last_launch_time"`
}

// InstallInfo is the document written as trainer.json into every install
// directory.
type InstallInfo struct {
	Trainer        Trainer    `json:"trainer"`
	InstallPath    string     `json:"install_path"`
	InstallTime    time.Time  `json:"install_time"`
	LastLaunchTime *time.Time `json:"last_launch_time"`
}

// Installed converts the metadata document into an installed record.
func (i InstallInfo) Installed() InstalledTrainer {
	return InstalledTrainer{
		Trainer:        i.Trainer,
		InstallPath:    i.InstallPath,
		InstallTime:    i.InstallTime,
		LastLaunchTime: i.LastLaunchTime,
	}
}

// Page is one page of catalog results.
type Page struct {
	Trainers []Trainer `json:"trainers"`
	Total    int       `json:"total"`
}
