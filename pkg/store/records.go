package store

import (
	"context"
	"time"

	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var upsertByID = clause.OnConflict{
	Columns:   []clause.Column{{Name: "id"}},
	UpdateAll: true,
}

// SaveDownloaded replaces the downloaded trainer table with trainers.
func (s *Store) SaveDownloaded(ctx context.Context, trainers []model.Trainer) error {
	rows := make([]downloadedRow, 0, len(trainers))
	for _, t := range trainers {
		rows = append(rows, toDownloadedRow(t))
	}
	return s.transaction(ctx, "save downloaded trainers", func(tx *gorm.DB) error {
		return replaceAll(tx, &downloadedRow{}, rows)
	})
}

// SaveInstalled replaces the installed trainer table with trainers.
func (s *Store) SaveInstalled(ctx context.Context, trainers []model.InstalledTrainer) error {
	rows := make([]installedRow, 0, len(trainers))
	for _, t := range trainers {
		rows = append(rows, toInstalledRow(t))
	}
	return s.transaction(ctx, "save installed trainers", func(tx *gorm.DB) error {
		return replaceAll(tx, &installedRow{}, rows)
	})
}

func replaceAll[R any](tx *gorm.DB, table *R, rows []R) error {
	if err := wipe(tx, table); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Clauses(upsertByID).CreateInBatches(&rows, 100).Error
}

// UpsertDownloaded inserts or updates one downloaded trainer.
func (s *Store) UpsertDownloaded(ctx context.Context, t model.Trainer) error {
	if t.ID == "" {
		return errors.New(errors.Validation, "trainer id cannot be empty")
	}
	db, err := s.session(ctx, "upsert downloaded trainer")
	if err != nil {
		return err
	}
	row := toDownloadedRow(t)
	return storeError("upsert downloaded trainer "+t.ID, db.Clauses(upsertByID).Create(&row).Error)
}

// UpsertInstalled inserts or updates one installed trainer.
func (s *Store) UpsertInstalled(ctx context.Context, t model.InstalledTrainer) error {
	if t.ID == "" {
		return errors.New(errors.Validation, "trainer id cannot be empty")
	}
	db, err := s.session(ctx, "upsert installed trainer")
	if err != nil {
		return err
	}
	row := toInstalledRow(t)
	return storeError("upsert installed trainer "+t.ID, db.Clauses(upsertByID).Create(&row).Error)
}

// RecordInstall upserts the installed record and its downloaded trainer in
// one transaction, so either both rows change or neither does.
func (s *Store) RecordInstall(ctx context.Context, t model.InstalledTrainer) error {
	if t.ID == "" {
		return errors.New(errors.Validation, "trainer id cannot be empty")
	}
	return s.transaction(ctx, "record install "+t.ID, func(tx *gorm.DB) error {
		installed := toInstalledRow(t)
		if err := tx.Clauses(upsertByID).Create(&installed).Error; err != nil {
			return err
		}
		downloaded := toDownloadedRow(t.Trainer)
		return tx.Clauses(upsertByID).Create(&downloaded).Error
	})
}

// GetDownloaded returns one downloaded trainer.
func (s *Store) GetDownloaded(ctx context.Context, id string) (model.Trainer, bool, error) {
	var row downloadedRow
	found, err := s.first(ctx, "get downloaded trainer "+id, &row, id)
	if err != nil || !found {
		return model.Trainer{}, false, err
	}
	return row.record(), true, nil
}

// GetInstalled returns one installed trainer.
func (s *Store) GetInstalled(ctx context.Context, id string) (model.InstalledTrainer, bool, error) {
	var row installedRow
	found, err := s.first(ctx, "get installed trainer "+id, &row, id)
	if err != nil || !found {
		return model.InstalledTrainer{}, false, err
	}
	return row.record(), true, nil
}

func (s *Store) first(ctx context.Context, op string, dest interface{}, id string) (bool, error) {
	db, err := s.session(ctx, op)
	if err != nil {
		return false, err
	}
	err = db.First(dest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeError(op, err)
	}
	return true, nil
}

// ListDownloaded returns every downloaded trainer ordered by id.
func (s *Store) ListDownloaded(ctx context.Context) ([]model.Trainer, error) {
	db, err := s.session(ctx, "list downloaded trainers")
	if err != nil {
		return nil, err
	}
	var rows []downloadedRow
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, storeError("list downloaded trainers", err)
	}
	out := make([]model.Trainer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// ListInstalled returns every installed trainer ordered by id.
func (s *Store) ListInstalled(ctx context.Context) ([]model.InstalledTrainer, error) {
	db, err := s.session(ctx, "list installed trainers")
	if err != nil {
		return nil, err
	}
	var rows []installedRow
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, storeError("list installed trainers", err)
	}
	out := make([]model.InstalledTrainer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// DeleteDownloaded removes one downloaded trainer. Unknown ids are ignored.
func (s *Store) DeleteDownloaded(ctx context.Context, id string) error {
	db, err := s.session(ctx, "delete downloaded trainer")
	if err != nil {
		return err
	}
	return storeError("delete downloaded trainer "+id, db.Delete(&downloadedRow{}, "id = ?", id).Error)
}

// DeleteInstalled removes one installed trainer. Unknown ids are ignored.
func (s *Store) DeleteInstalled(ctx context.Context, id string) error {
	db, err := s.session(ctx, "delete installed trainer")
	if err != nil {
		return err
	}
	return storeError("delete installed trainer "+id, db.Delete(&installedRow{}, "id = ?", id).Error)
}

// UpdateLastLaunch records a launch time on an installed trainer.
func (s *Store) UpdateLastLaunch(ctx context.Context, id string, at time.Time) error {
	op := "update last launch " + id
	db, err := s.session(ctx, op)
	if err != nil {
		return err
	}
	res := db.Model(&installedRow{}).Where("id = ?", id).Update("last_launch_time", at)
	if res.Error != nil {
		return storeError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return &errors.Error{Kind: errors.NotFound, Op: op, Detail: "trainer " + id, Err: errors.ErrTrainerNotFound}
	}
	return nil
}
