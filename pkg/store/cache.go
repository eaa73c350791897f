package store

import (
	"context"
	"encoding/json"

	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheItem is the cache envelope. Timestamps are epoch milliseconds.
type CacheItem[T any] struct {
	Data       T     `json:"data"`
	Timestamp  int64 `json:"timestamp"`
	Expiration int64 `json:"expiration"`
}

// SetCache stores payload under key with a fresh TTL, overwriting any
// previous entry.
func SetCache[T any](ctx context.Context, s *Store, key Key, payload T) error {
	op := "set cache " + key.String()
	if err := key.validate(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.E(errors.JSON, op, err)
	}
	now := s.nowMillis()
	return s.putCache(ctx, op, key, CacheItem[json.RawMessage]{
		Data:       data,
		Timestamp:  now,
		Expiration: now + CacheTTL.Milliseconds(),
	})
}

// GetCache returns the payload stored under key. Missing and expired entries
// report false; expired entries are deleted on the way.
func GetCache[T any](ctx context.Context, s *Store, key Key) (T, bool, error) {
	var zero T
	op := "get cache " + key.String()

	item, found, err := s.loadCache(ctx, op, key)
	if err != nil || !found {
		return zero, false, err
	}
	if now := s.nowMillis(); now >= item.Expiration {
		if err := s.evictCache(ctx, op, key, now); err != nil {
			logger.Warn("Failed to evict expired cache entry", logger.Fields{"key": key.String(), "error": err.Error()})
		}
		return zero, false, nil
	}

	var out T
	if err := json.Unmarshal(item.Data, &out); err != nil {
		return zero, false, errors.E(errors.JSON, op, err)
	}
	return out, true, nil
}

// putCache upserts a raw envelope, keeping its timestamps as given.
func (s *Store) putCache(ctx context.Context, op string, key Key, item CacheItem[json.RawMessage]) error {
	db, err := s.session(ctx, op)
	if err != nil {
		return err
	}
	return storeError(op, putCacheTx(db, key, item))
}

func putCacheTx(tx *gorm.DB, key Key, item CacheItem[json.RawMessage]) error {
	updates := clause.AssignmentColumns([]string{"data", "timestamp", "expiration"})
	switch key.Kind {
	case ListingCache:
		row := listingCacheRow{Page: key.Page, Data: string(item.Data), Timestamp: item.Timestamp, Expiration: item.Expiration}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "page"}},
			DoUpdates: updates,
		}).Create(&row).Error
	default:
		row := searchCacheRow{Query: key.Query, Page: key.Page, Data: string(item.Data), Timestamp: item.Timestamp, Expiration: item.Expiration}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "query"}, {Name: "page"}},
			DoUpdates: updates,
		}).Create(&row).Error
	}
}

func (s *Store) loadCache(ctx context.Context, op string, key Key) (CacheItem[json.RawMessage], bool, error) {
	if err := key.validate(); err != nil {
		return CacheItem[json.RawMessage]{}, false, err
	}
	db, err := s.session(ctx, op)
	if err != nil {
		return CacheItem[json.RawMessage]{}, false, err
	}

	var item CacheItem[json.RawMessage]
	switch key.Kind {
	case ListingCache:
		var row listingCacheRow
		err = db.First(&row, "page = ?", key.Page).Error
		item = CacheItem[json.RawMessage]{Data: json.RawMessage(row.Data), Timestamp: row.Timestamp, Expiration: row.Expiration}
	default:
		var row searchCacheRow
		err = db.First(&row, "query = ? AND page = ?", key.Query, key.Page).Error
		item = CacheItem[json.RawMessage]{Data: json.RawMessage(row.Data), Timestamp: row.Timestamp, Expiration: row.Expiration}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CacheItem[json.RawMessage]{}, false, nil
	}
	if err != nil {
		return CacheItem[json.RawMessage]{}, false, storeError(op, err)
	}
	return item, true, nil
}

// evictCache deletes key if it is still expired at now, so a concurrent
// refresh survives.
func (s *Store) evictCache(ctx context.Context, op string, key Key, now int64) error {
	db, err := s.session(ctx, op)
	if err != nil {
		return err
	}
	switch key.Kind {
	case ListingCache:
		err = db.Delete(&listingCacheRow{}, "page = ? AND expiration <= ?", key.Page, now).Error
	default:
		err = db.Delete(&searchCacheRow{}, "query = ? AND page = ? AND expiration <= ?", key.Query, key.Page, now).Error
	}
	return storeError(op, err)
}

// SweepExpired deletes expired and unreadable cache rows from both cache
// tables and returns how many were removed.
func (s *Store) SweepExpired(ctx context.Context) (int64, error) {
	now := s.nowMillis()
	var removed int64
	err := s.transaction(ctx, "sweep expired cache", func(tx *gorm.DB) error {
		res := tx.Where("expiration <= ? OR data = ''", now).Delete(&listingCacheRow{})
		if res.Error != nil {
			return res.Error
		}
		removed += res.RowsAffected

		res = tx.Where("expiration <= ? OR data = ''", now).Delete(&searchCacheRow{})
		if res.Error != nil {
			return res.Error
		}
		removed += res.RowsAffected

		var listings []listingCacheRow
		if err := tx.Find(&listings).Error; err != nil {
			return err
		}
		for _, r := range listings {
			if json.Valid([]byte(r.Data)) {
				continue
			}
			if err := tx.Delete(&listingCacheRow{}, "page = ?", r.Page).Error; err != nil {
				return err
			}
			removed++
		}

		var searches []searchCacheRow
		if err := tx.Find(&searches).Error; err != nil {
			return err
		}
		for _, r := range searches {
			if json.Valid([]byte(r.Data)) {
				continue
			}
			if err := tx.Delete(&searchCacheRow{}, "query = ? AND page = ?", r.Query, r.Page).Error; err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logger.Debug("Swept cache", logger.Fields{"removed": removed})
	}
	return removed, nil
}

// Keys lists the legacy keys of every non-empty record table and every live
// cache entry.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	op := "list keys"
	db, err := s.session(ctx, op)
	if err != nil {
		return nil, err
	}
	now := s.nowMillis()
	var keys []string

	var installed, downloaded int64
	if err := db.Model(&installedRow{}).Count(&installed).Error; err != nil {
		return nil, storeError(op, err)
	}
	if installed > 0 {
		keys = append(keys, InstalledKey)
	}
	if err := db.Model(&downloadedRow{}).Count(&downloaded).Error; err != nil {
		return nil, storeError(op, err)
	}
	if downloaded > 0 {
		keys = append(keys, DownloadedKey)
	}

	var pages []int
	if err := db.Model(&listingCacheRow{}).Where("expiration > ?", now).Order("page").Pluck("page", &pages).Error; err != nil {
		return nil, storeError(op, err)
	}
	for _, p := range pages {
		keys = append(keys, ListingKey(p).String())
	}

	var searches []searchCacheRow
	if err := db.Select("query", "page").Where("expiration > ?", now).Order("query").Order("page").Find(&searches).Error; err != nil {
		return nil, storeError(op, err)
	}
	for _, r := range searches {
		keys = append(keys, SearchKey(r.Query, r.Page).String())
	}
	return keys, nil
}

// ClearAll empties every table.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.transaction(ctx, "clear store", func(tx *gorm.DB) error {
		for _, table := range []interface{}{&downloadedRow{}, &installedRow{}, &listingCacheRow{}, &searchCacheRow{}} {
			if err := wipe(tx, table); err != nil {
				return err
			}
		}
		return nil
	})
}
