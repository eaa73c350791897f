package catalog

import (
	"context"
	"strings"

	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/model"
	"github.com/xinggaoya/GameModMaster/pkg/store"
)

// Cached serves listing and search pages from the store's cache tables and
// only asks Upstream on a miss. Detail lookups are never cached.
type Cached struct {
	Upstream Catalog
	Store    *store.Store
}

var _ Catalog = (*Cached)(nil)

// NewCached wraps upstream with read-through caching backed by st.
func NewCached(upstream Catalog, st *store.Store) *Cached {
	return &Cached{Upstream: upstream, Store: st}
}

// FetchListing implements Catalog.
func (c *Cached) FetchListing(ctx context.Context, page int) (model.Page, error) {
	return c.readThrough(ctx, store.ListingKey(page), func() (model.Page, error) {
		return c.Upstream.FetchListing(ctx, page)
	})
}

// Search implements Catalog.
func (c *Cached) Search(ctx context.Context, query string, page int) (model.Page, error) {
	query = strings.TrimSpace(query)
	return c.readThrough(ctx, store.SearchKey(query, page), func() (model.Page, error) {
		return c.Upstream.Search(ctx, query, page)
	})
}

// FetchDetail implements Catalog.
func (c *Cached) FetchDetail(ctx context.Context, id string) (model.Trainer, error) {
	return c.Upstream.FetchDetail(ctx, id)
}

func (c *Cached) readThrough(ctx context.Context, key store.Key, fetch func() (model.Page, error)) (model.Page, error) {
	if c.Store != nil {
		page, ok, err := store.GetCache[model.Page](ctx, c.Store, key)
		switch {
		case err != nil:
			logger.Warn("Cache read failed", logger.Fields{"key": key.String(), "error": err.Error()})
		case ok:
			logger.Debug("Cache hit", logger.Fields{"key": key.String()})
			return page, nil
		}
	}

	page, err := fetch()
	if err != nil {
		return model.Page{}, err
	}

	if c.Store != nil {
		if err := store.SetCache(ctx, c.Store, key, page); err != nil {
			logger.Warn("Cache write failed", logger.Fields{"key": key.String(), "error": err.Error()})
		}
	}
	return page, nil
}
