package store

import (
	"strconv"
	"strings"

	"github.com/xinggaoya/GameModMaster/pkg/errors"
)

// Legacy storage keys.
const (
	InstalledKey     = "installedTrainers"
	DownloadedKey    = "downloadedTrainers"
	ListingKeyPrefix = "trainerList_"
	SearchKeyPrefix  = "searchResults_"
)

// KeyKind selects the cache table a key addresses.
type KeyKind int

// Cache key kinds.
const (
	ListingCache KeyKind = iota + 1
	SearchCache
)

// Key addresses one cache entry.
type Key struct {
	Kind  KeyKind
	Query string
	Page  int
}

// ListingKey addresses a cached listing page.
func ListingKey(page int) Key {
	return Key{Kind: ListingCache, Page: page}
}

// SearchKey addresses a cached page of search results.
func SearchKey(query string, page int) Key {
	return Key{Kind: SearchCache, Query: query, Page: page}
}

// String returns the legacy key, e.g. trainerList_2 or searchResults_cyberpunk_1.
func (k Key) String() string {
	switch k.Kind {
	case ListingCache:
		return ListingKeyPrefix + strconv.Itoa(k.Page)
	case SearchCache:
		return SearchKeyPrefix + k.Query + "_" + strconv.Itoa(k.Page)
	default:
		return ""
	}
}

func (k Key) validate() error {
	if k.Kind != ListingCache && k.Kind != SearchCache {
		return &errors.Error{Kind: errors.Validation, Op: "cache key", Detail: "unknown cache kind", Err: errors.ErrInvalidKey}
	}
	if k.Page < 0 {
		return &errors.Error{Kind: errors.Validation, Op: "cache key", Detail: "negative page " + strconv.Itoa(k.Page), Err: errors.ErrInvalidKey}
	}
	return nil
}

// ParseKey parses a legacy cache key. Search keys are split on the last
// underscore so queries may contain underscores.
func ParseKey(raw string) (Key, error) {
	invalid := &errors.Error{Kind: errors.Validation, Op: "parse cache key", Detail: raw, Err: errors.ErrInvalidKey}

	switch {
	case strings.HasPrefix(raw, ListingKeyPrefix):
		page, ok := parsePage(strings.TrimPrefix(raw, ListingKeyPrefix))
		if !ok {
			return Key{}, invalid
		}
		return ListingKey(page), nil

	case strings.HasPrefix(raw, SearchKeyPrefix):
		rest := strings.TrimPrefix(raw, SearchKeyPrefix)
		i := strings.LastIndex(rest, "_")
		if i < 0 {
			return Key{}, invalid
		}
		page, ok := parsePage(rest[i+1:])
		if !ok {
			return Key{}, invalid
		}
		return SearchKey(rest[:i], page), nil
	}
	return Key{}, invalid
}

func parsePage(s string) (int, bool) {
	page, err := strconv.Atoi(s)
	if err != nil || page < 0 {
		return 0, false
	}
	return page, true
}
