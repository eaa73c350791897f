//go:generate mockgen -destination=./mocks/catalog.go . Catalog

package catalog

import (
	"context"

	"github.com/xinggaoya/GameModMaster/pkg/model"
)

// Catalog is the remote trainer catalog.
type Catalog interface {
	// FetchListing returns one page of the catalog, starting at page 1.
	FetchListing(ctx context.Context, page int) (model.Page, error)

	// Search returns one page of trainers matching query.
	Search(ctx context.Context, query string, page int) (model.Page, error)

	// FetchDetail returns a single trainer. An unknown id is a NotFound error.
	FetchDetail(ctx context.Context, id string) (model.Trainer, error)
}
