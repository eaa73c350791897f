package catalog

import (
	"context"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/model"
)

// Update describes an installed trainer with a newer catalog version.
type Update struct {
	ID        string
	Name      string
	Installed string
	Available string
}

// IsNewer reports whether available supersedes installed. Versions that
// both parse are compared semantically; anything else counts as newer when
// the two strings differ.
func IsNewer(installed, available string) bool {
	installed = strings.TrimSpace(installed)
	available = strings.TrimSpace(available)
	if available == "" {
		return false
	}

	iv, ierr := version.NewVersion(installed)
	av, aerr := version.NewVersion(available)
	if ierr == nil && aerr == nil {
		return av.GreaterThan(iv)
	}
	return installed != available
}

// Outdated asks c for the current detail of every installed trainer and
// returns the ones with a newer version. Trainers the catalog no longer knows
// are skipped.
func Outdated(ctx context.Context, c Catalog, installed []model.InstalledTrainer) ([]Update, error) {
	var updates []Update
	for _, it := range installed {
		if err := ctx.Err(); err != nil {
			return updates, err
		}

		latest, err := c.FetchDetail(ctx, it.ID)
		if err != nil {
			if errors.KindOf(err) == errors.NotFound {
				logger.Debug("Trainer no longer in catalog", logger.Fields{"id": it.ID})
				continue
			}
			return updates, err
		}

		if IsNewer(it.Version, latest.Version) {
			updates = append(updates, Update{
				ID:        it.ID,
				Name:      it.Name,
				Installed: it.Version,
				Available: latest.Version,
			})
		}
	}
	return updates, nil
}
