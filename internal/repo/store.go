// Package repo persists the append-only snapshot log of every startup.
package repo

import (
	"context"

	"github.com/miradorstack/realitycheck/internal/models"
)

// Store is the snapshot log. Append only succeeds for the version directly
// after the current latest; anything else is models.ErrVersionConflict.
type Store interface {
	Latest(ctx context.Context, startupID string) (*models.StartupSnapshot, error)
	Append(ctx context.Context, snapshot models.StartupSnapshot) error
	// List returns every version of startupID, oldest first.
	List(ctx context.Context, startupID string) ([]models.StartupSnapshot, error)
	Close() error
}

func checkAppendable(snapshot models.StartupSnapshot) error {
	if snapshot.StartupID == "" {
		return errMissingStartupID
	}
	if snapshot.Version < 1 {
		return models.ErrVersionConflict
	}
	return nil
}
