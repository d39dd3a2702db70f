// Package history rebuilds the audit view of a startup's snapshot log.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/miradorstack/realitycheck/internal/engine"
	"github.com/miradorstack/realitycheck/internal/models"
)

// Lister abstracts read access to the snapshot log.
type Lister interface {
	List(ctx context.Context, startupID string) ([]models.StartupSnapshot, error)
}

// ListerFunc adapts a function to the Lister interface.
type ListerFunc func(ctx context.Context, startupID string) ([]models.StartupSnapshot, error)

// List implements Lister.
func (f ListerFunc) List(ctx context.Context, startupID string) ([]models.StartupSnapshot, error) {
	return f(ctx, startupID)
}

// Replayer recomputes drift between consecutive stored versions.
type Replayer struct {
	lister Lister
	drift  *engine.DriftDetector
	logger *slog.Logger
}

// NewReplayer constructs a Replayer over lister.
func NewReplayer(logger *slog.Logger, lister Lister) *Replayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replayer{lister: lister, drift: engine.NewDriftDetector(), logger: logger}
}

// Load lists the log of startupID and replays it.
func (r *Replayer) Load(ctx context.Context, startupID string) (models.History, error) {
	if r.lister == nil {
		return models.History{}, fmt.Errorf("history lister not configured")
	}
	snapshots, err := r.lister.List(ctx, startupID)
	if err != nil {
		return models.History{}, err
	}
	h := r.Replay(startupID, snapshots)
	r.logger.Debug("history replayed",
		slog.String("startup_id", startupID),
		slog.Int("versions", len(h.Snapshots)),
		slog.Int("pivots", totalPivots(h)),
	)
	return h, nil
}

// Replay builds the history of an ordered snapshot log. Pivot judgements
// made at extraction time are not stored, so replayed drift carries the
// structural classification of each field.
func (r *Replayer) Replay(startupID string, snapshots []models.StartupSnapshot) models.History {
	sorted := append([]models.StartupSnapshot(nil), snapshots...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	h := models.History{
		StartupID: startupID,
		Snapshots: sorted,
		Drift:     make([]models.VersionDrift, 0, len(sorted)),
		Pivots:    make(map[models.Field]int),
	}
	var previous *models.StartupSnapshot
	for i := range sorted {
		current := sorted[i]
		items := r.drift.Diff(previous, current, nil)
		if items == nil {
			items = []models.DriftItem{}
		}
		for _, item := range items {
			if item.Classification == models.DriftMajorChange {
				h.Pivots[item.Field]++
			}
		}
		h.Drift = append(h.Drift, models.VersionDrift{Version: current.Version, Items: items})
		h.LatestVersion = current.Version
		previous = &sorted[i]
	}
	return h
}

// Hotspots returns up to limit fields ordered by how often they pivoted,
// ties broken by canonical field order.
func Hotspots(h models.History, limit int) []models.Field {
	fields := make([]models.Field, 0, len(h.Pivots))
	for _, field := range models.CanonicalFields() {
		if h.Pivots[field] > 0 {
			fields = append(fields, field)
		}
	}
	sort.SliceStable(fields, func(i, j int) bool {
		return h.Pivots[fields[i]] > h.Pivots[fields[j]]
	})
	if limit > 0 && len(fields) > limit {
		fields = fields[:limit]
	}
	return fields
}

func totalPivots(h models.History) int {
	total := 0
	for _, n := range h.Pivots {
		total += n
	}
	return total
}
