package engine

import (
	"strings"
	"time"

	"github.com/miradorstack/realitycheck/internal/models"
)

// Merger folds extracted fields onto the previous snapshot to produce the
// next version. Fields are sticky: anything the update does not mention
// carries forward unchanged.
type Merger struct {
	now func() time.Time
}

// NewMerger constructs a Merger; a nil clock defaults to time.Now.
func NewMerger(now func() time.Time) *Merger {
	if now == nil {
		now = time.Now
	}
	return &Merger{now: now}
}

// Merge builds the snapshot that follows previous. A nil previous starts the
// history at version 1, where an empty extraction is allowed; for any later
// version an empty extraction yields models.ErrExtractionEmpty.
func (m *Merger) Merge(startupID string, previous *models.StartupSnapshot, extracted models.PartialFields) (models.StartupSnapshot, error) {
	var next models.StartupSnapshot
	if previous == nil {
		next = models.StartupSnapshot{
			StartupID:         startupID,
			Version:           1,
			TopRisks:          []string{},
			DeclaredNextSteps: []string{},
		}
	} else {
		mustBeWellFormed(*previous)
		if extracted.Usable() == 0 {
			return models.StartupSnapshot{}, models.ErrExtractionEmpty
		}
		next = previous.Clone()
		next.Version = previous.Version + 1
	}

	for _, field := range models.TextFields() {
		if value := strings.TrimSpace(extracted.Text[field]); value != "" {
			next.SetText(field, value)
		}
	}
	for _, field := range models.ListFields() {
		if items := models.CleanList(extracted.Lists[field]); len(items) > 0 {
			next.SetList(field, items)
		}
	}

	next.Timestamp = m.timestampAfter(previous)
	return next, nil
}

// timestampAfter returns the current instant at storage precision, nudged
// forward when needed so timestamps increase with version.
func (m *Merger) timestampAfter(previous *models.StartupSnapshot) time.Time {
	ts := m.now().UTC().Truncate(time.Millisecond)
	if previous != nil && !ts.After(previous.Timestamp) {
		ts = previous.Timestamp.UTC().Truncate(time.Millisecond).Add(time.Millisecond)
	}
	return ts
}

// mustBeWellFormed panics on snapshots no store could have produced.
func mustBeWellFormed(s models.StartupSnapshot) {
	if s.Version < 1 {
		panic("engine: snapshot version must be >= 1")
	}
	if s.StartupID == "" {
		panic("engine: snapshot without startup id")
	}
}
