package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/miradorstack/realitycheck/internal/models"
	"github.com/miradorstack/realitycheck/internal/utils"
)

type fakeExtractor struct {
	mu      sync.Mutex
	results []models.PartialFields
	err     error
	calls   int
}

func (f *fakeExtractor) Extract(ctx context.Context, text string) (models.PartialFields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.PartialFields{}, f.err
	}
	if len(f.results) == 0 {
		return models.NewPartialFields(), nil
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next, nil
}

// fakeStore is an in-memory log. conflicts > 0 makes the next appends lose a
// race: a competing snapshot is written first and ErrVersionConflict returned.
type fakeStore struct {
	mu        sync.Mutex
	log       map[string][]models.StartupSnapshot
	conflicts int
	appends   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{log: make(map[string][]models.StartupSnapshot)}
}

func (f *fakeStore) Latest(ctx context.Context, id string) (*models.StartupSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.log[id]
	if len(entries) == 0 {
		return nil, nil
	}
	latest := entries[len(entries)-1].Clone()
	return &latest, nil
}

func (f *fakeStore) Append(ctx context.Context, s models.StartupSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	entries := f.log[s.StartupID]
	if f.conflicts > 0 {
		f.conflicts--
		competitor := models.StartupSnapshot{
			StartupID: s.StartupID,
			Version:   len(entries) + 1,
			Timestamp: s.Timestamp,
			Problem:   fmt.Sprintf("competing write %d", len(entries)+1),
		}
		f.log[s.StartupID] = append(entries, competitor)
		return models.ErrVersionConflict
	}
	if s.Version != len(entries)+1 {
		return models.ErrVersionConflict
	}
	f.log[s.StartupID] = append(entries, s.Clone())
	return nil
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(), error) {
	return nil, models.ErrAnalysisInProgress
}

func newTestAnalyzer(ex FieldExtractor, store SnapshotStore) *Analyzer {
	return NewAnalyzer(nil, ex, store, nil, DefaultPolicy(), nil)
}

func TestAnalyzeVersionsAreContiguous(t *testing.T) {
	store := newFakeStore()
	ex := &fakeExtractor{results: []models.PartialFields{
		partial(map[models.Field]string{models.FieldProblem: "no CRM for freelancers", models.FieldTargetUser: "freelance designers"}, nil),
		partial(map[models.Field]string{models.FieldTargetUser: "freelance consultants of all types"}, nil),
		partial(map[models.Field]string{models.FieldMetric: "paid conversions"}, nil),
	}}
	a := newTestAnalyzer(ex, store)

	for want := 1; want <= 3; want++ {
		resp, err := a.Analyze(context.Background(), "acme", "update")
		if err != nil {
			t.Fatalf("analyze %d: %v", want, err)
		}
		if resp.Snapshot.Version != want {
			t.Fatalf("version = %d, want %d", resp.Snapshot.Version, want)
		}
		if len(resp.DimensionReviews) != len(models.Dimensions()) {
			t.Fatalf("expected a review per dimension, got %d", len(resp.DimensionReviews))
		}
		if resp.Status != Decide(resp.DimensionReviews) {
			t.Fatalf("status %s disagrees with reviews", resp.Status)
		}
		switch want {
		case 1:
			if resp.Drift == nil || len(resp.Drift) != 0 {
				t.Fatalf("first version must report an empty drift list, got %#v", resp.Drift)
			}
		case 2:
			if len(resp.Drift) != 1 || resp.Drift[0].Field != models.FieldTargetUser ||
				resp.Drift[0].Classification != models.DriftMajorChange {
				t.Fatalf("unexpected drift: %+v", resp.Drift)
			}
		case 3:
			if len(resp.Drift) != 1 || resp.Drift[0].Classification != models.DriftMinorRefinement {
				t.Fatalf("unexpected drift: %+v", resp.Drift)
			}
		}
	}
	if got := len(store.log["acme"]); got != 3 {
		t.Fatalf("stored %d snapshots, want 3", got)
	}
}

func TestAnalyzeSparseUpdateIsBlocked(t *testing.T) {
	ex := &fakeExtractor{results: []models.PartialFields{
		partial(map[models.Field]string{models.FieldTargetUser: "freelance designers"}, nil),
	}}
	resp, err := newTestAnalyzer(ex, newFakeStore()).Analyze(context.Background(), "acme", "we help freelance designers")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.Status != models.StatusBlocked {
		t.Fatalf("status = %s, want BLOCKED", resp.Status)
	}
	if len(resp.Experiments) == 0 || resp.Experiments[0].Dimension != models.DimensionProblemClarity {
		t.Fatalf("expected blocker experiments led by problem_clarity, got %+v", resp.Experiments)
	}
}

func TestAnalyzeRetriesOneConflict(t *testing.T) {
	store := newFakeStore()
	store.conflicts = 1
	ex := &fakeExtractor{results: []models.PartialFields{
		partial(map[models.Field]string{models.FieldSolution: "invoice reminders"}, nil),
	}}
	resp, err := newTestAnalyzer(ex, store).Analyze(context.Background(), "acme", "update")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.Snapshot.Version != 2 {
		t.Fatalf("version = %d, want 2 after losing the first race", resp.Snapshot.Version)
	}
	if resp.Snapshot.Problem != "competing write 1" || resp.Snapshot.Solution != "invoice reminders" {
		t.Fatalf("retry did not re-merge onto the fresh latest: %+v", resp.Snapshot)
	}
	if ex.calls != 1 {
		t.Fatalf("extractor called %d times, want 1", ex.calls)
	}
	if store.appends != 2 {
		t.Fatalf("appends = %d, want 2", store.appends)
	}
}

func TestAnalyzeFailsOnRepeatedConflict(t *testing.T) {
	store := newFakeStore()
	store.conflicts = 2
	ex := &fakeExtractor{results: []models.PartialFields{
		partial(map[models.Field]string{models.FieldSolution: "invoice reminders"}, nil),
	}}
	_, err := newTestAnalyzer(ex, store).Analyze(context.Background(), "acme", "update")
	if !errors.Is(err, models.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.StartupID != "acme" || appErr.Version != 2 {
		t.Fatalf("conflict error lacks context: %+v", appErr)
	}
	if store.appends != 2 {
		t.Fatalf("appends = %d, want exactly one retry", store.appends)
	}
}

func TestAnalyzeEmptyUpdateLeavesLogUnchanged(t *testing.T) {
	store := newFakeStore()
	store.log["acme"] = []models.StartupSnapshot{{StartupID: "acme", Version: 1, Problem: "no CRM"}}
	ex := &fakeExtractor{}

	_, err := newTestAnalyzer(ex, store).Analyze(context.Background(), "acme", "   ")
	if !errors.Is(err, models.ErrExtractionEmpty) {
		t.Fatalf("expected ErrExtractionEmpty, got %v", err)
	}
	if len(store.log["acme"]) != 1 || store.appends != 0 {
		t.Fatalf("log changed on empty update")
	}
}

func TestAnalyzePropagatesExtractorFailures(t *testing.T) {
	outage := errors.New("extraction service returned 503 Service Unavailable")
	cases := map[string]struct {
		err       error
		wantInput bool
	}{
		"unusable text": {err: &models.ExtractionError{Reason: "no labelled fields found"}, wantInput: true},
		"outage":        {err: outage},
		"deadline":      {err: context.DeadlineExceeded},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore()
			_, err := newTestAnalyzer(&fakeExtractor{err: tc.err}, store).Analyze(context.Background(), "acme", "update")
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if got := errors.Is(err, models.ErrExtraction); got != tc.wantInput {
				t.Fatalf("errors.Is(err, ErrExtraction) = %v, want %v", got, tc.wantInput)
			}
			if store.appends != 0 {
				t.Fatalf("nothing may be appended when extraction fails")
			}
		})
	}
}

func TestAnalyzeRejectsWhenLockHeld(t *testing.T) {
	ex := &fakeExtractor{}
	a := NewAnalyzer(nil, ex, newFakeStore(), busyLocker{}, DefaultPolicy(), nil)
	_, err := a.Analyze(context.Background(), "acme", "update")
	if !errors.Is(err, models.ErrAnalysisInProgress) {
		t.Fatalf("expected ErrAnalysisInProgress, got %v", err)
	}
	if ex.calls != 0 {
		t.Fatalf("extractor must not run without the lock")
	}
}

func TestAnalyzeConcurrentUpdatesSerialise(t *testing.T) {
	store := newFakeStore()
	results := make([]models.PartialFields, 0, 10)
	for i := 0; i < 10; i++ {
		results = append(results, partial(map[models.Field]string{models.FieldMetric: fmt.Sprintf("metric %d", i)}, nil))
	}
	a := newTestAnalyzer(&fakeExtractor{results: results}, store)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.Analyze(context.Background(), "acme", "update"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("analyze: %v", err)
	}
	entries := store.log["acme"]
	for i, s := range entries {
		if s.Version != i+1 {
			t.Fatalf("entry %d has version %d", i, s.Version)
		}
	}
	if len(entries) != 10 {
		t.Fatalf("stored %d snapshots, want 10", len(entries))
	}
}
