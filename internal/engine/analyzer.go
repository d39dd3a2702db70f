package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/realitycheck/internal/locks"
	"github.com/miradorstack/realitycheck/internal/metrics"
	"github.com/miradorstack/realitycheck/internal/models"
	"github.com/miradorstack/realitycheck/internal/utils"
)

// FieldExtractor turns free text into the fields it mentions.
type FieldExtractor interface {
	Extract(ctx context.Context, text string) (models.PartialFields, error)
}

// SnapshotStore is the append-only snapshot log the analyzer reads and extends.
type SnapshotStore interface {
	Latest(ctx context.Context, startupID string) (*models.StartupSnapshot, error)
	Append(ctx context.Context, snapshot models.StartupSnapshot) error
}

// Analyzer orchestrates one founder update end to end.
type Analyzer struct {
	logger    *slog.Logger
	extractor FieldExtractor
	store     SnapshotStore
	locker    locks.Locker
	merger    *Merger
	drift     *DriftDetector
	evaluator *Evaluator
	planner   *Planner
	tracer    trace.Tracer
}

// NewAnalyzer wires the analysis flow. A nil locker falls back to an
// in-process keyed mutex.
func NewAnalyzer(
	logger *slog.Logger,
	extractor FieldExtractor,
	store SnapshotStore,
	locker locks.Locker,
	policy Policy,
	now func() time.Time,
) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if locker == nil {
		locker = locks.NewKeyedMutex()
	}
	return &Analyzer{
		logger:    logger,
		extractor: extractor,
		store:     store,
		locker:    locker,
		merger:    NewMerger(now),
		drift:     NewDriftDetector(),
		evaluator: NewEvaluator(policy),
		planner:   NewPlanner(policy),
		tracer:    otel.Tracer("realitycheck.engine"),
	}
}

// Analyze extracts, versions, diffs, evaluates and gates one update.
func (a *Analyzer) Analyze(ctx context.Context, startupID, inputText string) (resp models.AnalysisResponse, err error) {
	if a.extractor == nil || a.store == nil {
		return models.AnalysisResponse{}, fmt.Errorf("analyzer not configured")
	}

	analysisID := uuid.NewString()
	logger := a.logger.With(slog.String("analysis_id", analysisID), slog.String("startup_id", startupID))

	ctx, span := a.tracer.Start(ctx, "analyze", trace.WithAttributes(
		attribute.String("startup_id", startupID),
		attribute.String("analysis_id", analysisID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
		}
		span.End()
	}()

	release, err := a.locker.Acquire(ctx, startupID)
	if err != nil {
		return models.AnalysisResponse{}, err
	}
	defer release()

	extracted, err := a.extract(ctx, inputText)
	if err != nil {
		logger.Warn("extraction failed", slog.Any("error", err))
		return models.AnalysisResponse{}, err
	}

	previous, current, err := a.commit(ctx, logger, startupID, extracted)
	if err != nil {
		return models.AnalysisResponse{}, err
	}
	span.SetAttributes(attribute.Int("version", current.Version))

	resp, err = a.review(ctx, previous, current, extracted.Pivots)
	if err != nil {
		return models.AnalysisResponse{}, err
	}
	a.observe(resp)

	logger.Info("analysis complete",
		slog.Int("version", current.Version),
		slog.Int("drift_items", len(resp.Drift)),
		slog.Int("experiments", len(resp.Experiments)),
		slog.String("status", string(resp.Status)),
	)
	return resp, nil
}

func (a *Analyzer) extract(ctx context.Context, text string) (models.PartialFields, error) {
	ctx, span := a.tracer.Start(ctx, "extract")
	defer span.End()

	fields, err := a.extractor.Extract(ctx, text)
	if err != nil {
		span.RecordError(err)
		return models.PartialFields{}, err
	}
	return fields, nil
}

// commit merges onto the latest snapshot and appends the result. A version
// conflict is retried once against a fresh read.
func (a *Analyzer) commit(ctx context.Context, logger *slog.Logger, startupID string, extracted models.PartialFields) (*models.StartupSnapshot, models.StartupSnapshot, error) {
	ctx, span := a.tracer.Start(ctx, "commit")
	defer span.End()

	const attempts = 2
	var attempted int
	for attempt := 1; attempt <= attempts; attempt++ {
		previous, err := a.store.Latest(ctx, startupID)
		if err != nil {
			return nil, models.StartupSnapshot{}, utils.NewStartupError("load latest", startupID, 0, "", err)
		}
		current, err := a.merger.Merge(startupID, previous, extracted)
		if err != nil {
			return nil, models.StartupSnapshot{}, utils.NewStartupError("merge", startupID, nextVersion(previous), "", err)
		}
		attempted = current.Version

		err = a.store.Append(ctx, current)
		if err == nil {
			return previous, current, nil
		}
		if !errors.Is(err, models.ErrVersionConflict) {
			return nil, models.StartupSnapshot{}, utils.NewStartupError("append", startupID, current.Version, "", err)
		}
		metrics.ObserveVersionConflict()
		logger.Warn("snapshot version conflict", slog.Int("version", current.Version), slog.Int("attempt", attempt))
	}
	return nil, models.StartupSnapshot{}, utils.NewStartupError("append", startupID, attempted, "concurrent update won twice", models.ErrVersionConflict)
}

// review runs the pure stages: drift and evaluation in parallel, then
// planning and gating in parallel.
func (a *Analyzer) review(ctx context.Context, previous *models.StartupSnapshot, current models.StartupSnapshot, pivots models.FieldSet) (models.AnalysisResponse, error) {
	_, span := a.tracer.Start(ctx, "review")
	defer span.End()

	var (
		drift   []models.DriftItem
		reviews []models.DimensionReview
	)
	var inspect errgroup.Group
	inspect.Go(func() error {
		drift = a.drift.Diff(previous, current, pivots)
		return nil
	})
	inspect.Go(func() error {
		reviews = a.evaluator.Evaluate(current)
		return nil
	})
	if err := inspect.Wait(); err != nil {
		return models.AnalysisResponse{}, err
	}

	var (
		experiments []models.Experiment
		status      models.GateStatus
	)
	var decide errgroup.Group
	decide.Go(func() error {
		experiments = a.planner.Plan(current, reviews)
		return nil
	})
	decide.Go(func() error {
		status = Decide(reviews)
		return nil
	})
	if err := decide.Wait(); err != nil {
		return models.AnalysisResponse{}, err
	}

	if drift == nil {
		drift = []models.DriftItem{}
	}
	return models.AnalysisResponse{
		Snapshot:         current,
		DimensionReviews: reviews,
		Experiments:      experiments,
		Drift:            drift,
		Status:           status,
	}, nil
}

func (a *Analyzer) observe(resp models.AnalysisResponse) {
	metrics.ObserveGate(string(resp.Status))
	for _, item := range resp.Drift {
		metrics.ObserveDrift(string(item.Classification))
	}
	for _, review := range resp.DimensionReviews {
		metrics.ObserveDimension(string(review.Dimension), string(review.Severity))
	}
}

func nextVersion(previous *models.StartupSnapshot) int {
	if previous == nil {
		return 1
	}
	return previous.Version + 1
}
