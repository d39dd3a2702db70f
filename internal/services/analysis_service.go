package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/realitycheck/internal/api"
	"github.com/miradorstack/realitycheck/internal/metrics"
	"github.com/miradorstack/realitycheck/internal/models"
	"github.com/miradorstack/realitycheck/internal/utils"
)

// Analyzer runs one founder update through the engine.
type Analyzer interface {
	Analyze(ctx context.Context, startupID, inputText string) (models.AnalysisResponse, error)
}

// HistoryLoader replays the snapshot log of a startup.
type HistoryLoader interface {
	Load(ctx context.Context, startupID string) (models.History, error)
}

// AnalysisService implements the gRPC RealityCheck service.
type AnalysisService struct {
	logger    *slog.Logger
	analyzer  Analyzer
	history   HistoryLoader
	validate  *validator.Validate
	latencies *utils.LatencyTracker
}

var _ api.RealityCheckServer = (*AnalysisService)(nil)

// NewAnalysisService constructs the service facade.
func NewAnalysisService(logger *slog.Logger, analyzer Analyzer, history HistoryLoader) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		logger:    logger,
		analyzer:  analyzer,
		history:   history,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Analyze validates the request, runs the analysis and maps domain errors
// onto gRPC status codes.
func (s *AnalysisService) Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.analyzer == nil {
		return nil, status.Error(codes.FailedPrecondition, "analyzer not configured")
	}

	domainReq, err := api.FromProtoAnalyzeRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.validate.Struct(domainReq); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.logger.Debug("Analyze called", slog.String("startup_id", domainReq.StartupID), slog.Int("input_bytes", len(domainReq.InputText)))

	start := time.Now()
	result, err := s.analyzer.Analyze(ctx, domainReq.StartupID, domainReq.InputText)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAnalysis(duration, outcomeFor(err))
		return nil, s.toStatus("analysis failed", err)
	}
	s.latencies.Observe(duration)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("analysis latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}

	out, err := api.ToProtoAnalysisResponse(result)
	if err != nil {
		s.logger.Error("encode analysis response failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

// GetHistory returns the replayed snapshot log of one startup.
func (s *AnalysisService) GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.history == nil {
		return nil, status.Error(codes.FailedPrecondition, "history not configured")
	}

	domainReq, err := api.FromProtoHistoryRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.validate.Struct(domainReq); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	h, err := s.history.Load(ctx, domainReq.StartupID)
	if err != nil {
		return nil, s.toStatus("load history failed", err)
	}
	out, err := api.ToProtoHistory(h)
	if err != nil {
		s.logger.Error("encode history failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode history")
	}
	return out, nil
}

// LatencyP95 returns the current p95 analysis latency.
func (s *AnalysisService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *AnalysisService) toStatus(msg string, err error) error {
	switch {
	case errors.Is(err, models.ErrExtraction), errors.Is(err, models.ErrExtractionEmpty):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, models.ErrAnalysisInProgress), errors.Is(err, models.ErrVersionConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error(msg, slog.Any("error", err))
		return status.Error(codes.Internal, msg)
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, models.ErrExtraction), errors.Is(err, models.ErrExtractionEmpty):
		return metrics.OutcomeRejected
	case errors.Is(err, models.ErrAnalysisInProgress), errors.Is(err, models.ErrVersionConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}
