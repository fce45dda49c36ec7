package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rfmbasket/internal/infrastructure"
	"rfmbasket/pkg/contracts/domain"
)

// Stage identifiers, in pipeline order.
const (
	StageIngest  = "ingest"
	StageClean   = "clean"
	StageRFM     = "rfm"
	StageSegment = "segment"
	StageBasket  = "basket"
	StageRules   = "rules"
)

var stageNames = map[string]string{
	StageIngest:  "Ingestion & Validation",
	StageClean:   "Cleaning",
	StageRFM:     "RFM Aggregation",
	StageSegment: "Segmentation",
	StageBasket:  "Basket Encoding",
	StageRules:   "Rule Mining",
}

var stageOrder = []string{StageIngest, StageClean, StageRFM, StageSegment, StageBasket, StageRules}

// StageState is the runtime state of one pipeline stage. The two analysis
// branches update their own stages concurrently.
type StageState struct {
	mu        sync.RWMutex
	ID        string
	Name      string
	Status    domain.StageStatus
	StartTime *time.Time
	EndTime   *time.Time
	Message   string
	Error     error
}

// NewStageState creates a pending stage.
func NewStageState(id string) *StageState {
	name, ok := stageNames[id]
	if !ok {
		name = id
	}
	return &StageState{ID: id, Name: name, Status: domain.StageStatusPending}
}

// Start records the start time.
func (s *StageState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
}

// Complete marks the stage as completed with a short summary.
func (s *StageState) Complete(message string) {
	s.finish(domain.StageStatusCompleted, message, nil)
}

// Fail marks the stage as failed with the given error
func (s *StageState) Fail(err error) {
	s.finish(domain.StageStatusFailed, err.Error(), err)
}

// Skip marks the stage as skipped with the given reason
func (s *StageState) Skip(reason string) {
	s.finish(domain.StageStatusSkipped, reason, nil)
}

func (s *StageState) finish(status domain.StageStatus, message string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = status
	s.Message = message
	s.Error = err
}

// Duration returns how long the stage ran, or has been running.
func (s *StageState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

// Report snapshots the stage for the result payload.
func (s *StageState) Report() domain.StageReport {
	d := s.Duration()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.StageReport{
		ID:         s.ID,
		Name:       s.Name,
		Status:     s.Status,
		Message:    s.Message,
		DurationMS: d.Milliseconds(),
	}
}

// stageRunner wraps every stage in a span, a duration metric and a log line.
type stageRunner struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
	states  map[string]*StageState
}

func newStageRunner(tracer trace.Tracer, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *stageRunner {
	states := make(map[string]*StageState, len(stageOrder))
	for _, id := range stageOrder {
		states[id] = NewStageState(id)
	}
	return &stageRunner{tracer: tracer, metrics: metrics, logger: logger, states: states}
}

// run executes fn as stage id. fn returns a completion summary. A wrapped
// ErrInsufficientDataForClustering marks the stage skipped and is returned
// so the caller can turn it into a warning.
func (r *stageRunner) run(ctx context.Context, id string, fn func(context.Context) (string, error)) error {
	st := r.states[id]

	ctx, span := r.tracer.Start(ctx, "analysis.stage."+id,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("stage.id", id)),
	)
	defer span.End()

	st.Start()
	summary, err := fn(ctx)

	switch {
	case err == nil:
		st.Complete(summary)
		span.SetStatus(codes.Ok, "")
		r.logger.InfoContext(ctx, "Stage completed",
			slog.String("stage", id),
			slog.String("summary", summary),
			slog.Int64("duration_ms", st.Duration().Milliseconds()))
	case errors.Is(err, ErrInsufficientDataForClustering):
		st.Skip(err.Error())
		span.AddEvent("stage.skipped", trace.WithAttributes(attribute.String("reason", err.Error())))
		r.logger.WarnContext(ctx, "Stage skipped",
			slog.String("stage", id),
			slog.String("reason", err.Error()))
	default:
		st.Fail(err)
		infrastructure.RecordError(ctx, err)
		r.logger.ErrorContext(ctx, "Stage failed",
			slog.String("stage", id),
			slog.String("error", err.Error()))
	}

	infrastructure.RecordStage(ctx, r.metrics, id, string(st.Report().Status), st.Duration())

	if err != nil && !errors.Is(err, ErrInsufficientDataForClustering) {
		return fmt.Errorf("%s: %w", st.Name, err)
	}
	return err
}

// skipRemaining marks stages that never started as skipped.
func (r *stageRunner) skipRemaining(reason string) {
	for _, id := range stageOrder {
		if st := r.states[id]; st.Report().Status == domain.StageStatusPending {
			st.Skip(reason)
		}
	}
}

func (r *stageRunner) reports() []domain.StageReport {
	out := make([]domain.StageReport, 0, len(stageOrder))
	for _, id := range stageOrder {
		out = append(out, r.states[id].Report())
	}
	return out
}
