package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"rfmbasket/internal/exporter"
	"rfmbasket/internal/validation"
	"rfmbasket/pkg/contracts/domain"
)

// Analyzer runs the analysis pipeline on one uploaded file.
// *dataprocessing.Processor satisfies it.
type Analyzer interface {
	Run(ctx context.Context, r io.Reader, filename string) (*domain.AnalysisResult, error)
}

// Upload is a file handed to the service. Size is -1 when unknown.
type Upload struct {
	FileName string
	Size     int64
	Body     io.Reader
}

// AnalysisService validates uploads and runs them through the pipeline.
type AnalysisService struct {
	analyzer  Analyzer
	validator *validation.FileValidator
	writer    *exporter.CSVWriter
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAnalysisService creates an analysis service. A zero timeout leaves runs
// bounded only by the caller's context.
func NewAnalysisService(analyzer Analyzer, validator *validation.FileValidator, writer *exporter.CSVWriter, timeout time.Duration, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if writer == nil {
		writer = exporter.NewCSVWriter(logger)
	}

	return &AnalysisService{
		analyzer:  analyzer,
		validator: validator,
		writer:    writer,
		timeout:   timeout,
		logger:    logger.With(slog.String("service", "analysis")),
	}
}

// MaxUploadBytes returns the upload limit enforced by the validator, or 0.
func (s *AnalysisService) MaxUploadBytes() int64 {
	if s.validator == nil {
		return 0
	}
	return s.validator.MaxBytes()
}

// ReadinessCheck reports the service unready until it has a pipeline.
func (s *AnalysisService) ReadinessCheck() ReadinessCheck {
	return ReadinessCheck{
		Name: "analysis",
		Check: func(ctx context.Context) error {
			if s.analyzer == nil {
				return fmt.Errorf("%w: no analysis pipeline configured", ErrServiceUnavailable)
			}
			return nil
		},
	}
}

// Analyze validates the upload and runs the pipeline on it.
func (s *AnalysisService) Analyze(ctx context.Context, upload Upload) (*domain.AnalysisResult, error) {
	if upload.Body == nil {
		return nil, ErrNoFile
	}

	if s.validator != nil {
		if err := s.validator.ValidateUpload(upload.FileName, upload.Size); err != nil {
			return nil, err
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.analyzer.Run(ctx, upload.Body, upload.FileName)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.logger.WarnContext(ctx, "Analysis timed out",
				slog.String("file", upload.FileName),
				slog.Duration("timeout", s.timeout))
			return nil, fmt.Errorf("%w after %s: %w", ErrAnalysisTimeout, s.timeout, ctx.Err())
		}
		return nil, fmt.Errorf("analysis of %s failed: %w", upload.FileName, err)
	}

	s.logger.InfoContext(ctx, "Upload analysed",
		slog.String("file", upload.FileName),
		slog.String("run_id", result.RunID),
		slog.Int("customers", len(result.Customers)),
		slog.Int("rules", len(result.Rules)),
		slog.Int("warnings", len(result.Warnings)),
		slog.Duration("elapsed", time.Since(start)))

	return result, nil
}

// WriteSegments renders the customer segments export of result to w.
func (s *AnalysisService) WriteSegments(w io.Writer, result *domain.AnalysisResult) error {
	if err := s.writer.WriteSegments(w, result); err != nil {
		return fmt.Errorf("failed to write segments: %w", err)
	}
	return nil
}
