package dataprocessing

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"rfmbasket/internal/config"
	"rfmbasket/internal/infrastructure"
	"rfmbasket/pkg/contracts/domain"
)

// TracerName names the pipeline's OpenTelemetry tracer.
const TracerName = "rfmbasket.analysis"

// Processor runs the full analysis for one upload. It holds no per-run
// state, so one Processor may serve concurrent runs.
type Processor struct {
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *infrastructure.BusinessMetrics
	segmenter   *Segmenter
	miner       RuleMiner
	previewRows int
	topRules    int
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger; the component attribute is added here.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = infrastructure.WithComponent(logger, "analysis") }
}

// WithTracer overrides the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Processor) { p.tracer = tracer }
}

// WithMetrics records run and stage metrics.
func WithMetrics(metrics *infrastructure.BusinessMetrics) Option {
	return func(p *Processor) { p.metrics = metrics }
}

// WithSegmenter swaps the clustering and projection strategies.
func WithSegmenter(s *Segmenter) Option {
	return func(p *Processor) { p.segmenter = s }
}

// WithRuleMiner swaps the rule mining strategy.
func WithRuleMiner(m RuleMiner) Option {
	return func(p *Processor) { p.miner = m }
}

// WithPreviewRows sets how many raw and cleaned rows the result carries.
func WithPreviewRows(n int) Option {
	return func(p *Processor) { p.previewRows = n }
}

// WithTopRules sets how many ranked rules the result carries.
func WithTopRules(n int) Option {
	return func(p *Processor) { p.topRules = n }
}

// NewProcessor creates a processor with the default strategies.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		logger:      infrastructure.WithComponent(infrastructure.GetLogger(), "analysis"),
		tracer:      otel.Tracer(TracerName),
		segmenter:   NewSegmenter(),
		miner:       NewAprioriMiner(),
		previewRows: config.DefaultPreviewRows,
		topRules:    config.DefaultTopRules,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ingests r and computes segments and association rules. Input errors
// (missing columns, bad dates, non-numeric cells) abort the run with no
// partial result. Too few customers only skips segmentation and adds a
// warning; basket analysis still runs.
func (p *Processor) Run(ctx context.Context, r io.Reader, filename string) (*domain.AnalysisResult, error) {
	result := &domain.AnalysisResult{
		RunID:     uuid.New().String(),
		FileName:  filename,
		StartedAt: time.Now().UTC(),
		Customers: []domain.CustomerSegment{},
		Rules:     []domain.AssociationRule{},
	}

	ctx = infrastructure.WithRunID(ctx, result.RunID)
	ctx, span := p.tracer.Start(ctx, "analysis.run",
		trace.WithAttributes(
			attribute.String("analysis.run_id", result.RunID),
			attribute.String("analysis.file_name", filename),
		),
	)
	defer span.End()

	if p.metrics != nil {
		p.metrics.AnalysisActiveRuns.Add(ctx, 1)
		defer p.metrics.AnalysisActiveRuns.Add(ctx, -1)
	}

	p.logger.InfoContext(ctx, "Analysis started", slog.String("file", filename))

	stages := newStageRunner(p.tracer, p.metrics, p.logger)
	err := p.run(ctx, stages, r, filename, result)
	result.Duration = time.Since(result.StartedAt)

	if err != nil {
		stages.skipRemaining("previous stage failed")
		infrastructure.RecordError(ctx, err)
		infrastructure.RecordAnalysisRun(ctx, p.metrics, "failure", result.Duration, result.Stats.RowsRead, 0, 0)
		p.logger.ErrorContext(ctx, "Analysis failed",
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", result.Duration.Milliseconds()))
		return nil, err
	}

	result.Stages = stages.reports()
	span.SetAttributes(
		attribute.Int("analysis.customers", result.Stats.Customers),
		attribute.Int("analysis.rules", result.Stats.Rules),
		attribute.Bool("analysis.segmented", result.Segmented),
	)
	infrastructure.RecordAnalysisRun(ctx, p.metrics, "success", result.Duration,
		result.Stats.RowsRead, result.Stats.Customers, result.Stats.Rules)

	p.logger.InfoContext(ctx, "Analysis completed",
		slog.Int("rows_read", result.Stats.RowsRead),
		slog.Int("rows_kept", result.Stats.RowsKept),
		slog.Int("customers", result.Stats.Customers),
		slog.Int("invoices", result.Stats.Invoices),
		slog.Int("rules", result.Stats.Rules),
		slog.Bool("segmented", result.Segmented),
		slog.Int64("duration_ms", result.Duration.Milliseconds()))

	return result, nil
}

func (p *Processor) run(ctx context.Context, stages *stageRunner, r io.Reader, filename string, result *domain.AnalysisResult) error {
	var table *Table
	err := stages.run(ctx, StageIngest, func(ctx context.Context) (string, error) {
		br := bufio.NewReader(r)
		head, _ := br.Peek(8)
		format := DetectFormat(filename, head)

		t, err := ReadTable(br, format)
		if err != nil {
			return "", err
		}
		if err := ValidateColumns(t); err != nil {
			return "", err
		}
		table = t
		return fmt.Sprintf("%d rows read from %s", t.Len(), format), nil
	})
	if err != nil {
		return err
	}

	result.Columns = table.Header
	result.RawPreview = table.Preview(p.previewRows)
	result.Stats.RowsRead = table.Len()

	var txs []domain.Transaction
	err = stages.run(ctx, StageClean, func(ctx context.Context) (string, error) {
		cleaned, stats, err := Clean(table)
		if err != nil {
			return "", err
		}
		txs = cleaned
		result.Stats.RowsMissingCustomer = stats.MissingCustomer
		result.Stats.RowsNonPositive = stats.NonPositive
		result.Stats.RowsKept = stats.Kept
		return fmt.Sprintf("%d of %d rows kept", stats.Kept, stats.RowsRead), nil
	})
	if err != nil {
		return err
	}
	result.CleanedPreview = txs[:min(p.previewRows, len(txs))]

	// The segmentation and basket branches only read txs.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.segmentBranch(gctx, stages, txs, result)
	})
	g.Go(func() error {
		return p.basketBranch(gctx, stages, txs, result)
	})

	return g.Wait()
}

func (p *Processor) segmentBranch(ctx context.Context, stages *stageRunner, txs []domain.Transaction, result *domain.AnalysisResult) error {
	var customers []domain.CustomerSegment
	err := stages.run(ctx, StageRFM, func(context.Context) (string, error) {
		customers = AggregateRFM(txs)
		return fmt.Sprintf("%d customers", len(customers)), nil
	})
	if err != nil {
		return err
	}
	result.Customers = customers
	result.Stats.Customers = len(customers)

	err = stages.run(ctx, StageSegment, func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		seg, err := p.segmenter.Segment(customers)
		if err != nil {
			return "", err
		}
		result.Customers = seg.Customers
		result.ClusterSummary = seg.Summary
		result.Scatter = seg.Scatter
		result.Segmented = true
		return fmt.Sprintf("%d clusters", len(seg.Summary)), nil
	})
	if errors.Is(err, ErrInsufficientDataForClustering) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Segmentation skipped: %d unique customers found, at least %d are needed to form %d clusters.",
			len(customers), p.segmenter.MinCustomers, config.ClusterCount))
		if p.metrics != nil {
			p.metrics.AnalysisSegmentSkipped.Add(ctx, 1)
		}
		return nil
	}
	return err
}

func (p *Processor) basketBranch(ctx context.Context, stages *stageRunner, txs []domain.Transaction, result *domain.AnalysisResult) error {
	var basket *domain.BasketMatrix
	err := stages.run(ctx, StageBasket, func(context.Context) (string, error) {
		basket = EncodeBaskets(txs)
		return fmt.Sprintf("%d invoices x %d items", basket.NumInvoices(), basket.NumItems()), nil
	})
	if err != nil {
		return err
	}
	result.Stats.Invoices = basket.NumInvoices()
	result.Stats.Items = basket.NumItems()

	return stages.run(ctx, StageRules, func(ctx context.Context) (string, error) {
		rs, err := p.miner.MineRules(ctx, basket)
		if err != nil {
			return "", err
		}
		result.Rules = rs.Top(p.topRules)
		result.Stats.FrequentItemsets = len(rs.Itemsets)
		result.Stats.Rules = len(rs.Rules)
		return fmt.Sprintf("%d frequent itemsets, %d rules", len(rs.Itemsets), len(rs.Rules)), nil
	})
}
