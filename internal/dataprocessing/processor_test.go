package dataprocessing

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"rfmbasket/internal/shared/testutil"
	"rfmbasket/pkg/contracts/domain"
)

func stageStatuses(result *domain.AnalysisResult) map[string]domain.StageStatus {
	out := map[string]domain.StageStatus{}
	for _, s := range result.Stages {
		out[s.ID] = s.Status
	}
	return out
}

func TestProcessorRunRetailSample(t *testing.T) {
	fixture := testutil.RetailSample()

	formats := map[string][]byte{
		"sales.xlsx": fixture.XLSX(t),
		"sales.csv":  fixture.CSV(t),
	}

	for name, data := range formats {
		t.Run(name, func(t *testing.T) {
			logger, handler := testutil.NewTestLogger(t)
			p := NewProcessor(WithLogger(logger))

			result, err := p.Run(context.Background(), bytes.NewReader(data), name)
			require.NoError(t, err)
			require.NotNil(t, result)

			assert.NotEmpty(t, result.RunID)
			assert.Equal(t, name, result.FileName)
			assert.Equal(t, fixture.Columns, result.Columns)
			assert.Len(t, result.RawPreview, 5)
			assert.Len(t, result.CleanedPreview, 5)

			assert.Equal(t, 23, result.Stats.RowsRead)
			assert.Equal(t, 21, result.Stats.RowsKept)
			assert.Equal(t, 1, result.Stats.RowsMissingCustomer)
			assert.Equal(t, 1, result.Stats.RowsNonPositive)
			assert.Equal(t, 6, result.Stats.Customers)
			assert.Equal(t, 10, result.Stats.Invoices)
			assert.Equal(t, 4, result.Stats.Items)

			assert.True(t, result.Segmented)
			assert.Empty(t, result.Warnings)
			require.Len(t, result.Customers, 6)
			assert.Equal(t, "12346", result.Customers[0].CustomerID)
			for _, c := range result.Customers {
				require.NotNil(t, c.Cluster)
				require.NotNil(t, c.PCA1)
			}
			assert.Len(t, result.Scatter, 6)
			assert.NotEmpty(t, result.ClusterSummary)

			require.NotEmpty(t, result.Rules)
			assert.LessOrEqual(t, len(result.Rules), 10)
			for _, r := range result.Rules {
				assert.GreaterOrEqual(t, r.Lift, 1.0)
			}

			statuses := stageStatuses(result)
			for _, id := range stageOrder {
				assert.Equal(t, domain.StageStatusCompleted, statuses[id], id)
			}

			assert.True(t, handler.ContainsMessage("Analysis completed"))
			testutil.AssertNoErrors(t, handler)
		})
	}
}

func TestProcessorRunFewCustomers(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	p := NewProcessor(WithLogger(logger))

	data := testutil.FewCustomers().XLSX(t)
	result, err := p.Run(context.Background(), bytes.NewReader(data), "few.xlsx")
	require.NoError(t, err)

	assert.False(t, result.Segmented)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "3 unique customers")
	assert.Empty(t, result.ClusterSummary)

	require.Len(t, result.Customers, 3)
	for _, c := range result.Customers {
		assert.Nil(t, c.Cluster)
		assert.Nil(t, c.PCA1)
		assert.Nil(t, c.PCA2)
	}

	// Basket analysis still runs.
	require.Len(t, result.Rules, 2)
	assert.Equal(t, []string{"BREAD"}, result.Rules[0].Antecedents)
	assert.Equal(t, []string{"BUTTER"}, result.Rules[0].Consequents)

	statuses := stageStatuses(result)
	assert.Equal(t, domain.StageStatusSkipped, statuses[StageSegment])
	assert.Equal(t, domain.StageStatusCompleted, statuses[StageRules])

	assert.True(t, handler.ContainsMessage("Stage skipped"))
}

func TestProcessorRunInputErrors(t *testing.T) {
	tests := []struct {
		name    string
		fixture *testutil.RetailFixture
		check   func(t *testing.T, err error)
	}{
		{
			name:    "missing CustomerID column",
			fixture: testutil.RetailSample().WithoutColumn(domain.ColumnCustomerID),
			check: func(t *testing.T, err error) {
				var mce *MissingColumnsError
				require.True(t, errors.As(err, &mce))
				assert.Equal(t, []string{domain.ColumnCustomerID}, mce.Missing)
			},
		},
		{
			name:    "unparsable date",
			fixture: testutil.RetailSample().WithRawDate(3, "sometime in december"),
			check: func(t *testing.T, err error) {
				var dpe *DateParseError
				require.True(t, errors.As(err, &dpe))
				assert.Equal(t, 5, dpe.Row)
			},
		},
	}

	for _, tt := range tests {
		for _, format := range []string{"xlsx", "csv"} {
			t.Run(tt.name+"/"+format, func(t *testing.T) {
				data := tt.fixture.CSV(t)
				if format == "xlsx" {
					data = tt.fixture.XLSX(t)
				}

				logger, handler := testutil.NewTestLogger(t)
				result, err := NewProcessor(WithLogger(logger)).
					Run(context.Background(), bytes.NewReader(data), "input."+format)

				require.Error(t, err)
				assert.Nil(t, result)
				assert.True(t, IsInputError(err))
				tt.check(t, err)
				assert.True(t, handler.ContainsMessage("Analysis failed"))
			})
		}
	}
}

func TestProcessorRunRejectsUnknownFormat(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	_, err := NewProcessor(WithLogger(logger)).
		Run(context.Background(), bytes.NewReader([]byte{0x00, 0x01, 0x02}), "blob.bin")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestProcessorRunOptions(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	p := NewProcessor(
		WithLogger(logger),
		WithPreviewRows(2),
		WithTopRules(1),
		WithSegmenter(&Segmenter{Clusterer: fixedClusterer{labels: []int{0, 0, 1, 1, 2, 3}}, Projector: zeroProjector{}, MinCustomers: 4}),
	)

	result, err := p.Run(context.Background(), bytes.NewReader(testutil.RetailSample().CSV(t)), "sales.csv")
	require.NoError(t, err)

	assert.Len(t, result.RawPreview, 2)
	assert.Len(t, result.CleanedPreview, 2)
	assert.Len(t, result.Rules, 1)
	assert.Greater(t, result.Stats.Rules, 1)
	require.Len(t, result.ClusterSummary, 4)
	assert.Equal(t, 2, result.ClusterSummary[0].Size)
}

type failingMiner struct{ err error }

func (f failingMiner) MineRules(context.Context, *domain.BasketMatrix) (*RuleSet, error) {
	return nil, f.err
}

func TestProcessorRunMinerFailure(t *testing.T) {
	boom := errors.New("miner exploded")
	logger, _ := testutil.NewTestLogger(t)
	p := NewProcessor(WithLogger(logger), WithRuleMiner(failingMiner{err: boom}))

	result, err := p.Run(context.Background(), bytes.NewReader(testutil.RetailSample().CSV(t)), "sales.csv")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "Rule Mining")
	assert.False(t, IsInputError(err))
}

func TestProcessorRunTracesStages(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	logger, _ := testutil.NewTestLogger(t)
	p := NewProcessor(WithLogger(logger), WithTracer(provider.Tracer(TracerName)))

	_, err := p.Run(context.Background(), bytes.NewReader(testutil.FewCustomers().CSV(t)), "few.csv")
	require.NoError(t, err)

	names := map[string]bool{}
	var root sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		names[s.Name()] = true
		if s.Name() == "analysis.run" {
			root = s
		}
	}
	require.NotNil(t, root)
	for _, id := range stageOrder {
		assert.True(t, names["analysis.stage."+id], id)
	}
	for _, s := range recorder.Ended() {
		assert.Equal(t, root.SpanContext().TraceID(), s.SpanContext().TraceID())
	}
}

func TestProcessorConcurrentRuns(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	p := NewProcessor(WithLogger(logger))
	data := testutil.RetailSample().XLSX(t)

	const runs = 4
	results := make([]*domain.AnalysisResult, runs)
	errs := make([]error, runs)

	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Run(context.Background(), bytes.NewReader(data), "sales.xlsx")
		}(i)
	}
	wg.Wait()

	ids := map[string]bool{}
	for i := 0; i < runs; i++ {
		require.NoError(t, errs[i])
		ids[results[i].RunID] = true
		assert.Equal(t, results[0].ClusterSummary, results[i].ClusterSummary)
		assert.Equal(t, results[0].Rules, results[i].Rules)
	}
	assert.Len(t, ids, runs)
}
