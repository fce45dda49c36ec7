package exporter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "rfmbasket/internal/errors"
	"rfmbasket/internal/shared/testutil"
	"rfmbasket/pkg/contracts/domain"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVWriter_Write(t *testing.T) {
	tests := []struct {
		name    string
		options WriteOptions
		want    string
	}{
		{
			name:    "headers and records",
			options: WriteOptions{Headers: []string{"a", "b"}, Records: [][]string{{"1", "2"}, {"x,y", "3"}}},
			want:    "a,b\n1,2\n\"x,y\",3\n",
		},
		{
			name:    "records only",
			options: WriteOptions{Records: [][]string{{"1"}}},
			want:    "1\n",
		},
		{
			name:    "bom prefix",
			options: WriteOptions{Headers: []string{"a"}, BOMPrefix: true},
			want:    "\xEF\xBB\xBFa\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewCSVWriter(nil).Write(&buf, tt.options))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestCSVWriter_WriteError(t *testing.T) {
	err := NewCSVWriter(nil).Write(failingWriter{}, WriteOptions{Headers: []string{"a"}, BOMPrefix: true})
	assert.ErrorContains(t, err, "closed pipe")

	err = NewCSVWriter(nil).Write(failingWriter{}, WriteOptions{Headers: []string{"a"}})
	assert.ErrorContains(t, err, "closed pipe")
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	w := NewCSVWriter(logger)

	path := filepath.Join(t.TempDir(), "nested", "out.csv")

	require.NoError(t, w.WriteCSV(path, WriteOptions{Headers: []string{"a"}, Records: [][]string{{"1"}, {"2"}}}))
	require.NoError(t, w.WriteCSV(path, WriteOptions{Headers: []string{"a"}, Records: [][]string{{"3"}}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\n3\n", string(data))
	assert.True(t, handler.ContainsMessage("Writing CSV file"))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.csv", entries[0].Name())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestCSVWriter_WriteCSVReplaceFails(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.csv")
	require.NoError(t, os.Mkdir(target, 0755))

	err := NewCSVWriter(nil).WriteCSV(target, WriteOptions{Headers: []string{"a"}})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeStorage, appErr.Type)
	assert.Equal(t, target, appErr.Context["path"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsDir())
}

func TestCSVWriter_WriteCSVBadDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := NewCSVWriter(nil).WriteCSV(filepath.Join(blocker, "out.csv"), WriteOptions{})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeStorage, appErr.Type)
	assert.Equal(t, blocker, appErr.Context["path"])
}

func segmentedResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		Segmented: true,
		Customers: []domain.CustomerSegment{
			{CustomerID: "12346", Recency: 326, Frequency: 2, Monetary: 77183.6, Cluster: intPtr(1), PCA1: floatPtr(3.5), PCA2: floatPtr(-0.1234567)},
			{CustomerID: "12347", Recency: 2, Frequency: 182, Monetary: 4310, Cluster: intPtr(0), PCA1: floatPtr(0), PCA2: floatPtr(1)},
		},
	}
}

func TestWriteSegments(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(nil).WriteSegments(&buf, segmentedResult()))

	records := readCSV(t, buf.Bytes())
	assert.Equal(t, [][]string{
		{"CustomerID", "Recency", "Frequency", "Monetary", "Cluster", "PCA1", "PCA2"},
		{"12346", "326", "2", "77183.6", "1", "3.5", "-0.1234567"},
		{"12347", "2", "182", "4310", "0", "0", "1"},
	}, records)
}

func TestWriteSegmentsUnsegmented(t *testing.T) {
	result := &domain.AnalysisResult{
		Customers: []domain.CustomerSegment{
			{CustomerID: "A1", Recency: 1, Frequency: 2, Monetary: 3.6},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(nil).WriteSegments(&buf, result))

	assert.Equal(t, "CustomerID,Recency,Frequency,Monetary\nA1,1,2,3.6\n", buf.String())
}

func TestWriteSegmentsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(nil).WriteSegments(&buf, &domain.AnalysisResult{}))
	assert.Equal(t, "CustomerID,Recency,Frequency,Monetary\n", buf.String())
}

func TestExportSegmentsAndRules(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(nil)

	segPath := filepath.Join(dir, "customer_segments.csv")
	require.NoError(t, w.ExportSegments(segPath, segmentedResult()))
	data, err := os.ReadFile(segPath)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, data), 3)

	rules := []domain.AssociationRule{{
		Antecedents: []string{"RED MUG", "TEA SET"},
		Consequents: []string{"JAM JAR"},
		Support:     0.1,
		Confidence:  0.5,
		Lift:        2.5,
		Leverage:    0.06,
	}}
	rulesPath := filepath.Join(dir, "rules.csv")
	require.NoError(t, w.ExportRules(rulesPath, rules))
	data, err = os.ReadFile(rulesPath)
	require.NoError(t, err)

	records := readCSV(t, data)
	require.Len(t, records, 2)
	assert.Equal(t, ruleHeaders, records[0])
	assert.Equal(t, []string{"RED MUG, TEA SET", "JAM JAR", "0.1", "0.5", "2.5", "0.06"}, records[1])
}

func TestSegmentRecordsKeepPrecision(t *testing.T) {
	customers := []domain.CustomerSegment{
		{CustomerID: "1", Recency: 1, Frequency: 1, Monetary: 0.001},
		{CustomerID: "2", Recency: 1, Frequency: 3, Monetary: 0.495, Cluster: intPtr(2), PCA1: floatPtr(1e-9), PCA2: floatPtr(-2.123456789)},
	}

	records := SegmentRecords(customers, true)
	assert.Equal(t, []string{"1", "1", "1", "0.001", "", "", ""}, records[0])
	assert.Equal(t, []string{"2", "1", "3", "0.495", "2", "0.000000001", "-2.123456789"}, records[1])

	for _, rec := range records {
		monetary, err := strconv.ParseFloat(rec[3], 64)
		require.NoError(t, err)
		id, _ := strconv.Atoi(rec[0])
		assert.Equal(t, customers[id-1].Monetary, monetary)
	}
}

func TestSegmentHeaders(t *testing.T) {
	assert.Equal(t, "CustomerID,Recency,Frequency,Monetary", strings.Join(SegmentHeaders(false), ","))
	assert.Equal(t, "CustomerID,Recency,Frequency,Monetary,Cluster,PCA1,PCA2", strings.Join(SegmentHeaders(true), ","))

	// Returned slices are independent.
	h := SegmentHeaders(true)
	h[0] = "changed"
	assert.Equal(t, "CustomerID", SegmentHeaders(true)[0])
}

func TestSegmentRecordsMissingPointers(t *testing.T) {
	records := SegmentRecords([]domain.CustomerSegment{{CustomerID: "x"}}, true)
	assert.Equal(t, []string{"x", "0", "0", "0", "", "", ""}, records[0])
}
