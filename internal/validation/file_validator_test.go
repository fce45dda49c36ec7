package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "rfmbasket/internal/errors"
	"rfmbasket/internal/shared/testutil"
)

func TestFileValidator_ValidateUpload(t *testing.T) {
	tests := []struct {
		name          string
		fileName      string
		size          int64
		wantErr       error
		errorContains string
	}{
		{name: "xlsx", fileName: "Online Retail.xlsx", size: 1024},
		{name: "csv", fileName: "sales.csv", size: 10},
		{name: "upper case extension", fileName: "SALES.XLSX", size: 10},
		{name: "unknown size", fileName: "sales.csv", size: -1},
		{name: "at the limit", fileName: "sales.csv", size: 4096},
		{
			name:          "legacy excel",
			fileName:      "sales.xls",
			size:          10,
			wantErr:       ErrInvalidUpload,
			errorContains: `unsupported file type ".xls"`,
		},
		{
			name:          "no extension",
			fileName:      "sales",
			size:          10,
			wantErr:       ErrInvalidUpload,
			errorContains: "unsupported file type",
		},
		{
			name:          "office lock file",
			fileName:      "~$sales.xlsx",
			size:          10,
			wantErr:       ErrInvalidUpload,
			errorContains: "lock file",
		},
		{
			name:          "path traversal",
			fileName:      "../etc/sales.csv",
			size:          10,
			wantErr:       ErrInvalidUpload,
			errorContains: "must not contain a path",
		},
		{
			name:          "empty name",
			fileName:      "",
			size:          10,
			wantErr:       ErrInvalidUpload,
			errorContains: "file name is required",
		},
		{
			name:          "long name",
			fileName:      strings.Repeat("a", 300) + ".csv",
			size:          10,
			wantErr:       ErrInvalidUpload,
			errorContains: "at most 255",
		},
		{
			name:          "empty file",
			fileName:      "sales.csv",
			size:          0,
			wantErr:       ErrInvalidUpload,
			errorContains: "file is empty",
		},
		{
			name:     "too large",
			fileName: "sales.csv",
			size:     4097,
			wantErr:  ErrFileTooLarge,
		},
	}

	logger, _ := testutil.NewTestLogger(t)
	v := NewFileValidator(logger, 4096)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateUpload(tt.fileName, tt.size)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.errorContains != "" {
				assert.Contains(t, err.Error(), tt.errorContains)
			}
		})
	}
}

func TestFileValidator_NoSizeLimit(t *testing.T) {
	v := NewFileValidator(nil, 0)
	assert.NoError(t, v.ValidateUpload("big.csv", 1<<40))
	assert.Equal(t, int64(0), v.MaxBytes())
}

func TestFileValidator_ValidateInputFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(good, []byte("InvoiceNo\n1\n"), 0644))

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0644))

	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0644))

	v := NewFileValidator(nil, 1<<20)

	assert.NoError(t, v.ValidateInputFile(good))
	assert.ErrorIs(t, v.ValidateInputFile(empty), ErrInvalidUpload)
	assert.ErrorIs(t, v.ValidateInputFile(text), ErrInvalidUpload)
	var notFound *apperrors.AppError
	require.ErrorAs(t, v.ValidateInputFile(filepath.Join(dir, "missing.csv")), &notFound)
	assert.Equal(t, apperrors.ErrTypeNotFound, notFound.Type)
	assert.ErrorContains(t, v.ValidateInputFile(dir), "is a directory")
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	v := NewFileValidator(logger, 0)

	dir := filepath.Join(t.TempDir(), "out", "nested")
	require.NoError(t, v.ValidateOutputDirectory(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = os.Stat(filepath.Join(dir, ".write_test"))
	assert.True(t, os.IsNotExist(err))

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	assert.Error(t, v.ValidateOutputDirectory(filepath.Join(blocker, "sub")))
	testutil.AssertLogContains(t, handler, slog.LevelError, "Failed to create output directory")
}
