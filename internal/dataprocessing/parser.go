package dataprocessing

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"rfmbasket/pkg/contracts/domain"
)

// InputFormat identifies the encoding of an uploaded transaction table.
type InputFormat int

const (
	FormatUnknown InputFormat = iota
	FormatXLSX
	FormatCSV
)

func (f InputFormat) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

var zipMagic = []byte("PK\x03\x04")

// DetectFormat picks the reader for an upload from its file name, falling back
// to sniffing the first bytes when the extension is missing or unknown.
func DetectFormat(filename string, head []byte) InputFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return FormatXLSX
	case ".csv":
		return FormatCSV
	}

	if bytes.HasPrefix(head, zipMagic) {
		return FormatXLSX
	}
	if len(head) > 0 && bytes.IndexByte(head, 0) < 0 {
		return FormatCSV
	}
	return FormatUnknown
}

// Table is the untyped grid read from the upload. Cells are kept as the
// spreadsheet parser returned them.
type Table struct {
	Header []string
	Rows   [][]string
	// RowNumbers holds the 1-based sheet row of each data row.
	RowNumbers []int

	index map[string]int
}

// NewTable builds a table from a header and its data rows.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: header, Rows: rows}
	t.buildIndex()
	return t
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Value returns the cell of row i in the named column, or "" when the
// column is absent or the row is short.
func (t *Table) Value(i int, column string) string {
	col, ok := t.index[column]
	if !ok || i < 0 || i >= len(t.Rows) {
		return ""
	}
	row := t.Rows[i]
	if col >= len(row) {
		return ""
	}
	return row[col]
}

// SheetRow maps a data row index to its 1-based sheet row number.
func (t *Table) SheetRow(i int) int {
	if i >= 0 && i < len(t.RowNumbers) {
		return t.RowNumbers[i]
	}
	return i + 2
}

// Preview returns the first n rows keyed by header name.
func (t *Table) Preview(n int) []domain.PreviewRow {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	preview := make([]domain.PreviewRow, 0, n)
	for i := 0; i < n; i++ {
		row := make(domain.PreviewRow, len(t.Header))
		for _, name := range t.Header {
			if name == "" {
				continue
			}
			row[name] = t.Value(i, name)
		}
		preview = append(preview, row)
	}
	return preview
}

// ReadTable parses the upload into a Table. The first non-blank row is the
// header; fully blank data rows are skipped.
func ReadTable(r io.Reader, format InputFormat) (*Table, error) {
	var (
		rows [][]string
		err  error
	)

	switch format {
	case FormatXLSX:
		rows, err = readWorkbook(r)
	case FormatCSV:
		rows, err = readCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	return tableFromRows(rows)
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}

	// Raw values keep date cells as serial numbers instead of display text.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

func tableFromRows(rows [][]string) (*Table, error) {
	headerIdx := -1
	for i, row := range rows {
		if !isBlankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrEmptyInput
	}

	header := make([]string, len(rows[headerIdx]))
	for i, cell := range rows[headerIdx] {
		header[i] = strings.TrimSpace(cell)
	}

	t := &Table{Header: header}
	for i := headerIdx + 1; i < len(rows); i++ {
		if isBlankRow(rows[i]) {
			continue
		}
		t.Rows = append(t.Rows, rows[i])
		t.RowNumbers = append(t.RowNumbers, i+1)
	}
	t.buildIndex()
	return t, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ValidateColumns checks the header for every required column. Extra
// columns are ignored.
func ValidateColumns(t *Table) error {
	var missing []string
	for _, name := range domain.RequiredColumns {
		if _, ok := t.ColumnIndex(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingColumnsError{Missing: missing}
	}
	return nil
}
