package testutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"rfmbasket/pkg/contracts/domain"
)

// CSVDateLayout is the InvoiceDate format written to csv fixtures.
const CSVDateLayout = "1/2/2006 15:04"

// FixtureBaseDate is the first invoice date used by the canned scenarios.
var FixtureBaseDate = time.Date(2010, time.December, 1, 8, 26, 0, 0, time.UTC)

// Line is one invoice line of a fixture workbook. An empty CustomerID leaves
// the cell blank.
type Line struct {
	InvoiceNo   string
	InvoiceDate time.Time
	CustomerID  string
	Description string
	Quantity    int
	UnitPrice   float64
}

// RetailFixture builds transaction spreadsheets for tests.
type RetailFixture struct {
	Columns []string
	Lines   []Line
	// RawDates overrides the InvoiceDate cell of a line by index.
	RawDates map[int]string
}

// NewRetailFixture returns an empty fixture with the required columns and
// an extra Country column.
func NewRetailFixture() *RetailFixture {
	cols := append([]string{}, domain.RequiredColumns...)
	cols = append(cols, "Country")
	return &RetailFixture{Columns: cols, RawDates: map[int]string{}}
}

// Add appends lines.
func (f *RetailFixture) Add(lines ...Line) *RetailFixture {
	f.Lines = append(f.Lines, lines...)
	return f
}

// WithoutColumn drops a column from the header and every row.
func (f *RetailFixture) WithoutColumn(name string) *RetailFixture {
	cols := f.Columns[:0:0]
	for _, c := range f.Columns {
		if c != name {
			cols = append(cols, c)
		}
	}
	f.Columns = cols
	return f
}

// WithRawDate replaces the InvoiceDate text of line i.
func (f *RetailFixture) WithRawDate(i int, raw string) *RetailFixture {
	f.RawDates[i] = raw
	return f
}

func (f *RetailFixture) cell(i int, column string, forXLSX bool) interface{} {
	l := f.Lines[i]
	switch column {
	case domain.ColumnInvoiceNo:
		return l.InvoiceNo
	case domain.ColumnInvoiceDate:
		if raw, ok := f.RawDates[i]; ok {
			return raw
		}
		if forXLSX {
			return l.InvoiceDate
		}
		return l.InvoiceDate.Format(CSVDateLayout)
	case domain.ColumnCustomerID:
		if l.CustomerID == "" {
			return nil
		}
		// Spreadsheets exported from pandas carry IDs as floats.
		if id, err := strconv.ParseFloat(l.CustomerID, 64); err == nil && forXLSX {
			return id
		}
		return l.CustomerID
	case domain.ColumnDescription:
		return l.Description
	case domain.ColumnQuantity:
		return l.Quantity
	case domain.ColumnUnitPrice:
		return l.UnitPrice
	case "Country":
		return "United Kingdom"
	default:
		return nil
	}
}

// XLSX renders the fixture as a workbook with one sheet.
func (f *RetailFixture) XLSX(t testing.TB) []byte {
	t.Helper()

	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)

	header := make([]interface{}, len(f.Columns))
	for i, c := range f.Columns {
		header[i] = c
	}
	if err := wb.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}

	for i := range f.Lines {
		row := make([]interface{}, len(f.Columns))
		for j, c := range f.Columns {
			row[j] = f.cell(i, c, true)
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("bad cell coordinates: %v", err)
		}
		if err := wb.SetSheetRow(sheet, axis, &row); err != nil {
			t.Fatalf("failed to write row %d: %v", i+2, err)
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to serialize workbook: %v", err)
	}
	return buf.Bytes()
}

// CSV renders the fixture as comma-separated text.
func (f *RetailFixture) CSV(t testing.TB) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(f.Columns); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	for i := range f.Lines {
		if err := w.Write(f.Row(i)); err != nil {
			t.Fatalf("failed to write row %d: %v", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("failed to flush csv: %v", err)
	}
	return buf.Bytes()
}

// Row returns line i as text cells in column order.
func (f *RetailFixture) Row(i int) []string {
	row := make([]string, len(f.Columns))
	for j, c := range f.Columns {
		switch v := f.cell(i, c, false).(type) {
		case nil:
			row[j] = ""
		case float64:
			row[j] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			row[j] = fmt.Sprint(v)
		}
	}
	return row
}

// Rows returns every line as text cells.
func (f *RetailFixture) Rows() [][]string {
	rows := make([][]string, len(f.Lines))
	for i := range f.Lines {
		rows[i] = f.Row(i)
	}
	return rows
}

// RetailSample is a small shop: six customers, ten invoices on consecutive
// days, a mug pair bought together on every other invoice, one return and one
// anonymous line.
func RetailSample() *RetailFixture {
	customers := []string{"12346", "12347", "12348", "12349", "12350", "12351"}
	f := NewRetailFixture()

	for i := 0; i < 10; i++ {
		inv := fmt.Sprintf("5360%02d", i)
		date := FixtureBaseDate.Add(time.Duration(i) * 24 * time.Hour)
		cust := customers[i%len(customers)]

		f.Add(Line{InvoiceNo: inv, InvoiceDate: date, CustomerID: cust, Description: "WHITE MUG", Quantity: 2, UnitPrice: 2.5})
		if i%2 == 0 {
			f.Add(Line{InvoiceNo: inv, InvoiceDate: date, CustomerID: cust, Description: "RED MUG", Quantity: 1, UnitPrice: 3})
		}
		if i%3 == 0 {
			f.Add(Line{InvoiceNo: inv, InvoiceDate: date, CustomerID: cust, Description: "TEA SET", Quantity: 1, UnitPrice: 12.75})
		}
		if i%5 == 0 {
			f.Add(Line{InvoiceNo: inv, InvoiceDate: date, CustomerID: cust, Description: "JAM JAR", Quantity: 6, UnitPrice: 0.85})
		}
	}

	f.Add(
		Line{InvoiceNo: "C536099", InvoiceDate: FixtureBaseDate, CustomerID: "12346", Description: "WHITE MUG", Quantity: -2, UnitPrice: 2.5},
		Line{InvoiceNo: "536098", InvoiceDate: FixtureBaseDate, CustomerID: "", Description: "RED MUG", Quantity: 1, UnitPrice: 3},
	)
	return f
}

// FewCustomers has three customers, below the clustering minimum, buying a
// bread and butter pair.
func FewCustomers() *RetailFixture {
	f := NewRetailFixture()
	for i, cust := range []string{"A1", "A2", "A3"} {
		inv := fmt.Sprintf("INV%d", i)
		date := FixtureBaseDate.Add(time.Duration(i) * time.Hour)
		f.Add(
			Line{InvoiceNo: inv, InvoiceDate: date, CustomerID: cust, Description: "BREAD", Quantity: 1, UnitPrice: 1.2},
			Line{InvoiceNo: inv, InvoiceDate: date, CustomerID: cust, Description: "BUTTER", Quantity: 1, UnitPrice: 2.4},
		)
	}
	return f
}
