package dataprocessing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"

	"rfmbasket/pkg/contracts/domain"
)

// CleanStats counts the rows removed by each cleaning rule.
type CleanStats struct {
	RowsRead        int
	MissingCustomer int
	NonPositive     int
	Kept            int
}

// Text layouts tried for InvoiceDate cells that are not Excel serials.
// Slash dates are month first.
var invoiceDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"1/2/06 15:04",
	"1/2/06",
	"02-Jan-2006 15:04",
	"02-Jan-2006",
}

// Clean turns raw rows into derived transactions. Rules run in order:
// rows without a customer are dropped, then rows whose quantity or unit price
// is not positive, then InvoiceDate is parsed and TotalAmount derived.
// A bad date or non-numeric quantity/price fails the whole run.
func Clean(t *Table) ([]domain.Transaction, CleanStats, error) {
	stats := CleanStats{RowsRead: t.Len()}
	txs := make([]domain.Transaction, 0, t.Len())

	for i := 0; i < t.Len(); i++ {
		customerID := normalizeID(t.Value(i, domain.ColumnCustomerID))
		if customerID == "" {
			stats.MissingCustomer++
			continue
		}

		row := t.SheetRow(i)

		quantity, qtyOK, err := parseNumber(t.Value(i, domain.ColumnQuantity))
		if err != nil {
			return nil, stats, &ParseError{Row: row, Column: domain.ColumnQuantity, Value: t.Value(i, domain.ColumnQuantity), Err: err}
		}
		price, priceOK, err := parseNumber(t.Value(i, domain.ColumnUnitPrice))
		if err != nil {
			return nil, stats, &ParseError{Row: row, Column: domain.ColumnUnitPrice, Value: t.Value(i, domain.ColumnUnitPrice), Err: err}
		}
		if !qtyOK || !priceOK || quantity <= 0 || price <= 0 {
			stats.NonPositive++
			continue
		}
		if quantity != math.Trunc(quantity) {
			return nil, stats, &ParseError{
				Row:    row,
				Column: domain.ColumnQuantity,
				Value:  t.Value(i, domain.ColumnQuantity),
				Err:    fmt.Errorf("quantity must be a whole number"),
			}
		}
		if quantity >= math.MaxInt64 {
			return nil, stats, &ParseError{
				Row:    row,
				Column: domain.ColumnQuantity,
				Value:  t.Value(i, domain.ColumnQuantity),
				Err:    fmt.Errorf("quantity out of range"),
			}
		}

		rawDate := t.Value(i, domain.ColumnInvoiceDate)
		invoiceDate, err := ParseInvoiceDate(rawDate)
		if err != nil {
			return nil, stats, &DateParseError{Row: row, Value: rawDate, Err: err}
		}

		qty := int64(quantity)
		txs = append(txs, domain.Transaction{
			InvoiceNo:   normalizeID(t.Value(i, domain.ColumnInvoiceNo)),
			InvoiceDate: invoiceDate,
			CustomerID:  customerID,
			Description: strings.TrimSpace(t.Value(i, domain.ColumnDescription)),
			Quantity:    qty,
			UnitPrice:   price,
			TotalAmount: float64(qty) * price,
		})
	}

	stats.Kept = len(txs)
	return txs, stats, nil
}

// parseNumber reports ok=false for blank cells, which count as missing.
func parseNumber(raw string) (value float64, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	value, err = cast.ToFloat64E(raw)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(value) {
		return 0, false, nil
	}
	return value, true, nil
}

// ParseInvoiceDate accepts Excel serial numbers and common text layouts.
func ParseInvoiceDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		return excelize.ExcelDateToTime(serial, false)
	}

	for _, layout := range invoiceDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}

	return cast.ToTimeE(raw)
}

// normalizeID renders float-formatted integral IDs ("17850.0") as integers
// so numeric and text cells group together.
func normalizeID(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, ".") {
		return raw
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return raw
	}
	return strconv.FormatInt(int64(f), 10)
}
