package domain

import (
	"time"
)

// Required input columns. Names are matched exactly against the header row.
const (
	ColumnInvoiceNo   = "InvoiceNo"
	ColumnInvoiceDate = "InvoiceDate"
	ColumnCustomerID  = "CustomerID"
	ColumnQuantity    = "Quantity"
	ColumnUnitPrice   = "UnitPrice"
	ColumnDescription = "Description"
)

// RequiredColumns lists every column the pipeline needs, in display order.
var RequiredColumns = []string{
	ColumnInvoiceNo,
	ColumnInvoiceDate,
	ColumnCustomerID,
	ColumnQuantity,
	ColumnUnitPrice,
	ColumnDescription,
}

// Transaction is one cleaned invoice line with its derived total.
type Transaction struct {
	InvoiceNo   string    `json:"invoice_no" validate:"required"`
	InvoiceDate time.Time `json:"invoice_date"`
	CustomerID  string    `json:"customer_id" validate:"required"`
	Description string    `json:"description"`
	Quantity    int64     `json:"quantity" validate:"min=1"`
	UnitPrice   float64   `json:"unit_price" validate:"gt=0"`
	TotalAmount float64   `json:"total_amount"`
}

// PreviewRow is a header-keyed view of one raw input row.
type PreviewRow map[string]string
