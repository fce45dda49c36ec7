package domain

// BasketMatrix records which items appear on which invoice. Rows are invoices,
// columns are item descriptions. Rows are stored sparsely as sorted column
// indices; every cell reads as exactly 0 or 1.
type BasketMatrix struct {
	Invoices []string `json:"invoices"`
	Items    []string `json:"items"`
	Rows     [][]int  `json:"rows"`
}

// NumInvoices returns the number of rows.
func (b *BasketMatrix) NumInvoices() int {
	if b == nil {
		return 0
	}
	return len(b.Invoices)
}

// NumItems returns the number of columns.
func (b *BasketMatrix) NumItems() int {
	if b == nil {
		return 0
	}
	return len(b.Items)
}

// Cell returns 1 when item col is present on invoice row, 0 otherwise.
func (b *BasketMatrix) Cell(row, col int) int {
	if row < 0 || row >= len(b.Rows) {
		return 0
	}
	cols := b.Rows[row]
	lo, hi := 0, len(cols)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case cols[mid] == col:
			return 1
		case cols[mid] < col:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

// Dense materializes the full invoices x items 0/1 matrix.
func (b *BasketMatrix) Dense() [][]uint8 {
	out := make([][]uint8, len(b.Rows))
	for i, cols := range b.Rows {
		out[i] = make([]uint8, len(b.Items))
		for _, c := range cols {
			out[i][c] = 1
		}
	}
	return out
}
