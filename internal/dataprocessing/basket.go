package dataprocessing

import (
	"sort"

	"rfmbasket/pkg/contracts/domain"
)

// EncodeBaskets pivots transactions into the invoice x item presence matrix.
// Quantities are summed per (invoice, item) before binarizing, so a cell is 1
// exactly when that sum is positive. Lines without a description are ignored.
func EncodeBaskets(txs []domain.Transaction) *domain.BasketMatrix {
	type key struct{ invoice, item string }

	sums := make(map[key]int64)
	invoiceSet := make(map[string]struct{})
	itemSet := make(map[string]struct{})

	for _, tx := range txs {
		if tx.Description == "" {
			continue
		}
		sums[key{tx.InvoiceNo, tx.Description}] += tx.Quantity
		invoiceSet[tx.InvoiceNo] = struct{}{}
		itemSet[tx.Description] = struct{}{}
	}

	invoices := sortedKeys(invoiceSet)
	items := sortedKeys(itemSet)

	invoiceIdx := make(map[string]int, len(invoices))
	for i, inv := range invoices {
		invoiceIdx[inv] = i
	}
	itemIdx := make(map[string]int, len(items))
	for i, item := range items {
		itemIdx[item] = i
	}

	rows := make([][]int, len(invoices))
	for k, qty := range sums {
		if qty > 0 {
			r := invoiceIdx[k.invoice]
			rows[r] = append(rows[r], itemIdx[k.item])
		}
	}
	for _, cols := range rows {
		sort.Ints(cols)
	}

	return &domain.BasketMatrix{Invoices: invoices, Items: items, Rows: rows}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
