package dataprocessing

import (
	"sort"
	"strconv"
	"time"

	"rfmbasket/pkg/contracts/domain"
)

// SnapshotDate is one day after the latest invoice. Recency is measured
// against it, so every customer's recency is at least zero.
func SnapshotDate(txs []domain.Transaction) time.Time {
	var latest time.Time
	for i, tx := range txs {
		if i == 0 || tx.InvoiceDate.After(latest) {
			latest = tx.InvoiceDate
		}
	}
	return latest.Add(24 * time.Hour)
}

type rfmAccumulator struct {
	last     time.Time
	lines    int
	monetary float64
}

// AggregateRFM computes one record per customer. Frequency counts invoice
// lines, not distinct invoices. Output is ordered by customer ID.
func AggregateRFM(txs []domain.Transaction) []domain.CustomerSegment {
	if len(txs) == 0 {
		return []domain.CustomerSegment{}
	}

	snapshot := SnapshotDate(txs)
	byCustomer := make(map[string]*rfmAccumulator)

	for _, tx := range txs {
		acc, ok := byCustomer[tx.CustomerID]
		if !ok {
			acc = &rfmAccumulator{last: tx.InvoiceDate}
			byCustomer[tx.CustomerID] = acc
		}
		if tx.InvoiceDate.After(acc.last) {
			acc.last = tx.InvoiceDate
		}
		acc.lines++
		acc.monetary += tx.TotalAmount
	}

	ids := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		ids = append(ids, id)
	}
	sortCustomerIDs(ids)

	segments := make([]domain.CustomerSegment, 0, len(ids))
	for _, id := range ids {
		acc := byCustomer[id]
		segments = append(segments, domain.CustomerSegment{
			CustomerID: id,
			Recency:    int(snapshot.Sub(acc.last) / (24 * time.Hour)),
			Frequency:  acc.lines,
			Monetary:   acc.monetary,
		})
	}
	return segments
}

// sortCustomerIDs orders numerically when every ID is a number, otherwise
// lexicographically.
func sortCustomerIDs(ids []string) {
	numeric := make(map[string]float64, len(ids))
	for _, id := range ids {
		f, err := strconv.ParseFloat(id, 64)
		if err != nil {
			sort.Strings(ids)
			return
		}
		numeric[id] = f
	}
	sort.Slice(ids, func(i, j int) bool {
		if numeric[ids[i]] != numeric[ids[j]] {
			return numeric[ids[i]] < numeric[ids[j]]
		}
		return ids[i] < ids[j]
	})
}
