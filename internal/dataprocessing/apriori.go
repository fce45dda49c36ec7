package dataprocessing

import (
	"context"
	"math/bits"
	"strconv"
	"strings"

	"rfmbasket/pkg/contracts/domain"
)

// bitset marks the invoices that contain an itemset.
type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(i int) {
	b[i/64] |= 1 << (uint(i) % 64)
}

func (b bitset) and(o bitset) bitset {
	out := make(bitset, len(b))
	for i := range b {
		out[i] = b[i] & o[i]
	}
	return out
}

func (b bitset) count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

// frequentSet is an itemset of column indices in ascending order.
type frequentSet struct {
	items []int
	tids  bitset
	count int
}

func itemsetKey(items []int) string {
	var sb strings.Builder
	for i, it := range items {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(it))
	}
	return sb.String()
}

// mineFrequent runs level-wise apriori over the basket. Candidates of size k
// are joined from frequent (k-1)-sets sharing a prefix and dropped when any
// (k-1)-subset is infrequent. maxLen <= 0 means no size limit.
func mineFrequent(ctx context.Context, basket *domain.BasketMatrix, minSupport float64, maxLen int) ([]frequentSet, error) {
	n := basket.NumInvoices()
	if n == 0 || basket.NumItems() == 0 {
		return nil, nil
	}
	frequentEnough := func(count int) bool {
		return float64(count)/float64(n) >= minSupport
	}

	columns := make([]bitset, basket.NumItems())
	for c := range columns {
		columns[c] = newBitset(n)
	}
	for r, cols := range basket.Rows {
		for _, c := range cols {
			columns[c].set(r)
		}
	}

	var level []frequentSet
	for c, tids := range columns {
		if count := tids.count(); frequentEnough(count) {
			level = append(level, frequentSet{items: []int{c}, tids: tids, count: count})
		}
	}

	var all []frequentSet
	for size := 1; len(level) > 0; size++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		all = append(all, level...)
		if maxLen > 0 && size >= maxLen {
			break
		}

		known := make(map[string]struct{}, len(level))
		for _, fs := range level {
			known[itemsetKey(fs.items)] = struct{}{}
		}

		var next []frequentSet
		for i := 0; i < len(level); i++ {
			for j := i + 1; j < len(level); j++ {
				a, b := level[i].items, level[j].items
				if !samePrefix(a, b) {
					break
				}
				candidate := make([]int, len(a)+1)
				copy(candidate, a)
				candidate[len(a)] = b[len(b)-1]

				if !allSubsetsKnown(candidate, known) {
					continue
				}
				tids := level[i].tids.and(level[j].tids)
				if count := tids.count(); frequentEnough(count) {
					next = append(next, frequentSet{items: candidate, tids: tids, count: count})
				}
			}
		}
		level = next
	}

	return all, nil
}

// samePrefix reports whether two equal-length sorted sets differ only in
// their last element. Levels are generated in lexicographic order, so the
// first mismatch ends the join run for a.
func samePrefix(a, b []int) bool {
	for k := 0; k < len(a)-1; k++ {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}

func allSubsetsKnown(candidate []int, known map[string]struct{}) bool {
	if len(candidate) <= 2 {
		return true
	}
	sub := make([]int, 0, len(candidate)-1)
	for skip := range candidate {
		sub = sub[:0]
		for k, it := range candidate {
			if k != skip {
				sub = append(sub, it)
			}
		}
		if _, ok := known[itemsetKey(sub)]; !ok {
			return false
		}
	}
	return true
}
