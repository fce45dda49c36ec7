package dataprocessing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfmbasket/pkg/contracts/domain"
)

// basketOf builds a basket from invoice -> items.
func basketOf(invoices [][]string) *domain.BasketMatrix {
	var txs []domain.Transaction
	for i, items := range invoices {
		for _, item := range items {
			txs = append(txs, tx(fmt.Sprintf("%03d", i), "C", item, 0, 1, 1))
		}
	}
	return EncodeBaskets(txs)
}

func itemsetKeys(rs *RuleSet) map[string]float64 {
	out := map[string]float64{}
	for _, is := range rs.Itemsets {
		out[strings.Join(is.Items, "+")] = is.Support
	}
	return out
}

func TestMineRulesSupportThreshold(t *testing.T) {
	invoices := make([][]string, 100)
	for i := range invoices {
		invoices[i] = []string{fmt.Sprintf("FILLER-%d", i)}
	}
	// X and Y together in 3 of 100 invoices.
	for i := 0; i < 3; i++ {
		invoices[i] = append(invoices[i], "X", "Y")
	}
	// P and Q are each frequent but share a single invoice.
	for i := 10; i < 20; i++ {
		invoices[i] = append(invoices[i], "P")
	}
	for i := 20; i < 30; i++ {
		invoices[i] = append(invoices[i], "Q")
	}
	invoices[50] = append(invoices[50], "P", "Q")
	// Z appears in exactly 2 of 100 invoices, right at the threshold.
	invoices[60] = append(invoices[60], "Z")
	invoices[61] = append(invoices[61], "Z")

	rs, err := NewAprioriMiner().MineRules(context.Background(), basketOf(invoices))
	require.NoError(t, err)

	keys := itemsetKeys(rs)
	assert.InDelta(t, 0.03, keys["X+Y"], 1e-12)
	assert.NotContains(t, keys, "P+Q")
	assert.Contains(t, keys, "P")
	assert.Contains(t, keys, "Q")
	assert.InDelta(t, 0.02, keys["Z"], 1e-12)
	assert.NotContains(t, keys, "FILLER-0")

	require.Len(t, rs.Rules, 2)
	for _, r := range rs.Rules {
		assert.InDelta(t, 0.03, r.Support, 1e-12)
		assert.InDelta(t, 1.0, r.Confidence, 1e-12)
		assert.InDelta(t, 1/0.03, r.Lift, 1e-9)
	}
	assert.Equal(t, []string{"X"}, rs.Rules[0].Antecedents)
	assert.Equal(t, []string{"Y"}, rs.Rules[0].Consequents)
}

func TestMineRulesInvariants(t *testing.T) {
	items := []string{"A", "B", "C", "D", "E"}
	invoices := make([][]string, 60)
	for i := range invoices {
		for k, item := range items {
			if (i+k)%(k+2) == 0 || i%7 == k {
				invoices[i] = append(invoices[i], item)
			}
		}
	}

	miner := NewAprioriMiner()
	rs, err := miner.MineRules(context.Background(), basketOf(invoices))
	require.NoError(t, err)
	require.NotEmpty(t, rs.Rules)

	frequent := itemsetKeys(rs)
	for _, is := range rs.Itemsets {
		assert.GreaterOrEqual(t, is.Support, miner.MinSupport)
		assert.True(t, sort.StringsAreSorted(is.Items))
	}

	for _, r := range rs.Rules {
		assert.GreaterOrEqual(t, r.Lift, 1.0)
		assert.GreaterOrEqual(t, r.Support, 0.02)

		seen := map[string]bool{}
		for _, a := range r.Antecedents {
			seen[a] = true
		}
		union := append([]string{}, r.Antecedents...)
		for _, c := range r.Consequents {
			assert.False(t, seen[c], "rule %s is not disjoint", r)
			union = append(union, c)
		}
		sort.Strings(union)
		assert.Contains(t, frequent, strings.Join(union, "+"))

		assert.InDelta(t, r.Support/r.AntecedentSupport, r.Confidence, 1e-12)
		assert.InDelta(t, r.Confidence/r.ConsequentSupport, r.Lift, 1e-9)
		assert.InDelta(t, r.Support-r.AntecedentSupport*r.ConsequentSupport, r.Leverage, 1e-12)
	}

	for i := 1; i < len(rs.Rules); i++ {
		assert.GreaterOrEqual(t, rs.Rules[i-1].Lift, rs.Rules[i].Lift)
	}
}

func TestMineRulesLiftFilter(t *testing.T) {
	invoices := make([][]string, 100)
	for i := range invoices {
		if i < 60 {
			invoices[i] = append(invoices[i], "A")
		}
		if i >= 40 {
			invoices[i] = append(invoices[i], "B")
		}
	}
	basket := basketOf(invoices)

	rs, err := NewAprioriMiner().MineRules(context.Background(), basket)
	require.NoError(t, err)
	assert.Contains(t, itemsetKeys(rs), "A+B")
	assert.Empty(t, rs.Rules)

	loose := &AprioriMiner{MinSupport: 0.02, MinLift: 0}
	rs, err = loose.MineRules(context.Background(), basket)
	require.NoError(t, err)
	assert.Len(t, rs.Rules, 2)
}

func TestMineRulesEmpty(t *testing.T) {
	t.Run("empty basket", func(t *testing.T) {
		rs, err := NewAprioriMiner().MineRules(context.Background(), EncodeBaskets(nil))
		require.NoError(t, err)
		assert.Empty(t, rs.Rules)
		assert.Empty(t, rs.Itemsets)
		assert.NotNil(t, rs.Top(10))
	})

	t.Run("nothing reaches support", func(t *testing.T) {
		invoices := make([][]string, 100)
		for i := range invoices {
			invoices[i] = []string{fmt.Sprintf("ITEM-%d", i)}
		}
		rs, err := NewAprioriMiner().MineRules(context.Background(), basketOf(invoices))
		require.NoError(t, err)
		assert.Empty(t, rs.Rules)
		assert.Empty(t, rs.Itemsets)
	})
}

func TestMineRulesHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAprioriMiner().MineRules(ctx, basketOf([][]string{{"A", "B"}, {"A", "B"}}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMineRulesMaxLength(t *testing.T) {
	invoices := [][]string{{"A", "B", "C"}, {"A", "B", "C"}}
	miner := &AprioriMiner{MinSupport: 0.5, MinLift: 1, MaxLength: 2}

	rs, err := miner.MineRules(context.Background(), basketOf(invoices))
	require.NoError(t, err)

	for _, is := range rs.Itemsets {
		assert.LessOrEqual(t, len(is.Items), 2)
	}
	assert.Len(t, rs.Itemsets, 6)
	assert.Len(t, rs.Rules, 6)
}

func TestMineRulesRejectsBadSupport(t *testing.T) {
	_, err := (&AprioriMiner{MinSupport: 0}).MineRules(context.Background(), EncodeBaskets(nil))
	assert.Error(t, err)
}

func TestSortRules(t *testing.T) {
	rules := []domain.AssociationRule{
		{Antecedents: []string{"b"}, Consequents: []string{"x"}, Lift: 2, Confidence: 0.5, Support: 0.1},
		{Antecedents: []string{"a"}, Consequents: []string{"x"}, Lift: 2, Confidence: 0.5, Support: 0.1},
		{Antecedents: []string{"c"}, Consequents: []string{"x"}, Lift: 3, Confidence: 0.1, Support: 0.1},
		{Antecedents: []string{"d"}, Consequents: []string{"x"}, Lift: 2, Confidence: 0.9, Support: 0.1},
		{Antecedents: []string{"e"}, Consequents: []string{"x"}, Lift: 2, Confidence: 0.5, Support: 0.3},
	}

	SortRules(rules)

	var order []string
	for _, r := range rules {
		order = append(order, r.Antecedents[0])
	}
	assert.Equal(t, []string{"c", "d", "e", "a", "b"}, order)
}

func TestRuleSetTop(t *testing.T) {
	rs := &RuleSet{Rules: make([]domain.AssociationRule, 15)}
	assert.Len(t, rs.Top(10), 10)
	assert.Len(t, rs.Top(20), 15)
	assert.Empty(t, rs.Top(0))

	var nilSet *RuleSet
	assert.Empty(t, nilSet.Top(10))
}

func TestBitset(t *testing.T) {
	a := newBitset(130)
	b := newBitset(130)
	for _, i := range []int{0, 63, 64, 129} {
		a.set(i)
	}
	for _, i := range []int{63, 129, 5} {
		b.set(i)
	}

	assert.Equal(t, 4, a.count())
	assert.Equal(t, 2, a.and(b).count())
}
