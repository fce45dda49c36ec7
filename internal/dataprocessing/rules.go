package dataprocessing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"rfmbasket/internal/config"
	"rfmbasket/pkg/contracts/domain"
)

// RuleSet holds every frequent itemset and every rule that passed the lift
// threshold, rules in ranking order.
type RuleSet struct {
	Itemsets []domain.Itemset
	Rules    []domain.AssociationRule
}

// Top returns at most n leading rules.
func (rs *RuleSet) Top(n int) []domain.AssociationRule {
	if rs == nil || n <= 0 {
		return []domain.AssociationRule{}
	}
	if n > len(rs.Rules) {
		n = len(rs.Rules)
	}
	return rs.Rules[:n]
}

// RuleMiner derives association rules from a basket matrix.
type RuleMiner interface {
	MineRules(ctx context.Context, basket *domain.BasketMatrix) (*RuleSet, error)
}

// AprioriMiner mines frequent itemsets with apriori and keeps rules whose
// lift is at least MinLift.
type AprioriMiner struct {
	MinSupport float64
	MinLift    float64
	// MaxLength caps itemset size; zero means unbounded.
	MaxLength int
}

// NewAprioriMiner uses the fixed pipeline thresholds.
func NewAprioriMiner() *AprioriMiner {
	return &AprioriMiner{
		MinSupport: config.MinSupport,
		MinLift:    config.MinLift,
	}
}

// MineRules implements RuleMiner. An empty basket or one where nothing
// reaches MinSupport yields an empty RuleSet.
func (m *AprioriMiner) MineRules(ctx context.Context, basket *domain.BasketMatrix) (*RuleSet, error) {
	if m.MinSupport <= 0 || m.MinSupport > 1 {
		return nil, fmt.Errorf("min support must be in (0, 1], got %g", m.MinSupport)
	}

	frequent, err := mineFrequent(ctx, basket, m.MinSupport, m.MaxLength)
	if err != nil {
		return nil, err
	}

	rs := &RuleSet{
		Itemsets: make([]domain.Itemset, 0, len(frequent)),
		Rules:    []domain.AssociationRule{},
	}
	if len(frequent) == 0 {
		return rs, nil
	}

	n := float64(basket.NumInvoices())
	support := make(map[string]float64, len(frequent))
	for _, fs := range frequent {
		s := float64(fs.count) / n
		support[itemsetKey(fs.items)] = s
		rs.Itemsets = append(rs.Itemsets, domain.Itemset{Items: itemNames(basket, fs.items), Support: s})
	}

	for _, fs := range frequent {
		if len(fs.items) < 2 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := support[itemsetKey(fs.items)]

		size := len(fs.items)
		for mask := 1; mask < (1<<size)-1; mask++ {
			var ante, cons []int
			for k, it := range fs.items {
				if mask&(1<<k) != 0 {
					ante = append(ante, it)
				} else {
					cons = append(cons, it)
				}
			}
			sA := support[itemsetKey(ante)]
			sC := support[itemsetKey(cons)]
			confidence := s / sA
			lift := confidence / sC
			if lift < m.MinLift {
				continue
			}
			rs.Rules = append(rs.Rules, domain.AssociationRule{
				Antecedents:       itemNames(basket, ante),
				Consequents:       itemNames(basket, cons),
				AntecedentSupport: sA,
				ConsequentSupport: sC,
				Support:           s,
				Confidence:        confidence,
				Lift:              lift,
				Leverage:          s - sA*sC,
			})
		}
	}

	SortRules(rs.Rules)
	return rs, nil
}

// SortRules orders by lift, then confidence, then support, all descending,
// and finally by antecedent and consequent text.
func SortRules(rules []domain.AssociationRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Lift != b.Lift {
			return a.Lift > b.Lift
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Support != b.Support {
			return a.Support > b.Support
		}
		if ak, bk := strings.Join(a.Antecedents, "\x00"), strings.Join(b.Antecedents, "\x00"); ak != bk {
			return ak < bk
		}
		return strings.Join(a.Consequents, "\x00") < strings.Join(b.Consequents, "\x00")
	})
}

func itemNames(basket *domain.BasketMatrix, items []int) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = basket.Items[it]
	}
	return names
}
