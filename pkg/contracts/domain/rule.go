package domain

import "strings"

// Itemset is a set of item descriptions with its observed support.
type Itemset struct {
	Items   []string `json:"items"`
	Support float64  `json:"support"`
}

// AssociationRule is antecedents -> consequents derived from one frequent itemset.
type AssociationRule struct {
	Antecedents       []string `json:"antecedents"`
	Consequents       []string `json:"consequents"`
	AntecedentSupport float64  `json:"antecedent_support"`
	ConsequentSupport float64  `json:"consequent_support"`
	Support           float64  `json:"support"`
	Confidence        float64  `json:"confidence"`
	Lift              float64  `json:"lift"`
	Leverage          float64  `json:"leverage"`
}

// String renders the rule as "{a, b} -> {c}".
func (r AssociationRule) String() string {
	return "{" + strings.Join(r.Antecedents, ", ") + "} -> {" + strings.Join(r.Consequents, ", ") + "}"
}
