package engine

import "fmt"

// Predicate is one weighted risk factor. Weight is fixed; only the outcome of
// Evaluate varies per subject. Protective factors carry negative weights.
type Predicate[S any] struct {
	Name        string
	Weight      int
	Description string
	Evaluate    func(S) bool
}

type RiskFactor struct {
	Name         string `json:"name"`
	Present      bool   `json:"present"`
	ImpactWeight int    `json:"impactWeight"`
	Description  string `json:"description"`
}

type RiskAssessment struct {
	Score    int          `json:"score"`
	Tier     string       `json:"tier"`
	Severity Severity     `json:"severity"`
	Factors  []RiskFactor `json:"factors"`
}

// Scorer sums the weights of the predicates that hold and classifies the sum.
type Scorer[S any] struct {
	Predicates []Predicate[S]
	Tiers      Table
}

func (sc *Scorer[S]) Score(subject S) RiskAssessment {
	factors := make([]RiskFactor, 0, len(sc.Predicates))
	sum := 0
	for _, p := range sc.Predicates {
		present := p.Evaluate(subject)
		if present {
			sum += p.Weight
		}
		factors = append(factors, RiskFactor{
			Name:         p.Name,
			Present:      present,
			ImpactWeight: p.Weight,
			Description:  p.Description,
		})
	}
	if sum < 0 {
		sum = 0
	}
	tier := Classify(float64(sum), sc.Tiers.Buckets)
	return RiskAssessment{Score: sum, Tier: tier.Label, Severity: tier.Severity, Factors: factors}
}

func (sc *Scorer[S]) Validate() error {
	if err := sc.Tiers.Validate(); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, p := range sc.Predicates {
		if p.Name == "" || p.Evaluate == nil {
			return &ConfigurationError{Component: "scorer", Detail: "predicate without name or evaluator"}
		}
		if seen[p.Name] {
			return &ConfigurationError{Component: "scorer", Detail: fmt.Sprintf("duplicate predicate %q", p.Name)}
		}
		seen[p.Name] = true
	}
	return nil
}

// Override returns a copy with replaced weights and, when tiers is non-empty,
// replaced tier bounds. Unknown predicate names are configuration errors.
func (sc *Scorer[S]) Override(weights map[string]int, tiers []float64) (*Scorer[S], error) {
	out := &Scorer[S]{Predicates: append([]Predicate[S](nil), sc.Predicates...), Tiers: sc.Tiers}
	for name, w := range weights {
		found := false
		for i := range out.Predicates {
			if out.Predicates[i].Name == name {
				out.Predicates[i].Weight = w
				found = true
			}
		}
		if !found {
			return nil, &ConfigurationError{Component: "scorer", Detail: fmt.Sprintf("unknown risk factor %q", name)}
		}
	}
	if len(tiers) > 0 {
		t, err := sc.Tiers.WithBounds(tiers)
		if err != nil {
			return nil, err
		}
		out.Tiers = t
	}
	return out, out.Validate()
}
