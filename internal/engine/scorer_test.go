package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	smoker   bool
	diabetic bool
	active   bool
}

var tiers = Table{Kind: "risk", Buckets: []Bucket{
	{UpperBound: 2, Label: "low", Severity: SeverityOK},
	{UpperBound: 4, Label: "moderate", Severity: SeverityCaution},
	{Label: "high", Severity: SeverityWarning},
}}

func testScorer() *Scorer[profile] {
	return &Scorer[profile]{
		Predicates: []Predicate[profile]{
			{Name: "smoker", Weight: 2, Evaluate: func(p profile) bool { return p.smoker }},
			{Name: "diabetes", Weight: 3, Evaluate: func(p profile) bool { return p.diabetic }},
			{Name: "active", Weight: -1, Evaluate: func(p profile) bool { return p.active }},
		},
		Tiers: tiers,
	}
}

func TestScore_SumsPresentWeights(t *testing.T) {
	ra := testScorer().Score(profile{smoker: true, diabetic: true})
	assert.Equal(t, 5, ra.Score)
	assert.Equal(t, "high", ra.Tier)
	assert.Equal(t, SeverityWarning, ra.Severity)

	require.Len(t, ra.Factors, 3)
	assert.Equal(t, []string{"smoker", "diabetes", "active"}, []string{ra.Factors[0].Name, ra.Factors[1].Name, ra.Factors[2].Name})
	assert.True(t, ra.Factors[0].Present)
	assert.False(t, ra.Factors[2].Present)
	assert.Equal(t, -1, ra.Factors[2].ImpactWeight)
}

func TestScore_FlooredAtZero(t *testing.T) {
	ra := testScorer().Score(profile{active: true})
	assert.Equal(t, 0, ra.Score)
	assert.Equal(t, "low", ra.Tier)
}

func TestScore_Monotonic(t *testing.T) {
	sc := testScorer()
	base := sc.Score(profile{smoker: true})
	worse := sc.Score(profile{smoker: true, diabetic: true})
	better := sc.Score(profile{smoker: true, active: true})
	assert.GreaterOrEqual(t, worse.Score, base.Score)
	assert.LessOrEqual(t, better.Score, base.Score)
}

func TestScore_Idempotent(t *testing.T) {
	sc := testScorer()
	p := profile{smoker: true, active: true}
	assert.Equal(t, sc.Score(p), sc.Score(p))
}

func TestScorerOverride(t *testing.T) {
	sc := testScorer()
	o, err := sc.Override(map[string]int{"smoker": 5}, []float64{3, 6})
	require.NoError(t, err)
	ra := o.Score(profile{smoker: true})
	assert.Equal(t, 5, ra.Score)
	assert.Equal(t, "moderate", ra.Tier)

	assert.Equal(t, 2, sc.Score(profile{smoker: true}).Score, "original keeps its weights")

	_, err = sc.Override(map[string]int{"nope": 1}, nil)
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = sc.Override(nil, []float64{1})
	assert.Error(t, err)
}

func TestScorerValidate_DuplicateNames(t *testing.T) {
	sc := testScorer()
	sc.Predicates = append(sc.Predicates, sc.Predicates[0])
	assert.Error(t, sc.Validate())
}

func TestMapper(t *testing.T) {
	m := Mapper{"low": {Narrative: "fine", Recommendations: []string{"keep going"}}}
	rec, err := m.For("low")
	require.NoError(t, err)
	assert.Equal(t, "fine", rec.Narrative)

	_, err = m.For("high")
	var unknown *UnknownCategoryError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "high", unknown.Label)

	assert.NoError(t, m.Covers("test", "low"))
	assert.Error(t, m.Covers("test", "low", "high"))
}
