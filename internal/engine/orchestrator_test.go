package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lipidInput struct {
	Total  float64 `json:"total" validate:"required,gt=0,lte=1000"`
	HDL    float64 `json:"hdl" validate:"required,gt=0,ltfield=Total"`
	Unit   Unit    `json:"unit" validate:"required,oneof=mg/dL mmol/L"`
	Age    int     `json:"age" validate:"required,min=18,max=120"`
	Smoker bool    `json:"smoker"`
}

func lipidConfig() Config[lipidInput] {
	return Config[lipidInput]{
		Metric: "lipids",
		Check: func(in lipidInput) map[string]string {
			if in.Smoker && in.Age > 100 {
				return map[string]string{"smoker": "is implausible at this age"}
			}
			return nil
		},
		Measures: func(in lipidInput) []Measure {
			return []Measure{
				{Kind: KindTotalCholesterol, Value: in.Total, Unit: in.Unit},
				{Kind: KindHDL, Value: in.HDL, Unit: in.Unit},
			}
		},
		Derive: func(in lipidInput, base ReadingSet) Derivation {
			var d Derivation
			total, _ := base.Value(KindTotalCholesterol)
			hdl, _ := base.Value(KindHDL)
			d.AddComposite(KindTotalHDLRatio, total/hdl)
			d.Fail(KindLDL, &DomainInvalidError{Kind: KindLDL, Code: CodeNeedsDirectMeasurement, Reason: "no triglycerides"})
			return d
		},
		Tables: []Table{
			{Kind: KindTotalCholesterol, Buckets: []Bucket{
				{UpperBound: 200, Label: "Desirable", Severity: SeverityOK},
				{UpperBound: 400, Label: "High", Severity: SeverityWarning},
				{Label: "Extreme", Severity: SeverityCritical},
			}},
			{Kind: KindTotalHDLRatio, Buckets: []Bucket{
				{UpperBound: 5, Label: "Good ratio", Severity: SeverityOK},
				{Label: "Poor ratio", Severity: SeverityCaution},
			}},
		},
		Scorer: &Scorer[Subject[lipidInput]]{
			Predicates: []Predicate[Subject[lipidInput]]{
				{Name: "smoker", Weight: 2, Evaluate: func(s Subject[lipidInput]) bool { return s.Input.Smoker }},
				{Name: "high total", Weight: 2, Evaluate: func(s Subject[lipidInput]) bool { return s.Readings.AtLeast(KindTotalCholesterol, 200) }},
				{Name: "poor ratio", Weight: 1, Evaluate: func(s Subject[lipidInput]) bool { return s.Readings.AtLeast(KindTotalHDLRatio, 5) }},
			},
			Tiers: Table{Kind: "risk", Buckets: []Bucket{
				{UpperBound: 4, Label: "low", Severity: SeverityOK},
				{Label: "high", Severity: SeverityWarning},
			}},
		},
		Primary: KindTotalCholesterol,
		Recommendations: Mapper{
			"low":     {Narrative: "Low risk.", Recommendations: []string{"Recheck in five years."}},
			"high":    {Narrative: "High risk.", Recommendations: []string{"See your doctor."}},
			"Extreme": {Narrative: "Extreme reading.", Recommendations: []string{"Seek care today."}},
		},
		Priorities: map[string]Priority{"low": PriorityRoutine, "high": PriorityTreat},
		Flags: []FlagRule{
			{Code: "very_high_total", Kind: KindTotalCholesterol, Level: FlagUrgent, Message: "Very high", Breached: func(v float64) bool { return v >= 400 }},
			{Code: "very_high_total", Kind: KindTotalCholesterol, Level: FlagWarning, Message: "duplicate code never raised", Breached: func(v float64) bool { return v >= 300 }},
			{Code: "low_hdl", Kind: KindHDL, Level: FlagCaution, Message: "Low HDL", Breached: func(v float64) bool { return v < 40 }},
		},
		Details: func(in lipidInput, all ReadingSet) any {
			return map[string]int{"age": in.Age}
		},
	}
}

func newLipids(t *testing.T) *Orchestrator[lipidInput] {
	t.Helper()
	o, err := New(lipidConfig())
	require.NoError(t, err)
	return o
}

func TestAssess_Pipeline(t *testing.T) {
	o := newLipids(t)
	res, err := o.Assess(lipidInput{Total: 5.5, HDL: 1.0, Unit: MmolPerL, Age: 50, Smoker: true})
	require.NoError(t, err)

	assert.Equal(t, "lipids", res.Metric)
	total, ok := res.Readings.Get(KindTotalCholesterol)
	require.True(t, ok)
	assert.InDelta(t, 212.685, total.Value, 1e-9)
	assert.Equal(t, MgPerDL, total.Unit)
	assert.Equal(t, "High", total.Category.Label)

	ratio, ok := res.Composites.Get(KindTotalHDLRatio)
	require.True(t, ok)
	assert.True(t, ratio.Derived)
	assert.Equal(t, "Poor ratio", ratio.Category.Label)

	require.Len(t, res.Unavailable, 1)
	assert.Equal(t, KindLDL, res.Unavailable[0].Kind)
	assert.Equal(t, CodeNeedsDirectMeasurement, res.Unavailable[0].Code)

	require.NotNil(t, res.Risk)
	assert.Equal(t, 5, res.Risk.Score)
	assert.Equal(t, "high", res.Risk.Tier)
	assert.Equal(t, PriorityTreat, res.Treatment.Priority)
	assert.Equal(t, "High risk.", res.Treatment.Narrative)

	require.NotNil(t, res.Category)
	assert.Equal(t, "High", res.Category.Label)
	assert.Equal(t, map[string]int{"age": 50}, res.Details)

	require.Len(t, res.Flags, 1)
	assert.Equal(t, "low_hdl", res.Flags[0].Code)
}

func TestAssess_CollectsAllFieldErrors(t *testing.T) {
	o := newLipids(t)
	_, err := o.Assess(lipidInput{Total: 150, HDL: 200, Unit: "g/L", Age: 200, Smoker: true})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "hdl")
	assert.Contains(t, verr.Fields, "unit")
	assert.Contains(t, verr.Fields, "age")
	assert.Contains(t, verr.Fields, "smoker")
	assert.Equal(t, "must be less than total", verr.Fields["hdl"])
	assert.Equal(t, "must be at most 120", verr.Fields["age"])
}

func TestAssess_CriticalReadingForcesUrgent(t *testing.T) {
	o := newLipids(t)
	res, err := o.Assess(lipidInput{Total: 420, HDL: 100, Unit: MgPerDL, Age: 40})
	require.NoError(t, err)

	assert.Equal(t, "low", res.Risk.Tier, "score alone is low")
	assert.Equal(t, PriorityUrgent, res.Treatment.Priority)
	assert.True(t, res.Treatment.Overridden)
	assert.Equal(t, "Extreme", res.Treatment.Basis)
	assert.Equal(t, []string{"Seek care today."}, res.Treatment.Recommendations)

	require.Len(t, res.Flags, 1, "rules sharing a code raise one flag")
	assert.Equal(t, FlagUrgent, res.Flags[0].Level)
}

func TestAssess_Idempotent(t *testing.T) {
	o := newLipids(t)
	in := lipidInput{Total: 230, HDL: 35, Unit: MgPerDL, Age: 61, Smoker: true}
	a, err := o.Assess(in)
	require.NoError(t, err)
	b, err := o.Assess(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAssessJSON(t *testing.T) {
	o := newLipids(t)

	res, err := o.AssessJSON([]byte(`{"total":190,"hdl":55,"unit":"mg/dL","age":45}`))
	require.NoError(t, err)
	assert.Equal(t, "Desirable", res.Category.Label)

	_, err = o.AssessJSON([]byte(`{"total":`))
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = o.AssessJSON([]byte(`{"total":"high","hdl":55,"unit":"mg/dL","age":45}`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "total")
}

func TestNew_RejectsInconsistentConfig(t *testing.T) {
	cases := map[string]func(*Config[lipidInput]){
		"missing tier recommendation": func(c *Config[lipidInput]) { delete(c.Recommendations, "high") },
		"missing critical recommendation": func(c *Config[lipidInput]) {
			delete(c.Recommendations, "Extreme")
		},
		"missing priority":   func(c *Config[lipidInput]) { delete(c.Priorities, "low") },
		"duplicate table":    func(c *Config[lipidInput]) { c.Tables = append(c.Tables, c.Tables[0]) },
		"flag without code":  func(c *Config[lipidInput]) { c.Flags = append(c.Flags, FlagRule{Kind: KindHDL}) },
		"no measures":        func(c *Config[lipidInput]) { c.Measures = nil },
		"primary w/o scorer": func(c *Config[lipidInput]) { c.Scorer = nil; c.Primary = KindLDL },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := lipidConfig()
			mutate(&cfg)
			_, err := New(cfg)
			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "got %v", err)
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "is required", "a": "must be at least 1"}}
	assert.Equal(t, "validation failed: a must be at least 1; b is required", err.Error())
}
