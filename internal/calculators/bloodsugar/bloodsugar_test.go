package bloodsugar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/vitalcalc/internal/engine"
)

func ptr(v float64) *float64 { return &v }

func newEngine(t *testing.T) *engine.Orchestrator[Input] {
	t.Helper()
	o, err := New()
	require.NoError(t, err)
	return o
}

func TestConversions(t *testing.T) {
	assert.InDelta(t, 125.5, EstimatedAverageGlucose(6.0), 1e-9)
	assert.InDelta(t, 42.07665, IFCC(6.0), 1e-9)
	assert.InDelta(t, 48.0837, IFCC(6.55), 1e-3)
}

func TestAssess_SevereHypoglycemiaFlagIndependentOfScore(t *testing.T) {
	o := newEngine(t)
	res, err := o.Assess(Input{FastingGlucose: ptr(45), GlucoseUnit: engine.MgPerDL, HbA1c: ptr(6.0), Age: 40})
	require.NoError(t, err)

	require.NotEmpty(t, res.Flags)
	assert.Equal(t, "severe_hypoglycemia", res.Flags[0].Code)
	assert.Equal(t, engine.FlagSevere, res.Flags[0].Level)
	assert.Equal(t, 45.0, res.Flags[0].Value)

	eag, ok := res.Readings.Get(engine.KindEstimatedGlucose)
	require.True(t, ok)
	assert.InDelta(t, 125.5, eag.Value, 1e-9)
	ifcc, ok := res.Readings.Get(engine.KindHbA1cIFCC)
	require.True(t, ok)
	assert.InDelta(t, 42.07665, ifcc.Value, 1e-9)
	a1c, _ := res.Readings.Get(engine.KindHbA1c)
	assert.Equal(t, "Prediabetes", a1c.Category.Label)

	require.NotNil(t, res.Risk)
	assert.Equal(t, "moderate", res.Risk.Tier)
	assert.Equal(t, SevereHypoglycemia, res.Category.Label)
	assert.Equal(t, engine.PriorityUrgent, res.Treatment.Priority)
	assert.True(t, res.Treatment.Overridden)
}

func TestAssess_MmolBoundary(t *testing.T) {
	o := newEngine(t)
	res, err := o.Assess(Input{FastingGlucose: ptr(7.0), GlucoseUnit: engine.MmolPerL, Age: 50})
	require.NoError(t, err)

	r, _ := res.Readings.Get(engine.KindFastingGlucose)
	assert.Equal(t, 126.0, r.Value)
	assert.Equal(t, "Diabetes", r.Category.Label, "126 mg/dL belongs to the diabetes bucket")
	// diabetic range + age
	assert.Equal(t, 5, res.Risk.Score)
	assert.Equal(t, "high", res.Risk.Tier)
}

func TestAssess_GlucoseFlags(t *testing.T) {
	o := newEngine(t)

	res, err := o.Assess(Input{FastingGlucose: ptr(320), Age: 50})
	require.NoError(t, err)
	require.Len(t, res.Flags, 1)
	assert.Equal(t, "very_high_glucose", res.Flags[0].Code)
	assert.Equal(t, engine.FlagUrgent, res.Flags[0].Level)

	res, err = o.Assess(Input{PostMealGlucose: ptr(60), Age: 50})
	require.NoError(t, err)
	require.Len(t, res.Flags, 1)
	assert.Equal(t, "hypoglycemia", res.Flags[0].Code)
	assert.Equal(t, engine.FlagWarning, res.Flags[0].Level)
	assert.Equal(t, engine.KindPostMealGlucose, res.Flags[0].Kind)

	res, err = o.Assess(Input{FastingGlucose: ptr(90), HbA1c: ptr(5.2), Age: 30, Active: true})
	require.NoError(t, err)
	assert.Empty(t, res.Flags)
	assert.Equal(t, "Normal", res.Category.Label)
	assert.Equal(t, 0, res.Risk.Score)
}

func TestAssess_HeadlinePicksWorst(t *testing.T) {
	o := newEngine(t)
	res, err := o.Assess(Input{FastingGlucose: ptr(95), PostMealGlucose: ptr(210), HbA1c: ptr(6.0), Age: 30})
	require.NoError(t, err)
	assert.Equal(t, "Diabetes", res.Category.Label)
}

func TestAssess_RequiresAReading(t *testing.T) {
	o := newEngine(t)
	_, err := o.Assess(Input{Age: 200})
	var verr *engine.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "fastingGlucose")
	assert.Contains(t, verr.Fields, "age")

	_, err = o.Assess(Input{FastingGlucose: ptr(2000), Age: 40})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "is outside the plausible range", verr.Fields["fastingGlucose"])
}
