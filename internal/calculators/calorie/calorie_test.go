package calorie

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/vitalcalc/internal/engine"
)

func newEngine(t *testing.T) *engine.Orchestrator[Input] {
	t.Helper()
	o, err := New()
	require.NoError(t, err)
	return o
}

func TestBMR(t *testing.T) {
	assert.Equal(t, 1780.0, BMR("male", 80, 180, 30))
	assert.Equal(t, 1189.0, BMR("female", 60, 160, 50))
}

func TestTarget(t *testing.T) {
	v, floored := Target(2759, "lose", "male")
	assert.Equal(t, 2259.0, v)
	assert.False(t, floored)

	v, floored = Target(2000, "gain", "female")
	assert.Equal(t, 2500.0, v)
	assert.False(t, floored)

	v, floored = Target(1400, "lose", "female")
	assert.Equal(t, 1200.0, v)
	assert.True(t, floored)

	v, floored = Target(1600, "maintain", "male")
	assert.Equal(t, 1600.0, v)
	assert.False(t, floored)
}

func TestAssess_Maintenance(t *testing.T) {
	o := newEngine(t)
	res, err := o.Assess(Input{
		Age: 30, Sex: "male", Weight: 80, WeightUnit: engine.Kilogram, Height: 180, HeightUnit: engine.Centimeter,
		ActivityLevel: "moderate", Goal: "lose",
	})
	require.NoError(t, err)

	tdee, _ := res.Readings.Value(engine.KindTDEE)
	assert.InDelta(t, 2759, tdee, 1e-9)
	target, _ := res.Readings.Value(engine.KindCalorieTarget)
	assert.InDelta(t, 2259, target, 1e-9)
	assert.Equal(t, "Normal weight", res.Category.Label)
	assert.Nil(t, res.Risk)
	assert.Equal(t, engine.PriorityRoutine, res.Treatment.Priority)
	assert.Empty(t, res.Flags)

	d := res.Details.(Details)
	assert.InDelta(t, 169.425, d.Macros.ProteinGrams, 1e-9)
	assert.InDelta(t, 225.9, d.Macros.CarbGrams, 1e-9)
	assert.InDelta(t, 75.3, d.Macros.FatGrams, 1e-9)
	assert.InDelta(t, -0.4545, d.WeeklyChangeKg, 1e-4)
	assert.False(t, d.FloorApplied)
}

func TestAssess_FloorAndFlag(t *testing.T) {
	o := newEngine(t)
	res, err := o.Assess(Input{
		Age: 50, Sex: "female", Weight: 60, WeightUnit: engine.Kilogram, Height: 160, HeightUnit: engine.Centimeter,
		ActivityLevel: "sedentary", Goal: "lose",
	})
	require.NoError(t, err)

	target, _ := res.Readings.Value(engine.KindCalorieTarget)
	assert.Equal(t, 1200.0, target)
	d := res.Details.(Details)
	assert.True(t, d.FloorApplied)
	assert.InDelta(t, 926.8, d.UnadjustedTarget, 1e-9)

	require.Len(t, res.Flags, 1)
	assert.Equal(t, "low_calorie_target", res.Flags[0].Code)
}

func TestAssess_ImperialUnits(t *testing.T) {
	o := newEngine(t)
	res, err := o.Assess(Input{
		Age: 40, Sex: "male", Weight: 220, WeightUnit: engine.Pound, Height: 70, HeightUnit: engine.Inch,
		ActivityLevel: "light", Goal: "maintain",
	})
	require.NoError(t, err)

	w, _ := res.Readings.Get(engine.KindWeight)
	assert.InDelta(t, 99.79, w.Value, 0.01)
	bmiV, _ := res.Readings.Value(engine.KindBMI)
	assert.InDelta(t, 31.57, bmiV, 0.01)
	assert.Equal(t, "Obesity class I", res.Category.Label)
	assert.Equal(t, engine.PriorityTreat, res.Treatment.Priority)
}

func TestAssess_Validation(t *testing.T) {
	o := newEngine(t)
	_, err := o.Assess(Input{Age: 12, Sex: "male", Weight: 500, WeightUnit: engine.Kilogram, Height: 180, HeightUnit: engine.Centimeter, ActivityLevel: "extreme", Goal: "lose"})
	var verr *engine.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "age")
	assert.Contains(t, verr.Fields, "activityLevel")
	assert.Equal(t, "must be between 30 and 300 kg", verr.Fields["weight"])
}
