package duedate

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

func TestAssess_MethodsAgree(t *testing.T) {
	o := newEngine(t)
	inputs := map[string]Input{
		"lmp":        {Method: "lmp", LastPeriod: "2024-01-01", AsOf: "2024-04-01"},
		"conception": {Method: "conception", ConceptionDate: "2024-01-15", AsOf: "2024-04-01"},
		"ivf day 5":  {Method: "ivf", TransferDate: "2024-01-20", EmbryoAge: 5, AsOf: "2024-04-01"},
		"ivf day 3":  {Method: "ivf", TransferDate: "2024-01-18", EmbryoAge: 3, AsOf: "2024-04-01"},
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			res, err := o.Assess(in)
			require.NoError(t, err)
			d := res.Details.(Details)
			assert.Equal(t, "2024-10-07", d.DueDate)
			assert.Equal(t, "2024-01-15", d.EstimatedConception)
			assert.Equal(t, 13, d.GestationalWeeks)
			assert.Equal(t, 0, d.GestationalDays)
			assert.Equal(t, 1, d.Trimester)
			assert.Equal(t, 189, d.DaysUntilDue)
			assert.Equal(t, "First trimester", res.Category.Label)
		})
	}
}

func TestAssess_LongCycleShiftsDueDate(t *testing.T) {
	o := newEngine(t)
	res, err := o.Assess(Input{Method: "lmp", LastPeriod: "2024-01-01", CycleLength: 32, AsOf: "2024-06-01"})
	require.NoError(t, err)
	d := res.Details.(Details)
	assert.Equal(t, "2024-10-11", d.DueDate)
	assert.Equal(t, "Second trimester", res.Category.Label)
	assert.Equal(t, 2, d.Trimester)

	cycle, ok := res.Readings.Get(engine.KindCycleLength)
	require.True(t, ok)
	assert.Equal(t, 32.0, cycle.Value)
}

func TestAssess_PostTerm(t *testing.T) {
	o := newEngine(t)
	res, err := o.Assess(Input{Method: "lmp", LastPeriod: "2024-01-01", AsOf: "2024-10-22"})
	require.NoError(t, err)

	ga, _ := res.Readings.Value(engine.KindGestationalAge)
	assert.InDelta(t, 42+1.0/7, ga, 1e-9)
	assert.Equal(t, "Post-term", res.Category.Label)
	assert.Equal(t, engine.PriorityTreat, res.Treatment.Priority)
	require.Len(t, res.Flags, 1)
	assert.Equal(t, "post_term", res.Flags[0].Code)
	assert.Equal(t, -15, res.Details.(Details).DaysUntilDue)
}

func TestAssess_DueWeekIsLateTerm(t *testing.T) {
	o := newEngine(t)
	res, err := o.Assess(Input{Method: "lmp", LastPeriod: "2024-01-01", AsOf: "2024-10-07"})
	require.NoError(t, err)
	assert.Equal(t, "Late term", res.Category.Label, "40 weeks exactly is past the third-trimester bound")
	assert.Empty(t, res.Flags)
}

func TestAssess_Validation(t *testing.T) {
	o := newEngine(t)
	_, err := o.Assess(Input{Method: "lmp"})
	var verr *engine.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "is required", verr.Fields["lastPeriod"])
	assert.Equal(t, "is required", verr.Fields["asOf"])

	_, err = o.Assess(Input{Method: "ivf", TransferDate: "2024-01-20", EmbryoAge: 4, AsOf: "2024-03-01"})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "embryoAge")

	_, err = o.Assess(Input{Method: "lmp", LastPeriod: "2024-05-01", AsOf: "2024-04-01"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must not be before the start of pregnancy", verr.Fields["asOf"])

	_, err = o.Assess(Input{Method: "lmp", LastPeriod: "2023-01-01", AsOf: "2024-04-01"})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields["asOf"], "44 weeks")
}
