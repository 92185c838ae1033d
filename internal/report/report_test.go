package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Skufu/vitalcalc/internal/calculators/bloodpressure"
	"github.com/Skufu/vitalcalc/internal/calculators/cholesterol"
	"github.com/Skufu/vitalcalc/internal/engine"
)

func open(t *testing.T, res *engine.AssessmentResult) *excelize.File {
	t.Helper()
	data, err := Render(res)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestRender_Crisis(t *testing.T) {
	o, err := bloodpressure.New()
	require.NoError(t, err)
	res, err := o.Assess(bloodpressure.Input{Systolic: 185, Diastolic: 125, Age: 50, Smoker: true})
	require.NoError(t, err)

	f := open(t, res)
	assert.Equal(t, []string{SheetSummary, SheetReadings, SheetFactors, SheetWarnings}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Metric", "blood-pressure"}, summary[0])
	assert.Equal(t, []string{"Category", bloodpressure.Crisis}, summary[1])
	assert.Contains(t, summary, []string{"Priority", "urgent"})

	readings, err := f.GetRows(SheetReadings)
	require.NoError(t, err)
	assert.Equal(t, readingsHeader, readings[0])
	// systolic, diastolic, then the two composites
	require.Len(t, readings, 5)
	assert.Equal(t, "systolic-pressure", readings[1][0])
	assert.Equal(t, "185", readings[1][1])
	assert.Equal(t, "composite", readings[3][6])

	factors, err := f.GetRows(SheetFactors)
	require.NoError(t, err)
	assert.Len(t, factors, 1+len(res.Risk.Factors))
	assert.Equal(t, []string{"hypertensive_crisis", "Yes", "8"}, factors[1][:3])

	warnings, err := f.GetRows(SheetWarnings)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	assert.Equal(t, "hypertensive_crisis", warnings[1][0])
	assert.Equal(t, "urgent", warnings[1][1])
}

func TestRender_UnavailableAndNoScore(t *testing.T) {
	o, err := cholesterol.New()
	require.NoError(t, err)
	res, err := o.Assess(cholesterol.Input{Total: 260, HDL: 40, Triglycerides: 450, Unit: engine.MgPerDL, Age: 50, Sex: "male"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Unavailable)

	f := open(t, res)
	readings, err := f.GetRows(SheetReadings)
	require.NoError(t, err)
	last := readings[len(readings)-1]
	assert.Equal(t, "ldl-cholesterol", last[0])
	assert.Equal(t, engine.CodeNeedsDirectMeasurement, last[6])

	res.Risk = nil
	f = open(t, res)
	factors, err := f.GetRows(SheetFactors)
	require.NoError(t, err)
	assert.Len(t, factors, 1)
}
