// Package kidsbmi classifies BMI for children and teens against age- and
// sex-specific percentile cutoffs (CDC growth charts, ages 2 to 19).
package kidsbmi

import (
	"fmt"

	"github.com/Skufu/vitalcalc/internal/calculators/bmi"
	"github.com/Skufu/vitalcalc/internal/engine"
)

const Metric = "kids-bmi"

type Input struct {
	AgeYears   int         `json:"ageYears" validate:"required,min=2,max=19"`
	Sex        string      `json:"sex" validate:"required,oneof=male female"`
	Weight     float64     `json:"weight" validate:"required,gt=0"`
	WeightUnit engine.Unit `json:"weightUnit" validate:"required,oneof=kg lb"`
	Height     float64     `json:"height" validate:"required,gt=0"`
	HeightUnit engine.Unit `json:"heightUnit" validate:"required,oneof=cm in"`
}

// cutoffs holds the BMI at the 5th, 85th and 95th percentile.
type cutoffs struct{ p5, p85, p95 float64 }

// index 0 is age 2
var boys = []cutoffs{
	{14.7, 18.2, 19.3}, {14.3, 17.4, 18.3}, {14.0, 16.9, 17.8}, {13.8, 16.8, 17.9},
	{13.7, 17.0, 18.4}, {13.7, 17.4, 19.1}, {13.8, 17.9, 20.0}, {14.0, 18.6, 21.0},
	{14.2, 19.4, 22.0}, {14.5, 20.2, 23.2}, {15.0, 21.0, 24.2}, {15.5, 21.8, 25.1},
	{16.0, 22.6, 26.0}, {16.6, 23.4, 26.8}, {17.1, 24.2, 27.5}, {17.6, 24.9, 28.2},
	{18.2, 25.6, 28.9}, {18.7, 26.3, 29.7},
}

var girls = []cutoffs{
	{14.4, 18.0, 19.1}, {14.0, 17.2, 18.3}, {13.7, 16.8, 18.0}, {13.5, 16.8, 18.3},
	{13.4, 17.1, 18.8}, {13.4, 17.6, 19.7}, {13.5, 18.3, 20.7}, {13.7, 19.1, 21.8},
	{14.0, 19.9, 22.9}, {14.4, 20.8, 24.1}, {14.8, 21.7, 25.2}, {15.3, 22.5, 26.2},
	{15.8, 23.3, 27.2}, {16.3, 24.0, 28.1}, {16.8, 24.7, 28.9}, {17.2, 25.2, 29.6},
	{17.5, 25.7, 30.3}, {17.8, 26.1, 31.0},
}

func lookup(sex string, age int) (cutoffs, bool) {
	rows := boys
	if sex == "female" {
		rows = girls
	}
	i := age - 2
	if i < 0 || i >= len(rows) {
		return cutoffs{}, false
	}
	return rows[i], true
}

// TableFor builds the percentile table for one age and sex.
func TableFor(sex string, age int) (engine.Table, bool) {
	c, ok := lookup(sex, age)
	if !ok {
		return engine.Table{}, false
	}
	return tableFrom(c), true
}

func tableFrom(c cutoffs) engine.Table {
	return engine.Table{Kind: engine.KindBMI, Buckets: []engine.Bucket{
		{UpperBound: c.p5, Label: "Underweight", Description: "Below the 5th percentile for age and sex.", Severity: engine.SeverityCaution},
		{UpperBound: c.p85, Label: "Healthy weight", Description: "5th to below the 85th percentile.", Severity: engine.SeverityOK},
		{UpperBound: c.p95, Label: "Overweight", Description: "85th to below the 95th percentile.", Severity: engine.SeverityCaution},
		{Label: "Obesity", Description: "At or above the 95th percentile.", Severity: engine.SeverityWarning},
	}}
}

// AllTables returns every age/sex table, for coverage tests.
func AllTables() []engine.Table {
	out := make([]engine.Table, 0, len(boys)+len(girls))
	for _, c := range boys {
		out = append(out, tableFrom(c))
	}
	for _, c := range girls {
		out = append(out, tableFrom(c))
	}
	return out
}

var percentOf95th = engine.Table{Kind: engine.KindPercentOf95th, Buckets: []engine.Bucket{
	{UpperBound: 120, Label: "Below severe obesity threshold", Severity: engine.SeverityOK},
	{UpperBound: 140, Label: "Class 2 obesity", Severity: engine.SeverityWarning},
	{Label: "Class 3 obesity", Severity: engine.SeverityWarning},
}}

var recommendations = engine.Mapper{
	"Underweight": {
		Narrative: "Your child's BMI is below the 5th percentile for their age and sex.",
		Recommendations: []string{
			"Discuss growth and eating habits with your pediatrician.",
			"Offer regular meals and nutrient-dense snacks.",
		},
	},
	"Healthy weight": {
		Narrative: "Your child's BMI is in the healthy range for their age and sex.",
		Recommendations: []string{
			"Keep up balanced meals and at least 60 minutes of activity a day.",
			"Limit recreational screen time.",
		},
	},
	"Overweight": {
		Narrative: "Your child's BMI is between the 85th and 95th percentile.",
		Recommendations: []string{
			"Focus on family-wide healthy habits rather than dieting.",
			"Replace sugary drinks with water or milk.",
			"Check in with your pediatrician at the next visit.",
		},
	},
	"Obesity": {
		Narrative: "Your child's BMI is at or above the 95th percentile.",
		Recommendations: []string{
			"Schedule a visit with your pediatrician to discuss a care plan.",
			"Ask about family-based behavioral treatment programs.",
		},
	},
}

var priorities = map[string]engine.Priority{
	"Underweight":    engine.PriorityMonitor,
	"Healthy weight": engine.PriorityRoutine,
	"Overweight":     engine.PriorityMonitor,
	"Obesity":        engine.PriorityTreat,
}

// plausibleRange bounds weight (kg) and height (cm) loosely by age, well
// outside the 1st and 99th percentiles.
func plausibleRange(age int) (minKg, maxKg, minCm, maxCm float64) {
	a := float64(age)
	return 7, 15 + 12*a, 65 + 4*a, 110 + 6*a
}

func checkPlausible(in Input) map[string]string {
	errs := map[string]string{}
	if in.AgeYears < 2 || in.AgeYears > 19 {
		return errs
	}
	minKg, maxKg, minCm, maxCm := plausibleRange(in.AgeYears)
	if w, err := engine.Convert(in.Weight, in.WeightUnit, engine.Kilogram, engine.QuantityMass); err == nil && (w < minKg || w > maxKg) {
		errs["weight"] = fmt.Sprintf("must be between %g and %g kg at age %d", minKg, maxKg, in.AgeYears)
	}
	if h, err := engine.Convert(in.Height, in.HeightUnit, engine.Centimeter, engine.QuantityLength); err == nil && (h < minCm || h > maxCm) {
		errs["height"] = fmt.Sprintf("must be between %g and %g cm at age %d", minCm, maxCm, in.AgeYears)
	}
	return errs
}

func Config() engine.Config[Input] {
	// The orchestrator only uses this table to check the mapper covers every
	// label. Classification always goes through TableFor.
	ref, _ := TableFor("male", 10)
	return engine.Config[Input]{
		Metric: Metric,
		Check:  checkPlausible,
		Measures: func(in Input) []engine.Measure {
			return []engine.Measure{
				{Kind: engine.KindWeight, Value: in.Weight, Unit: in.WeightUnit},
				{Kind: engine.KindHeight, Value: in.Height, Unit: in.HeightUnit},
			}
		},
		Derive: func(in Input, base engine.ReadingSet) engine.Derivation {
			var d engine.Derivation
			w, _ := base.Value(engine.KindWeight)
			h, _ := base.Value(engine.KindHeight)
			c, ok := lookup(in.Sex, in.AgeYears)
			if !ok {
				for _, k := range []engine.Kind{engine.KindBMI, engine.KindPercentOf95th} {
					d.Fail(k, &engine.DomainInvalidError{
						Kind: k, Code: engine.CodeInsufficientData, Reason: "no percentile reference for this age",
					})
				}
				return d
			}
			v := bmi.Compute(w, h)
			d.Add(engine.KindBMI, v)
			d.Add(engine.KindPercentOf95th, v/c.p95*100)
			return d
		},
		Tables: []engine.Table{ref, percentOf95th},
		TableFor: func(in Input, kind engine.Kind) (engine.Table, bool) {
			if kind != engine.KindBMI {
				return engine.Table{}, false
			}
			return TableFor(in.Sex, in.AgeYears)
		},
		Primary:         engine.KindBMI,
		Recommendations: recommendations,
		Priorities:      priorities,
		Flags: []engine.FlagRule{{
			Code: "severe_obesity", Kind: engine.KindPercentOf95th, Level: engine.FlagWarning,
			Breached: func(v float64) bool { return v >= 120 },
			Message:  "BMI is at least 120% of the 95th percentile (severe obesity).",
			Recommendations: []string{
				"Ask your pediatrician about referral to a pediatric weight management program.",
			},
		}},
	}
}

func New() (*engine.Orchestrator[Input], error) {
	return engine.New(Config())
}
