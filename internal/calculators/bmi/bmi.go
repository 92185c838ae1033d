// Package bmi classifies adult body mass index on the WHO scale.
package bmi

import "github.com/Skufu/vitalcalc/internal/engine"

const Metric = "bmi"

type Input struct {
	Weight     float64     `json:"weight" validate:"required,gt=0"`
	WeightUnit engine.Unit `json:"weightUnit" validate:"required,oneof=kg lb"`
	Height     float64     `json:"height" validate:"required,gt=0"`
	HeightUnit engine.Unit `json:"heightUnit" validate:"required,oneof=cm in"`
	Age        int         `json:"age,omitempty" validate:"omitempty,min=18,max=120"`
}

// Details is the healthy weight range for the subject's height, in kg.
type Details struct {
	HealthyWeightMinKg float64 `json:"healthyWeightMinKg"`
	HealthyWeightMaxKg float64 `json:"healthyWeightMaxKg"`
}

var Table = engine.Table{Kind: engine.KindBMI, Buckets: []engine.Bucket{
	{UpperBound: 18.5, Label: "Underweight", Description: "Below the healthy range for adults.", Severity: engine.SeverityCaution},
	{UpperBound: 25, Label: "Normal weight", Description: "Within the healthy range for adults.", Severity: engine.SeverityOK},
	{UpperBound: 30, Label: "Overweight", Description: "Above the healthy range.", Severity: engine.SeverityCaution},
	{UpperBound: 35, Label: "Obesity class I", Description: "Moderately increased health risk.", Severity: engine.SeverityWarning},
	{UpperBound: 40, Label: "Obesity class II", Description: "Severely increased health risk.", Severity: engine.SeverityWarning},
	{Label: "Obesity class III", Description: "Very severely increased health risk.", Severity: engine.SeverityWarning},
}}

var recommendations = engine.Mapper{
	"Underweight": {
		Narrative: "Your BMI is below the healthy range. Being underweight can point to poor nutrition or an underlying condition.",
		Recommendations: []string{
			"Add nutrient-dense foods such as nuts, dairy and whole grains.",
			"Include strength training to build muscle mass.",
			"Talk to a healthcare provider if weight loss was unintentional.",
		},
	},
	"Normal weight": {
		Narrative: "Your BMI is within the healthy range.",
		Recommendations: []string{
			"Keep a balanced diet rich in vegetables, fruit and lean protein.",
			"Aim for at least 150 minutes of moderate activity per week.",
		},
	},
	"Overweight": {
		Narrative: "Your BMI is above the healthy range, which raises the risk of heart disease and type 2 diabetes.",
		Recommendations: []string{
			"Target a gradual loss of 0.5 to 1 kg per week.",
			"Reduce sugary drinks and highly processed foods.",
			"Increase daily movement and regular exercise.",
		},
	},
	"Obesity class I": {
		Narrative: "Your BMI falls in obesity class I.",
		Recommendations: []string{
			"Discuss a weight management plan with your healthcare provider.",
			"Have blood pressure, blood sugar and cholesterol checked.",
			"Build regular physical activity into your week.",
		},
	},
	"Obesity class II": {
		Narrative: "Your BMI falls in obesity class II, with a severely increased risk of weight-related conditions.",
		Recommendations: []string{
			"Seek a structured, medically supervised weight management program.",
			"Screen for diabetes, hypertension and sleep apnea.",
		},
	},
	"Obesity class III": {
		Narrative: "Your BMI falls in obesity class III.",
		Recommendations: []string{
			"See a healthcare provider about medical and surgical treatment options.",
			"Screen for diabetes, hypertension, sleep apnea and joint problems.",
		},
	},
}

var priorities = map[string]engine.Priority{
	"Underweight":       engine.PriorityMonitor,
	"Normal weight":     engine.PriorityRoutine,
	"Overweight":        engine.PriorityMonitor,
	"Obesity class I":   engine.PriorityTreat,
	"Obesity class II":  engine.PriorityTreat,
	"Obesity class III": engine.PriorityTreat,
}

// Compute returns BMI from canonical weight (kg) and height (cm).
func Compute(weightKg, heightCm float64) float64 {
	m := heightCm / 100
	return weightKg / (m * m)
}

func Config() engine.Config[Input] {
	return engine.Config[Input]{
		Metric: Metric,
		Measures: func(in Input) []engine.Measure {
			return []engine.Measure{
				{Kind: engine.KindWeight, Value: in.Weight, Unit: in.WeightUnit},
				{Kind: engine.KindHeight, Value: in.Height, Unit: in.HeightUnit},
			}
		},
		Check: checkPlausible,
		Derive: func(in Input, base engine.ReadingSet) engine.Derivation {
			var d engine.Derivation
			w, _ := base.Value(engine.KindWeight)
			h, _ := base.Value(engine.KindHeight)
			d.Add(engine.KindBMI, Compute(w, h))
			return d
		},
		Tables:          []engine.Table{Table},
		Primary:         engine.KindBMI,
		Recommendations: recommendations,
		Priorities:      priorities,
		Flags: []engine.FlagRule{
			{
				Code: "severe_thinness", Kind: engine.KindBMI, Level: engine.FlagWarning,
				Breached: func(v float64) bool { return v < 16 },
				Message:  "A BMI below 16 indicates severe thinness.",
				Recommendations: []string{
					"Consult a healthcare provider promptly.",
				},
			},
			{
				Code: "severe_obesity", Kind: engine.KindBMI, Level: engine.FlagCaution,
				Breached: func(v float64) bool { return v >= 40 },
				Message:  "A BMI of 40 or more carries a high risk of weight-related disease.",
				Recommendations: []string{
					"Discuss treatment options with a healthcare provider.",
				},
			},
		},
		Details: func(in Input, all engine.ReadingSet) any {
			h, _ := all.Value(engine.KindHeight)
			m := h / 100
			return Details{HealthyWeightMinKg: 18.5 * m * m, HealthyWeightMaxKg: 24.9 * m * m}
		},
	}
}

// checkPlausible rejects heights and weights no adult can have, in either unit.
func checkPlausible(in Input) map[string]string {
	errs := map[string]string{}
	if w, err := engine.Convert(in.Weight, in.WeightUnit, engine.Kilogram, engine.QuantityMass); err == nil && (w < 20 || w > 400) {
		errs["weight"] = "must be between 20 and 400 kg"
	}
	if h, err := engine.Convert(in.Height, in.HeightUnit, engine.Centimeter, engine.QuantityLength); err == nil && (h < 100 || h > 250) {
		errs["height"] = "must be between 100 and 250 cm"
	}
	return errs
}

func New() (*engine.Orchestrator[Input], error) {
	return engine.New(Config())
}
