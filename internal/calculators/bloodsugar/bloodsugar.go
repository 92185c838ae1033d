// Package bloodsugar classifies fasting glucose, post-meal glucose and HbA1c
// on the ADA scale, converts HbA1c to estimated average glucose and IFCC
// units, and scores type 2 diabetes risk.
package bloodsugar

import "github.com/Skufu/vitalcalc/internal/engine"

const Metric = "blood-sugar"

const SevereHypoglycemia = "Severe hypoglycemia"

type Input struct {
	FastingGlucose  *float64    `json:"fastingGlucose,omitempty" validate:"omitempty,gt=0"`
	PostMealGlucose *float64    `json:"postMealGlucose,omitempty" validate:"omitempty,gt=0"`
	GlucoseUnit     engine.Unit `json:"glucoseUnit,omitempty" validate:"omitempty,oneof=mg/dL mmol/L"`
	HbA1c           *float64    `json:"hba1c,omitempty" validate:"omitempty,min=3,max=20"`

	Age                 int      `json:"age" validate:"required,min=18,max=120"`
	BMI                 *float64 `json:"bmi,omitempty" validate:"omitempty,min=10,max=80"`
	FamilyHistory       bool     `json:"familyHistory"`
	Hypertension        bool     `json:"hypertension"`
	GestationalDiabetes bool     `json:"gestationalDiabetes"`
	Active              bool     `json:"active"`
}

var fasting = engine.Table{Kind: engine.KindFastingGlucose, Buckets: []engine.Bucket{
	{UpperBound: 54, Label: SevereHypoglycemia, Description: "Below 54 mg/dL.", Severity: engine.SeverityCritical},
	{UpperBound: 70, Label: "Low", Description: "54-69 mg/dL.", Severity: engine.SeverityCaution},
	{UpperBound: 100, Label: "Normal", Description: "70-99 mg/dL fasting.", Severity: engine.SeverityOK},
	{UpperBound: 126, Label: "Prediabetes", Description: "100-125 mg/dL fasting.", Severity: engine.SeverityCaution},
	{Label: "Diabetes", Description: "126 mg/dL or higher fasting.", Severity: engine.SeverityWarning},
}}

var postMeal = engine.Table{Kind: engine.KindPostMealGlucose, Buckets: []engine.Bucket{
	{UpperBound: 54, Label: SevereHypoglycemia, Description: "Below 54 mg/dL.", Severity: engine.SeverityCritical},
	{UpperBound: 70, Label: "Low", Description: "54-69 mg/dL.", Severity: engine.SeverityCaution},
	{UpperBound: 140, Label: "Normal", Description: "Below 140 mg/dL two hours after eating.", Severity: engine.SeverityOK},
	{UpperBound: 200, Label: "Prediabetes", Description: "140-199 mg/dL two hours after eating.", Severity: engine.SeverityCaution},
	{Label: "Diabetes", Description: "200 mg/dL or higher two hours after eating.", Severity: engine.SeverityWarning},
}}

var hba1c = engine.Table{Kind: engine.KindHbA1c, Buckets: []engine.Bucket{
	{UpperBound: 5.7, Label: "Normal", Description: "Below 5.7%.", Severity: engine.SeverityOK},
	{UpperBound: 6.5, Label: "Prediabetes", Description: "5.7-6.4%.", Severity: engine.SeverityCaution},
	{Label: "Diabetes", Description: "6.5% or higher.", Severity: engine.SeverityWarning},
}}

var tiers = engine.Table{Kind: "diabetes-risk", Buckets: []engine.Bucket{
	{UpperBound: 2, Label: "low", Severity: engine.SeverityOK},
	{UpperBound: 4, Label: "moderate", Severity: engine.SeverityCaution},
	{UpperBound: 6, Label: "high", Severity: engine.SeverityWarning},
	{Label: "very-high", Severity: engine.SeverityWarning},
}}

var glucoseKinds = []engine.Kind{engine.KindFastingGlucose, engine.KindPostMealGlucose, engine.KindHbA1c}

// EstimatedAverageGlucose converts HbA1c (%) to mg/dL using the ADAG equation.
func EstimatedAverageGlucose(a1c float64) float64 { return 28.7*a1c - 46.7 }

// IFCC converts HbA1c from NGSP percent to mmol/mol.
func IFCC(a1c float64) float64 { return (a1c - 2.15) * 10.929 }

// headline is the most severe of the supplied readings; on a tie the first
// in fasting, post-meal, HbA1c order wins.
func headline(readings engine.ReadingSet) *engine.Category {
	var worst *engine.Category
	for _, kind := range glucoseKinds {
		r, ok := readings.Get(kind)
		if !ok || r.Category == nil {
			continue
		}
		if worst == nil || r.Category.Severity.Rank() > worst.Severity.Rank() {
			c := *r.Category
			worst = &c
		}
	}
	return worst
}

type subject = engine.Subject[Input]

func anyLabel(label string) func(subject) bool {
	return func(s subject) bool {
		for _, kind := range glucoseKinds {
			if s.Readings.Label(kind) == label {
				return true
			}
		}
		return false
	}
}

func bmiIn(lo, hi float64) func(subject) bool {
	return func(s subject) bool { return s.Input.BMI != nil && *s.Input.BMI >= lo && *s.Input.BMI < hi }
}

var predicates = []engine.Predicate[subject]{
	{Name: "diabetic_range", Weight: 4, Description: "A reading in the diabetes range", Evaluate: anyLabel("Diabetes")},
	{Name: "prediabetic_range", Weight: 2, Description: "A reading in the prediabetes range", Evaluate: anyLabel("Prediabetes")},
	{Name: "age_45_plus", Weight: 1, Description: "Age 45 or older", Evaluate: func(s subject) bool { return s.Input.Age >= 45 }},
	{Name: "overweight", Weight: 1, Description: "BMI between 25 and 30", Evaluate: bmiIn(25, 30)},
	{Name: "obesity", Weight: 2, Description: "BMI of 30 or more", Evaluate: bmiIn(30, 1000)},
	{Name: "family_history", Weight: 1, Description: "Parent or sibling with diabetes", Evaluate: func(s subject) bool { return s.Input.FamilyHistory }},
	{Name: "hypertension", Weight: 1, Description: "High blood pressure", Evaluate: func(s subject) bool { return s.Input.Hypertension }},
	{Name: "gestational_diabetes", Weight: 1, Description: "History of gestational diabetes", Evaluate: func(s subject) bool { return s.Input.GestationalDiabetes }},
	{Name: "physically_active", Weight: -1, Description: "Regular physical activity", Evaluate: func(s subject) bool { return s.Input.Active }},
}

var recommendations = engine.Mapper{
	"low": {
		Narrative: "Your blood sugar and risk factors suggest a low risk of diabetes.",
		Recommendations: []string{
			"Recheck blood sugar every 3 years from age 35.",
			"Keep up a fiber-rich diet and regular activity.",
		},
	},
	"moderate": {
		Narrative: "You have a moderate risk of developing type 2 diabetes.",
		Recommendations: []string{
			"Cut back on sugary drinks and refined carbohydrates.",
			"Aim for 150 minutes of activity a week.",
			"Recheck blood sugar within a year.",
		},
	},
	"high": {
		Narrative: "Your results indicate a high risk of type 2 diabetes.",
		Recommendations: []string{
			"See your healthcare provider for an HbA1c or glucose tolerance test.",
			"Ask about a diabetes prevention program.",
			"Losing 5 to 7% of body weight lowers risk substantially.",
		},
	},
	"very-high": {
		Narrative: "Your results are consistent with diabetes.",
		Recommendations: []string{
			"Book an appointment with your healthcare provider to confirm the diagnosis.",
			"Ask for a referral to diabetes self-management education.",
			"Monitor your blood sugar as advised.",
		},
	},
	SevereHypoglycemia: {
		Narrative: "Blood sugar below 54 mg/dL is dangerously low.",
		Recommendations: []string{
			"Take 15 to 20 g of fast-acting sugar now and recheck in 15 minutes.",
			"Call emergency services if you are confused, drowsy or cannot eat.",
		},
	},
}

var priorities = map[string]engine.Priority{
	"low":       engine.PriorityRoutine,
	"moderate":  engine.PriorityMonitor,
	"high":      engine.PriorityTreat,
	"very-high": engine.PriorityTreat,
}

func glucoseFlags(kind engine.Kind) []engine.FlagRule {
	return []engine.FlagRule{
		{
			Code: "severe_hypoglycemia", Kind: kind, Level: engine.FlagSevere,
			Breached: func(v float64) bool { return v < 54 },
			Message:  "Severe hypoglycemia. Treat immediately with fast-acting sugar and get help.",
			Recommendations: []string{
				"Take 15 to 20 g of glucose tablets, juice or regular soda.",
				"Call emergency services if symptoms do not improve.",
			},
		},
		{
			Code: "hypoglycemia", Kind: kind, Level: engine.FlagWarning,
			Breached: func(v float64) bool { return v >= 54 && v < 70 },
			Message:  "Low blood sugar. Eat or drink 15 g of fast-acting carbohydrate and recheck.",
		},
		{
			Code: "very_high_glucose", Kind: kind, Level: engine.FlagUrgent,
			Breached: func(v float64) bool { return v >= 300 },
			Message:  "Blood sugar of 300 mg/dL or more. Contact your doctor immediately, especially with nausea, vomiting or confusion.",
			Recommendations: []string{
				"Check for ketones if you have diabetes.",
				"Drink water and seek urgent care if you feel unwell.",
			},
		},
	}
}

func Config() engine.Config[Input] {
	flags := append(glucoseFlags(engine.KindFastingGlucose), glucoseFlags(engine.KindPostMealGlucose)...)
	return engine.Config[Input]{
		Metric: Metric,
		Check:  check,
		Measures: func(in Input) []engine.Measure {
			var ms []engine.Measure
			if in.FastingGlucose != nil {
				ms = append(ms, engine.Measure{Kind: engine.KindFastingGlucose, Value: *in.FastingGlucose, Unit: in.GlucoseUnit})
			}
			if in.PostMealGlucose != nil {
				ms = append(ms, engine.Measure{Kind: engine.KindPostMealGlucose, Value: *in.PostMealGlucose, Unit: in.GlucoseUnit})
			}
			if in.HbA1c != nil {
				ms = append(ms, engine.Measure{Kind: engine.KindHbA1c, Value: *in.HbA1c, Unit: engine.Percent})
			}
			return ms
		},
		Derive: func(in Input, base engine.ReadingSet) engine.Derivation {
			var d engine.Derivation
			if a1c, ok := base.Value(engine.KindHbA1c); ok {
				d.Add(engine.KindEstimatedGlucose, EstimatedAverageGlucose(a1c))
				d.Add(engine.KindHbA1cIFCC, IFCC(a1c))
			}
			return d
		},
		Tables:          []engine.Table{fasting, postMeal, hba1c},
		Scorer:          &engine.Scorer[subject]{Predicates: predicates, Tiers: tiers},
		Headline:        headline,
		Recommendations: recommendations,
		Priorities:      priorities,
		Flags:           flags,
	}
}

func check(in Input) map[string]string {
	if in.FastingGlucose == nil && in.PostMealGlucose == nil && in.HbA1c == nil {
		return map[string]string{"fastingGlucose": "at least one of fastingGlucose, postMealGlucose or hba1c is required"}
	}
	errs := map[string]string{}
	unit := in.GlucoseUnit
	if unit == "" {
		unit = engine.MgPerDL
	}
	plausible := func(field string, v *float64) {
		if v == nil {
			return
		}
		mg, err := engine.Convert(*v, unit, engine.MgPerDL, engine.QuantityGlucose)
		if err == nil && (mg < 10 || mg > 1500) {
			errs[field] = "is outside the plausible range"
		}
	}
	plausible("fastingGlucose", in.FastingGlucose)
	plausible("postMealGlucose", in.PostMealGlucose)
	return errs
}

func New() (*engine.Orchestrator[Input], error) {
	return engine.New(Config())
}
