// Package hydration estimates daily water need from body weight, activity,
// climate and physiological state, and compares it with reported intake.
package hydration

import (
	"fmt"
	"math"
	"slices"

	"github.com/Skufu/vitalcalc/internal/engine"
)

const Metric = "hydration"

const (
	mlPerKg         = 35.0
	mlPer30MinSport = 350.0
	cupMl           = 250.0
	wakingHours     = 16.0
	maxIntakeMl     = 20000.0
)

type Input struct {
	Weight          float64     `json:"weight" validate:"required,gt=0"`
	WeightUnit      engine.Unit `json:"weightUnit" validate:"required,oneof=kg lb"`
	Age             int         `json:"age" validate:"required,min=1,max=120"`
	ActivityMinutes int         `json:"activityMinutes" validate:"min=0,max=600"`
	Climate         string      `json:"climate" validate:"required,oneof=cold temperate hot"`
	Pregnant        bool        `json:"pregnant"`
	Breastfeeding   bool        `json:"breastfeeding"`
	Illness         bool        `json:"illness"`
	Diuretics       bool        `json:"diuretics"`
	Intake          *float64    `json:"intake,omitempty" validate:"omitempty,gt=0"`
	IntakeUnit      engine.Unit `json:"intakeUnit,omitempty"`
}

type Details struct {
	NeedLiters      float64 `json:"needLiters"`
	NeedCups        float64 `json:"needCups"`
	NeedFluidOunces float64 `json:"needFluidOunces"`
	HourlyTargetMl  float64 `json:"hourlyTargetMl"`
}

// DailyNeed returns the recommended fluid intake in ml for a body weight in kg.
func DailyNeed(in Input, weightKg float64) float64 {
	need := weightKg * mlPerKg
	need += float64(in.ActivityMinutes) / 30 * mlPer30MinSport
	if in.Climate == "hot" {
		need += 500
	}
	if in.Pregnant {
		need += 300
	}
	if in.Breastfeeding {
		need += 700
	}
	if in.Illness {
		need += 500
	}
	return need
}

var ratio = engine.Table{Kind: engine.KindHydrationRatio, Buckets: []engine.Bucket{
	{UpperBound: 0.5, Label: "Severely under-hydrated", Description: "Less than half of your daily need.", Severity: engine.SeverityWarning},
	{UpperBound: 0.8, Label: "Under-hydrated", Description: "50-79% of your daily need.", Severity: engine.SeverityCaution},
	{UpperBound: 1.2, Label: "Well hydrated", Description: "Close to your daily need.", Severity: engine.SeverityOK},
	{UpperBound: 2, Label: "Above need", Severity: engine.SeverityOK},
	{Label: "Excessive intake", Description: "Twice your daily need or more.", Severity: engine.SeverityCaution},
}}

var tiers = engine.Table{Kind: "dehydration-risk", Buckets: []engine.Bucket{
	{UpperBound: 2, Label: "low", Severity: engine.SeverityOK},
	{UpperBound: 4, Label: "moderate", Severity: engine.SeverityCaution},
	{UpperBound: 6, Label: "high", Severity: engine.SeverityWarning},
	{Label: "very-high", Severity: engine.SeverityWarning},
}}

type subject = engine.Subject[Input]

var predicates = []engine.Predicate[subject]{
	{Name: "low_intake", Weight: 3, Description: "Drinking less than 80% of daily need", Evaluate: func(s subject) bool { return s.Readings.Below(engine.KindHydrationRatio, 0.8) }},
	{Name: "hot_climate", Weight: 2, Description: "Hot climate", Evaluate: func(s subject) bool { return s.Input.Climate == "hot" }},
	{Name: "high_activity", Weight: 2, Description: "An hour or more of exercise a day", Evaluate: func(s subject) bool { return s.Input.ActivityMinutes >= 60 }},
	{Name: "illness", Weight: 3, Description: "Fever, vomiting or diarrhea", Evaluate: func(s subject) bool { return s.Input.Illness }},
	{Name: "age_65_plus", Weight: 1, Description: "Age 65 or older, when thirst is less reliable", Evaluate: func(s subject) bool { return s.Input.Age >= 65 }},
	{Name: "pregnant_or_breastfeeding", Weight: 1, Description: "Pregnant or breastfeeding", Evaluate: func(s subject) bool { return s.Input.Pregnant || s.Input.Breastfeeding }},
	{Name: "diuretics", Weight: 1, Description: "Regular alcohol, caffeine or diuretic medication", Evaluate: func(s subject) bool { return s.Input.Diuretics }},
	{Name: "meeting_need", Weight: -1, Description: "Drinking at least the daily need", Evaluate: func(s subject) bool { return s.Readings.AtLeast(engine.KindHydrationRatio, 1) }},
}

var recommendations = engine.Mapper{
	"low": {
		Narrative: "Your risk of dehydration is low.",
		Recommendations: []string{
			"Keep a water bottle within reach through the day.",
			"Pale yellow urine is a good sign of adequate hydration.",
		},
	},
	"moderate": {
		Narrative: "Some of your circumstances raise your fluid needs.",
		Recommendations: []string{
			"Drink a glass of water with every meal and snack.",
			"Add 350 ml for every 30 minutes of exercise.",
		},
	},
	"high": {
		Narrative: "You are at high risk of dehydration.",
		Recommendations: []string{
			"Spread fluids evenly across the day rather than drinking large amounts at once.",
			"Use an oral rehydration solution during illness or heavy sweating.",
			"Watch for dark urine, dizziness and headache.",
		},
	},
	"very-high": {
		Narrative: "Your fluid intake is well short of what your body needs right now.",
		Recommendations: []string{
			"Start drinking small amounts regularly now.",
			"Seek medical care if you cannot keep fluids down or feel confused.",
		},
	},
}

var priorities = map[string]engine.Priority{
	"low":       engine.PriorityRoutine,
	"moderate":  engine.PriorityMonitor,
	"high":      engine.PriorityTreat,
	"very-high": engine.PriorityTreat,
}

func Config() engine.Config[Input] {
	return engine.Config[Input]{
		Metric: Metric,
		Check:  check,
		Measures: func(in Input) []engine.Measure {
			ms := []engine.Measure{
				{Kind: engine.KindWeight, Value: in.Weight, Unit: in.WeightUnit},
				{Kind: engine.KindActivityMinutes, Value: float64(in.ActivityMinutes), Unit: engine.Minutes},
			}
			if in.Intake != nil {
				ms = append(ms, engine.Measure{Kind: engine.KindWaterIntake, Value: *in.Intake, Unit: in.IntakeUnit})
			}
			return ms
		},
		Derive: func(in Input, base engine.ReadingSet) engine.Derivation {
			var d engine.Derivation
			kg, _ := base.Value(engine.KindWeight)
			need := DailyNeed(in, kg)
			d.Add(engine.KindWaterNeed, need)
			if intake, ok := base.Value(engine.KindWaterIntake); ok {
				d.Add(engine.KindHydrationRatio, intake/need)
			} else {
				d.Fail(engine.KindHydrationRatio, &engine.DomainInvalidError{
					Kind: engine.KindHydrationRatio, Code: engine.CodeInsufficientData, Reason: "no daily intake reported",
				})
			}
			return d
		},
		Tables:          []engine.Table{ratio},
		Scorer:          &engine.Scorer[subject]{Predicates: predicates, Tiers: tiers},
		Primary:         engine.KindHydrationRatio,
		Recommendations: recommendations,
		Priorities:      priorities,
		Flags: []engine.FlagRule{
			{
				Code: "dehydration", Kind: engine.KindHydrationRatio, Level: engine.FlagWarning,
				Breached: func(v float64) bool { return v < 0.5 },
				Message:  "You are drinking less than half of your daily need.",
				Recommendations: []string{
					"Seek care for dizziness, confusion, a racing heart or very little urine.",
				},
			},
			{
				Code: "overhydration", Kind: engine.KindHydrationRatio, Level: engine.FlagCaution,
				Breached: func(v float64) bool { return v >= 2 },
				Message:  "Drinking far more than you need can dilute blood sodium (hyponatremia).",
				Recommendations: []string{
					"Do not drink more than about 1 liter per hour.",
					"Use electrolyte drinks during long endurance events.",
				},
			},
			{
				Code: "overhydration", Kind: engine.KindWaterIntake, Level: engine.FlagCaution,
				Breached: func(v float64) bool { return v >= 6000 },
				Message:  "Drinking far more than you need can dilute blood sodium (hyponatremia).",
			},
		},
		Details: func(in Input, all engine.ReadingSet) any {
			need, _ := all.Value(engine.KindWaterNeed)
			oz, _ := engine.Convert(need, engine.Milliliter, engine.FluidOunce, engine.QuantityVolume)
			return Details{
				NeedLiters:      need / 1000,
				NeedCups:        math.Ceil(need / cupMl),
				NeedFluidOunces: oz,
				HourlyTargetMl:  need / wakingHours,
			}
		},
	}
}

func check(in Input) map[string]string {
	errs := map[string]string{}
	if kg, err := engine.Convert(in.Weight, in.WeightUnit, engine.Kilogram, engine.QuantityMass); err == nil && (kg < 3 || kg > 400) {
		errs["weight"] = "must be between 3 and 400 kg"
	}
	if in.IntakeUnit != "" && !slices.Contains(engine.Units(engine.QuantityVolume), in.IntakeUnit) {
		errs["intakeUnit"] = fmt.Sprintf("must be one of: %s, %s, %s", engine.Milliliter, engine.Liter, engine.FluidOunce)
	} else if in.Intake != nil {
		unit := in.IntakeUnit
		if unit == "" {
			unit = engine.Milliliter
		}
		if ml, err := engine.Convert(*in.Intake, unit, engine.Milliliter, engine.QuantityVolume); err != nil || ml > maxIntakeMl {
			errs["intake"] = "must be at most 20 L a day"
		}
	}
	if in.Pregnant && in.Age < 12 {
		errs["pregnant"] = "is implausible at this age"
	}
	return errs
}

func New() (*engine.Orchestrator[Input], error) {
	return engine.New(Config())
}
