// Package vitamind analyzes a 25(OH)D level, or estimates one from risk
// factors when no lab value is available, and scores deficiency risk.
package vitamind

import (
	"math"

	"github.com/Skufu/vitalcalc/internal/engine"
)

const Metric = "vitamin-d"

const Toxic = "Potentially toxic"

// Profile holds the factors that drive vitamin D status. Season is an input
// so that the estimate never depends on the current date.
type Profile struct {
	Age           int      `json:"age" validate:"required,min=1,max=120"`
	SkinType      int      `json:"skinType" validate:"required,min=1,max=6"`
	SunExposure   string   `json:"sunExposure" validate:"required,oneof=minimal moderate high"`
	Season        string   `json:"season" validate:"required,oneof=winter spring summer autumn"`
	Latitude      *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	BMI           *float64 `json:"bmi,omitempty" validate:"omitempty,min=10,max=80"`
	Diet          string   `json:"diet" validate:"required,oneof=poor average rich"`
	SupplementIU  int      `json:"supplementIU" validate:"min=0,max=50000"`
	Housebound    bool     `json:"housebound"`
	Malabsorption bool     `json:"malabsorption"`
}

type Input struct {
	Level *float64    `json:"level,omitempty" validate:"omitempty,gt=0"`
	Unit  engine.Unit `json:"unit,omitempty" validate:"omitempty,oneof=ng/mL nmol/L"`
	Profile
}

type Details struct {
	Estimated        bool `json:"estimated"`
	SuggestedDailyIU int  `json:"suggestedDailyIU"`
}

// Estimate predicts a level in ng/mL from risk factors alone. It is a rough
// screening figure, never a substitute for a lab test.
func Estimate(p Profile) float64 {
	level := 30.0

	switch {
	case p.SkinType >= 5:
		level -= 8
	case p.SkinType >= 3:
		level -= 3
	}
	switch p.SunExposure {
	case "minimal":
		level -= 8
	case "high":
		level += 5
	}
	switch p.Season {
	case "winter":
		level -= 7
	case "autumn":
		level -= 3
	case "summer":
		level += 5
	}
	switch p.Diet {
	case "poor":
		level -= 3
	case "rich":
		level += 3
	}
	if p.Age >= 65 {
		level -= 5
	}
	if p.BMI != nil && *p.BMI >= 30 {
		level -= 5
	}
	if p.Latitude != nil && math.Abs(*p.Latitude) >= 40 {
		level -= 4
	}
	if p.Housebound {
		level -= 6
	}
	if p.Malabsorption {
		level -= 5
	}
	// roughly 1 ng/mL per 100 IU daily, tapering off past 3000 IU
	level += math.Min(float64(p.SupplementIU)/100, 30)

	return math.Max(level, 5)
}

var levels = engine.Table{Kind: engine.KindVitaminD, Buckets: []engine.Bucket{
	{UpperBound: 12, Label: "Deficient", Description: "Below 12 ng/mL.", Severity: engine.SeverityWarning},
	{UpperBound: 20, Label: "Insufficient", Description: "12-19 ng/mL.", Severity: engine.SeverityCaution},
	{UpperBound: 30, Label: "Suboptimal", Description: "20-29 ng/mL.", Severity: engine.SeverityCaution},
	{UpperBound: 100, Label: "Sufficient", Description: "30-99 ng/mL.", Severity: engine.SeverityOK},
	{UpperBound: 150, Label: "High", Description: "100-149 ng/mL.", Severity: engine.SeverityCaution},
	{Label: Toxic, Description: "150 ng/mL and above.", Severity: engine.SeverityCritical},
}}

var tiers = engine.Table{Kind: "vitamin-d-risk", Buckets: []engine.Bucket{
	{UpperBound: 3, Label: "low", Severity: engine.SeverityOK},
	{UpperBound: 6, Label: "moderate", Severity: engine.SeverityCaution},
	{UpperBound: 9, Label: "high", Severity: engine.SeverityWarning},
	{Label: "very-high", Severity: engine.SeverityWarning},
}}

type subject = engine.Subject[Input]

var predicates = []engine.Predicate[subject]{
	{Name: "low_level", Weight: 3, Description: "Level below 20 ng/mL", Evaluate: func(s subject) bool { return s.Readings.Below(engine.KindVitaminD, 20) }},
	{Name: "dark_skin", Weight: 2, Description: "Skin type V or VI", Evaluate: func(s subject) bool { return s.Input.SkinType >= 5 }},
	{Name: "limited_sun", Weight: 2, Description: "Minimal sun exposure", Evaluate: func(s subject) bool { return s.Input.SunExposure == "minimal" }},
	{Name: "winter", Weight: 2, Description: "Winter months", Evaluate: func(s subject) bool { return s.Input.Season == "winter" }},
	{Name: "autumn", Weight: 1, Description: "Autumn months", Evaluate: func(s subject) bool { return s.Input.Season == "autumn" }},
	{Name: "high_latitude", Weight: 1, Description: "Living at 40 degrees latitude or further from the equator", Evaluate: func(s subject) bool {
		return s.Input.Latitude != nil && math.Abs(*s.Input.Latitude) >= 40
	}},
	{Name: "age_65_plus", Weight: 1, Description: "Age 65 or older", Evaluate: func(s subject) bool { return s.Input.Age >= 65 }},
	{Name: "obesity", Weight: 2, Description: "BMI of 30 or more", Evaluate: func(s subject) bool { return s.Input.BMI != nil && *s.Input.BMI >= 30 }},
	{Name: "poor_diet", Weight: 1, Description: "Little oily fish, eggs or fortified food", Evaluate: func(s subject) bool { return s.Input.Diet == "poor" }},
	{Name: "housebound", Weight: 2, Description: "Housebound or rarely outdoors", Evaluate: func(s subject) bool { return s.Input.Housebound }},
	{Name: "malabsorption", Weight: 2, Description: "Condition affecting fat absorption", Evaluate: func(s subject) bool { return s.Input.Malabsorption }},
	{Name: "supplementing", Weight: -2, Description: "Taking 1000 IU or more daily", Evaluate: func(s subject) bool { return s.Input.SupplementIU >= 1000 }},
	{Name: "regular_sun", Weight: -1, Description: "High sun exposure", Evaluate: func(s subject) bool { return s.Input.SunExposure == "high" }},
}

var recommendations = engine.Mapper{
	"low": {
		Narrative: "Your risk of vitamin D deficiency is low.",
		Recommendations: []string{
			"Keep getting some midday sun and vitamin D rich foods.",
		},
	},
	"moderate": {
		Narrative: "You have several factors that lower vitamin D.",
		Recommendations: []string{
			"Consider a 1000 IU daily supplement, especially in winter.",
			"Eat oily fish, eggs and fortified dairy a few times a week.",
		},
	},
	"high": {
		Narrative: "Your risk of vitamin D deficiency is high.",
		Recommendations: []string{
			"Ask your healthcare provider for a 25(OH)D blood test.",
			"A daily supplement of 1000 to 2000 IU is often recommended.",
		},
	},
	"very-high": {
		Narrative: "You are very likely to be deficient in vitamin D.",
		Recommendations: []string{
			"Get a 25(OH)D blood test.",
			"Discuss a repletion dose with your healthcare provider.",
			"Review calcium intake and bone health.",
		},
	},
	Toxic: {
		Narrative: "A vitamin D level this high can cause hypercalcemia.",
		Recommendations: []string{
			"Stop vitamin D supplements and contact your healthcare provider now.",
			"Seek care for nausea, confusion, excessive thirst or irregular heartbeat.",
		},
	},
}

var priorities = map[string]engine.Priority{
	"low":       engine.PriorityRoutine,
	"moderate":  engine.PriorityMonitor,
	"high":      engine.PriorityTreat,
	"very-high": engine.PriorityTreat,
}

// suggestedIU is the daily intake commonly advised for a level in ng/mL.
func suggestedIU(level float64) int {
	switch {
	case level < 12:
		return 4000
	case level < 20:
		return 2000
	case level < 30:
		return 1000
	case level < 100:
		return 600
	default:
		return 0
	}
}

func Config() engine.Config[Input] {
	return engine.Config[Input]{
		Metric: Metric,
		Measures: func(in Input) []engine.Measure {
			if in.Level == nil {
				return []engine.Measure{{Kind: engine.KindVitaminD, Value: Estimate(in.Profile), Unit: engine.NgPerML, Estimated: true}}
			}
			return []engine.Measure{{Kind: engine.KindVitaminD, Value: *in.Level, Unit: in.Unit}}
		},
		Check: func(in Input) map[string]string {
			if in.Level == nil {
				return nil
			}
			ng, err := engine.Convert(*in.Level, unitOrDefault(in.Unit), engine.NgPerML, engine.QuantityVitaminD)
			if err == nil && ng > 400 {
				return map[string]string{"level": "is outside the plausible range"}
			}
			return nil
		},
		Tables:          []engine.Table{levels},
		Scorer:          &engine.Scorer[subject]{Predicates: predicates, Tiers: tiers},
		Primary:         engine.KindVitaminD,
		Recommendations: recommendations,
		Priorities:      priorities,
		Flags: []engine.FlagRule{
			{
				Code: "severe_deficiency", Kind: engine.KindVitaminD, Level: engine.FlagWarning,
				Breached: func(v float64) bool { return v < 10 },
				Message:  "Severe vitamin D deficiency raises the risk of osteomalacia and fractures.",
				Recommendations: []string{
					"See your healthcare provider about a treatment dose.",
				},
			},
			{
				Code: "toxicity", Kind: engine.KindVitaminD, Level: engine.FlagUrgent,
				Breached: func(v float64) bool { return v >= 150 },
				Message:  "Vitamin D at a potentially toxic level. Stop supplements and contact your doctor immediately.",
				Recommendations: []string{
					"Have your calcium level checked.",
				},
			},
		},
		Details: func(in Input, all engine.ReadingSet) any {
			r, _ := all.Get(engine.KindVitaminD)
			return Details{Estimated: r.Estimated, SuggestedDailyIU: suggestedIU(r.Value)}
		},
	}
}

func unitOrDefault(u engine.Unit) engine.Unit {
	if u == "" {
		return engine.NgPerML
	}
	return u
}

func New() (*engine.Orchestrator[Input], error) {
	return engine.New(Config())
}
