// Package calorie computes basal metabolic rate (Mifflin-St Jeor), total
// daily energy expenditure and a goal calorie target with a safe floor.
package calorie

import (
	"github.com/Skufu/vitalcalc/internal/calculators/bmi"
	"github.com/Skufu/vitalcalc/internal/engine"
)

const Metric = "calorie"

const (
	goalDelta   = 500.0
	kcalPerKg   = 7700.0
	floorMale   = 1500.0
	floorFemale = 1200.0
)

var activityFactors = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very-active": 1.9,
}

type Input struct {
	Age           int         `json:"age" validate:"required,min=15,max=100"`
	Sex           string      `json:"sex" validate:"required,oneof=male female"`
	Weight        float64     `json:"weight" validate:"required,gt=0"`
	WeightUnit    engine.Unit `json:"weightUnit" validate:"required,oneof=kg lb"`
	Height        float64     `json:"height" validate:"required,gt=0"`
	HeightUnit    engine.Unit `json:"heightUnit" validate:"required,oneof=cm in"`
	ActivityLevel string      `json:"activityLevel" validate:"required,oneof=sedentary light moderate active very-active"`
	Goal          string      `json:"goal" validate:"required,oneof=lose maintain gain"`
}

type Macros struct {
	ProteinGrams float64 `json:"proteinGrams"`
	CarbGrams    float64 `json:"carbGrams"`
	FatGrams     float64 `json:"fatGrams"`
}

type Details struct {
	Macros           Macros  `json:"macros"`
	WeeklyChangeKg   float64 `json:"weeklyChangeKg"`
	FloorApplied     bool    `json:"floorApplied"`
	UnadjustedTarget float64 `json:"unadjustedTarget"`
}

// BMR is the Mifflin-St Jeor resting energy expenditure in kcal/day.
func BMR(sex string, weightKg, heightCm float64, age int) float64 {
	bmr := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if sex == "female" {
		return bmr - 161
	}
	return bmr + 5
}

// Adjusted applies the goal to tdee: a 500 kcal deficit or surplus.
func Adjusted(tdee float64, goal string) float64 {
	switch goal {
	case "lose":
		return tdee - goalDelta
	case "gain":
		return tdee + goalDelta
	default:
		return tdee
	}
}

// Target is Adjusted raised to the sex-specific minimum. It reports whether
// the floor was applied.
func Target(tdee float64, goal, sex string) (target float64, floored bool) {
	target = Adjusted(tdee, goal)
	floor := floorMale
	if sex == "female" {
		floor = floorFemale
	}
	if target < floor {
		return floor, true
	}
	return target, false
}

// Split divides kcal into 30% protein, 40% carbohydrate and 30% fat by grams.
func Split(kcal float64) Macros {
	return Macros{
		ProteinGrams: kcal * 0.30 / 4,
		CarbGrams:    kcal * 0.40 / 4,
		FatGrams:     kcal * 0.30 / 9,
	}
}

var recommendations = engine.Mapper{
	"Underweight": {
		Narrative: "Your BMI is below the healthy range, so a calorie surplus is usually advised.",
		Recommendations: []string{
			"Add 300 to 500 kcal a day from nutrient-dense foods.",
			"Pair extra calories with strength training.",
		},
	},
	"Normal weight": {
		Narrative: "Your BMI is in the healthy range.",
		Recommendations: []string{
			"Eat close to your maintenance calories to keep your weight stable.",
			"Prioritize protein, fiber and whole foods.",
		},
	},
	"Overweight": {
		Narrative: "A moderate calorie deficit can bring your weight into the healthy range.",
		Recommendations: []string{
			"A 500 kcal daily deficit leads to roughly 0.5 kg loss per week.",
			"Keep protein high to preserve muscle while losing weight.",
		},
	},
	"Obesity class I": {
		Narrative: "Reducing calories steadily will lower weight-related health risks.",
		Recommendations: []string{
			"Aim for a 500 to 750 kcal daily deficit.",
			"Track intake for a few weeks to learn portion sizes.",
			"Combine diet changes with regular activity.",
		},
	},
	"Obesity class II": {
		Narrative: "Medical support improves the success of weight loss at this BMI.",
		Recommendations: []string{
			"Work with a healthcare provider or dietitian on a calorie plan.",
			"Ask about structured weight management programs.",
		},
	},
	"Obesity class III": {
		Narrative: "Weight loss at this BMI is best managed with medical supervision.",
		Recommendations: []string{
			"See a healthcare provider about medical and surgical options.",
			"Avoid very low calorie diets without supervision.",
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

func Config() engine.Config[Input] {
	return engine.Config[Input]{
		Metric: Metric,
		Measures: func(in Input) []engine.Measure {
			return []engine.Measure{
				{Kind: engine.KindWeight, Value: in.Weight, Unit: in.WeightUnit},
				{Kind: engine.KindHeight, Value: in.Height, Unit: in.HeightUnit},
			}
		},
		Check: func(in Input) map[string]string {
			errs := map[string]string{}
			if kg, err := engine.Convert(in.Weight, in.WeightUnit, engine.Kilogram, engine.QuantityMass); err == nil && (kg < 30 || kg > 300) {
				errs["weight"] = "must be between 30 and 300 kg"
			}
			if cm, err := engine.Convert(in.Height, in.HeightUnit, engine.Centimeter, engine.QuantityLength); err == nil && (cm < 120 || cm > 250) {
				errs["height"] = "must be between 120 and 250 cm"
			}
			return errs
		},
		Derive: func(in Input, base engine.ReadingSet) engine.Derivation {
			var d engine.Derivation
			kg, _ := base.Value(engine.KindWeight)
			cm, _ := base.Value(engine.KindHeight)
			bmr := BMR(in.Sex, kg, cm, in.Age)
			tdee := bmr * activityFactors[in.ActivityLevel]
			target, _ := Target(tdee, in.Goal, in.Sex)
			d.Add(engine.KindBMI, bmi.Compute(kg, cm))
			d.Add(engine.KindBMR, bmr)
			d.Add(engine.KindTDEE, tdee)
			d.Add(engine.KindCalorieTarget, target)
			return d
		},
		Tables:          []engine.Table{bmi.Table},
		Primary:         engine.KindBMI,
		Recommendations: recommendations,
		Priorities:      priorities,
		Flags: []engine.FlagRule{{
			Code: "low_calorie_target", Kind: engine.KindCalorieTarget, Level: engine.FlagCaution,
			Breached: func(v float64) bool { return v < floorMale },
			Message:  "Targets under 1,500 kcal make it hard to meet nutrient needs. Do not go below 1,200 kcal (women) or 1,500 kcal (men) without medical supervision.",
			Recommendations: []string{
				"Consider a smaller deficit combined with more activity.",
			},
		}},
		Details: func(in Input, all engine.ReadingSet) any {
			tdee, _ := all.Value(engine.KindTDEE)
			target, floored := Target(tdee, in.Goal, in.Sex)
			return Details{
				Macros:           Split(target),
				WeeklyChangeKg:   (target - tdee) * 7 / kcalPerKg,
				FloorApplied:     floored,
				UnadjustedTarget: Adjusted(tdee, in.Goal),
			}
		},
	}
}

func New() (*engine.Orchestrator[Input], error) {
	return engine.New(Config())
}
