// Package bloodpressure categorizes a blood pressure reading on the AHA scale
// and scores cardiovascular risk from the reading plus lifestyle factors.
package bloodpressure

import "github.com/Skufu/vitalcalc/internal/engine"

const Metric = "blood-pressure"

const (
	Low      = "Low Blood Pressure"
	Normal   = "Normal"
	Elevated = "Elevated"
	Stage1   = "High Blood Pressure (Stage 1)"
	Stage2   = "High Blood Pressure (Stage 2)"
	Crisis   = "Hypertensive Crisis"
)

type Input struct {
	Systolic      float64  `json:"systolic" validate:"required,min=70,max=250,gtfield=Diastolic"`
	Diastolic     float64  `json:"diastolic" validate:"required,min=40,max=150"`
	Pulse         *float64 `json:"pulse,omitempty" validate:"omitempty,min=30,max=220"`
	Age           int      `json:"age" validate:"required,min=18,max=120"`
	BMI           *float64 `json:"bmi,omitempty" validate:"omitempty,min=10,max=80"`
	Smoker        bool     `json:"smoker"`
	Diabetes      bool     `json:"diabetes"`
	KidneyDisease bool     `json:"kidneyDisease"`
	FamilyHistory bool     `json:"familyHistory"`
	HighSodium    bool     `json:"highSodium"`
	Active        bool     `json:"active"`
}

var Systolic = engine.Table{Kind: engine.KindSystolic, Buckets: []engine.Bucket{
	{UpperBound: 90, Label: Low, Description: "Systolic below 90 mmHg.", Severity: engine.SeverityCaution},
	{UpperBound: 120, Label: Normal, Description: "Systolic below 120 mmHg.", Severity: engine.SeverityOK},
	{UpperBound: 130, Label: Elevated, Description: "Systolic 120-129 mmHg.", Severity: engine.SeverityCaution},
	{UpperBound: 140, Label: Stage1, Description: "Systolic 130-139 mmHg.", Severity: engine.SeverityWarning},
	{UpperBound: 180, Label: Stage2, Description: "Systolic 140 mmHg or higher.", Severity: engine.SeverityWarning},
	{Label: Crisis, Description: "Systolic 180 mmHg or higher.", Severity: engine.SeverityCritical},
}}

var Diastolic = engine.Table{Kind: engine.KindDiastolic, Buckets: []engine.Bucket{
	{UpperBound: 60, Label: Low, Description: "Diastolic below 60 mmHg.", Severity: engine.SeverityCaution},
	{UpperBound: 80, Label: Normal, Description: "Diastolic below 80 mmHg.", Severity: engine.SeverityOK},
	{UpperBound: 90, Label: Stage1, Description: "Diastolic 80-89 mmHg.", Severity: engine.SeverityWarning},
	{UpperBound: 120, Label: Stage2, Description: "Diastolic 90 mmHg or higher.", Severity: engine.SeverityWarning},
	{Label: Crisis, Description: "Diastolic 120 mmHg or higher.", Severity: engine.SeverityCritical},
}}

var meanArterial = engine.Table{Kind: engine.KindMeanArterial, Buckets: []engine.Bucket{
	{UpperBound: 70, Label: "Low perfusion pressure", Severity: engine.SeverityCaution},
	{UpperBound: 100, Label: "Normal perfusion pressure", Severity: engine.SeverityOK},
	{Label: "High perfusion pressure", Severity: engine.SeverityCaution},
}}

var pulsePressure = engine.Table{Kind: engine.KindPulsePressure, Buckets: []engine.Bucket{
	{UpperBound: 25, Label: "Narrow pulse pressure", Severity: engine.SeverityCaution},
	{UpperBound: 60, Label: "Normal pulse pressure", Severity: engine.SeverityOK},
	{Label: "Wide pulse pressure", Severity: engine.SeverityCaution},
}}

var tiers = engine.Table{Kind: "blood-pressure-risk", Buckets: []engine.Bucket{
	{UpperBound: 2, Label: "low", Severity: engine.SeverityOK},
	{UpperBound: 4, Label: "moderate", Severity: engine.SeverityCaution},
	{UpperBound: 7, Label: "high", Severity: engine.SeverityWarning},
	{Label: "critical", Severity: engine.SeverityCritical},
}}

// rank orders the shared labels of both tables, worst last.
var rank = map[string]int{Normal: 0, Low: 1, Elevated: 2, Stage1: 3, Stage2: 4, Crisis: 5}

// Overall is the worse of the systolic and diastolic categories.
func Overall(readings engine.ReadingSet) *engine.Category {
	var worst *engine.Category
	for _, kind := range []engine.Kind{engine.KindSystolic, engine.KindDiastolic} {
		r, ok := readings.Get(kind)
		if !ok || r.Category == nil {
			continue
		}
		if worst == nil || rank[r.Category.Label] > rank[worst.Label] {
			c := *r.Category
			worst = &c
		}
	}
	return worst
}

type subject = engine.Subject[Input]

func overallIs(label string) func(subject) bool {
	return func(s subject) bool {
		c := Overall(s.Readings)
		return c != nil && c.Label == label
	}
}

var predicates = []engine.Predicate[subject]{
	{Name: "hypertensive_crisis", Weight: 8, Description: "Reading in the hypertensive crisis range", Evaluate: overallIs(Crisis)},
	{Name: "stage_2", Weight: 4, Description: "Stage 2 hypertension", Evaluate: overallIs(Stage2)},
	{Name: "stage_1", Weight: 2, Description: "Stage 1 hypertension", Evaluate: overallIs(Stage1)},
	{Name: "elevated", Weight: 1, Description: "Elevated blood pressure", Evaluate: overallIs(Elevated)},
	{Name: "age_65_plus", Weight: 1, Description: "Age 65 or older", Evaluate: func(s subject) bool { return s.Input.Age >= 65 }},
	{Name: "smoker", Weight: 1, Description: "Current smoker", Evaluate: func(s subject) bool { return s.Input.Smoker }},
	{Name: "diabetes", Weight: 2, Description: "Diabetes", Evaluate: func(s subject) bool { return s.Input.Diabetes }},
	{Name: "kidney_disease", Weight: 2, Description: "Chronic kidney disease", Evaluate: func(s subject) bool { return s.Input.KidneyDisease }},
	{Name: "family_history", Weight: 1, Description: "Family history of hypertension", Evaluate: func(s subject) bool { return s.Input.FamilyHistory }},
	{Name: "obesity", Weight: 1, Description: "BMI of 30 or more", Evaluate: func(s subject) bool { return s.Input.BMI != nil && *s.Input.BMI >= 30 }},
	{Name: "high_sodium", Weight: 1, Description: "High sodium diet", Evaluate: func(s subject) bool { return s.Input.HighSodium }},
	{Name: "resting_pulse_high", Weight: 1, Description: "Resting pulse above 100 bpm", Evaluate: func(s subject) bool {
		v, ok := s.Readings.Value(engine.KindPulse)
		return ok && v > 100
	}},
	{Name: "physically_active", Weight: -1, Description: "Regular physical activity", Evaluate: func(s subject) bool { return s.Input.Active }},
}

var recommendations = engine.Mapper{
	"low": {
		Narrative: "Your blood pressure and risk profile look healthy.",
		Recommendations: []string{
			"Recheck your blood pressure at least once a year.",
			"Keep a diet rich in vegetables, fruit and whole grains.",
		},
	},
	"moderate": {
		Narrative: "You have some factors that raise your cardiovascular risk.",
		Recommendations: []string{
			"Limit sodium to under 2,300 mg a day.",
			"Aim for 150 minutes of moderate exercise per week.",
			"Monitor your blood pressure at home every few weeks.",
		},
	},
	"high": {
		Narrative: "Your blood pressure and risk factors call for medical follow-up.",
		Recommendations: []string{
			"Schedule an appointment with your healthcare provider.",
			"Ask whether medication is appropriate alongside lifestyle changes.",
			"Track home readings twice a day for a week before the visit.",
		},
	},
	"critical": {
		Narrative: "Your reading is in a dangerous range.",
		Recommendations: []string{
			"Wait five minutes and measure again.",
			"If it stays this high, contact emergency services or your doctor immediately.",
		},
	},
	Crisis: {
		Narrative: "A hypertensive crisis needs immediate medical attention.",
		Recommendations: []string{
			"Call emergency services if you have chest pain, shortness of breath, back pain, numbness, weakness, vision change or difficulty speaking.",
			"Do not wait to see whether the pressure comes down on its own.",
		},
	},
}

var priorities = map[string]engine.Priority{
	"low":      engine.PriorityRoutine,
	"moderate": engine.PriorityMonitor,
	"high":     engine.PriorityTreat,
	"critical": engine.PriorityUrgent,
}

func Config() engine.Config[Input] {
	return engine.Config[Input]{
		Metric: Metric,
		Measures: func(in Input) []engine.Measure {
			ms := []engine.Measure{
				{Kind: engine.KindSystolic, Value: in.Systolic, Unit: engine.MmHg},
				{Kind: engine.KindDiastolic, Value: in.Diastolic, Unit: engine.MmHg},
			}
			if in.Pulse != nil {
				ms = append(ms, engine.Measure{Kind: engine.KindPulse, Value: *in.Pulse, Unit: engine.BPM})
			}
			return ms
		},
		Derive: func(in Input, base engine.ReadingSet) engine.Derivation {
			var d engine.Derivation
			sys, _ := base.Value(engine.KindSystolic)
			dia, _ := base.Value(engine.KindDiastolic)
			d.AddComposite(engine.KindMeanArterial, (sys+2*dia)/3)
			d.AddComposite(engine.KindPulsePressure, sys-dia)
			return d
		},
		Tables:          []engine.Table{Systolic, Diastolic, meanArterial, pulsePressure},
		Scorer:          &engine.Scorer[subject]{Predicates: predicates, Tiers: tiers},
		Headline:        Overall,
		Recommendations: recommendations,
		Priorities:      priorities,
		Flags: []engine.FlagRule{
			{
				Code: "hypertensive_crisis", Kind: engine.KindSystolic, Level: engine.FlagUrgent,
				Breached: func(v float64) bool { return v >= 180 },
				Message:  "Hypertensive crisis: contact emergency services immediately.",
				Recommendations: []string{
					"Call your local emergency number now if you have symptoms of organ damage.",
					"Otherwise recheck in five minutes and contact your doctor right away.",
				},
			},
			{
				Code: "hypertensive_crisis", Kind: engine.KindDiastolic, Level: engine.FlagUrgent,
				Breached: func(v float64) bool { return v >= 120 },
				Message:  "Hypertensive crisis: contact emergency services immediately.",
				Recommendations: []string{
					"Call your local emergency number now if you have symptoms of organ damage.",
					"Otherwise recheck in five minutes and contact your doctor right away.",
				},
			},
			{
				Code: "hypotension", Kind: engine.KindSystolic, Level: engine.FlagCaution,
				Breached: func(v float64) bool { return v < 90 },
				Message:  "Low blood pressure. Seek care if you feel dizzy, faint or confused.",
			},
			{
				Code: "hypotension", Kind: engine.KindDiastolic, Level: engine.FlagCaution,
				Breached: func(v float64) bool { return v < 60 },
				Message:  "Low blood pressure. Seek care if you feel dizzy, faint or confused.",
			},
			{
				Code: "abnormal_pulse", Kind: engine.KindPulse, Level: engine.FlagCaution,
				Breached: func(v float64) bool { return v < 40 || v >= 130 },
				Message:  "Resting pulse is outside the expected range.",
				Recommendations: []string{
					"Recheck after resting quietly for five minutes.",
				},
			},
		},
	}
}

func New() (*engine.Orchestrator[Input], error) {
	return engine.New(Config())
}
