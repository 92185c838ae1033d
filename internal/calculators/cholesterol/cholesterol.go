// Package cholesterol assesses a lipid panel: per-reading NCEP ATP III
// categories, Friedewald LDL when no direct LDL is given, lipid ratios and a
// weighted cardiovascular risk score.
package cholesterol

import "github.com/Skufu/vitalcalc/internal/engine"

const Metric = "cholesterol"

// FriedewaldLimit is the triglyceride level (mg/dL) at and above which the
// Friedewald estimate is invalid.
const FriedewaldLimit = 400

const SevereHypertriglyceridemia = "Severe hypertriglyceridemia"

type Input struct {
	Total         float64     `json:"totalCholesterol" validate:"required,gt=0"`
	HDL           float64     `json:"hdl" validate:"required,gt=0,ltfield=Total"`
	LDL           *float64    `json:"ldl,omitempty" validate:"omitempty,gt=0"`
	Triglycerides float64     `json:"triglycerides" validate:"required,gt=0"`
	Unit          engine.Unit `json:"unit" validate:"required,oneof=mg/dL mmol/L"`
	Age           int         `json:"age" validate:"required,min=18,max=120"`
	Sex           string      `json:"sex" validate:"required,oneof=male female"`
	Smoker        bool        `json:"smoker"`
	Diabetes      bool        `json:"diabetes"`
	Hypertension  bool        `json:"hypertension"`
	FamilyHistory bool        `json:"familyHistory"`
	Active        bool        `json:"active"`
}

// Details reports how LDL was obtained: "direct", "friedewald" or "unavailable".
type Details struct {
	LDLMethod string `json:"ldlMethod"`
}

var totalTable = engine.Table{Kind: engine.KindTotalCholesterol, Buckets: []engine.Bucket{
	{UpperBound: 200, Label: "Desirable", Description: "Below 200 mg/dL.", Severity: engine.SeverityOK},
	{UpperBound: 240, Label: "Borderline high", Description: "200-239 mg/dL.", Severity: engine.SeverityCaution},
	{Label: "High", Description: "240 mg/dL and above.", Severity: engine.SeverityWarning},
}}

var ldlTable = engine.Table{Kind: engine.KindLDL, Buckets: []engine.Bucket{
	{UpperBound: 100, Label: "Optimal", Description: "Below 100 mg/dL.", Severity: engine.SeverityOK},
	{UpperBound: 130, Label: "Near optimal", Description: "100-129 mg/dL.", Severity: engine.SeverityOK},
	{UpperBound: 160, Label: "Borderline high", Description: "130-159 mg/dL.", Severity: engine.SeverityCaution},
	{UpperBound: 190, Label: "High", Description: "160-189 mg/dL.", Severity: engine.SeverityWarning},
	{Label: "Very high", Description: "190 mg/dL and above.", Severity: engine.SeverityWarning},
}}

var hdlTable = engine.Table{Kind: engine.KindHDL, Buckets: []engine.Bucket{
	{UpperBound: 40, Label: "Low", Description: "Below 40 mg/dL, a major risk factor.", Severity: engine.SeverityWarning},
	{UpperBound: 60, Label: "Normal", Description: "40-59 mg/dL.", Severity: engine.SeverityOK},
	{Label: "Protective", Description: "60 mg/dL and above.", Severity: engine.SeverityOK},
}}

var triglycerideTable = engine.Table{Kind: engine.KindTriglycerides, Buckets: []engine.Bucket{
	{UpperBound: 150, Label: "Normal", Description: "Below 150 mg/dL.", Severity: engine.SeverityOK},
	{UpperBound: 200, Label: "Borderline high", Description: "150-199 mg/dL.", Severity: engine.SeverityCaution},
	{UpperBound: 500, Label: "High", Description: "200-499 mg/dL.", Severity: engine.SeverityWarning},
	{UpperBound: 1000, Label: "Very high", Description: "500-999 mg/dL.", Severity: engine.SeverityWarning},
	{Label: SevereHypertriglyceridemia, Description: "1000 mg/dL and above, with a risk of pancreatitis.", Severity: engine.SeverityCritical},
}}

var nonHDLTable = engine.Table{Kind: engine.KindNonHDL, Buckets: []engine.Bucket{
	{UpperBound: 130, Label: "Optimal", Severity: engine.SeverityOK},
	{UpperBound: 160, Label: "Near optimal", Severity: engine.SeverityOK},
	{UpperBound: 190, Label: "Borderline high", Severity: engine.SeverityCaution},
	{UpperBound: 220, Label: "High", Severity: engine.SeverityWarning},
	{Label: "Very high", Severity: engine.SeverityWarning},
}}

var totalHDLTable = engine.Table{Kind: engine.KindTotalHDLRatio, Buckets: []engine.Bucket{
	{UpperBound: 3.5, Label: "Ideal", Severity: engine.SeverityOK},
	{UpperBound: 5, Label: "Acceptable", Severity: engine.SeverityOK},
	{Label: "High", Severity: engine.SeverityCaution},
}}

var ldlHDLTable = engine.Table{Kind: engine.KindLDLHDLRatio, Buckets: []engine.Bucket{
	{UpperBound: 2.5, Label: "Ideal", Severity: engine.SeverityOK},
	{UpperBound: 3.5, Label: "Acceptable", Severity: engine.SeverityOK},
	{Label: "High", Severity: engine.SeverityCaution},
}}

var tgHDLTable = engine.Table{Kind: engine.KindTriglycerideHDL, Buckets: []engine.Bucket{
	{UpperBound: 2, Label: "Ideal", Severity: engine.SeverityOK},
	{UpperBound: 4, Label: "Moderate", Severity: engine.SeverityCaution},
	{Label: "High", Description: "Suggests insulin resistance.", Severity: engine.SeverityWarning},
}}

var tiers = engine.Table{Kind: "cholesterol-risk", Buckets: []engine.Bucket{
	{UpperBound: 2, Label: "low", Severity: engine.SeverityOK},
	{UpperBound: 4, Label: "moderate", Severity: engine.SeverityCaution},
	{UpperBound: 7, Label: "high", Severity: engine.SeverityWarning},
	{Label: "very-high", Severity: engine.SeverityWarning},
}}

type subject = engine.Subject[Input]

func labelIs(kind engine.Kind, label string) func(subject) bool {
	return func(s subject) bool { return s.Readings.Label(kind) == label }
}

var predicates = []engine.Predicate[subject]{
	{Name: "ldl_very_high", Weight: 3, Description: "LDL of 190 mg/dL or more", Evaluate: labelIs(engine.KindLDL, "Very high")},
	{Name: "ldl_high", Weight: 2, Description: "LDL between 160 and 189 mg/dL", Evaluate: labelIs(engine.KindLDL, "High")},
	{Name: "ldl_borderline", Weight: 1, Description: "LDL between 130 and 159 mg/dL", Evaluate: labelIs(engine.KindLDL, "Borderline high")},
	{Name: "low_hdl", Weight: 2, Description: "HDL below 40 mg/dL", Evaluate: func(s subject) bool { return s.Readings.Below(engine.KindHDL, 40) }},
	{Name: "high_triglycerides", Weight: 1, Description: "Triglycerides of 200 mg/dL or more", Evaluate: func(s subject) bool { return s.Readings.AtLeast(engine.KindTriglycerides, 200) }},
	{Name: "high_total_hdl_ratio", Weight: 1, Description: "Total/HDL ratio of 5 or more", Evaluate: func(s subject) bool { return s.Readings.AtLeast(engine.KindTotalHDLRatio, 5) }},
	{Name: "age", Weight: 1, Description: "Men 45 or older, women 55 or older", Evaluate: func(s subject) bool {
		if s.Input.Sex == "female" {
			return s.Input.Age >= 55
		}
		return s.Input.Age >= 45
	}},
	{Name: "smoker", Weight: 2, Description: "Current smoker", Evaluate: func(s subject) bool { return s.Input.Smoker }},
	{Name: "diabetes", Weight: 2, Description: "Diabetes", Evaluate: func(s subject) bool { return s.Input.Diabetes }},
	{Name: "hypertension", Weight: 1, Description: "High blood pressure or on medication", Evaluate: func(s subject) bool { return s.Input.Hypertension }},
	{Name: "family_history", Weight: 1, Description: "Premature heart disease in a close relative", Evaluate: func(s subject) bool { return s.Input.FamilyHistory }},
	{Name: "protective_hdl", Weight: -1, Description: "HDL of 60 mg/dL or more", Evaluate: func(s subject) bool { return s.Readings.AtLeast(engine.KindHDL, 60) }},
	{Name: "physically_active", Weight: -1, Description: "Regular physical activity", Evaluate: func(s subject) bool { return s.Input.Active }},
}

var recommendations = engine.Mapper{
	"low": {
		Narrative: "Your lipid profile and risk factors suggest a low cardiovascular risk.",
		Recommendations: []string{
			"Recheck your cholesterol every 4 to 6 years.",
			"Keep eating plenty of fiber, vegetables and unsaturated fats.",
		},
	},
	"moderate": {
		Narrative: "You have a moderate cardiovascular risk.",
		Recommendations: []string{
			"Cut saturated fat to under 7% of daily calories.",
			"Add soluble fiber such as oats, beans and lentils.",
			"Recheck your lipid panel within a year.",
		},
	},
	"high": {
		Narrative: "Your lipid profile and risk factors point to a high cardiovascular risk.",
		Recommendations: []string{
			"See your healthcare provider to discuss statin therapy.",
			"Start a structured diet and exercise plan.",
			"Recheck your lipid panel in 3 months.",
		},
	},
	"very-high": {
		Narrative: "Your cardiovascular risk is very high.",
		Recommendations: []string{
			"Book an appointment with your healthcare provider soon.",
			"Medication is likely to be recommended alongside lifestyle changes.",
			"Ask about screening for other cardiovascular conditions.",
		},
	},
	SevereHypertriglyceridemia: {
		Narrative: "Triglycerides this high carry a risk of acute pancreatitis.",
		Recommendations: []string{
			"Contact your healthcare provider today.",
			"Seek emergency care for severe abdominal pain.",
			"Avoid alcohol and high-sugar foods until you have been seen.",
		},
	},
}

var priorities = map[string]engine.Priority{
	"low":       engine.PriorityRoutine,
	"moderate":  engine.PriorityMonitor,
	"high":      engine.PriorityTreat,
	"very-high": engine.PriorityTreat,
}

// Friedewald estimates LDL from canonical mg/dL values. It fails with a
// DomainInvalidError when triglycerides are at or above FriedewaldLimit or
// the estimate is not positive.
func Friedewald(total, hdl, triglycerides float64) (float64, error) {
	if triglycerides >= FriedewaldLimit {
		return 0, &engine.DomainInvalidError{
			Kind:   engine.KindLDL,
			Code:   engine.CodeNeedsDirectMeasurement,
			Reason: "triglycerides are 400 mg/dL or higher; LDL requires direct measurement",
		}
	}
	ldl := total - hdl - triglycerides/5
	if ldl <= 0 {
		return 0, &engine.DomainInvalidError{
			Kind:   engine.KindLDL,
			Code:   engine.CodeNeedsDirectMeasurement,
			Reason: "the Friedewald estimate is not positive; LDL requires direct measurement",
		}
	}
	return ldl, nil
}

func Config() engine.Config[Input] {
	return engine.Config[Input]{
		Metric: Metric,
		Check:  checkPlausible,
		Measures: func(in Input) []engine.Measure {
			ms := []engine.Measure{
				{Kind: engine.KindTotalCholesterol, Value: in.Total, Unit: in.Unit},
				{Kind: engine.KindHDL, Value: in.HDL, Unit: in.Unit},
				{Kind: engine.KindTriglycerides, Value: in.Triglycerides, Unit: in.Unit},
			}
			if in.LDL != nil {
				ms = append(ms, engine.Measure{Kind: engine.KindLDL, Value: *in.LDL, Unit: in.Unit})
			}
			return ms
		},
		Derive:          derive,
		Tables:          []engine.Table{totalTable, ldlTable, hdlTable, triglycerideTable, nonHDLTable, totalHDLTable, ldlHDLTable, tgHDLTable},
		Scorer:          &engine.Scorer[subject]{Predicates: predicates, Tiers: tiers},
		Primary:         engine.KindTotalCholesterol,
		Recommendations: recommendations,
		Priorities:      priorities,
		Flags: []engine.FlagRule{
			{
				Code: "very_high_ldl", Kind: engine.KindLDL, Level: engine.FlagWarning,
				Breached: func(v float64) bool { return v >= 190 },
				Message:  "LDL of 190 mg/dL or more may indicate familial hypercholesterolemia.",
				Recommendations: []string{
					"See your healthcare provider about medication and family screening.",
				},
			},
			{
				Code: "very_high_triglycerides", Kind: engine.KindTriglycerides, Level: engine.FlagUrgent,
				Breached: func(v float64) bool { return v >= 1000 },
				Message:  "Triglycerides of 1000 mg/dL or more put you at risk of acute pancreatitis. Contact your doctor immediately.",
				Recommendations: []string{
					"Seek emergency care if you have severe abdominal pain, nausea or vomiting.",
				},
			},
			{
				Code: "very_high_triglycerides", Kind: engine.KindTriglycerides, Level: engine.FlagWarning,
				Breached: func(v float64) bool { return v >= 500 },
				Message:  "Triglycerides of 500 mg/dL or more need prompt treatment.",
				Recommendations: []string{
					"Schedule a visit with your healthcare provider.",
					"Limit alcohol, sugar and refined carbohydrates.",
				},
			},
		},
		Details: func(in Input, all engine.ReadingSet) any {
			ldl, ok := all.Get(engine.KindLDL)
			switch {
			case !ok:
				return Details{LDLMethod: "unavailable"}
			case ldl.Derived:
				return Details{LDLMethod: "friedewald"}
			default:
				return Details{LDLMethod: "direct"}
			}
		},
	}
}

func derive(in Input, base engine.ReadingSet) engine.Derivation {
	var d engine.Derivation
	total, _ := base.Value(engine.KindTotalCholesterol)
	hdl, _ := base.Value(engine.KindHDL)
	tg, _ := base.Value(engine.KindTriglycerides)

	ldl, haveLDL := base.Value(engine.KindLDL)
	if !haveLDL {
		est, err := Friedewald(total, hdl, tg)
		if err != nil {
			d.Fail(engine.KindLDL, err)
		} else {
			d.Add(engine.KindLDL, est)
			ldl, haveLDL = est, true
		}
	}

	d.AddComposite(engine.KindNonHDL, total-hdl)
	d.AddComposite(engine.KindTotalHDLRatio, total/hdl)
	if haveLDL {
		d.AddComposite(engine.KindLDLHDLRatio, ldl/hdl)
	}
	d.AddComposite(engine.KindTriglycerideHDL, tg/hdl)
	return d
}

// checkPlausible bounds the canonical values to what a lab can report.
func checkPlausible(in Input) map[string]string {
	errs := map[string]string{}
	bound := func(field string, v float64, q engine.Quantity, lo, hi float64) {
		mg, err := engine.Convert(v, in.Unit, engine.MgPerDL, q)
		if err != nil {
			return
		}
		if mg < lo || mg > hi {
			errs[field] = "is outside the plausible range"
		}
	}
	bound("totalCholesterol", in.Total, engine.QuantityCholesterol, 50, 1000)
	bound("hdl", in.HDL, engine.QuantityCholesterol, 5, 200)
	bound("triglycerides", in.Triglycerides, engine.QuantityTriglycerides, 10, 5000)
	if in.LDL != nil {
		bound("ldl", *in.LDL, engine.QuantityCholesterol, 10, 600)
	}
	return errs
}

func New() (*engine.Orchestrator[Input], error) {
	return engine.New(Config())
}
