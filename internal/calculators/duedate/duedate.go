// Package duedate estimates the due date and current gestational age from the
// last menstrual period, the conception date or an IVF transfer date.
package duedate

import (
	"time"

	"github.com/Skufu/vitalcalc/internal/engine"
)

const Metric = "due-date"

const (
	dateLayout     = "2006-01-02"
	day            = 24 * time.Hour
	pregnancyDays  = 280
	ovulationDay   = 14
	standardCycle  = 28
	maxGestationWk = 44
)

type Input struct {
	Method         string `json:"method" validate:"required,oneof=lmp conception ivf"`
	LastPeriod     string `json:"lastPeriod,omitempty" validate:"required_if=Method lmp,omitempty,datetime=2006-01-02"`
	CycleLength    int    `json:"cycleLength,omitempty" validate:"omitempty,min=20,max=45"`
	ConceptionDate string `json:"conceptionDate,omitempty" validate:"required_if=Method conception,omitempty,datetime=2006-01-02"`
	TransferDate   string `json:"transferDate,omitempty" validate:"required_if=Method ivf,omitempty,datetime=2006-01-02"`
	EmbryoAge      int    `json:"embryoAge,omitempty" validate:"required_if=Method ivf,omitempty,oneof=3 5"`
	// AsOf is the date gestational age is measured at.
	AsOf string `json:"asOf" validate:"required,datetime=2006-01-02"`
}

type Details struct {
	DueDate             string `json:"dueDate"`
	EstimatedConception string `json:"estimatedConception"`
	GestationalWeeks    int    `json:"gestationalWeeks"`
	GestationalDays     int    `json:"gestationalDays"`
	Trimester           int    `json:"trimester"`
	DaysUntilDue        int    `json:"daysUntilDue"`
}

var gestation = engine.Table{Kind: engine.KindGestationalAge, Buckets: []engine.Bucket{
	{UpperBound: 14, Label: "First trimester", Description: "Weeks 1 to 13.", Severity: engine.SeverityOK},
	{UpperBound: 28, Label: "Second trimester", Description: "Weeks 14 to 27.", Severity: engine.SeverityOK},
	{UpperBound: 40, Label: "Third trimester", Description: "Weeks 28 to 39.", Severity: engine.SeverityOK},
	{UpperBound: 42, Label: "Late term", Description: "Weeks 40 and 41.", Severity: engine.SeverityCaution},
	{Label: "Post-term", Description: "42 weeks or more.", Severity: engine.SeverityWarning},
}}

var recommendations = engine.Mapper{
	"First trimester": {
		Narrative: "You are in the first trimester.",
		Recommendations: []string{
			"Take 400 mcg of folic acid daily.",
			"Book your first prenatal visit and dating scan.",
			"Avoid alcohol, smoking and undercooked foods.",
		},
	},
	"Second trimester": {
		Narrative: "You are in the second trimester.",
		Recommendations: []string{
			"Schedule the anatomy scan at 18 to 22 weeks.",
			"Ask about glucose screening between 24 and 28 weeks.",
		},
	},
	"Third trimester": {
		Narrative: "You are in the third trimester.",
		Recommendations: []string{
			"Count fetal movements daily and report any decrease.",
			"Prepare your birth plan and hospital bag.",
		},
	},
	"Late term": {
		Narrative: "You have reached or passed your due date.",
		Recommendations: []string{
			"Keep in close contact with your maternity team.",
			"Ask about membrane sweeps and monitoring appointments.",
		},
	},
	"Post-term": {
		Narrative: "Your pregnancy has gone past 42 weeks.",
		Recommendations: []string{
			"Contact your maternity team today about induction.",
			"Report any reduced fetal movement immediately.",
		},
	},
}

var priorities = map[string]engine.Priority{
	"First trimester":  engine.PriorityRoutine,
	"Second trimester": engine.PriorityRoutine,
	"Third trimester":  engine.PriorityRoutine,
	"Late term":        engine.PriorityMonitor,
	"Post-term":        engine.PriorityTreat,
}

// Start returns the gestational start date (the equivalent of LMP for a
// 28-day cycle) for the chosen method.
func Start(in Input) (time.Time, bool) {
	parse := func(s string) (time.Time, bool) {
		t, err := time.Parse(dateLayout, s)
		return t, err == nil
	}
	switch in.Method {
	case "lmp":
		lmp, ok := parse(in.LastPeriod)
		if !ok {
			return time.Time{}, false
		}
		cycle := in.CycleLength
		if cycle == 0 {
			cycle = standardCycle
		}
		return lmp.Add(time.Duration(cycle-standardCycle) * day), true
	case "conception":
		c, ok := parse(in.ConceptionDate)
		if !ok {
			return time.Time{}, false
		}
		return c.Add(-ovulationDay * day), true
	case "ivf":
		tr, ok := parse(in.TransferDate)
		if !ok {
			return time.Time{}, false
		}
		return tr.Add(-time.Duration(ovulationDay+in.EmbryoAge) * day), true
	}
	return time.Time{}, false
}

// DueDate applies Naegele's rule: 280 days after the gestational start.
func DueDate(start time.Time) time.Time {
	return start.Add(pregnancyDays * day)
}

func trimester(weeks int) int {
	switch {
	case weeks < 14:
		return 1
	case weeks < 28:
		return 2
	default:
		return 3
	}
}

func Config() engine.Config[Input] {
	return engine.Config[Input]{
		Metric: Metric,
		Check:  check,
		Measures: func(in Input) []engine.Measure {
			if in.Method == "lmp" && in.CycleLength > 0 {
				return []engine.Measure{{Kind: engine.KindCycleLength, Value: float64(in.CycleLength), Unit: engine.Days}}
			}
			return nil
		},
		Derive: func(in Input, base engine.ReadingSet) engine.Derivation {
			var d engine.Derivation
			start, _ := Start(in)
			asOf, _ := time.Parse(dateLayout, in.AsOf)
			d.Add(engine.KindGestationalAge, asOf.Sub(start).Hours()/24/7)
			return d
		},
		Tables:          []engine.Table{gestation},
		Primary:         engine.KindGestationalAge,
		Recommendations: recommendations,
		Priorities:      priorities,
		Flags: []engine.FlagRule{{
			Code: "post_term", Kind: engine.KindGestationalAge, Level: engine.FlagWarning,
			Breached: func(v float64) bool { return v >= 42 },
			Message:  "Pregnancy beyond 42 weeks carries increased risks. Contact your maternity team today.",
			Recommendations: []string{
				"Ask about induction of labor and fetal monitoring.",
			},
		}},
		Details: func(in Input, all engine.ReadingSet) any {
			start, _ := Start(in)
			asOf, _ := time.Parse(dateLayout, in.AsOf)
			due := DueDate(start)
			elapsed := int(asOf.Sub(start) / day)
			return Details{
				DueDate:             due.Format(dateLayout),
				EstimatedConception: start.Add(ovulationDay * day).Format(dateLayout),
				GestationalWeeks:    elapsed / 7,
				GestationalDays:     elapsed % 7,
				Trimester:           trimester(elapsed / 7),
				DaysUntilDue:        int(due.Sub(asOf) / day),
			}
		},
	}
}

func check(in Input) map[string]string {
	start, ok := Start(in)
	if !ok {
		return nil
	}
	asOf, err := time.Parse(dateLayout, in.AsOf)
	if err != nil {
		return nil
	}
	switch {
	case asOf.Before(start):
		return map[string]string{"asOf": "must not be before the start of pregnancy"}
	case asOf.Sub(start) > maxGestationWk*7*day:
		return map[string]string{"asOf": "is more than 44 weeks after the start of pregnancy"}
	}
	return nil
}

func New() (*engine.Orchestrator[Input], error) {
	return engine.New(Config())
}
