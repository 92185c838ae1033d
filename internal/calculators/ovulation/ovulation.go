// Package ovulation predicts ovulation, the fertile window and the next
// period from the last menstrual period and the usual cycle length.
package ovulation

import (
	"time"

	"github.com/Skufu/vitalcalc/internal/engine"
)

const Metric = "ovulation"

const (
	dateLayout   = "2006-01-02"
	lutealDays   = 14
	day          = 24 * time.Hour
	cyclesAhead  = 3
	defaultFlow  = 5
	fertileLead  = 5
	fertileAfter = 1
)

type Input struct {
	LastPeriod   string `json:"lastPeriod" validate:"required,datetime=2006-01-02"`
	CycleLength  int    `json:"cycleLength" validate:"required,min=20,max=45"`
	PeriodLength int    `json:"periodLength,omitempty" validate:"omitempty,min=1,max=10"`
	// AsOf anchors "days until ovulation"; without it only calendar dates are returned.
	AsOf string `json:"asOf,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type Cycle struct {
	PeriodStart  string `json:"periodStart"`
	Ovulation    string `json:"ovulation"`
	FertileStart string `json:"fertileStart"`
	FertileEnd   string `json:"fertileEnd"`
}

type Details struct {
	Cycle
	NextPeriod string  `json:"nextPeriod"`
	Upcoming   []Cycle `json:"upcoming"`
	CycleDay   int     `json:"cycleDay,omitempty"`
	Phase      string  `json:"phase,omitempty"`
}

var cycleTable = engine.Table{Kind: engine.KindCycleLength, Buckets: []engine.Bucket{
	{UpperBound: 21, Label: "Short cycle", Description: "Cycles shorter than 21 days.", Severity: engine.SeverityCaution},
	{UpperBound: 36, Label: "Typical cycle", Description: "21 to 35 days.", Severity: engine.SeverityOK},
	{Label: "Long cycle", Description: "Cycles longer than 35 days.", Severity: engine.SeverityCaution},
}}

var periodTable = engine.Table{Kind: engine.KindPeriodLength, Buckets: []engine.Bucket{
	{UpperBound: 2, Label: "Short period", Severity: engine.SeverityCaution},
	{UpperBound: 8, Label: "Typical period", Severity: engine.SeverityOK},
	{Label: "Prolonged period", Description: "Bleeding for more than 7 days.", Severity: engine.SeverityCaution},
}}

var recommendations = engine.Mapper{
	"Short cycle": {
		Narrative: "Your cycle is shorter than typical, so ovulation may come early.",
		Recommendations: []string{
			"Track your cycle for a few months to confirm the pattern.",
			"Use ovulation test kits, as calendar predictions are less reliable.",
			"Talk to your healthcare provider if cycles stay under 21 days.",
		},
	},
	"Typical cycle": {
		Narrative: "Your cycle length is in the typical range.",
		Recommendations: []string{
			"Your most fertile days are the five days before ovulation and the day of ovulation.",
			"Ovulation tests or basal body temperature can confirm the prediction.",
		},
	},
	"Long cycle": {
		Narrative: "Your cycle is longer than typical, which can make ovulation harder to predict.",
		Recommendations: []string{
			"Track ovulation with test kits or basal body temperature.",
			"Ask your healthcare provider about causes such as PCOS or thyroid conditions.",
		},
	},
}

var priorities = map[string]engine.Priority{
	"Short cycle":   engine.PriorityMonitor,
	"Typical cycle": engine.PriorityRoutine,
	"Long cycle":    engine.PriorityMonitor,
}

func periodLength(in Input) int {
	if in.PeriodLength == 0 {
		return defaultFlow
	}
	return in.PeriodLength
}

// Predict returns the cycle that starts on periodStart.
func Predict(periodStart time.Time, cycleLength int) Cycle {
	ov := periodStart.Add(time.Duration(cycleLength-lutealDays) * day)
	return Cycle{
		PeriodStart:  periodStart.Format(dateLayout),
		Ovulation:    ov.Format(dateLayout),
		FertileStart: ov.Add(-fertileLead * day).Format(dateLayout),
		FertileEnd:   ov.Add(fertileAfter * day).Format(dateLayout),
	}
}

// daysUntilOvulation counts days from asOf to the next predicted ovulation
// on or after it.
func daysUntilOvulation(lmp, asOf time.Time, cycleLength int) int {
	elapsed := int(asOf.Sub(lmp) / day)
	k := elapsed / cycleLength
	for {
		ov := k*cycleLength + cycleLength - lutealDays
		if ov >= elapsed {
			return ov - elapsed
		}
		k++
	}
}

func phase(cycleDay, cycleLength, flow int) string {
	ovDay := cycleLength - lutealDays + 1
	switch {
	case cycleDay <= flow:
		return "menstrual"
	case cycleDay >= ovDay-fertileLead && cycleDay <= ovDay+fertileAfter:
		return "fertile"
	case cycleDay < ovDay:
		return "follicular"
	default:
		return "luteal"
	}
}

func Config() engine.Config[Input] {
	return engine.Config[Input]{
		Metric: Metric,
		Check:  check,
		Measures: func(in Input) []engine.Measure {
			return []engine.Measure{
				{Kind: engine.KindCycleLength, Value: float64(in.CycleLength), Unit: engine.Days},
				{Kind: engine.KindPeriodLength, Value: float64(periodLength(in)), Unit: engine.Days},
			}
		},
		Derive: func(in Input, base engine.ReadingSet) engine.Derivation {
			var d engine.Derivation
			if in.AsOf == "" {
				d.Fail(engine.KindDaysUntilOvulation, &engine.DomainInvalidError{
					Kind: engine.KindDaysUntilOvulation, Code: engine.CodeInsufficientData, Reason: "asOf date not supplied",
				})
				return d
			}
			lmp, _ := time.Parse(dateLayout, in.LastPeriod)
			asOf, _ := time.Parse(dateLayout, in.AsOf)
			d.Add(engine.KindDaysUntilOvulation, float64(daysUntilOvulation(lmp, asOf, in.CycleLength)))
			return d
		},
		Tables:          []engine.Table{cycleTable, periodTable},
		Primary:         engine.KindCycleLength,
		Recommendations: recommendations,
		Priorities:      priorities,
		Flags: []engine.FlagRule{
			{
				Code: "irregular_cycle", Kind: engine.KindCycleLength, Level: engine.FlagCaution,
				Breached: func(v float64) bool { return v < 21 || v > 35 },
				Message:  "Cycles outside 21 to 35 days make calendar predictions less reliable.",
				Recommendations: []string{
					"Mention your cycle length to your healthcare provider at your next visit.",
				},
			},
			{
				Code: "prolonged_bleeding", Kind: engine.KindPeriodLength, Level: engine.FlagCaution,
				Breached: func(v float64) bool { return v > 7 },
				Message:  "Periods lasting more than 7 days should be checked by a healthcare provider.",
			},
		},
		Details: func(in Input, all engine.ReadingSet) any {
			lmp, _ := time.Parse(dateLayout, in.LastPeriod)
			length := time.Duration(in.CycleLength) * day
			det := Details{
				Cycle:      Predict(lmp, in.CycleLength),
				NextPeriod: lmp.Add(length).Format(dateLayout),
				Upcoming:   make([]Cycle, 0, cyclesAhead),
			}
			for i := 1; i <= cyclesAhead; i++ {
				det.Upcoming = append(det.Upcoming, Predict(lmp.Add(time.Duration(i)*length), in.CycleLength))
			}
			if asOf, err := time.Parse(dateLayout, in.AsOf); err == nil {
				det.CycleDay = int(asOf.Sub(lmp)/day)%in.CycleLength + 1
				det.Phase = phase(det.CycleDay, in.CycleLength, periodLength(in))
			}
			return det
		},
	}
}

func check(in Input) map[string]string {
	errs := map[string]string{}
	if periodLength(in) >= in.CycleLength && in.CycleLength > 0 {
		errs["periodLength"] = "must be shorter than cycleLength"
	}
	lmp, err := time.Parse(dateLayout, in.LastPeriod)
	if err != nil || in.AsOf == "" {
		return errs
	}
	asOf, err := time.Parse(dateLayout, in.AsOf)
	if err == nil && asOf.Before(lmp) {
		errs["asOf"] = "must not be before lastPeriod"
	}
	return errs
}

func New() (*engine.Orchestrator[Input], error) {
	return engine.New(Config())
}
