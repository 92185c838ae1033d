// Package sleep assesses one night of sleep against age-specific duration
// recommendations and suggests wake and bed times aligned to 90-minute cycles.
package sleep

import (
	"time"

	"github.com/Skufu/vitalcalc/internal/engine"
)

const Metric = "sleep"

const (
	clockLayout = "15:04"
	cycle       = 90 * time.Minute
)

type Input struct {
	Bedtime           string `json:"bedtime" validate:"required,datetime=15:04"`
	WakeTime          string `json:"wakeTime" validate:"required,datetime=15:04"`
	LatencyMinutes    int    `json:"latencyMinutes" validate:"min=0,max=240"`
	Awakenings        int    `json:"awakenings" validate:"min=0,max=30"`
	AwakeMinutes      int    `json:"awakeMinutes" validate:"min=0,max=600"`
	AgeYears          int    `json:"ageYears" validate:"required,min=1,max=120"`
	Snoring           bool   `json:"snoring"`
	LateCaffeine      bool   `json:"lateCaffeine"`
	ScreensBeforeBed  bool   `json:"screensBeforeBed"`
	IrregularSchedule bool   `json:"irregularSchedule"`
	RegularExercise   bool   `json:"regularExercise"`
}

type Details struct {
	TimeInBedHours     float64  `json:"timeInBedHours"`
	Cycles             float64  `json:"cycles"`
	RecommendedMin     float64  `json:"recommendedMinHours"`
	RecommendedMax     float64  `json:"recommendedMaxHours"`
	SuggestedWakeTimes []string `json:"suggestedWakeTimes"`
	SuggestedBedtimes  []string `json:"suggestedBedtimes"`
}

type ageGroup struct {
	maxAge int
	lo, hi float64
}

// National Sleep Foundation recommended hours by age.
var groups = []ageGroup{
	{2, 11, 14},
	{5, 10, 13},
	{12, 9, 12},
	{17, 8, 10},
	{64, 7, 9},
	{120, 7, 8},
}

func groupFor(age int) ageGroup {
	for _, g := range groups {
		if age <= g.maxAge {
			return g
		}
	}
	return groups[len(groups)-1]
}

func durationTable(g ageGroup) engine.Table {
	return engine.Table{Kind: engine.KindSleepDuration, Buckets: []engine.Bucket{
		{UpperBound: g.lo - 1, Label: "Very short", Description: "More than an hour below the recommended range.", Severity: engine.SeverityWarning},
		{UpperBound: g.lo, Label: "Short", Description: "Just below the recommended range.", Severity: engine.SeverityCaution},
		{UpperBound: g.hi, Label: "Recommended", Description: "Within the recommended range for your age.", Severity: engine.SeverityOK},
		{UpperBound: g.hi + 1, Label: "Slightly long", Description: "At the top of the appropriate range.", Severity: engine.SeverityOK},
		{Label: "Long", Description: "More than an hour above the recommended range.", Severity: engine.SeverityCaution},
	}}
}

// AllDurationTables returns the duration table of every age group.
func AllDurationTables() []engine.Table {
	out := make([]engine.Table, 0, len(groups))
	for _, g := range groups {
		out = append(out, durationTable(g))
	}
	return out
}

var efficiency = engine.Table{Kind: engine.KindSleepEfficiency, Buckets: []engine.Bucket{
	{UpperBound: 75, Label: "Poor", Description: "Less than 75% of time in bed spent asleep.", Severity: engine.SeverityWarning},
	{UpperBound: 85, Label: "Fair", Severity: engine.SeverityCaution},
	{Label: "Good", Description: "85% or more of time in bed spent asleep.", Severity: engine.SeverityOK},
}}

var latency = engine.Table{Kind: engine.KindSleepLatency, Buckets: []engine.Bucket{
	{UpperBound: 5, Label: "Very quick", Description: "Falling asleep within 5 minutes can signal sleep debt.", Severity: engine.SeverityCaution},
	{UpperBound: 30, Label: "Normal", Severity: engine.SeverityOK},
	{UpperBound: 60, Label: "Prolonged", Severity: engine.SeverityCaution},
	{Label: "Very prolonged", Severity: engine.SeverityWarning},
}}

var tiers = engine.Table{Kind: "sleep-risk", Buckets: []engine.Bucket{
	{UpperBound: 2, Label: "low", Severity: engine.SeverityOK},
	{UpperBound: 4, Label: "moderate", Severity: engine.SeverityCaution},
	{UpperBound: 7, Label: "high", Severity: engine.SeverityWarning},
	{Label: "severe", Severity: engine.SeverityWarning},
}}

type subject = engine.Subject[Input]

func durationIs(label string) func(subject) bool {
	return func(s subject) bool { return s.Readings.Label(engine.KindSleepDuration) == label }
}

var predicates = []engine.Predicate[subject]{
	{Name: "very_short_sleep", Weight: 3, Description: "Sleep more than an hour below the recommendation", Evaluate: durationIs("Very short")},
	{Name: "short_sleep", Weight: 2, Description: "Sleep below the recommendation", Evaluate: durationIs("Short")},
	{Name: "long_sleep", Weight: 1, Description: "Sleep well above the recommendation", Evaluate: durationIs("Long")},
	{Name: "low_efficiency", Weight: 2, Description: "Sleep efficiency below 85%", Evaluate: func(s subject) bool { return s.Readings.Below(engine.KindSleepEfficiency, 85) }},
	{Name: "long_latency", Weight: 1, Description: "Taking 30 minutes or more to fall asleep", Evaluate: func(s subject) bool { return s.Readings.AtLeast(engine.KindSleepLatency, 30) }},
	{Name: "frequent_awakenings", Weight: 1, Description: "Waking three or more times a night", Evaluate: func(s subject) bool { return s.Input.Awakenings >= 3 }},
	{Name: "snoring", Weight: 2, Description: "Loud snoring, a possible sign of sleep apnea", Evaluate: func(s subject) bool { return s.Input.Snoring }},
	{Name: "late_caffeine", Weight: 1, Description: "Caffeine within 6 hours of bedtime", Evaluate: func(s subject) bool { return s.Input.LateCaffeine }},
	{Name: "screens_before_bed", Weight: 1, Description: "Screens in the hour before bed", Evaluate: func(s subject) bool { return s.Input.ScreensBeforeBed }},
	{Name: "irregular_schedule", Weight: 1, Description: "Bed and wake times vary by more than an hour", Evaluate: func(s subject) bool { return s.Input.IrregularSchedule }},
	{Name: "regular_exercise", Weight: -1, Description: "Regular daytime exercise", Evaluate: func(s subject) bool { return s.Input.RegularExercise }},
}

var recommendations = engine.Mapper{
	"low": {
		Narrative: "Your sleep looks healthy.",
		Recommendations: []string{
			"Keep a consistent bed and wake time, including weekends.",
		},
	},
	"moderate": {
		Narrative: "A few habits are getting in the way of restful sleep.",
		Recommendations: []string{
			"Stop caffeine by early afternoon.",
			"Put screens away an hour before bed.",
			"Keep the bedroom cool, dark and quiet.",
		},
	},
	"high": {
		Narrative: "Your sleep is significantly disrupted.",
		Recommendations: []string{
			"Protect a fixed sleep window of the recommended length.",
			"Get out of bed if you cannot sleep after 20 minutes and return when drowsy.",
			"Talk to your healthcare provider if this persists for more than a few weeks.",
		},
	},
	"severe": {
		Narrative: "Your sleep pattern carries a high risk to health and daytime safety.",
		Recommendations: []string{
			"See your healthcare provider about insomnia or sleep apnea screening.",
			"Avoid driving when drowsy.",
		},
	},
}

var priorities = map[string]engine.Priority{
	"low":      engine.PriorityRoutine,
	"moderate": engine.PriorityMonitor,
	"high":     engine.PriorityTreat,
	"severe":   engine.PriorityTreat,
}

// timeInBed is the span from bedtime to wake time, crossing midnight when
// the wake time is earlier in the day.
func timeInBed(bed, wake time.Time) time.Duration {
	d := wake.Sub(bed)
	if d <= 0 {
		d += 24 * time.Hour
	}
	return d
}

func parseTimes(in Input) (bed, wake time.Time, ok bool) {
	bed, err := time.Parse(clockLayout, in.Bedtime)
	if err != nil {
		return bed, wake, false
	}
	wake, err = time.Parse(clockLayout, in.WakeTime)
	if err != nil {
		return bed, wake, false
	}
	return bed, wake, true
}

// WakeTimes lists wake times that end a full cycle, for 4 to 6 cycles after
// falling asleep.
func WakeTimes(bed time.Time, latency time.Duration) []string {
	onset := bed.Add(latency)
	out := make([]string, 0, 3)
	for n := 4; n <= 6; n++ {
		out = append(out, onset.Add(time.Duration(n)*cycle).Format(clockLayout))
	}
	return out
}

// Bedtimes lists bedtimes that allow 6 down to 4 full cycles before wake.
func Bedtimes(wake time.Time, latency time.Duration) []string {
	out := make([]string, 0, 3)
	for n := 6; n >= 4; n-- {
		out = append(out, wake.Add(-time.Duration(n)*cycle-latency).Format(clockLayout))
	}
	return out
}

func Config() engine.Config[Input] {
	return engine.Config[Input]{
		Metric: Metric,
		Check:  check,
		Measures: func(in Input) []engine.Measure {
			return []engine.Measure{{Kind: engine.KindSleepLatency, Value: float64(in.LatencyMinutes), Unit: engine.Minutes}}
		},
		Derive: func(in Input, base engine.ReadingSet) engine.Derivation {
			var d engine.Derivation
			bed, wake, _ := parseTimes(in)
			inBed := timeInBed(bed, wake)
			asleep := inBed - time.Duration(in.LatencyMinutes+in.AwakeMinutes)*time.Minute
			d.Add(engine.KindSleepDuration, asleep.Hours())
			d.Add(engine.KindSleepEfficiency, asleep.Hours()/inBed.Hours()*100)
			return d
		},
		Tables: []engine.Table{durationTable(groupFor(30)), efficiency, latency},
		TableFor: func(in Input, kind engine.Kind) (engine.Table, bool) {
			if kind != engine.KindSleepDuration {
				return engine.Table{}, false
			}
			return durationTable(groupFor(in.AgeYears)), true
		},
		Scorer:          &engine.Scorer[subject]{Predicates: predicates, Tiers: tiers},
		Primary:         engine.KindSleepDuration,
		Recommendations: recommendations,
		Priorities:      priorities,
		Flags: []engine.FlagRule{
			{
				Code: "severe_sleep_deprivation", Kind: engine.KindSleepDuration, Level: engine.FlagWarning,
				Breached: func(v float64) bool { return v < 4 },
				Message:  "Less than 4 hours of sleep impairs reaction time as much as alcohol. Do not drive drowsy.",
			},
			{
				Code: "very_low_efficiency", Kind: engine.KindSleepEfficiency, Level: engine.FlagCaution,
				Breached: func(v float64) bool { return v < 65 },
				Message:  "You are awake for more than a third of your time in bed.",
				Recommendations: []string{
					"Consider cognitive behavioral therapy for insomnia (CBT-I).",
				},
			},
		},
		Details: func(in Input, all engine.ReadingSet) any {
			bed, wake, _ := parseTimes(in)
			g := groupFor(in.AgeYears)
			hours, _ := all.Value(engine.KindSleepDuration)
			latency := time.Duration(in.LatencyMinutes) * time.Minute
			return Details{
				TimeInBedHours:     timeInBed(bed, wake).Hours(),
				Cycles:             hours * 60 / cycle.Minutes(),
				RecommendedMin:     g.lo,
				RecommendedMax:     g.hi,
				SuggestedWakeTimes: WakeTimes(bed, latency),
				SuggestedBedtimes:  Bedtimes(wake, latency),
			}
		},
	}
}

func check(in Input) map[string]string {
	bed, wake, ok := parseTimes(in)
	if !ok {
		return nil
	}
	if bed.Equal(wake) {
		return map[string]string{"wakeTime": "must differ from bedtime"}
	}
	if time.Duration(in.LatencyMinutes+in.AwakeMinutes)*time.Minute >= timeInBed(bed, wake) {
		return map[string]string{"awakeMinutes": "latency and time awake must be less than time in bed"}
	}
	return nil
}

func New() (*engine.Orchestrator[Input], error) {
	return engine.New(Config())
}
