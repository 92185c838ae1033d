package engine

import (
	"errors"
	"fmt"
	"math"
)

// Kind identifies what a Reading measures.
type Kind string

const (
	KindWeight             Kind = "weight"
	KindHeight             Kind = "height"
	KindBMI                Kind = "bmi"
	KindSystolic           Kind = "systolic-pressure"
	KindDiastolic          Kind = "diastolic-pressure"
	KindPulse              Kind = "pulse"
	KindMeanArterial       Kind = "mean-arterial-pressure"
	KindPulsePressure      Kind = "pulse-pressure"
	KindTotalCholesterol   Kind = "total-cholesterol"
	KindHDL                Kind = "hdl-cholesterol"
	KindLDL                Kind = "ldl-cholesterol"
	KindTriglycerides      Kind = "triglycerides"
	KindNonHDL             Kind = "non-hdl-cholesterol"
	KindTotalHDLRatio      Kind = "total-hdl-ratio"
	KindLDLHDLRatio        Kind = "ldl-hdl-ratio"
	KindTriglycerideHDL    Kind = "triglyceride-hdl-ratio"
	KindVitaminD           Kind = "vitamin-d-level"
	KindFastingGlucose     Kind = "fasting-glucose"
	KindPostMealGlucose    Kind = "post-meal-glucose"
	KindHbA1c              Kind = "hba1c"
	KindHbA1cIFCC          Kind = "hba1c-ifcc"
	KindEstimatedGlucose   Kind = "estimated-average-glucose"
	KindSleepDuration      Kind = "sleep-duration"
	KindSleepEfficiency    Kind = "sleep-efficiency"
	KindSleepLatency       Kind = "sleep-latency"
	KindWaterNeed          Kind = "water-need"
	KindWaterIntake        Kind = "water-intake"
	KindHydrationRatio     Kind = "hydration-ratio"
	KindBMR                Kind = "basal-metabolic-rate"
	KindTDEE               Kind = "total-daily-energy-expenditure"
	KindCalorieTarget      Kind = "calorie-target"
	KindCycleLength        Kind = "cycle-length"
	KindPeriodLength       Kind = "period-length"
	KindGestationalAge     Kind = "gestational-age"
	KindActivityMinutes    Kind = "activity-minutes"
	KindPercentOf95th      Kind = "percent-of-95th-percentile"
	KindDaysUntilOvulation Kind = "days-until-ovulation"
)

type canonical struct {
	quantity Quantity
	unit     Unit
}

// canonicalUnits is the single place a Kind's internal unit is decided.
var canonicalUnits = map[Kind]canonical{
	KindWeight:             {QuantityMass, Kilogram},
	KindHeight:             {QuantityLength, Centimeter},
	KindBMI:                {QuantityScalar, KgPerM2},
	KindSystolic:           {QuantityScalar, MmHg},
	KindDiastolic:          {QuantityScalar, MmHg},
	KindPulse:              {QuantityScalar, BPM},
	KindMeanArterial:       {QuantityScalar, MmHg},
	KindPulsePressure:      {QuantityScalar, MmHg},
	KindTotalCholesterol:   {QuantityCholesterol, MgPerDL},
	KindHDL:                {QuantityCholesterol, MgPerDL},
	KindLDL:                {QuantityCholesterol, MgPerDL},
	KindTriglycerides:      {QuantityTriglycerides, MgPerDL},
	KindNonHDL:             {QuantityCholesterol, MgPerDL},
	KindTotalHDLRatio:      {QuantityScalar, Ratio},
	KindLDLHDLRatio:        {QuantityScalar, Ratio},
	KindTriglycerideHDL:    {QuantityScalar, Ratio},
	KindVitaminD:           {QuantityVitaminD, NgPerML},
	KindFastingGlucose:     {QuantityGlucose, MgPerDL},
	KindPostMealGlucose:    {QuantityGlucose, MgPerDL},
	KindHbA1c:              {QuantityScalar, Percent},
	KindHbA1cIFCC:          {QuantityScalar, MmolPerMol},
	KindEstimatedGlucose:   {QuantityGlucose, MgPerDL},
	KindSleepDuration:      {QuantityScalar, Hours},
	KindSleepEfficiency:    {QuantityScalar, Percent},
	KindSleepLatency:       {QuantityScalar, Minutes},
	KindWaterNeed:          {QuantityVolume, Milliliter},
	KindWaterIntake:        {QuantityVolume, Milliliter},
	KindHydrationRatio:     {QuantityScalar, Ratio},
	KindBMR:                {QuantityScalar, Kcal},
	KindTDEE:               {QuantityScalar, Kcal},
	KindCalorieTarget:      {QuantityScalar, Kcal},
	KindCycleLength:        {QuantityScalar, Days},
	KindPeriodLength:       {QuantityScalar, Days},
	KindGestationalAge:     {QuantityScalar, Weeks},
	KindActivityMinutes:    {QuantityScalar, Minutes},
	KindPercentOf95th:      {QuantityScalar, Percent},
	KindDaysUntilOvulation: {QuantityScalar, Days},
}

// CanonicalUnit returns the unit every Reading of kind is stored in.
func CanonicalUnit(kind Kind) (Unit, bool) {
	c, ok := canonicalUnits[kind]
	return c.unit, ok
}

// Kinds lists every kind with a canonical unit.
func Kinds() []Kind {
	out := make([]Kind, 0, len(canonicalUnits))
	for k := range canonicalUnits {
		out = append(out, k)
	}
	return out
}

// Measure is a raw value as entered, before conversion.
type Measure struct {
	Kind      Kind
	Value     float64
	Unit      Unit
	Estimated bool
}

// Reading is one measurement in its canonical unit. Entered keeps what the
// user typed when that differs, for display only.
type Reading struct {
	Kind      Kind      `json:"kind"`
	Value     float64   `json:"value"`
	Unit      Unit      `json:"unit"`
	Entered   *Entered  `json:"entered,omitempty"`
	Derived   bool      `json:"derived,omitempty"`
	Estimated bool      `json:"estimated,omitempty"`
	Category  *Category `json:"category,omitempty"`
}

type Entered struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Canonicalize converts m into a Reading in the canonical unit of m.Kind.
func Canonicalize(m Measure) (Reading, error) {
	c, ok := canonicalUnits[m.Kind]
	if !ok {
		return Reading{}, &ConfigurationError{Component: "readings", Detail: fmt.Sprintf("kind %q has no canonical unit", m.Kind)}
	}
	unit := m.Unit
	if unit == "" {
		unit = c.unit
	}
	v, err := Convert(m.Value, unit, c.unit, c.quantity)
	if err != nil {
		return Reading{}, err
	}
	r := Reading{Kind: m.Kind, Value: v, Unit: c.unit, Estimated: m.Estimated}
	if unit != c.unit {
		r.Entered = &Entered{Value: m.Value, Unit: unit}
	}
	return r, nil
}

// DerivedReading builds a computed reading already in canonical units. A NaN
// or infinite value is a DomainInvalidError.
func DerivedReading(kind Kind, value float64) (Reading, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Reading{}, &DomainInvalidError{Kind: kind, Code: CodeInsufficientData, Reason: "inputs do not yield a finite value"}
	}
	return Reading{Kind: kind, Value: value, Unit: canonicalUnits[kind].unit, Derived: true}, nil
}

// ReadingSet is an ordered list of readings with lookup by kind.
type ReadingSet []Reading

func (s ReadingSet) Get(kind Kind) (Reading, bool) {
	for _, r := range s {
		if r.Kind == kind {
			return r, true
		}
	}
	return Reading{}, false
}

func (s ReadingSet) Value(kind Kind) (float64, bool) {
	r, ok := s.Get(kind)
	return r.Value, ok
}

// Label returns the category label attached to kind, if classified.
func (s ReadingSet) Label(kind Kind) string {
	r, ok := s.Get(kind)
	if !ok || r.Category == nil {
		return ""
	}
	return r.Category.Label
}

// AtLeast reports whether kind is present and >= threshold.
func (s ReadingSet) AtLeast(kind Kind, threshold float64) bool {
	v, ok := s.Value(kind)
	return ok && v >= threshold
}

// Below reports whether kind is present and < threshold.
func (s ReadingSet) Below(kind Kind, threshold float64) bool {
	v, ok := s.Value(kind)
	return ok && v < threshold
}

// Unavailable explains why a reading could not be produced.
type Unavailable struct {
	Kind   Kind   `json:"kind"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

const (
	CodeNeedsDirectMeasurement = "needs_direct_measurement"
	CodeConfigurationError     = "configuration_error"
	CodeInsufficientData       = "insufficient_data"
)

// UnavailableFrom turns a derivation error into an Unavailable entry.
func UnavailableFrom(kind Kind, err error) Unavailable {
	if errors.Is(err, ErrNonPhysical) {
		return Unavailable{Kind: kind, Code: CodeInsufficientData, Reason: err.Error()}
	}
	switch e := err.(type) {
	case *DomainInvalidError:
		return Unavailable{Kind: kind, Code: e.Code, Reason: e.Reason}
	case *ConfigurationError:
		return Unavailable{Kind: kind, Code: CodeConfigurationError, Reason: e.Error()}
	default:
		return Unavailable{Kind: kind, Code: CodeConfigurationError, Reason: err.Error()}
	}
}
