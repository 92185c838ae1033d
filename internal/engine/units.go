package engine

import (
	"fmt"
	"math"
	"sort"
)

type Unit string

const (
	MgPerDL    Unit = "mg/dL"
	MmolPerL   Unit = "mmol/L"
	NgPerML    Unit = "ng/mL"
	NmolPerL   Unit = "nmol/L"
	Kilogram   Unit = "kg"
	Pound      Unit = "lb"
	Centimeter Unit = "cm"
	Meter      Unit = "m"
	Inch       Unit = "in"
	Milliliter Unit = "ml"
	Liter      Unit = "L"
	FluidOunce Unit = "fl oz"
	Percent    Unit = "%"
	MmolPerMol Unit = "mmol/mol"
	MmHg       Unit = "mmHg"
	BPM        Unit = "bpm"
	KgPerM2    Unit = "kg/m²"
	Kcal       Unit = "kcal"
	Hours      Unit = "h"
	Minutes    Unit = "min"
	Days       Unit = "d"
	Weeks      Unit = "wk"
	Ratio      Unit = "ratio"
)

// Quantity names the physical dimension a conversion factor belongs to. The
// same pair of units can carry different factors for different quantities
// (mmol/L for cholesterol is not mmol/L for glucose).
type Quantity string

const (
	QuantityCholesterol   Quantity = "cholesterol"
	QuantityTriglycerides Quantity = "triglycerides"
	QuantityGlucose       Quantity = "glucose"
	QuantityVitaminD      Quantity = "vitamin-d"
	QuantityMass          Quantity = "mass"
	QuantityLength        Quantity = "length"
	QuantityVolume        Quantity = "volume"
	// QuantityScalar covers measurements with a single accepted unit.
	QuantityScalar Quantity = "scalar"
)

type conversionKey struct {
	quantity Quantity
	from     Unit
	to       Unit
}

var (
	factors       = map[conversionKey]float64{}
	quantityUnits = map[Quantity][]Unit{}
)

func init() {
	registerFactor(QuantityCholesterol, MmolPerL, MgPerDL, 38.67)
	registerFactor(QuantityTriglycerides, MmolPerL, MgPerDL, 88.57)
	registerFactor(QuantityGlucose, MmolPerL, MgPerDL, 18.0)
	registerFactor(QuantityVitaminD, NmolPerL, NgPerML, 1/2.496)
	registerFactor(QuantityMass, Pound, Kilogram, 0.45359237)
	registerFactor(QuantityLength, Inch, Centimeter, 2.54)
	registerFactor(QuantityLength, Meter, Centimeter, 100)
	registerFactor(QuantityLength, Meter, Inch, 100/2.54)
	registerFactor(QuantityVolume, Liter, Milliliter, 1000)
	registerFactor(QuantityVolume, FluidOunce, Milliliter, 29.5735295625)
	registerFactor(QuantityVolume, Liter, FluidOunce, 1000/29.5735295625)
}

// registerFactor stores factor for from->to and its reciprocal for to->from.
func registerFactor(q Quantity, from, to Unit, factor float64) {
	factors[conversionKey{q, from, to}] = factor
	factors[conversionKey{q, to, from}] = 1 / factor
	addUnit(q, from)
	addUnit(q, to)
}

func addUnit(q Quantity, u Unit) {
	for _, existing := range quantityUnits[q] {
		if existing == u {
			return
		}
	}
	quantityUnits[q] = append(quantityUnits[q], u)
}

// Convert multiplies value by the fixed factor for (q, from, to). It never
// rounds. Identical units are the identity.
func Convert(value float64, from, to Unit, q Quantity) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, fmt.Errorf("convert %v %s: %w", value, from, ErrNonPhysical)
	}
	if from == to {
		return value, nil
	}
	f, ok := factors[conversionKey{q, from, to}]
	if !ok {
		return 0, &ConfigurationError{
			Component: "unit converter",
			Detail:    fmt.Sprintf("no factor for %s from %q to %q", q, from, to),
		}
	}
	out := value * f
	if math.IsInf(out, 0) {
		return 0, fmt.Errorf("convert %v %s to %s: %w", value, from, to, ErrNonPhysical)
	}
	return out, nil
}

// Units lists the units that have at least one factor for q.
func Units(q Quantity) []Unit {
	out := append([]Unit(nil), quantityUnits[q]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Quantities lists every quantity with registered factors.
func Quantities() []Quantity {
	out := make([]Quantity, 0, len(quantityUnits))
	for q := range quantityUnits {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
