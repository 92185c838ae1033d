package main

import (
	"math"
	"strconv"

	"github.com/Skufu/vitalcalc/internal/engine"
)

// Colors and display rounding live here, at the rendering boundary; the
// engine only knows severities and full-precision values.
var severityColor = map[engine.Severity]string{
	engine.SeverityOK:       "green",
	engine.SeverityCaution:  "yellow",
	engine.SeverityWarning:  "orange",
	engine.SeverityCritical: "red",
}

var unitDecimals = map[engine.Unit]int{
	engine.MgPerDL:    0,
	engine.MmHg:       0,
	engine.BPM:        0,
	engine.Kcal:       0,
	engine.Milliliter: 0,
	engine.Minutes:    0,
	engine.Days:       0,
	engine.Percent:    1,
	engine.Ratio:      2,
}

type categoryView struct {
	engine.Category
	Color string `json:"color"`
}

type readingView struct {
	Kind      engine.Kind     `json:"kind"`
	Value     float64         `json:"value"`
	Display   string          `json:"display"`
	Unit      engine.Unit     `json:"unit"`
	Entered   *engine.Entered `json:"entered,omitempty"`
	Derived   bool            `json:"derived,omitempty"`
	Estimated bool            `json:"estimated,omitempty"`
	Category  *categoryView   `json:"category,omitempty"`
}

type riskView struct {
	engine.RiskAssessment
	Color string `json:"color"`
}

type flagView struct {
	engine.WarningFlag
	Display string `json:"display"`
}

type resultView struct {
	Metric      string               `json:"metric"`
	Category    *categoryView        `json:"category,omitempty"`
	Readings    []readingView        `json:"readings"`
	Composites  []readingView        `json:"composites,omitempty"`
	Unavailable []engine.Unavailable `json:"unavailable,omitempty"`
	Risk        *riskView            `json:"risk,omitempty"`
	Treatment   engine.Treatment     `json:"treatment"`
	Flags       []flagView           `json:"flags"`
	Details     any                  `json:"details,omitempty"`
}

func present(res *engine.AssessmentResult) resultView {
	v := resultView{
		Metric:      res.Metric,
		Category:    presentCategory(res.Category),
		Readings:    presentReadings(res.Readings),
		Unavailable: res.Unavailable,
		Treatment:   res.Treatment,
		Flags:       make([]flagView, 0, len(res.Flags)),
		Details:     res.Details,
	}
	if len(res.Composites) > 0 {
		v.Composites = presentReadings(res.Composites)
	}
	if res.Risk != nil {
		v.Risk = &riskView{RiskAssessment: *res.Risk, Color: severityColor[res.Risk.Severity]}
	}
	for _, f := range res.Flags {
		unit, _ := engine.CanonicalUnit(f.Kind)
		v.Flags = append(v.Flags, flagView{WarningFlag: f, Display: display(f.Value, unit)})
	}
	return v
}

func presentCategory(c *engine.Category) *categoryView {
	if c == nil {
		return nil
	}
	return &categoryView{Category: *c, Color: severityColor[c.Severity]}
}

func presentReadings(rs engine.ReadingSet) []readingView {
	out := make([]readingView, 0, len(rs))
	for _, r := range rs {
		out = append(out, readingView{
			Kind:      r.Kind,
			Value:     r.Value,
			Display:   display(r.Value, r.Unit),
			Unit:      r.Unit,
			Entered:   r.Entered,
			Derived:   r.Derived,
			Estimated: r.Estimated,
			Category:  presentCategory(r.Category),
		})
	}
	return out
}

// display rounds v to the precision people read for unit.
func display(v float64, unit engine.Unit) string {
	decimals, ok := unitDecimals[unit]
	if !ok {
		decimals = 1
	}
	p := math.Pow(10, float64(decimals))
	return strconv.FormatFloat(math.Round(v*p)/p, 'f', decimals, 64)
}
