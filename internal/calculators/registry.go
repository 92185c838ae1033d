// Package calculators registers every metric and applies weight overrides.
package calculators

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Skufu/vitalcalc/internal/calculators/bloodpressure"
	"github.com/Skufu/vitalcalc/internal/calculators/bloodsugar"
	"github.com/Skufu/vitalcalc/internal/calculators/bmi"
	"github.com/Skufu/vitalcalc/internal/calculators/calorie"
	"github.com/Skufu/vitalcalc/internal/calculators/cholesterol"
	"github.com/Skufu/vitalcalc/internal/calculators/duedate"
	"github.com/Skufu/vitalcalc/internal/calculators/hydration"
	"github.com/Skufu/vitalcalc/internal/calculators/kidsbmi"
	"github.com/Skufu/vitalcalc/internal/calculators/ovulation"
	"github.com/Skufu/vitalcalc/internal/calculators/sleep"
	"github.com/Skufu/vitalcalc/internal/calculators/vitamind"
	"github.com/Skufu/vitalcalc/internal/engine"
)

// Assessor runs one metric's pipeline on a raw JSON body.
type Assessor interface {
	Metric() string
	AssessJSON(raw []byte) (*engine.AssessmentResult, error)
}

// Override replaces risk weights by factor name and, optionally, the tier bounds.
type Override struct {
	Weights map[string]int `yaml:"weights"`
	Tiers   []float64      `yaml:"tiers"`
}

// Overrides is keyed by metric name.
type Overrides map[string]Override

// ParseOverrides decodes an overrides document.
func ParseOverrides(data []byte) (Overrides, error) {
	var ov Overrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	return ov, nil
}

// LoadOverrides reads an overrides file. An empty path means no overrides.
func LoadOverrides(path string) (Overrides, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	return ParseOverrides(data)
}

type Registry struct {
	assessors map[string]Assessor
	tables    []engine.Table
}

// New builds every metric with ov applied. Any inconsistency in the tables,
// mappers or overrides fails here rather than on a request.
func New(ov Overrides) (*Registry, error) {
	r := &Registry{assessors: map[string]Assessor{}}
	steps := []error{
		register(r, bmi.Config(), ov),
		register(r, kidsbmi.Config(), ov),
		register(r, bloodpressure.Config(), ov),
		register(r, cholesterol.Config(), ov),
		register(r, vitamind.Config(), ov),
		register(r, bloodsugar.Config(), ov),
		register(r, sleep.Config(), ov),
		register(r, hydration.Config(), ov),
		register(r, calorie.Config(), ov),
		register(r, ovulation.Config(), ov),
		register(r, duedate.Config(), ov),
	}
	for _, err := range steps {
		if err != nil {
			return nil, err
		}
	}
	for metric := range ov {
		if _, ok := r.assessors[metric]; !ok {
			return nil, &engine.ConfigurationError{Component: "overrides", Detail: fmt.Sprintf("unknown metric %q", metric)}
		}
	}

	r.tables = append(r.tables, kidsbmi.AllTables()...)
	r.tables = append(r.tables, sleep.AllDurationTables()...)
	return r, nil
}

func register[In any](r *Registry, cfg engine.Config[In], ov Overrides) error {
	if _, dup := r.assessors[cfg.Metric]; dup {
		return &engine.ConfigurationError{Component: "registry", Detail: fmt.Sprintf("metric %q registered twice", cfg.Metric)}
	}
	if o, ok := ov[cfg.Metric]; ok {
		if cfg.Scorer == nil {
			return &engine.ConfigurationError{Component: "overrides", Detail: fmt.Sprintf("metric %q has no risk score", cfg.Metric)}
		}
		sc, err := cfg.Scorer.Override(o.Weights, o.Tiers)
		if err != nil {
			return fmt.Errorf("overrides for %s: %w", cfg.Metric, err)
		}
		cfg.Scorer = sc
	}

	o, err := engine.New(cfg)
	if err != nil {
		return err
	}
	r.assessors[cfg.Metric] = o
	r.tables = append(r.tables, o.Tables()...)
	if tiers, ok := o.Tiers(); ok {
		r.tables = append(r.tables, tiers)
	}
	return nil
}

func (r *Registry) Get(metric string) (Assessor, bool) {
	a, ok := r.assessors[metric]
	return a, ok
}

// Metrics returns the registered metric names in sorted order.
func (r *Registry) Metrics() []string {
	out := make([]string, 0, len(r.assessors))
	for m := range r.assessors {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Tables returns every threshold table in the system, including the risk
// tiers and the subject-dependent tables of every age and sex.
func (r *Registry) Tables() []engine.Table {
	return r.tables
}

// Decorate replaces every assessor with wrap(assessor), e.g. to add caching.
func (r *Registry) Decorate(wrap func(Assessor) Assessor) {
	for m, a := range r.assessors {
		r.assessors[m] = wrap(a)
	}
}
