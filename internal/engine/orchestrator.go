package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Priority string

const (
	PriorityRoutine Priority = "routine"
	PriorityMonitor Priority = "monitor"
	PriorityTreat   Priority = "treat"
	PriorityUrgent  Priority = "urgent"
)

type FlagLevel string

const (
	FlagCaution FlagLevel = "caution"
	FlagWarning FlagLevel = "warning"
	FlagSevere  FlagLevel = "severe"
	FlagUrgent  FlagLevel = "urgent"
)

// WarningFlag is raised from a single reading crossing an emergency cutoff,
// independent of the aggregate score.
type WarningFlag struct {
	Code            string    `json:"code"`
	Level           FlagLevel `json:"level"`
	Kind            Kind      `json:"kind"`
	Value           float64   `json:"value"`
	Message         string    `json:"message"`
	Recommendations []string  `json:"recommendations"`
}

// FlagRule raises a WarningFlag when Breached holds for the reading of Kind.
// Rules sharing a Code raise at most one flag; the first match wins.
type FlagRule struct {
	Code            string
	Kind            Kind
	Breached        func(v float64) bool
	Level           FlagLevel
	Message         string
	Recommendations []string
}

type Treatment struct {
	Priority        Priority `json:"priority"`
	Basis           string   `json:"basis"`
	Overridden      bool     `json:"overridden,omitempty"`
	Narrative       string   `json:"narrative"`
	Recommendations []string `json:"recommendations"`
}

type AssessmentResult struct {
	Metric      string          `json:"metric"`
	Category    *Category       `json:"category,omitempty"`
	Readings    ReadingSet      `json:"readings"`
	Composites  ReadingSet      `json:"composites,omitempty"`
	Unavailable []Unavailable   `json:"unavailable,omitempty"`
	Risk        *RiskAssessment `json:"risk,omitempty"`
	Treatment   Treatment       `json:"treatment"`
	Flags       []WarningFlag   `json:"flags"`
	Details     any             `json:"details,omitempty"`
}

// Subject is what risk predicates see: the validated input plus readings
// already in canonical units. Predicates must read measurements from
// Readings, never from raw Input fields.
type Subject[In any] struct {
	Input    In
	Readings ReadingSet
}

// Derivation collects the output of a metric's derive step.
type Derivation struct {
	Readings    ReadingSet
	Composites  ReadingSet
	Unavailable []Unavailable
}

// Add records a derived reading, or marks kind unavailable when value is not
// finite.
func (d *Derivation) Add(kind Kind, value float64) {
	r, err := DerivedReading(kind, value)
	if err != nil {
		d.Fail(kind, err)
		return
	}
	d.Readings = append(d.Readings, r)
}

func (d *Derivation) AddComposite(kind Kind, value float64) {
	r, err := DerivedReading(kind, value)
	if err != nil {
		d.Fail(kind, err)
		return
	}
	d.Composites = append(d.Composites, r)
}

func (d *Derivation) Fail(kind Kind, err error) {
	d.Unavailable = append(d.Unavailable, UnavailableFrom(kind, err))
}

// Config is everything that distinguishes one metric from another.
type Config[In any] struct {
	Metric string

	// Check adds cross-field errors the struct tags cannot express.
	Check    func(In) map[string]string
	Measures func(In) []Measure
	Derive   func(In, ReadingSet) Derivation

	Tables []Table
	// TableFor overrides Tables for subject-dependent cutoffs (age, sex).
	TableFor func(In, Kind) (Table, bool)

	Scorer *Scorer[Subject[In]]

	// Primary names the reading whose category is the headline when Headline is nil.
	Primary  Kind
	Headline func(ReadingSet) *Category

	Recommendations Mapper
	Priorities      map[string]Priority
	Flags           []FlagRule
	Details         func(In, ReadingSet) any
}

type Orchestrator[In any] struct {
	cfg    Config[In]
	tables map[Kind]Table
}

// New checks cfg for internal consistency so that no lookup can fail while
// assessing.
func New[In any](cfg Config[In]) (*Orchestrator[In], error) {
	component := "metric " + cfg.Metric
	if cfg.Metric == "" {
		return nil, &ConfigurationError{Component: "orchestrator", Detail: "metric name is empty"}
	}
	if cfg.Measures == nil {
		return nil, &ConfigurationError{Component: component, Detail: "no measures"}
	}

	tables := make(map[Kind]Table, len(cfg.Tables))
	var critical []string
	for _, t := range cfg.Tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := tables[t.Kind]; dup {
			return nil, &ConfigurationError{Component: component, Detail: fmt.Sprintf("duplicate table for %s", t.Kind)}
		}
		tables[t.Kind] = t
		for _, b := range t.Buckets {
			if b.Severity == SeverityCritical {
				critical = append(critical, b.Label)
			}
		}
	}

	var basis []string
	if cfg.Scorer != nil {
		if err := cfg.Scorer.Validate(); err != nil {
			return nil, err
		}
		basis = cfg.Scorer.Tiers.Labels()
	} else {
		primary, ok := tables[cfg.Primary]
		if !ok {
			return nil, &ConfigurationError{Component: component, Detail: fmt.Sprintf("primary kind %q has no table", cfg.Primary)}
		}
		basis = primary.Labels()
	}
	if err := cfg.Recommendations.Covers(component, basis...); err != nil {
		return nil, err
	}
	if err := cfg.Recommendations.Covers(component, critical...); err != nil {
		return nil, err
	}
	for _, l := range basis {
		if _, ok := cfg.Priorities[l]; !ok {
			return nil, &ConfigurationError{Component: component, Detail: fmt.Sprintf("no priority for %q", l)}
		}
	}
	for _, f := range cfg.Flags {
		if f.Code == "" || f.Breached == nil {
			return nil, &ConfigurationError{Component: component, Detail: "flag rule without code or predicate"}
		}
	}
	return &Orchestrator[In]{cfg: cfg, tables: tables}, nil
}

func (o *Orchestrator[In]) Metric() string { return o.cfg.Metric }

// Tables exposes the static tables, for coverage tests and reports.
func (o *Orchestrator[In]) Tables() []Table { return o.cfg.Tables }

// Tiers returns the risk tier table when the metric scores risk.
func (o *Orchestrator[In]) Tiers() (Table, bool) {
	if o.cfg.Scorer == nil {
		return Table{}, false
	}
	return o.cfg.Scorer.Tiers, true
}

// Assess runs validate, convert, derive, classify, flag, score, map and
// assemble. Only validation can fail.
func (o *Orchestrator[In]) Assess(in In) (*AssessmentResult, error) {
	if verr := o.validate(in); verr != nil {
		return nil, verr
	}

	var readings ReadingSet
	var unavailable []Unavailable
	for _, m := range o.cfg.Measures(in) {
		r, err := Canonicalize(m)
		if err != nil {
			unavailable = append(unavailable, UnavailableFrom(m.Kind, err))
			continue
		}
		readings = append(readings, r)
	}

	var composites ReadingSet
	if o.cfg.Derive != nil {
		base := append(ReadingSet(nil), readings...)
		d := o.cfg.Derive(in, base)
		readings = append(readings, d.Readings...)
		composites = d.Composites
		unavailable = append(unavailable, d.Unavailable...)
	}

	o.classify(in, readings)
	o.classify(in, composites)

	flags := o.flag(readings)

	all := make(ReadingSet, 0, len(readings)+len(composites))
	all = append(all, readings...)
	all = append(all, composites...)

	var risk *RiskAssessment
	if o.cfg.Scorer != nil {
		ra := o.cfg.Scorer.Score(Subject[In]{Input: in, Readings: all})
		risk = &ra
	}

	headline := o.headline(readings)

	res := &AssessmentResult{
		Metric:      o.cfg.Metric,
		Category:    headline,
		Readings:    readings,
		Composites:  composites,
		Unavailable: unavailable,
		Risk:        risk,
		Treatment:   o.treat(risk, headline, all),
		Flags:       flags,
	}
	if o.cfg.Details != nil {
		res.Details = o.cfg.Details(in, all)
	}
	return res, nil
}

// AssessJSON decodes raw into the metric's input type and assesses it.
func (o *Orchestrator[In]) AssessJSON(raw []byte) (*AssessmentResult, error) {
	var in In
	if err := json.Unmarshal(raw, &in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, &ValidationError{Fields: map[string]string{typeErr.Field: "has the wrong type"}}
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return o.Assess(in)
}

func (o *Orchestrator[In]) validate(in In) *ValidationError {
	verr := ValidateStruct(in)
	if o.cfg.Check != nil {
		if extra := o.cfg.Check(in); len(extra) > 0 {
			if verr == nil {
				verr = &ValidationError{}
			}
			for field, msg := range extra {
				verr.add(field, msg)
			}
		}
	}
	return verr
}

func (o *Orchestrator[In]) tableFor(in In, kind Kind) (Table, bool) {
	if o.cfg.TableFor != nil {
		if t, ok := o.cfg.TableFor(in, kind); ok {
			return t, true
		}
	}
	t, ok := o.tables[kind]
	return t, ok
}

func (o *Orchestrator[In]) classify(in In, readings ReadingSet) {
	for i := range readings {
		t, ok := o.tableFor(in, readings[i].Kind)
		if !ok {
			continue
		}
		c := t.Classify(readings[i].Value)
		readings[i].Category = &c
	}
}

func (o *Orchestrator[In]) flag(readings ReadingSet) []WarningFlag {
	flags := []WarningFlag{}
	raised := map[string]bool{}
	for _, rule := range o.cfg.Flags {
		if raised[rule.Code] {
			continue
		}
		r, ok := readings.Get(rule.Kind)
		if !ok || !rule.Breached(r.Value) {
			continue
		}
		raised[rule.Code] = true
		flags = append(flags, WarningFlag{
			Code:            rule.Code,
			Level:           rule.Level,
			Kind:            r.Kind,
			Value:           r.Value,
			Message:         rule.Message,
			Recommendations: rule.Recommendations,
		})
	}
	return flags
}

func (o *Orchestrator[In]) headline(readings ReadingSet) *Category {
	if o.cfg.Headline != nil {
		return o.cfg.Headline(readings)
	}
	r, ok := readings.Get(o.cfg.Primary)
	if !ok || r.Category == nil {
		return nil
	}
	c := *r.Category
	return &c
}

func (o *Orchestrator[In]) treat(risk *RiskAssessment, headline *Category, all ReadingSet) Treatment {
	t := Treatment{Priority: PriorityRoutine, Recommendations: []string{}}
	switch {
	case risk != nil:
		t.Basis = risk.Tier
	case headline != nil:
		t.Basis = headline.Label
	}
	if t.Basis != "" {
		o.applyRecommendation(&t, t.Basis)
		if p, ok := o.cfg.Priorities[t.Basis]; ok {
			t.Priority = p
		}
	}

	// A single reading in a critical bucket forces urgent care whatever the score.
	if t.Priority == PriorityUrgent {
		return t
	}
	for _, r := range all {
		if r.Category == nil || r.Category.Severity != SeverityCritical {
			continue
		}
		t.Priority = PriorityUrgent
		t.Overridden = true
		t.Basis = r.Category.Label
		o.applyRecommendation(&t, r.Category.Label)
		break
	}
	return t
}

func (o *Orchestrator[In]) applyRecommendation(t *Treatment, label string) {
	rec, err := o.cfg.Recommendations.For(label)
	if err != nil {
		return
	}
	t.Narrative = rec.Narrative
	t.Recommendations = rec.Recommendations
}
