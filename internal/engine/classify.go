package engine

import (
	"fmt"
	"math"
)

type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityCaution  Severity = "caution"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from ok (0) to critical (3).
func (s Severity) Rank() int {
	switch s {
	case SeverityCaution:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// Bucket is one row of a threshold table. Values below UpperBound (and not
// below the previous bucket's bound) fall into it. The last bucket's bound is
// ignored and treated as +Inf.
type Bucket struct {
	UpperBound  float64
	Label       string
	Description string
	Severity    Severity
}

// Category is a classification result with the range that produced it.
// Min is inclusive, Max exclusive; nil means unbounded.
type Category struct {
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
}

// Table is an ascending list of buckets for one reading kind.
type Table struct {
	Kind    Kind
	Buckets []Bucket
}

// Classify returns the first bucket whose UpperBound is strictly greater than
// value, or the last bucket. A value equal to a bound belongs to the next bucket.
func Classify(value float64, buckets []Bucket) Bucket {
	return buckets[classifyIndex(value, buckets)]
}

func classifyIndex(value float64, buckets []Bucket) int {
	last := len(buckets) - 1
	for i := 0; i < last; i++ {
		if value < buckets[i].UpperBound {
			return i
		}
	}
	return last
}

func (t Table) Classify(value float64) Category {
	i := classifyIndex(value, t.Buckets)
	b := t.Buckets[i]
	c := Category{Label: b.Label, Description: b.Description, Severity: b.Severity}
	if i > 0 {
		lo := t.Buckets[i-1].UpperBound
		c.Min = &lo
	}
	if i < len(t.Buckets)-1 {
		hi := b.UpperBound
		c.Max = &hi
	}
	return c
}

// Labels returns the bucket labels in table order.
func (t Table) Labels() []string {
	out := make([]string, len(t.Buckets))
	for i, b := range t.Buckets {
		out[i] = b.Label
	}
	return out
}

// Cutoffs returns every effective bound (all but the last bucket's).
func (t Table) Cutoffs() []float64 {
	if len(t.Buckets) == 0 {
		return nil
	}
	out := make([]float64, 0, len(t.Buckets)-1)
	for _, b := range t.Buckets[:len(t.Buckets)-1] {
		out = append(out, b.UpperBound)
	}
	return out
}

func (t Table) Validate() error {
	component := fmt.Sprintf("table %s", t.Kind)
	if len(t.Buckets) == 0 {
		return &ConfigurationError{Component: component, Detail: "no buckets"}
	}
	seen := map[string]bool{}
	for i, b := range t.Buckets {
		if b.Label == "" {
			return &ConfigurationError{Component: component, Detail: fmt.Sprintf("bucket %d has no label", i)}
		}
		if seen[b.Label] {
			return &ConfigurationError{Component: component, Detail: fmt.Sprintf("duplicate label %q", b.Label)}
		}
		seen[b.Label] = true
		if b.Severity == "" {
			return &ConfigurationError{Component: component, Detail: fmt.Sprintf("bucket %q has no severity", b.Label)}
		}
		if i == len(t.Buckets)-1 {
			break
		}
		if math.IsNaN(b.UpperBound) || math.IsInf(b.UpperBound, 0) {
			return &ConfigurationError{Component: component, Detail: fmt.Sprintf("bucket %q has no finite bound", b.Label)}
		}
		if i > 0 && b.UpperBound <= t.Buckets[i-1].UpperBound {
			return &ConfigurationError{Component: component, Detail: fmt.Sprintf("bucket %q is not in ascending order", b.Label)}
		}
	}
	return nil
}

// WithBounds returns a copy of t with new effective bounds; len(bounds) must
// equal len(t.Cutoffs()).
func (t Table) WithBounds(bounds []float64) (Table, error) {
	if len(bounds) != len(t.Buckets)-1 {
		return Table{}, &ConfigurationError{
			Component: fmt.Sprintf("table %s", t.Kind),
			Detail:    fmt.Sprintf("expected %d bounds, got %d", len(t.Buckets)-1, len(bounds)),
		}
	}
	out := Table{Kind: t.Kind, Buckets: append([]Bucket(nil), t.Buckets...)}
	for i, b := range bounds {
		out.Buckets[i].UpperBound = b
	}
	return out, out.Validate()
}
