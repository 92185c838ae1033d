package engine

import "fmt"

type Recommendation struct {
	Narrative       string   `json:"narrative"`
	Recommendations []string `json:"recommendations"`
}

// Mapper is a static lookup from a tier or category label to canned text.
type Mapper map[string]Recommendation

func (m Mapper) For(label string) (Recommendation, error) {
	rec, ok := m[label]
	if !ok {
		return Recommendation{}, &UnknownCategoryError{Label: label}
	}
	return rec, nil
}

// Covers checks that every label has an entry, so lookups cannot fail at
// request time.
func (m Mapper) Covers(component string, labels ...string) error {
	for _, l := range labels {
		if _, ok := m[l]; !ok {
			return &ConfigurationError{Component: component, Detail: fmt.Sprintf("no recommendations for %q", l)}
		}
	}
	return nil
}
