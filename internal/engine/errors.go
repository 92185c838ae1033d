package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMalformedInput is returned when a request body cannot be decoded at all.
var ErrMalformedInput = errors.New("malformed input")

// ErrNonPhysical is returned by Convert for negative, NaN or infinite values.
var ErrNonPhysical = errors.New("value is not a physical quantity")

// ValidationError carries every failing field of one input, keyed by json name.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, exists := e.Fields[field]; exists {
		return
	}
	e.Fields[field] = msg
}

// ConfigurationError marks a programming error in the tables: a missing
// conversion factor, an unsorted bucket list, a mapper without an entry.
type ConfigurationError struct {
	Component string
	Detail    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Detail)
}

// UnknownCategoryError is returned by a Mapper asked for a label it does not hold.
type UnknownCategoryError struct {
	Label string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("no recommendations for category %q", e.Label)
}

// DomainInvalidError means a formula cannot be applied to the given values,
// e.g. Friedewald LDL with triglycerides at or above 400 mg/dL.
type DomainInvalidError struct {
	Kind   Kind
	Code   string
	Reason string
}

func (e *DomainInvalidError) Error() string {
	return fmt.Sprintf("%s unavailable: %s", e.Kind, e.Reason)
}
