package fields

import (
	"strconv"
	"strings"
)

// Value is a scalar extracted from property attributes: either text or a
// number with an optional unit.
type Value struct {
	text     string
	unit     string
	number   float64
	isNumber bool
}

// Text creates a text value.
func Text(s string) Value {
	return Value{text: s}
}

// Number creates a numeric value rendered with unit, e.g. "5000 sq ft".
func Number(n float64, unit string) Value {
	return Value{number: n, unit: unit, isNumber: true}
}

// IsNumber reports whether the value is numeric.
func (v Value) IsNumber() bool {
	return v.isNumber
}

// Float returns the numeric value, or 0 for text values.
func (v Value) Float() float64 {
	return v.number
}

// String renders the value for a text custom field.
func (v Value) String() string {
	if !v.isNumber {
		return v.text
	}
	s := strconv.FormatFloat(v.number, 'f', -1, 64)
	if v.unit == "" {
		return s
	}
	return s + " " + v.unit
}

func textOf(s *string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return Value{}, false
	}
	return Text(trimmed), true
}

func numberOf(n *float64, unit string) (Value, bool) {
	if n == nil {
		return Value{}, false
	}
	return Number(*n, unit), true
}
