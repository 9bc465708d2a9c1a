package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const priorityOutOfRange = "priority out of range"

// ValidateCreate checks both creation labels and returns them trimmed.
func (s Schema) ValidateCreate(primary, secondary string) (RecordInput, error) {
	primary = strings.TrimSpace(primary)
	secondary = strings.TrimSpace(secondary)
	if primary == "" {
		return RecordInput{}, missingField(s.PrimaryField)
	}
	if secondary == "" {
		return RecordInput{}, missingField(s.SecondaryField)
	}
	return RecordInput{PrimaryLabel: primary, SecondaryLabel: secondary}, nil
}

func missingField(field string) ValidationError {
	return ValidationError{Field: field, Message: "missing " + field}
}

// ValidatePriority enforces MinPriority <= value <= MaxPriority.
func ValidatePriority(value int) error {
	if value < MinPriority || value > MaxPriority {
		return ValidationError{Field: "priority", Message: priorityOutOfRange}
	}
	return nil
}

// ParsePriority converts a decoded request value into a priority. Integers,
// integral floats, json.Number and decimal strings are accepted; everything
// else, including fractions, is rejected.
func ParsePriority(raw any) (int, error) {
	var value int
	switch v := raw.(type) {
	case int:
		value = v
	case int32:
		value = int(v)
	case int64:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, ValidationError{Field: "priority", Message: priorityOutOfRange}
		}
		value = int(v)
	case float64:
		n, ok := integralFloat(v)
		if !ok {
			return 0, ValidationError{Field: "priority", Message: priorityOutOfRange}
		}
		value = n
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, ValidationError{Field: "priority", Message: priorityOutOfRange}
		}
		n, ok := integralFloat(f)
		if !ok {
			return 0, ValidationError{Field: "priority", Message: priorityOutOfRange}
		}
		value = n
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, ValidationError{Field: "priority", Message: priorityOutOfRange}
		}
		value = n
	default:
		return 0, ValidationError{Field: "priority", Message: priorityOutOfRange}
	}
	if err := ValidatePriority(value); err != nil {
		return 0, err
	}
	return value, nil
}

// integralFloat reports v as an int when it has no fractional part and fits
// in 32 bits. 2.0 and 2 are the same JSON number.
func integralFloat(v float64) (int, bool) {
	if v != math.Trunc(v) || math.IsInf(v, 0) || v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}
