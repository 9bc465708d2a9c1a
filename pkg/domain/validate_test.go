package domain

import (
	"encoding/json"
	"testing"
)

func TestParsePriority(t *testing.T) {
	valid := []struct {
		raw  any
		want int
	}{
		{1, 1},
		{int64(2), 2},
		{int32(3), 3},
		{float64(2), 2},
		{json.Number("3"), 3},
		{json.Number("2.0"), 2},
		{json.Number("1e0"), 1},
		{float64(3.0), 3},
		{"1", 1},
		{" 2 ", 2},
	}
	for _, c := range valid {
		got, err := ParsePriority(c.raw)
		if err != nil || got != c.want {
			t.Fatalf("ParsePriority(%#v)=%d,%v want %d", c.raw, got, err, c.want)
		}
	}
	invalid := []any{nil, 0, 4, -1, 1.5, json.Number("2.5"), json.Number("9"), json.Number("NaN"), json.Number("1e40"), "", "two", "1e0", true, []int{1}, int64(1 << 40)}
	for _, raw := range invalid {
		_, err := ParsePriority(raw)
		if !IsValidation(err) {
			t.Fatalf("ParsePriority(%#v) expected validation error, got %v", raw, err)
		}
		if err.Error() != "priority out of range" {
			t.Fatalf("unexpected message %q", err.Error())
		}
	}
}

func TestValidatePriorityBounds(t *testing.T) {
	for p := MinPriority; p <= MaxPriority; p++ {
		if err := ValidatePriority(p); err != nil {
			t.Fatalf("priority %d rejected: %v", p, err)
		}
	}
	if ValidatePriority(MinPriority-1) == nil || ValidatePriority(MaxPriority+1) == nil {
		t.Fatalf("out of range priority accepted")
	}
}
