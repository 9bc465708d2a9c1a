package domain

import "sort"

// SortByPriority returns a copy of records ordered by ascending priority.
// Records sharing a priority keep their relative order.
func SortByPriority(records []Record) []Record {
	out := CloneRecords(records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}
