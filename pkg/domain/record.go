// Package domain defines the record type, collection schemas, validation and
// ordering rules, and the persistence contracts used by checklist.
package domain

// Priority bounds and the value assigned to freshly created records.
const (
	MinPriority     = 1
	MaxPriority     = 3
	DefaultPriority = 3
)

// Record is a single entry of a collection (a todo, a player, ...).
type Record struct {
	ID             string
	Checked        bool
	Priority       int
	PrimaryLabel   string
	SecondaryLabel string
}

// RecordInput carries validated creation labels. Obtain one from
// Schema.ValidateCreate; the store trusts its contents.
type RecordInput struct {
	PrimaryLabel   string
	SecondaryLabel string
}

// CloneRecords returns an independent copy of records. A nil input yields an
// empty, non-nil slice so callers can always encode it as a JSON array.
func CloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

// IndexOf returns the position of the record with the given id, or -1.
func IndexOf(records []Record, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}
