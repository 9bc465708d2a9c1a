package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Fixed record keys shared by every schema.
const (
	KeyID              = "id"
	KeyChecked         = "checked"
	defaultPriorityKey = "priority"
)

// Schema names a collection and the serialized keys of its label and
// priority fields. The todo and player collections differ only here.
type Schema struct {
	Name           string // plural collection name, also the storage bucket
	Singular       string // route segment for single-record operations
	PrimaryField   string
	SecondaryField string
	PriorityField  string // defaults to "priority"
}

// Built-in collections. Both keep the "prio" key used by existing data files
// and the bundled front end.
var (
	TodoSchema = Schema{
		Name:           "todos",
		Singular:       "todo",
		PrimaryField:   "owner",
		SecondaryField: "todo",
		PriorityField:  "prio",
	}
	PlayerSchema = Schema{
		Name:           "players",
		Singular:       "player",
		PrimaryField:   "firstName",
		SecondaryField: "lastName",
		PriorityField:  "prio",
	}
)

// BuiltinSchemas lists the collections served by default.
func BuiltinSchemas() []Schema {
	return []Schema{TodoSchema, PlayerSchema}
}

// LookupSchema resolves a built-in schema by its plural or singular name.
func LookupSchema(name string) (Schema, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range BuiltinSchemas() {
		if strings.ToLower(s.Name) == name || strings.ToLower(s.Singular) == name {
			return s, true
		}
	}
	return Schema{}, false
}

// PriorityKey returns the serialized priority key.
func (s Schema) PriorityKey() string {
	if s.PriorityField == "" {
		return defaultPriorityKey
	}
	return s.PriorityField
}

// Keys returns the serialized record keys in encoding order.
func (s Schema) Keys() []string {
	return []string{KeyID, KeyChecked, s.PriorityKey(), s.PrimaryField, s.SecondaryField}
}

// Validate checks that the schema names are usable and its keys are distinct.
func (s Schema) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("schema name required")
	}
	if strings.TrimSpace(s.Singular) == "" {
		return fmt.Errorf("schema %s: singular name required", s.Name)
	}
	if s.Singular == s.Name {
		return fmt.Errorf("schema %s: singular and plural names must differ", s.Name)
	}
	seen := make(map[string]struct{}, 5)
	for _, key := range s.Keys() {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("schema %s: empty field name", s.Name)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("schema %s: duplicate field %q", s.Name, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// MarshalRecord encodes a single record as a JSON object with keys in
// Schema.Keys order.
func (s Schema) MarshalRecord(r Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.writeRecord(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalRecords encodes the collection as a JSON array. A nil slice encodes as [].
func (s Schema) MarshalRecords(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := s.writeRecord(&buf, r); err != nil {
			return nil, fmt.Errorf("encode %s[%d]: %w", s.Name, i, err)
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (s Schema) writeRecord(buf *bytes.Buffer, r Record) error {
	values := []any{r.ID, r.Checked, r.Priority, r.PrimaryLabel, r.SecondaryLabel}
	buf.WriteByte('{')
	for i, key := range s.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(values[i])
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalRecords strictly decodes a persisted collection. Missing or unknown
// keys, duplicate ids, empty labels and out-of-range priorities are reported
// as ErrCorrupt, and so is empty input: an empty collection is stored as [].
func (s Schema) UnmarshalRecords(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrCorrupt, s.Name)
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: %s is null", ErrCorrupt, s.Name)
	}
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.Name, err)
	}
	known := make(map[string]struct{}, 5)
	for _, key := range s.Keys() {
		known[key] = struct{}{}
	}
	out := make([]Record, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, obj := range raw {
		if obj == nil {
			return nil, fmt.Errorf("%w: %s[%d] is null", ErrCorrupt, s.Name, i)
		}
		for key := range obj {
			if _, ok := known[key]; !ok {
				return nil, fmt.Errorf("%w: %s[%d]: unexpected key %q", ErrCorrupt, s.Name, i, key)
			}
		}
		var r Record
		fields := []struct {
			key string
			dst any
		}{
			{KeyID, &r.ID},
			{KeyChecked, &r.Checked},
			{s.PriorityKey(), &r.Priority},
			{s.PrimaryField, &r.PrimaryLabel},
			{s.SecondaryField, &r.SecondaryLabel},
		}
		for _, f := range fields {
			value, ok := obj[f.key]
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d]: missing %q", ErrCorrupt, s.Name, i, f.key)
			}
			if err := json.Unmarshal(value, f.dst); err != nil {
				return nil, fmt.Errorf("%w: %s[%d].%s: %v", ErrCorrupt, s.Name, i, f.key, err)
			}
		}
		if r.ID == "" {
			return nil, fmt.Errorf("%w: %s[%d]: empty id", ErrCorrupt, s.Name, i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: %s[%d]: duplicate id %s", ErrCorrupt, s.Name, i, r.ID)
		}
		seen[r.ID] = struct{}{}
		if r.PrimaryLabel == "" || r.SecondaryLabel == "" {
			return nil, fmt.Errorf("%w: %s[%d]: empty label", ErrCorrupt, s.Name, i)
		}
		if err := ValidatePriority(r.Priority); err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: priority %d out of range", ErrCorrupt, s.Name, i, r.Priority)
		}
		out = append(out, r)
	}
	return out, nil
}
