// Package persistence holds the collection codec shared by the byte-oriented
// backends (jsonfile, sqlite, postgres, objectstore).
package persistence

import (
	"checklist/internal/validation"
	"checklist/pkg/domain"
	"fmt"
)

// Encode serializes a collection in its persisted form.
func Encode(schema domain.Schema, records []domain.Record) ([]byte, error) {
	data, err := schema.MarshalRecords(records)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", schema.Name, err)
	}
	return data, nil
}

// Decode validates a persisted payload against the collection's JSON Schema
// and decodes it. Failures match domain.ErrCorrupt.
func Decode(schema domain.Schema, data []byte) ([]domain.Record, error) {
	v, err := validation.ForSchema(schema)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", schema.Name, err)
	}
	if err := v.Validate(data); err != nil {
		return nil, err
	}
	return schema.UnmarshalRecords(data)
}
