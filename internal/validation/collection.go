// Package validation checks persisted collections against a JSON Schema
// generated from their domain.Schema before they are decoded.
package validation

import (
	"bytes"
	"checklist/pkg/domain"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Issue is a single schema violation located by a dotted path such as "[2].prio".
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// CollectionError lists every violation found in one payload. It matches
// domain.ErrCorrupt under errors.Is.
type CollectionError struct {
	Collection string
	Issues     []Issue
}

func (e *CollectionError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.String())
	}
	return fmt.Sprintf("%s: %s", e.Collection, strings.Join(parts, "; "))
}

func (e *CollectionError) Is(target error) bool { return target == domain.ErrCorrupt }

// CollectionValidator validates raw collection payloads for one schema.
type CollectionValidator struct {
	schema   domain.Schema
	compiled *jsonschema.Schema
}

var cache sync.Map // schema name+keys -> *CollectionValidator

// ForSchema returns a cached validator for schema, compiling it on first use.
func ForSchema(schema domain.Schema) (*CollectionValidator, error) {
	key := schema.Name + "|" + strings.Join(schema.Keys(), ",")
	if v, ok := cache.Load(key); ok {
		return v.(*CollectionValidator), nil
	}
	v, err := NewCollectionValidator(schema)
	if err != nil {
		return nil, err
	}
	actual, _ := cache.LoadOrStore(key, v)
	return actual.(*CollectionValidator), nil
}

// NewCollectionValidator compiles the JSON Schema document for schema.
func NewCollectionValidator(schema domain.Schema) (*CollectionValidator, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	doc, err := Document(schema)
	if err != nil {
		return nil, err
	}
	url := "mem://checklist/" + schema.Name + ".schema.json"
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(url, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", schema.Name, err)
	}
	return &CollectionValidator{schema: schema, compiled: compiled}, nil
}

// Document renders the JSON Schema describing a persisted collection.
func Document(schema domain.Schema) ([]byte, error) {
	label := map[string]any{"type": "string", "minLength": 1}
	doc := map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"title":   schema.Name,
		"type":    "array",
		"items": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             schema.Keys(),
			"properties": map[string]any{
				domain.KeyID:          map[string]any{"type": "string", "minLength": 1},
				domain.KeyChecked:     map[string]any{"type": "boolean"},
				schema.PriorityKey():  map[string]any{"type": "integer", "minimum": domain.MinPriority, "maximum": domain.MaxPriority},
				schema.PrimaryField:   label,
				schema.SecondaryField: label,
			},
		},
	}
	return json.Marshal(doc)
}

// Validate checks a raw payload. Violations, including an empty payload, are
// returned as *CollectionError.
func (v *CollectionValidator) Validate(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &CollectionError{Collection: v.schema.Name, Issues: []Issue{{Message: "empty payload"}}}
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return &CollectionError{Collection: v.schema.Name, Issues: []Issue{{Message: "invalid json: " + err.Error()}}}
	}
	err := v.compiled.Validate(instance)
	if err == nil {
		return nil
	}
	out := &CollectionError{Collection: v.schema.Name}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		out.Issues = append(out.Issues, Issue{Message: err.Error()})
		return out
	}
	collectIssues(out, ve)
	return out
}

func collectIssues(out *CollectionError, err *jsonschema.ValidationError) {
	if len(err.Causes) == 0 {
		out.Issues = append(out.Issues, Issue{Path: pointerToPath(err.InstanceLocation), Message: err.Message})
		return
	}
	for _, cause := range err.Causes {
		collectIssues(out, cause)
	}
}

func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}
	var b strings.Builder
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			fmt.Fprintf(&b, "[%d]", idx)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
