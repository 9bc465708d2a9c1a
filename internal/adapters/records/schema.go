package records

import (
	"checklist/internal/validation"
	"checklist/pkg/domain"
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchemaHandler serves the JSON Schema of each persisted collection at
// /schema/<collection>.json, or as YAML at /schema/<collection>.yaml.
type SchemaHandler struct {
	schemas map[string]domain.Schema
}

// NewSchemaHandler returns a handler for the given collections.
func NewSchemaHandler(schemas []domain.Schema) *SchemaHandler {
	byName := make(map[string]domain.Schema, len(schemas))
	for _, s := range schemas {
		byName[s.Name] = s
	}
	return &SchemaHandler{schemas: byName}
}

func (h *SchemaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	file := path.Base(r.URL.Path)
	ext := path.Ext(file)
	schema, ok := h.schemas[strings.TrimSuffix(file, ext)]
	if !ok {
		writeError(w, http.StatusNotFound, "schema not found")
		return
	}
	doc, err := validation.Document(schema)
	if err != nil {
		writeError(w, http.StatusInternalServerError, internalMessage)
		return
	}
	switch ext {
	case ".json":
		writeRaw(w, http.StatusOK, doc)
	case ".yaml", ".yml":
		out, err := jsonToYAML(doc)
		if err != nil {
			writeError(w, http.StatusInternalServerError, internalMessage)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
	default:
		writeError(w, http.StatusNotFound, "schema not found")
	}
}

func jsonToYAML(doc []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, err
	}
	return yaml.Marshal(v)
}
