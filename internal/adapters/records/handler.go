// Package records exposes record collections over HTTP. Each Handler serves
// one schema; the route segments come from the schema's names.
package records

import (
	"bytes"
	"checklist/pkg/domain"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// Service is the collection API the handler depends on.
type Service interface {
	Schema() domain.Schema
	Create(ctx context.Context, primary, secondary string) (domain.Record, error)
	ListSorted(ctx context.Context) ([]domain.Record, error)
	Get(ctx context.Context, id string) (domain.Record, error)
	ToggleChecked(ctx context.Context, id string) (domain.Record, error)
	SetPriority(ctx context.Context, id string, raw any) (domain.Record, error)
	Delete(ctx context.Context, id string) ([]domain.Record, bool, error)
}

// Logger receives request failures.
type Logger interface {
	Error(msg interface{}, keyvals ...interface{})
}

type noopLogger struct{}

func (noopLogger) Error(interface{}, ...interface{}) {}

const (
	maxBodyBytes    = 1 << 20
	internalMessage = "internal error"
)

// Handler provides HTTP access to one record collection.
type Handler struct {
	Service Service
	Logger  Logger
}

// NewHandler constructs a handler for svc.
func NewHandler(svc Service, logger Logger) *Handler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Handler{Service: svc, Logger: logger}
}

// Patterns returns the ServeMux patterns this handler must be mounted on.
func (h *Handler) Patterns() []string {
	schema := h.Service.Schema()
	return []string{"/" + schema.Name, "/" + schema.Singular, "/" + schema.Singular + "/"}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "record service not configured")
		return
	}
	schema := h.Service.Schema()
	path := strings.TrimSuffix(r.URL.Path, "/")
	single := "/" + schema.Singular

	switch {
	case path == "/"+schema.Name:
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleList(w, r)
	case path == single:
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleCreate(w, r)
	case strings.HasPrefix(path, single+"/"):
		h.handleRecord(w, r, strings.TrimPrefix(path, single+"/"))
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request, remainder string) {
	segments := strings.Split(remainder, "/")
	switch {
	case len(segments) == 1 && segments[0] != "":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		rec, err := h.Service.Get(r.Context(), segments[0])
		h.respondRecord(w, "get", rec, err)
	case len(segments) == 2 && segments[1] != "":
		action, id := segments[0], segments[1]
		switch action {
		case "checked":
			if r.Method != http.MethodPut {
				writeError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			rec, err := h.Service.ToggleChecked(r.Context(), id)
			h.respondRecord(w, "toggle", rec, err)
		case "prio":
			if r.Method != http.MethodPut {
				writeError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			h.handleSetPriority(w, r, id)
		case "delete":
			if r.Method != http.MethodDelete {
				writeError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			h.handleDelete(w, r, id)
		default:
			writeError(w, http.StatusNotFound, "endpoint not found")
		}
	default:
		writeError(w, http.StatusNotFound, "endpoint not found")
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.Service.ListSorted(r.Context())
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	h.writeRecords(w, records)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	schema := h.Service.Schema()
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	rec, err := h.Service.Create(r.Context(), stringField(body, schema.PrimaryField), stringField(body, schema.SecondaryField))
	h.respondRecord(w, "create", rec, err)
}

func (h *Handler) handleSetPriority(w http.ResponseWriter, r *http.Request, id string) {
	schema := h.Service.Schema()
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	raw, ok := body[schema.PriorityKey()]
	if !ok {
		raw = body["priority"]
	}
	rec, err := h.Service.SetPriority(r.Context(), id, raw)
	h.respondRecord(w, "set_priority", rec, err)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	remaining, _, err := h.Service.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, "delete", err)
		return
	}
	h.writeRecords(w, domain.SortByPriority(remaining))
}

func (h *Handler) respondRecord(w http.ResponseWriter, fn string, rec domain.Record, err error) {
	if err != nil {
		h.fail(w, fn, err)
		return
	}
	data, err := h.Service.Schema().MarshalRecord(rec)
	if err != nil {
		h.fail(w, fn, err)
		return
	}
	writeRaw(w, http.StatusOK, data)
}

func (h *Handler) writeRecords(w http.ResponseWriter, records []domain.Record) {
	data, err := h.Service.Schema().MarshalRecords(records)
	if err != nil {
		h.fail(w, "encode", err)
		return
	}
	writeRaw(w, http.StatusOK, data)
}

// fail maps domain error kinds to status codes. Storage and unexpected
// failures are logged and reported with a generic message.
func (h *Handler) fail(w http.ResponseWriter, fn string, err error) {
	var (
		validation domain.ValidationError
		notFound   domain.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	default:
		if h.Logger != nil {
			h.Logger.Error("request failed", "collection", h.Service.Schema().Name, "fn", fn, "err", err)
		}
		writeError(w, http.StatusInternalServerError, internalMessage)
	}
}

// decodeBody reads a JSON object. Numbers are kept as json.Number. An empty
// body decodes to an empty object.
func decodeBody(r *http.Request) (map[string]any, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	body := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return body, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}

func stringField(body map[string]any, key string) string {
	s, _ := body[key].(string)
	return s
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
