package records

import (
	"checklist/pkg/domain"
	"net/http"
)

// MuxOptions configures the auxiliary routes of NewMux.
type MuxOptions struct {
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Debug serves /debug/vars when set.
	Debug http.Handler
	// StaticDir is served at / when set.
	StaticDir string
}

// NewMux mounts every handler plus /healthz, /schema/ and the optional
// metrics, debug and static routes.
func NewMux(handlers []*Handler, opts MuxOptions) *http.ServeMux {
	mux := http.NewServeMux()
	schemas := make([]domain.Schema, 0, len(handlers))
	for _, h := range handlers {
		for _, pattern := range h.Patterns() {
			mux.Handle(pattern, h)
		}
		schemas = append(schemas, h.Service.Schema())
	}
	mux.Handle("/schema/", NewSchemaHandler(schemas))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}
	if opts.Debug != nil {
		mux.Handle("/debug/vars", opts.Debug)
	}
	if opts.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(opts.StaticDir)))
	}
	return mux
}
