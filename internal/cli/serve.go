package cli

import (
	"checklist/internal/adapters/records"
	"checklist/internal/config"
	"checklist/internal/core"
	"checklist/pkg/domain"
	"context"
	"errors"
	"expvar"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the record collections over HTTP",
		Long: `Serve every built-in collection over HTTP.

Routes per collection (todos shown):
  GET    /todos               list, ordered by priority
  POST   /todo                create {"owner","todo"}
  GET    /todo/<id>           fetch one record
  PUT    /todo/checked/<id>   toggle the checked flag
  PUT    /todo/prio/<id>      set priority {"prio": 1..3}
  DELETE /todo/delete/<id>    delete, returns the remaining records

Also served: /healthz, /metrics (Prometheus), /debug/vars (expvar) and the
static front end when --static-dir is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ln, err := net.Listen("tcp", cfg.Listen)
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.Listen, err)
			}
			return Serve(ctx, ln, cfg, logger)
		},
	}
	cmd.Flags().String(config.FlagListen, config.DefaultListen, "HTTP listen address")
	cmd.Flags().String(config.FlagStaticDir, "", "directory of static front-end files served at /")
	return cmd
}

// Server bundles the pieces assembled for one serve run.
type Server struct {
	HTTP     *http.Server
	Backend  domain.Backend
	Services []*core.Service
	Registry *prometheus.Registry
}

// NewServer opens the configured backend and builds the HTTP server for every
// built-in collection.
func NewServer(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Server, error) {
	backend, err := core.OpenBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Storage.Driver, err)
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promRecorder, err := core.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	recorder := core.MultiMetricsRecorder{promRecorder, core.NewExpvarMetricsRecorder("")}

	services, err := core.OpenServices(ctx, backend, domain.BuiltinSchemas(),
		core.WithLogger(logger),
		core.WithMetricsRecorder(recorder),
	)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	handlers := make([]*records.Handler, 0, len(services))
	for _, svc := range services {
		handlers = append(handlers, records.NewHandler(svc, logger.With("collection", svc.Schema().Name)))
	}
	mux := records.NewMux(handlers, records.MuxOptions{
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Debug:     expvar.Handler(),
		StaticDir: cfg.StaticDir,
	})
	return &Server{
		HTTP: &http.Server{
			Addr:              cfg.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		Backend:  backend,
		Services: services,
		Registry: registry,
	}, nil
}

// Serve runs the server on ln until ctx is cancelled, then shuts it down
// gracefully and closes the backend.
func Serve(ctx context.Context, ln net.Listener, cfg *config.Config, logger *log.Logger) error {
	srv, err := NewServer(ctx, cfg, logger)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() {
		if cerr := srv.Backend.Close(); cerr != nil {
			logger.Warn("close backend", "err", cerr)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", ln.Addr().String(), "driver", srv.Backend.Driver())
		errCh <- srv.HTTP.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.HTTP.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
