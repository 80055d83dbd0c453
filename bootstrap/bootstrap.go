// Package bootstrap wires the validation service together and runs it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	apihttp "github.com/aurabx/harmony-dsl/adapters/http"
	"github.com/aurabx/harmony-dsl/adapters/memory"
	"github.com/aurabx/harmony-dsl/adapters/metrics"
	"github.com/aurabx/harmony-dsl/adapters/sqlite"
	"github.com/aurabx/harmony-dsl/config"
	"github.com/aurabx/harmony-dsl/core/catalog"
	"github.com/aurabx/harmony-dsl/ports"
)

// ShutdownTimeout bounds the graceful shutdown of the HTTP server.
const ShutdownTimeout = 30 * time.Second

// App is the running validation service.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Catalog    *catalog.Catalog
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry
	Store      ports.ReportStore
	Handler    *apihttp.Handler
	Router     http.Handler
	HTTPServer *http.Server

	db *sqlite.DB
}

// NewLogger creates the process logger. Unknown levels fall back to info.
func NewLogger(level, format string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// New creates the application from cfg. Every schema is loaded up front so
// that a broken schema fails startup.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{
		Logger: logger,
		Config: cfg,
	}

	var catalogOpts []catalog.Option
	catalogOpts = append(catalogOpts, catalog.WithLogger(logger))
	if cfg.Schemas.Dir != "" {
		catalogOpts = append(catalogOpts, catalog.WithOverrideDir(cfg.Schemas.Dir))
	}
	if cfg.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.New(a.Registry)
		catalogOpts = append(catalogOpts, catalog.WithLoadHook(a.Metrics.ObserveSchemaLoad))
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}
	a.Catalog = catalog.New(catalogOpts...)

	if err := a.Catalog.LoadAll(); err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}

	if err := a.initStore(); err != nil {
		return nil, fmt.Errorf("init audit store: %w", err)
	}

	a.Handler = apihttp.NewHandler(apihttp.HandlerDeps{
		Catalog:      a.Catalog,
		Logger:       logger,
		Store:        a.Store,
		Metrics:      a.Metrics,
		Registry:     cfg.Registry.Resolver(),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	routerCfg := apihttp.RouterConfig{
		Metrics:     a.Metrics,
		MetricsPath: cfg.Metrics.Path,
		Timeout:     cfg.Server.WriteTimeout,
	}
	if a.Registry != nil {
		routerCfg.MetricsHandler = apihttp.MetricsHandler(a.Registry)
	}
	a.Router = apihttp.NewRouter(a.Handler, logger, routerCfg)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return a, nil
}

func (a *App) initStore() error {
	audit := a.Config.Audit
	if !audit.Enabled {
		return nil
	}

	if audit.DSN == config.MemoryDSN {
		a.Store = memory.NewReportStore(memory.DefaultCapacity)
		a.Logger.Info().Msg("audit reports kept in memory")
		return nil
	}

	db, err := sqlite.Open(audit.DSN)
	if err != nil {
		return err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	a.db = db
	a.Store = sqlite.NewReportStore(db)
	a.Logger.Info().Str("dsn", audit.DSN).Msg("audit reports stored in sqlite")
	return nil
}

// Watch applies the reloadable fields of every configuration h reloads.
func (a *App) Watch(h *config.Holder) {
	h.OnChange(a.Apply)
}

// Apply takes over the reloadable fields of cfg.
func (a *App) Apply(cfg *config.Config) {
	a.Handler.SetRegistry(cfg.Registry.Resolver())
	a.Handler.SetMaxBodyBytes(cfg.Server.MaxBodyBytes)

	if lvl, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
}

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info().Str("addr", a.HTTPServer.Addr).Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info().Msg("shutting down")
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown stops the HTTP server and closes the audit store.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	var errs []error
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
			errs = append(errs, err)
		}
	}
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}

	a.Logger.Info().Msg("shutdown complete")
	return errors.Join(errs...)
}

// Close releases the audit store. It is safe to call more than once.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	db := a.db
	a.db = nil
	if err := db.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("database close error")
		return err
	}
	return nil
}
