package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/aims/caerev"
	"github.com/goliatone/go-aif/aims/templimit"
	"github.com/goliatone/go-aif/catalog"
	"github.com/goliatone/go-aif/config"
	"github.com/goliatone/go-aif/configs"
	"github.com/goliatone/go-aif/configstore"
	"github.com/goliatone/go-aif/controller"
	"github.com/goliatone/go-aif/cron"
	"github.com/goliatone/go-aif/metrics"
	"github.com/goliatone/go-aif/runner"
	"github.com/goliatone/go-aif/topology"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

type runCmd struct {
	Config string `short:"c" default:"device.toml" type:"existingfile" help:"Device configuration file."`
}

func (c *runCmd) Run(a *app) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	logger := aif.NewGlogLogger(a.err, cfg.LogLevel)
	return run(a.ctx, cfg, logger)
}

func run(ctx context.Context, cfg config.Config, logger aif.Logger) error {
	store, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	cat := catalog.New()
	if err := caerev.Register(cat, caerev.Options{
		MessageSize: cfg.Bus.MessageSize,
		TempLimit:   templimit.Options{PollTimeout: cfg.Bus.PollTimeout},
	}); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	sched := cron.NewScheduler(cron.WithLogger(logger), cron.WithErrorHandler(func(err error) {
		logger.Warn("scheduled job failed: %v", err)
	}))
	if err := sched.Start(ctx); err != nil {
		return err
	}

	ctrl, err := controller.New(newDependencies(cfg, cat, store, logger, m, sched))
	if err != nil {
		return err
	}

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = serveMetrics(cfg.MetricsAddr, m, logger)
	}

	var errs []error
	id, err := ctrl.Boot(ctx)
	if id == 0 {
		logger.Error("boot failed: %v", err)
		errs = append(errs, err)
	} else {
		if err != nil {
			logger.Warn("workflow %d running degraded: %v", id, err)
		} else {
			logger.Info("AIF %s running workflow %s (%d)", ctrl.Title(), cfg.Workflow, id)
		}
		<-ctx.Done()
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	errs = append(errs, ctrl.Shutdown(shutdownCtx), sched.Stop(shutdownCtx))
	if srv != nil {
		errs = append(errs, srv.Shutdown(shutdownCtx))
	}
	return errors.Join(errs...)
}

func newDependencies(cfg config.Config, cat *catalog.Catalog, store configstore.Store, logger aif.Logger, m *metrics.Metrics, sched *cron.Scheduler) controller.Dependencies {
	mode := topology.ModeLenient
	if cfg.Controller.StrictTopology {
		mode = topology.ModeStrict
	}
	return controller.Dependencies{
		Catalog:       cat,
		Store:         store,
		Logger:        logger,
		Metrics:       m,
		Scheduler:     sched,
		AIFName:       cfg.Name,
		Workflow:      cfg.Workflow,
		FailurePolicy: controller.ParseFailurePolicy(cfg.Controller.FailurePolicy),
		ResolverMode:  mode,
		MessageSize:   cfg.Bus.MessageSize,
		Capacity:      cfg.Bus.Capacity,
		StatusCron:    cfg.Controller.StatusCron,
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger aif.Logger) (configstore.Store, func(), error) {
	var (
		store configstore.Store
		done  = func() {}
	)
	switch cfg.Kind {
	case config.StoreMemory:
		mem := configstore.NewMemory()
		for _, doc := range caerev.Documents() {
			mem.Put(doc.Kind, doc.Name, doc.Data)
		}
		store = mem
	case config.StoreEmbedded:
		store = configstore.NewFS(configs.FS())
	case config.StoreSQLite:
		db, err := configstore.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		store = db
		done = func() {
			if err := db.Close(); err != nil {
				logger.Warn("close config store: %v", err)
			}
		}
	default:
		store = configstore.NewDir(cfg.Path)
	}

	if cfg.Retries > 0 {
		store = configstore.NewRetrying(store, cfg.Retries, runner.ExponentialBackoffStrategy{
			Base:   cfg.Backoff,
			Factor: 2,
			Max:    10 * cfg.Backoff,
		}, logger)
	}
	return store, done, nil
}

func serveMetrics(addr string, m *metrics.Metrics, logger aif.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()
	return srv
}
