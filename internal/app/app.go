// -----------------------------------------------------------------------
// App - dependency wiring and component lifecycle
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/handlers"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/jobs/collectors"
	"github.com/ternarybob/prospectus/internal/jobs/dispatcher"
	"github.com/ternarybob/prospectus/internal/services/decision"
	"github.com/ternarybob/prospectus/internal/services/lifecycle"
	"github.com/ternarybob/prospectus/internal/services/notify"
	"github.com/ternarybob/prospectus/internal/services/research"
	"github.com/ternarybob/prospectus/internal/services/resolver"
	badgerstore "github.com/ternarybob/prospectus/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager

	ResearchService *research.Service
	NotifyService   *notify.Service
	Resolver        *resolver.Resolver
	DecisionService *decision.Service
	Tracker         *lifecycle.Tracker
	Dispatcher      *dispatcher.Dispatcher

	// HTTP handlers
	JobHandler    *handlers.JobHandler
	ChangeHandler *handlers.ChangeHandler
	StatusHandler *handlers.StatusHandler

	cron      *cron.Cron
	ctx       context.Context
	cancelCtx context.CancelFunc
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}
	app.ctx, app.cancelCtx = context.WithCancel(context.Background())

	storageManager, err := badgerstore.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	researchService, err := research.NewService(&cfg.Research, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize research service: %w", err)
	}
	app.ResearchService = researchService

	app.NotifyService = notify.NewService(&cfg.Notify, logger)
	app.Resolver = resolver.NewResolver(storageManager.EntityStorage(), &cfg.Resolver, logger)
	app.Tracker = lifecycle.NewTracker(storageManager, &cfg.Lifecycle, logger)

	engine := decision.NewEngine(&cfg.Decision)
	app.DecisionService = decision.NewService(engine, storageManager, app.NotifyService, logger)

	app.Dispatcher = dispatcher.NewDispatcher(storageManager, &cfg.Dispatcher, logger)

	deps := collectors.Deps{
		Storage:  storageManager,
		Research: researchService,
		Resolver: app.Resolver,
		Decision: app.DecisionService,
		Tracker:  app.Tracker,
		Logger:   logger,
	}
	for _, collector := range []interfaces.Collector{
		collectors.NewBuilderCollector(deps),
		collectors.NewCommunityCollector(deps),
		collectors.NewHomeCollector(deps),
		collectors.NewAgentCollector(deps),
	} {
		if err := app.Dispatcher.Register(collector); err != nil {
			return nil, err
		}
	}

	app.JobHandler = handlers.NewJobHandler(storageManager.JobStorage(), app.Dispatcher, logger)
	app.ChangeHandler = handlers.NewChangeHandler(storageManager.ChangeStorage(), app.DecisionService, logger)
	app.StatusHandler = handlers.NewStatusHandler(app.Dispatcher, logger)

	if err := app.initCron(); err != nil {
		return nil, err
	}

	return app, nil
}

// initCron registers the lifecycle sweep and the stale-job watchdog.
func (a *App) initCron() error {
	a.cron = cron.New()

	if _, err := a.cron.AddFunc(a.Config.Lifecycle.SweepSchedule, func() {
		if _, err := a.Tracker.SweepStaleAgents(a.ctx, time.Now().UTC()); err != nil {
			a.Logger.Error().Err(err).Msg("Grace-period sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", a.Config.Lifecycle.SweepSchedule, err)
	}

	if _, err := a.cron.AddFunc(a.Config.Dispatcher.WatchdogSchedule, func() {
		if _, err := a.Dispatcher.RecoverStaleJobs(a.ctx, time.Now().UTC()); err != nil {
			a.Logger.Error().Err(err).Msg("Stale-job watchdog failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid watchdog schedule %q: %w", a.Config.Dispatcher.WatchdogSchedule, err)
	}

	return nil
}

// Start begins the dispatcher poll loop and the cron schedules.
func (a *App) Start() error {
	if err := a.Dispatcher.Start(a.ctx); err != nil {
		return err
	}
	a.cron.Start()
	a.Logger.Info().Msg("Application started")
	return nil
}

// Close shuts down components in reverse dependency order.
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application...")

	cronCtx := a.cron.Stop()
	<-cronCtx.Done()

	a.Dispatcher.Stop()
	a.cancelCtx()
	a.ResearchService.Close()

	if err := a.StorageManager.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}

	a.Logger.Info().Msg("Application stopped")
	return nil
}
