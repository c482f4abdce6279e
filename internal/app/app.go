package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/common"
	"github.com/ternarybob/evharness/internal/httpclient"
	"github.com/ternarybob/evharness/internal/ingest"
	"github.com/ternarybob/evharness/internal/interfaces"
	"github.com/ternarybob/evharness/internal/market"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/ternarybob/evharness/internal/pipeline"
	"github.com/ternarybob/evharness/internal/report"
	"github.com/ternarybob/evharness/internal/storage/badger"
	"github.com/ternarybob/evharness/internal/strategy"
	"github.com/ternarybob/evharness/internal/tasks"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	Series       *market.Cache
	Registry     *strategy.Registry
	Orchestrator *pipeline.Orchestrator
	Ingest       *ingest.Service
	Renderer     *report.Renderer

	Tasks     *tasks.Registry
	Scheduler *tasks.Scheduler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Debug().
		Str("series_dir", cfg.Data.SeriesDir).
		Str("output_root", cfg.Output.Root).
		Int("strategies", app.Registry.Len()).
		Strs("task_types", taskTypeNames(app.Tasks.Types())).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase opens the Badger store for run records, snapshots and KV
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initServices builds the pipeline collaborators and registers every task
// handler.
func (a *App) initServices() error {
	a.Series = market.NewCache(a.Config.Data.SeriesDir, a.Logger)
	a.Registry = strategy.DefaultRegistry()
	a.Orchestrator = pipeline.NewOrchestrator(
		pipeline.OptionsFromConfig(a.Config),
		a.Series,
		a.Registry,
		a.StorageManager,
		a.Logger,
	)

	client := ingest.NewClient(a.Config.Ingest.APIKey,
		ingest.WithBaseURL(a.Config.Ingest.BaseURL),
		ingest.WithRateLimit(a.Config.Ingest.RateLimit),
		ingest.WithHTTPClient(httpclient.NewDefaultHTTPClient(30*time.Second)),
		ingest.WithLogger(a.Logger),
	)
	a.Ingest = ingest.NewService(client, a.Series, a.StorageManager.KeyValueStorage(), a.Config.Ingest.LookbackDays, a.Logger)
	a.Renderer = report.NewRenderer(a.Logger)

	layout := a.Orchestrator.Layout()
	a.Tasks = tasks.NewRegistry()
	handlers := map[models.TaskType]interfaces.TaskHandler{
		models.TaskTypeRunProfile:      tasks.RunProfile(a.Orchestrator),
		models.TaskTypeValidateProfile: tasks.ValidateProfile(),
		models.TaskTypeIngestMarket:    tasks.IngestMarket(a.Ingest, a.Config.Data.DefaultMarket),
		models.TaskTypeCompileReport:   tasks.CompileReport(a.Renderer, a.Config.Report.HTML, a.Config.Report.PDF),
		models.TaskTypeCompareWindows:  tasks.CompareWindows(layout.EvaluationDir(), layout.MetaAnalysisDir()),
	}
	for taskType, handler := range handlers {
		if err := a.Tasks.Register(taskType, handler); err != nil {
			return err
		}
	}

	a.Scheduler = tasks.NewScheduler(a.Tasks, a.StorageManager.KeyValueStorage(), a.Logger)
	return nil
}

// Close stops the scheduler and closes storage
func (a *App) Close() error {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Debug().Msg("Storage closed")
	}
	return nil
}

func taskTypeNames(types []models.TaskType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}
