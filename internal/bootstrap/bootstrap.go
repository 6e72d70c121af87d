package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	httpadapter "github.com/resper/paperless-onS/internal/adapters/http"
	"github.com/resper/paperless-onS/internal/config"
	"github.com/resper/paperless-onS/internal/core/domain"
	"github.com/resper/paperless-onS/internal/core/ports"
	"github.com/resper/paperless-onS/internal/core/usecase"
	"github.com/resper/paperless-onS/internal/i18n"
	"github.com/resper/paperless-onS/internal/infrastructure/llm/openai"
	"github.com/resper/paperless-onS/internal/infrastructure/lock"
	"github.com/resper/paperless-onS/internal/infrastructure/paperless"
	"github.com/resper/paperless-onS/internal/infrastructure/pdf"
	"github.com/resper/paperless-onS/internal/infrastructure/queue/nats"
	"github.com/resper/paperless-onS/internal/infrastructure/repository/postgres"
	"github.com/resper/paperless-onS/internal/infrastructure/resilience"
	"github.com/resper/paperless-onS/internal/observability/metrics"
)

// Options carries the process-specific pieces: the api and the worker keep
// separate metric registries.
type Options struct {
	Logger   *slog.Logger
	Pipeline *metrics.PipelineMetrics
	// SkipQueue leaves Queue and SchedulerUC nil, for tools that only run inline.
	SkipQueue bool
}

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Catalog *i18n.Catalog

	Store   *paperless.Client
	Model   *openai.Client
	Queue   *nats.Queue
	APILogs *postgres.APILogRepository

	ProcessUC   *usecase.ProcessDocumentUseCase
	ApplyUC     *usecase.ApplyMetadataUseCase
	PreviewUC   *usecase.PromptPreviewUseCase
	ExtractUC   *usecase.TextExtractionUseCase
	SettingsUC  *usecase.SettingsUseCase
	ConfigsUC   *usecase.PromptConfigurationUseCase
	SchedulerUC *usecase.ProcessSchedulerUseCase
	History     *postgres.HistoryRepository

	closers []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	catalog, err := i18n.Load()
	if err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}
	app.Catalog = catalog

	executor := resilience.NewExecutor(resilienceConfig(cfg)).WithLogger(logger)
	if opts.Pipeline != nil {
		executor = executor.WithHooks(opts.Pipeline.ResilienceHooks())
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.closers = append(app.closers, func() { _ = db.Close() })
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	history := postgres.NewHistoryRepository(db)
	configRepo := postgres.NewPromptConfigurationRepository(db)
	apiLogs := postgres.NewAPILogRepository(db, logger)
	app.History = history
	app.APILogs = apiLogs

	app.Store = paperless.New(cfg.PaperlessURL, cfg.PaperlessToken, paperless.Options{
		Timeout:  time.Duration(cfg.PaperlessTimeoutSec) * time.Second,
		PageSize: cfg.PaperlessPageSize,
		Executor: executor,
		Recorder: apiLogs,
		Logger:   logger,
	})
	app.Model = openai.New(cfg.OpenAIAPIKey, openai.Options{
		BaseURL:  cfg.OpenAIBaseURL,
		Model:    cfg.OpenAIModel,
		Timeout:  time.Duration(cfg.OpenAITimeoutSec) * time.Second,
		Executor: executor,
		Recorder: apiLogs,
		Logger:   logger,
	})

	locker, err := app.documentLocker(ctx, cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	selector := usecase.NewTextSourceSelector(pdf.NewTextExtractor(cfg.PDFMaxPages), pdf.NewPageRenderer(cfg.RenderMaxPixels), logger)
	app.SettingsUC = usecase.NewSettingsUseCase(postgres.NewSettingsRepository(db), analysisDefaults(cfg))
	app.ConfigsUC = usecase.NewPromptConfigurationUseCase(configRepo)
	app.ApplyUC = usecase.NewApplyMetadataUseCase(app.Store, history, logger)
	app.PreviewUC = usecase.NewPromptPreviewUseCase(app.Store, app.SettingsUC, configRepo, logger)
	app.ExtractUC = usecase.NewTextExtractionUseCase(app.Store, selector)

	processOpts := usecase.ProcessOptions{
		Configs:         configRepo,
		Locker:          locker,
		LockTTL:         time.Duration(cfg.LockTTLSecs) * time.Second,
		Localizer:       catalog,
		Logger:          logger,
		CredentialCheck: cfg.CredentialsError,
	}
	if opts.Pipeline != nil {
		processOpts.Observer = opts.Pipeline
	}
	app.ProcessUC = usecase.NewProcessDocumentUseCase(app.Store, app.Model, history, app.SettingsUC, selector, processOpts)

	if !opts.SkipQueue && cfg.NATSURL != "" {
		queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			Name:               "paperless-ons",
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.Queue = queue
		app.closers = append(app.closers, queue.Close)
		app.SchedulerUC = usecase.NewProcessSchedulerUseCase(app.Store, queue)
	}

	return app, nil
}

// documentLocker uses Redis when REDIS_ADDR is set and a no-op lock otherwise.
func (a *App) documentLocker(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.DocumentLocker, error) {
	if cfg.RedisAddr == "" {
		return lock.Noop{}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	a.closers = append(a.closers, func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return lock.NewRedisLocker(client, time.Duration(cfg.LockWaitSecs)*time.Second, logger), nil
}

// HTTPDependencies exposes the use cases to the HTTP and MCP adapters.
func (a *App) HTTPDependencies() httpadapter.Dependencies {
	deps := httpadapter.Dependencies{
		Store:     a.Store,
		Processor: a.ProcessUC,
		Applier:   a.ApplyUC,
		Previewer: a.PreviewUC,
		Extractor: a.ExtractUC,
		Settings:  a.SettingsUC,
		Configs:   a.ConfigsUC,
		History:   a.History,
		APILogs:   a.APILogs,
		Model:     a.Model,
		Catalog:   a.Catalog,
	}
	if a.SchedulerUC != nil {
		deps.Scheduler = a.SchedulerUC
	}
	return deps
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	if cfg.ResilienceMaxAttempts > 0 {
		out.RetryMaxAttempts = cfg.ResilienceMaxAttempts
	}
	if cfg.ResilienceBaseBackoffMS > 0 {
		out.RetryInitialBackoff = time.Duration(cfg.ResilienceBaseBackoffMS) * time.Millisecond
	}
	if cfg.ResilienceBreakerFailures > 0 {
		out.BreakerMinRequests = uint32(cfg.ResilienceBreakerFailures)
	}
	if cfg.ResilienceBreakerOpenSec > 0 {
		out.BreakerOpenTimeout = time.Duration(cfg.ResilienceBreakerOpenSec) * time.Second
	}
	return out
}

func analysisDefaults(cfg config.Config) domain.AnalysisSettings {
	mode, ok := domain.ParseTextSourceMode(cfg.TextSourceMode)
	if !ok {
		mode = domain.TextSourcePaperless
	}
	return domain.AnalysisSettings{
		MaxTextLength:     cfg.MaxTextLength,
		DisplayTextLength: cfg.DisplayTextLength,
		UseJSONMode:       cfg.UseJSONMode,
		Model:             cfg.OpenAIModel,
		TextSourceMode:    mode,
	}
}
