package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"VesselOSINT/internal/config"
	"VesselOSINT/internal/correlation"
	"VesselOSINT/internal/domain"
	"VesselOSINT/internal/infrastructure/bus"
	"VesselOSINT/internal/infrastructure/export"
	"VesselOSINT/internal/infrastructure/llm"
	"VesselOSINT/internal/infrastructure/parser"
	"VesselOSINT/internal/infrastructure/scheduler"
	"VesselOSINT/internal/infrastructure/storage"
	"VesselOSINT/internal/infrastructure/telegram"
	"VesselOSINT/internal/infrastructure/watcher"
	"VesselOSINT/internal/logging"
	"VesselOSINT/internal/metrics"
	"VesselOSINT/internal/ports"
	"VesselOSINT/internal/roster"
	"VesselOSINT/internal/scanner"
	"VesselOSINT/internal/scoring"
	httptransport "VesselOSINT/internal/transport/http"
	"VesselOSINT/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	events   ports.EventRepository
	vessels  ports.VesselRegistry
	registry *prometheus.Registry
	closers  []func() error
}

// New connects every configured adapter. Optional adapters (Redis, NATS,
// Telegram, ChatGPT, export) are wired only when configured.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	corr, err := correlationConfig(cfg)
	if err != nil {
		return nil, err
	}

	repo, err := openRepository(ctx, cfg.Database, baseLogger.With("component", "storage"))
	if err != nil {
		return nil, err
	}
	a.events = repo
	a.closers = append(a.closers, repo.Close)

	var seen ports.SeenStore = repo
	if cfg.Redis.URL != "" {
		client, err := storage.DialRedis(ctx, cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, err
		}
		seen = storage.NewRedisSeenStore(client, cfg.Redis.KeyPrefix, cfg.Redis.TTL)
		a.closers = append(a.closers, client.Close)
	}

	var publisher ports.EventPublisher
	if cfg.NATS.URL != "" {
		conn, err := bus.Connect(cfg.NATS.URL, "vesselosint")
		if err != nil {
			a.Close()
			return nil, err
		}
		publisher = bus.NewPublisher(conn, cfg.NATS.SubjectPrefix, baseLogger.With("component", "bus"))
		a.closers = append(a.closers, conn.Drain)
	}

	var exporter ports.EventExporter
	if cfg.Export.Path != "" {
		fileExporter, err := export.NewFileExporter(cfg.Export.Path, export.Options{
			Format:          cfg.Export.Format,
			LightProvenance: cfg.Export.LightProvenance,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		exporter = fileExporter
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg)
	}

	var chatClient ports.ChatClient
	if cfg.ChatGPT.APIKey != "" {
		chatClient = llm.NewChatGPTClient(cfg.ChatGPT)
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry := scanner.NewRegistry()
	registry.Register(parser.NewHTMLScanner(nil, baseLogger.With("component", "scanner.html")))
	registry.Register(parser.NewRSSScanner(nil, baseLogger.With("component", "scanner.rss")))
	registry.Register(parser.NewManualScanner(baseLogger.With("component", "scanner.manual")))

	source := parser.NewStrategySource(registry, cfg.Sites, baseLogger.With("component", "source"))
	a.vessels = roster.NewFileRegistry(cfg.Roster.Path, baseLogger.With("component", "roster"))

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:         source,
		Repository:     repo,
		Seen:           seen,
		Vessels:        a.vessels,
		Publisher:      publisher,
		Exporter:       exporter,
		Notifier:       notifier,
		ChatClient:     chatClient,
		Metrics:        metrics.New(a.registry),
		Logger:         baseLogger.With("component", "pipeline"),
		Correlation:    corr,
		DigestSeverity: domain.Severity(cfg.Notifications.Telegram.MinSeverity),
	})
	return a, nil
}

// Run performs a single pipeline execution over the configured sources.
func (a *Application) Run(ctx context.Context) (usecase.Report, error) {
	now := time.Now().In(a.cfg.Scheduler.Location())
	return a.pipeline.ProcessDay(ctx, now)
}

// CorrelateFiles runs the pipeline over curated article files matching pattern.
func (a *Application) CorrelateFiles(ctx context.Context, pattern string) (usecase.Report, error) {
	articles, err := parser.LoadArticleGlob(pattern, time.Now().UTC())
	if err != nil {
		return usecase.Report{}, err
	}
	a.logger.Info("loaded curated articles", "pattern", pattern, "articles", len(articles))
	return a.pipeline.ProcessArticles(ctx, articles)
}

// Serve exposes the HTTP API and runs the scheduler until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	handler := httptransport.NewHandler(a.events, a.vessels, a.pipeline, a.logger.With("component", "http"))
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           httptransport.NewRouter(handler, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 10 * time.Second,
	}

	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	jobs := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := jobs.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("shutdown http: %w", err))
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("stop scheduler: %w", err))
	}
	return runErr
}

// Watch correlates article files dropped into the watch directory until ctx is cancelled.
func (a *Application) Watch(ctx context.Context) error {
	w, err := watcher.New(a.cfg.Watch, a.correlateDropped, a.logger.With("component", "watcher"))
	if err != nil {
		return err
	}
	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *Application) correlateDropped(ctx context.Context, paths []string) error {
	retrieved := time.Now().UTC()
	var articles []domain.Article
	for _, path := range paths {
		batch, err := parser.LoadArticleFile(path, retrieved)
		if err != nil {
			a.logger.Warn("skipping unreadable article file", "path", path, "error", err)
			continue
		}
		articles = append(articles, batch...)
	}
	if len(articles) == 0 {
		return nil
	}
	_, err := a.pipeline.ProcessArticles(ctx, articles)
	return err
}

// Close releases every connection opened by New.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openRepository(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*storage.Repository, error) {
	switch cfg.Driver {
	case "postgres":
		if cfg.DSN == "" {
			return nil, &domain.ConfigurationError{Setting: "database.dsn", Reason: "required for postgres"}
		}
		return storage.OpenPostgres(ctx, cfg.DSN, logger)
	case "sqlite", "":
		path := cfg.DSN
		if path == "" {
			path = ":memory:"
		}
		return storage.OpenSQLite(ctx, path, logger)
	default:
		return nil, &domain.ConfigurationError{Setting: "database.driver", Reason: fmt.Sprintf("unknown driver %q", cfg.Driver)}
	}
}

func correlationConfig(cfg config.Config) (correlation.Config, error) {
	out := correlation.DefaultConfig()
	if cfg.Correlation.Threshold != nil {
		out.GenerationThreshold = *cfg.Correlation.Threshold
	}
	if w := cfg.Correlation.Weights; !w.IsZero() {
		out.Weights = scoring.Weights{
			NameMatch: w.NameMatch,
			Keyword:   w.Keyword,
			Location:  w.Location,
			Temporal:  w.Temporal,
			Context:   w.Context,
		}
	}
	if err := out.Validate(); err != nil {
		return out, err
	}
	if err := out.Weights.Validate(); err != nil {
		return out, err
	}

	if cfg.Dictionaries.Path != "" {
		dicts, err := roster.LoadDictionaries(cfg.Dictionaries.Path)
		if err != nil {
			return out, err
		}
		out.Dictionaries = dicts
	}
	return out, nil
}
