package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/pdf-analysis-gateway/internal/config"
	"github.com/kirillkom/pdf-analysis-gateway/internal/core/ports"
	"github.com/kirillkom/pdf-analysis-gateway/internal/core/usecase"
	"github.com/kirillkom/pdf-analysis-gateway/internal/infrastructure/mlservice"
	"github.com/kirillkom/pdf-analysis-gateway/internal/infrastructure/queue/nats"
	"github.com/kirillkom/pdf-analysis-gateway/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/pdf-analysis-gateway/internal/infrastructure/resilience"
	"github.com/kirillkom/pdf-analysis-gateway/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/pdf-analysis-gateway/internal/observability/metrics"
)

// App is the API process wiring.
type App struct {
	Config config.Config

	Metrics  *metrics.HTTPServerMetrics
	Executor *resilience.Executor

	AnalyzeUC  ports.DocumentAnalyzer
	DownloadUC ports.FileDownloader
	// HistoryUC is nil when POSTGRES_DSN is empty.
	HistoryUC ports.AnalysisReader

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	httpMetrics := metrics.NewHTTPServerMetrics("api")

	stager, err := localfs.New(cfg.UploadStagingDir, localfs.Options{
		MaxBytes:   cfg.UploadMaxBytes,
		InspectPDF: true,
	})
	if err != nil {
		return nil, fmt.Errorf("init upload stager: %w", err)
	}

	executor := resilience.NewExecutor(mlResilienceConfig(cfg)).
		WithObserver(httpMetrics.ObserveBreakerTransition)
	mlClient := mlservice.New(cfg.MLServiceURL, mlservice.Options{
		AnalyzePath: cfg.MLAnalyzePath,
		Timeout:     time.Duration(cfg.MLTimeoutSeconds) * time.Second,
		Executor:    executor,
	})

	var (
		closers   []func()
		publisher ports.AnalysisPublisher
		historyUC ports.AnalysisReader
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.NATSURL != "" {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		closers = append(closers, queue.Close)
		publisher = queue
	} else {
		slog.Info("analysis_events_disabled", "reason", "NATS_URL is empty")
	}

	if cfg.PostgresDSN != "" {
		repo, db, err := openRepository(ctx, cfg.PostgresDSN)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		historyUC = usecase.NewAnalysisHistoryUseCase(repo)
	} else {
		slog.Info("analysis_history_disabled", "reason", "POSTGRES_DSN is empty")
	}

	return &App{
		Config:   cfg,
		Metrics:  httpMetrics,
		Executor: executor,

		AnalyzeUC:  usecase.NewAnalyzeDocumentUseCase(stager, mlClient, publisher, httpMetrics),
		DownloadUC: usecase.NewDownloadFileUseCase(mlClient),
		HistoryUC:  historyUC,

		closeFn: closeAll,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// Worker is the history recorder process wiring.
type Worker struct {
	Config config.Config

	Queue     *nats.Queue
	HistoryUC *usecase.AnalysisHistoryUseCase
	Metrics   *metrics.WorkerMetrics

	closeFn func()
}

func NewWorker(ctx context.Context, cfg config.Config) (*Worker, error) {
	if !cfg.HistoryEnabled() {
		return nil, fmt.Errorf("worker requires POSTGRES_DSN and NATS_URL")
	}

	repo, db, err := openRepository(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	return &Worker{
		Config:    cfg,
		Queue:     queue,
		HistoryUC: usecase.NewAnalysisHistoryUseCase(repo),
		Metrics:   metrics.NewWorkerMetrics("worker"),
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (w *Worker) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func openRepository(ctx context.Context, dsn string) (*postgres.AnalysisRepository, *sql.DB, error) {
	db, err := postgres.OpenDB(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewAnalysisRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, db, nil
}

func mlResilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	if cfg.MLRetryMaxAttempts > 0 {
		out.RetryMaxAttempts = cfg.MLRetryMaxAttempts
	}
	out.BreakerEnabled = cfg.MLBreakerEnabled
	return out
}
