package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/pdf-analysis-gateway/internal/adapters/http"
	"github.com/kirillkom/pdf-analysis-gateway/internal/bootstrap"
	"github.com/kirillkom/pdf-analysis-gateway/internal/config"
	"github.com/kirillkom/pdf-analysis-gateway/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, app.AnalyzeUC, app.DownloadUC, app.HistoryUC).
		WithMetrics(app.Metrics).
		WithBreakerStates(app.Executor.States).
		Handler()
	timeout := time.Duration(cfg.MLTimeoutSeconds) * time.Second
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads and streamed downloads are bounded by the analysis timeout
		// plus time to move the bytes.
		ReadTimeout:  timeout + 60*time.Second,
		WriteTimeout: timeout + 5*time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort, "ml_service_url", cfg.MLServiceURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
