// orcpub Worker — выполняет асинхронные импорты.
//
// Worker:
//   - Получает запросы из очереди imports.requested
//   - Выполняет импорт тем же координатором, что и API
//   - Публикует orchestrator.imported для dev-окружения
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/orcpub/internal/api"
	"github.com/shaiso/orcpub/internal/app"
	"github.com/shaiso/orcpub/internal/config"
	"github.com/shaiso/orcpub/internal/telemetry"
	"github.com/shaiso/orcpub/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting orcpub-worker")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if a.Conn == nil {
		logger.Error("worker requires RabbitMQ, set RABBITMQ_URL")
		os.Exit(1)
	}

	w := worker.New(worker.Config{
		Importer: a.Importer,
		Conn:     a.Conn,
		Logger:   logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	api.NewHandler(api.Config{
		HealthChecks: a.HealthChecks,
		Logger:       logger,
	}).RegisterServiceRoutes(mux)

	server := &http.Server{
		Addr:              ":" + cfg.WorkerPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	w.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	logger.Info("orcpub-worker stopped")
}
