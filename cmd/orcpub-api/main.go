// orcpub API — принимает запросы на импорт пакетов оркестраторов.
//
// Синхронный импорт выполняется в горутине запроса. С ?async=true запрос
// уходит в очередь imports.requested и выполняется orcpub-worker.
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
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting orcpub-api", "catalog", cfg.CatalogDriver, "blob", cfg.BlobBackend)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	handlerCfg := api.Config{
		Catalog:      a.Catalog,
		Importer:     a.Importer,
		HealthChecks: a.HealthChecks,
		Logger:       logger,
	}
	if a.Publisher != nil {
		handlerCfg.Queue = a.Publisher
	}

	mux := http.NewServeMux()
	api.NewHandler(handlerCfg).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown: даём текущим импортам до 30 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
