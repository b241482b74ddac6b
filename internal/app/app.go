// Package app собирает зависимости orcpub-api и orcpub-worker из конфигурации.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shaiso/orcpub/internal/api"
	"github.com/shaiso/orcpub/internal/archive"
	"github.com/shaiso/orcpub/internal/blob"
	"github.com/shaiso/orcpub/internal/config"
	"github.com/shaiso/orcpub/internal/contextsvc"
	"github.com/shaiso/orcpub/internal/integration"
	"github.com/shaiso/orcpub/internal/mq"
	"github.com/shaiso/orcpub/internal/publish"
	"github.com/shaiso/orcpub/internal/repo"
	"github.com/shaiso/orcpub/internal/repo/sqlite"
)

// App — собранные зависимости процесса.
type App struct {
	Catalog  repo.Catalog
	Importer *publish.Importer

	// Conn и Publisher — nil, если RABBITMQ_URL не задан или брокер недоступен.
	Conn      *mq.Connection
	Publisher *mq.Publisher

	HealthChecks []api.HealthCheck

	closers []func() error
}

// New создаёт App. При ошибке уже открытые ресурсы закрываются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.openCatalog(ctx, cfg, logger); err != nil {
		return nil, err
	}

	store, err := newBlobStore(cfg)
	if err != nil {
		return nil, err
	}

	registry, err := NewRegistry(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("integration providers registered", "standards", registry.Standards())

	a.connectMQ(ctx, cfg, logger)

	importerCfg := publish.Config{
		Catalog: a.Catalog,
		Fetcher: archive.NewFetcher(archive.Config{
			Store:      store,
			ScratchDir: cfg.ScratchDir,
			Logger:     logger,
		}),
		Blob:      store,
		Registrar: newRegistrar(cfg),
		Dispatcher: integration.NewDispatcher(integration.Config{
			Registry: registry,
			Logger:   logger,
		}),
		Logger: logger,
	}
	if a.Publisher != nil {
		importerCfg.Syncer = a.Publisher
	}
	a.Importer = publish.NewImporter(importerCfg)

	return a, nil
}

func (a *App) openCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	switch cfg.CatalogDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite catalog: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.Catalog = store
		a.HealthChecks = append(a.HealthChecks, api.HealthCheck{Name: "catalog", Check: store.Ping})
		logger.Info("sqlite catalog opened", "path", cfg.SQLitePath)

	default:
		pool, err := repo.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		if err := repo.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		a.Catalog = repo.NewOrchestratorRepo(pool)
		a.HealthChecks = append(a.HealthChecks, api.HealthCheck{Name: "catalog", Check: pool.Ping})
		logger.Info("connected to database")
	}
	return nil
}

// connectMQ подключается к RabbitMQ. Недоступный брокер не мешает
// синхронному импорту, поэтому ошибка только логируется.
func (a *App) connectMQ(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	if cfg.RabbitMQURL == "" {
		logger.Info("RABBITMQ_URL not set, async import and project sync disabled")
		return
	}

	conn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, async import and project sync disabled", "error", err)
		return
	}
	a.closers = append(a.closers, conn.Close)

	if err := mq.SetupTopology(ctx, conn); err != nil {
		logger.Warn("failed to setup topology", "error", err)
	} else {
		logger.Debug("topology declared", "topology", mq.TopologyInfo())
	}

	a.Conn = conn
	a.Publisher = mq.NewPublisher(conn, logger)
	a.HealthChecks = append(a.HealthChecks, api.HealthCheck{
		Name: "rabbitmq",
		Check: func(context.Context) error {
			if !conn.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		},
	})
}

// Close освобождает ресурсы в обратном порядке открытия.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewRegistry регистрирует HTTP-провайдеры из INTEGRATION_ENDPOINTS.
func NewRegistry(cfg *config.Config) (*integration.Registry, error) {
	endpoints, err := cfg.Endpoints()
	if err != nil {
		return nil, err
	}

	registry := integration.NewRegistry()
	for _, ep := range endpoints {
		accepts, err := integration.PredicateFor(ep.Env)
		if err != nil {
			return nil, err
		}
		registry.Register(ep.Standard, accepts, integration.NewHTTPProvider(ep.URL, cfg.HTTPTimeout))
	}
	return registry, nil
}

func newBlobStore(cfg *config.Config) (blob.Store, error) {
	if cfg.BlobBackend == config.BlobHTTP {
		return blob.NewHTTPStore(cfg.BlobURL, cfg.HTTPTimeout), nil
	}
	store, err := blob.NewFSStore(cfg.BlobDir)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return store, nil
}

func newRegistrar(cfg *config.Config) contextsvc.Registrar {
	if cfg.ContextServiceURL == "" {
		return contextsvc.NewLocalRegistrar()
	}
	return contextsvc.NewHTTPRegistrar(cfg.ContextServiceURL, cfg.HTTPTimeout)
}
