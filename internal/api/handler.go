package api

import (
	"context"
	"log/slog"

	"github.com/shaiso/orcpub/internal/domain"
	"github.com/shaiso/orcpub/internal/repo"
)

// Importer выполняет импорт синхронно. Реализуется publish.Importer.
type Importer interface {
	Import(ctx context.Context, req *domain.ImportRequest) (int64, error)
}

// ImportQueue ставит импорт в очередь. Реализуется mq.Publisher.
type ImportQueue interface {
	PublishImportRequested(ctx context.Context, req *domain.ImportRequest) (string, error)
}

// HealthCheck — проверка зависимости для /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	catalog  repo.Catalog
	importer Importer
	queue    ImportQueue
	checks   []HealthCheck
	logger   *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Catalog  repo.Catalog
	Importer Importer

	// Queue — необязательная. Без неё ?async=true отвечает 503.
	Queue ImportQueue

	HealthChecks []HealthCheck
	Logger       *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		catalog:  cfg.Catalog,
		importer: cfg.Importer,
		queue:    cfg.Queue,
		checks:   cfg.HealthChecks,
		logger:   logger,
	}
}
