package integration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/orcpub/internal/domain"
	"github.com/shaiso/orcpub/internal/telemetry"
)

// Target — кого и куда импортируем.
type Target struct {
	// Standard — стандарт интеграции (OrchestratorInfo.Type).
	Standard  string
	Labels    domain.Labels
	User      string
	Workspace string
}

// Config — конфигурация Dispatcher.
type Config struct {
	Registry *Registry
	Logger   *slog.Logger
}

// Dispatcher выбирает провайдер и вызывает ImportRef.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// NewDispatcher создаёт Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		registry: cfg.Registry,
		logger:   cfg.Logger,
	}
}

// Import вызывает ImportRef у провайдера для target.
//
// Все ошибки, включая ответ без ApplicationID, возвращаются с кодом
// CodeIntegrationDispatch.
func (d *Dispatcher) Import(ctx context.Context, target Target, opts ...RequestOption) (*ImportRefResponse, error) {
	label := d.registry.MetricLabel(target.Standard)

	provider, err := d.registry.Resolve(target.Standard, target.Labels)
	if err != nil {
		telemetry.ObserveDispatch(label, err, time.Now())
		return nil, domain.WrapError(domain.CodeIntegrationDispatch, "resolve provider", err)
	}

	req := &ImportRefRequest{
		User:      target.User,
		Workspace: target.Workspace,
		Labels:    target.Labels,
	}
	for _, opt := range opts {
		opt(req)
	}

	started := time.Now()
	resp, err := provider.ImportRef(ctx, req)
	telemetry.ObserveDispatch(label, err, started)

	if err != nil {
		return nil, domain.WrapError(domain.CodeIntegrationDispatch,
			fmt.Sprintf("import ref via %s", target.Standard), err)
	}
	if resp == nil || resp.ApplicationID == 0 {
		return nil, domain.NewError(domain.CodeIntegrationDispatch, "downstream response has no application id")
	}

	d.logger.Debug("import ref dispatched",
		"standard", target.Standard,
		"env", target.Labels.Env(),
		"app_id", resp.ApplicationID,
		"duration", time.Since(started),
	)
	return resp, nil
}
