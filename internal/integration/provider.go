package integration

import (
	"context"
	"errors"

	"github.com/shaiso/orcpub/internal/domain"
)

// ErrProviderNotFound — нет провайдера для стандарта и окружения.
var ErrProviderNotFound = errors.New("integration provider not found")

// Provider — downstream-система, принимающая импортированные версии.
type Provider interface {
	ImportRef(ctx context.Context, req *ImportRefRequest) (*ImportRefResponse, error)
}

// ImportRefRequest — запрос на регистрацию импортированной версии.
type ImportRefRequest struct {
	User      string        `json:"user"`
	Workspace string        `json:"workspace,omitempty"`
	Labels    domain.Labels `json:"labels"`

	OrchestratorUUID string `json:"orchestrator_uuid,omitempty"`
	OrchestratorName string `json:"orchestrator_name,omitempty"`

	ContextID   string `json:"context_id"`
	ProjectID   int64  `json:"project_id"`
	ProjectName string `json:"project_name"`

	// ResourceID и Version — перезалитый архив потока.
	ResourceID string `json:"resource_id"`
	Version    string `json:"version"`

	// NewVersion — выделенная версия оркестратора.
	NewVersion string `json:"new_version"`
}

// ImportRefResponse — ответ downstream-системы.
type ImportRefResponse struct {
	// ApplicationID — идентификатор приложения. 0 — ответ неполный.
	ApplicationID int64 `json:"app_id"`

	// Content — сериализованное содержимое задания.
	Content string `json:"content"`
}

// RequestOption настраивает запрос перед отправкой.
type RequestOption func(*ImportRefRequest)

// WithContextID задаёт идентификатор контекста.
func WithContextID(id string) RequestOption {
	return func(r *ImportRefRequest) { r.ContextID = id }
}

// WithTargetProject задаёт проект, в который импортируется оркестратор.
func WithTargetProject(id int64, name string) RequestOption {
	return func(r *ImportRefRequest) {
		r.ProjectID = id
		r.ProjectName = name
	}
}

// WithResource задаёт перезалитый архив потока.
func WithResource(resourceID, version string) RequestOption {
	return func(r *ImportRefRequest) {
		r.ResourceID = resourceID
		r.Version = version
	}
}

// WithNewVersion задаёт выделенную версию оркестратора.
func WithNewVersion(v string) RequestOption {
	return func(r *ImportRefRequest) { r.NewVersion = v }
}

// WithOrchestrator задаёт uuid и имя оркестратора.
func WithOrchestrator(uuid, name string) RequestOption {
	return func(r *ImportRefRequest) {
		r.OrchestratorUUID = uuid
		r.OrchestratorName = name
	}
}

// ProviderFunc — адаптер функции к Provider.
type ProviderFunc func(ctx context.Context, req *ImportRefRequest) (*ImportRefResponse, error)

// ImportRef вызывает f.
func (f ProviderFunc) ImportRef(ctx context.Context, req *ImportRefRequest) (*ImportRefResponse, error) {
	return f(ctx, req)
}
