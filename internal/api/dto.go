package api

import (
	"time"

	"github.com/shaiso/orcpub/internal/domain"
)

// Import DTOs

// ImportResponse — результат синхронного импорта.
type ImportResponse struct {
	OrchestratorID int64 `json:"orchestrator_id"`
}

// ImportAcceptedResponse — ответ на асинхронный импорт.
type ImportAcceptedResponse struct {
	RequestID string `json:"request_id"`
}

// Orchestrator DTOs

// OrchestratorResponse — ответ с оркестратором.
type OrchestratorResponse struct {
	ID          int64      `json:"id"`
	UUID        string     `json:"uuid"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ProjectID   int64      `json:"project_id"`
	WorkspaceID int64      `json:"workspace_id,omitempty"`
	Type        string     `json:"type"`
	Mode        string     `json:"mode"`
	Way         string     `json:"way"`
	Creator     string     `json:"creator"`
	CreateTime  time.Time  `json:"create_time"`
	Updater     string     `json:"updater,omitempty"`
	UpdateTime  *time.Time `json:"update_time,omitempty"`
}

// OrchestratorFromDomain конвертирует domain.OrchestratorInfo в OrchestratorResponse.
func OrchestratorFromDomain(o domain.OrchestratorInfo) OrchestratorResponse {
	return OrchestratorResponse{
		ID:          o.ID,
		UUID:        o.UUID,
		Name:        o.Name,
		Description: o.Description,
		ProjectID:   o.ProjectID,
		WorkspaceID: o.WorkspaceID,
		Type:        o.Type,
		Mode:        o.Mode,
		Way:         o.Way,
		Creator:     o.Creator,
		CreateTime:  o.CreateTime,
		Updater:     o.Updater,
		UpdateTime:  o.UpdateTime,
	}
}

// Version DTOs

// VersionResponse — ответ с версией оркестратора.
// Content не отдаётся в списке, он может быть большим.
type VersionResponse struct {
	ID         int64     `json:"id"`
	Version    string    `json:"version"`
	AppID      *int64    `json:"app_id,omitempty"`
	ContextID  string    `json:"context_id"`
	ValidFlag  bool      `json:"valid_flag"`
	ProjectID  int64     `json:"project_id"`
	Updater    string    `json:"updater"`
	UpdateTime time.Time `json:"update_time"`
	Comment    string    `json:"comment,omitempty"`
	Source     string    `json:"source,omitempty"`
}

// VersionFromDomain конвертирует domain.OrchestratorVersion в VersionResponse.
func VersionFromDomain(v domain.OrchestratorVersion) VersionResponse {
	return VersionResponse{
		ID:         v.ID,
		Version:    v.Version,
		AppID:      v.AppID,
		ContextID:  v.ContextID,
		ValidFlag:  v.ValidFlag,
		ProjectID:  v.ProjectID,
		Updater:    v.Updater,
		UpdateTime: v.UpdateTime,
		Comment:    v.Comment,
		Source:     v.Source,
	}
}

// ActivateResponse — ответ на активацию версии.
type ActivateResponse struct {
	OrchestratorID int64  `json:"orchestrator_id"`
	Version        string `json:"version"`
}
