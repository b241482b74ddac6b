package domain

import "time"

// ImportedEvent — событие об успешном импорте, публикуется после commit.
type ImportedEvent struct {
	OrchestratorID int64  `json:"orchestrator_id"`
	UUID           string `json:"uuid"`
	Name           string `json:"name"`
	ProjectID      int64  `json:"project_id"`
	ProjectName    string `json:"project_name"`

	VersionID int64  `json:"version_id"`
	Version   string `json:"version"`
	AppID     int64  `json:"app_id"`
	ContextID string `json:"context_id"`

	User       string    `json:"user"`
	Labels     Labels    `json:"labels"`
	ImportedAt time.Time `json:"imported_at"`
}
