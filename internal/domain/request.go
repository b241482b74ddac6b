package domain

import "strings"

// Workspace — рабочее пространство, из которого пришёл запрос.
type Workspace struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ImportRequest — запрос на импорт оркестратора. Не сохраняется.
type ImportRequest struct {
	UserName    string `json:"user_name"`
	ProjectName string `json:"project_name"`
	ProjectID   int64  `json:"project_id"`

	// ResourceID и BMLVersion — локатор пакета в blob-хранилище.
	ResourceID string `json:"resource_id"`
	BMLVersion string `json:"bml_version"`

	// Labels — классификация окружения (dev, prod).
	Labels Labels `json:"labels"`

	Workspace Workspace `json:"workspace"`

	// CopyProjectID и CopyProjectName — цель копирования (fork).
	CopyProjectID   *int64 `json:"copy_project_id,omitempty"`
	CopyProjectName string `json:"copy_project_name,omitempty"`
}

// IsFork возвращает true, если запрос копирует оркестратор в новый проект.
func (r *ImportRequest) IsFork() bool {
	return r.CopyProjectID != nil && strings.TrimSpace(r.CopyProjectName) != ""
}

// TargetProject возвращает проект, в который попадёт оркестратор.
func (r *ImportRequest) TargetProject() (int64, string) {
	if r.IsFork() {
		return *r.CopyProjectID, r.CopyProjectName
	}
	return r.ProjectID, r.ProjectName
}

// Validate проверяет обязательные поля запроса.
func (r *ImportRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.UserName) == "":
		return NewError(CodeInvalidRequest, "user_name is required")
	case strings.TrimSpace(r.ProjectName) == "":
		return NewError(CodeInvalidRequest, "project_name is required")
	case r.ProjectID <= 0:
		return NewError(CodeInvalidRequest, "project_id is required")
	case strings.TrimSpace(r.ResourceID) == "":
		return NewError(CodeInvalidRequest, "resource_id is required")
	case strings.TrimSpace(r.BMLVersion) == "":
		return NewError(CodeInvalidRequest, "bml_version is required")
	}
	return nil
}
