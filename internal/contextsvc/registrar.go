// Package contextsvc выдаёт корреляционные идентификаторы контекста
// для опубликованных версий оркестраторов.
package contextsvc

import (
	"context"
	"errors"
	"strings"
)

// Scope — область, для которой выдаётся идентификатор.
type Scope struct {
	Workspace    string `json:"workspace"`
	Project      string `json:"project"`
	Orchestrator string `json:"orchestrator"`
	Version      string `json:"version"`
	User         string `json:"user"`
}

// Validate проверяет обязательные поля.
func (s Scope) Validate() error {
	switch {
	case strings.TrimSpace(s.Project) == "":
		return errors.New("scope project is required")
	case strings.TrimSpace(s.Orchestrator) == "":
		return errors.New("scope orchestrator is required")
	case strings.TrimSpace(s.Version) == "":
		return errors.New("scope version is required")
	}
	return nil
}

// Registrar выдаёт идентификатор контекста.
type Registrar interface {
	CreateContextID(ctx context.Context, scope Scope) (string, error)
}
