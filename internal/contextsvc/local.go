package contextsvc

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// LocalRegistrar выдаёт идентификаторы в процессе, без внешнего сервиса.
type LocalRegistrar struct {
	mu     sync.RWMutex
	scopes map[string]Scope
}

// NewLocalRegistrar создаёт LocalRegistrar.
func NewLocalRegistrar() *LocalRegistrar {
	return &LocalRegistrar{scopes: make(map[string]Scope)}
}

// CreateContextID выдаёт новый идентификатор для scope.
func (r *LocalRegistrar) CreateContextID(ctx context.Context, scope Scope) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := scope.Validate(); err != nil {
		return "", err
	}

	id := "ctx-" + uuid.NewString()

	r.mu.Lock()
	r.scopes[id] = scope
	r.mu.Unlock()
	return id, nil
}

// Lookup возвращает scope, для которого был выдан id.
func (r *LocalRegistrar) Lookup(id string) (Scope, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scopes[id]
	return s, ok
}

var _ Registrar = (*LocalRegistrar)(nil)
