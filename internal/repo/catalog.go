// Package repo содержит каталог оркестраторов и его транзакционный контракт.
//
// Catalog — точка входа: открывает транзакции для импорта и обслуживает
// чтение/активацию версий. Реализации: OrchestratorRepo (Postgres, pgx) и
// sqlite.Store (встроенная SQLite).
package repo

import (
	"context"

	"github.com/shaiso/orcpub/internal/domain"
)

// Catalog — хранилище записей об оркестраторах и их версиях.
type Catalog interface {
	// Begin открывает транзакцию. Все записи импорта идут через неё.
	Begin(ctx context.Context) (Tx, error)

	// GetOrchestrator возвращает запись по id. ErrNotFound, если её нет.
	GetOrchestrator(ctx context.Context, id int64) (*domain.OrchestratorInfo, error)

	// ListVersions возвращает версии оркестратора в порядке создания.
	ListVersions(ctx context.Context, orchestratorID int64) ([]domain.OrchestratorVersion, error)

	// ActivateVersion делает версию активной, остальные версии оркестратора
	// становятся неактивными. ErrNotFound, если версии нет.
	ActivateVersion(ctx context.Context, orchestratorID int64, version string) error
}

// Tx — транзакция каталога.
//
// Rollback после Commit ничего не делает и возвращает nil, поэтому его
// можно безусловно вызывать в defer.
type Tx interface {
	// OrchestratorUUIDByName возвращает uuid не удалённого оркестратора
	// с таким именем в проекте или "" если его нет.
	OrchestratorUUIDByName(ctx context.Context, projectID int64, name string) (string, error)

	// OrchestratorByUUID возвращает запись по uuid. ErrNotFound, если её нет.
	OrchestratorByUUID(ctx context.Context, uuid string) (*domain.OrchestratorInfo, error)

	// InsertOrchestrator сохраняет новую запись и проставляет info.ID.
	// ErrNameTaken при конфликте (project_id, name).
	InsertOrchestrator(ctx context.Context, info *domain.OrchestratorInfo) error

	// UpdateOrchestrator обновляет запись по info.ID.
	UpdateOrchestrator(ctx context.Context, info *domain.OrchestratorInfo) error

	// InsertVersion сохраняет новую версию и проставляет v.ID.
	// ErrAlreadyExists при повторе (orchestrator_id, version).
	InsertVersion(ctx context.Context, v *domain.OrchestratorVersion) error

	// UpdateVersion обновляет версию по v.ID.
	UpdateVersion(ctx context.Context, v *domain.OrchestratorVersion) error

	// LatestVersion возвращает строку последней созданной версии или "".
	// Порядок — по id вставки, не лексикографический.
	LatestVersion(ctx context.Context, orchestratorID int64, onlyValid bool) (string, error)

	// VersionNames возвращает строки всех версий оркестратора в порядке
	// создания.
	VersionNames(ctx context.Context, orchestratorID int64) ([]string, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
