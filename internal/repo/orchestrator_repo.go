package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/orcpub/internal/domain"
)

// Имена ограничений уникальности из миграций.
const (
	constraintProjectName = "orchestrator_info_project_name_uq"
	pgUniqueViolation     = "23505"
)

// OrchestratorRepo — каталог оркестраторов в Postgres.
type OrchestratorRepo struct {
	pool *pgxpool.Pool
}

// NewOrchestratorRepo создаёт новый OrchestratorRepo.
func NewOrchestratorRepo(pool *pgxpool.Pool) *OrchestratorRepo {
	return &OrchestratorRepo{pool: pool}
}

// Begin открывает транзакцию.
func (r *OrchestratorRepo) Begin(ctx context.Context) (Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

// GetOrchestrator возвращает оркестратор по id.
func (r *OrchestratorRepo) GetOrchestrator(ctx context.Context, id int64) (*domain.OrchestratorInfo, error) {
	return scanInfo(r.pool.QueryRow(ctx, selectInfo+` WHERE id = $1 AND is_deleted = FALSE`, id))
}

// ListVersions возвращает версии оркестратора в порядке создания.
func (r *OrchestratorRepo) ListVersions(ctx context.Context, orchestratorID int64) ([]domain.OrchestratorVersion, error) {
	rows, err := r.pool.Query(ctx, selectVersion+` WHERE orchestrator_id = $1 ORDER BY id`, orchestratorID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []domain.OrchestratorVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}

// ActivateVersion делает версию единственной активной.
func (r *OrchestratorRepo) ActivateVersion(ctx context.Context, orchestratorID int64, version string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(context.WithoutCancel(ctx))

	var found bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM orchestrator_version WHERE orchestrator_id = $1 AND version = $2)
	`, orchestratorID, version).Scan(&found)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if !found {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE orchestrator_version
		SET valid_flag = (version = $2)
		WHERE orchestrator_id = $1
	`, orchestratorID, version)
	if err != nil {
		return fmt.Errorf("activate version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- Tx ---

type pgTx struct {
	tx   pgx.Tx
	done bool
}

func (t *pgTx) OrchestratorUUIDByName(ctx context.Context, projectID int64, name string) (string, error) {
	var id string
	err := t.tx.QueryRow(ctx, `
		SELECT uuid FROM orchestrator_info
		WHERE project_id = $1 AND name = $2 AND is_deleted = FALSE
	`, projectID, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get orchestrator uuid by name: %w", err)
	}
	return id, nil
}

func (t *pgTx) OrchestratorByUUID(ctx context.Context, uuid string) (*domain.OrchestratorInfo, error) {
	return scanInfo(t.tx.QueryRow(ctx, selectInfo+` WHERE uuid = $1`, uuid))
}

func (t *pgTx) InsertOrchestrator(ctx context.Context, info *domain.OrchestratorInfo) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orchestrator_info (
			uuid, name, description, project_id, workspace_id,
			type, mode, way, creator, create_time, updater, update_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		info.UUID,
		info.Name,
		info.Description,
		info.ProjectID,
		info.WorkspaceID,
		info.Type,
		info.Mode,
		info.Way,
		info.Creator,
		info.CreateTime,
		info.Updater,
		info.UpdateTime,
	).Scan(&info.ID)
	if err != nil {
		return fmt.Errorf("insert orchestrator: %w", mapPgError(err))
	}
	return nil
}

func (t *pgTx) UpdateOrchestrator(ctx context.Context, info *domain.OrchestratorInfo) error {
	result, err := t.tx.Exec(ctx, `
		UPDATE orchestrator_info
		SET uuid = $2, name = $3, description = $4, project_id = $5, workspace_id = $6,
		    type = $7, mode = $8, way = $9, updater = $10, update_time = $11,
		    is_deleted = FALSE
		WHERE id = $1
	`,
		info.ID,
		info.UUID,
		info.Name,
		info.Description,
		info.ProjectID,
		info.WorkspaceID,
		info.Type,
		info.Mode,
		info.Way,
		info.Updater,
		info.UpdateTime,
	)
	if err != nil {
		return fmt.Errorf("update orchestrator: %w", mapPgError(err))
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertVersion(ctx context.Context, v *domain.OrchestratorVersion) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orchestrator_version (
			orchestrator_id, version, app_id, content, context_id, valid_flag,
			project_id, updater, update_time, comment, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`,
		v.OrchestratorID,
		v.Version,
		v.AppID,
		v.Content,
		v.ContextID,
		v.ValidFlag,
		v.ProjectID,
		v.Updater,
		v.UpdateTime,
		v.Comment,
		v.Source,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("insert version: %w", mapPgError(err))
	}
	return nil
}

func (t *pgTx) UpdateVersion(ctx context.Context, v *domain.OrchestratorVersion) error {
	result, err := t.tx.Exec(ctx, `
		UPDATE orchestrator_version
		SET app_id = $2, content = $3, context_id = $4, valid_flag = $5,
		    updater = $6, update_time = $7
		WHERE id = $1
	`,
		v.ID,
		v.AppID,
		v.Content,
		v.ContextID,
		v.ValidFlag,
		v.Updater,
		v.UpdateTime,
	)
	if err != nil {
		return fmt.Errorf("update version: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) LatestVersion(ctx context.Context, orchestratorID int64, onlyValid bool) (string, error) {
	var version string
	err := t.tx.QueryRow(ctx, `
		SELECT version FROM orchestrator_version
		WHERE orchestrator_id = $1 AND (NOT $2 OR valid_flag)
		ORDER BY id DESC
		LIMIT 1
	`, orchestratorID, onlyValid).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get latest version: %w", err)
	}
	return version, nil
}

func (t *pgTx) VersionNames(ctx context.Context, orchestratorID int64) ([]string, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT version FROM orchestrator_version
		WHERE orchestrator_id = $1
		ORDER BY id
	`, orchestratorID)
	if err != nil {
		return nil, fmt.Errorf("list version names: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan version names: %w", err)
	}
	return names, nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// --- scan helpers ---

const selectInfo = `
	SELECT id, uuid, name, description, project_id, workspace_id,
	       type, mode, way, creator, create_time, updater, update_time
	FROM orchestrator_info`

const selectVersion = `
	SELECT id, orchestrator_id, version, app_id, content, context_id, valid_flag,
	       project_id, updater, update_time, comment, source
	FROM orchestrator_version`

func scanInfo(row pgx.Row) (*domain.OrchestratorInfo, error) {
	var info domain.OrchestratorInfo
	err := row.Scan(
		&info.ID,
		&info.UUID,
		&info.Name,
		&info.Description,
		&info.ProjectID,
		&info.WorkspaceID,
		&info.Type,
		&info.Mode,
		&info.Way,
		&info.Creator,
		&info.CreateTime,
		&info.Updater,
		&info.UpdateTime,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan orchestrator: %w", err)
	}
	return &info, nil
}

func scanVersion(row pgx.Row) (*domain.OrchestratorVersion, error) {
	var v domain.OrchestratorVersion
	err := row.Scan(
		&v.ID,
		&v.OrchestratorID,
		&v.Version,
		&v.AppID,
		&v.Content,
		&v.ContextID,
		&v.ValidFlag,
		&v.ProjectID,
		&v.Updater,
		&v.UpdateTime,
		&v.Comment,
		&v.Source,
	)
	if err != nil {
		return nil, fmt.Errorf("scan version: %w", err)
	}
	return &v, nil
}

// mapPgError переводит нарушения уникальности в ошибки репозитория.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if pgErr.ConstraintName == constraintProjectName {
			return ErrNameTaken
		}
		return fmt.Errorf("%w: %s", ErrAlreadyExists, pgErr.ConstraintName)
	}
	return err
}

var (
	_ Catalog = (*OrchestratorRepo)(nil)
	_ Tx      = (*pgTx)(nil)
)
