// Package sqlite — каталог оркестраторов во встроенной SQLite.
//
// Используется для однонодовых установок и в тестах. Транзакции открываются
// как BEGIN IMMEDIATE, поэтому параллельные импорты сериализуются на записи.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/shaiso/orcpub/internal/domain"
	"github.com/shaiso/orcpub/internal/repo"
	"github.com/shaiso/orcpub/internal/repo/sqlite/migrations"
)

// Store — каталог в SQLite.
type Store struct {
	db *sql.DB
}

// Open открывает файл каталога и применяет миграции.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close закрывает соединение.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping проверяет доступность базы.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Begin открывает транзакцию.
func (s *Store) Begin(ctx context.Context) (repo.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &sqliteTx{tx: tx}, nil
}

// GetOrchestrator возвращает оркестратор по id.
func (s *Store) GetOrchestrator(ctx context.Context, id int64) (*domain.OrchestratorInfo, error) {
	return scanInfo(s.db.QueryRowContext(ctx, selectInfo+` WHERE id = ? AND is_deleted = 0`, id))
}

// ListVersions возвращает версии оркестратора в порядке создания.
func (s *Store) ListVersions(ctx context.Context, orchestratorID int64) ([]domain.OrchestratorVersion, error) {
	rows, err := s.db.QueryContext(ctx, selectVersion+` WHERE orchestrator_id = ? ORDER BY id`, orchestratorID)
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
func (s *Store) ActivateVersion(ctx context.Context, orchestratorID int64, version string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var found int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM orchestrator_version WHERE orchestrator_id = ? AND version = ?`,
		orchestratorID, version,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return repo.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orchestrator_version
		SET valid_flag = CASE WHEN version = ? THEN 1 ELSE 0 END
		WHERE orchestrator_id = ?
	`, version, orchestratorID)
	if err != nil {
		return fmt.Errorf("activate version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- Tx ---

type sqliteTx struct {
	tx   *sql.Tx
	done bool
}

func (t *sqliteTx) OrchestratorUUIDByName(ctx context.Context, projectID int64, name string) (string, error) {
	var id string
	err := t.tx.QueryRowContext(ctx, `
		SELECT uuid FROM orchestrator_info
		WHERE project_id = ? AND name = ? AND is_deleted = 0
	`, projectID, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get orchestrator uuid by name: %w", err)
	}
	return id, nil
}

func (t *sqliteTx) OrchestratorByUUID(ctx context.Context, uuid string) (*domain.OrchestratorInfo, error) {
	return scanInfo(t.tx.QueryRowContext(ctx, selectInfo+` WHERE uuid = ?`, uuid))
}

func (t *sqliteTx) InsertOrchestrator(ctx context.Context, info *domain.OrchestratorInfo) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO orchestrator_info (
			uuid, name, description, project_id, workspace_id,
			type, mode, way, creator, create_time, updater, update_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
		toMillis(info.CreateTime),
		info.Updater,
		nullMillis(info.UpdateTime),
	)
	if err != nil {
		return fmt.Errorf("insert orchestrator: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert orchestrator: last insert id: %w", err)
	}
	info.ID = id
	return nil
}

func (t *sqliteTx) UpdateOrchestrator(ctx context.Context, info *domain.OrchestratorInfo) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE orchestrator_info
		SET uuid = ?, name = ?, description = ?, project_id = ?, workspace_id = ?,
		    type = ?, mode = ?, way = ?, updater = ?, update_time = ?, is_deleted = 0
		WHERE id = ?
	`,
		info.UUID,
		info.Name,
		info.Description,
		info.ProjectID,
		info.WorkspaceID,
		info.Type,
		info.Mode,
		info.Way,
		info.Updater,
		nullMillis(info.UpdateTime),
		info.ID,
	)
	if err != nil {
		return fmt.Errorf("update orchestrator: %w", mapSQLiteError(err))
	}
	return requireAffected(result)
}

func (t *sqliteTx) InsertVersion(ctx context.Context, v *domain.OrchestratorVersion) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO orchestrator_version (
			orchestrator_id, version, app_id, content, context_id, valid_flag,
			project_id, updater, update_time, comment, source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		v.OrchestratorID,
		v.Version,
		nullInt(v.AppID),
		v.Content,
		v.ContextID,
		boolInt(v.ValidFlag),
		v.ProjectID,
		v.Updater,
		toMillis(v.UpdateTime),
		v.Comment,
		v.Source,
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert version: last insert id: %w", err)
	}
	v.ID = id
	return nil
}

func (t *sqliteTx) UpdateVersion(ctx context.Context, v *domain.OrchestratorVersion) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE orchestrator_version
		SET app_id = ?, content = ?, context_id = ?, valid_flag = ?, updater = ?, update_time = ?
		WHERE id = ?
	`,
		nullInt(v.AppID),
		v.Content,
		v.ContextID,
		boolInt(v.ValidFlag),
		v.Updater,
		toMillis(v.UpdateTime),
		v.ID,
	)
	if err != nil {
		return fmt.Errorf("update version: %w", err)
	}
	return requireAffected(result)
}

func (t *sqliteTx) LatestVersion(ctx context.Context, orchestratorID int64, onlyValid bool) (string, error) {
	query := `SELECT version FROM orchestrator_version WHERE orchestrator_id = ?`
	if onlyValid {
		query += ` AND valid_flag = 1`
	}
	query += ` ORDER BY id DESC LIMIT 1`

	var version string
	err := t.tx.QueryRowContext(ctx, query, orchestratorID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get latest version: %w", err)
	}
	return version, nil
}

func (t *sqliteTx) VersionNames(ctx context.Context, orchestratorID int64) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT version FROM orchestrator_version WHERE orchestrator_id = ? ORDER BY id`,
		orchestratorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list version names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan version name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (t *sqliteTx) Commit(context.Context) error {
	if t.done {
		return repo.ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *sqliteTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInfo(row rowScanner) (*domain.OrchestratorInfo, error) {
	var (
		info       domain.OrchestratorInfo
		createTime int64
		updateTime sql.NullInt64
	)
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
		&createTime,
		&info.Updater,
		&updateTime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan orchestrator: %w", err)
	}
	info.CreateTime = fromMillis(createTime)
	if updateTime.Valid {
		t := fromMillis(updateTime.Int64)
		info.UpdateTime = &t
	}
	return &info, nil
}

func scanVersion(row rowScanner) (*domain.OrchestratorVersion, error) {
	var (
		v          domain.OrchestratorVersion
		appID      sql.NullInt64
		validFlag  int
		updateTime int64
	)
	err := row.Scan(
		&v.ID,
		&v.OrchestratorID,
		&v.Version,
		&appID,
		&v.Content,
		&v.ContextID,
		&validFlag,
		&v.ProjectID,
		&v.Updater,
		&updateTime,
		&v.Comment,
		&v.Source,
	)
	if err != nil {
		return nil, fmt.Errorf("scan version: %w", err)
	}
	if appID.Valid {
		id := appID.Int64
		v.AppID = &id
	}
	v.ValidFlag = validFlag != 0
	v.UpdateTime = fromMillis(updateTime)
	return &v, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// mapSQLiteError переводит нарушения уникальности в ошибки репозитория.
func mapSQLiteError(err error) error {
	if !isUniqueViolation(err) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "orchestrator_info.project_id, orchestrator_info.name") {
		return repo.ErrNameTaken
	}
	return fmt.Errorf("%w: %v", repo.ErrAlreadyExists, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var (
	_ repo.Catalog = (*Store)(nil)
	_ repo.Tx      = (*sqliteTx)(nil)
)
