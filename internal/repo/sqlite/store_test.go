package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaiso/orcpub/internal/domain"
	"github.com/shaiso/orcpub/internal/repo"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func newInfo(uuid, name string, projectID int64) *domain.OrchestratorInfo {
	return &domain.OrchestratorInfo{
		UUID:       uuid,
		Name:       name,
		ProjectID:  projectID,
		Type:       domain.DefaultOrchestratorType,
		Mode:       domain.DefaultOrchestratorMode,
		Way:        domain.DefaultOrchestratorWay,
		Creator:    "alice",
		CreateTime: time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC),
	}
}

func begin(t *testing.T, s *Store) repo.Tx {
	t.Helper()
	tx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return tx
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenTwiceAppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		_ = s.Close()
	}
}

func TestInsertAndLookup(t *testing.T) {
	ctx := context.Background()
	s := openTempStore(t)
	tx := begin(t, s)

	info := newInfo("U1", "orcA", 7)
	if err := tx.InsertOrchestrator(ctx, info); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if info.ID == 0 {
		t.Fatal("expected id to be assigned")
	}

	got, err := tx.OrchestratorUUIDByName(ctx, 7, "orcA")
	if err != nil {
		t.Fatalf("uuid by name: %v", err)
	}
	if got != "U1" {
		t.Errorf("uuid = %q, want U1", got)
	}

	none, err := tx.OrchestratorUUIDByName(ctx, 8, "orcA")
	if err != nil {
		t.Fatalf("uuid by name: %v", err)
	}
	if none != "" {
		t.Errorf("expected no uuid in other project, got %q", none)
	}

	byUUID, err := tx.OrchestratorByUUID(ctx, "U1")
	if err != nil {
		t.Fatalf("by uuid: %v", err)
	}
	if byUUID.ID != info.ID || byUUID.Name != "orcA" || !byUUID.CreateTime.Equal(info.CreateTime) {
		t.Errorf("unexpected row: %+v", byUUID)
	}
	if byUUID.UpdateTime != nil {
		t.Error("update time should be nil for a fresh row")
	}

	if _, err := tx.OrchestratorByUUID(ctx, "missing"); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertDuplicateName(t *testing.T) {
	ctx := context.Background()
	s := openTempStore(t)
	tx := begin(t, s)

	if err := tx.InsertOrchestrator(ctx, newInfo("U1", "orcA", 7)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	err := tx.InsertOrchestrator(ctx, newInfo("U2", "orcA", 7))
	if !errors.Is(err, repo.ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}
	if !errors.Is(err, repo.ErrAlreadyExists) {
		t.Error("ErrNameTaken should wrap ErrAlreadyExists")
	}

	err = tx.InsertOrchestrator(ctx, newInfo("U1", "orcB", 7))
	if !errors.Is(err, repo.ErrAlreadyExists) || errors.Is(err, repo.ErrNameTaken) {
		t.Fatalf("expected plain ErrAlreadyExists for uuid clash, got %v", err)
	}
}

func TestVersionsOrderedByInsertion(t *testing.T) {
	ctx := context.Background()
	s := openTempStore(t)
	tx := begin(t, s)

	info := newInfo("U1", "orcA", 7)
	if err := tx.InsertOrchestrator(ctx, info); err != nil {
		t.Fatalf("insert: %v", err)
	}

	latest, err := tx.LatestVersion(ctx, info.ID, false)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != "" {
		t.Fatalf("expected no version, got %q", latest)
	}

	// v10 лексикографически меньше v9, но вставлена позже
	for i, ver := range []string{"v9", "v10"} {
		v := &domain.OrchestratorVersion{
			OrchestratorID: info.ID,
			Version:        ver,
			ValidFlag:      i == 0,
			ProjectID:      7,
			Updater:        "alice",
			UpdateTime:     time.Now(),
		}
		if err := tx.InsertVersion(ctx, v); err != nil {
			t.Fatalf("insert version %s: %v", ver, err)
		}
	}

	latest, _ = tx.LatestVersion(ctx, info.ID, false)
	if latest != "v10" {
		t.Errorf("latest = %q, want v10", latest)
	}
	latestValid, _ := tx.LatestVersion(ctx, info.ID, true)
	if latestValid != "v9" {
		t.Errorf("latest valid = %q, want v9", latestValid)
	}

	names, err := tx.VersionNames(ctx, info.ID)
	if err != nil {
		t.Fatalf("version names: %v", err)
	}
	if len(names) != 2 || names[0] != "v9" || names[1] != "v10" {
		t.Errorf("version names = %v, want [v9 v10]", names)
	}

	dup := &domain.OrchestratorVersion{OrchestratorID: info.ID, Version: "v10", ProjectID: 7, Updater: "alice", UpdateTime: time.Now()}
	if err := tx.InsertVersion(ctx, dup); !errors.Is(err, repo.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists for duplicate version, got %v", err)
	}
}

func TestCommitAndRollback(t *testing.T) {
	ctx := context.Background()
	s := openTempStore(t)

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	kept := newInfo("U1", "orcA", 7)
	if err := tx.InsertOrchestrator(ctx, kept); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback after commit should be a no-op, got %v", err)
	}
	if err := tx.Commit(ctx); !errors.Is(err, repo.ErrTxDone) {
		t.Fatalf("expected ErrTxDone on second commit, got %v", err)
	}

	tx, err = s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	dropped := newInfo("U2", "orcB", 7)
	if err := tx.InsertOrchestrator(ctx, dropped); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if _, err := s.GetOrchestrator(ctx, kept.ID); err != nil {
		t.Errorf("committed row missing: %v", err)
	}
	if _, err := s.GetOrchestrator(ctx, dropped.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("rolled back row should be absent, got %v", err)
	}
}

func TestUpdateAndActivate(t *testing.T) {
	ctx := context.Background()
	s := openTempStore(t)

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	info := newInfo("U1", "orcA", 7)
	if err := tx.InsertOrchestrator(ctx, info); err != nil {
		t.Fatalf("insert: %v", err)
	}

	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	info.Description = "updated"
	info.Updater = "bob"
	info.UpdateTime = &now
	if err := tx.UpdateOrchestrator(ctx, info); err != nil {
		t.Fatalf("update: %v", err)
	}

	for _, ver := range []string{"v1", "v2"} {
		v := &domain.OrchestratorVersion{OrchestratorID: info.ID, Version: ver, ProjectID: 7, Updater: "bob", UpdateTime: now}
		if err := tx.InsertVersion(ctx, v); err != nil {
			t.Fatalf("insert version: %v", err)
		}
		appID := int64(100)
		v.AppID = &appID
		v.Content = `{"job":1}`
		if err := tx.UpdateVersion(ctx, v); err != nil {
			t.Fatalf("update version: %v", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := s.GetOrchestrator(ctx, info.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description != "updated" || got.UpdateTime == nil || !got.UpdateTime.Equal(now) {
		t.Errorf("unexpected row after update: %+v", got)
	}

	if err := s.ActivateVersion(ctx, info.ID, "v1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	versions, err := s.ListVersions(ctx, info.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if !versions[0].ValidFlag || versions[1].ValidFlag {
		t.Errorf("expected only v1 valid, got %+v", versions)
	}
	if versions[0].AppID == nil || *versions[0].AppID != 100 {
		t.Errorf("app id not persisted: %+v", versions[0])
	}

	if err := s.ActivateVersion(ctx, info.ID, "v9"); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown version, got %v", err)
	}
}
