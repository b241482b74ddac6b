package publish

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shaiso/orcpub/internal/archive"
	"github.com/shaiso/orcpub/internal/blob"
	"github.com/shaiso/orcpub/internal/contextsvc"
	"github.com/shaiso/orcpub/internal/domain"
	"github.com/shaiso/orcpub/internal/integration"
	"github.com/shaiso/orcpub/internal/repo"
	"github.com/shaiso/orcpub/internal/repo/sqlite"
)

// --- fakes ---

type fakeProvider struct {
	mu    sync.Mutex
	calls []integration.ImportRefRequest
	err   error
}

func (p *fakeProvider) ImportRef(ctx context.Context, req *integration.ImportRefRequest) (*integration.ImportRefResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, *req)
	if p.err != nil {
		return nil, p.err
	}
	return &integration.ImportRefResponse{
		ApplicationID: int64(1000 + len(p.calls)),
		Content:       fmt.Sprintf(`{"orchestrator":%q,"version":%q}`, req.OrchestratorName, req.NewVersion),
	}, nil
}

func (p *fakeProvider) last() integration.ImportRefRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[len(p.calls)-1]
}

type failingRegistrar struct{}

func (failingRegistrar) CreateContextID(ctx context.Context, scope contextsvc.Scope) (string, error) {
	return "", errors.New("context service unavailable")
}

type fakeSyncer struct {
	mu     sync.Mutex
	events []domain.ImportedEvent
}

func (s *fakeSyncer) PublishImported(ctx context.Context, e domain.ImportedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// staleNameCatalog отдаёт транзакции, которые не видят чужих имён:
// так выглядит импорт, прочитавший каталог до commit параллельного импорта.
type staleNameCatalog struct {
	repo.Catalog
	stale bool
}

func (c *staleNameCatalog) Begin(ctx context.Context) (repo.Tx, error) {
	tx, err := c.Catalog.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &staleNameTx{Tx: tx, stale: c.stale}, nil
}

type staleNameTx struct {
	repo.Tx
	stale bool
}

func (t *staleNameTx) OrchestratorUUIDByName(ctx context.Context, projectID int64, name string) (string, error) {
	if t.stale {
		return "", nil
	}
	return t.Tx.OrchestratorUUIDByName(ctx, projectID, name)
}

// --- harness ---

type harness struct {
	importer  *Importer
	catalog   *sqlite.Store
	blobs     *blob.FSStore
	registrar *contextsvc.LocalRegistrar
	provider  *fakeProvider
	syncer    *fakeSyncer
	scratch   string
	logs      *bytes.Buffer
}

func newHarness(t *testing.T, opts ...func(*Config)) *harness {
	t.Helper()

	catalog, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { catalog.Close() })

	blobs, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new blob store: %v", err)
	}

	h := &harness{
		catalog:   catalog,
		blobs:     blobs,
		registrar: contextsvc.NewLocalRegistrar(),
		provider:  &fakeProvider{},
		syncer:    &fakeSyncer{},
		scratch:   t.TempDir(),
		logs:      &bytes.Buffer{},
	}

	reg := integration.NewRegistry()
	reg.Register(domain.DefaultOrchestratorType, integration.AnyEnv, h.provider)

	logger := slog.New(slog.NewJSONHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := Config{
		Catalog:    catalog,
		Fetcher:    archive.NewFetcher(archive.Config{Store: blobs, ScratchDir: h.scratch, Logger: logger}),
		Blob:       blobs,
		Registrar:  h.registrar,
		Dispatcher: integration.NewDispatcher(integration.Config{Registry: reg, Logger: logger}),
		Syncer:     h.syncer,
		Logger:     logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	h.importer = NewImporter(cfg)
	return h
}

func buildPackage(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := io.WriteString(w, content); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// publishPackage кладёт пакет с оркестратором uuid/name в blob store.
func (h *harness) publishPackage(t *testing.T, uuid, name string) blob.Resource {
	t.Helper()
	meta := fmt.Sprintf("uuid: %s\nname: %s\ndescription: imported %s\n", uuid, name, name)
	return h.upload(t, buildPackage(t, map[string]string{
		"orc_meta.yaml": meta,
		"orc_flow.zip":  "flow of " + name,
	}))
}

func (h *harness) upload(t *testing.T, data []byte) blob.Resource {
	t.Helper()
	res, err := h.blobs.Upload(context.Background(), "alice", bytes.NewReader(data), "export.zip", "proj1")
	if err != nil {
		t.Fatalf("upload package: %v", err)
	}
	return res
}

func request(res blob.Resource, labels ...domain.Label) *domain.ImportRequest {
	return &domain.ImportRequest{
		UserName:    "alice",
		ProjectName: "proj1",
		ProjectID:   1,
		ResourceID:  res.ID,
		BMLVersion:  res.Version,
		Labels:      domain.Labels(labels),
		Workspace:   domain.Workspace{ID: 5, Name: "ws"},
	}
}

func (h *harness) byUUID(t *testing.T, uuid string) *domain.OrchestratorInfo {
	t.Helper()
	ctx := context.Background()
	tx, err := h.catalog.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	info, err := tx.OrchestratorByUUID(ctx, uuid)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		t.Fatalf("by uuid: %v", err)
	}
	return info
}

func (h *harness) versions(t *testing.T, id int64) []domain.OrchestratorVersion {
	t.Helper()
	versions, err := h.catalog.ListVersions(context.Background(), id)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	return versions
}

func (h *harness) assertScratchClean(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(h.scratch, "alice", "proj1"))
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("read scratch: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch not released: %d entries left", len(entries))
	}
}

// --- tests ---

func TestImport_EndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pkg := h.publishPackage(t, "U1", "orcA")

	// первый импорт: создаётся запись и версия v1
	id, err := h.importer.Import(ctx, request(pkg, domain.LabelDev))
	if err != nil {
		t.Fatalf("first import: %v", err)
	}

	info := h.byUUID(t, "U1")
	if info == nil || info.ID != id {
		t.Fatalf("orchestrator U1 not persisted as %d: %+v", id, info)
	}
	if info.Name != "orcA" || info.ProjectID != 1 || info.WorkspaceID != 5 || info.Creator != "alice" {
		t.Errorf("unexpected info row: %+v", info)
	}
	if info.Mode != domain.DefaultOrchestratorMode || info.Way != domain.DefaultOrchestratorWay {
		t.Errorf("defaults not applied: %+v", info)
	}

	versions := h.versions(t, id)
	if len(versions) != 1 {
		t.Fatalf("expected 1 version, got %d", len(versions))
	}
	v1 := versions[0]
	if v1.Version != "v1" || !v1.ValidFlag {
		t.Errorf("unexpected first version: %+v", v1)
	}
	if v1.AppID == nil || *v1.AppID != 1001 {
		t.Errorf("app id not stored: %+v", v1.AppID)
	}
	if !strings.Contains(v1.Content, `"version":"v1"`) {
		t.Errorf("content not stored: %q", v1.Content)
	}
	if v1.Comment != domain.VersionCommentImport || v1.Source != domain.VersionSourceImport {
		t.Errorf("unexpected comment/source: %q %q", v1.Comment, v1.Source)
	}
	scope, ok := h.registrar.Lookup(v1.ContextID)
	if !ok || scope.Orchestrator != "orcA" || scope.Version != "v1" || scope.Project != "proj1" || scope.Workspace != "ws" {
		t.Errorf("context id %q registered for %+v", v1.ContextID, scope)
	}

	// dispatch получил перезалитый архив потока
	call := h.provider.last()
	if call.ContextID != v1.ContextID || call.NewVersion != "v1" || call.ProjectID != 1 || call.ProjectName != "proj1" {
		t.Errorf("unexpected dispatch request: %+v", call)
	}
	flowPath := filepath.Join(t.TempDir(), "flow.zip")
	if err := h.blobs.Download(ctx, "alice", call.ResourceID, call.Version, flowPath); err != nil {
		t.Fatalf("download re-uploaded flow: %v", err)
	}
	if data, _ := os.ReadFile(flowPath); string(data) != "flow of orcA" {
		t.Errorf("re-uploaded flow = %q", data)
	}
	h.assertScratchClean(t)

	// повторный импорт того же пакета: тот же id, версия v2
	again, err := h.importer.Import(ctx, request(pkg, domain.LabelDev))
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if again != id {
		t.Errorf("re-import id = %d, want %d", again, id)
	}
	versions = h.versions(t, id)
	if len(versions) != 2 || versions[1].Version != "v2" {
		t.Fatalf("expected v1, v2; got %+v", versions)
	}
	if info := h.byUUID(t, "U1"); info.Updater != "alice" || info.UpdateTime == nil {
		t.Errorf("update stamp missing after re-import: %+v", info)
	}

	// другой uuid с тем же именем отклоняется без изменений
	clash := h.publishPackage(t, "U2", "orcA")
	_, err = h.importer.Import(ctx, request(clash, domain.LabelDev))
	if !errors.Is(err, domain.ErrDuplicateName) {
		t.Fatalf("expected duplicate name, got %v", err)
	}
	var de *domain.Error
	if !errors.As(err, &de) || de.LegacyCode() != domain.LegacyCodeDuplicateName {
		t.Errorf("expected legacy code 61002, got %+v", de)
	}
	if h.byUUID(t, "U2") != nil {
		t.Error("rejected orchestrator must not be persisted")
	}
	if n := len(h.versions(t, id)); n != 2 {
		t.Errorf("versions changed after rejected import: %d", n)
	}
	if len(h.provider.calls) != 2 {
		t.Errorf("dispatch must not run for rejected import, calls = %d", len(h.provider.calls))
	}
	h.assertScratchClean(t)
}

func TestImport_Fork(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pkg := h.publishPackage(t, "U1", "orcA")

	origID, err := h.importer.Import(ctx, request(pkg, domain.LabelDev))
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	req := request(pkg, domain.LabelDev)
	target := int64(2)
	req.CopyProjectID = &target
	req.CopyProjectName = "proj2"

	forkID, err := h.importer.Import(ctx, req)
	if err != nil {
		t.Fatalf("fork import: %v", err)
	}
	if forkID == origID {
		t.Fatal("fork must create a new catalog row")
	}

	fork, err := h.catalog.GetOrchestrator(ctx, forkID)
	if err != nil {
		t.Fatalf("get fork: %v", err)
	}
	if fork.UUID == "U1" || fork.ProjectID != 2 || fork.Name != "orcA" {
		t.Errorf("unexpected fork row: %+v", fork)
	}
	if v := h.versions(t, forkID); len(v) != 1 || v[0].Version != "v1" || v[0].ProjectID != 2 {
		t.Errorf("fork versions: %+v", v)
	}
	if call := h.provider.last(); call.ProjectID != 2 || call.ProjectName != "proj2" {
		t.Errorf("fork dispatch targeted %d/%s", call.ProjectID, call.ProjectName)
	}

	orig := h.byUUID(t, "U1")
	if orig.ID != origID || orig.ProjectID != 1 {
		t.Errorf("original changed by fork: %+v", orig)
	}
	if n := len(h.versions(t, origID)); n != 1 {
		t.Errorf("original versions changed by fork: %d", n)
	}
}

func TestImport_DispatchFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pkg := h.publishPackage(t, "U1", "orcA")

	h.provider.err = errors.New("downstream unavailable")
	_, err := h.importer.Import(ctx, request(pkg, domain.LabelDev))
	if !errors.Is(err, domain.ErrIntegrationDispatch) {
		t.Fatalf("expected dispatch error, got %v", err)
	}
	if h.byUUID(t, "U1") != nil {
		t.Error("info row must be rolled back")
	}
	h.assertScratchClean(t)

	// существующий оркестратор: ни версия, ни описание не меняются
	h.provider.err = nil
	id, err := h.importer.Import(ctx, request(pkg, domain.LabelDev))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	before := h.byUUID(t, "U1")

	updated := h.upload(t, buildPackage(t, map[string]string{
		"orc_meta.yaml": "uuid: U1\nname: orcA\ndescription: changed\n",
		"orc_flow.zip":  "flow",
	}))
	h.provider.err = errors.New("downstream unavailable")
	if _, err := h.importer.Import(ctx, request(updated, domain.LabelDev)); !errors.Is(err, domain.ErrIntegrationDispatch) {
		t.Fatalf("expected dispatch error, got %v", err)
	}

	after := h.byUUID(t, "U1")
	if after.Description != before.Description {
		t.Errorf("description changed despite rollback: %q", after.Description)
	}
	if n := len(h.versions(t, id)); n != 1 {
		t.Errorf("version row leaked after rollback: %d versions", n)
	}
}

func TestImport_ContextFailureRollsBack(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Registrar = failingRegistrar{} })
	pkg := h.publishPackage(t, "U1", "orcA")

	_, err := h.importer.Import(context.Background(), request(pkg, domain.LabelDev))
	if !errors.Is(err, domain.ErrContextAllocation) {
		t.Fatalf("expected context allocation error, got %v", err)
	}
	if h.byUUID(t, "U1") != nil {
		t.Error("info row must be rolled back")
	}
	if len(h.provider.calls) != 0 {
		t.Error("dispatch must not run after context failure")
	}
	h.assertScratchClean(t)
}

func TestImport_ValidFlagByEnvironment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pkg := h.publishPackage(t, "U1", "orcA")

	id, err := h.importer.Import(ctx, request(pkg, domain.LabelProd))
	if err != nil {
		t.Fatalf("prod import: %v", err)
	}
	if _, err := h.importer.Import(ctx, request(pkg, "Dev")); err != nil {
		t.Fatalf("dev import: %v", err)
	}

	versions := h.versions(t, id)
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions[0].ValidFlag {
		t.Error("prod import must create an inactive version")
	}
	if !versions[1].ValidFlag {
		t.Error("dev import must create an active version")
	}

	// project sync только для dev
	if len(h.syncer.events) != 1 {
		t.Fatalf("expected 1 sync event, got %d", len(h.syncer.events))
	}
	ev := h.syncer.events[0]
	if ev.OrchestratorID != id || ev.Version != "v2" || ev.VersionID != versions[1].ID {
		t.Errorf("unexpected sync event: %+v", ev)
	}
}

func TestImport_ConcurrentSameNameLoses(t *testing.T) {
	stale := &staleNameCatalog{}
	h := newHarness(t, func(cfg *Config) {
		stale.Catalog = cfg.Catalog
		cfg.Catalog = stale
	})
	ctx := context.Background()

	winner := h.publishPackage(t, "U1", "orcA")
	loser := h.publishPackage(t, "U2", "orcA")

	id, err := h.importer.Import(ctx, request(winner, domain.LabelDev))
	if err != nil {
		t.Fatalf("winner import: %v", err)
	}

	stale.stale = true
	_, err = h.importer.Import(ctx, request(loser, domain.LabelDev))
	if !errors.Is(err, domain.ErrDuplicateName) {
		t.Fatalf("expected duplicate name for the second writer, got %v", err)
	}
	if msg := domain.AsError(err).Message; msg != domain.DuplicateNameMessage {
		t.Errorf("message = %q, want %q", msg, domain.DuplicateNameMessage)
	}

	if info := h.byUUID(t, "U2"); info != nil {
		t.Errorf("losing orchestrator must not be committed, got %+v", info)
	}
	if n := len(h.versions(t, id)); n != 1 {
		t.Errorf("expected only the winner's version, got %d", n)
	}
	if n := len(h.provider.calls); n != 1 {
		t.Errorf("dispatch calls = %d, want 1", n)
	}
	h.assertScratchClean(t)
}

func TestImport_VersionFallback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pkg := h.publishPackage(t, "U1", "orcA")

	var id int64
	for i := 0; i < 2; i++ {
		var err error
		id, err = h.importer.Import(ctx, request(pkg, domain.LabelDev))
		if err != nil {
			t.Fatalf("import #%d: %v", i+1, err)
		}
	}

	// версия в формате, который нельзя увеличить
	tx, err := h.catalog.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	odd := &domain.OrchestratorVersion{OrchestratorID: id, Version: "release", ProjectID: 1, Updater: "bob", UpdateTime: now}
	if err := tx.InsertVersion(ctx, odd); err != nil {
		t.Fatalf("insert odd version: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := h.importer.Import(ctx, request(pkg, domain.LabelDev)); err != nil {
			t.Fatalf("import after fallback #%d: %v", i+1, err)
		}
	}
	if !strings.Contains(h.logs.String(), "prior version has unexpected format") {
		t.Error("fallback must be logged")
	}

	var got []string
	for _, v := range h.versions(t, id) {
		got = append(got, v.Version)
	}
	want := []string{"v1", "v2", "release", "v3", "v4"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("versions = %v, want %v", got, want)
	}
}

func TestImport_VersionFallbackFreshOrchestrator(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// оркестратор, у которого есть только версия в чужом формате
	tx, err := h.catalog.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	info := &domain.OrchestratorInfo{UUID: "U1", Name: "orcA", ProjectID: 1, Creator: "bob", CreateTime: now}
	if err := tx.InsertOrchestrator(ctx, info); err != nil {
		t.Fatalf("insert info: %v", err)
	}
	if err := tx.InsertVersion(ctx, &domain.OrchestratorVersion{OrchestratorID: info.ID, Version: "release", ProjectID: 1, Updater: "bob", UpdateTime: now}); err != nil {
		t.Fatalf("insert version: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	pkg := h.publishPackage(t, "U1", "orcA")
	id, err := h.importer.Import(ctx, request(pkg, domain.LabelDev))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	versions := h.versions(t, id)
	if len(versions) != 2 || versions[1].Version != InitialVersion {
		t.Errorf("expected fallback to %s, got %+v", InitialVersion, versions)
	}
}

func TestImport_PackageErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	missing := blob.Resource{ID: "missing", Version: "v000001"}
	if _, err := h.importer.Import(ctx, request(missing)); !errors.Is(err, domain.ErrRetrieval) {
		t.Errorf("expected retrieval error, got %v", err)
	}

	noFlow := h.upload(t, buildPackage(t, map[string]string{"orc_meta.yaml": "uuid: U1\nname: orcA\n"}))
	if _, err := h.importer.Import(ctx, request(noFlow)); !errors.Is(err, domain.ErrMalformedPackage) {
		t.Errorf("expected malformed package, got %v", err)
	}

	noUUID := h.upload(t, buildPackage(t, map[string]string{"orc_meta.yaml": "name: orcA\n", "orc_flow.zip": "x"}))
	if _, err := h.importer.Import(ctx, request(noUUID)); !errors.Is(err, domain.ErrMalformedPackage) {
		t.Errorf("expected malformed package, got %v", err)
	}

	if len(h.provider.calls) != 0 {
		t.Error("dispatch must not run for broken packages")
	}
	h.assertScratchClean(t)
}

func TestImport_InvalidRequest(t *testing.T) {
	h := newHarness(t)

	_, err := h.importer.Import(context.Background(), &domain.ImportRequest{ProjectName: "proj1"})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected invalid request, got %v", err)
	}
	if _, err := h.importer.Import(context.Background(), nil); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected invalid request for nil, got %v", err)
	}
}

func TestImport_Cancelled(t *testing.T) {
	h := newHarness(t)
	pkg := h.publishPackage(t, "U1", "orcA")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.importer.Import(ctx, request(pkg, domain.LabelDev))
	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
	var de *domain.Error
	if !errors.As(err, &de) {
		t.Errorf("expected *domain.Error, got %T", err)
	}
	if h.byUUID(t, "U1") != nil {
		t.Error("nothing may be persisted on cancellation")
	}
	h.assertScratchClean(t)
}

func TestImport_LogsEveryState(t *testing.T) {
	h := newHarness(t)
	pkg := h.publishPackage(t, "U1", "orcA")

	if _, err := h.importer.Import(context.Background(), request(pkg, domain.LabelDev)); err != nil {
		t.Fatalf("import: %v", err)
	}

	states := []domain.ImportState{
		domain.ImportStateFetched,
		domain.ImportStateParsed,
		domain.ImportStateIdentityResolved,
		domain.ImportStateCatalogUpserted,
		domain.ImportStateSubArtifactUploaded,
		domain.ImportStateVersionAllocated,
		domain.ImportStateContextRegistered,
		domain.ImportStateVersionRowCreated,
		domain.ImportStateDispatched,
		domain.ImportStateVersionRowFinalized,
	}
	logs := h.logs.String()
	pos := 0
	for _, s := range states {
		idx := strings.Index(logs[pos:], `"state":"`+string(s)+`"`)
		if idx < 0 {
			t.Fatalf("state %s not logged in order", s)
		}
		pos += idx
	}
}
