package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/orcpub/internal/archive"
	"github.com/shaiso/orcpub/internal/blob"
	"github.com/shaiso/orcpub/internal/contextsvc"
	"github.com/shaiso/orcpub/internal/domain"
	"github.com/shaiso/orcpub/internal/integration"
	"github.com/shaiso/orcpub/internal/repo"
	"github.com/shaiso/orcpub/internal/telemetry"
)

// FlowFileSuffix — суффикс имени перезаливаемого архива потока.
const FlowFileSuffix = "_orc_flow.zip"

// PackageFetcher скачивает и распаковывает пакет.
type PackageFetcher interface {
	Fetch(ctx context.Context, req archive.FetchRequest) (*archive.Package, error)
}

// Dispatcher вызывает downstream-систему.
type Dispatcher interface {
	Import(ctx context.Context, target integration.Target, opts ...integration.RequestOption) (*integration.ImportRefResponse, error)
}

// Config — зависимости Importer.
type Config struct {
	Catalog    repo.Catalog
	Fetcher    PackageFetcher
	Blob       blob.Store
	Registrar  contextsvc.Registrar
	Dispatcher Dispatcher

	// Syncer — необязательный. Вызывается после commit для dev-окружения.
	Syncer ProjectSyncer

	Logger *slog.Logger
	Now    func() time.Time
}

// Importer — координатор импорта.
type Importer struct {
	catalog    repo.Catalog
	fetcher    PackageFetcher
	blob       blob.Store
	registrar  contextsvc.Registrar
	dispatcher Dispatcher
	syncer     ProjectSyncer
	logger     *slog.Logger
	now        func() time.Time
}

// NewImporter создаёт Importer.
func NewImporter(cfg Config) *Importer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Importer{
		catalog:    cfg.Catalog,
		fetcher:    cfg.Fetcher,
		blob:       cfg.Blob,
		registrar:  cfg.Registrar,
		dispatcher: cfg.Dispatcher,
		syncer:     cfg.Syncer,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
}

// Import импортирует пакет и возвращает id оркестратора в каталоге.
//
// Все ошибки имеют тип *domain.Error. Scratch-директория удаляется на
// любом пути, транзакция откатывается при любой ошибке.
func (i *Importer) Import(ctx context.Context, req *domain.ImportRequest) (id int64, err error) {
	if req == nil {
		return 0, domain.NewError(domain.CodeInvalidRequest, "request is required")
	}

	started := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(domain.AsError(err).Code)
		}
		telemetry.ObserveImport(outcome, req.Labels.Env(), started)
	}()

	if err := req.Validate(); err != nil {
		return 0, err
	}

	logger := telemetry.WithImport(i.logger, req.UserName, req.ProjectName, req.ResourceID, req.BMLVersion)
	logger.Info("import started", "env", req.Labels.Env(), "fork", req.IsFork())

	id, err = i.run(ctx, logger, req)
	if err != nil {
		return 0, i.fail(logger, err)
	}
	return id, nil
}

func (i *Importer) run(ctx context.Context, logger *slog.Logger, req *domain.ImportRequest) (int64, error) {
	projectID, projectName := req.TargetProject()

	pkg, err := i.fetcher.Fetch(ctx, archive.FetchRequest{
		User:       req.UserName,
		Project:    req.ProjectName,
		ResourceID: req.ResourceID,
		Version:    req.BMLVersion,
	})
	if err != nil {
		return 0, err
	}
	defer pkg.Close()
	state(logger, domain.ImportStateFetched)

	descs, err := pkg.Descriptors()
	if err != nil {
		return 0, err
	}
	if len(descs) > 1 {
		logger.Warn("package has several descriptors, importing the first", "count", len(descs))
	}
	desc := descs[0]
	state(logger, domain.ImportStateParsed, "orchestrator_uuid", desc.UUID, "orchestrator", desc.Name)

	tx, err := i.catalog.Begin(ctx)
	if err != nil {
		return 0, domain.WrapError(domain.CodeTransaction, "begin transaction", err)
	}
	defer func() {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			logger.Error("rollback failed", "error", rbErr)
		}
	}()

	now := i.now().UTC()

	info, outcome, err := ResolveIdentity(ctx, tx, desc.Info(), req, now)
	if err != nil {
		return 0, err
	}
	logger = telemetry.WithOrchestrator(logger, info.UUID, info.Name)
	state(logger, domain.ImportStateIdentityResolved, "outcome", outcome)

	if err := i.upsert(ctx, tx, info, outcome); err != nil {
		return 0, err
	}
	state(logger, domain.ImportStateCatalogUpserted, "orchestrator_id", info.ID)

	flow, err := i.reupload(ctx, req.UserName, projectName, info.Name, pkg.FlowPath())
	if err != nil {
		return 0, err
	}
	state(logger, domain.ImportStateSubArtifactUploaded, "flow_resource_id", flow.ID, "flow_version", flow.Version)

	prior, err := tx.LatestVersion(ctx, info.ID, false)
	if err != nil {
		return 0, domain.WrapError(domain.CodeTransaction, "get latest version", err)
	}
	version, fellBack := NextVersion(prior)
	if fellBack {
		history, err := tx.VersionNames(ctx, info.ID)
		if err != nil {
			return 0, domain.WrapError(domain.CodeTransaction, "list versions", err)
		}
		version = FallbackVersion(history)
		telemetry.VersionFallbacks.Inc()
		logger.Warn("prior version has unexpected format, allocating from highest numbered version", "prior", prior, "version", version)
	}
	state(logger, domain.ImportStateVersionAllocated, "prior", prior, "version", version)

	contextID, err := i.registrar.CreateContextID(ctx, contextsvc.Scope{
		Workspace:    req.Workspace.Name,
		Project:      projectName,
		Orchestrator: info.Name,
		Version:      version,
		User:         req.UserName,
	})
	if err != nil {
		return 0, domain.WrapError(domain.CodeContextAllocation, "create context id", err)
	}
	state(logger, domain.ImportStateContextRegistered, "context_id", contextID)

	v := &domain.OrchestratorVersion{
		OrchestratorID: info.ID,
		Version:        version,
		Content:        "",
		ContextID:      contextID,
		ValidFlag:      req.Labels.IsDevEnv(),
		ProjectID:      projectID,
		Updater:        req.UserName,
		UpdateTime:     now,
		Comment:        domain.VersionCommentImport,
		Source:         domain.VersionSourceImport,
	}
	if err := tx.InsertVersion(ctx, v); err != nil {
		return 0, domain.WrapError(domain.CodeTransaction, "insert version "+version, err)
	}
	state(logger, domain.ImportStateVersionRowCreated, "version_id", v.ID, "valid", v.ValidFlag)

	resp, err := i.dispatcher.Import(ctx,
		integration.Target{
			Standard:  info.Type,
			Labels:    req.Labels,
			User:      req.UserName,
			Workspace: req.Workspace.Name,
		},
		integration.WithContextID(contextID),
		integration.WithTargetProject(projectID, projectName),
		integration.WithResource(flow.ID, flow.Version),
		integration.WithNewVersion(version),
		integration.WithOrchestrator(info.UUID, info.Name),
	)
	if err != nil {
		return 0, err
	}
	state(logger, domain.ImportStateDispatched, "app_id", resp.ApplicationID)

	appID := resp.ApplicationID
	v.AppID = &appID
	v.Content = resp.Content
	if err := tx.UpdateVersion(ctx, v); err != nil {
		return 0, domain.WrapError(domain.CodeTransaction, "update version "+version, err)
	}
	state(logger, domain.ImportStateVersionRowFinalized)

	if err := tx.Commit(ctx); err != nil {
		return 0, domain.WrapError(domain.CodeTransaction, "commit", err)
	}

	logger.Info("orchestrator imported",
		"orchestrator_id", info.ID,
		"outcome", outcome,
		"version", version,
		"app_id", appID,
	)

	if req.Labels.IsDevEnv() {
		i.syncProject(ctx, logger, domain.ImportedEvent{
			OrchestratorID: info.ID,
			UUID:           info.UUID,
			Name:           info.Name,
			ProjectID:      projectID,
			ProjectName:    projectName,
			VersionID:      v.ID,
			Version:        version,
			AppID:          appID,
			ContextID:      contextID,
			User:           req.UserName,
			Labels:         req.Labels,
			ImportedAt:     now,
		})
	}
	return info.ID, nil
}

func (i *Importer) upsert(ctx context.Context, tx repo.Tx, info *domain.OrchestratorInfo, outcome domain.IdentityOutcome) error {
	var err error
	if outcome == domain.IdentityCreate {
		err = tx.InsertOrchestrator(ctx, info)
	} else {
		err = tx.UpdateOrchestrator(ctx, info)
	}
	if errors.Is(err, repo.ErrNameTaken) {
		return domain.WrapError(domain.CodeDuplicateName, domain.DuplicateNameMessage, err)
	}
	if err != nil {
		return domain.WrapError(domain.CodeTransaction, fmt.Sprintf("%s orchestrator", outcome), err)
	}
	return nil
}

// reupload заливает orc_flow.zip как отдельный ресурс <name>_orc_flow.zip.
func (i *Importer) reupload(ctx context.Context, user, projectName, name, path string) (blob.Resource, error) {
	rc, err := i.blob.ReadLocalFile(ctx, user, path)
	if err != nil {
		return blob.Resource{}, domain.WrapError(domain.CodeRetrieval, "read flow archive", err)
	}
	defer rc.Close()

	res, err := i.blob.Upload(ctx, user, rc, name+FlowFileSuffix, projectName)
	if err != nil {
		return blob.Resource{}, domain.WrapError(domain.CodeRetrieval, "upload flow archive", err)
	}
	return res, nil
}

func (i *Importer) syncProject(ctx context.Context, logger *slog.Logger, event domain.ImportedEvent) {
	if i.syncer == nil {
		return
	}
	if err := i.syncer.PublishImported(ctx, event); err != nil {
		logger.Warn("project sync failed", "error", err)
	}
}

// fail логирует ошибку импорта и приводит её к *domain.Error.
func (i *Importer) fail(logger *slog.Logger, err error) *domain.Error {
	de := domain.AsError(err)
	if de.Code == domain.CodeDuplicateName {
		logger.Warn("import rejected", "code", de.Code, "error", de.Message)
		return de
	}
	logger.Error("import failed", "code", de.Code, "error", err)
	return de
}

func state(logger *slog.Logger, s domain.ImportState, args ...any) {
	logger.Debug("import state", append([]any{"state", s}, args...)...)
}
