package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/orcpub/internal/domain"
	"github.com/shaiso/orcpub/internal/repo"
)

// IdentityReader — поиск оркестраторов для разрешения идентичности.
// repo.Tx удовлетворяет этому интерфейсу.
type IdentityReader interface {
	OrchestratorUUIDByName(ctx context.Context, projectID int64, name string) (string, error)
	OrchestratorByUUID(ctx context.Context, uuid string) (*domain.OrchestratorInfo, error)
}

// ResolveIdentity решает, создаётся новый оркестратор или обновляется
// существующий.
//
//   - fork: проект берётся из CopyProjectID, uuid генерируется заново
//   - имя занято другим uuid в проекте: ошибка CodeDuplicateName
//   - uuid уже есть в каталоге: update, имя в каталоге сохраняется
//   - иначе: create
//
// incoming не изменяется.
func ResolveIdentity(ctx context.Context, r IdentityReader, incoming *domain.OrchestratorInfo, req *domain.ImportRequest, now time.Time) (*domain.OrchestratorInfo, domain.IdentityOutcome, error) {
	info := *incoming
	info.ProjectID, _ = req.TargetProject()
	if req.IsFork() {
		info.UUID = uuid.NewString()
	}

	collision, err := r.OrchestratorUUIDByName(ctx, info.ProjectID, info.Name)
	if err != nil {
		return nil, "", fmt.Errorf("lookup by name: %w", err)
	}

	existing, err := r.OrchestratorByUUID(ctx, info.UUID)
	if errors.Is(err, repo.ErrNotFound) {
		existing = nil
	} else if err != nil {
		return nil, "", fmt.Errorf("lookup by uuid: %w", err)
	}

	if collision != "" && collision != info.UUID {
		return nil, "", domain.NewError(domain.CodeDuplicateName, domain.DuplicateNameMessage)
	}

	if existing != nil {
		updated := mergeForUpdate(existing, &info, req, now)
		return updated, domain.IdentityUpdate, nil
	}

	info.ID = 0
	info.Creator = req.UserName
	info.CreateTime = now
	info.Updater = ""
	info.UpdateTime = nil
	fillWorkspace(&info, req)
	info.ApplyDefaults()
	return &info, domain.IdentityCreate, nil
}

// mergeForUpdate накладывает изменяемые поля пакета на запись каталога.
func mergeForUpdate(existing, incoming *domain.OrchestratorInfo, req *domain.ImportRequest, now time.Time) *domain.OrchestratorInfo {
	out := *existing
	out.ProjectID = incoming.ProjectID
	overlay(&out.Description, incoming.Description)
	overlay(&out.Type, incoming.Type)
	overlay(&out.Mode, incoming.Mode)
	overlay(&out.Way, incoming.Way)

	out.Updater = req.UserName
	updated := now
	out.UpdateTime = &updated

	fillWorkspace(&out, req)
	out.ApplyDefaults()
	return &out
}

func overlay(dst *string, src string) {
	if strings.TrimSpace(src) != "" {
		*dst = src
	}
}

func fillWorkspace(info *domain.OrchestratorInfo, req *domain.ImportRequest) {
	if info.WorkspaceID == 0 {
		info.WorkspaceID = req.Workspace.ID
	}
}
