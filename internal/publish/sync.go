package publish

import (
	"context"

	"github.com/shaiso/orcpub/internal/domain"
)

// ProjectSyncer уведомляет проектный сервис о новом импорте в dev-окружении.
type ProjectSyncer interface {
	PublishImported(ctx context.Context, event domain.ImportedEvent) error
}
