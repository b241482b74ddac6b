package worker

import (
	"context"
	"fmt"

	"github.com/shaiso/orcpub/internal/domain"
	"github.com/shaiso/orcpub/internal/mq"
)

// handleImportRequested обрабатывает сообщение из очереди imports.requested.
func (w *Worker) handleImportRequested(ctx context.Context, delivery *mq.Delivery) error {
	if delivery.Message.Type != mq.MessageTypeImportRequested {
		return mq.Permanent(fmt.Errorf("%w: %s", ErrUnexpectedMessage, delivery.Message.Type))
	}

	payload, err := mq.ParsePayload[mq.ImportRequestedPayload](&delivery.Message)
	if err != nil {
		return mq.Permanent(err)
	}

	logger := w.logger.With("request_id", payload.RequestID)
	logger.Debug("received import.requested event",
		"user", payload.Request.UserName,
		"project", payload.Request.ProjectName,
	)

	id, err := w.importer.Import(ctx, &payload.Request)
	if err != nil {
		if !Retryable(err) {
			return mq.Permanent(err)
		}
		return err
	}

	logger.Info("async import finished", "orchestrator_id", id)
	return nil
}

// Retryable сообщает, имеет ли смысл повторить импорт.
// Ошибки запроса и содержимого пакета не исчезнут при повторе.
func Retryable(err error) bool {
	switch domain.AsError(err).Code {
	case domain.CodeInvalidRequest,
		domain.CodeMalformedPackage,
		domain.CodeDuplicateName,
		domain.CodeVersionFormat:
		return false
	}
	return true
}
