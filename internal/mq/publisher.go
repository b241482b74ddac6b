package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/orcpub/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeImportRequested      MessageType = "import.requested"
	MessageTypeOrchestratorImported MessageType = "orchestrator.imported"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// ImportRequestedPayload — payload запроса на асинхронный импорт.
// RequestID совпадает с ID сообщения и возвращается клиенту.
type ImportRequestedPayload struct {
	RequestID string               `json:"request_id"`
	Request   domain.ImportRequest `json:"request"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishImportRequested ставит импорт в очередь и возвращает id запроса.
// Потребитель: orcpub-worker.
func (p *Publisher) PublishImportRequested(ctx context.Context, req *domain.ImportRequest) (string, error) {
	msg := newImportRequestedMessage(req, time.Now())
	if err := p.Publish(ctx, ExchangeImports, RoutingKeyRequested, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// PublishImported публикует событие об импорте в dev-окружение.
// Потребитель: синхронизация проектов.
func (p *Publisher) PublishImported(ctx context.Context, event domain.ImportedEvent) error {
	return p.Publish(ctx, ExchangeOrchestrators, RoutingKeyImported, newImportedMessage(event, time.Now()))
}

// PublishJSON публикует произвольный JSON payload.
func (p *Publisher) PublishJSON(ctx context.Context, exchange Exchange, routingKey RoutingKey, msgType MessageType, payload any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, exchange, routingKey, msg)
}

func newImportRequestedMessage(req *domain.ImportRequest, now time.Time) *Message {
	id := uuid.New().String()
	return &Message{
		ID:        id,
		Type:      MessageTypeImportRequested,
		Payload:   ImportRequestedPayload{RequestID: id, Request: *req},
		Timestamp: now,
	}
}

func newImportedMessage(event domain.ImportedEvent, now time.Time) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeOrchestratorImported,
		Payload:   event,
		Timestamp: now,
	}
}
