package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeImports       Exchange = "orcpub.imports"
	ExchangeOrchestrators Exchange = "orcpub.orchestrators"
	ExchangeDLQ           Exchange = "orcpub.dlq"
)

// Queues — имена очередей.
const (
	QueueImportsRequested      Queue = "imports.requested"
	QueueOrchestratorsImported Queue = "orchestrators.imported"
	QueueDLQImports            Queue = "dlq.imports"
)

// Routing keys.
const (
	RoutingKeyRequested  RoutingKey = "requested"
	RoutingKeyImported   RoutingKey = "imported"
	RoutingKeyDLQImports RoutingKey = "imports"
)

// SetupTopology объявляет exchanges, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue
	args amqp.Table
}

type bindingDecl struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

func exchanges() []exchangeDecl {
	return []exchangeDecl{
		{ExchangeImports, "direct"},
		{ExchangeOrchestrators, "direct"},
		{ExchangeDLQ, "direct"},
	}
}

func queues() []queueDecl {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQImports),
	}

	return []queueDecl{
		// imports.requested — импорт, не прошедший обработку, уходит в DLQ
		{QueueImportsRequested, dlqArgs},

		// orchestrators.imported — события для синхронизации проектов
		{QueueOrchestratorsImported, nil},

		{QueueDLQImports, nil},
	}
}

func bindings() []bindingDecl {
	return []bindingDecl{
		{QueueImportsRequested, RoutingKeyRequested, ExchangeImports},
		{QueueOrchestratorsImported, RoutingKeyImported, ExchangeOrchestrators},
		{QueueDLQImports, RoutingKeyDLQImports, ExchangeDLQ},
	}
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	for _, ex := range exchanges() {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}
	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	for _, q := range queues() {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	for _, b := range bindings() {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  orcpub RabbitMQ Topology:

    orcpub.imports (direct)
    └── imports.requested [routing: requested]
            Consumer: orcpub-worker
            DLQ: dlq.imports

    orcpub.orchestrators (direct)
    └── orchestrators.imported [routing: imported]
            Consumer: project sync

    orcpub.dlq (direct)
    └── dlq.imports [routing: imports]
            Manual processing
  `
}
