// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - import.requested       — запрос на асинхронный импорт
//   - orchestrator.imported  — оркестратор импортирован в dev-окружение
//
// Exchanges:
//   - orcpub.imports        — запросы импорта
//   - orcpub.orchestrators  — события каталога
//   - orcpub.dlq            — dead letter queue
package mq
