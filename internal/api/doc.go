// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go              — Handler с DI (каталог, importer, очередь, logger)
//   - routes.go               — регистрация маршрутов
//   - middleware.go           — middleware (logging, recovery, metrics)
//   - response.go             — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                  — Data Transfer Objects (request/response)
//   - orchestrator_handler.go — обработчики для /orchestrators
//   - health_handler.go       — /healthz
//
// API принимает запросы на импорт пакетов оркестраторов и отдаёт
// записи каталога.
package api
