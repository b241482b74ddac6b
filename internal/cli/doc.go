// Package cli реализует инструмент командной строки orcpub.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с orcpub API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для orcpub API. Инкапсулирует HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок. Ошибки сервера возвращаются как *APIError
// с кодом и, для дубликата имени, числовым legacy-кодом.
//
//	client := cli.NewClient("http://localhost:8080")
//	versions, err := client.ListVersions(42)
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: orcpub versions 42 --json | jq .
//
// ## Commands
//
//   - import    — импорт пакета (sync или --async)
//   - show      — оркестратор по id
//   - versions  — версии оркестратора
//   - activate  — сделать версию единственной активной
//
// Каждая команда создаётся фабричной функцией (NewImportCmd и т.д.),
// принимающей clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
