// Package worker выполняет асинхронные импорты из очереди imports.requested.
//
// Поток обработки:
//
//	API ──import.requested──▶ imports.requested ──▶ Worker ──▶ publish.Importer
//
// Обработка ошибок:
//   - INVALID_REQUEST, MALFORMED_PACKAGE, DUPLICATE_NAME, VERSION_FORMAT —
//     сообщение сразу уходит в DLQ
//   - остальные ошибки — одна повторная доставка, затем DLQ
//
// Повтор безопасен: неудачный импорт полностью откатывается.
package worker
