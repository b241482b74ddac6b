// Package publish импортирует пакеты оркестраторов в каталог.
//
// Importer.Import проводит импорт по линейной последовательности этапов
// (domain.ImportState). Все записи в каталог выполняются в одной
// транзакции repo.Tx: при любой ошибке ни запись об оркестраторе, ни
// новая версия не остаются в каталоге.
//
// Отдельно экспортируются чистые шаги, которые удобно тестировать:
//   - ResolveIdentity — create или update по uuid и имени
//   - NextVersion / IncreaseVersion — выделение номера версии
package publish
