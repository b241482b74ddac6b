// Package archive скачивает и распаковывает пакеты оркестраторов.
//
// Пакет — zip-архив со следующим содержимым:
//
//	orc_meta.yaml   описание оркестратора (или .yml / .json)
//	orc_flow.zip    вложенный архив с потоком, перезаливается в blob store
//
// Fetcher выделяет для каждого импорта свою scratch-директорию
// <scratch>/<user>/<project>/<importID>/ и удаляет её в Package.Close.
package archive
