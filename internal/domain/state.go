package domain

// ImportState — этап импорта.
//
// Жизненный цикл (линейный, без повторов внутри одного вызова):
//
//	FETCHED → PARSED → IDENTITY_RESOLVED → CATALOG_UPSERTED →
//	SUB_ARTIFACT_REUPLOADED → VERSION_ALLOCATED → CONTEXT_REGISTERED →
//	VERSION_ROW_CREATED → DISPATCHED → VERSION_ROW_FINALIZED
//
// Всё начиная с CATALOG_UPSERTED выполняется в одной транзакции.
type ImportState string

const (
	ImportStateFetched             ImportState = "FETCHED"
	ImportStateParsed              ImportState = "PARSED"
	ImportStateIdentityResolved    ImportState = "IDENTITY_RESOLVED"
	ImportStateCatalogUpserted     ImportState = "CATALOG_UPSERTED"
	ImportStateSubArtifactUploaded ImportState = "SUB_ARTIFACT_REUPLOADED"
	ImportStateVersionAllocated    ImportState = "VERSION_ALLOCATED"
	ImportStateContextRegistered   ImportState = "CONTEXT_REGISTERED"
	ImportStateVersionRowCreated   ImportState = "VERSION_ROW_CREATED"
	ImportStateDispatched          ImportState = "DISPATCHED"
	ImportStateVersionRowFinalized ImportState = "VERSION_ROW_FINALIZED"
)

// IsTransactional возвращает true для этапов внутри транзакции каталога.
func (s ImportState) IsTransactional() bool {
	switch s {
	case ImportStateFetched, ImportStateParsed, ImportStateIdentityResolved:
		return false
	default:
		return true
	}
}

// IdentityOutcome — решение Identity Resolver.
type IdentityOutcome string

const (
	// IdentityCreate — новая запись каталога.
	IdentityCreate IdentityOutcome = "create"

	// IdentityUpdate — повторный импорт того же оркестратора (совпал uuid).
	IdentityUpdate IdentityOutcome = "update"
)
