package domain

import "time"

// Значения по умолчанию для пакетов старого формата, где mode/way не заданы.
const (
	DefaultOrchestratorMode = "pom_work_flow"
	DefaultOrchestratorWay  = ",pom_work_flow_DAG,"
	DefaultOrchestratorType = "workflow"
)

// OrchestratorInfo — запись каталога об оркестраторе.
//
// Один оркестратор имеет множество версий (OrchestratorVersion).
// UUID — сквозная идентичность между окружениями: переживает
// повторный импорт и меняется только при копировании в новый проект (fork).
type OrchestratorInfo struct {
	// ID — суррогатный ключ в каталоге. 0 — запись ещё не сохранена.
	ID int64 `json:"id"`

	// UUID — глобально стабильный идентификатор оркестратора.
	UUID string `json:"uuid"`

	// Name — имя, уникальное в рамках проекта (среди не удалённых записей).
	Name string `json:"name"`

	// Description — описание оркестратора.
	Description string `json:"description,omitempty"`

	// ProjectID — проект, которому принадлежит оркестратор.
	ProjectID int64 `json:"project_id"`

	// WorkspaceID — рабочее пространство. 0 — не задано (пакеты 0.x).
	WorkspaceID int64 `json:"workspace_id"`

	// Type — тег стандарта интеграции (по нему выбирается downstream-провайдер).
	Type string `json:"type"`

	// Mode и Way — теги стратегии композиции.
	Mode string `json:"mode"`
	Way  string `json:"way"`

	Creator    string    `json:"creator"`
	CreateTime time.Time `json:"create_time"`

	Updater    string     `json:"updater,omitempty"`
	UpdateTime *time.Time `json:"update_time,omitempty"`
}

// IsPersisted возвращает true, если запись уже есть в каталоге.
func (o *OrchestratorInfo) IsPersisted() bool {
	return o.ID != 0
}

// ApplyDefaults заполняет пустые mode/way/type значениями по умолчанию.
func (o *OrchestratorInfo) ApplyDefaults() {
	if o.Mode == "" {
		o.Mode = DefaultOrchestratorMode
	}
	if o.Way == "" {
		o.Way = DefaultOrchestratorWay
	}
	if o.Type == "" {
		o.Type = DefaultOrchestratorType
	}
}

// OrchestratorVersion — опубликованная версия оркестратора.
//
// Создаётся один раз на импорт с пустым Content и обновляется ровно
// один раз после ответа downstream-системы. Никогда не удаляется.
type OrchestratorVersion struct {
	ID             int64 `json:"id"`
	OrchestratorID int64 `json:"orchestrator_id"`

	// Version — строка вида "v" + число, строго возрастает в рамках оркестратора.
	Version string `json:"version"`

	// AppID — идентификатор приложения в downstream-системе.
	// nil до завершения dispatch.
	AppID *int64 `json:"app_id,omitempty"`

	// Content — сериализованное содержимое задания (после dispatch).
	Content string `json:"content"`

	// ContextID — корреляционный идентификатор из context-сервиса.
	ContextID string `json:"context_id"`

	// ValidFlag — активна ли версия.
	ValidFlag bool `json:"valid_flag"`

	ProjectID  int64     `json:"project_id"`
	Updater    string    `json:"updater"`
	UpdateTime time.Time `json:"update_time"`
	Comment    string    `json:"comment,omitempty"`
	Source     string    `json:"source,omitempty"`
}

// Значения comment/source для версий, созданных импортом.
const (
	VersionCommentImport = "orchestrator import"
	VersionSourceImport  = "Orchestrator create"
)
