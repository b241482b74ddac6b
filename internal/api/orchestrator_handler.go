package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/shaiso/orcpub/internal/domain"
)

const maxImportBodyBytes = 1 << 20

// ImportOrchestrator импортирует пакет оркестратора.
// POST /api/v1/orchestrators/import[?async=true]
func (h *Handler) ImportOrchestrator(w http.ResponseWriter, r *http.Request) {
	var req domain.ImportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBodyBytes)).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	async, err := parseBoolQuery(r, "async")
	if err != nil {
		BadRequest(w, "invalid async flag")
		return
	}

	if !async {
		id, err := h.importer.Import(r.Context(), &req)
		if err != nil {
			HandleImportError(w, err)
			return
		}
		Success(w, ImportResponse{OrchestratorID: id})
		return
	}

	if h.queue == nil {
		Unavailable(w, "async import is not configured")
		return
	}
	// Проверяем запрос до постановки в очередь, чтобы не копить заведомо
	// невалидные сообщения в DLQ.
	if err := req.Validate(); err != nil {
		HandleImportError(w, err)
		return
	}

	requestID, err := h.queue.PublishImportRequested(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to enqueue import", "user", req.UserName, "project", req.ProjectName, "error", err)
		Unavailable(w, "failed to enqueue import")
		return
	}

	h.logger.Info("import enqueued", "request_id", requestID, "user", req.UserName, "project", req.ProjectName)
	Accepted(w, ImportAcceptedResponse{RequestID: requestID})
}

// GetOrchestrator возвращает оркестратор по ID.
// GET /api/v1/orchestrators/{id}
func (h *Handler) GetOrchestrator(w http.ResponseWriter, r *http.Request) {
	id, ok := orchestratorID(w, r)
	if !ok {
		return
	}

	info, err := h.catalog.GetOrchestrator(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "orchestrator not found") {
		return
	}

	Success(w, OrchestratorFromDomain(*info))
}

// ListVersions возвращает версии оркестратора в порядке создания.
// GET /api/v1/orchestrators/{id}/versions
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := orchestratorID(w, r)
	if !ok {
		return
	}

	if _, err := h.catalog.GetOrchestrator(r.Context(), id); HandleRepoError(w, h.logger, err, "orchestrator not found") {
		return
	}

	versions, err := h.catalog.ListVersions(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]VersionResponse, len(versions))
	for i, v := range versions {
		result[i] = VersionFromDomain(v)
	}

	List(w, result, len(result))
}

// ActivateVersion делает версию единственной активной.
// POST /api/v1/orchestrators/{id}/versions/{version}/activate
func (h *Handler) ActivateVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := orchestratorID(w, r)
	if !ok {
		return
	}

	version := strings.TrimSpace(r.PathValue("version"))
	if version == "" {
		BadRequest(w, "version is required")
		return
	}

	err := h.catalog.ActivateVersion(r.Context(), id, version)
	if HandleRepoError(w, h.logger, err, "version not found") {
		return
	}

	h.logger.Info("version activated", "orchestrator_id", id, "version", version)
	Success(w, ActivateResponse{OrchestratorID: id, Version: version})
}

func orchestratorID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(w, "invalid orchestrator id")
		return 0, false
	}
	return id, true
}

func parseBoolQuery(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
