package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Metrics(),
		Logging(h.logger),
	)

	// Orchestrators
	mux.Handle("POST /api/v1/orchestrators/import", chain(http.HandlerFunc(h.ImportOrchestrator)))
	mux.Handle("GET /api/v1/orchestrators/{id}", chain(http.HandlerFunc(h.GetOrchestrator)))

	// Orchestrator Versions
	mux.Handle("GET /api/v1/orchestrators/{id}/versions", chain(http.HandlerFunc(h.ListVersions)))
	mux.Handle("POST /api/v1/orchestrators/{id}/versions/{version}/activate", chain(http.HandlerFunc(h.ActivateVersion)))

	h.RegisterServiceRoutes(mux)
}

// RegisterServiceRoutes регистрирует /healthz и /metrics.
// Используется отдельно в orcpub-worker, где API нет.
func (h *Handler) RegisterServiceRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.Handle("GET /metrics", promhttp.Handler())
}
