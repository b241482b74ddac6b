package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики импорта.
var (
	// ImportsTotal — количество импортов по исходу (ok или код ошибки).
	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orcpub_imports_total",
		Help: "Total orchestrator imports by outcome",
	}, []string{"outcome", "env"})

	// ImportDuration — длительность импорта целиком.
	ImportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orcpub_import_duration_seconds",
		Help:    "Duration of orchestrator imports",
		Buckets: prometheus.DefBuckets,
	}, []string{"env"})

	// DispatchDuration — длительность вызова downstream-провайдера.
	DispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orcpub_dispatch_duration_seconds",
		Help:    "Duration of downstream development operation calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"standard", "outcome"})

	// VersionFallbacks — сколько раз предыдущая версия не разобралась
	// и была выдана начальная.
	VersionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orcpub_version_fallbacks_total",
		Help: "Imports where the prior version could not be incremented",
	})

	// HTTPRequestsTotal — HTTP запросы к API.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orcpub_api_http_requests_total",
		Help: "Total HTTP requests handled by orcpub-api",
	}, []string{"method", "status"})
)

// ObserveImport фиксирует исход и длительность импорта.
func ObserveImport(outcome, env string, started time.Time) {
	ImportsTotal.WithLabelValues(outcome, env).Inc()
	ImportDuration.WithLabelValues(env).Observe(time.Since(started).Seconds())
}

// ObserveDispatch фиксирует длительность вызова провайдера.
func ObserveDispatch(standard string, err error, started time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	DispatchDuration.WithLabelValues(standard, outcome).Observe(time.Since(started).Seconds())
}
