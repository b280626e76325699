package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Manager holds the catalog's custom Prometheus metrics.
type Manager struct {
	Registry                *prometheus.Registry
	CarsCreatedTotal        prometheus.Counter
	CarsUpdatedTotal        prometheus.Counter
	CarsDeletedTotal        prometheus.Counter
	AdjustmentsAppliedTotal *prometheus.CounterVec
	// AdjustmentFailuresTotal counts dropped counter deltas. A non-zero value
	// means the denormalized counts have drifted and reconciliation is due.
	AdjustmentFailuresTotal *prometheus.CounterVec
	SearchLatency           prometheus.Histogram
}

func NewManager(serviceName string) *Manager {
	registry := prometheus.NewRegistry()

	carsCreatedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "cars_created_total",
		Help:      "Total number of car listings created.",
	})
	carsUpdatedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "cars_updated_total",
		Help:      "Total number of car listings updated.",
	})
	carsDeletedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "cars_deleted_total",
		Help:      "Total number of car listings deleted.",
	})
	adjustmentsAppliedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "aggregate_adjustments_applied_total",
		Help:      "Parent counter deltas applied, by parent kind.",
	}, []string{"kind"})
	adjustmentFailuresTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "aggregate_adjustment_failures_total",
		Help:      "Parent counter deltas dropped after a store failure, by parent kind.",
	}, []string{"kind"})
	searchLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: serviceName,
		Name:      "search_latency_seconds",
		Help:      "Latency of catalog search queries.",
		Buckets:   prometheus.DefBuckets,
	})

	registry.MustRegister(
		carsCreatedTotal,
		carsUpdatedTotal,
		carsDeletedTotal,
		adjustmentsAppliedTotal,
		adjustmentFailuresTotal,
		searchLatency,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &Manager{
		Registry:                registry,
		CarsCreatedTotal:        carsCreatedTotal,
		CarsUpdatedTotal:        carsUpdatedTotal,
		CarsDeletedTotal:        carsDeletedTotal,
		AdjustmentsAppliedTotal: adjustmentsAppliedTotal,
		AdjustmentFailuresTotal: adjustmentFailuresTotal,
		SearchLatency:           searchLatency,
	}
}

// StartServer exposes the registry on /metrics. Blocks; run in a goroutine.
func StartServer(port string, logger *zap.Logger, registry *prometheus.Registry) error {
	if port == "" {
		logger.Info("Metrics server port not configured, server will not start")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	logger.Info("Metrics server starting", zap.String("port", port), zap.String("path", "/metrics"))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}
	return server.ListenAndServe()
}
