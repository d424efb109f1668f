package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PredictionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attrition_prediction_duration_seconds",
			Help:    "Prediction request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"cached"},
	)

	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attrition_predictions_total",
			Help: "Total predictions served by risk level",
		},
		[]string{"risk"},
	)

	PredictionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attrition_prediction_errors_total",
			Help: "Rejected or failed prediction requests",
		},
		[]string{"reason"},
	)

	PredictionProbability = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attrition_prediction_probability",
			Help:    "Predicted probability of leaving",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attrition_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attrition_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	DashboardRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attrition_dashboard_requests_total",
			Help: "Dashboard recomputations by endpoint",
		},
		[]string{"endpoint"},
	)

	FilteredRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attrition_filtered_rows",
			Help:    "Rows remaining after sidebar filters",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	EmptyResults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attrition_empty_results_total",
			Help: "Filter requests that matched no rows",
		},
	)

	DatasetRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "attrition_dataset_rows",
			Help: "Rows in the loaded dataset",
		},
	)

	HighRiskEmployees = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "attrition_high_risk_employees",
			Help: "Employees on the high-risk list",
		},
	)

	RemoteModelRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attrition_remote_model_requests_total",
			Help: "Calls to the remote model server",
		},
		[]string{"path", "status"},
	)

	CircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "attrition_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attrition_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"path"},
	)

	WebSocketSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "attrition_websocket_sessions",
			Help: "Open dashboard websocket sessions",
		},
	)
)

var initOnce sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			PredictionDuration,
			PredictionsTotal,
			PredictionErrors,
			PredictionProbability,
			CacheHits,
			CacheMisses,
			DashboardRequests,
			FilteredRows,
			EmptyResults,
			DatasetRows,
			HighRiskEmployees,
			RemoteModelRequests,
			CircuitState,
			RateLimited,
			WebSocketSessions,
		)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
