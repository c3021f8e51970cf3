package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prediction outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeTimeout  = "timeout"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases, SLO breaches.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Prediction calls by outcome. Watch for: failed > 0 (artifact/runtime incompatibility).
	PredictionsTotal *prometheus.CounterVec

	// Time spent in scale + predict only. Watch for: growth after an artifact change.
	PredictionDuration *prometheus.HistogramVec

	// Rejected fields by constraint. Watch for: clients sending out-of-range inputs.
	ValidationFailuresTotal *prometheus.CounterVec

	// Constant 1, labelled with the loaded artifact kinds.
	ModelInfo *prometheus.GaugeVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictionsTotal",
			Help: "Total number of prediction calls by outcome",
		},
		[]string{"schema", "outcome"},
	)
	PredictionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "predictionDurationSeconds",
			Help:    "Scaler transform plus model predict latency in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		},
		[]string{"schema"},
	)
	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validationFailuresTotal",
			Help: "Total number of rejected request fields by constraint",
		},
		[]string{"field", "constraint"},
	)
	ModelInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "modelInfo",
			Help: "Loaded schema and artifact kinds (value is always 1)",
		},
		[]string{"schema", "scaler", "model"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		PredictionsTotal, PredictionDuration, ValidationFailuresTotal,
		ModelInfo,
	)
}

// SetModelInfo publishes the loaded artifact kinds. Call once after artifacts load.
func SetModelInfo(schema, scalerKind, modelKind string) {
	ModelInfo.Reset()
	ModelInfo.WithLabelValues(schema, scalerKind, modelKind).Set(1)
}

// RecordPrediction counts one prediction call for schema with the given outcome.
func RecordPrediction(schema, outcome string) {
	PredictionsTotal.WithLabelValues(schema, outcome).Inc()
}

// RecordValidationFailure counts one rejected field.
func RecordValidationFailure(field, constraint string) {
	ValidationFailuresTotal.WithLabelValues(field, constraint).Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
