package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder handles metrics recording and exposure
type Recorder struct {
	registry *prometheus.Registry

	// API metrics
	apiRequestCounter   *prometheus.CounterVec
	apiLatencyHistogram *prometheus.HistogramVec

	// Valuation metrics
	valuationCounter     *prometheus.CounterVec
	valuationLatency     *prometheus.HistogramVec
	scheduleErrorCounter *prometheus.CounterVec
	swapPVGauge          *prometheus.GaugeVec
	riskGauge            *prometheus.GaugeVec

	// Transport metrics
	kafkaMessageCounter *prometheus.CounterVec
	breakerStateGauge   *prometheus.GaugeVec
	websocketClients    prometheus.Gauge

	// System metrics
	memoryUsageGauge    prometheus.Gauge
	goroutineCountGauge prometheus.Gauge
}

// NewRecorder creates a recorder backed by its own registry, so several
// recorders can live in one process (tests, embedded servers)
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		// API metrics
		apiRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swaprisk_api_requests_total",
				Help: "The total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		apiLatencyHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swaprisk_api_latency_seconds",
				Help:    "API request latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15), // From 0.5ms to ~8s
			},
			[]string{"method", "path"},
		),

		// Valuation metrics
		valuationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swaprisk_valuations_total",
				Help: "The total number of swap valuations by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		valuationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swaprisk_valuation_latency_seconds",
				Help:    "Swap valuation latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16), // From 10µs to ~0.3s
			},
			[]string{"mode"},
		),
		scheduleErrorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swaprisk_schedule_errors_total",
				Help: "Valuations rejected because of mismatched schedules",
			},
			[]string{"leg"},
		),
		swapPVGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "swaprisk_swap_pv",
				Help: "Latest present value per swap",
			},
			[]string{"swap_id"},
		),
		riskGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "swaprisk_swap_risk",
				Help: "Latest one basis point risk per swap and measure",
			},
			[]string{"swap_id", "measure"},
		),

		// Transport metrics
		kafkaMessageCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swaprisk_kafka_messages_total",
				Help: "Kafka messages handled by topic and outcome",
			},
			[]string{"topic", "outcome"},
		),
		breakerStateGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "swaprisk_circuit_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
		websocketClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "swaprisk_websocket_clients",
				Help: "Connected websocket clients",
			},
		),

		// System metrics
		memoryUsageGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "swaprisk_memory_usage_bytes",
				Help: "Memory usage of the application in bytes",
			},
		),
		goroutineCountGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "swaprisk_goroutine_count",
				Help: "Number of goroutines",
			},
		),
	}
}

// Registry exposes the underlying registry for tests and custom collectors
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's metrics in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordAPIRequest records metrics for an API request
func (r *Recorder) RecordAPIRequest(method, path string, status int, latency time.Duration) {
	r.apiRequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.apiLatencyHistogram.WithLabelValues(method, path).Observe(latency.Seconds())
}

// RecordValuation records one engine call; outcome is "ok" or an error type
func (r *Recorder) RecordValuation(mode, outcome string, latency time.Duration) {
	r.valuationCounter.WithLabelValues(mode, outcome).Inc()
	r.valuationLatency.WithLabelValues(mode).Observe(latency.Seconds())
}

// RecordScheduleError counts a rejected schedule for a leg
func (r *Recorder) RecordScheduleError(leg string) {
	r.scheduleErrorCounter.WithLabelValues(leg).Inc()
}

// RecordRisk stores the latest PV and risk measures for a swap
func (r *Recorder) RecordRisk(swapID string, pv, pv01, discountRisk, dv01 float64) {
	r.swapPVGauge.WithLabelValues(swapID).Set(pv)
	r.riskGauge.WithLabelValues(swapID, "pv01").Set(pv01)
	r.riskGauge.WithLabelValues(swapID, "discount").Set(discountRisk)
	r.riskGauge.WithLabelValues(swapID, "dv01").Set(dv01)
}

// RecordKafkaMessage counts a consumed or produced message
func (r *Recorder) RecordKafkaMessage(topic, outcome string) {
	r.kafkaMessageCounter.WithLabelValues(topic, outcome).Inc()
}

// RecordBreakerState records the numeric state of a named circuit breaker
func (r *Recorder) RecordBreakerState(name string, state int) {
	r.breakerStateGauge.WithLabelValues(name).Set(float64(state))
}

// RecordWebsocketClients records the number of connected websocket clients
func (r *Recorder) RecordWebsocketClients(n int) {
	r.websocketClients.Set(float64(n))
}

// RecordMemoryUsage records the current memory usage
func (r *Recorder) RecordMemoryUsage(bytesUsed uint64) {
	r.memoryUsageGauge.Set(float64(bytesUsed))
}

// RecordGoroutineCount records the current number of goroutines
func (r *Recorder) RecordGoroutineCount(count int) {
	r.goroutineCountGauge.Set(float64(count))
}
