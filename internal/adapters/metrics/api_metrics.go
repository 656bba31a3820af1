package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// APIMetricsCollector tracks gateway traffic to the remote game API: request
// outcomes, retry and rate-limiter behavior, circuit breaker state, and time
// spent holding calls for ships in transit.
type APIMetricsCollector struct {
	apiRequestsTotal    *prometheus.CounterVec
	apiRequestDuration  *prometheus.HistogramVec
	apiRetries          *prometheus.CounterVec
	apiRateLimitWait    *prometheus.HistogramVec
	circuitBreakerState *prometheus.GaugeVec
	transitHolds        *prometheus.CounterVec
}

func NewAPIMetricsCollector() *APIMetricsCollector {
	return &APIMetricsCollector{
		apiRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by method, endpoint, and status code",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		apiRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration distribution",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			[]string{"method", "endpoint"},
		),

		apiRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "api_retries_total",
				Help:      "Total number of API retry attempts",
			},
			[]string{"method", "endpoint", "reason"},
		),

		apiRateLimitWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "api_rate_limit_wait_seconds",
				Help:      "Time spent waiting for the rate limiter",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"method", "endpoint"},
		),

		// 0 closed, 1 open, 2 half-open
		circuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "api_circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{},
		),

		transitHolds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "api_transit_holds_total",
				Help:      "Commands held because the ship was in transit",
			},
			[]string{"endpoint"},
		),
	}
}

// Register registers all API metrics with the Prometheus registry.
func (c *APIMetricsCollector) Register() error {
	if Registry == nil {
		return nil // Metrics not enabled
	}

	collectors := []prometheus.Collector{
		c.apiRequestsTotal,
		c.apiRequestDuration,
		c.apiRetries,
		c.apiRateLimitWait,
		c.circuitBreakerState,
		c.transitHolds,
	}

	for _, collector := range collectors {
		if err := Registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// RecordAPIRequest records a completed API request.
func (c *APIMetricsCollector) RecordAPIRequest(method, endpoint string, statusCode int, duration float64) {
	statusCodeStr := strconv.Itoa(statusCode)

	c.apiRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	c.apiRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordAPIRetry records one retry attempt.
func (c *APIMetricsCollector) RecordAPIRetry(method, endpoint, reason string) {
	c.apiRetries.WithLabelValues(method, endpoint, reason).Inc()
}

// RecordRateLimitWait records time spent blocked on the rate limiter.
func (c *APIMetricsCollector) RecordRateLimitWait(method, endpoint string, duration float64) {
	c.apiRateLimitWait.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordCircuitBreakerState records a breaker state change.
func (c *APIMetricsCollector) RecordCircuitBreakerState(state int) {
	c.circuitBreakerState.WithLabelValues().Set(float64(state))
}

// RecordTransitHold records a command held for an in-transit ship.
func (c *APIMetricsCollector) RecordTransitHold(endpoint string) {
	c.transitHolds.WithLabelValues(endpoint).Inc()
}
