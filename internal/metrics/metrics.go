// Package metrics provides Prometheus instrumentation for the risk engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AssetRegistrations counts successful asset registrations by instrument type.
	AssetRegistrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskengine_asset_registrations_total",
		Help: "Total successful asset registrations",
	}, []string{"asset_type"})

	// RiskEventsRecorded counts appended risk events by flag combination.
	RiskEventsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskengine_risk_events_total",
		Help: "Total risk events recorded",
	}, []string{"late_payment", "credit_downgrade"})

	// FeeQuotes observes the fee charged on swap pre-checks, in basis points.
	FeeQuotes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riskengine_fee_quote_bps",
		Help:    "Dynamic fee quotes in basis points",
		Buckets: []float64{10, 25, 50, 75, 100, 150, 200, 250, 300},
	})

	// LiquidationSteps counts executed soft-liquidation steps.
	LiquidationSteps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskengine_liquidation_steps_total",
		Help: "Soft liquidation steps executed",
	})

	// WithdrawalRejections counts liquidity removals blocked by the withdrawal gate.
	WithdrawalRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskengine_withdrawal_rejections_total",
		Help: "Withdrawals rejected while under the liquidation threshold",
	})

	// LifecycleRejections counts rejected lifecycle invocations by reason.
	LifecycleRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskengine_lifecycle_rejections_total",
		Help: "Lifecycle invocations rejected before mutation",
	}, []string{"reason"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskengine_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "riskengine_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the API surface is small and fixed.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
