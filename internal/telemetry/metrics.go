package telemetry

import (
	"strconv"
	"time"

	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const resultSuccess = "success"

// PrometheusObserver records call metrics. Labels use the request path as
// given by the caller, so paths should not embed unbounded identifiers when
// cardinality matters.
type PrometheusObserver struct {
	requests  *prometheus.CounterVec
	retries   *prometheus.CounterVec
	inflight  prometheus.Gauge
	durations *prometheus.HistogramVec
}

// NewPrometheusObserver registers the client metrics on registerer.
func NewPrometheusObserver(registerer prometheus.Registerer, namespace string) *PrometheusObserver {
	factory := promauto.With(registerer)

	return &PrometheusObserver{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_requests_total",
			Help:      "Total number of logical client calls by result",
		}, []string{"method", "result", "status"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_retries_total",
			Help:      "Total number of retried attempts",
		}, []string{"method"}),
		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "client_requests_in_flight",
			Help:      "Number of logical client calls in flight",
		}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "client_request_duration_seconds",
			Help:      "Duration of logical client calls including retries",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "result"}),
	}
}

// OnRequestStart implements ledger.Observer.
func (o *PrometheusObserver) OnRequestStart(_, _ string) {
	o.inflight.Inc()
}

// OnRetryAttempt implements ledger.Observer.
func (o *PrometheusObserver) OnRetryAttempt(method, _ string, _ int, _ error) {
	o.retries.WithLabelValues(method).Inc()
}

// OnRequestEnd implements ledger.Observer.
func (o *PrometheusObserver) OnRequestEnd(method, _ string, duration time.Duration, failure *ledger.Failure) {
	o.inflight.Dec()

	result, status := resultSuccess, ""
	if failure != nil {
		result = string(failure.Kind)

		if failure.Status != 0 {
			status = strconv.Itoa(failure.Status)
		}
	}

	o.requests.WithLabelValues(method, result, status).Inc()
	o.durations.WithLabelValues(method, result).Observe(duration.Seconds())
}

var _ ledger.Observer = (*PrometheusObserver)(nil)
