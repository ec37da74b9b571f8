package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpDurationHistogram   *prometheus.HistogramVec
	escrowTransitionCounter *prometheus.CounterVec
	settlementFailCounter   *prometheus.CounterVec
	custodyImbalanceCounter *prometheus.CounterVec
	idempotencyCounter      *prometheus.CounterVec
	workerRunCounter        *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		escrowTransitionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_transitions_total",
			Help: "Settlement state transitions by resulting status",
		}, []string{"status"})

		settlementFailCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_failures_total",
			Help: "Rejected or failed settlement invocations",
		}, []string{"reason"})

		custodyImbalanceCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_imbalance_total",
			Help: "Number of times escrow custody diverged from open settlements",
		}, []string{"currency"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			escrowTransitionCounter,
			settlementFailCounter,
			custodyImbalanceCounter,
			idempotencyCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementEscrowTransition(status string) {
	if escrowTransitionCounter == nil {
		return
	}
	escrowTransitionCounter.WithLabelValues(status).Inc()
}

func IncrementSettlementFailure(reason string) {
	if settlementFailCounter == nil {
		return
	}
	settlementFailCounter.WithLabelValues(reason).Inc()
}

func IncrementCustodyImbalance(currency string) {
	if custodyImbalanceCounter == nil {
		return
	}
	custodyImbalanceCounter.WithLabelValues(currency).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
