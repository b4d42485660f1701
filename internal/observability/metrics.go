package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	workflowCounter       *prometheus.CounterVec
	conservationCounter   *prometheus.CounterVec
	notificationCounter   *prometheus.CounterVec
	idempotencyCounter    *prometheus.CounterVec
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		workflowCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_operations_total",
			Help: "Money workflow operations by outcome",
		}, []string{"operation", "outcome"})

		conservationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conservation_violations_total",
			Help: "Number of times a balance integrity check failed",
		}, []string{"check"})

		notificationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_emits_total",
			Help: "Notification sink outcomes",
		}, []string{"outcome"})

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
			workflowCounter,
			conservationCounter,
			notificationCounter,
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

func IncrementWorkflowOperation(operation, outcome string) {
	if workflowCounter == nil {
		return
	}
	workflowCounter.WithLabelValues(operation, outcome).Inc()
}

func IncrementConservationViolation(check string) {
	if conservationCounter == nil {
		return
	}
	conservationCounter.WithLabelValues(check).Inc()
}

func IncrementNotificationEmit(outcome string) {
	if notificationCounter == nil {
		return
	}
	notificationCounter.WithLabelValues(outcome).Inc()
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
