package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "finetica_http_requests_total",
	Help: "Total number of requests labelled by route, method and status",
}, []string{"route", "method", "status"})

var uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "finetica_uploads_total",
	Help: "Uploaded files by bucket and outcome",
}, []string{"bucket", "status"})

var ingestionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "finetica_ingestion_total",
	Help: "Ingestion jobs by family and outcome (valid, invalid, pending, failed)",
}, []string{"family", "outcome"})

var approvalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "finetica_approvals_total",
	Help: "Approval attempts by family and outcome",
}, []string{"family", "outcome"})

var ingestionQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "finetica_ingestion_queue_depth",
	Help: "Number of ingestion jobs waiting for a worker",
})

var activeWorkers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "finetica_ingestion_active_workers",
	Help: "Number of ingestion workers currently processing a job",
})

var ingestionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "finetica_ingestion_duration_seconds",
	Help:    "Time spent processing one uploaded file.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60},
}, []string{"outcome"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "finetica_dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
}, []string{"service"})

func CaptureUpload(bucket, status string) {
	uploadsTotal.WithLabelValues(bucket, status).Inc()
}

func CaptureIngestion(family, outcome string, elapsed time.Duration) {
	ingestionTotal.WithLabelValues(family, outcome).Inc()
	ingestionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func CaptureApproval(family, outcome string) {
	approvalsTotal.WithLabelValues(family, outcome).Inc()
}

func CaptureDependency(service string, elapsed time.Duration) {
	dependencyLatency.WithLabelValues(service).Observe(elapsed.Seconds())
}

func IncrementQueueDepth() {
	ingestionQueueDepth.Inc()
}

func DecrementQueueDepth() {
	ingestionQueueDepth.Dec()
}

func IncrementActiveWorkers() {
	activeWorkers.Inc()
}

func DecrementActiveWorkers() {
	activeWorkers.Dec()
}

// Middleware counts requests by matched route so path parameters do not explode cardinality.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		httpRequestsTotal.WithLabelValues(route, c.Method(), strconv.Itoa(status)).Inc()
		return err
	}
}
