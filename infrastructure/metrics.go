// infrastructure/metrics.go
package infrastructure

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitovidale/video-notes-service/domain"
)

// Metrics owns its registry so each server instance (and test) starts clean.
type Metrics struct {
	registry *prometheus.Registry

	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	jobsStarted       *prometheus.CounterVec
	jobsFinished      *prometheus.CounterVec
	quotaRejections   *prometheus.CounterVec
	summarizeDuration *prometheus.HistogramVec
	webhookDeliveries *prometheus.CounterVec
}

var _ domain.PipelineObserver = (*Metrics)(nil)

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "video_notes_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "video_notes_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		jobsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "video_notes_jobs_started_total",
			Help: "Jobs moved to processing.",
		}, []string{"processing_type"}),
		jobsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "video_notes_jobs_finished_total",
			Help: "Jobs that reached a terminal status.",
		}, []string{"status", "processing_type"}),
		quotaRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "video_notes_quota_rejections_total",
			Help: "Start requests refused for exceeding the plan limit.",
		}, []string{"plan_tier"}),
		summarizeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "video_notes_summarization_duration_seconds",
			Help:    "Language model call latency.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"plan_tier", "outcome"}),
		webhookDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "video_notes_webhook_deliveries_total",
			Help: "Provider webhook deliveries by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) JobStarted(pt domain.ProcessingType) {
	m.jobsStarted.WithLabelValues(string(pt)).Inc()
}

func (m *Metrics) JobFinished(status domain.JobStatus, pt domain.ProcessingType) {
	m.jobsFinished.WithLabelValues(string(status), string(pt)).Inc()
}

func (m *Metrics) QuotaRejected(tier domain.PlanTier) {
	m.quotaRejections.WithLabelValues(string(tier)).Inc()
}

func (m *Metrics) SummarizationObserved(tier domain.PlanTier, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.summarizeDuration.WithLabelValues(string(tier), outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) WebhookDelivery(outcome string) {
	m.webhookDeliveries.WithLabelValues(outcome).Inc()
}
