package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "litqa"

// Metrics holds the service collectors, registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	StageCounter     *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	HistoryAppendErr prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 15, 30, 60},
			},
			[]string{"method", "endpoint"},
		),
		StageCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_stage_total",
				Help:      "Generation stage runs by outcome (ok, failed, skipped)",
			},
			[]string{"stage", "outcome"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_stage_duration_seconds",
				Help:      "Latency of generation stage calls",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
			},
			[]string{"stage"},
		),
		HistoryAppendErr: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_append_errors_total",
			Help:      "QA history writes that failed and were dropped",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCounter,
		m.RequestDuration,
		m.StageCounter,
		m.StageDuration,
		m.HistoryAppendErr,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records one stage run. duration is ignored for skipped stages.
func (m *Metrics) ObserveStage(stage, outcome string, duration time.Duration) {
	m.StageCounter.WithLabelValues(stage, outcome).Inc()
	if outcome != "skipped" {
		m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	}
}

func (m *Metrics) ObserveHistoryAppendError() {
	m.HistoryAppendErr.Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
