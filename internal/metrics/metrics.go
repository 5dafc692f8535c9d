package metrics

import (
	"time"

	"github.com/mikey/llm-action-extractor/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exports analysis metrics to Prometheus. It implements
// core.MetricsRecorder.
//
// Metrics:
//   - action_extractor_analyses_total{method} - analyses completed
//   - action_extractor_cache_hits_total - analyses served from the cache
//   - action_extractor_errors_total - analyses that failed
//   - action_extractor_analysis_duration_seconds{method} - analysis latency
//   - action_extractor_queue_length - requests waiting in the queue
type Recorder struct {
	AnalysesTotal    *prometheus.CounterVec
	CacheHitsTotal   prometheus.Counter
	ErrorsTotal      prometheus.Counter
	AnalysisDuration *prometheus.HistogramVec
	QueueLength      prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "action_extractor_analyses_total",
				Help: "Total number of analyses completed",
			},
			[]string{"method"}, // "ai", "regex" or "hybrid"
		),
		CacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "action_extractor_cache_hits_total",
				Help: "Total number of analyses served from the result cache",
			},
		),
		ErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "action_extractor_errors_total",
				Help: "Total number of failed analyses",
			},
		),
		AnalysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "action_extractor_analysis_duration_seconds",
				Help:    "Duration of analyses in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~33s
			},
			[]string{"method"},
		),
		QueueLength: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "action_extractor_queue_length",
				Help: "Current number of queued analysis requests",
			},
		),
	}
}

// ObserveAnalysis records one finished analysis
func (r *Recorder) ObserveAnalysis(method core.AnalysisMethod, latency time.Duration, cacheHit bool, failed bool) {
	label := string(method)
	if label == "" {
		label = string(core.MethodRegex)
	}
	r.AnalysesTotal.WithLabelValues(label).Inc()
	r.AnalysisDuration.WithLabelValues(label).Observe(latency.Seconds())
	if cacheHit {
		r.CacheHitsTotal.Inc()
	}
	if failed {
		r.ErrorsTotal.Inc()
	}
}

// SetQueueLength records the current queue depth
func (r *Recorder) SetQueueLength(n int) {
	r.QueueLength.Set(float64(n))
}
