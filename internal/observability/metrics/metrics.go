package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	metricPrefix = "charge_report_"

	ResultSuccess = "success"
	ResultPartial = "partial"
	ResultError   = "error"
)

var (
	registerOnce sync.Once
	registry     *prometheus.Registry

	runTotal     *prometheus.CounterVec
	stageLatency *prometheus.HistogramVec

	sessionsProcessed prometheus.Counter
	dataWarnings      prometheus.Counter

	deliveryTotal *prometheus.CounterVec
)

// Init registers the run metrics on a dedicated registry. The observe
// helpers are no-ops until Init runs.
func Init() {
	registerOnce.Do(func() {
		registry = prometheus.NewRegistry()
		runTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_total",
				Help: "Report runs by result",
			},
			[]string{"result"},
		)
		stageLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "stage_latency_seconds",
				Help:    "Pipeline stage latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		)
		sessionsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "sessions_processed_total",
			Help: "Normalized sessions included in reports",
		})
		dataWarnings = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "data_warnings_total",
			Help: "Dropped or degraded source records",
		})
		deliveryTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "delivery_total",
				Help: "Delivery attempts by channel and result",
			},
			[]string{"channel", "result"},
		)
		registry.MustRegister(runTotal, stageLatency, sessionsProcessed, dataWarnings, deliveryTotal)
	})
}

// ObserveRun records the run result.
func ObserveRun(result string) {
	if runTotal == nil {
		return
	}
	runTotal.WithLabelValues(result).Inc()
}

// ObserveStage records one pipeline stage duration.
func ObserveStage(stage string, d time.Duration) {
	if stageLatency == nil {
		return
	}
	stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// AddSessions counts normalized sessions for the run.
func AddSessions(n int) {
	if sessionsProcessed == nil || n <= 0 {
		return
	}
	sessionsProcessed.Add(float64(n))
}

// AddWarnings counts data-quality warnings for the run.
func AddWarnings(n int) {
	if dataWarnings == nil || n <= 0 {
		return
	}
	dataWarnings.Add(float64(n))
}

// ObserveDelivery records one delivery attempt for a channel.
func ObserveDelivery(channel string, ok bool) {
	if deliveryTotal == nil {
		return
	}
	result := ResultSuccess
	if !ok {
		result = ResultError
	}
	deliveryTotal.WithLabelValues(channel, result).Inc()
}

// Push sends the run's metrics to a Pushgateway. A one-shot job has no
// scrape surface, so pushing is the only way out; failures are the
// caller's to log and never fatal.
func Push(url string) error {
	if registry == nil || url == "" {
		return nil
	}
	return push.New(url, "charge_report").Gatherer(registry).Push()
}
