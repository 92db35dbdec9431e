package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics counts pipeline outcomes per trigger source.
type Metrics struct {
	processed  *prometheus.CounterVec
	failures   *prometheus.CounterVec
	injections *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// Snapshot is the steady-state view logged after every invocation.
type Snapshot struct {
	ProcessedCount int `json:"processed_count"`
	ErrorCount     int `json:"error_count"`
	ChaosCount     int `json:"chaos_count"`
}

// NewMetrics registers the pipeline collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		processed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nyx_records_processed_total",
			Help: "Records persisted successfully.",
		}, []string{"source"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nyx_record_failures_total",
			Help: "Records that failed, by stage.",
		}, []string{"source", "stage"}),
		injections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nyx_chaos_injections_total",
			Help: "Failures forced by the chaos injector.",
		}, []string{"source"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nyx_record_duration_seconds",
			Help:    "Time spent processing one record.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
	}
}

func (m *Metrics) recordProcessed(source string, seconds float64) {
	m.processed.WithLabelValues(source).Inc()
	m.duration.WithLabelValues(source).Observe(seconds)
}

func (m *Metrics) recordFailure(source string, stage Stage) {
	m.failures.WithLabelValues(source, string(stage)).Inc()
	if stage == StageChaos {
		m.injections.WithLabelValues(source).Inc()
	}
}

// Snapshot sums every counter across its labels.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		ProcessedCount: sum(m.processed),
		ErrorCount:     sum(m.failures),
		ChaosCount:     sum(m.injections),
	}
}

func sum(c prometheus.Collector) int {
	ch := make(chan prometheus.Metric)
	go func() {
		c.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		var pb dto.Metric
		if err := metric.Write(&pb); err != nil {
			continue
		}
		total += pb.GetCounter().GetValue()
	}
	return int(total)
}
