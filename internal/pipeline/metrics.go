package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 파이프라인 실행 지표입니다.
type Metrics struct {
	runs          *prometheus.CounterVec
	failures      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// NewMetrics reg에 파이프라인 지표를 등록합니다. reg가 nil이면 외부에 노출되지 않는 전용 레지스트리를 사용합니다.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_runs_total",
				Help: "Total number of pipeline runs by terminal state (count)",
			},
			[]string{"state"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_failures_total",
				Help: "Total number of failed pipeline runs by stage and reason (count)",
			},
			[]string{"stage", "reason"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
			},
			[]string{"stage"},
		),
	}
}

func (m *Metrics) observeStage(stage Stage, start time.Time) {
	m.stageDuration.WithLabelValues(stage.Label()).Observe(time.Since(start).Seconds())
}

func (m *Metrics) recordOutcome(o Outcome) {
	m.runs.WithLabelValues(o.State.Label()).Inc()
	if o.State == StateFailed {
		m.failures.WithLabelValues(o.Stage.Label(), o.Reason.Label()).Inc()
	}
}
