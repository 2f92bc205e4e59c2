package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"contentstudio/internal/providers/script"
)

// Metrics groups the orchestrator collectors. A nil *Metrics records nothing.
type Metrics struct {
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	runsInFlight prometheus.Gauge
	stepDuration *prometheus.HistogramVec
	scriptTokens *prometheus.CounterVec
	reapedTotal  prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contentstudio",
			Name:      "orchestration_runs_total",
			Help:      "Orchestration runs by final status.",
		}, []string{"status"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "contentstudio",
			Name:      "orchestration_run_duration_seconds",
			Help:      "Wall time of orchestration runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"status"}),
		runsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "contentstudio",
			Name:      "orchestration_runs_in_flight",
			Help:      "Orchestration runs currently executing.",
		}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "contentstudio",
			Name:      "step_duration_seconds",
			Help:      "Duration of individual generation steps.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2.5, 10),
		}, []string{"step", "outcome"}),
		scriptTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contentstudio",
			Name:      "script_tokens_total",
			Help:      "Language model tokens spent on scripts.",
		}, []string{"provider", "model", "kind"}),
		reapedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "contentstudio",
			Name:      "stalled_runs_reaped_total",
			Help:      "Processing records moved to error by the reaper.",
		}),
	}
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.runsInFlight.Inc()
}

func (m *Metrics) runFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.runsInFlight.Dec()
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) observeStep(step, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step, outcome).Observe(d.Seconds())
}

func (m *Metrics) reaped(n int) {
	if m == nil || n == 0 {
		return
	}
	m.reapedTotal.Add(float64(n))
}

// ObserveUsage records token usage reported by a script generator.
func (m *Metrics) ObserveUsage(u script.Usage) {
	if m == nil {
		return
	}
	if u.PromptTokens > 0 {
		m.scriptTokens.WithLabelValues(u.Provider, u.Model, "prompt").Add(float64(u.PromptTokens))
	}
	if u.CompletionTokens > 0 {
		m.scriptTokens.WithLabelValues(u.Provider, u.Model, "completion").Add(float64(u.CompletionTokens))
	}
	if u.PromptEstimate > 0 {
		m.scriptTokens.WithLabelValues(u.Provider, u.Model, "prompt_estimate").Add(float64(u.PromptEstimate))
	}
}
