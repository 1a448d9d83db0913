package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	mutations      *prom.CounterVec
	activeTimers   prom.Gauge
	archivedTimers prom.Gauge
	sideEffects    *prom.CounterVec
	hydrations     *prom.CounterVec
	writeDuration  prom.Histogram
	writeResults   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.mutations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tripdeck",
			Name:      "store_mutations_total",
			Help:      "Store mutations by operation",
		}, []string{"op"})
		pr.activeTimers = prom.NewGauge(prom.GaugeOpts{
			Namespace: "tripdeck",
			Name:      "active_timers",
			Help:      "Number of timers in the active collection",
		})
		pr.archivedTimers = prom.NewGauge(prom.GaugeOpts{
			Namespace: "tripdeck",
			Name:      "archived_timers",
			Help:      "Number of timers in the archived collection",
		})
		pr.sideEffects = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tripdeck",
			Name:      "side_effect_results_total",
			Help:      "Side-effect dispatch results by operation and outcome",
		}, []string{"op", "result"})
		pr.hydrations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tripdeck",
			Name:      "hydration_outcomes_total",
			Help:      "Hydration outcomes",
		}, []string{"outcome"})
		pr.writeDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "tripdeck",
			Name:      "snapshot_write_duration_seconds",
			Help:      "Duration of debounced snapshot writes",
			Buckets:   prom.DefBuckets,
		})
		pr.writeResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "tripdeck",
			Name:      "snapshot_write_results_total",
			Help:      "Snapshot write results by outcome",
		}, []string{"result"})
		reg.MustRegister(pr.mutations, pr.activeTimers, pr.archivedTimers,
			pr.sideEffects, pr.hydrations, pr.writeDuration, pr.writeResults)
	})
	return pr
}

func (p *PrometheusRecorder) IncMutation(op string) {
	if p == nil || p.mutations == nil {
		return
	}
	p.mutations.WithLabelValues(op).Inc()
}

func (p *PrometheusRecorder) SetTimerCounts(active, archived int) {
	if p == nil || p.activeTimers == nil {
		return
	}
	p.activeTimers.Set(float64(active))
	p.archivedTimers.Set(float64(archived))
}

func (p *PrometheusRecorder) IncSideEffectResult(op string, success bool) {
	if p == nil || p.sideEffects == nil {
		return
	}
	p.sideEffects.WithLabelValues(op, resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) IncHydration(outcome string) {
	if p == nil || p.hydrations == nil {
		return
	}
	p.hydrations.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveWriteDuration(d time.Duration) {
	if p == nil || p.writeDuration == nil {
		return
	}
	p.writeDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncWriteResult(success bool) {
	if p == nil || p.writeResults == nil {
		return
	}
	p.writeResults.WithLabelValues(resultLabel(success)).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
