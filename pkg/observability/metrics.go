package observability

import (
	"context"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects engine counters. Register it once per registry.
type Metrics struct {
	nodeVisits  *prometheus.CounterVec
	errors      *prometheus.CounterVec
	forks       *prometheus.CounterVec
	forkSeconds prometheus.Histogram
	evaluations *prometheus.CounterVec
	evalSeconds *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		nodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tendril_node_visits_total",
			Help: "Total number of executable node visits.",
		}, []string{"kind"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tendril_node_errors_total",
			Help: "Errors raised by nodes, by whether a handler caught them.",
		}, []string{"handled"}),
		forks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tendril_forks_total",
			Help: "Finished fork sub-executions, by outcome.",
		}, []string{"outcome"}),
		forkSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tendril_fork_duration_seconds",
			Help:    "Duration of fork sub-executions.",
			Buckets: prometheus.DefBuckets,
		}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tendril_evaluations_total",
			Help: "Container evaluations, by container and outcome.",
		}, []string{"container", "outcome"}),
		evalSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tendril_evaluation_duration_seconds",
			Help:    "Duration of container evaluations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"container"}),
	}

	for _, c := range []prometheus.Collector{m.nodeVisits, m.errors, m.forks, m.forkSeconds, m.evaluations, m.evalSeconds} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(string(e.NodeKind)).Inc()
		},
		OnError: func(_ context.Context, e *domain.ErrorEvent) {
			m.errors.WithLabelValues(boolLabel(e.Handled)).Inc()
		},
		OnForkJoin: func(_ context.Context, e *domain.ForkEvent) {
			outcome := "rolled_back"
			if e.Committed {
				outcome = "committed"
			}
			m.forks.WithLabelValues(outcome).Inc()
			m.forkSeconds.Observe(e.Duration.Seconds())
		},
	}
}

// ObserveEvaluation records one finished container evaluation.
func (m *Metrics) ObserveEvaluation(container string, result domain.Result, elapsed time.Duration) {
	outcome := "ok"
	if !result.Ok() {
		outcome = "error"
	}
	m.evaluations.WithLabelValues(container, outcome).Inc()
	m.evalSeconds.WithLabelValues(container).Observe(elapsed.Seconds())
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
