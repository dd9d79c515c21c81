package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CoreMetrics records activity of the cache, merger and sequencer.
type CoreMetrics struct {
	refreshes *prometheus.CounterVec
	pushes    *prometheus.CounterVec
	merges    *prometheus.CounterVec
	sequences *prometheus.CounterVec
}

// NewCoreMetrics registers the core metrics on the provided registerer.
func NewCoreMetrics(reg prometheus.Registerer) *CoreMetrics {
	if reg == nil {
		return &CoreMetrics{}
	}
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_refresh_total",
		Help: "Cache refreshes by kind and outcome.",
	}, []string{"kind", "outcome"})
	pushes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_events_total",
		Help: "Live resolved-event notifications by outcome.",
	}, []string{"outcome"})
	merges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_merges_total",
		Help: "Chronicle merges by outcome.",
	}, []string{"outcome"})
	sequences := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tx_sequences_total",
		Help: "Multi-step transaction sequences by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(refreshes, pushes, merges, sequences)
	return &CoreMetrics{
		refreshes: refreshes,
		pushes:    pushes,
		merges:    merges,
		sequences: sequences,
	}
}

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// IncRefresh counts one cache refresh for the given kind ("owned" or
// "listings").
func (c *CoreMetrics) IncRefresh(kind, outcome string) {
	if c == nil || c.refreshes == nil {
		return
	}
	c.refreshes.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

func (c *CoreMetrics) IncPush(outcome string) {
	if c == nil || c.pushes == nil {
		return
	}
	c.pushes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (c *CoreMetrics) IncMerge(outcome string) {
	if c == nil || c.merges == nil {
		return
	}
	c.merges.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (c *CoreMetrics) IncSequence(outcome string) {
	if c == nil || c.sequences == nil {
		return
	}
	c.sequences.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
