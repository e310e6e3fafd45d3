// Package promstats exports per-round simulation statistics as Prometheus metrics.
// Metrics live in a private registry so repeated runs never collide, and are
// written out in the text exposition format at the end of a run.
package promstats

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/inference-sim/bandit-sim/sim"
)

const namespace = "banditsim"

// Collector observes rounds and keeps Prometheus metrics for them.
type Collector struct {
	registry *prometheus.Registry

	rounds     prometheus.Counter
	selections *prometheus.CounterVec
	latency    prometheus.Histogram
	regret     prometheus.Counter
	estimate   *prometheus.GaugeVec
	trueMean   *prometheus.GaugeVec
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		rounds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Completed decision rounds",
		}),
		selections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "selections_total",
				Help:      "Rounds in which each arm was chosen",
			},
			[]string{"arm"},
		),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "observed_latency_ms",
			Help:      "Observed latency of the chosen arm (ms)",
			Buckets:   prometheus.LinearBuckets(10, 10, 20),
		}),
		regret: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regret_ms_sum",
			Help:      "Cumulative true-mean latency paid over the best arm (ms)",
		}),
		estimate: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "estimated_value",
				Help:      "Learned reward estimate per arm (negative latency)",
			},
			[]string{"arm"},
		),
		trueMean: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "true_mean_ms",
				Help:      "Hidden true mean latency per arm (ms), set by RecordArms",
			},
			[]string{"arm"},
		),
	}
}

// ObserveRound implements sim.RoundObserver.
func (c *Collector) ObserveRound(o sim.RoundOutcome) {
	arm := strconv.Itoa(o.Decision.Arm)
	c.rounds.Inc()
	c.selections.WithLabelValues(arm).Inc()
	c.latency.Observe(o.ObservedLatency)
	// Regret is never negative: the chosen mean is at least the best mean.
	c.regret.Add(o.Regret())
	c.estimate.WithLabelValues(arm).Set(o.EstimateAfter)
}

// RecordArms sets the per-arm gauges from a snapshot, typically the final one.
func (c *Collector) RecordArms(arms []sim.ArmSnapshot) {
	for _, a := range arms {
		arm := strconv.Itoa(a.ID)
		c.estimate.WithLabelValues(arm).Set(a.EstimatedValue)
		c.trueMean.WithLabelValues(arm).Set(a.TrueMean)
	}
}

// Registry exposes the underlying registry, e.g. for gathering in tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}
