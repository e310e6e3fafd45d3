// Tracks simulation-wide latency, regret and per-arm results for final reporting.

package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Metrics aggregates statistics about the simulation for final reporting.
// Fields reflect the last completed round.
type Metrics struct {
	Rounds       int           // Number of completed rounds
	TotalLatency float64       // Sum of observed latencies (ms)
	TotalRegret  float64       // Sum of per-round regret (ms)
	Latencies    []float64     // Observed latency per round, in round order
	ElapsedTime  time.Duration // Wall time spent inside Run

	Arms   []ArmSnapshot // Per-arm final state, filled by Simulator.Results
	Policy string
	Seed   int64
}

// maxPreallocatedRounds caps the up-front latency buffer; longer runs grow it on append.
const maxPreallocatedRounds = 1 << 20

// NewMetrics creates an empty Metrics sized for the expected number of rounds.
func NewMetrics(expectedRounds int) *Metrics {
	return &Metrics{Latencies: make([]float64, 0, min(max(expectedRounds, 0), maxPreallocatedRounds))}
}

// RecordRound accumulates one round's observed latency and regret.
func (m *Metrics) RecordRound(latency, regret float64) {
	m.Rounds++
	m.TotalLatency += latency
	m.TotalRegret += regret
	m.Latencies = append(m.Latencies, latency)
}

// MeanLatency returns TotalLatency / Rounds, or 0 before the first round.
func (m *Metrics) MeanLatency() float64 {
	if m.Rounds == 0 {
		return 0
	}
	return m.TotalLatency / float64(m.Rounds)
}

// TotalSelections returns the selection counts summed over all arms.
func (m *Metrics) TotalSelections() int {
	total := 0
	for _, a := range m.Arms {
		total += a.SelectionCount
	}
	return total
}

// Distribution captures a statistical summary of a metric.
type Distribution struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// NewDistribution computes a Distribution from raw values. Percentiles use the
// empirical CDF (smallest value whose cumulative fraction reaches p).
// Returns zero-value Distribution for empty input.
func NewDistribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	d := Distribution{
		Mean:  stat.Mean(sorted, nil),
		P50:   stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, sorted, nil),
		P99:   stat.Quantile(0.99, stat.Empirical, sorted, nil),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Count: len(sorted),
	}
	if len(sorted) > 1 {
		d.StdDev = stat.StdDev(sorted, nil)
	}
	return d
}

// LatencyDistribution summarizes the observed latencies.
func (m *Metrics) LatencyDistribution() Distribution {
	return NewDistribution(m.Latencies)
}

// Print writes the human-readable report: run totals, latency distribution and one line per arm.
func (m *Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Policy               : %s\n", m.Policy)
	fmt.Fprintf(w, "Seed                 : %d\n", m.Seed)
	fmt.Fprintf(w, "Total Rounds         : %d\n", m.Rounds)
	fmt.Fprintf(w, "Total Latency        : %.2f ms\n", m.TotalLatency)
	fmt.Fprintf(w, "Mean Latency         : %.2f ms\n", m.MeanLatency())
	fmt.Fprintf(w, "Elapsed Time         : %f s\n", m.ElapsedTime.Seconds())
	if m.Rounds > 0 {
		d := m.LatencyDistribution()
		fmt.Fprintf(w, "Latency p50/p95/p99  : %.2f / %.2f / %.2f ms\n", d.P50, d.P95, d.P99)
		fmt.Fprintf(w, "Latency min/max      : %.2f / %.2f ms\n", d.Min, d.Max)
		fmt.Fprintf(w, "Mean Regret          : %.2f ms\n", m.TotalRegret/float64(m.Rounds))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Arms ===")
	for _, a := range m.Arms {
		fmt.Fprintf(w, "Arm %d | Selections: %d | True Mean: %.2f ms | Estimated Value: %.2f\n",
			a.ID, a.SelectionCount, a.TrueMean, a.EstimatedValue)
	}
}

// MetricsOutput is the JSON form of Metrics written by SaveResults.
type MetricsOutput struct {
	Policy         string        `json:"policy"`
	Seed           int64         `json:"seed"`
	Rounds         int           `json:"rounds"`
	TotalLatencyMs float64       `json:"total_latency_ms"`
	MeanLatencyMs  float64       `json:"mean_latency_ms"`
	MeanRegretMs   float64       `json:"mean_regret_ms"`
	ElapsedSeconds float64       `json:"elapsed_s"`
	LatencyMs      Distribution  `json:"latency_ms"`
	Arms           []ArmSnapshot `json:"arms"`
}

// Output converts Metrics to its serializable form.
func (m *Metrics) Output() MetricsOutput {
	out := MetricsOutput{
		Policy:         m.Policy,
		Seed:           m.Seed,
		Rounds:         m.Rounds,
		TotalLatencyMs: m.TotalLatency,
		MeanLatencyMs:  m.MeanLatency(),
		ElapsedSeconds: m.ElapsedTime.Seconds(),
		LatencyMs:      m.LatencyDistribution(),
		Arms:           m.Arms,
	}
	if m.Rounds > 0 {
		out.MeanRegretMs = m.TotalRegret / float64(m.Rounds)
	}
	return out
}

// SaveResults writes the metrics as indented JSON to path.
func (m *Metrics) SaveResults(path string) error {
	data, err := json.MarshalIndent(m.Output(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	logrus.Debugf("Successfully wrote results to '%s'", path)
	return nil
}
