package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/bandit-sim/sim"
	"github.com/inference-sim/bandit-sim/sim/promstats"
	"github.com/inference-sim/bandit-sim/sim/trace"
)

// runFlags holds the values of the `run` subcommand's flags.
type runFlags struct {
	seed     int64  // Seed for every random draw; wall clock when unset
	logLevel string // Log verbosity level

	numArms           int       // Number of servers (arms)
	rounds            int       // Number of routing decisions
	policy            string    // Selection policy name
	temperature       float64   // Softmax temperature τ
	learningRate      float64   // EMA step size α
	observationStdDev float64   // Per-request latency noise (ms)
	driftStdDev       float64   // Per-round drift of each true mean (ms)
	initialMeanMin    float64   // Lower bound for random initial means (ms)
	initialMeanMax    float64   // Upper bound for random initial means (ms)
	minLatency        float64   // Floor applied to observed latency (ms)
	initialMeans      []float64 // Explicit initial means, one per arm

	scenario         string // Preset name in the defaults file
	defaultsFilePath string // Path to defaults.yaml

	traceLevel         string // Decision trace verbosity
	traceProbabilities bool   // Keep per-round selection distributions in the trace
	resultsPath        string // JSON results file
	metricsTextfile    string // Prometheus text exposition file
}

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "bandit-sim",
	Short: "Softmax multi-armed bandit simulator for latency-aware request routing",
}

var runArgs runFlags

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the routing simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(runArgs.logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", runArgs.logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := runArgs.simConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		opts, err := runArgs.outputOptions()
		if err != nil {
			logrus.Fatalf("Invalid output options: %v", err)
		}
		if err := runSimulation(cfg, opts, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runArgs.register(runCmd)
	rootCmd.AddCommand(runCmd)
}

func (f *runFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Int64Var(&f.seed, "seed", 0, "Seed for all random draws (default: derived from the wall clock)")
	flags.StringVar(&f.logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Fleet and learning
	flags.IntVar(&f.numArms, "arms", sim.DefaultNumArms, "Number of servers (arms)")
	flags.IntVar(&f.rounds, "rounds", sim.DefaultRounds, "Number of routing decisions")
	flags.StringVar(&f.policy, "policy", sim.PolicySoftmax, "Selection policy (softmax, round-robin, greedy)")
	flags.Float64Var(&f.temperature, "temperature", sim.DefaultTemperature, "Softmax temperature")
	flags.Float64Var(&f.learningRate, "learning-rate", sim.DefaultLearningRate, "Estimate update step size in (0, 1]")

	// Environment
	flags.Float64Var(&f.observationStdDev, "observation-stddev", sim.DefaultObservationStdDev, "Latency noise stddev per request (ms)")
	flags.Float64Var(&f.driftStdDev, "drift-stddev", sim.DefaultDriftStdDev, "Per-round drift stddev of each server's mean latency (ms)")
	flags.Float64Var(&f.initialMeanMin, "initial-mean-min", sim.DefaultInitialMeanMin, "Lower bound of random initial mean latencies (ms)")
	flags.Float64Var(&f.initialMeanMax, "initial-mean-max", sim.DefaultInitialMeanMax, "Upper bound of random initial mean latencies (ms)")
	flags.Float64Var(&f.minLatency, "min-latency", sim.DefaultMinLatency, "Floor for observed latency (ms)")
	flags.Float64SliceVar(&f.initialMeans, "initial-means", nil, "Comma-separated initial mean latencies, one per arm (ms)")

	// Presets
	flags.StringVar(&f.scenario, "scenario", "", "Named preset from the defaults file")
	flags.StringVar(&f.defaultsFilePath, "defaults-filepath", "defaults.yaml", "Path to the presets file")

	// Outputs
	flags.StringVar(&f.traceLevel, "trace-level", string(trace.TraceLevelNone), "Decision trace level (none, decisions)")
	flags.BoolVar(&f.traceProbabilities, "trace-probabilities", false, "Keep each round's selection distribution in the trace")
	flags.StringVar(&f.resultsPath, "results-path", "", "Write results as JSON to this file")
	flags.StringVar(&f.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file")
}

// simConfig resolves the run configuration: built-in defaults, then the
// scenario (if any), then every flag the user set explicitly.
func (f *runFlags) simConfig(cmd *cobra.Command) (sim.SimConfig, error) {
	cfg := sim.DefaultSimConfig()

	if f.scenario != "" {
		defaults, err := loadDefaultsConfig(f.defaultsFilePath)
		if err != nil {
			return sim.SimConfig{}, err
		}
		s, err := defaults.Scenario(f.scenario)
		if err != nil {
			return sim.SimConfig{}, err
		}
		s.Apply(&cfg)
		logrus.Infof("Loaded scenario %q from %s", f.scenario, f.defaultsFilePath)
	}

	flags := cmd.Flags()
	if flags.Changed("arms") {
		cfg.Arms.NumArms = f.numArms
	}
	if flags.Changed("rounds") {
		cfg.Rounds = f.rounds
	}
	if flags.Changed("policy") {
		cfg.Policy.Name = f.policy
	}
	if flags.Changed("temperature") {
		cfg.Policy.Temperature = f.temperature
	}
	if flags.Changed("learning-rate") {
		cfg.Learning.Alpha = f.learningRate
	}
	if flags.Changed("observation-stddev") {
		cfg.Environment.ObservationStdDev = f.observationStdDev
	}
	if flags.Changed("drift-stddev") {
		cfg.Environment.DriftStdDev = f.driftStdDev
	}
	if flags.Changed("initial-mean-min") {
		cfg.Arms.InitialMeanMin = f.initialMeanMin
	}
	if flags.Changed("initial-mean-max") {
		cfg.Arms.InitialMeanMax = f.initialMeanMax
	}
	if flags.Changed("min-latency") {
		cfg.Environment.MinLatency = f.minLatency
	}
	if flags.Changed("initial-means") {
		cfg.Arms.InitialMeans = append([]float64(nil), f.initialMeans...)
		if !flags.Changed("arms") {
			cfg.Arms.NumArms = len(f.initialMeans)
		}
	}

	if len(cfg.Arms.InitialMeans) > 0 && (flags.Changed("initial-mean-min") || flags.Changed("initial-mean-max")) {
		logrus.Warnf("--initial-mean-min/--initial-mean-max ignored: explicit initial means %v are in effect", cfg.Arms.InitialMeans)
	}

	if flags.Changed("seed") {
		cfg.Seed = f.seed
	} else {
		cfg.Seed = time.Now().UnixNano()
		logrus.Infof("No --seed given; using %d", cfg.Seed)
	}

	if err := cfg.Validate(); err != nil {
		return sim.SimConfig{}, err
	}
	return cfg, nil
}

// outputOptions controls what a run writes besides the text report.
type outputOptions struct {
	Trace           trace.TraceConfig
	ResultsPath     string
	MetricsTextfile string
}

func (f *runFlags) outputOptions() (outputOptions, error) {
	if !trace.IsValidTraceLevel(f.traceLevel) {
		return outputOptions{}, fmt.Errorf("unknown trace level %q; valid: none, decisions", f.traceLevel)
	}
	return outputOptions{
		Trace: trace.TraceConfig{
			Level:             trace.TraceLevel(f.traceLevel),
			KeepProbabilities: f.traceProbabilities,
		},
		ResultsPath:     f.resultsPath,
		MetricsTextfile: f.metricsTextfile,
	}, nil
}

// runSimulation runs one configured simulation and writes the text report to w,
// plus the optional trace summary, JSON results and Prometheus textfile.
func runSimulation(cfg sim.SimConfig, opts outputOptions, w io.Writer) error {
	s, err := sim.NewSimulator(cfg)
	if err != nil {
		return err
	}

	var st *trace.SimulationTrace
	if opts.Trace.Enabled() {
		st = trace.NewSimulationTrace(opts.Trace)
		s.AddObserver(sim.NewTraceRecorder(st))
	}
	var collector *promstats.Collector
	if opts.MetricsTextfile != "" {
		collector = promstats.NewCollector()
		s.AddObserver(collector)
	}

	if err := s.Run(); err != nil {
		return err
	}

	m := s.Results()
	m.Print(w)
	if st != nil {
		printTraceSummary(w, trace.Summarize(st))
	}

	if opts.ResultsPath != "" {
		if err := m.SaveResults(opts.ResultsPath); err != nil {
			return err
		}
	}
	if collector != nil {
		collector.RecordArms(m.Arms)
		if err := collector.WriteTextfile(opts.MetricsTextfile); err != nil {
			return err
		}
	}
	return nil
}

func printTraceSummary(w io.Writer, ts *trace.TraceSummary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Trace Summary ===")
	fmt.Fprintf(w, "Traced Rounds        : %d\n", ts.TotalRounds)
	fmt.Fprintf(w, "Mean Regret          : %.2f ms\n", ts.MeanRegret)
	fmt.Fprintf(w, "Max Regret           : %.2f ms\n", ts.MaxRegret)
	fmt.Fprintf(w, "Best-Arm Ratio       : %.4f\n", ts.ZeroRegretRatio)
	fmt.Fprintf(w, "Arm Switches         : %d\n", ts.ArmSwitches)

	arms := make([]int, 0, len(ts.ArmDistribution))
	for id := range ts.ArmDistribution {
		arms = append(arms, id)
	}
	sort.Ints(arms)
	for _, id := range arms {
		n := ts.ArmDistribution[id]
		fmt.Fprintf(w, "  Arm %d: %d rounds (%.1f%%)\n", id, n, 100*float64(n)/float64(ts.TotalRounds))
	}
}
