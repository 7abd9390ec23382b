package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/javelinrt/javelin/pkg/config"
	"github.com/javelinrt/javelin/pkg/engine"
	"github.com/javelinrt/javelin/pkg/perf"
	"github.com/javelinrt/javelin/pkg/telemetry"
	"github.com/javelinrt/javelin/pkg/tui"
)

var (
	benchRuns   int
	benchPhases bool
)

var benchCmd = &cobra.Command{
	Use:   "bench <file.jrt>",
	Short: "Measure interpretation latency",
	Long: `Interpret one program repeatedly and report latency percentiles.

Every run starts from a reset runtime, so the numbers measure the full
pipeline: scan, parse, validate, execute, collect.

Examples:
  javelin bench sensor.jrt
  javelin bench --runs 100 sensor.jrt
  javelin bench --phases sensor.jrt
  javelin bench --profile embedded sensor.jrt`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchRuns, "runs", 20, "Number of measured runs")
	benchCmd.Flags().BoolVar(&benchPhases, "phases", false, "Break latency down by pipeline phase")

	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	cfg := config.Global().Get()
	prof, err := cfg.Engine.Resolve()
	if err != nil {
		return err
	}
	opts := engineOptions(prof)
	var profiler *perf.Profiler
	if benchPhases {
		profiler = perf.New()
		opts.Profiler = profiler
	}
	eng := engine.New(opts)

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════")
	fmt.Println("          JAVELIN LATENCY BENCH")
	fmt.Println("═══════════════════════════════════════════")
	fmt.Println()
	fmt.Printf("  OS:      %s/%s (%d CPUs)\n", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	fmt.Printf("  Program: %s\n", args[0])
	fmt.Printf("  Profile: %s\n", prof.Name)
	fmt.Printf("  Runs:    %d\n", benchRuns)
	fmt.Println()

	ctx, cancel := signalContext()
	defer cancel()

	collector := telemetry.NewCollector()
	bar := tui.ShowProgress(int64(benchRuns), "interpreting")

	started := time.Now()
	for i := 0; i < benchRuns; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res, err := eng.Interpret(ctx, string(source))
		if err != nil {
			return fmt.Errorf("run %d: %w", i+1, err)
		}
		collector.Record(runStats(res))
		bar.Add(1)
	}
	total := time.Since(started)

	sum := collector.Summary()
	tui.PrintBenchReport(&tui.BenchReport{
		Runs:       benchRuns,
		Total:      total,
		P50:        sum.P50Latency,
		P95:        sum.P95Latency,
		P99:        sum.P99Latency,
		Halts:      sum.Halts,
		Statements: sum.Statements,
	})
	if benchPhases {
		fmt.Println(profiler.Report())
	}

	return nil
}
