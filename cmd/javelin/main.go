// Javelin - annotation-driven educational runtime
// Interprets .jrt sources under heap, deadline, and safety budgets.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/javelinrt/javelin/pkg/analysis"
	"github.com/javelinrt/javelin/pkg/archive"
	"github.com/javelinrt/javelin/pkg/config"
	"github.com/javelinrt/javelin/pkg/engine"
	"github.com/javelinrt/javelin/pkg/lang/lexer"
	"github.com/javelinrt/javelin/pkg/lang/parser"
	"github.com/javelinrt/javelin/pkg/telemetry"
	"github.com/javelinrt/javelin/pkg/tui"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	configFile  string
	profileFlag string
	verbose     bool

	// Run flags
	evalSource string
	jsonOutput bool
	archiveRun bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "javelin [file.jrt]",
	Short: "Javelin - annotated runtime for safety-checked programs",
	Long: `Javelin interprets an annotation-driven, Java-like language under
explicit runtime budgets: a bounded heap with its own collector, an
off-heap arena, deadline enforcement, safety verification, and a
time-travel recorder.

Run a file directly, or start the REPL by running without arguments.`,
	Version:           fmt.Sprintf("%s (%s)", version, commit),
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: loadConfig,
	RunE:              runRoot,
}

var runCmd = &cobra.Command{
	Use:   "run [file.jrt]",
	Short: "Interpret a source file",
	Long: `Interpret a Javelin source file and print the run report.

Static ERROR findings suppress execution; runtime violations are
reported alongside the program output.

Examples:
  javelin run sensor.jrt
  javelin run --profile embedded sensor.jrt
  javelin run -e 'int x = 1; System.out.println(x);'
  javelin run --json sensor.jrt | jq .heap`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var checkCmd = &cobra.Command{
	Use:   "check <file.jrt>",
	Short: "Validate a source file without executing it",
	Long: `Run the static validator only: syntax plus the annotation and
expression rules. Exits non-zero when ERROR findings are present.

Examples:
  javelin check sensor.jrt
  javelin check --json sensor.jrt`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var tokensCmd = &cobra.Command{
	Use:   "tokens <file.jrt>",
	Short: "Dump the token stream",
	Long: `Scan a source file and print its tokens with positions. The JSON
form feeds editor highlighting.

Examples:
  javelin tokens sensor.jrt
  javelin tokens --json sensor.jrt`,
	Args: cobra.ExactArgs(1),
	RunE: runTokens,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Extra config file merged on top of the defaults")
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "Runtime profile (default, embedded, generous)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	runCmd.Flags().StringVarP(&evalSource, "eval", "e", "", "Interpret the given source text instead of a file")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full result as JSON")
	runCmd.Flags().BoolVar(&archiveRun, "archive", false, "Persist the run report to the configured archive backend")

	checkCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print diagnostics as JSON")
	tokensCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print tokens as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(tokensCmd)
}

// loadConfig applies the --config and --profile flags on top of the
// global configuration before any command runs.
func loadConfig(cmd *cobra.Command, args []string) error {
	mgr := config.Global()
	if configFile != "" {
		if err := mgr.LoadFile(configFile); err != nil {
			return err
		}
	}
	if profileFlag != "" {
		mgr.Get().Engine.Profile = profileFlag
	}
	return nil
}

// runRoot dispatches a bare invocation: a file argument runs it, an
// interactive terminal gets the REPL, anything else gets help.
func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return runFile(args[0])
	}

	if fileInfo, _ := os.Stdout.Stat(); (fileInfo.Mode() & os.ModeCharDevice) == 0 {
		return cmd.Help()
	}
	return runREPL()
}

func runRun(cmd *cobra.Command, args []string) error {
	if evalSource != "" {
		return interpretAndReport("<eval>", evalSource)
	}
	if len(args) == 0 {
		return fmt.Errorf("source file required (or use --eval)")
	}
	return runFile(args[0])
}

func runFile(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	return interpretAndReport(path, string(source))
}

func interpretAndReport(path, source string) error {
	cfg := config.Global().Get()

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var exp *telemetry.Exporter
	if cfg.Telemetry.Enabled {
		exp = telemetry.NewExporter(telemetry.OTLPConfig{
			Endpoint:       cfg.Telemetry.Endpoint,
			ServiceVersion: version,
		})
		if err := exp.Init(ctx); err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer exp.Shutdown(context.Background())
	}

	interactive := !jsonOutput && isTerminal()
	done := make(chan bool)
	if interactive {
		go tui.Spinner("interpreting "+path, done)
	}

	started := eng.Clock().Now()
	res, err := eng.Interpret(ctx, source)
	if interactive {
		done <- true
	}
	if err != nil {
		return fmt.Errorf("interpret: %w", err)
	}

	if exp != nil {
		exp.RecordRun(ctx, res.RunID.String(), started, runStats(res), res.GCMetrics)
	}

	if archiveRun {
		backend, err := archive.NewBackend(ctx, cfg.Archive)
		if err != nil {
			return fmt.Errorf("archive backend: %w", err)
		}
		rep := archive.NewReport(res, source, started)
		if err := backend.Save(ctx, rep); err != nil {
			return fmt.Errorf("archive save: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "archived run %s to %s\n", rep.RunID, backend.Name())
		}
	}

	if jsonOutput {
		return printJSON(res)
	}
	tui.PrintRunReport(res)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	diags, err := checkSource(string(source))
	if err != nil {
		return err
	}

	if jsonOutput {
		if diags == nil {
			diags = []analysis.Diagnostic{}
		}
		return printJSON(diags)
	}

	tui.PrintDiagnostics(diags)
	errCount, warnCount := 0, 0
	for _, d := range diags {
		if d.Severity == analysis.Error {
			errCount++
		} else {
			warnCount++
		}
	}
	tui.PrintCheckSummary(errCount, warnCount)

	if errCount > 0 {
		return fmt.Errorf("validation failed: %d error(s)", errCount)
	}
	return nil
}

// checkSource runs the static tiers only: scan, parse, analyze. Lex
// and parse errors come back as syntax diagnostics, matching what a
// full interpretation would report.
func checkSource(source string) ([]analysis.Diagnostic, error) {
	toks, err := lexer.Scan(source)
	if err != nil {
		return []analysis.Diagnostic{engine.SyntaxDiagnostic(err)}, nil
	}
	if _, err := parser.New(toks).Program(); err != nil {
		return []analysis.Diagnostic{engine.SyntaxDiagnostic(err)}, nil
	}
	return analysis.Check(toks), nil
}

func runTokens(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	toks, err := lexer.Scan(string(source))
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(toks)
	}
	tui.PrintTokens(toks)
	return nil
}

// buildEngine sizes an engine from the resolved runtime profile.
func buildEngine(cfg *config.Config) (*engine.Engine, error) {
	prof, err := cfg.Engine.Resolve()
	if err != nil {
		return nil, err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "profile %s: heap %d, off-heap %d, loop bound %d\n",
			prof.Name, prof.HeapBudgetBytes, prof.OffHeapBytes, prof.MaxLoopIterations)
	}
	return engine.New(engineOptions(prof)), nil
}

func engineOptions(p config.Profile) engine.Options {
	return engine.Options{
		HeapBudgetBytes:   p.HeapBudgetBytes,
		OffHeapBytes:      p.OffHeapBytes,
		GCThreshold:       p.GCThreshold,
		LargeObjectBytes:  p.LargeObjectBytes,
		MetricsLogSize:    p.MetricsLogSize,
		SnapshotCapacity:  p.SnapshotCapacity,
		RecursionCeiling:  p.RecursionCeiling,
		MaxLoopIterations: p.MaxLoopIterations,
	}
}

// runStats maps a result onto the telemetry record shape.
func runStats(res *engine.Result) telemetry.RunStats {
	return telemetry.RunStats{
		Duration:           res.Duration,
		Statements:         res.Statements,
		AllocatedObjects:   res.Heap.Counters.Allocated,
		FreedObjects:       res.Heap.Counters.Freed,
		Collections:        res.Heap.Counters.Collections,
		SafetyViolations:   len(res.SafetyViolations),
		DeadlineViolations: len(res.DeadlineViolations),
		Diagnostics:        len(res.Diagnostics),
		Halted:             res.Halted,
	}
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	return ctx, cancel
}

func isTerminal() bool {
	fileInfo, _ := os.Stdout.Stat()
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
