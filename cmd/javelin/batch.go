package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/javelinrt/javelin/pkg/archive"
	"github.com/javelinrt/javelin/pkg/config"
)

var (
	batchOutputDir  string
	parallelWorkers int
	failFast        bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <input-files...>",
	Short: "Interpret multiple programs in parallel",
	Long: `Interpret multiple source files using parallel workers. Each file
gets its own runtime, so runs cannot observe each other's heap or
violation state. Run reports are written to the output directory as
<name>.report.json.

Accepts glob patterns and multiple file paths.

Examples:
  javelin batch examples/*.jrt -o ./reports/
  javelin batch a.jrt b.jrt -o ./reports/ --workers 8
  javelin batch suite/*.jrt -o ./reports/ --fail-fast`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutputDir, "output", "o", "", "Output directory for run reports (required)")
	batchCmd.Flags().IntVarP(&parallelWorkers, "workers", "w", runtime.NumCPU(), "Number of parallel workers")
	batchCmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop on first error")
	batchCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(batchCmd)
}

// batchResult holds the outcome of one file.
type batchResult struct {
	InputPath  string
	ReportPath string
	Halted     bool
	Duration   time.Duration
	Error      error
}

func runBatch(cmd *cobra.Command, args []string) error {
	var inputFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				inputFiles = append(inputFiles, pattern)
			} else {
				fmt.Fprintf(os.Stderr, "Warning: no files match pattern %q\n", pattern)
			}
		} else {
			inputFiles = append(inputFiles, matches...)
		}
	}

	if len(inputFiles) == 0 {
		return fmt.Errorf("no input files found")
	}

	if err := os.MkdirAll(batchOutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fmt.Printf("Interpreting %d files with %d workers...\n\n", len(inputFiles), parallelWorkers)

	ctx, cancel := signalContext()
	defer cancel()

	cfg := config.Global().Get()

	results := make(chan batchResult, len(inputFiles))

	var completed atomic.Int64
	var succeeded atomic.Int64
	var failed atomic.Int64
	totalFiles := int64(len(inputFiles))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelWorkers)

	startTime := time.Now()

	for _, inputPath := range inputFiles {
		g.Go(func() error {
			result := interpretFile(ctx, cfg, inputPath, batchOutputDir)
			results <- result

			done := completed.Add(1)
			if result.Error != nil {
				failed.Add(1)
				if failFast {
					return result.Error
				}
			} else {
				succeeded.Add(1)
			}

			pct := float64(done) / float64(totalFiles) * 100
			fmt.Printf("\r[%3.0f%%] %d/%d files interpreted", pct, done, totalFiles)

			return nil
		})
	}

	err := g.Wait()
	close(results)

	var allResults []batchResult
	halted := 0
	for r := range results {
		allResults = append(allResults, r)
		if r.Halted {
			halted++
		}
	}

	totalDuration := time.Since(startTime)

	fmt.Printf("\r\033[K")
	fmt.Println()
	fmt.Printf("=== Batch Interpretation Complete ===\n\n")
	fmt.Printf("  Total files: %d\n", totalFiles)
	fmt.Printf("  Succeeded:   %d\n", succeeded.Load())
	fmt.Printf("  Halted:      %d\n", halted)
	fmt.Printf("  Failed:      %d\n", failed.Load())
	fmt.Printf("  Duration:    %v\n", totalDuration.Round(time.Millisecond))
	fmt.Printf("  Throughput:  %.1f files/sec\n", float64(totalFiles)/totalDuration.Seconds())

	if failed.Load() > 0 {
		fmt.Println("\nErrors:")
		for _, r := range allResults {
			if r.Error != nil {
				fmt.Printf("  %s: %v\n", filepath.Base(r.InputPath), r.Error)
			}
		}
	}

	if err != nil && failFast {
		return fmt.Errorf("batch interpretation failed: %w", err)
	}

	if failed.Load() > 0 {
		return fmt.Errorf("%d files failed", failed.Load())
	}

	return nil
}

// interpretFile runs one source file in a fresh engine and writes its
// report next to the others.
func interpretFile(ctx context.Context, cfg *config.Config, inputPath, outputDir string) batchResult {
	start := time.Now()

	baseName := filepath.Base(inputPath)
	baseName = strings.TrimSuffix(baseName, filepath.Ext(baseName))
	reportPath := filepath.Join(outputDir, baseName+".report.json")

	result := batchResult{
		InputPath:  inputPath,
		ReportPath: reportPath,
	}

	source, err := os.ReadFile(inputPath)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	res, err := eng.Interpret(ctx, string(source))
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}
	result.Halted = res.Halted

	rep := archive.NewReport(res, string(source), start)
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}
	if err := os.WriteFile(reportPath, data, 0644); err != nil {
		result.Error = err
	}

	result.Duration = time.Since(start)
	return result
}
