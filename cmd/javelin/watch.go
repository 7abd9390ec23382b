package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/javelinrt/javelin/pkg/config"
	"github.com/javelinrt/javelin/pkg/tui"
	"github.com/javelinrt/javelin/pkg/watch"
)

var (
	watchInterval time.Duration
	watchReport   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <file.jrt>",
	Short: "Rerun a program whenever its file changes",
	Long: `Watch a source file and reinterpret it on every save.

Each rerun starts from a reset runtime. By default only a one-line
verdict is printed per run; --report prints the full run report.

Examples:
  javelin watch sensor.jrt
  javelin watch --report sensor.jrt
  javelin watch --interval 1s sensor.jrt`,
	Args: cobra.ExactArgs(1),
	RunE: runWatchCmd,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", watch.DefaultDebounce, "Debounce interval for change detection")
	watchCmd.Flags().BoolVar(&watchReport, "report", false, "Print the full run report after each rerun")

	rootCmd.AddCommand(watchCmd)
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("source file does not exist: %s", inputPath)
	}

	cfg := config.Global().Get()
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	w, err := watch.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	w.SetDebounce(watchInterval)

	ctx, cancel := signalContext()
	defer cancel()

	runCount := 0
	w.OnChange = func(path string) error {
		runCount++
		source, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		res, err := eng.Interpret(ctx, string(source))
		if err != nil {
			return err
		}

		if watchReport {
			tui.PrintRunReport(res)
		} else {
			tui.PrintWatchEvent(path, res.Halted, res.Duration)
		}
		return nil
	}

	w.OnError = func(path string, err error) {
		fmt.Fprintf(os.Stderr, "[%s] watch error: %v\n", time.Now().Format("15:04:05"), err)
	}

	if err := w.Watch(inputPath); err != nil {
		return fmt.Errorf("watch file: %w", err)
	}

	fmt.Printf("Watching %s\n", inputPath)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	// Interpret once before waiting for edits.
	if err := w.OnChange(inputPath); err != nil {
		fmt.Fprintf(os.Stderr, "initial run failed: %v\n", err)
	}

	err = w.Run(ctx)
	fmt.Printf("\nStopped after %d runs\n", runCount)
	if err == context.Canceled {
		return nil
	}
	return err
}
