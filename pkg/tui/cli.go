// Package tui renders run reports, diagnostics, and progress for the
// javelin CLI. Simple, streaming, no complex TUI - just clean output.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/javelinrt/javelin/pkg/analysis"
	"github.com/javelinrt/javelin/pkg/engine"
	"github.com/javelinrt/javelin/pkg/lang/token"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	warn    = lipgloss.Color("#FFAA00")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(warn)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

const separator = "  ─────────────────────────────────────"

// Header prints the banner shown before interactive sessions.
func Header(version string) {
	fmt.Println()
	fmt.Println(titleStyle.Render("  JAVELIN") + mutedStyle.Render(" v"+version))
	fmt.Println(mutedStyle.Render("  Annotation-driven runtime with safety verification and time travel"))
	fmt.Println()
}

// PrintRunReport prints everything one run produced: program output,
// static findings, runtime violations, GC activity, and the footer
// stats line.
func PrintRunReport(res *engine.Result) {
	fmt.Println()
	fmt.Println(accentStyle.Render("▸ OUTPUT"))
	if res.Output == "" {
		fmt.Println(mutedStyle.Render("  (no output)"))
	} else {
		fmt.Print(indent(res.Output))
	}

	if len(res.Diagnostics) > 0 {
		fmt.Println()
		fmt.Println(accentStyle.Render("▸ DIAGNOSTICS"))
		PrintDiagnostics(res.Diagnostics)
	}

	if len(res.SafetyViolations) > 0 {
		fmt.Println()
		fmt.Println(accentStyle.Render("▸ SAFETY VIOLATIONS"))
		for _, v := range res.SafetyViolations {
			fmt.Println("  " + warnStyle.Render(v.String()))
		}
	}

	if len(res.DeadlineViolations) > 0 {
		fmt.Println()
		fmt.Println(accentStyle.Render("▸ DEADLINE VIOLATIONS"))
		for _, v := range res.DeadlineViolations {
			fmt.Println("  " + warnStyle.Render(v.String()))
		}
	}

	if len(res.GCMetrics) > 0 {
		last := res.GCMetrics[len(res.GCMetrics)-1]
		fmt.Println()
		fmt.Println(accentStyle.Render("▸ GARBAGE COLLECTION"))
		fmt.Printf("  %s %s %s\n",
			mutedStyle.Render("Cycles:"),
			titleStyle.Render(fmt.Sprintf("%d", last.Collections)),
			mutedStyle.Render(fmt.Sprintf("(last pause %.2fms, compaction %.2fms, %d merges)",
				last.PauseTimeMs, last.CompactionTimeMs, last.Merges)))
	}

	fmt.Println()
	fmt.Println(mutedStyle.Render(separator))
	if res.Halted {
		fmt.Println(accentStyle.Render("  ✗ EXECUTION HALTED"))
	} else if containsErrors(res.Diagnostics) {
		fmt.Println(accentStyle.Render("  ✗ EXECUTION SUPPRESSED"))
	} else {
		fmt.Println(successStyle.Render("  ✓ RUN COMPLETE"))
	}
	fmt.Printf("  %s %s %s\n",
		mutedStyle.Render("Time:"),
		titleStyle.Render(formatDuration(res.Duration)),
		mutedStyle.Render(fmt.Sprintf("(%s statements)", formatNumber(res.Statements))))
	fmt.Printf("  %s %s used of %s %s\n",
		mutedStyle.Render("Heap:"),
		titleStyle.Render(formatBytes(res.Heap.Used)),
		titleStyle.Render(formatBytes(res.Heap.Max)),
		mutedStyle.Render(fmt.Sprintf("(%d allocated, %d freed, %d snapshots)",
			res.Heap.Counters.Allocated, res.Heap.Counters.Freed, len(res.Snapshots))))
	fmt.Println(mutedStyle.Render(separator))
	fmt.Println()
}

// PrintDiagnostics prints static findings, errors in accent and
// warnings in yellow.
func PrintDiagnostics(diags []analysis.Diagnostic) {
	for _, d := range diags {
		line := fmt.Sprintf("  [%s] line %d: %s (%s)", d.Severity, d.Line, d.Message, d.Rule)
		if d.Severity == analysis.Error {
			fmt.Println(accentStyle.Render(line))
		} else {
			fmt.Println(warnStyle.Render(line))
		}
	}
}

// PrintCheckSummary prints the verdict line for the check command.
func PrintCheckSummary(errors, warnings int) {
	fmt.Println()
	switch {
	case errors > 0:
		fmt.Println(accentStyle.Render(fmt.Sprintf("  ✗ %d error(s), %d warning(s)", errors, warnings)))
	case warnings > 0:
		fmt.Println(warnStyle.Render(fmt.Sprintf("  ✓ no errors, %d warning(s)", warnings)))
	default:
		fmt.Println(successStyle.Render("  ✓ no findings"))
	}
	fmt.Println()
}

// PrintTokens prints the token stream, one token per line with its
// source position.
func PrintTokens(toks []token.Token) {
	for _, t := range toks {
		pos := fmt.Sprintf("%4d:%-3d", t.Line, t.Column)
		fmt.Printf("  %s %s\n", mutedStyle.Render(pos), titleStyle.Render(t.String()))
	}
}

// BenchReport summarizes repeated executions of one program.
type BenchReport struct {
	Runs       int
	Total      time.Duration
	P50        time.Duration
	P95        time.Duration
	P99        time.Duration
	Halts      int64
	Statements int64
}

// PrintBenchReport prints results after a benchmark loop.
func PrintBenchReport(report *BenchReport) {
	fmt.Println()
	fmt.Println(successStyle.Render("  ✓ BENCH COMPLETE"))
	fmt.Println()
	fmt.Printf("  %s %s %s\n",
		mutedStyle.Render("Runs:"),
		titleStyle.Render(formatNumber(int64(report.Runs))),
		mutedStyle.Render(fmt.Sprintf("(%s statements total)", formatNumber(report.Statements))))
	fmt.Printf("  %s p50 %s  p95 %s  p99 %s\n",
		mutedStyle.Render("Latency:"),
		titleStyle.Render(formatDuration(report.P50)),
		titleStyle.Render(formatDuration(report.P95)),
		titleStyle.Render(formatDuration(report.P99)))
	if report.Total > 0 {
		throughput := float64(report.Runs) / report.Total.Seconds()
		fmt.Printf("  %s %s %s\n",
			mutedStyle.Render("Time:"),
			titleStyle.Render(formatDuration(report.Total)),
			mutedStyle.Render(fmt.Sprintf("(%.1f runs/sec)", throughput)))
	}
	if report.Halts > 0 {
		fmt.Printf("  %s %s\n",
			mutedStyle.Render("Halts:"),
			accentStyle.Render(formatNumber(report.Halts)))
	}
	fmt.Println()
}

// PrintWatchEvent prints one line per rerun in watch mode.
func PrintWatchEvent(path string, halted bool, d time.Duration) {
	mark := successStyle.Render("✓")
	if halted {
		mark = accentStyle.Render("✗")
	}
	fmt.Printf("  %s %s %s\n", mark, titleStyle.Render(path),
		mutedStyle.Render(fmt.Sprintf("(%s)", formatDuration(d))))
}

// ClearLine clears the current line.
func ClearLine() {
	fmt.Print("\r\033[K")
}

// ShowProgress creates a progress bar for repeated runs.
func ShowProgress(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// Spinner shows a simple loading indicator until done is signalled.
func Spinner(message string, done chan bool) {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	i := 0
	for {
		select {
		case <-done:
			ClearLine()
			return
		default:
			fmt.Printf("\r%s %s", accentStyle.Render(frames[i]), message)
			i = (i + 1) % len(frames)
			time.Sleep(80 * time.Millisecond)
		}
	}
}

func containsErrors(diags []analysis.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == analysis.Error {
			return true
		}
	}
	return false
}

func indent(s string) string {
	out := ""
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out += "  " + s[start:i+1]
			start = i + 1
		}
	}
	if start < len(s) {
		out += "  " + s[start:] + "\n"
	}
	return out
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
