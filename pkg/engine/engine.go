// Package engine wires the language pipeline to the runtime subsystems
// and exposes the public contract consumed by the CLI, the HTTP server,
// and the archive: interpret a source text, force collections, inspect
// the heap, and replay captured snapshots.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/javelinrt/javelin/internal/clock"
	"github.com/javelinrt/javelin/pkg/analysis"
	"github.com/javelinrt/javelin/pkg/deadline"
	"github.com/javelinrt/javelin/pkg/heap"
	"github.com/javelinrt/javelin/pkg/interp"
	"github.com/javelinrt/javelin/pkg/lang/lexer"
	"github.com/javelinrt/javelin/pkg/lang/parser"
	"github.com/javelinrt/javelin/pkg/perf"
	"github.com/javelinrt/javelin/pkg/safety"
	"github.com/javelinrt/javelin/pkg/timetravel"
)

// CriticalHeader opens the output of a run that static validation
// refused to execute.
const CriticalHeader = "CRITICAL ERRORS DETECTED"

// Options sizes one engine. Zero values take the subsystem defaults.
type Options struct {
	HeapBudgetBytes   int64
	OffHeapBytes      int64
	GCThreshold       float64
	LargeObjectBytes  int64
	MetricsLogSize    int
	SnapshotCapacity  int
	RecursionCeiling  int
	MaxLoopIterations int

	// Rand feeds the interpreted program's pseudo-random source; tests
	// inject a fixed function here. Nil means math/rand/v2.
	Rand func() float64

	// Clock drives deadline measurement, GC pause timing, and snapshot
	// timestamps. Defaults to the wall clock.
	Clock clock.Clock

	// Profiler, when set, receives per-phase timings for every run.
	Profiler *perf.Profiler
}

// Result is everything one interpretation produced.
type Result struct {
	RunID              uuid.UUID             `json:"runId"`
	Output             string                `json:"output"`
	Snapshots          []timetravel.Snapshot `json:"snapshots"`
	GCMetrics          []heap.MetricsSample  `json:"gcMetrics"`
	DeadlineViolations []deadline.Violation  `json:"deadlineViolations"`
	SafetyViolations   []safety.Violation    `json:"safetyViolations"`
	Diagnostics        []analysis.Diagnostic `json:"diagnostics"`
	Statements         int64                 `json:"statements"`
	Heap               heap.Status           `json:"heap"`
	Halted             bool                  `json:"halted"`
	Duration           time.Duration         `json:"duration"`
}

// Engine owns one interpreter instance. It is single-threaded: a run
// drives every subsystem synchronously, so concurrent runs need
// separate engines.
type Engine struct {
	opts Options
	clk  clock.Clock

	verifier *safety.Verifier
	tracker  *deadline.Tracker
	heap     *heap.Engine
	recorder *timetravel.Recorder
	eval     *interp.Evaluator
}

// New builds an engine with its subsystems sized by opts.
func New(opts Options) *Engine {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	verifier := safety.New(opts.RecursionCeiling, clk)
	tracker := deadline.New(clk)
	hp := heap.NewEngine(heap.Config{
		BudgetBytes:      opts.HeapBudgetBytes,
		Threshold:        opts.GCThreshold,
		LargeObjectBytes: opts.LargeObjectBytes,
		ArenaBytes:       opts.OffHeapBytes,
		MetricsLog:       opts.MetricsLogSize,
	}, clk)
	recorder := timetravel.New(opts.SnapshotCapacity, clk)

	eval := interp.New(interp.Runtime{
		Safety:            verifier,
		Deadline:          tracker,
		Heap:              hp,
		Recorder:          recorder,
		Clock:             clk,
		Rand:              opts.Rand,
		MaxLoopIterations: opts.MaxLoopIterations,
	})

	return &Engine{
		opts:     opts,
		clk:      clk,
		verifier: verifier,
		tracker:  tracker,
		heap:     hp,
		recorder: recorder,
		eval:     eval,
	}
}

// Interpret resets all runtime state, then lexes, parses, validates,
// and executes source. User-code failures of any tier come back inside
// the Result: lex/parse errors and validator findings as Diagnostics,
// runtime violations in their logs. The error return is reserved for
// engine-internal defects.
func (e *Engine) Interpret(ctx context.Context, source string) (*Result, error) {
	return e.InterpretAs(ctx, uuid.New(), source)
}

// InterpretAs is Interpret with a caller-chosen run ID. The HTTP
// server assigns IDs before execution starts so event subscribers can
// attach while the run is still queued.
func (e *Engine) InterpretAs(ctx context.Context, id uuid.UUID, source string) (*Result, error) {
	e.reset()
	started := e.clk.Now()

	res := &Result{RunID: id}
	finish := func() (*Result, error) {
		res.Heap = e.heap.Status()
		res.Duration = e.clk.Now().Sub(started)
		return res, nil
	}

	stop := e.opts.Profiler.StartPhase("scan")
	toks, err := lexer.Scan(source)
	stop()
	if err != nil {
		res.Diagnostics = []analysis.Diagnostic{SyntaxDiagnostic(err)}
		return finish()
	}

	stop = e.opts.Profiler.StartPhase("parse")
	prog, err := parser.New(toks).Program()
	stop()
	if err != nil {
		res.Diagnostics = []analysis.Diagnostic{SyntaxDiagnostic(err)}
		return finish()
	}

	stop = e.opts.Profiler.StartPhase("validate")
	res.Diagnostics = analysis.Check(toks)
	stop()
	if analysis.HasErrors(res.Diagnostics) {
		res.Output = criticalReport(res.Diagnostics)
		return finish()
	}

	stop = e.opts.Profiler.StartPhase("execute")
	e.eval.Run(ctx, prog)
	stop()

	res.Output = e.eval.Output()
	res.Halted = e.eval.Halted()
	res.Statements = e.eval.Statements()
	res.Snapshots = e.recorder.Snapshots()
	res.GCMetrics = e.heap.Metrics()
	res.DeadlineViolations = e.tracker.Violations()
	res.SafetyViolations = e.verifier.Violations()
	return finish()
}

func (e *Engine) reset() {
	e.verifier.Reset()
	e.tracker.Clear()
	e.heap.Reset()
	e.recorder.Reset()
	e.eval.Reset()
}

// TriggerGC forces one collection cycle out of band, using the current
// environment as the root set.
func (e *Engine) TriggerGC() heap.MetricsSample {
	return e.heap.Collect(e.eval.Env().LiveObjects())
}

// HeapStatus reports current on-heap and off-heap occupancy.
func (e *Engine) HeapStatus() heap.Status { return e.heap.Status() }

// Clock exposes the engine's time source so callers can stamp events
// consistently with the run measurements.
func (e *Engine) Clock() clock.Clock { return e.clk }

// StepBack moves the time-travel cursor one snapshot toward the oldest
// capture; at the boundary it returns the boundary snapshot. Nil means
// nothing was captured yet.
func (e *Engine) StepBack() *timetravel.Snapshot { return e.recorder.StepBack() }

// StepForward is the inverse of StepBack.
func (e *Engine) StepForward() *timetravel.Snapshot { return e.recorder.StepForward() }

// CurrentSnapshot returns the snapshot under the time-travel cursor.
func (e *Engine) CurrentSnapshot() *timetravel.Snapshot { return e.recorder.Current() }

// JumpTo positions the cursor on the snapshot with the given id.
func (e *Engine) JumpTo(id int) *timetravel.Snapshot { return e.recorder.JumpTo(id) }

// DeadlineViolations returns a copy of the deadline violation log.
func (e *Engine) DeadlineViolations() []deadline.Violation { return e.tracker.Violations() }

// SafetyViolations returns a copy of the safety violation log.
func (e *Engine) SafetyViolations() []safety.Violation { return e.verifier.Violations() }

// GCMetrics returns a copy of the collection metrics log.
func (e *Engine) GCMetrics() []heap.MetricsSample { return e.heap.Metrics() }

// SyntaxDiagnostic folds a lex or parse error into the diagnostic
// stream so callers handle all three error tiers uniformly. The check
// command uses it to report syntax failures in the same shape as
// validator findings.
func SyntaxDiagnostic(err error) analysis.Diagnostic {
	d := analysis.Diagnostic{Severity: analysis.Error, Rule: "syntax", Message: err.Error()}
	var lexErr *lexer.Error
	var parseErr *parser.Error
	switch {
	case errors.As(err, &lexErr):
		d.Line = lexErr.Line
		d.Message = lexErr.Message
	case errors.As(err, &parseErr):
		d.Line = parseErr.Line
		d.Message = parseErr.Message
	}
	return d
}

// criticalReport renders the suppression output: the header line, then
// one line per ERROR finding.
func criticalReport(diags []analysis.Diagnostic) string {
	var b strings.Builder
	b.WriteString(CriticalHeader)
	b.WriteByte('\n')
	for _, d := range diags {
		if d.Severity != analysis.Error {
			continue
		}
		fmt.Fprintf(&b, "  [ERROR] line %d: %s\n", d.Line, d.Message)
	}
	return b.String()
}
