package engine

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/javelinrt/javelin/internal/clock"
	"github.com/javelinrt/javelin/pkg/analysis"
	"github.com/javelinrt/javelin/pkg/deadline"
	"github.com/javelinrt/javelin/pkg/perf"
	"github.com/javelinrt/javelin/pkg/safety"
)

func newTestEngine() (*Engine, *clock.Manual) {
	clk := clock.NewManual(time.Unix(1700000000, 0))
	eng := New(Options{
		Clock: clk,
		Rand:  func() float64 { return 0.5 },
	})
	return eng, clk
}

func interpret(t *testing.T, src string) *Result {
	t.Helper()
	eng, _ := newTestEngine()
	res, err := eng.Interpret(context.Background(), src)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	return res
}

func TestInterpretHappyPath(t *testing.T) {
	res := interpret(t, `
int sum = 0;
for (int i = 1; i <= 4; i++) {
    sum = sum + i;
}
System.out.println("sum=" + sum);
`)
	if res.Output != "sum=10\n" {
		t.Fatalf("output = %q", res.Output)
	}
	if res.Halted {
		t.Fatal("clean program reported halted")
	}
	if res.RunID == uuid.Nil {
		t.Fatal("run id missing")
	}
	if len(res.Snapshots) == 0 {
		t.Fatal("no snapshots captured")
	}
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}
	if res.Statements == 0 {
		t.Fatal("statement count not recorded")
	}
	if res.Heap.Max == 0 {
		t.Fatal("heap status not recorded")
	}
}

func TestDefaultRandSource(t *testing.T) {
	eng := New(Options{})
	res, err := eng.Interpret(context.Background(), `
double a = Math.random();
double b = Math.random();
System.out.println(a);
System.out.println(b);
`)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(res.Output, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("output = %q, want two lines", res.Output)
	}
	vals := make([]float64, 2)
	for i, line := range lines {
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			t.Fatalf("line %d = %q: %v", i, line, err)
		}
		if v < 0 || v >= 1 {
			t.Fatalf("Math.random() = %v, want [0, 1)", v)
		}
		vals[i] = v
	}
	if vals[0] == vals[1] {
		t.Fatalf("consecutive Math.random() calls both returned %v", vals[0])
	}
}

func TestValidatorSuppressesExecution(t *testing.T) {
	res := interpret(t, `int x = 10 / 0;`)

	if !strings.HasPrefix(res.Output, CriticalHeader) {
		t.Fatalf("output = %q, want %q prefix", res.Output, CriticalHeader)
	}
	if len(res.Snapshots) != 0 {
		t.Fatal("statements executed despite ERROR diagnostics")
	}
	if res.Halted {
		t.Fatal("suppressed run must not report a runtime halt")
	}

	want := []analysis.Diagnostic{{
		Severity: analysis.Error,
		Line:     1,
		Message:  "Division by zero detected",
		Rule:     "division-by-zero",
	}}
	if diff := cmp.Diff(want, res.Diagnostics); diff != "" {
		t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestWarningsDoNotSuppressExecution(t *testing.T) {
	res := interpret(t, `
int x = 0;
while (x > 0) { }
System.out.println("ran");
`)
	if !strings.Contains(res.Output, "ran") {
		t.Fatalf("execution suppressed by warnings: %q", res.Output)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Severity != analysis.Warning {
		t.Fatalf("diagnostics = %+v, want one warning", res.Diagnostics)
	}
}

func TestParseErrorBecomesDiagnostic(t *testing.T) {
	res := interpret(t, `int x = ;`)
	if len(res.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %+v", res.Diagnostics)
	}
	d := res.Diagnostics[0]
	if d.Rule != "syntax" || d.Severity != analysis.Error || d.Line != 1 {
		t.Fatalf("diagnostic = %+v", d)
	}
	if !strings.Contains(d.Message, "expected expression") {
		t.Fatalf("message = %q", d.Message)
	}
	if res.Output != "" || len(res.Snapshots) != 0 {
		t.Fatal("nothing may execute after a parse error")
	}
}

func TestLexErrorBecomesDiagnostic(t *testing.T) {
	res := interpret(t, `String s = "abc`)
	if len(res.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %+v", res.Diagnostics)
	}
	if !strings.Contains(res.Diagnostics[0].Message, "unterminated string") {
		t.Fatalf("message = %q", res.Diagnostics[0].Message)
	}
}

func TestRuntimeDivisionHalts(t *testing.T) {
	res := interpret(t, `
System.out.println("start");
int z = 0;
int x = 10 / z;
System.out.println("end");
`)
	if !res.Halted {
		t.Fatal("runtime division by zero must halt")
	}
	if !strings.HasPrefix(res.Output, "start\n") {
		t.Fatalf("partial output lost: %q", res.Output)
	}
	if strings.Contains(res.Output, "end") {
		t.Fatalf("run continued past the halt: %q", res.Output)
	}
	if len(res.SafetyViolations) != 1 || res.SafetyViolations[0].Kind != safety.DivisionByZero {
		t.Fatalf("violations = %+v", res.SafetyViolations)
	}
}

func TestDeadlineViolationSurfaces(t *testing.T) {
	res := interpret(t, `
class M {
    @Deadline(ms=5)
    void work() {
        Thread.sleep(11);
    }
}
work();
`)
	want := []deadline.Violation{
		{MethodName: "work", ExpectedMs: 5, ActualMs: 11, Severity: deadline.Critical},
	}
	if diff := cmp.Diff(want, res.DeadlineViolations); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}
	if res.Halted {
		t.Fatal("deadline violations are observational, not halting")
	}
}

func TestDurationUsesInjectedClock(t *testing.T) {
	eng, _ := newTestEngine()
	res, err := eng.Interpret(context.Background(), `Thread.sleep(5);`)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.Duration != 5*time.Millisecond {
		t.Fatalf("duration = %v, want 5ms", res.Duration)
	}
}

func TestInterpretResetsBetweenRuns(t *testing.T) {
	eng, _ := newTestEngine()

	first, err := eng.Interpret(context.Background(), `int x = 1 / 0;`)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if !strings.HasPrefix(first.Output, CriticalHeader) {
		t.Fatalf("first output = %q", first.Output)
	}

	second, err := eng.Interpret(context.Background(), `System.out.println("two");`)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Output != "two\n" {
		t.Fatalf("second output = %q", second.Output)
	}
	if len(second.Diagnostics) != 0 || len(second.SafetyViolations) != 0 {
		t.Fatal("state leaked from the first run")
	}
	if len(second.Snapshots) != 1 {
		t.Fatalf("snapshots = %d, want exactly the second run's", len(second.Snapshots))
	}
}

func TestTriggerGCOutOfBand(t *testing.T) {
	eng, _ := newTestEngine()
	if _, err := eng.Interpret(context.Background(), `String s = "hello"; int n = 1;`); err != nil {
		t.Fatalf("Interpret: %v", err)
	}

	sample := eng.TriggerGC()
	if sample.Collections != 1 {
		t.Fatalf("collections = %d, want 1", sample.Collections)
	}
	if got := eng.GCMetrics(); len(got) != 1 {
		t.Fatalf("metrics log = %d entries, want 1", len(got))
	}

	// Live bindings survive a forced collection.
	st := eng.HeapStatus()
	if st.Used != 10+4 {
		t.Fatalf("used = %d after GC, want 14 (s + n)", st.Used)
	}
}

func TestHeapStatus(t *testing.T) {
	eng, _ := newTestEngine()
	if _, err := eng.Interpret(context.Background(), `int x = 1;`); err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	st := eng.HeapStatus()
	if st.Used != 4 {
		t.Fatalf("used = %d, want 4", st.Used)
	}
	if st.Max != 1024*1024 {
		t.Fatalf("max = %d, want default budget", st.Max)
	}
	if st.OffHeap.Total != 512*1024 {
		t.Fatalf("off-heap total = %d, want default arena", st.OffHeap.Total)
	}
}

func TestProfilerRecordsPipelinePhases(t *testing.T) {
	profiler := perf.New()
	eng := New(Options{
		Clock:    clock.NewManual(time.Unix(1700000000, 0)),
		Profiler: profiler,
	})
	if _, err := eng.Interpret(context.Background(), `System.out.println("hi");`); err != nil {
		t.Fatalf("Interpret: %v", err)
	}

	rep := profiler.Report()
	got := make(map[string]int64, len(rep.Phases))
	for _, ph := range rep.Phases {
		got[ph.Name] = ph.Count
	}
	for _, name := range []string{"scan", "parse", "validate", "execute"} {
		if got[name] != 1 {
			t.Errorf("phase %q count = %d, want 1", name, got[name])
		}
	}
}

func TestTimeTravelAcrossEngine(t *testing.T) {
	eng, _ := newTestEngine()
	if _, err := eng.Interpret(context.Background(), `int a = 1; int b = 2;`); err != nil {
		t.Fatalf("Interpret: %v", err)
	}

	latest := eng.CurrentSnapshot()
	if latest == nil || len(latest.Variables) != 2 {
		t.Fatalf("latest snapshot = %+v", latest)
	}

	back := eng.StepBack()
	if back == nil || len(back.Variables) != 1 {
		t.Fatalf("step back = %+v, want the one-variable state", back)
	}

	fwd := eng.StepForward()
	if fwd == nil || len(fwd.Variables) != 2 {
		t.Fatalf("step forward = %+v", fwd)
	}

	// Past the newest capture is a boundary no-op.
	again := eng.StepForward()
	if again == nil || again.ID != fwd.ID {
		t.Fatalf("boundary step = %+v, want %+v", again, fwd)
	}

	jumped := eng.JumpTo(back.ID)
	if jumped == nil || jumped.ID != back.ID {
		t.Fatalf("jump = %+v, want id %d", jumped, back.ID)
	}
}
