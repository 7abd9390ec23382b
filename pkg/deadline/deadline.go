// Package deadline tracks per-method timing budgets declared with
// @Deadline(ms=N). Violations are observational: they accumulate for
// the run and never halt execution.
package deadline

import (
	"encoding/json"
	"fmt"

	"github.com/javelinrt/javelin/internal/clock"
)

// Severity ranks a violation. CRITICAL means the method overshot its
// budget by more than 2x.
type Severity uint8

const (
	Warning Severity = iota
	Critical
)

func (s Severity) String() string {
	if s == Critical {
		return "CRITICAL"
	}
	return "WARNING"
}

// MarshalJSON renders the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// Violation records one blown deadline.
type Violation struct {
	MethodName string   `json:"methodName"`
	ExpectedMs int64    `json:"expectedMs"`
	ActualMs   int64    `json:"actualMs"`
	Severity   Severity `json:"severity"`
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s took %dms, deadline %dms", v.Severity, v.MethodName, v.ActualMs, v.ExpectedMs)
}

// Tracker accumulates deadline violations for one run. Owned by a
// single evaluator; not safe for concurrent use.
type Tracker struct {
	clk        clock.Clock
	violations []Violation
}

// New builds a tracker on the given clock.
func New(clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Tracker{clk: clk}
}

// Start marks entry into a method with an expected budget in
// milliseconds. The returned stop function computes the elapsed time,
// records a violation if the budget was blown, and returns it (nil
// otherwise). Call stop exactly once, on method exit.
func (t *Tracker) Start(method string, expectedMs int64) (stop func() *Violation) {
	begin := t.clk.Now()
	return func() *Violation {
		elapsed := t.clk.Now().Sub(begin)
		actualMs := elapsed.Milliseconds()
		if actualMs <= expectedMs {
			return nil
		}
		v := Violation{
			MethodName: method,
			ExpectedMs: expectedMs,
			ActualMs:   actualMs,
			Severity:   Classify(expectedMs, actualMs),
		}
		t.violations = append(t.violations, v)
		return &t.violations[len(t.violations)-1]
	}
}

// Classify maps an overshoot to its severity: CRITICAL when the actual
// time is more than twice the expected budget, WARNING otherwise.
func Classify(expectedMs, actualMs int64) Severity {
	if actualMs > 2*expectedMs {
		return Critical
	}
	return Warning
}

// Violations returns a copy of the accumulated violations.
func (t *Tracker) Violations() []Violation {
	out := make([]Violation, len(t.violations))
	copy(out, t.violations)
	return out
}

// Clear drops accumulated violations.
func (t *Tracker) Clear() { t.violations = nil }
