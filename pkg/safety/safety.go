// Package safety implements the per-operation runtime checks the
// evaluator consults before it performs anything that can go wrong:
// division, indexing, method calls, allocation, and reference access.
//
// Checks are stateless except for the call-depth counter, which is
// guarded by scoped acquire/release so an aborted statement can never
// leak depth.
package safety

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/javelinrt/javelin/internal/clock"
)

// Op identifies the operation kind a check guards.
type Op uint8

const (
	OpDivision Op = iota
	OpArrayAccess
	OpMethodCall
	OpMemoryAllocation
	OpNullAccess
)

var opNames = [...]string{"DIVISION", "ARRAY_ACCESS", "METHOD_CALL", "MEMORY_ALLOCATION", "NULL_ACCESS"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "UNKNOWN"
}

// Kind classifies a violation.
type Kind uint8

const (
	DivisionByZero Kind = iota
	ArrayBounds
	NullAccess
	StackOverflow
	HeapOverflow
)

var kindNames = [...]string{"division-by-zero", "array-bounds", "null-access", "stack-overflow", "heap-overflow"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MarshalJSON renders the kind as its name.
func (k Kind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// Severity ranks a violation. CRITICAL violations halt the run; the
// others are recorded and execution continues with a fallback value.
type Severity uint8

const (
	Warning Severity = iota
	Error
	Critical
)

var severityNames = [...]string{"WARNING", "ERROR", "CRITICAL"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

// MarshalJSON renders the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// Violation is one recorded safety event.
type Violation struct {
	Kind      Kind      `json:"kind"`
	Line      int       `json:"line"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s line %d: %s", v.Severity, v.Kind, v.Line, v.Message)
}

// DefaultDepthCeiling bounds recursion depth before a stack-overflow
// violation fires.
const DefaultDepthCeiling = 100

// Verifier accumulates violations for one run. It is owned by a single
// evaluator and is not safe for concurrent use.
type Verifier struct {
	ceiling    int
	depth      int
	maxDepth   int
	violations []Violation
	checks     map[Op]int64
	clk        clock.Clock
}

// New builds a verifier with the given recursion ceiling. A ceiling of
// zero or less falls back to DefaultDepthCeiling.
func New(ceiling int, clk clock.Clock) *Verifier {
	if ceiling <= 0 {
		ceiling = DefaultDepthCeiling
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Verifier{ceiling: ceiling, checks: make(map[Op]int64), clk: clk}
}

func (v *Verifier) record(kind Kind, line int, sev Severity, format string, args ...any) *Violation {
	viol := Violation{
		Kind:      kind,
		Line:      line,
		Message:   fmt.Sprintf(format, args...),
		Severity:  sev,
		Timestamp: v.clk.Now(),
	}
	v.violations = append(v.violations, viol)
	return &v.violations[len(v.violations)-1]
}

// CheckDivision guards OpDivision. A zero divisor is CRITICAL: the
// evaluator must abort the current statement.
func (v *Verifier) CheckDivision(line int, divisor float64) *Violation {
	v.checks[OpDivision]++
	if divisor != 0 {
		return nil
	}
	return v.record(DivisionByZero, line, Critical, "division by zero")
}

// CheckIndex guards OpArrayAccess over a value of the given length.
// Out-of-bounds access is ERROR tier; execution continues with a
// fallback value.
func (v *Verifier) CheckIndex(line int, index, length int) *Violation {
	v.checks[OpArrayAccess]++
	if index >= 0 && index < length {
		return nil
	}
	return v.record(ArrayBounds, line, Error, "index %d out of bounds for length %d", index, length)
}

// CheckNull guards OpNullAccess: member access through a null reference.
func (v *Verifier) CheckNull(line int, name string) *Violation {
	v.checks[OpNullAccess]++
	return v.record(NullAccess, line, Error, "null reference access on %q", name)
}

// CheckAllocation guards OpMemoryAllocation. Allocating past the heap
// budget is CRITICAL heap-overflow.
func (v *Verifier) CheckAllocation(line int, size, used, budget int64) *Violation {
	v.checks[OpMemoryAllocation]++
	if used+size <= budget {
		return nil
	}
	return v.record(HeapOverflow, line, Critical, "allocation of %d bytes exceeds heap budget (%d/%d used)", size, used, budget)
}

// EnterCall guards OpMethodCall. It bumps the call depth and returns a
// release that the caller must defer so the depth survives aborts. When
// the ceiling is crossed the returned violation is CRITICAL and the
// depth is still accounted; release stays mandatory.
func (v *Verifier) EnterCall(line int, method string) (release func(), viol *Violation) {
	v.checks[OpMethodCall]++
	v.depth++
	if v.depth > v.maxDepth {
		v.maxDepth = v.depth
	}
	release = func() { v.depth-- }
	if v.depth > v.ceiling {
		viol = v.record(StackOverflow, line, Critical, "recursion depth %d exceeds ceiling %d in %q", v.depth, v.ceiling, method)
	}
	return release, viol
}

// Depth returns the current call depth.
func (v *Verifier) Depth() int { return v.depth }

// Checks returns how many times each operation kind was verified.
func (v *Verifier) Checks() map[Op]int64 {
	out := make(map[Op]int64, len(v.checks))
	for op, n := range v.checks {
		out[op] = n
	}
	return out
}

// MaxDepth returns the deepest call depth seen this run.
func (v *Verifier) MaxDepth() int { return v.maxDepth }

// Violations returns a copy of the accumulated violations.
func (v *Verifier) Violations() []Violation {
	out := make([]Violation, len(v.violations))
	copy(out, v.violations)
	return out
}

// HasCritical reports whether any recorded violation is CRITICAL.
func (v *Verifier) HasCritical() bool {
	for _, viol := range v.violations {
		if viol.Severity == Critical {
			return true
		}
	}
	return false
}

// Clear drops accumulated violations. Depth is untouched: clearing
// history mid-run must not unbalance live calls.
func (v *Verifier) Clear() { v.violations = nil }

// Reset restores the verifier to its initial state for a fresh run.
func (v *Verifier) Reset() {
	v.violations = nil
	v.depth = 0
	v.maxDepth = 0
	v.checks = make(map[Op]int64)
}
