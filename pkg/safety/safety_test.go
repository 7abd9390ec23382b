package safety

import (
	"testing"
	"time"

	"github.com/javelinrt/javelin/internal/clock"
)

func newTestVerifier(ceiling int) *Verifier {
	return New(ceiling, clock.NewManual(time.Unix(1700000000, 0)))
}

func TestCheckDivision(t *testing.T) {
	v := newTestVerifier(0)
	if viol := v.CheckDivision(3, 2.0); viol != nil {
		t.Errorf("non-zero divisor flagged: %v", viol)
	}
	viol := v.CheckDivision(7, 0)
	if viol == nil {
		t.Fatal("zero divisor not flagged")
	}
	if viol.Kind != DivisionByZero || viol.Severity != Critical || viol.Line != 7 {
		t.Errorf("violation = %+v", viol)
	}
	if !v.HasCritical() {
		t.Error("HasCritical = false")
	}
}

func TestCheckIndex(t *testing.T) {
	v := newTestVerifier(0)
	if viol := v.CheckIndex(1, 0, 3); viol != nil {
		t.Errorf("in-bounds index flagged: %v", viol)
	}
	if viol := v.CheckIndex(1, 2, 3); viol != nil {
		t.Errorf("last index flagged: %v", viol)
	}
	viol := v.CheckIndex(4, 3, 3)
	if viol == nil || viol.Kind != ArrayBounds || viol.Severity != Error {
		t.Fatalf("violation = %+v", viol)
	}
	if viol := v.CheckIndex(4, -1, 3); viol == nil {
		t.Error("negative index not flagged")
	}
}

func TestCheckAllocation(t *testing.T) {
	v := newTestVerifier(0)
	if viol := v.CheckAllocation(2, 100, 800, 1000); viol != nil {
		t.Errorf("in-budget allocation flagged: %v", viol)
	}
	viol := v.CheckAllocation(2, 300, 800, 1000)
	if viol == nil || viol.Kind != HeapOverflow || viol.Severity != Critical {
		t.Fatalf("violation = %+v", viol)
	}
}

func TestEnterCallDepth(t *testing.T) {
	v := newTestVerifier(3)
	var releases []func()
	for i := 0; i < 3; i++ {
		release, viol := v.EnterCall(1, "recurse")
		releases = append(releases, release)
		if viol != nil {
			t.Fatalf("depth %d flagged below ceiling: %v", i+1, viol)
		}
	}
	release, viol := v.EnterCall(1, "recurse")
	releases = append(releases, release)
	if viol == nil || viol.Kind != StackOverflow || viol.Severity != Critical {
		t.Fatalf("ceiling crossing: %+v", viol)
	}
	for _, r := range releases {
		r()
	}
	if v.Depth() != 0 {
		t.Errorf("depth = %d after all releases, want 0", v.Depth())
	}
	if v.MaxDepth() != 4 {
		t.Errorf("max depth = %d, want 4", v.MaxDepth())
	}
}

// Depth must drain even when the call body aborts partway through.
func TestReleaseSurvivesAbort(t *testing.T) {
	v := newTestVerifier(10)
	func() {
		release, _ := v.EnterCall(1, "panicky")
		defer release()
		func() {
			defer func() { recover() }()
			panic("statement aborted")
		}()
	}()
	if v.Depth() != 0 {
		t.Errorf("depth = %d after abort, want 0", v.Depth())
	}
}

func TestClearKeepsDepth(t *testing.T) {
	v := newTestVerifier(10)
	release, _ := v.EnterCall(1, "m")
	defer release()
	v.CheckDivision(1, 0)
	v.Clear()
	if len(v.Violations()) != 0 {
		t.Error("Clear left violations behind")
	}
	if v.Depth() != 1 {
		t.Errorf("Clear changed depth to %d", v.Depth())
	}
}

func TestViolationsAreCopied(t *testing.T) {
	v := newTestVerifier(0)
	v.CheckDivision(1, 0)
	got := v.Violations()
	got[0].Line = 99
	if v.Violations()[0].Line == 99 {
		t.Error("Violations exposed internal slice")
	}
}

func TestDefaultCeiling(t *testing.T) {
	v := New(0, nil)
	if v.ceiling != DefaultDepthCeiling {
		t.Errorf("ceiling = %d, want %d", v.ceiling, DefaultDepthCeiling)
	}
}

func TestViolationTimestamp(t *testing.T) {
	base := time.Unix(1700000000, 0)
	v := New(10, clock.NewManual(base))
	viol := v.CheckDivision(1, 0)
	if !viol.Timestamp.Equal(base) {
		t.Errorf("timestamp = %v, want %v", viol.Timestamp, base)
	}
}

func TestOpCheckCounts(t *testing.T) {
	v := newTestVerifier(10)
	v.CheckDivision(1, 2)
	v.CheckDivision(2, 4)
	v.CheckIndex(3, 0, 1)
	release, _ := v.EnterCall(4, "m")
	release()

	checks := v.Checks()
	if checks[OpDivision] != 2 || checks[OpArrayAccess] != 1 || checks[OpMethodCall] != 1 {
		t.Errorf("checks = %v", checks)
	}
	v.Reset()
	if len(v.Checks()) != 0 {
		t.Errorf("Reset left check counts: %v", v.Checks())
	}
}
