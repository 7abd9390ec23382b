package timetravel

import (
	"fmt"
	"testing"
	"time"

	"github.com/javelinrt/javelin/internal/clock"
	"github.com/javelinrt/javelin/pkg/heap"
)

func newTestRecorder(capacity int) *Recorder {
	return New(capacity, clock.NewManual(time.Unix(1700000000, 0)))
}

func capture(r *Recorder, line int) int {
	vars := []Binding{{Name: "x", Value: fmt.Sprintf("%d", line)}}
	return r.Capture(line, vars, []string{"main"}, HeapState{UsedBytes: int64(line)}, heap.Counters{}, "out")
}

func TestCaptureAssignsSequentialIDs(t *testing.T) {
	r := newTestRecorder(10)
	for want := 0; want < 3; want++ {
		if id := capture(r, want+1); id != want {
			t.Errorf("capture returned id %d, want %d", id, want)
		}
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
}

func TestCaptureDeepCopies(t *testing.T) {
	r := newTestRecorder(10)
	vars := []Binding{{Name: "x", Value: "1"}}
	stack := []string{"main"}
	r.Capture(1, vars, stack, HeapState{}, heap.Counters{}, "")

	vars[0].Value = "mutated"
	stack[0] = "mutated"

	snap := r.Latest()
	if snap.Variables[0].Value != "1" || snap.CallStack[0] != "main" {
		t.Errorf("snapshot aliased caller slices: %+v", snap)
	}
}

func TestStepBackForward(t *testing.T) {
	r := newTestRecorder(10)
	for i := 1; i <= 3; i++ {
		capture(r, i)
	}

	if snap := r.StepBack(); snap.Line != 2 {
		t.Errorf("StepBack -> line %d, want 2", snap.Line)
	}
	if snap := r.StepBack(); snap.Line != 1 {
		t.Errorf("StepBack -> line %d, want 1", snap.Line)
	}
	// At the oldest snapshot stepping back is a no-op on the boundary.
	if snap := r.StepBack(); snap.Line != 1 {
		t.Errorf("boundary StepBack -> line %d, want 1", snap.Line)
	}

	if snap := r.StepForward(); snap.Line != 2 {
		t.Errorf("StepForward -> line %d, want 2", snap.Line)
	}
	if snap := r.StepForward(); snap.Line != 3 {
		t.Errorf("StepForward -> line %d, want 3", snap.Line)
	}
	if snap := r.StepForward(); snap.Line != 3 {
		t.Errorf("boundary StepForward -> line %d, want 3", snap.Line)
	}
}

func TestStepOnEmptyRecorder(t *testing.T) {
	r := newTestRecorder(10)
	if r.StepBack() != nil || r.StepForward() != nil || r.Current() != nil {
		t.Error("stepping on an empty recorder returned a snapshot")
	}
}

func TestCaptureMovesCursorToLatest(t *testing.T) {
	r := newTestRecorder(10)
	capture(r, 1)
	capture(r, 2)
	r.StepBack()
	capture(r, 3)
	if snap := r.Current(); snap.Line != 3 {
		t.Errorf("cursor at line %d after capture, want 3", snap.Line)
	}
}

func TestOldestOverwrittenAtCapacity(t *testing.T) {
	r := newTestRecorder(4)
	for i := 1; i <= 6; i++ {
		capture(r, i)
	}
	if r.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", r.Len())
	}
	snaps := r.Snapshots()
	if snaps[0].Line != 3 || snaps[3].Line != 6 {
		t.Errorf("retained lines %d..%d, want 3..6", snaps[0].Line, snaps[3].Line)
	}
}

// After capacity+1 captures, stepping back from the latest snapshot
// visits exactly capacity-1 distinct earlier states.
func TestStepBackRangeAfterWrap(t *testing.T) {
	const capacity = 5
	r := newTestRecorder(capacity)
	for i := 1; i <= capacity+1; i++ {
		capture(r, i)
	}

	seen := map[int]bool{}
	for {
		before := r.Current().ID
		snap := r.StepBack()
		if snap.ID == before {
			break
		}
		seen[snap.ID] = true
	}
	if len(seen) != capacity-1 {
		t.Errorf("StepBack visited %d distinct earlier states, want %d", len(seen), capacity-1)
	}
}

func TestJumpTo(t *testing.T) {
	r := newTestRecorder(10)
	var ids []int
	for i := 1; i <= 3; i++ {
		ids = append(ids, capture(r, i))
	}

	snap := r.JumpTo(ids[0])
	if snap == nil || snap.Line != 1 {
		t.Fatalf("JumpTo(%d) = %+v", ids[0], snap)
	}
	if cur := r.Current(); cur.ID != ids[0] {
		t.Errorf("cursor at %d after jump, want %d", cur.ID, ids[0])
	}
	if r.JumpTo(999) != nil {
		t.Error("JumpTo(999) found a snapshot")
	}
}

func TestJumpToEvictedID(t *testing.T) {
	r := newTestRecorder(2)
	first := capture(r, 1)
	capture(r, 2)
	capture(r, 3) // evicts the first snapshot
	if r.JumpTo(first) != nil {
		t.Error("JumpTo found an evicted snapshot")
	}
}

func TestReset(t *testing.T) {
	r := newTestRecorder(10)
	capture(r, 1)
	r.Reset()
	if r.Len() != 0 || r.Current() != nil {
		t.Error("Reset left snapshots")
	}
	if id := capture(r, 1); id != 0 {
		t.Errorf("post-reset capture id = %d, want 0", id)
	}
}
