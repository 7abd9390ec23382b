// Package timetravel records execution snapshots in a fixed circular
// buffer and replays them through a cursor. Stepping never re-executes
// the program: it moves over states that were already captured.
package timetravel

import (
	"time"

	"github.com/javelinrt/javelin/internal/clock"
	"github.com/javelinrt/javelin/internal/ring"
	"github.com/javelinrt/javelin/pkg/heap"
)

// DefaultCapacity is the snapshot buffer size. Once full, the oldest
// snapshot is overwritten; the buffer never grows.
const DefaultCapacity = 1000

// Binding is one Environment entry at capture time, rendered for
// inspection.
type Binding struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HeapState is the heap view copied into a snapshot.
type HeapState struct {
	UsedBytes        int64 `json:"usedBytes"`
	MaxBytes         int64 `json:"maxBytes"`
	Objects          int   `json:"objects"`
	OffHeapAllocated int64 `json:"offHeapAllocated"`
}

// Snapshot is one recorded execution state. All fields are copies: a
// snapshot never aliases live evaluator state.
type Snapshot struct {
	ID        int           `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Line      int           `json:"line"`
	Variables []Binding     `json:"variables"`
	CallStack []string      `json:"callStack"`
	Heap      HeapState     `json:"heap"`
	GC        heap.Counters `json:"gc"`
	Output    string        `json:"output"`
}

// Recorder owns the snapshot buffer and the replay cursor. One per
// evaluator; not safe for concurrent use.
type Recorder struct {
	buf    *ring.Buffer[Snapshot]
	cursor int // logical index into buf, -1 when empty
	nextID int
	clk    clock.Clock
}

// New builds a recorder with the given capacity. Nonpositive capacity
// falls back to DefaultCapacity.
func New(capacity int, clk clock.Clock) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Recorder{buf: ring.New[Snapshot](capacity), cursor: -1, clk: clk}
}

// Capture deep-copies the mutable inputs into a new snapshot, stores it
// at the next buffer slot, moves the cursor to it, and returns its id.
func (r *Recorder) Capture(line int, vars []Binding, stack []string, hs HeapState, gc heap.Counters, output string) int {
	id := r.nextID
	r.nextID++
	snap := Snapshot{
		ID:        id,
		Timestamp: r.clk.Now(),
		Line:      line,
		Variables: append([]Binding(nil), vars...),
		CallStack: append([]string(nil), stack...),
		Heap:      hs,
		GC:        gc,
		Output:    output,
	}
	r.buf.Push(snap)
	r.cursor = r.buf.Len() - 1
	return id
}

// Current returns the snapshot under the cursor, or nil before any
// capture.
func (r *Recorder) Current() *Snapshot {
	return r.at(r.cursor)
}

// StepBack moves the cursor one snapshot into the past and returns it.
// At the oldest retained snapshot it stays put and returns that
// boundary snapshot; it never errors.
func (r *Recorder) StepBack() *Snapshot {
	if r.buf.Len() == 0 {
		return nil
	}
	if r.cursor > 0 {
		r.cursor--
	}
	return r.at(r.cursor)
}

// StepForward is the inverse of StepBack with the same boundary rule.
func (r *Recorder) StepForward() *Snapshot {
	if r.buf.Len() == 0 {
		return nil
	}
	if r.cursor < r.buf.Len()-1 {
		r.cursor++
	}
	return r.at(r.cursor)
}

// JumpTo moves the cursor to the snapshot with the given id, returning
// nil if that id is no longer retained.
func (r *Recorder) JumpTo(id int) *Snapshot {
	for i := 0; i < r.buf.Len(); i++ {
		snap, _ := r.buf.At(i)
		if snap.ID == id {
			r.cursor = i
			return &snap
		}
	}
	return nil
}

// Latest returns the newest snapshot without moving the cursor.
func (r *Recorder) Latest() *Snapshot {
	snap, ok := r.buf.Latest()
	if !ok {
		return nil
	}
	return &snap
}

// Len returns the number of retained snapshots.
func (r *Recorder) Len() int { return r.buf.Len() }

// Cap returns the buffer capacity.
func (r *Recorder) Cap() int { return r.buf.Cap() }

// Snapshots returns the retained snapshots oldest-first.
func (r *Recorder) Snapshots() []Snapshot { return r.buf.Items() }

// Reset drops all snapshots and rewinds ids for a fresh run.
func (r *Recorder) Reset() {
	r.buf.Reset()
	r.cursor = -1
	r.nextID = 0
}

func (r *Recorder) at(i int) *Snapshot {
	snap, ok := r.buf.At(i)
	if !ok {
		return nil
	}
	return &snap
}
