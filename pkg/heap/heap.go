// Package heap simulates the runtime's memory subsystem: an on-heap
// object registry with a threshold-triggered mark-and-sweep collector,
// and a fixed off-heap arena that reachable large objects are promoted
// into.
//
// Collection is synchronous and blocking: the stop-the-world pause is
// the metric being demonstrated, so nothing here runs in the
// background.
package heap

import (
	"sort"
	"time"

	"github.com/javelinrt/javelin/internal/clock"
	"github.com/javelinrt/javelin/internal/ring"
)

// Defaults for the runtime profile knobs.
const (
	DefaultBudgetBytes      = 1024 * 1024
	DefaultThreshold        = 0.70
	DefaultLargeObjectBytes = 1024
	DefaultMetricsLog       = 50
)

// Config sizes the heap engine. Zero fields take the defaults above.
type Config struct {
	BudgetBytes      int64
	Threshold        float64
	LargeObjectBytes int64
	ArenaBytes       int64
	MetricsLog       int
}

func (c Config) withDefaults() Config {
	if c.BudgetBytes <= 0 {
		c.BudgetBytes = DefaultBudgetBytes
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.LargeObjectBytes <= 0 {
		c.LargeObjectBytes = DefaultLargeObjectBytes
	}
	if c.ArenaBytes <= 0 {
		c.ArenaBytes = DefaultArenaBytes
	}
	if c.MetricsLog <= 0 {
		c.MetricsLog = DefaultMetricsLog
	}
	return c
}

// Object is one registered allocation. Val carries the rendered value
// for inspection; the engine only accounts for Size.
type Object struct {
	ID       uint64 `json:"id"`
	Val      string `json:"value"`
	Size     int64  `json:"size"`
	Promoted bool   `json:"promoted"`
}

// MetricsSample records one collection cycle.
type MetricsSample struct {
	PauseTimeMs      float64   `json:"pauseTimeMs"`
	HeapUsagePct     float64   `json:"heapUsagePct"`
	OffHeapUsagePct  float64   `json:"offHeapUsagePct"`
	Collections      int64     `json:"collections"`
	AllocatedCount   int64     `json:"allocatedCount"`
	FreedCount       int64     `json:"freedCount"`
	CompactionTimeMs float64   `json:"compactionTimeMs"`
	Merges           int       `json:"merges"`
	Timestamp        time.Time `json:"timestamp"`
}

// Counters is the running tally copied into execution snapshots.
type Counters struct {
	Collections int64 `json:"collections"`
	Allocated   int64 `json:"allocated"`
	Freed       int64 `json:"freed"`
	Objects     int   `json:"objects"`
}

// OffHeapStatus summarizes the arena.
type OffHeapStatus struct {
	Allocated int64 `json:"allocated"`
	Total     int64 `json:"total"`
}

// Status is the public heap view.
type Status struct {
	Used     int64         `json:"used"`
	Max      int64         `json:"max"`
	Percent  float64       `json:"percentage"`
	OffHeap  OffHeapStatus `json:"offHeap"`
	Counters Counters      `json:"counters"`
}

// Engine owns the object registry, the collector, and the arena. One
// engine per evaluator; not safe for concurrent use.
type Engine struct {
	cfg   Config
	clk   clock.Clock
	arena *Arena

	objects  map[uint64]*Object
	promoted map[uint64]uint64 // object ID -> arena block ID
	nextID   uint64
	used     int64 // on-heap bytes (promoted objects excluded)

	collections int64
	allocated   int64
	freed       int64

	metrics *ring.Buffer[MetricsSample]
}

// NewEngine builds a heap engine.
func NewEngine(cfg Config, clk clock.Clock) *Engine {
	cfg = cfg.withDefaults()
	if clk == nil {
		clk = clock.Real{}
	}
	return &Engine{
		cfg:      cfg,
		clk:      clk,
		arena:    NewArena(cfg.ArenaBytes, clk),
		objects:  make(map[uint64]*Object),
		promoted: make(map[uint64]uint64),
		metrics:  ring.New[MetricsSample](cfg.MetricsLog),
	}
}

// Register records an allocation of the given rendered value and size,
// returning the object ID.
func (e *Engine) Register(val string, size int64) uint64 {
	if size < 0 {
		size = 0
	}
	e.nextID++
	e.objects[e.nextID] = &Object{ID: e.nextID, Val: val, Size: size}
	e.used += size
	e.allocated++
	return e.nextID
}

// Used returns the on-heap byte total. Promoted objects do not count.
func (e *Engine) Used() int64 { return e.used }

// Budget returns the heap budget in bytes.
func (e *Engine) Budget() int64 { return e.cfg.BudgetBytes }

// ShouldCollect reports whether usage has crossed the collection
// threshold fraction of the budget.
func (e *Engine) ShouldCollect() bool {
	return float64(e.used) > e.cfg.Threshold*float64(e.cfg.BudgetBytes)
}

// Collect runs one synchronous mark/promote/sweep/defragment cycle.
// live holds the object IDs currently referenced by environment
// bindings; reachability is exactly that set, no transitive chasing.
func (e *Engine) Collect(live map[uint64]bool) MetricsSample {
	start := e.clk.Now()

	ids := make([]uint64, 0, len(e.objects))
	for id := range e.objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	// Promote reachable large objects off-heap. A full arena is fine:
	// the object just stays on-heap.
	for _, id := range ids {
		obj := e.objects[id]
		if !live[id] || obj.Promoted || obj.Size < e.cfg.LargeObjectBytes {
			continue
		}
		blockID, ok := e.arena.Allocate(obj.Size)
		if !ok {
			continue
		}
		e.promoted[id] = blockID
		obj.Promoted = true
		e.used -= obj.Size
	}

	// Sweep everything unreachable.
	var freedNow int64
	for _, id := range ids {
		if live[id] {
			continue
		}
		obj := e.objects[id]
		if blockID, ok := e.promoted[id]; ok {
			e.arena.Deallocate(blockID)
			delete(e.promoted, id)
		} else {
			e.used -= obj.Size
		}
		delete(e.objects, id)
		freedNow++
	}
	e.freed += freedNow

	compactStart := e.clk.Now()
	merges := e.arena.Defragment()
	compactEnd := e.clk.Now()

	e.collections++
	sample := MetricsSample{
		PauseTimeMs:      float64(compactEnd.Sub(start)) / float64(time.Millisecond),
		HeapUsagePct:     pct(e.used, e.cfg.BudgetBytes),
		OffHeapUsagePct:  pct(e.arena.Allocated(), e.arena.Total()),
		Collections:      e.collections,
		AllocatedCount:   e.allocated,
		FreedCount:       e.freed,
		CompactionTimeMs: float64(compactEnd.Sub(compactStart)) / float64(time.Millisecond),
		Merges:           merges,
		Timestamp:        compactEnd,
	}
	e.metrics.Push(sample)
	return sample
}

func pct(n, d int64) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}

// Metrics returns the retained collection samples, oldest first.
func (e *Engine) Metrics() []MetricsSample { return e.metrics.Items() }

// Objects returns a copy of the registry ordered by ID.
func (e *Engine) Objects() []Object {
	out := make([]Object, 0, len(e.objects))
	for _, obj := range e.objects {
		out = append(out, *obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Object looks up one registered object.
func (e *Engine) Object(id uint64) (Object, bool) {
	obj, ok := e.objects[id]
	if !ok {
		return Object{}, false
	}
	return *obj, true
}

// Arena exposes the off-heap manager.
func (e *Engine) Arena() *Arena { return e.arena }

// Counters returns the running tallies for snapshot capture.
func (e *Engine) Counters() Counters {
	return Counters{
		Collections: e.collections,
		Allocated:   e.allocated,
		Freed:       e.freed,
		Objects:     len(e.objects),
	}
}

// Status returns the public heap view.
func (e *Engine) Status() Status {
	return Status{
		Used:    e.used,
		Max:     e.cfg.BudgetBytes,
		Percent: pct(e.used, e.cfg.BudgetBytes),
		OffHeap: OffHeapStatus{
			Allocated: e.arena.Allocated(),
			Total:     e.arena.Total(),
		},
		Counters: e.Counters(),
	}
}

// Reset clears the registry, the arena, the counters, and the metrics
// log for a fresh run.
func (e *Engine) Reset() {
	e.objects = make(map[uint64]*Object)
	e.promoted = make(map[uint64]uint64)
	e.nextID = 0
	e.used = 0
	e.collections = 0
	e.allocated = 0
	e.freed = 0
	e.arena.Reset()
	e.metrics.Reset()
}
