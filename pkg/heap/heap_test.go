package heap

import (
	"testing"
	"time"

	"github.com/javelinrt/javelin/internal/clock"
)

func newTestEngine(cfg Config) *Engine {
	return NewEngine(cfg, clock.NewManual(time.Unix(1700000000, 0)))
}

func TestRegisterAccounting(t *testing.T) {
	e := newTestEngine(Config{BudgetBytes: 1000})
	e.Register("10", 4)
	e.Register("2.5", 8)
	e.Register("hi", 4)
	if e.Used() != 16 {
		t.Errorf("Used() = %d, want 16", e.Used())
	}
	if got := e.Counters(); got.Allocated != 3 || got.Objects != 3 {
		t.Errorf("counters = %+v", got)
	}
}

func TestShouldCollect(t *testing.T) {
	e := newTestEngine(Config{BudgetBytes: 1000, Threshold: 0.7})
	e.Register("a", 700)
	if e.ShouldCollect() {
		t.Error("ShouldCollect at exactly the threshold, want false")
	}
	e.Register("b", 1)
	if !e.ShouldCollect() {
		t.Error("ShouldCollect = false above the threshold")
	}
}

func TestCollectSweepsUnreachable(t *testing.T) {
	e := newTestEngine(Config{BudgetBytes: 1000})
	kept := e.Register("kept", 40)
	e.Register("gone1", 10)
	e.Register("gone2", 20)

	sample := e.Collect(map[uint64]bool{kept: true})

	if e.Used() != 40 {
		t.Errorf("Used() = %d after sweep, want 40", e.Used())
	}
	if got := e.Objects(); len(got) != 1 || got[0].ID != kept {
		t.Errorf("surviving objects = %+v", got)
	}
	if sample.FreedCount != 2 || sample.Collections != 1 {
		t.Errorf("sample = %+v", sample)
	}
}

// After any collection, used bytes must equal the sum of live
// non-promoted sizes and no unreachable object may remain.
func TestCollectRestoresAccounting(t *testing.T) {
	e := newTestEngine(Config{BudgetBytes: 10000, LargeObjectBytes: 1 << 60})
	live := map[uint64]bool{}
	var wantUsed int64
	sizes := []int64{4, 8, 100, 1, 50}
	for i, size := range sizes {
		id := e.Register("v", size)
		if i%2 == 0 {
			live[id] = true
			wantUsed += size
		}
	}
	e.Collect(live)
	if e.Used() != wantUsed {
		t.Errorf("Used() = %d, want %d", e.Used(), wantUsed)
	}
	for _, obj := range e.Objects() {
		if !live[obj.ID] {
			t.Errorf("unreachable object %d survived collection", obj.ID)
		}
	}
}

func TestCollectPromotesLargeObjects(t *testing.T) {
	e := newTestEngine(Config{BudgetBytes: 100000, LargeObjectBytes: 1024, ArenaBytes: 4096})
	small := e.Register("small", 100)
	big := e.Register("big", 2048)

	e.Collect(map[uint64]bool{small: true, big: true})

	if e.Used() != 100 {
		t.Errorf("Used() = %d after promotion, want 100", e.Used())
	}
	obj, ok := e.Object(big)
	if !ok || !obj.Promoted {
		t.Fatalf("big object = %+v, ok=%v; want promoted", obj, ok)
	}
	if got := e.Arena().Allocated(); got != 2048 {
		t.Errorf("arena allocated = %d, want 2048", got)
	}
	status := e.Status()
	if status.OffHeap.Allocated != 2048 || status.OffHeap.Total != 4096 {
		t.Errorf("status off-heap = %+v", status.OffHeap)
	}
}

func TestSweepingPromotedObjectFreesItsBlock(t *testing.T) {
	e := newTestEngine(Config{BudgetBytes: 100000, LargeObjectBytes: 1024, ArenaBytes: 4096})
	big := e.Register("big", 2048)

	e.Collect(map[uint64]bool{big: true})
	if e.Arena().Allocated() != 2048 {
		t.Fatalf("promotion did not land: %d", e.Arena().Allocated())
	}

	e.Collect(map[uint64]bool{})
	if e.Arena().Allocated() != 0 {
		t.Errorf("arena allocated = %d after sweeping the promoted object, want 0", e.Arena().Allocated())
	}
	if len(e.Objects()) != 0 {
		t.Errorf("objects = %+v, want empty", e.Objects())
	}
}

// A full arena must not break collection: the object stays on-heap.
func TestPromotionNoSpaceKeepsObjectOnHeap(t *testing.T) {
	e := newTestEngine(Config{BudgetBytes: 100000, LargeObjectBytes: 1024, ArenaBytes: 1024})
	big := e.Register("big", 2048)

	e.Collect(map[uint64]bool{big: true})

	obj, _ := e.Object(big)
	if obj.Promoted {
		t.Error("object promoted into an arena that cannot hold it")
	}
	if e.Used() != 2048 {
		t.Errorf("Used() = %d, want 2048 (still on-heap)", e.Used())
	}
}

func TestMetricsLogBounded(t *testing.T) {
	e := newTestEngine(Config{BudgetBytes: 1000, MetricsLog: 3})
	for i := 0; i < 5; i++ {
		e.Register("x", 10)
		e.Collect(map[uint64]bool{})
	}
	samples := e.Metrics()
	if len(samples) != 3 {
		t.Fatalf("retained %d samples, want 3", len(samples))
	}
	// Oldest evicted: the surviving samples are collections 3..5.
	if samples[0].Collections != 3 || samples[2].Collections != 5 {
		t.Errorf("samples = %+v", samples)
	}
}

func TestStatusPercent(t *testing.T) {
	e := newTestEngine(Config{BudgetBytes: 1000})
	e.Register("a", 250)
	status := e.Status()
	if status.Used != 250 || status.Max != 1000 || status.Percent != 25.0 {
		t.Errorf("status = %+v", status)
	}
}

func TestEngineReset(t *testing.T) {
	e := newTestEngine(Config{BudgetBytes: 100000, LargeObjectBytes: 100, ArenaBytes: 4096})
	id := e.Register("big", 200)
	e.Collect(map[uint64]bool{id: true})
	e.Reset()

	if e.Used() != 0 || len(e.Objects()) != 0 || len(e.Metrics()) != 0 {
		t.Errorf("Reset left state: used=%d objects=%d metrics=%d",
			e.Used(), len(e.Objects()), len(e.Metrics()))
	}
	if e.Arena().Accounted() != 0 {
		t.Errorf("Reset left arena blocks: %d bytes", e.Arena().Accounted())
	}
	if got := e.Counters(); got != (Counters{}) {
		t.Errorf("Reset left counters: %+v", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	e := NewEngine(Config{}, nil)
	if e.Budget() != DefaultBudgetBytes {
		t.Errorf("budget = %d, want %d", e.Budget(), DefaultBudgetBytes)
	}
	if e.Arena().Total() != DefaultArenaBytes {
		t.Errorf("arena = %d, want %d", e.Arena().Total(), DefaultArenaBytes)
	}
}
