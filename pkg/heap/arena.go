package heap

import (
	"sort"
	"time"

	"github.com/javelinrt/javelin/internal/clock"
)

// DefaultArenaBytes is the fixed off-heap arena capacity.
const DefaultArenaBytes = 512 * 1024

// Block is one off-heap allocation. Blocks are carved from the arena
// once and then recycled through the free list; they are never returned
// to unaccounted capacity.
type Block struct {
	ID          uint64    `json:"id"`
	Offset      int64     `json:"offset"`
	Size        int64     `json:"size"`
	Allocated   bool      `json:"allocated"`
	LastTouched time.Time `json:"lastTouched"`

	buf []byte
}

// Arena is a fixed-capacity off-heap region with a free list. Allocate
// prefers recycling the smallest fitting free block over carving new
// space, so long-running workloads converge on a stable block set.
type Arena struct {
	capacity int64
	blocks   []*Block // ordered by offset
	nextID   uint64
	high     int64 // carve watermark
	clk      clock.Clock
}

// NewArena builds an arena of the given capacity. Nonpositive capacity
// falls back to DefaultArenaBytes.
func NewArena(capacity int64, clk clock.Clock) *Arena {
	if capacity <= 0 {
		capacity = DefaultArenaBytes
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Arena{capacity: capacity, clk: clk}
}

// Allocate returns the ID of a block of at least size bytes and true,
// or false when the arena has no space. Running out of space is an
// expected outcome, not an error: the caller keeps its object on-heap.
func (a *Arena) Allocate(size int64) (uint64, bool) {
	if size <= 0 {
		return 0, false
	}

	// Smallest free block that fits wins.
	var best *Block
	for _, b := range a.blocks {
		if b.Allocated || b.Size < size {
			continue
		}
		if best == nil || b.Size < best.Size {
			best = b
		}
	}
	if best != nil {
		best.Allocated = true
		best.LastTouched = a.clk.Now()
		return best.ID, true
	}

	if a.capacity-a.high < size {
		return 0, false
	}
	a.nextID++
	b := &Block{
		ID:          a.nextID,
		Offset:      a.high,
		Size:        size,
		Allocated:   true,
		LastTouched: a.clk.Now(),
		buf:         make([]byte, size),
	}
	a.high += size
	a.blocks = append(a.blocks, b)
	return b.ID, true
}

// Deallocate returns the block to the free list. It reports false for
// unknown or already-free IDs.
func (a *Arena) Deallocate(id uint64) bool {
	for _, b := range a.blocks {
		if b.ID != id {
			continue
		}
		if !b.Allocated {
			return false
		}
		b.Allocated = false
		b.LastTouched = a.clk.Now()
		return true
	}
	return false
}

// Defragment merges offset-adjacent free blocks, visiting candidates in
// ascending size order and restarting until no merge applies. It
// returns the number of merges performed. Each merge keeps the
// lower-offset block and grows it over its neighbor.
func (a *Arena) Defragment() int {
	merges := 0
	for {
		if !a.mergeOnce() {
			return merges
		}
		merges++
	}
}

func (a *Arena) mergeOnce() bool {
	free := make([]*Block, 0, len(a.blocks))
	for _, b := range a.blocks {
		if !b.Allocated {
			free = append(free, b)
		}
	}
	sort.Slice(free, func(i, j int) bool {
		if free[i].Size != free[j].Size {
			return free[i].Size < free[j].Size
		}
		return free[i].Offset < free[j].Offset
	})

	for _, b := range free {
		for _, n := range free {
			if n == b {
				continue
			}
			var lo, hi *Block
			switch {
			case b.Offset+b.Size == n.Offset:
				lo, hi = b, n
			case n.Offset+n.Size == b.Offset:
				lo, hi = n, b
			default:
				continue
			}
			lo.Size += hi.Size
			lo.buf = make([]byte, lo.Size)
			lo.LastTouched = a.clk.Now()
			a.remove(hi.ID)
			return true
		}
	}
	return false
}

func (a *Arena) remove(id uint64) {
	for i, b := range a.blocks {
		if b.ID == id {
			a.blocks = append(a.blocks[:i], a.blocks[i+1:]...)
			return
		}
	}
}

// Allocated returns the total bytes held by allocated blocks.
func (a *Arena) Allocated() int64 {
	var n int64
	for _, b := range a.blocks {
		if b.Allocated {
			n += b.Size
		}
	}
	return n
}

// FreeBytes returns the total bytes held by free-listed blocks.
func (a *Arena) FreeBytes() int64 {
	var n int64
	for _, b := range a.blocks {
		if !b.Allocated {
			n += b.Size
		}
	}
	return n
}

// Accounted returns the total bytes carved into blocks, allocated or
// free. Allocated()+FreeBytes() == Accounted() always holds.
func (a *Arena) Accounted() int64 {
	var n int64
	for _, b := range a.blocks {
		n += b.Size
	}
	return n
}

// Total returns the arena capacity in bytes.
func (a *Arena) Total() int64 { return a.capacity }

// Len returns the current number of blocks.
func (a *Arena) Len() int { return len(a.blocks) }

// Blocks returns a copy of the block descriptors ordered by offset.
func (a *Arena) Blocks() []Block {
	out := make([]Block, len(a.blocks))
	for i, b := range a.blocks {
		out[i] = *b
		out[i].buf = nil
	}
	return out
}

// Reset drops every block and restores full capacity.
func (a *Arena) Reset() {
	a.blocks = nil
	a.high = 0
	a.nextID = 0
}
