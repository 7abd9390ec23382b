// Package perf times the interpretation pipeline phase by phase and
// ranks where runs spend their time.
package perf

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Profiler aggregates phase timings across runs. A nil Profiler is
// valid and records nothing, so callers can wire it unconditionally.
type Profiler struct {
	mu      sync.Mutex
	started time.Time
	phases  map[string]*phaseAgg
}

type phaseAgg struct {
	total time.Duration
	count int64
}

// New creates a profiler. The report window starts now.
func New() *Profiler {
	return &Profiler{
		started: time.Now(),
		phases:  make(map[string]*phaseAgg),
	}
}

// StartPhase begins timing one phase; the returned func stops it.
func (p *Profiler) StartPhase(name string) func() {
	if p == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		d := time.Since(start)
		p.mu.Lock()
		agg, ok := p.phases[name]
		if !ok {
			agg = &phaseAgg{}
			p.phases[name] = agg
		}
		agg.total += d
		agg.count++
		p.mu.Unlock()
	}
}

// Phase is one row of the report.
type Phase struct {
	Name  string        `json:"name"`
	Total time.Duration `json:"total"`
	Count int64         `json:"count"`
	Pct   float64       `json:"pct"`
}

// Report summarizes the recorded phases, slowest first. Pct is the
// share of the whole window, so phases that overlap other work (or
// idle gaps between runs) do not sum to 100.
type Report struct {
	Window time.Duration `json:"window"`
	Phases []Phase       `json:"phases"`
}

// Report snapshots the current aggregates.
func (p *Profiler) Report() *Report {
	if p == nil {
		return &Report{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	rep := &Report{Window: time.Since(p.started)}
	for name, agg := range p.phases {
		pct := 0.0
		if rep.Window > 0 {
			pct = float64(agg.total) / float64(rep.Window) * 100
		}
		rep.Phases = append(rep.Phases, Phase{
			Name:  name,
			Total: agg.total,
			Count: agg.count,
			Pct:   pct,
		})
	}
	sort.Slice(rep.Phases, func(i, j int) bool {
		return rep.Phases[i].Total > rep.Phases[j].Total
	})
	return rep
}

// String renders the ranked phase table.
func (r *Report) String() string {
	var b strings.Builder
	b.WriteString("PHASE BREAKDOWN:\n")
	if len(r.Phases) == 0 {
		b.WriteString("  (no phases recorded)\n")
		return b.String()
	}
	for _, ph := range r.Phases {
		fmt.Fprintf(&b, "  %-10s %v over %d calls (%.1f%%)\n",
			ph.Name+":", ph.Total.Round(time.Microsecond), ph.Count, ph.Pct)
	}
	return b.String()
}
