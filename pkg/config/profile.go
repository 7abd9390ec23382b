package config

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownProfile is returned when a profile name has no definition.
var ErrUnknownProfile = errors.New("config: unknown profile")

// Profile sizes the runtime subsystems for one interpretation
// environment: heap budget, off-heap arena, collector thresholds, and
// the execution guards.
type Profile struct {
	Name              string
	HeapBudgetBytes   int64
	OffHeapBytes      int64
	GCThreshold       float64
	LargeObjectBytes  int64
	MaxLoopIterations int
	SnapshotCapacity  int
	RecursionCeiling  int
	MetricsLogSize    int
}

var profiles = map[string]Profile{
	"default": {
		Name:              "default",
		HeapBudgetBytes:   1024 * 1024,
		OffHeapBytes:      512 * 1024,
		GCThreshold:       0.70,
		LargeObjectBytes:  1024,
		MaxLoopIterations: 10000,
		SnapshotCapacity:  1000,
		RecursionCeiling:  100,
		MetricsLogSize:    50,
	},
	// embedded mimics a constrained target: small heap, tight guards.
	"embedded": {
		Name:              "embedded",
		HeapBudgetBytes:   256 * 1024,
		OffHeapBytes:      64 * 1024,
		GCThreshold:       0.60,
		LargeObjectBytes:  512,
		MaxLoopIterations: 2000,
		SnapshotCapacity:  200,
		RecursionCeiling:  32,
		MetricsLogSize:    25,
	},
	// generous trades memory for longer demo programs.
	"generous": {
		Name:              "generous",
		HeapBudgetBytes:   8 * 1024 * 1024,
		OffHeapBytes:      4 * 1024 * 1024,
		GCThreshold:       0.80,
		LargeObjectBytes:  4096,
		MaxLoopIterations: 100000,
		SnapshotCapacity:  5000,
		RecursionCeiling:  256,
		MetricsLogSize:    100,
	},
}

// ProfileNames lists the known profiles, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProfileByName looks up a profile definition.
func ProfileByName(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// Resolve applies the explicit engine overrides on top of the named
// profile.
func (c EngineConfig) Resolve() (Profile, error) {
	name := c.Profile
	if name == "" {
		name = "default"
	}
	p, err := ProfileByName(name)
	if err != nil {
		return Profile{}, err
	}

	if c.HeapBudgetBytes != 0 {
		p.HeapBudgetBytes = c.HeapBudgetBytes
	}
	if c.OffHeapBytes != 0 {
		p.OffHeapBytes = c.OffHeapBytes
	}
	if c.GCThreshold != 0 {
		p.GCThreshold = c.GCThreshold
	}
	if c.LargeObjectBytes != 0 {
		p.LargeObjectBytes = c.LargeObjectBytes
	}
	if c.MaxLoopIterations != 0 {
		p.MaxLoopIterations = c.MaxLoopIterations
	}
	if c.SnapshotCapacity != 0 {
		p.SnapshotCapacity = c.SnapshotCapacity
	}
	if c.RecursionCeiling != 0 {
		p.RecursionCeiling = c.RecursionCeiling
	}
	return p, nil
}
