// Package archive persists run reports. A report is the durable
// summary of one interpretation: output, diagnostics, violations, and
// collection totals, without the snapshot timeline. Backends store
// reports on the local filesystem, in Redis, or in S3.
package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/javelinrt/javelin/pkg/analysis"
	"github.com/javelinrt/javelin/pkg/config"
	"github.com/javelinrt/javelin/pkg/deadline"
	"github.com/javelinrt/javelin/pkg/engine"
	"github.com/javelinrt/javelin/pkg/safety"
)

// ErrNotFound is returned when a report id has no stored report.
var ErrNotFound = errors.New("archive: report not found")

// RunReport is the persisted summary of one run.
type RunReport struct {
	RunID              string                `json:"runId"`
	Source             string                `json:"source,omitempty"`
	CreatedAt          time.Time             `json:"createdAt"`
	DurationMs         float64               `json:"durationMs"`
	Output             string                `json:"output"`
	Halted             bool                  `json:"halted"`
	Diagnostics        []analysis.Diagnostic `json:"diagnostics,omitempty"`
	SafetyViolations   []safety.Violation    `json:"safetyViolations,omitempty"`
	DeadlineViolations []deadline.Violation  `json:"deadlineViolations,omitempty"`
	GCCollections      int64                 `json:"gcCollections"`
	MaxHeapUsedPct     float64               `json:"maxHeapUsedPct"`
	Snapshots          int                   `json:"snapshots"`
}

// NewReport summarizes an engine result for persistence.
func NewReport(res *engine.Result, source string, at time.Time) *RunReport {
	rep := &RunReport{
		RunID:              res.RunID.String(),
		Source:             source,
		CreatedAt:          at,
		DurationMs:         float64(res.Duration.Microseconds()) / 1000.0,
		Output:             res.Output,
		Halted:             res.Halted,
		Diagnostics:        res.Diagnostics,
		SafetyViolations:   res.SafetyViolations,
		DeadlineViolations: res.DeadlineViolations,
		Snapshots:          len(res.Snapshots),
	}
	for _, s := range res.GCMetrics {
		if s.Collections > rep.GCCollections {
			rep.GCCollections = s.Collections
		}
		if s.HeapUsagePct > rep.MaxHeapUsedPct {
			rep.MaxHeapUsedPct = s.HeapUsagePct
		}
	}
	return rep
}

// Backend defines the interface for report storage backends.
type Backend interface {
	// Save persists a report to the backend.
	Save(ctx context.Context, rep *RunReport) error

	// Load retrieves a report by run id.
	Load(ctx context.Context, id string) (*RunReport, error)

	// Delete removes a report.
	Delete(ctx context.Context, id string) error

	// List returns all reports, newest first.
	List(ctx context.Context) ([]*RunReport, error)

	// Name returns the backend name for logging/debugging.
	Name() string
}

// NewBackend builds the backend named by the archive configuration.
func NewBackend(ctx context.Context, cfg config.ArchiveConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileBackend(cfg.Dir)
	case "redis":
		rc := DefaultRedisConfig(cfg.Redis.Addr)
		rc.Password = cfg.Redis.Password
		rc.Database = cfg.Redis.DB
		return NewRedisBackend(rc)
	case "s3":
		sc := DefaultS3Config(cfg.S3.Bucket)
		sc.Region = cfg.S3.Region
		sc.Endpoint = cfg.S3.Endpoint
		if cfg.S3.Prefix != "" {
			sc.Prefix = cfg.S3.Prefix
		}
		return NewS3Backend(ctx, sc)
	default:
		return nil, fmt.Errorf("archive: unknown backend %q", cfg.Backend)
	}
}

// Prune deletes all but the newest keep reports.
func Prune(ctx context.Context, b Backend, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	reps, err := b.List(ctx)
	if err != nil {
		return 0, err
	}
	sortReports(reps)
	pruned := 0
	for _, rep := range reps[min(keep, len(reps)):] {
		if err := b.Delete(ctx, rep.RunID); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

// sortReports orders newest first.
func sortReports(reps []*RunReport) {
	sort.Slice(reps, func(i, j int) bool {
		return reps[i].CreatedAt.After(reps[j].CreatedAt)
	})
}
