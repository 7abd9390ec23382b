package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend stores reports as JSON files in one directory. It is the
// default backend.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("archive: resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".javelin", "runs")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("archive: create %q: %w", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the backing directory.
func (b *FileBackend) Dir() string { return b.dir }

func (b *FileBackend) path(id string) string {
	return filepath.Join(b.dir, id+".json")
}

// Save persists a report as pretty-printed JSON.
func (b *FileBackend) Save(ctx context.Context, rep *RunReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: marshal report: %w", err)
	}
	if err := os.WriteFile(b.path(rep.RunID), data, 0644); err != nil {
		return fmt.Errorf("archive: write report: %w", err)
	}
	return nil
}

// Load retrieves a report by run id.
func (b *FileBackend) Load(ctx context.Context, id string) (*RunReport, error) {
	data, err := os.ReadFile(b.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("archive: read report: %w", err)
	}
	var rep RunReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("archive: unmarshal report: %w", err)
	}
	return &rep, nil
}

// Delete removes a report file.
func (b *FileBackend) Delete(ctx context.Context, id string) error {
	if err := os.Remove(b.path(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// List returns all reports in the directory, newest first. Unreadable
// files are skipped.
func (b *FileBackend) List(ctx context.Context) ([]*RunReport, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("archive: read dir: %w", err)
	}
	var reps []*RunReport
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		rep, err := b.Load(ctx, strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		reps = append(reps, rep)
	}
	sortReports(reps)
	return reps, nil
}

// Name returns "file".
func (b *FileBackend) Name() string { return "file" }
