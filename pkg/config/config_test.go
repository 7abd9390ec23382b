package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Version != 1 {
		t.Errorf("version = %d", cfg.Version)
	}
	if cfg.Engine.Profile != "default" {
		t.Errorf("profile = %q", cfg.Engine.Profile)
	}
	if cfg.Server.Port != 8090 || cfg.Server.Host != "localhost" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Telemetry.Enabled {
		t.Error("telemetry must default to disabled")
	}
	if cfg.Archive.Backend != "file" {
		t.Errorf("archive backend = %q", cfg.Archive.Backend)
	}
}

func TestProfileByName(t *testing.T) {
	p, err := ProfileByName("default")
	if err != nil {
		t.Fatalf("ProfileByName(default): %v", err)
	}
	if p.HeapBudgetBytes != 1024*1024 || p.GCThreshold != 0.70 {
		t.Fatalf("default profile = %+v", p)
	}

	if _, err := ProfileByName("gigantic"); !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("err = %v, want ErrUnknownProfile", err)
	}
}

func TestProfileNamesSorted(t *testing.T) {
	want := []string{"default", "embedded", "generous"}
	if diff := cmp.Diff(want, ProfileNames()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveOverridesProfile(t *testing.T) {
	ec := EngineConfig{
		Profile:          "embedded",
		HeapBudgetBytes:  100_000,
		RecursionCeiling: 16,
	}
	p, err := ec.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.HeapBudgetBytes != 100_000 {
		t.Errorf("heap budget = %d, want explicit override", p.HeapBudgetBytes)
	}
	if p.RecursionCeiling != 16 {
		t.Errorf("ceiling = %d, want explicit override", p.RecursionCeiling)
	}
	// Unset knobs keep the embedded profile's values.
	if p.GCThreshold != 0.60 || p.MaxLoopIterations != 2000 {
		t.Errorf("profile base lost: %+v", p)
	}
}

func TestResolveEmptyNameIsDefault(t *testing.T) {
	p, err := EngineConfig{}.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Name != "default" {
		t.Fatalf("profile = %q", p.Name)
	}
}

func TestLoadFileMerges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
engine:
  profile: generous
  recursion_ceiling: 64
server:
  port: 9999
archive:
  backend: redis
  redis:
    addr: cache:6379
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	cfg := m.Get()
	if cfg.Engine.Profile != "generous" || cfg.Engine.RecursionCeiling != 64 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("host = %q, unset fields must keep defaults", cfg.Server.Host)
	}
	if cfg.Archive.Backend != "redis" || cfg.Archive.Redis.Addr != "cache:6379" {
		t.Errorf("archive = %+v", cfg.Archive)
	}
	if got := m.GetPaths(); len(got) != 1 || got[0] != path {
		t.Errorf("paths = %v", got)
	}
}

func TestLoadFileMissing(t *testing.T) {
	m := NewManager()
	if err := m.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadFile on a missing path must error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("JAVELIN_PROFILE", "embedded")
	t.Setenv("JAVELIN_PORT", "7070")
	t.Setenv("JAVELIN_ARCHIVE_BACKEND", "s3")
	t.Setenv("JAVELIN_OTLP_ENDPOINT", "collector:4317")

	m := NewManager()
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg := m.Get()
	if cfg.Engine.Profile != "embedded" {
		t.Errorf("profile = %q", cfg.Engine.Profile)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Archive.Backend != "s3" {
		t.Errorf("backend = %q", cfg.Archive.Backend)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Endpoint != "collector:4317" {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
}
