// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env < flags
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config holds all Javelin configuration.
type Config struct {
	Version int `yaml:"version"`

	Engine    EngineConfig    `yaml:"engine"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// EngineConfig selects a runtime profile and optionally overrides its
// knobs. Zero values fall back to the profile.
type EngineConfig struct {
	Profile           string  `yaml:"profile"` // default | embedded | generous
	HeapBudgetBytes   int64   `yaml:"heap_budget_bytes"`
	OffHeapBytes      int64   `yaml:"off_heap_bytes"`
	GCThreshold       float64 `yaml:"gc_threshold"`
	LargeObjectBytes  int64   `yaml:"large_object_bytes"`
	MaxLoopIterations int     `yaml:"max_loop_iterations"`
	SnapshotCapacity  int     `yaml:"snapshot_capacity"`
	RecursionCeiling  int     `yaml:"recursion_ceiling"`
}

// ServerConfig for the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	Host        string   `yaml:"host"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// TelemetryConfig for optional span export.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// ArchiveConfig for run report persistence.
type ArchiveConfig struct {
	Backend string      `yaml:"backend"` // file | redis | s3
	Dir     string      `yaml:"dir"`
	Redis   RedisConfig `yaml:"redis"`
	S3      S3Config    `yaml:"s3"`
}

// RedisConfig for the redis archive backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// S3Config for the s3 archive backend.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Prefix   string `yaml:"prefix"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	javelinDir := filepath.Join(homeDir, ".javelin")

	return &Config{
		Version: 1,
		Engine: EngineConfig{
			Profile: "default",
		},
		Server: ServerConfig{
			Port:        8090,
			Host:        "localhost",
			CORSOrigins: []string{"*"},
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
		},
		Archive: ArchiveConfig{
			Backend: "file",
			Dir:     filepath.Join(javelinDir, "runs"),
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // Paths that were loaded
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Start with defaults
	m.config = Default()

	// Load from paths in order (later overrides earlier)
	paths := m.getConfigPaths()
	for _, path := range paths {
		if err := m.loadFile(path); err != nil {
			// Ignore missing files, but report errors for existing files
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	// Override with environment variables
	m.loadEnv()

	return nil
}

// LoadFile merges a single config file on top of the current state.
// Backs the --config flag.
func (m *Manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadFile(path); err != nil {
		return fmt.Errorf("load config %q: %w", path, err)
	}
	m.paths = append(m.paths, path)
	return nil
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	// System config
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/javelin/config.yaml")
	}

	// User config
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".javelin", "config.yaml"))
	}

	// Project config (current directory)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".javelin.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}

	// Merge non-zero values
	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	// Engine
	if src.Engine.Profile != "" {
		m.config.Engine.Profile = src.Engine.Profile
	}
	if src.Engine.HeapBudgetBytes != 0 {
		m.config.Engine.HeapBudgetBytes = src.Engine.HeapBudgetBytes
	}
	if src.Engine.OffHeapBytes != 0 {
		m.config.Engine.OffHeapBytes = src.Engine.OffHeapBytes
	}
	if src.Engine.GCThreshold != 0 {
		m.config.Engine.GCThreshold = src.Engine.GCThreshold
	}
	if src.Engine.LargeObjectBytes != 0 {
		m.config.Engine.LargeObjectBytes = src.Engine.LargeObjectBytes
	}
	if src.Engine.MaxLoopIterations != 0 {
		m.config.Engine.MaxLoopIterations = src.Engine.MaxLoopIterations
	}
	if src.Engine.SnapshotCapacity != 0 {
		m.config.Engine.SnapshotCapacity = src.Engine.SnapshotCapacity
	}
	if src.Engine.RecursionCeiling != 0 {
		m.config.Engine.RecursionCeiling = src.Engine.RecursionCeiling
	}

	// Server
	if src.Server.Port != 0 {
		m.config.Server.Port = src.Server.Port
	}
	if src.Server.Host != "" {
		m.config.Server.Host = src.Server.Host
	}
	if len(src.Server.CORSOrigins) > 0 {
		m.config.Server.CORSOrigins = src.Server.CORSOrigins
	}

	// Telemetry
	if src.Telemetry.Enabled {
		m.config.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		m.config.Telemetry.Endpoint = src.Telemetry.Endpoint
	}

	// Archive
	if src.Archive.Backend != "" {
		m.config.Archive.Backend = src.Archive.Backend
	}
	if src.Archive.Dir != "" {
		m.config.Archive.Dir = src.Archive.Dir
	}
	if src.Archive.Redis.Addr != "" {
		m.config.Archive.Redis.Addr = src.Archive.Redis.Addr
	}
	if src.Archive.Redis.Password != "" {
		m.config.Archive.Redis.Password = src.Archive.Redis.Password
	}
	if src.Archive.Redis.DB != 0 {
		m.config.Archive.Redis.DB = src.Archive.Redis.DB
	}
	if src.Archive.S3.Bucket != "" {
		m.config.Archive.S3.Bucket = src.Archive.S3.Bucket
	}
	if src.Archive.S3.Region != "" {
		m.config.Archive.S3.Region = src.Archive.S3.Region
	}
	if src.Archive.S3.Endpoint != "" {
		m.config.Archive.S3.Endpoint = src.Archive.S3.Endpoint
	}
	if src.Archive.S3.Prefix != "" {
		m.config.Archive.S3.Prefix = src.Archive.S3.Prefix
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	// JAVELIN_PROFILE
	if v := os.Getenv("JAVELIN_PROFILE"); v != "" {
		m.config.Engine.Profile = v
	}

	// JAVELIN_PORT
	if v := os.Getenv("JAVELIN_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			m.config.Server.Port = port
		}
	}

	// JAVELIN_ARCHIVE_BACKEND
	if v := os.Getenv("JAVELIN_ARCHIVE_BACKEND"); v != "" {
		m.config.Archive.Backend = v
	}

	// JAVELIN_OTLP_ENDPOINT
	if v := os.Getenv("JAVELIN_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Enabled = true
		m.config.Telemetry.Endpoint = v
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to the user config file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(home, ".javelin")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0644)
}

// Global instance
var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the global configuration manager.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
		globalManager.Load()
	})
	return globalManager
}
