// Package testsupport provides shared constructors for package tests:
// configs seeded with unique temp directories and opened event stores.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vigil/internal/config"
	"vigil/internal/events"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "recordings")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Storage.Bucket = "vigil-test"
	cfg.Storage.AccessKeyID = "test"
	cfg.Storage.SecretAccessKey = "test"
	cfg.Detection.DetectorURL = "http://127.0.0.1:8500/detect"
	cfg.Cameras = []config.Camera{
		{ID: "cam1", Source: "test://cam1", Enabled: true},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithCameras overrides the camera list on the test config.
func WithCameras(cams ...config.Camera) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Cameras = cams
	}
}

// WithUploadConcurrency overrides the upload worker pool size.
func WithUploadConcurrency(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Storage.UploadConcurrency = n
	}
}

// MustOpenStore opens the event store for the config and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *events.Store {
	t.Helper()
	store, err := events.Open(cfg)
	if err != nil {
		t.Fatalf("open event store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// WriteFile creates a file with the given contents under dir and returns its path.
func WriteFile(t testing.TB, dir, name string, contents []byte) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
