package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vigil/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
[storage]
bucket = "vigil-test"

[[camera]]
id = "front"
source = "http://example.test/video"
enabled = true
`

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	path := writeConfig(t, minimalConfig)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected config to resolve, got exists=%v path=%q", exists, resolved)
	}
	if cfg.Detection.ThresholdFrames != 8 {
		t.Errorf("threshold_frames default = %d, want 8", cfg.Detection.ThresholdFrames)
	}
	if cfg.ExitPatience().Seconds() != 5 {
		t.Errorf("exit patience default = %v, want 5s", cfg.ExitPatience())
	}
	if cfg.Storage.Region != "us-east-1" {
		t.Errorf("region default = %q", cfg.Storage.Region)
	}
	if cfg.MultipartThresholdBytes() != 100*1024*1024 {
		t.Errorf("multipart threshold = %d", cfg.MultipartThresholdBytes())
	}
	if got := len(cfg.EnabledCameras()); got != 1 {
		t.Errorf("enabled cameras = %d, want 1", got)
	}
}

func TestLoadRejectsInvalidThresholds(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "confidence out of range",
			body:    minimalConfig + "\n[detection]\nconfidence = 1.5\n",
			wantErr: "detection.confidence",
		},
		{
			name:    "zero threshold frames",
			body:    minimalConfig + "\n[detection]\nthreshold_frames = 0\n",
			wantErr: "detection.threshold_frames",
		},
		{
			name:    "negative area",
			body:    minimalConfig + "\n[detection]\nmin_person_area = -1\n",
			wantErr: "detection.min_person_area",
		},
		{
			name:    "bad target reduction",
			body:    minimalConfig + "\n[compression]\ntarget_reduction = 95\n",
			wantErr: "compression.target_reduction",
		},
		{
			name:    "zero upload concurrency",
			body:    "[storage]\nbucket = \"b\"\nupload_concurrency = 0\n",
			wantErr: "storage.upload_concurrency",
		},
		{
			name:    "duplicate camera",
			body:    minimalConfig + "\n[[camera]]\nid = \"front\"\nsource = \"x\"\nenabled = false\n",
			wantErr: "duplicated",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadRequiresBucket(t *testing.T) {
	t.Setenv("VIGIL_S3_BUCKET", "")
	path := writeConfig(t, "[paths]\n")
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "storage.bucket") {
		t.Fatalf("expected bucket error, got %v", err)
	}
}

func TestEnvironmentCredentialFallback(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	path := writeConfig(t, minimalConfig)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.AccessKeyID != "AKIAEXAMPLE" || cfg.Storage.SecretAccessKey != "secret" {
		t.Fatalf("credentials not read from environment: %+v", cfg.Storage)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("VIGIL_S3_BUCKET", "sample-bucket")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}
