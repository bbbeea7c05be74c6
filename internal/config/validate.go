package config

import (
	"errors"
	"fmt"
	"strings"
)

var validQualities = map[string]struct{}{
	"fast":     {},
	"medium":   {},
	"slow":     {},
	"veryslow": {},
}

// Validate ensures the configuration is usable. Malformed thresholds and
// missing storage settings fail here, before any camera loop starts.
func (c *Config) Validate() error {
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateCameras(); err != nil {
		return err
	}
	if err := c.validateCompression(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDetection() error {
	if c.Detection.Confidence < 0 || c.Detection.Confidence > 1 {
		return errors.New("detection.confidence must be between 0 and 1")
	}
	if c.Detection.MinPersonArea < 0 {
		return errors.New("detection.min_person_area must not be negative")
	}
	if c.Detection.ThresholdFrames <= 0 {
		return errors.New("detection.threshold_frames must be positive")
	}
	if c.Detection.ExitPatienceSecs <= 0 {
		return errors.New("detection.exit_patience_seconds must be positive")
	}
	if c.Detection.AlertCooldownSecs < 0 {
		return errors.New("detection.alert_cooldown_seconds must not be negative")
	}
	if c.Detection.FramesPerSecond <= 0 {
		return errors.New("detection.frames_per_second must be positive")
	}
	return nil
}

func (c *Config) validateCameras() error {
	seen := make(map[string]struct{}, len(c.Cameras))
	for _, cam := range c.Cameras {
		if cam.ID == "" {
			return errors.New("camera.id must be set for every camera")
		}
		if _, dup := seen[cam.ID]; dup {
			return fmt.Errorf("camera.id %q is duplicated", cam.ID)
		}
		seen[cam.ID] = struct{}{}
		if cam.Enabled && cam.Source == "" {
			return fmt.Errorf("camera %q is enabled but has no source", cam.ID)
		}
		if cam.Enabled && strings.TrimSpace(c.Detection.DetectorURL) == "" {
			return errors.New("detection.detector_url must be set when any camera is enabled")
		}
	}
	return nil
}

func (c *Config) validateCompression() error {
	if !c.Compression.Enabled {
		return nil
	}
	if c.Compression.TargetReduction < 10 || c.Compression.TargetReduction > 90 {
		return errors.New("compression.target_reduction must be between 10 and 90 (percent)")
	}
	if c.Compression.MinReduction < 0 || c.Compression.MinReduction > c.Compression.TargetReduction {
		return errors.New("compression.min_reduction must be between 0 and compression.target_reduction")
	}
	if c.Compression.MediumFileMiB <= 0 || c.Compression.LargeFileMiB <= c.Compression.MediumFileMiB {
		return errors.New("compression.large_file_mib must be greater than compression.medium_file_mib")
	}
	if _, ok := validQualities[c.Compression.Quality]; !ok {
		return fmt.Errorf("compression.quality must be one of fast, medium, slow, veryslow (got %q)", c.Compression.Quality)
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.Bucket == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/vigil/config.toml"
		}
		return fmt.Errorf("storage.bucket is required. Set VIGIL_S3_BUCKET env var or edit %s (create with 'vigil config new')", defaultPath)
	}
	if c.Storage.Region == "" {
		return errors.New("storage.region must be set")
	}
	if strings.TrimSpace(c.Storage.AccessKeyID) == "" && strings.TrimSpace(c.Storage.SecretAccessKey) != "" {
		return errors.New("storage.access_key_id must be set when storage.secret_access_key is set")
	}
	if strings.TrimSpace(c.Storage.SecretAccessKey) == "" && strings.TrimSpace(c.Storage.AccessKeyID) != "" {
		return errors.New("storage.secret_access_key must be set when storage.access_key_id is set")
	}
	if c.Storage.MultipartThresholdMiB <= 0 {
		return errors.New("storage.multipart_threshold_mib must be positive")
	}
	if c.Storage.PartSizeMiB <= 0 {
		return errors.New("storage.part_size_mib must be positive")
	}
	if c.Storage.MaxRetries <= 0 {
		return errors.New("storage.max_retries must be positive")
	}
	if c.Storage.RetryBackoffSecs <= 0 {
		return errors.New("storage.retry_backoff_seconds must be positive")
	}
	if c.Storage.UploadConcurrency <= 0 {
		return errors.New("storage.upload_concurrency must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ShutdownGraceSecs <= 0 {
		return errors.New("workflow.shutdown_grace_seconds must be positive")
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}
