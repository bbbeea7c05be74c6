package config

import (
	"os"
	"strings"
)

// normalize expands paths, trims string fields, and applies environment
// fallbacks for storage credentials.
func (c *Config) normalize() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	for i := range c.Cameras {
		c.Cameras[i].ID = strings.TrimSpace(c.Cameras[i].ID)
		c.Cameras[i].Source = strings.TrimSpace(c.Cameras[i].Source)
	}

	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.Region = strings.TrimSpace(c.Storage.Region)
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.PublicURLBase = strings.TrimRight(strings.TrimSpace(c.Storage.PublicURLBase), "/")

	// Credentials may live in the environment instead of the config file.
	if c.Storage.AccessKeyID == "" {
		c.Storage.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	}
	if c.Storage.SecretAccessKey == "" {
		c.Storage.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = strings.TrimSpace(os.Getenv("VIGIL_S3_BUCKET"))
	}
	if region := strings.TrimSpace(os.Getenv("AWS_S3_REGION")); region != "" && c.Storage.Region == defaultRegion {
		c.Storage.Region = region
	}

	c.Compression.Quality = strings.ToLower(strings.TrimSpace(c.Compression.Quality))
	if c.Compression.Quality == "" {
		c.Compression.Quality = defaultQuality
	}
	if strings.TrimSpace(c.Compression.FFmpegBinary) == "" {
		c.Compression.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Compression.FFprobeBinary) == "" {
		c.Compression.FFprobeBinary = defaultFFprobeBinary
	}

	c.Detection.DetectorURL = strings.TrimSpace(c.Detection.DetectorURL)
	c.Detection.RecordingContainer = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Detection.RecordingContainer)), ".")
	if c.Detection.RecordingContainer == "" {
		c.Detection.RecordingContainer = defaultRecordingContainer
	}

	urls := make([]string, 0, len(c.Notifications.ServiceURLs))
	for _, raw := range c.Notifications.ServiceURLs {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	c.Notifications.ServiceURLs = urls

	return nil
}
