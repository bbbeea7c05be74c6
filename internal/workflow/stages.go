package workflow

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"

	"vigil/internal/compression"
	"vigil/internal/config"
	"vigil/internal/events"
	"vigil/internal/stage"
	"vigil/internal/uploader"
)

// pipelineStage binds a stage handler to its status transitions.
type pipelineStage struct {
	name       string
	pending    events.Status
	processing events.Status
	done       events.Status
	handler    stage.Handler
}

// compressStage shrinks a recorded file, or passes it through unchanged
// when compression is disabled or every codec candidate fails.
type compressStage struct {
	cfg        *config.Config
	compressor *compression.Compressor
}

func newCompressStage(cfg *config.Config, compressor *compression.Compressor) *compressStage {
	return &compressStage{cfg: cfg, compressor: compressor}
}

func (s *compressStage) Prepare(_ context.Context, event *events.Event) error {
	if _, err := os.Stat(event.LocalPath); err != nil {
		return events.Wrap(events.ErrLocalFatal, "compress", "prepare", "recording missing", err)
	}
	return nil
}

func (s *compressStage) Execute(ctx context.Context, event *events.Event) error {
	if !s.cfg.Compression.Enabled {
		event.FinalBytes = event.OriginalBytes
		return nil
	}

	result, err := s.compressor.Compress(ctx, event.LocalPath)
	if err != nil {
		return err
	}
	if result.StoredOriginal {
		event.FinalBytes = event.OriginalBytes
		return nil
	}
	event.CompressedPath = result.Path
	event.Codec = string(result.Codec)
	event.FinalBytes = result.FinalBytes
	return nil
}

func (s *compressStage) HealthCheck(context.Context) stage.Health {
	if !s.cfg.Compression.Enabled {
		return stage.Healthy("compress")
	}
	if _, err := exec.LookPath(s.cfg.Compression.FFmpegBinary); err != nil {
		return stage.Unhealthy("compress", s.cfg.Compression.FFmpegBinary+" not found in PATH")
	}
	return stage.Healthy("compress")
}

// uploadStage hands the event file to the upload pool and blocks until the
// job reaches a terminal state.
type uploadStage struct {
	cfg     *config.Config
	uploads *uploader.Manager
}

func newUploadStage(cfg *config.Config, uploads *uploader.Manager) *uploadStage {
	return &uploadStage{cfg: cfg, uploads: uploads}
}

func (s *uploadStage) Prepare(_ context.Context, event *events.Event) error {
	if _, err := os.Stat(event.UploadPath()); err != nil {
		return events.Wrap(events.ErrLocalFatal, "upload", "prepare", "upload source missing", err)
	}
	return nil
}

func (s *uploadStage) Execute(ctx context.Context, event *events.Event) error {
	path := event.UploadPath()
	key := filepath.Base(path)

	handle, err := s.uploads.Submit(uploader.Job{
		EventID: event.EventID,
		Path:    path,
		Key:     key,
	})
	if err != nil {
		if errors.Is(err, uploader.ErrDuplicateKey) {
			return events.Wrap(events.ErrTransient, "upload", "submit", key, err)
		}
		return err
	}

	result, err := handle.Await(ctx)
	if err != nil {
		return err
	}
	event.RemoteKey = result.Key
	event.RemoteURL = result.URL
	return nil
}

func (s *uploadStage) HealthCheck(context.Context) stage.Health {
	if s.cfg.Storage.Bucket == "" {
		return stage.Unhealthy("upload", "bucket not configured")
	}
	return stage.Healthy("upload")
}
