package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"vigil/internal/camera"
	"vigil/internal/compression"
	"vigil/internal/config"
	"vigil/internal/daemon"
	"vigil/internal/deps"
	"vigil/internal/eventlog"
	"vigil/internal/events"
	"vigil/internal/logging"
	"vigil/internal/notifications"
	"vigil/internal/uploader"
	"vigil/internal/workflow"
)

// detectorTimeout bounds a single frame round trip to the detection
// service. Timed-out frames are skipped, not retried.
const detectorTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "vigild.log")},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("vigild failed", logging.Error(err))
		log.Fatalf("vigild: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logDependencySnapshot(logger, cfg)

	store, err := events.Open(cfg)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}

	notifier, err := notifications.NewService(cfg, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("init notifications: %w", err)
	}

	compressor, err := compression.New(cfg, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("init compressor: %w", err)
	}

	remote, err := uploader.NewS3Store(ctx, cfg)
	if err != nil {
		store.Close()
		return fmt.Errorf("init object store: %w", err)
	}
	uploads := uploader.NewManager(cfg, remote, logger)

	audit := eventlog.New(cfg, logger)
	defer audit.Close()

	manager := workflow.NewManager(cfg, store, logger, notifier, audit, compressor, uploads)
	manager.AttachCameras(buildCameras(cfg)...)

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-ctx.Done()
	logger.Info("vigild shutting down")
	return nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	for _, status := range deps.CheckBinaries(deps.ForConfig(cfg)) {
		if status.Available {
			logger.Info("external dependency available",
				logging.String("dependency", status.Name),
				logging.String("command", status.Command),
			)
			continue
		}
		level := logger.Warn
		if !status.Optional {
			level = logger.Error
		}
		level("external dependency missing",
			logging.String("dependency", status.Name),
			logging.String("detail", status.Detail),
		)
	}
}

func buildCameras(cfg *config.Config) []workflow.Camera {
	enabled := cfg.EnabledCameras()
	cameras := make([]workflow.Camera, 0, len(enabled))
	for _, cam := range enabled {
		cameras = append(cameras, workflow.Camera{
			ID:       cam.ID,
			Source:   camera.NewMJPEGSource(cam.ID, cam.Source),
			Detector: camera.NewHTTPDetector(cfg.Detection.DetectorURL, detectorTimeout),
		})
	}
	return cameras
}
