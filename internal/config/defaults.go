package config

const (
	defaultOutputDir             = "~/.local/share/vigil/recordings"
	defaultLogDir                = "~/.local/share/vigil/logs"
	defaultDetectorURL           = "http://127.0.0.1:8500/detect"
	defaultConfidence            = 0.5
	defaultMinPersonArea         = 2000
	defaultThresholdFrames       = 8
	defaultExitPatienceSecs      = 5
	defaultAlertCooldownSecs     = 300
	defaultFramesPerSecond       = 20
	defaultRecordingContainer    = "mjpeg"
	defaultTargetReduction       = 50
	defaultMinReduction          = 5
	defaultLargeFileMiB          = 500
	defaultMediumFileMiB         = 100
	defaultQuality               = "medium"
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultRegion                = "us-east-1"
	defaultMultipartThresholdMiB = 100
	defaultPartSizeMiB           = 25
	defaultMaxRetries            = 3
	defaultRetryBackoffSecs      = 2
	defaultUploadConcurrency     = 5
	defaultNotifyRequestTimeout  = 10
	defaultQueuePollInterval     = 5
	defaultShutdownGraceSecs     = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Detection: Detection{
			DetectorURL:        defaultDetectorURL,
			Confidence:         defaultConfidence,
			MinPersonArea:      defaultMinPersonArea,
			ThresholdFrames:    defaultThresholdFrames,
			ExitPatienceSecs:   defaultExitPatienceSecs,
			AlertCooldownSecs:  defaultAlertCooldownSecs,
			FramesPerSecond:    defaultFramesPerSecond,
			RecordingContainer: defaultRecordingContainer,
		},
		Compression: Compression{
			Enabled:         true,
			TargetReduction: defaultTargetReduction,
			MinReduction:    defaultMinReduction,
			LargeFileMiB:    defaultLargeFileMiB,
			MediumFileMiB:   defaultMediumFileMiB,
			Quality:         defaultQuality,
			FFmpegBinary:    defaultFFmpegBinary,
			FFprobeBinary:   defaultFFprobeBinary,
		},
		Storage: Storage{
			Region:                defaultRegion,
			MultipartThresholdMiB: defaultMultipartThresholdMiB,
			PartSizeMiB:           defaultPartSizeMiB,
			MaxRetries:            defaultMaxRetries,
			RetryBackoffSecs:      defaultRetryBackoffSecs,
			UploadConcurrency:     defaultUploadConcurrency,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completions:    true,
			Errors:         true,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
			ShutdownGraceSecs: defaultShutdownGraceSecs,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
