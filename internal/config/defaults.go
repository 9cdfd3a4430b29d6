package config

const (
	defaultDataDir         = "~/.local/share/clipper"
	defaultUploadDir       = "~/.local/share/clipper/uploads"
	defaultScratchDir      = "~/.cache/clipper/scratch"
	defaultLogDir          = "~/.local/share/clipper/logs"
	defaultServerBind      = "127.0.0.1:7491"
	defaultBaseURL         = "http://localhost:7491"
	defaultFFmpegBinary    = "ffmpeg"
	defaultFFprobeBinary   = "ffprobe"
	defaultDisplayInput    = "x11grab"
	defaultDisplayDevice   = ":0.0"
	defaultAudioInput      = "pulse"
	defaultAudioDevice     = "default"
	defaultCaptureWidth    = 1920
	defaultCaptureHeight   = 1080
	defaultCaptureFPS      = 30
	defaultVideoBitrate    = 2500000
	defaultChunkIntervalMS = 1000
	defaultTickIntervalMS  = 100
	defaultTrimFormat      = "webm"
	defaultTrimPreset      = "ultrafast"
	defaultReportWorkers   = 2
	defaultReportQueueSize = 64
	defaultReportRetries   = 2
	defaultReportTimeoutMS = 5000
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			UploadDir:  defaultUploadDir,
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Server: Server{
			Bind:    defaultServerBind,
			BaseURL: defaultBaseURL,
		},
		Capture: Capture{
			FFmpegBinary:    defaultFFmpegBinary,
			DisplayInput:    defaultDisplayInput,
			AudioInput:      defaultAudioInput,
			AudioDevice:     defaultAudioDevice,
			Width:           defaultCaptureWidth,
			Height:          defaultCaptureHeight,
			FrameRate:       defaultCaptureFPS,
			VideoBitrate:    defaultVideoBitrate,
			ChunkIntervalMS: defaultChunkIntervalMS,
			TickIntervalMS:  defaultTickIntervalMS,
		},
		Transcode: Transcode{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			DefaultFormat: defaultTrimFormat,
			Preset:        defaultTrimPreset,
		},
		Analytics: Analytics{
			Workers:    defaultReportWorkers,
			QueueSize:  defaultReportQueueSize,
			MaxRetries: defaultReportRetries,
			TimeoutMS:  defaultReportTimeoutMS,
		},
		Storage: Storage{
			Backend: StorageLocal,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
