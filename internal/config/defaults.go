package config

const (
	defaultDataDir             = "~/.local/share/pressline"
	defaultLogDir              = "~/.local/share/pressline/logs"
	defaultLockFile            = "~/.local/share/pressline/presslined.lock"
	defaultAPIBind             = "127.0.0.1:7581"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 60
	defaultWordPressTimeout    = 30
	defaultSlackTimeout        = 10
	defaultTextGenBaseURL      = "https://openrouter.ai/api/v1/chat/completions"
	defaultTextGenModel        = "anthropic/claude-sonnet-4.5"
	defaultTextGenTimeout      = 120
	defaultMediaGenBaseURL     = "https://api.kie.ai/api/v1"
	defaultMediaPollInterval   = 10
	defaultMediaPollTimeout    = 600
	defaultAudioGenBaseURL     = "https://api.elevenlabs.io/v1"
	defaultAudioGenTimeout     = 180
	defaultSEOScoreThreshold   = 80
	defaultStuckDraftHours     = 24
	defaultHealerScanLimit     = 50
	defaultStageTimeoutSeconds = 300
	defaultStaleRunHours       = 6
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			LockFile: defaultLockFile,
			APIBind:  defaultAPIBind,
		},
		WordPress: WordPress{
			TimeoutSeconds: defaultWordPressTimeout,
		},
		Slack: Slack{
			RequestTimeout: defaultSlackTimeout,
		},
		TextGen: TextGen{
			BaseURL:        defaultTextGenBaseURL,
			Model:          defaultTextGenModel,
			TimeoutSeconds: defaultTextGenTimeout,
		},
		MediaGen: MediaGen{
			BaseURL:             defaultMediaGenBaseURL,
			PollIntervalSeconds: defaultMediaPollInterval,
			PollTimeoutSeconds:  defaultMediaPollTimeout,
		},
		AudioGen: AudioGen{
			BaseURL:        defaultAudioGenBaseURL,
			TimeoutSeconds: defaultAudioGenTimeout,
		},
		Healer: Healer{
			SEOScoreThreshold: defaultSEOScoreThreshold,
			StuckDraftHours:   defaultStuckDraftHours,
			ScanLimit:         defaultHealerScanLimit,
		},
		Workflow: Workflow{
			StageTimeoutSeconds: defaultStageTimeoutSeconds,
			StaleRunHours:       defaultStaleRunHours,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
