package config

const (
	defaultInboxDir         = "~/.local/share/lector/inbox"
	defaultStagingDir       = "~/.local/share/lector/staging"
	defaultLibraryDir       = "~/library"
	defaultLogDir           = "~/.local/share/lector/logs"
	defaultReviewDir        = "~/review"
	defaultAudiobooksDir    = "audiobooks"
	defaultLogRetentionDays = 60
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"

	defaultVoice             = "narrator"
	defaultMaxAttempts       = 3
	defaultMinRMS            = 0.001
	defaultTemperature       = 0.4
	defaultTopP              = 0.9
	defaultRepetitionPenalty = 1.1
	defaultMaxTokens         = 2500

	defaultEngineBinary         = "maya-tts"
	defaultEngineSampleRate     = 24000
	defaultEngineTokenBase      = 128266
	defaultEngineAlphabetSize   = 4096
	defaultEngineStartupTimeout = 120

	defaultChunkMaxWords = 70
	defaultChunkMaxChars = 350

	defaultExportFormat      = "m4b"
	defaultExportBitrate     = "64k"
	defaultChunkGapSeconds   = 0.25
	defaultChapterGapSeconds = 2.0

	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 600

	defaultNotifyQueueMinItems      = 1
	defaultNotifyDedupWindowSeconds = 600
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InboxDir:   defaultInboxDir,
			StagingDir: defaultStagingDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			ReviewDir:  defaultReviewDir,
		},
		Chunking: Chunking{
			MaxWords: defaultChunkMaxWords,
			MaxChars: defaultChunkMaxChars,
		},
		Synthesis: Synthesis{
			Voice:             defaultVoice,
			MaxAttempts:       defaultMaxAttempts,
			MinRMS:            defaultMinRMS,
			Temperature:       defaultTemperature,
			TopP:              defaultTopP,
			RepetitionPenalty: defaultRepetitionPenalty,
			MaxTokens:         defaultMaxTokens,
		},
		Engine: Engine{
			Binary:         defaultEngineBinary,
			SampleRate:     defaultEngineSampleRate,
			TokenBase:      defaultEngineTokenBase,
			AlphabetSize:   defaultEngineAlphabetSize,
			StartupTimeout: defaultEngineStartupTimeout,
		},
		Export: Export{
			Format:            defaultExportFormat,
			Bitrate:           defaultExportBitrate,
			ChunkGapSeconds:   defaultChunkGapSeconds,
			ChapterGapSeconds: defaultChapterGapSeconds,
			ValidateOutput:    true,
		},
		Library: Library{
			AudiobooksDir: defaultAudiobooksDir,
		},
		Notifications: Notifications{
			RequestTimeout:     10,
			Plan:               true,
			Synthesis:          true,
			Export:             true,
			Organization:       true,
			Queue:              true,
			Review:             true,
			Errors:             true,
			QueueMinItems:      defaultNotifyQueueMinItems,
			DedupWindowSeconds: defaultNotifyDedupWindowSeconds,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
			InboxScanInterval:  10,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
