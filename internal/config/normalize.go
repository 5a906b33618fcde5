package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEngine(); err != nil {
		return err
	}
	c.normalizeSynthesis()
	c.normalizeExport()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.InboxDir) == "" {
		c.Paths.InboxDir = defaultInboxDir
	}
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ReviewDir, err = expandPath(c.Paths.ReviewDir); err != nil {
		return fmt.Errorf("paths.review_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEngine() error {
	var err error
	c.Engine.Binary = strings.TrimSpace(c.Engine.Binary)
	if c.Engine.Binary == "" {
		c.Engine.Binary = defaultEngineBinary
	}
	if c.Engine.ModelDir == "" {
		if value, ok := os.LookupEnv("LECTOR_MODEL_DIR"); ok {
			c.Engine.ModelDir = strings.TrimSpace(value)
		}
	}
	if c.Engine.ModelDir, err = expandPath(c.Engine.ModelDir); err != nil {
		return fmt.Errorf("engine.model_dir: %w", err)
	}
	if c.Engine.StartupTimeout <= 0 {
		c.Engine.StartupTimeout = defaultEngineStartupTimeout
	}
	return nil
}

func (c *Config) normalizeSynthesis() {
	c.Synthesis.Voice = strings.TrimSpace(c.Synthesis.Voice)
	if c.Synthesis.Voice == "" {
		c.Synthesis.Voice = defaultVoice
	}
	if c.Synthesis.MaxAttempts <= 0 {
		c.Synthesis.MaxAttempts = defaultMaxAttempts
	}
	if c.Synthesis.MinRMS <= 0 {
		c.Synthesis.MinRMS = defaultMinRMS
	}
	if c.Synthesis.Workers < 0 {
		c.Synthesis.Workers = 0
	}
}

func (c *Config) normalizeExport() {
	c.Export.Format = strings.ToLower(strings.TrimSpace(c.Export.Format))
	if c.Export.Format == "" {
		c.Export.Format = defaultExportFormat
	}
	c.Export.Bitrate = strings.TrimSpace(c.Export.Bitrate)
	if c.Export.Bitrate == "" {
		c.Export.Bitrate = defaultExportBitrate
	}
	if c.Export.ChunkGapSeconds < 0 {
		c.Export.ChunkGapSeconds = defaultChunkGapSeconds
	}
	if c.Export.ChapterGapSeconds < 0 {
		c.Export.ChapterGapSeconds = defaultChapterGapSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("LECTOR_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
