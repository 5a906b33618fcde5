package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateSynthesis(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateChunking() error {
	if c.Chunking.MaxWords <= 0 {
		return errors.New("chunking.max_words must be positive")
	}
	if c.Chunking.MaxChars <= 0 {
		return errors.New("chunking.max_chars must be positive")
	}
	return nil
}

func (c *Config) validateSynthesis() error {
	if c.Synthesis.MaxAttempts < 1 {
		return errors.New("synthesis.max_attempts must be at least 1")
	}
	if c.Synthesis.MinRMS < 0 || c.Synthesis.MinRMS >= 1 {
		return errors.New("synthesis.min_rms must be in [0, 1)")
	}
	if c.Synthesis.Temperature <= 0 {
		return errors.New("synthesis.temperature must be positive")
	}
	if c.Synthesis.TopP <= 0 || c.Synthesis.TopP > 1 {
		return errors.New("synthesis.top_p must be in (0, 1]")
	}
	if c.Synthesis.RepetitionPenalty < 1 {
		return errors.New("synthesis.repetition_penalty must be at least 1")
	}
	if c.Synthesis.MaxTokens <= 0 {
		return errors.New("synthesis.max_tokens must be positive")
	}
	if c.Synthesis.Workers < 0 {
		return errors.New("synthesis.workers must be >= 0")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if strings.TrimSpace(c.Engine.Binary) == "" {
		return errors.New("engine.binary must be set")
	}
	if c.Engine.SampleRate <= 0 {
		return errors.New("engine.sample_rate must be positive")
	}
	if c.Engine.TokenBase < 0 {
		return errors.New("engine.token_base must be >= 0")
	}
	if c.Engine.AlphabetSize <= 0 {
		return errors.New("engine.alphabet_size must be positive")
	}
	if c.Engine.StartupTimeout <= 0 {
		return errors.New("engine.startup_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateExport() error {
	switch c.Export.Format {
	case "m4b", "wav":
	default:
		return fmt.Errorf("export.format must be m4b or wav, got %q", c.Export.Format)
	}
	if c.Export.Format == "m4b" && strings.TrimSpace(c.Export.Bitrate) == "" {
		return errors.New("export.bitrate must be set when export.format is m4b")
	}
	if c.Export.ChunkGapSeconds < 0 {
		return errors.New("export.chunk_gap_seconds must be >= 0")
	}
	if c.Export.ChapterGapSeconds < 0 {
		return errors.New("export.chapter_gap_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateLibrary() error {
	if c.Library.AudiobooksDir == "" {
		return errors.New("library.audiobooks_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.inbox_scan_interval":  c.Workflow.InboxScanInterval,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.QueueMinItems < 1 {
		return errors.New("notifications.queue_min_items must be >= 1")
	}
	if c.Notifications.DedupWindowSeconds < 0 {
		return errors.New("notifications.dedup_window_seconds must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
