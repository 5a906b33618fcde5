package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"lector/internal/deps"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	InboxDir   string `toml:"inbox_dir"`
	StagingDir string `toml:"staging_dir"`
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
	ReviewDir  string `toml:"review_dir"`
}

// Chunking contains the text segmentation limits applied during planning.
type Chunking struct {
	MaxWords int `toml:"max_words"`
	MaxChars int `toml:"max_chars"`
}

// Synthesis contains speech generation settings.
type Synthesis struct {
	Voice string `toml:"voice"`
	// Profile names a built-in narration profile to overlay on these
	// settings. Validated where the overlay is applied, not here.
	Profile           string  `toml:"profile"`
	MaxAttempts       int     `toml:"max_attempts"`
	MinRMS            float64 `toml:"min_rms"`
	Temperature       float64 `toml:"temperature"`
	TopP              float64 `toml:"top_p"`
	RepetitionPenalty float64 `toml:"repetition_penalty"`
	MaxTokens         int     `toml:"max_tokens"`
	// Workers is the synthesis worker count. Zero selects automatically:
	// one worker unless the engine reports it is safe to run concurrently.
	Workers int `toml:"workers"`
}

// Engine contains configuration for the speech model sidecar process.
type Engine struct {
	Binary   string `toml:"binary"`
	ModelDir string `toml:"model_dir"`
	// SampleRate, TokenBase, and AlphabetSize default to the values the
	// engine reports during its handshake; set them only to override.
	SampleRate     int `toml:"sample_rate"`
	TokenBase      int `toml:"token_base"`
	AlphabetSize   int `toml:"alphabet_size"`
	StartupTimeout int `toml:"startup_timeout"`
}

// Export contains audiobook assembly and container settings.
type Export struct {
	Format            string  `toml:"format"`
	Bitrate           string  `toml:"bitrate"`
	ChunkGapSeconds   float64 `toml:"chunk_gap_seconds"`
	ChapterGapSeconds float64 `toml:"chapter_gap_seconds"`
	ValidateOutput    bool    `toml:"validate_output"`
}

// Library contains configuration for the audiobook library structure.
type Library struct {
	AudiobooksDir     string `toml:"audiobooks_dir"`
	OverwriteExisting bool   `toml:"overwrite_existing"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	Plan               bool   `toml:"plan"`
	Synthesis          bool   `toml:"synthesis"`
	Export             bool   `toml:"export"`
	Organization       bool   `toml:"organization"`
	Queue              bool   `toml:"queue"`
	Review             bool   `toml:"review"`
	Errors             bool   `toml:"errors"`
	QueueMinItems      int    `toml:"queue_min_items"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	InboxScanInterval  int `toml:"inbox_scan_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	RetentionDays  int               `toml:"retention_days"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Config encapsulates all configuration values for lector.
//
// Configuration sections by subsystem:
//   - Paths: inbox, staging, library, log, and review directories
//   - Chunking: sentence grouping limits for synthesis planning
//   - Synthesis: voice selection, retry policy, and sampling parameters
//   - Engine: speech model sidecar binary and token stream parameters
//   - Export: container format, encode settings, and silence gaps
//   - Library: output directory structure for finished audiobooks
//   - Notifications: ntfy push notification settings
//   - Workflow: daemon polling intervals and timeouts
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Chunking      Chunking      `toml:"chunking"`
	Synthesis     Synthesis     `toml:"synthesis"`
	Engine        Engine        `toml:"engine"`
	Export        Export        `toml:"export"`
	Library       Library       `toml:"library"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lector/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/lector/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lector.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.InboxDir, c.Paths.StagingDir, c.Paths.LogDir, c.Paths.ReviewDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		// Best-effort to avoid failing config load when storage is offline.
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// EngineBinary returns the speech engine executable name.
func (c *Config) EngineBinary() string {
	if bin := strings.TrimSpace(c.Engine.Binary); bin != "" {
		return bin
	}
	return defaultEngineBinary
}

// FFmpegBinary returns the ffmpeg executable used for audiobook muxing. A
// build bundled alongside the speech engine wins over PATH resolution.
func (c *Config) FFmpegBinary() string {
	return deps.ResolveFFmpeg(c.EngineBinary())
}

// FFprobeBinary returns the ffprobe executable used for output validation,
// resolved the same way as FFmpegBinary.
func (c *Config) FFprobeBinary() string {
	return deps.ResolveFFprobe(c.EngineBinary())
}

// AudiobooksRoot returns the absolute directory finished audiobooks land in.
func (c *Config) AudiobooksRoot() string {
	child := strings.TrimSpace(c.Library.AudiobooksDir)
	if child == "" {
		return c.Paths.LibraryDir
	}
	if filepath.IsAbs(child) {
		return child
	}
	return filepath.Join(c.Paths.LibraryDir, child)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
