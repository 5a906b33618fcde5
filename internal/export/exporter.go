package export

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"lector/internal/config"
	"lector/internal/fileutil"
	"lector/internal/logging"
	"lector/internal/notifications"
	"lector/internal/queue"
	"lector/internal/report"
	"lector/internal/services"
	"lector/internal/stage"
)

// Exporter packages the narration spool into the configured audiobook
// container.
type Exporter struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
}

// durationToleranceSeconds bounds how far the probed container duration
// may drift from the spool duration before validation fails. AAC adds a
// short encoder-delay pad, so exact equality is never expected.
const durationToleranceSeconds = 1.0

// NewExporter constructs the export handler.
func NewExporter(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Exporter {
	return NewExporterWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewExporterWithNotifier allows injecting a custom notifier (used for tests).
func NewExporterWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Exporter {
	return &Exporter{
		store:    store,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "exporter"),
		notifier: notifier,
	}
}

// SetLogger updates the stage logger, matching the workflow manager contract.
func (e *Exporter) SetLogger(logger *slog.Logger) {
	if e == nil {
		return
	}
	e.logger = logging.NewComponentLogger(logger, "exporter")
}

func (e *Exporter) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)
	item.InitProgress("Exporting", "Preparing audiobook container")
	logger.Debug("starting export preparation")
	return nil
}

func (e *Exporter) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)
	stageStart := time.Now()

	rep, err := report.Parse(item.ReportJSON)
	if err != nil {
		return services.Wrap(
			services.ErrValidation,
			"export",
			"parse synthesis report",
			"Synthesis report missing or invalid; rerun synthesis",
			err,
		)
	}

	spoolPath := strings.TrimSpace(rep.SpoolPath)
	if spoolPath == "" {
		return services.Wrap(
			services.ErrValidation,
			"export",
			"locate spool",
			"Synthesis report does not reference a narration spool",
			nil,
		)
	}
	samples, err := SpoolSamples(spoolPath)
	if err != nil {
		return services.Wrap(
			services.ErrNotFound,
			"export",
			"inspect spool",
			"Narration spool is missing or unreadable; rerun synthesis",
			err,
		)
	}
	if expected := rep.TotalSamples(); samples != expected {
		return services.Wrap(
			services.ErrValidation,
			"export",
			"verify spool",
			fmt.Sprintf("Narration spool holds %d samples but the synthesis report promises %d; rerun synthesis", samples, expected),
			nil,
		)
	}

	format := strings.ToLower(strings.TrimSpace(e.cfg.Export.Format))
	if format == "" {
		format = "m4b"
	}
	if format != "m4b" && format != "wav" {
		return services.Wrap(
			services.ErrConfiguration,
			"export",
			"resolve format",
			fmt.Sprintf("Unsupported export format %q; set export.format to m4b or wav", e.cfg.Export.Format),
			nil,
		)
	}

	stagingRoot := item.StagingRoot(e.cfg.Paths.StagingDir)
	if stagingRoot == "" {
		stagingRoot = filepath.Join(strings.TrimSpace(e.cfg.Paths.StagingDir), fmt.Sprintf("queue-%d", item.ID))
	}
	exportDir := filepath.Join(stagingRoot, "export")
	if err := os.RemoveAll(exportDir); err != nil {
		return services.Wrap(
			services.ErrTransient,
			"export",
			"clean export dir",
			"Failed to remove previous export outputs",
			err,
		)
	}
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"export",
			"ensure export dir",
			"Failed to create export directory; set staging_dir to a writable path",
			err,
		)
	}

	base := fileutil.SanitizeFileName(item.Title)
	if base == "" {
		base = fmt.Sprintf("audiobook-%d", item.ID)
	}
	outPath := filepath.Join(exportDir, base+"."+format)

	item.ProgressMessage = fmt.Sprintf("Writing %s", filepath.Base(outPath))
	item.ProgressPercent = 10
	if err := e.store.UpdateProgress(ctx, item); err != nil {
		logger.Warn("failed to persist export progress", logging.Error(err))
	}
	logger.Info(
		"packaging audiobook",
		logging.String("format", format),
		logging.String("spool", spoolPath),
		logging.String("output", outPath),
		logging.Float64("audio_seconds", rep.TotalDurationS),
		logging.Int("chapters", len(rep.Chapters)),
	)

	switch format {
	case "wav":
		if err := writeWAV(spoolPath, outPath, rep.SampleRate); err != nil {
			return services.Wrap(
				services.ErrTransient,
				"export",
				"write wav",
				"Failed to write WAV audiobook",
				err,
			)
		}
	case "m4b":
		metadataPath := filepath.Join(exportDir, "ffmetadata.txt")
		tags := BookTags{Title: item.Title, Author: item.Author}
		if err := writeFFMetadata(metadataPath, tags, rep.Chapters); err != nil {
			return services.Wrap(
				services.ErrTransient,
				"export",
				"write chapter metadata",
				"Failed to stage chapter metadata for ffmpeg",
				err,
			)
		}
		if err := writeM4B(ctx, e.cfg.FFmpegBinary(), spoolPath, metadataPath, outPath, rep.SampleRate, e.cfg.Export.Bitrate); err != nil {
			return services.Wrap(
				services.ErrExternalTool,
				"export",
				"mux m4b",
				"ffmpeg failed to mux the audiobook; confirm ffmpeg is installed with AAC support",
				err,
			)
		}
	}

	sizeBytes, err := e.validateAudiobook(ctx, outPath, format, rep)
	if err != nil {
		return err
	}

	item.ExportedFile = outPath
	item.ProgressStage = "Exported"
	item.ProgressPercent = 100
	item.ProgressMessage = fmt.Sprintf("Exported %s (%s)", filepath.Base(outPath), formatBytes(sizeBytes))

	if e.notifier != nil {
		if err := e.notifier.Publish(ctx, notifications.EventExportCompleted, notifications.Payload{
			"title": item.Title,
		}); err != nil {
			logger.Debug("export notification failed", logging.Error(err))
		}
	}

	logger.Info(
		"export stage summary",
		logging.String("exported_file", item.ExportedFile),
		logging.String("format", format),
		logging.Int64("output_bytes", sizeBytes),
		logging.Float64("audio_seconds", rep.TotalDurationS),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}

// validateAudiobook checks the finished container and returns its size.
// The cheap stat checks always run; the ffprobe inspection only runs
// when export.validate_output is enabled.
func (e *Exporter) validateAudiobook(ctx context.Context, path, format string, rep report.Report) (int64, error) {
	logger := logging.WithContext(ctx, e.logger)
	info, err := os.Stat(path)
	if err != nil {
		logger.Error("export validation failed", logging.String("reason", "stat failure"), logging.Error(err))
		return 0, services.Wrap(
			services.ErrValidation,
			"export",
			"validate output",
			"Export did not produce an audiobook file",
			err,
		)
	}
	if info.Size() == 0 {
		logger.Error("export validation failed", logging.String("reason", "empty file"))
		return 0, services.Wrap(
			services.ErrValidation,
			"export",
			"validate output",
			fmt.Sprintf("Exported file %q is empty", path),
			nil,
		)
	}
	if !e.cfg.Export.ValidateOutput {
		return info.Size(), nil
	}

	probe, err := exportProbe(ctx, e.cfg.FFprobeBinary(), path)
	if err != nil {
		logger.Error("export validation failed", logging.String("reason", "ffprobe"), logging.Error(err))
		return 0, services.Wrap(
			services.ErrExternalTool,
			"export",
			"ffprobe validation",
			"Failed to inspect exported audiobook with ffprobe",
			err,
		)
	}
	if probe.AudioStreamCount() != 1 {
		logger.Error("export validation failed", logging.String("reason", "audio stream count"), logging.Int("audio_streams", probe.AudioStreamCount()))
		return 0, services.Wrap(
			services.ErrValidation,
			"export",
			"validate audio stream",
			fmt.Sprintf("Exported audiobook contains %d audio streams, expected exactly one", probe.AudioStreamCount()),
			nil,
		)
	}
	if probe.VideoStreamCount() != 0 {
		logger.Error("export validation failed", logging.String("reason", "unexpected video stream"))
		return 0, services.Wrap(
			services.ErrValidation,
			"export",
			"validate streams",
			"Exported audiobook unexpectedly contains a video stream",
			nil,
		)
	}
	duration := probe.DurationSeconds()
	if math.IsNaN(duration) || duration <= 0 {
		logger.Error("export validation failed", logging.String("reason", "invalid duration"))
		return 0, services.Wrap(
			services.ErrValidation,
			"export",
			"validate duration",
			"Exported audiobook duration could not be determined",
			nil,
		)
	}
	if drift := math.Abs(duration - rep.TotalDurationS); drift > durationToleranceSeconds {
		logger.Error(
			"export validation failed",
			logging.String("reason", "duration drift"),
			logging.Float64("container_seconds", duration),
			logging.Float64("spool_seconds", rep.TotalDurationS),
		)
		return 0, services.Wrap(
			services.ErrValidation,
			"export",
			"validate duration",
			fmt.Sprintf("Exported audiobook runs %.2fs but the narration spool holds %.2fs", duration, rep.TotalDurationS),
			nil,
		)
	}
	if rate := probe.AudioSampleRate(); rate > 0 && rate != rep.SampleRate {
		logger.Error(
			"export validation failed",
			logging.String("reason", "sample rate mismatch"),
			logging.Int("container_rate", rate),
			logging.Int("spool_rate", rep.SampleRate),
		)
		return 0, services.Wrap(
			services.ErrValidation,
			"export",
			"validate sample rate",
			fmt.Sprintf("Exported audiobook reports %d Hz, expected %d Hz", rate, rep.SampleRate),
			nil,
		)
	}
	if format == "m4b" && len(probe.Chapters) != len(rep.Chapters) {
		logger.Error(
			"export validation failed",
			logging.String("reason", "chapter count mismatch"),
			logging.Int("container_chapters", len(probe.Chapters)),
			logging.Int("expected_chapters", len(rep.Chapters)),
		)
		return 0, services.Wrap(
			services.ErrValidation,
			"export",
			"validate chapters",
			fmt.Sprintf("Exported audiobook carries %d chapter marks, expected %d", len(probe.Chapters), len(rep.Chapters)),
			nil,
		)
	}

	logger.Debug(
		"export validation succeeded",
		logging.String("exported_file", path),
		logging.Float64("duration_seconds", duration),
		logging.Int("chapters", len(probe.Chapters)),
	)
	return info.Size(), nil
}

// HealthCheck verifies the external tools export depends on.
func (e *Exporter) HealthCheck(ctx context.Context) stage.Health {
	const name = "exporter"
	if e.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(e.cfg.Paths.StagingDir) == "" {
		return stage.Unhealthy(name, "staging directory not configured")
	}
	format := strings.ToLower(strings.TrimSpace(e.cfg.Export.Format))
	if format == "" || format == "m4b" {
		binary := strings.TrimSpace(e.cfg.FFmpegBinary())
		if binary == "" {
			return stage.Unhealthy(name, "ffmpeg binary not configured")
		}
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(name, fmt.Sprintf("ffmpeg binary %q not found", binary))
		}
	}
	if e.cfg.Export.ValidateOutput {
		binary := strings.TrimSpace(e.cfg.FFprobeBinary())
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(name, fmt.Sprintf("ffprobe binary %q not found", binary))
		}
	}
	return stage.Healthy(name)
}

func formatBytes(value int64) string {
	const (
		kiB = 1024
		miB = kiB * 1024
		giB = miB * 1024
	)
	switch {
	case value >= giB:
		return fmt.Sprintf("%.2f GiB", float64(value)/float64(giB))
	case value >= miB:
		return fmt.Sprintf("%.2f MiB", float64(value)/float64(miB))
	case value >= kiB:
		return fmt.Sprintf("%.2f KiB", float64(value)/float64(kiB))
	default:
		return fmt.Sprintf("%d B", value)
	}
}
