package organizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"lector/internal/config"
	"lector/internal/logging"
	"lector/internal/notifications"
	"lector/internal/queue"
	"lector/internal/report"
	"lector/internal/services"
	"lector/internal/stage"
)

// Organizer files exported audiobooks into the final library location.
type Organizer struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
}

// NewOrganizer constructs the organizing stage handler.
func NewOrganizer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Organizer {
	return NewOrganizerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewOrganizerWithNotifier allows injecting a custom notifier (used for tests).
func NewOrganizerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Organizer {
	return &Organizer{
		store:    store,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "organizer"),
		notifier: notifier,
	}
}

// SetLogger updates the stage logger, matching the workflow manager contract.
func (o *Organizer) SetLogger(logger *slog.Logger) {
	if o == nil {
		return
	}
	o.logger = logging.NewComponentLogger(logger, "organizer")
}

func (o *Organizer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, o.logger)
	item.InitProgress("Organizing", "Preparing library organization")
	logger.Debug(
		"starting organization preparation",
		logging.String("exported_file", strings.TrimSpace(item.ExportedFile)),
	)
	return nil
}

func (o *Organizer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, o.logger)
	stageStart := time.Now()

	exported := strings.TrimSpace(item.ExportedFile)
	if exported == "" {
		return services.Wrap(
			services.ErrValidation,
			"organizing",
			"validate inputs",
			"No exported audiobook present; run export before organizing",
			nil,
		)
	}
	if _, err := os.Stat(exported); err != nil {
		return services.Wrap(
			services.ErrNotFound,
			"organizing",
			"locate exported file",
			"Exported audiobook is missing; rerun export",
			err,
		)
	}

	// Degraded narration is complete audio, but a human should hear the
	// affected passages before the book reaches the library.
	if !item.NeedsReview {
		if rep, err := report.Parse(item.ReportJSON); err != nil {
			logger.Warn("synthesis report unreadable; skipping degraded-audio check", logging.Error(err))
		} else if rep.Degraded() {
			reason := fmt.Sprintf("%d of %d chunks kept degraded audio", len(rep.FailedChunks), rep.ChunkCount)
			logReviewDecision(logger, "review", "degraded_chunks")
			return o.finishReview(ctx, item, reason)
		}
	}
	if item.NeedsReview {
		logReviewDecision(logger, "review", "flagged_upstream")
		return o.finishReview(ctx, item, item.ReviewReason)
	}
	logReviewDecision(logger, "organize", "clean_narration")

	root := strings.TrimSpace(o.cfg.AudiobooksRoot())
	if root == "" {
		return services.Wrap(
			services.ErrConfiguration,
			"organizing",
			"resolve library root",
			"Audiobook library directory not configured; set library.audiobooks_dir in your lector config.toml",
			nil,
		)
	}

	o.updateProgress(ctx, item, "Organizing library structure", 20)
	target, err := o.libraryTarget(root, item)
	if err != nil {
		if isLibraryUnavailable(err) {
			return o.handleLibraryUnavailable(ctx, item, err)
		}
		return services.Wrap(
			services.ErrTransient,
			"organizing",
			"allocate library path",
			"Unable to allocate a library filename",
			err,
		)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		if isLibraryUnavailable(err) {
			return o.handleLibraryUnavailable(ctx, item, err)
		}
		return services.Wrap(
			services.ErrConfiguration,
			"organizing",
			"ensure library dir",
			"Failed to create library directory; check library_dir permissions",
			err,
		)
	}
	logger.Info(
		"moving audiobook into library",
		logging.String("exported_file", exported),
		logging.String("library_target", target),
	)
	if err := moveOrCopyFile(logger, exported, target); err != nil {
		if isLibraryUnavailable(err) {
			return o.handleLibraryUnavailable(ctx, item, err)
		}
		return err
	}
	item.FinalFile = target

	info, err := os.Stat(target)
	if err != nil {
		logger.Error("organizer validation failed", logging.String("reason", "stat failure"), logging.Error(err))
		return services.Wrap(
			services.ErrValidation,
			"organizing",
			"validate output",
			"Failed to stat organized audiobook",
			err,
		)
	}
	if info.Size() == 0 {
		logger.Error("organizer validation failed", logging.String("reason", "empty file"))
		return services.Wrap(
			services.ErrValidation,
			"organizing",
			"validate output",
			fmt.Sprintf("Organized audiobook %q is empty", target),
			nil,
		)
	}

	o.updateProgress(ctx, item, "Organization completed", 100)
	item.ProgressMessage = fmt.Sprintf("Available in library: %s", filepath.Base(target))

	logger.Info(
		"organizing stage summary",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("final_file", target),
		logging.Int64("final_file_size_bytes", info.Size()),
		logging.Duration("stage_duration", time.Since(stageStart)),
		logging.String(logging.FieldBookTitle, strings.TrimSpace(item.Title)),
	)

	if o.notifier != nil {
		if err := o.notifier.Publish(ctx, notifications.EventOrganizationCompleted, notifications.Payload{
			"title":     item.Title,
			"finalFile": filepath.Base(target),
		}); err != nil {
			logger.Debug("organization notification failed", logging.Error(err))
		}
		if err := o.notifier.Publish(ctx, notifications.EventProcessingCompleted, notifications.Payload{
			"title": item.Title,
		}); err != nil {
			logger.Debug("processing completion notification failed", logging.Error(err))
		}
	}

	o.cleanupStaging(ctx, item)
	return nil
}

// HealthCheck verifies the directories organization depends on.
func (o *Organizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "organizer"
	if o.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(o.cfg.AudiobooksRoot()) == "" {
		return stage.Unhealthy(name, "audiobook library directory not configured")
	}
	if strings.TrimSpace(o.cfg.Paths.ReviewDir) == "" {
		return stage.Unhealthy(name, "review directory not configured")
	}
	return stage.Healthy(name)
}

func (o *Organizer) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, o.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := o.store.UpdateProgress(ctx, &copy); err != nil {
		logger.Warn("failed to persist organizer progress", logging.Error(err))
		return
	}
	*item = copy
}

func logReviewDecision(logger *slog.Logger, result, reason string) {
	logger.Info(
		"organizer review decision",
		logging.String("decision_result", result),
		logging.String("decision_reason", reason),
		logging.String("decision_options", "organize, review"),
	)
}
