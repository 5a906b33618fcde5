package daemon

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"lector/internal/logging"
	"lector/internal/queue"
)

// bookIntake turns a discovered source file into a queue item. Content
// fingerprints are the identity: the same bytes never queue twice while a
// narration is live or finished, and a failed narration re-queues when its
// source shows up again.
type bookIntake struct {
	store *queue.Store
}

func newBookIntake(store *queue.Store) *bookIntake {
	if store == nil {
		return nil
	}
	return &bookIntake{store: store}
}

// Process finds or creates the queue item for a source file. The bool result
// reports whether the call put the item (back) into the pending queue.
func (p *bookIntake) Process(ctx context.Context, sourcePath, voice, fingerprint string, logger *slog.Logger) (*queue.Item, bool, error) {
	if p == nil || p.store == nil {
		return nil, false, fmt.Errorf("book intake unavailable")
	}

	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return nil, false, fmt.Errorf("book fingerprint is required")
	}

	existing, err := p.store.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, false, fmt.Errorf("lookup existing book: %w", err)
	}
	if existing != nil {
		return p.handleExisting(ctx, existing, sourcePath, voice, logger)
	}

	item, err := p.store.NewBook(ctx, sourcePath, fingerprint, strings.TrimSpace(voice))
	if err != nil {
		return nil, false, fmt.Errorf("enqueue book: %w", err)
	}
	if logger != nil {
		logger.Debug("queued new book",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String(logging.FieldBookTitle, item.Title),
			logging.String("fingerprint", fingerprint),
		)
	}
	return item, true, nil
}

func (p *bookIntake) handleExisting(ctx context.Context, existing *queue.Item, sourcePath, voice string, logger *slog.Logger) (*queue.Item, bool, error) {
	if existing.Status == queue.StatusCompleted {
		if logger != nil {
			logger.Debug("book already narrated",
				logging.Int64(logging.FieldItemID, existing.ID),
				logging.String("status", string(existing.Status)),
			)
		}
		return existing, false, nil
	}

	if existing.IsInWorkflow() {
		if logger != nil {
			logger.Debug("book already in workflow",
				logging.Int64(logging.FieldItemID, existing.ID),
				logging.String("status", string(existing.Status)),
				logging.String("progress_stage", strings.TrimSpace(existing.ProgressStage)),
			)
		}
		return existing, false, nil
	}

	// Failed, review, or stale pending: put it back in line. The source may
	// have moved since the original intake, so the path refreshes too.
	existing.SourcePath = sourcePath
	existing.Status = queue.StatusPending
	existing.ErrorMessage = ""
	existing.ProgressStage = "Queued"
	existing.ProgressPercent = 0
	existing.ProgressMessage = ""
	existing.NeedsReview = false
	existing.ReviewReason = ""
	if trimmed := strings.TrimSpace(voice); trimmed != "" {
		existing.Voice = trimmed
	}

	if err := p.store.Update(ctx, existing); err != nil {
		return nil, false, fmt.Errorf("reset existing book: %w", err)
	}
	if logger != nil {
		logger.Debug("requeued existing book",
			logging.Int64(logging.FieldItemID, existing.ID),
			logging.String(logging.FieldBookTitle, existing.Title),
		)
	}
	return existing, true, nil
}
