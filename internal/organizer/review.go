package organizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lector/internal/logging"
	"lector/internal/notifications"
	"lector/internal/queue"
	"lector/internal/services"
)

// finishReview moves the exported audiobook into the review directory and
// parks the item. Review items keep their audio so a person can listen
// before deciding to reshelve or rerun.
func (o *Organizer) finishReview(ctx context.Context, item *queue.Item, reason string) error {
	logger := logging.WithContext(ctx, o.logger)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Manual review required"
	}

	reviewDir := strings.TrimSpace(o.cfg.Paths.ReviewDir)
	if reviewDir == "" {
		return services.Wrap(
			services.ErrConfiguration,
			"organizing",
			"resolve review dir",
			"Review directory not configured; set review_dir in your lector config.toml",
			nil,
		)
	}
	if err := os.MkdirAll(reviewDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"organizing",
			"ensure review dir",
			"Failed to create review directory",
			err,
		)
	}

	ext := filepath.Ext(item.ExportedFile)
	if ext == "" {
		ext = ".m4b"
	}
	target, err := nextReviewPath(reviewDir, reviewFilenamePrefix(item, reason), ext)
	if err != nil {
		return services.Wrap(
			services.ErrTransient,
			"organizing",
			"allocate review filename",
			"Unable to allocate review filename",
			err,
		)
	}
	if err := moveOrCopyFile(logger, item.ExportedFile, target); err != nil {
		return err
	}

	item.SetReview(reason)
	item.FinalFile = target
	item.ExportedFile = target
	item.ProgressMessage = fmt.Sprintf("Moved to review: %s", filepath.Base(target))

	if o.notifier != nil {
		if err := o.notifier.Publish(ctx, notifications.EventReview, notifications.Payload{
			"title":  item.Title,
			"reason": reason,
		}); err != nil {
			logger.Debug("review notification failed", logging.Error(err))
		}
	}
	logger.Info(
		"audiobook parked for review",
		logging.String("review_file", target),
		logging.String("reason", reason),
		logging.String(logging.FieldBookTitle, strings.TrimSpace(item.Title)),
	)
	o.cleanupStaging(ctx, item)
	return nil
}

// nextReviewPath finds the next free numbered filename in the review
// directory.
func nextReviewPath(dir, prefix, ext string) (string, error) {
	const maxAttempts = 10000
	if strings.TrimSpace(prefix) == "" {
		prefix = "review"
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s-%d%s", prefix, attempt, ext))
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return candidate, nil
			}
			return "", err
		}
	}
	return "", fmt.Errorf("exhausted review filename slots in %s", dir)
}

// reviewFilenamePrefix slugs the review reason plus a fingerprint fragment
// so review files stay traceable back to their queue item.
func reviewFilenamePrefix(item *queue.Item, reason string) string {
	result := sanitizeSlug(reason, 0)
	if result == "" {
		result = "review"
	}
	if fpSlug := sanitizeSlug(item.Fingerprint, 8); fpSlug != "" {
		return result + "-" + fpSlug
	}
	return result
}

// sanitizeSlug converts input to a lowercase alphanumeric slug with
// hyphens. maxLen of 0 means unlimited length.
func sanitizeSlug(input string, maxLen int) string {
	input = strings.ToLower(strings.TrimSpace(input))
	var slug strings.Builder
	lastHyphen := false
	for _, r := range input {
		if maxLen > 0 && slug.Len() >= maxLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			slug.WriteRune(r)
			lastHyphen = false
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if !lastHyphen {
				slug.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(slug.String(), "-")
}
