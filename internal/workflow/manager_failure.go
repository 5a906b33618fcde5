package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lector/internal/logging"
	"lector/internal/notifications"
	"lector/internal/queue"
	"lector/internal/services"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	base := m.logger
	if base == nil {
		base = logging.NewNop()
	}
	logger := m.stageLogger(ctx, base, item).With(logging.String(logging.FieldComponent, "workflow-manager"))

	message := m.classifyStageFailure(stageName, stageErr)
	details := services.Details(stageErr)
	resolved := m.setItemFailureState(item, message, details, stageErr)

	attrs := []logging.Attr{
		logging.String("resolved_status", string(resolved)),
		logging.String("error_message", strings.TrimSpace(message)),
		logging.Alert("stage_failure"),
		logging.String(logging.FieldErrorCode, string(details.Kind)),
		logging.String(logging.FieldErrorHint, details.Hint),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stageErr))
	}
	attrs = append(attrs, logging.String(logging.FieldEventType, "stage_failure"))
	logger.Error("stage failed", logging.Args(attrs...)...)

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastItem(item)
	if resolved == queue.StatusReview {
		m.notifyReviewRequired(ctx, item)
	} else {
		m.notifyStageError(ctx, stageName, item, stageErr)
	}
	m.checkQueueCompletion(ctx)
}

func (m *Manager) classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return m.getStageFailureMessage(stageName, "failed without error detail")
	}

	details := services.Details(stageErr)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = strings.TrimSpace(stageErr.Error())
	}
	if message == "" {
		message = m.getStageFailureMessage(stageName, "failed")
	}
	return message
}

func (m *Manager) getStageFailureMessage(stageName, defaultMsg string) string {
	if stageName != "" {
		return fmt.Sprintf("%s %s", stageName, defaultMsg)
	}
	return fmt.Sprintf("workflow %s", defaultMsg)
}

// setItemFailureState routes the item to its terminal state for this failure.
// Validation, configuration, and not-found errors park the item in review so
// the user can fix the input and retry; everything else marks it failed.
func (m *Manager) setItemFailureState(item *queue.Item, message string, details services.ErrorDetails, stageErr error) queue.Status {
	resolved := services.FailureStatus(stageErr)
	if resolved == queue.StatusReview {
		item.SetReview(message)
		item.ErrorMessage = message
		if hint := strings.TrimSpace(details.Hint); hint != "" {
			item.ProgressMessage = hint
		}
		return resolved
	}
	item.SetFailed(message)
	return resolved
}

func (m *Manager) notifyReviewRequired(ctx context.Context, item *queue.Item) {
	if m.notifier == nil || item == nil {
		return
	}
	logger := logging.WithContext(ctx, m.logger.With(logging.String(logging.FieldComponent, "workflow-manager")))
	if err := m.notifier.Publish(ctx, notifications.EventReview, notifications.Payload{
		"title":  item.Title,
		"reason": item.ReviewReason,
	}); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send review notification")
		} else {
			logger.Debug("review notification failed", logging.Error(err))
		}
	}
}
