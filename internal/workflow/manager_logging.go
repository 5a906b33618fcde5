package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"lector/internal/logging"
	"lector/internal/queue"
	"lector/internal/services"
)

func (m *Manager) laneLogger(lane *laneState) *slog.Logger {
	if m.logger == nil {
		return logging.NewNop()
	}
	name := lane.name
	if name == "" {
		name = string(lane.kind)
	}
	return m.logger.With(
		logging.String(logging.FieldComponent, fmt.Sprintf("workflow-%s-runner", name)),
		logging.String(logging.FieldLane, name),
	)
}

// stageLogger returns the logger stage handlers should use while processing
// item. Item processing logs only to the item's dedicated log file, not the
// daemon log; the stream hub still receives a copy for live tailing.
func (m *Manager) stageLogger(ctx context.Context, base *slog.Logger, item *queue.Item) *slog.Logger {
	if base == nil {
		base = m.logger
	}
	if base == nil {
		base = logging.NewNop()
	}

	if item != nil {
		path, _, err := m.bgLogger.Ensure(item)
		if err != nil {
			base.Warn("item log unavailable", logging.Error(err))
		} else {
			handler, logErr := m.bgLogger.CreateHandler(path)
			if logErr != nil {
				base.Warn("failed to create item log writer", logging.Error(logErr))
			} else {
				base = slog.New(handler).With(logging.Int64(logging.FieldItemID, item.ID))
			}
		}
	}

	logger := logging.WithContext(ctx, base)
	if m != nil && m.cfg != nil {
		if stageName, ok := services.StageFromContext(ctx); ok {
			if override := stageOverrideLevel(m.cfg.Logging.StageOverrides, stageName); override != "" {
				logger = logging.WithLevelOverride(logger, logging.ParseLevel(override))
			}
		}
	}
	return logger
}

func stageOverrideLevel(overrides map[string]string, stageName string) string {
	if len(overrides) == 0 {
		return ""
	}
	stageName = strings.ToLower(strings.TrimSpace(stageName))
	if stageName == "" {
		return ""
	}
	for key, value := range overrides {
		if strings.ToLower(strings.TrimSpace(key)) == stageName {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func withStageContext(ctx context.Context, lane *laneState, stageName string, item *queue.Item, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if item != nil {
		ctx = services.WithItemID(ctx, item.ID)
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if lane != nil {
		laneLabel := strings.TrimSpace(lane.name)
		if laneLabel == "" {
			laneLabel = string(lane.kind)
		}
		ctx = services.WithLane(ctx, laneLabel)
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

func deriveStageLabel(status queue.Status) string {
	if status == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(string(status), "_", " "))
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
