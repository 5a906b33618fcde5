package logging

import (
	"context"
	"log/slog"

	"lector/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the standardized structured logging key for queue item identifiers.
	FieldItemID = "item_id"
	// FieldStage is the standardized structured logging key for workflow stage names.
	FieldStage = "stage"
	// FieldLane is the standardized structured logging key for workflow lane names.
	FieldLane = "lane"
	// FieldBookTitle is the standardized structured logging key for audiobook titles.
	FieldBookTitle = "book_title"
	// FieldVoice is the standardized structured logging key for narration voice names.
	FieldVoice = "voice"
	// FieldChapter is the standardized structured logging key for 1-based chapter indexes.
	FieldChapter = "chapter"
	// FieldChunk is the standardized structured logging key for global chunk indexes.
	FieldChunk = "chunk"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldEventType is the standardized structured logging key for machine-readable event names.
	FieldEventType = "event_type"
	// FieldErrorCode is the standardized structured logging key for stable error codes.
	FieldErrorCode = "error_code"
	// FieldErrorHint is the standardized structured logging key for operator-facing next steps.
	FieldErrorHint = "error_hint"
	// FieldErrorDetailPath is the standardized structured logging key for on-disk diagnostic payloads.
	FieldErrorDetailPath = "error_detail_path"
	// FieldProgressStage is the standardized structured logging key for progress stage names.
	FieldProgressStage = "progress_stage"
	// FieldProgressPercent is the standardized structured logging key for progress percentages.
	FieldProgressPercent = "progress_percent"
	// FieldProgressMessage is the standardized structured logging key for progress detail messages.
	FieldProgressMessage = "progress_message"
	// FieldProgressETA is the standardized structured logging key for estimated completion times.
	FieldProgressETA = "progress_eta"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.ItemIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldItemID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if lane, ok := services.LaneFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLane, lane))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
