package services

import "context"

type contextKey string

const (
	itemIDKey    contextKey = "itemID"
	stageKey     contextKey = "stage"
	laneKey      contextKey = "lane"
	requestIDKey contextKey = "requestID"
)

// WithItemID returns a context carrying the queue item identifier.
func WithItemID(ctx context.Context, id int64) context.Context {
	if id <= 0 {
		return ctx
	}
	return context.WithValue(ctx, itemIDKey, id)
}

// ItemIDFromContext reports the queue item identifier stored on ctx.
func ItemIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(itemIDKey).(int64)
	return id, ok
}

// WithStage returns a context carrying the workflow stage name. Blank stage
// names leave the context untouched.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext reports the workflow stage name stored on ctx.
func StageFromContext(ctx context.Context) (string, bool) {
	stage, ok := ctx.Value(stageKey).(string)
	return stage, ok
}

// WithLane returns a context carrying the workflow lane name. Blank lane
// names leave the context untouched.
func WithLane(ctx context.Context, lane string) context.Context {
	if lane == "" {
		return ctx
	}
	return context.WithValue(ctx, laneKey, lane)
}

// LaneFromContext reports the workflow lane name stored on ctx.
func LaneFromContext(ctx context.Context) (string, bool) {
	lane, ok := ctx.Value(laneKey).(string)
	return lane, ok
}

// WithRequestID returns a context carrying the correlation identifier used to
// tie together log lines from a single stage execution.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext reports the correlation identifier stored on ctx.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}
