package stage

import (
	"context"
	"log/slog"

	"lector/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}

// LoggerAware is implemented by handlers that can redirect their output to a
// per-item logger. The workflow manager swaps loggers before each stage run so
// stage output lands in the item's background log.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
