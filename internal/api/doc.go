// Package api defines wire-format types and converters for the IPC layer.
// It translates internal queue models into transport-friendly DTOs that the
// CLI and other consumers can render without coupling to internal types.
//
// # Key Types
//
// QueueItem: transport representation of a queue entry with progress,
// per-chapter synthesis status, and the degraded-chunk report.
//
// WorkflowStatus: daemon running state, queue stats, stage health, and last item.
//
// DaemonStatus: aggregated runtime information including dependencies.
//
// # Converters
//
// FromQueueItem: queue.Item -> QueueItem with progress stage defaults and
// chapter status derivation from the stored plan and synthesis report.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// StageHealthSlice: deterministic ordering of stage health map.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (queue.Status, queue.ProcessingLane) are exposed as lowercase strings.
// Timestamps use RFC3339 with milliseconds. Metadata and the synthesis report
// are passed through as json.RawMessage to avoid double-encoding; the chunk
// plan is not passed through at all because it embeds the full book text, so
// chapter statuses are derived server-side instead.
package api
