package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending      Status = "pending"
	StatusPlanning     Status = "planning"
	StatusPlanned      Status = "planned"
	StatusSynthesizing Status = "synthesizing"
	StatusSynthesized  Status = "synthesized"
	StatusExporting    Status = "exporting"
	StatusExported     Status = "exported"
	StatusOrganizing   Status = "organizing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusReview       Status = "review"
)

// UserStopReason is the review reason set when a user explicitly stops an item.
const UserStopReason = "Stop requested by user"

// DaemonStopReason is the error message set when items are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusPlanning,
	StatusPlanned,
	StatusSynthesizing,
	StatusSynthesized,
	StatusExporting,
	StatusExported,
	StatusOrganizing,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusPlanning:     {},
	StatusSynthesizing: {},
	StatusExporting:    {},
	StatusOrganizing:   {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions map each in-flight status back to the start of its
// stage. Stuck-item recovery and stale-heartbeat reclaim rely on this table.
var stageRollbackTransitions = []statusTransition{
	{from: StatusPlanning, to: StatusPending},
	{from: StatusSynthesizing, to: StatusPlanned},
	{from: StatusExporting, to: StatusSynthesized},
	{from: StatusOrganizing, to: StatusExported},
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Review     int
	Completed  int
}

// Item represents a queue item persisted in SQLite.
type Item struct {
	ID                int64
	SourcePath        string
	Fingerprint       string
	Title             string
	Author            string
	Voice             string
	Status            Status
	PlanJSON          string
	ReportJSON        string
	ExportedFile      string
	FinalFile         string
	BackgroundLogPath string
	ErrorMessage      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ProgressStage     string
	ProgressPercent   float64
	ProgressMessage   string
	MetadataJSON      string
	LastHeartbeat     *time.Time
	NeedsReview       bool
	ReviewReason      string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// ProcessingStatusList returns the statuses that represent in-flight work,
// ordered by pipeline position.
func ProcessingStatusList() []Status {
	out := make([]Status, 0, len(stageRollbackTransitions))
	for _, tr := range stageRollbackTransitions {
		out = append(out, tr.from)
	}
	return out
}

// IsUserStopReason reports whether a review reason represents a user-initiated stop.
func IsUserStopReason(reason string) bool {
	return strings.EqualFold(strings.TrimSpace(reason), UserStopReason)
}

// InitProgress resets progress fields for a new stage.
// If ProgressStage is currently empty, it is set to the provided stage value;
// otherwise the existing stage is preserved (to support resume scenarios).
// ProgressMessage is set to message, ProgressPercent is reset to 0,
// and ErrorMessage is cleared.
func (i *Item) InitProgress(stage, message string) {
	if i.ProgressStage == "" {
		i.ProgressStage = stage
	}
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.ErrorMessage = ""
}

// SetProgress updates all three progress fields atomically.
// Use this instead of setting ProgressStage, ProgressPercent, and ProgressMessage individually.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
// Convenience method for stage completion.
func (i *Item) SetProgressComplete(stage, message string) {
	i.SetProgress(stage, message, 100)
}

// SetFailed marks the item as failed with the given error message.
// Clears heartbeat and sets progress fields appropriately.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Failed"
}

// SetReview parks the item for manual attention with the given reason.
// Review items keep their artifacts so users can inspect before retrying.
func (i *Item) SetReview(reason string) {
	i.Status = StatusReview
	i.NeedsReview = true
	i.ReviewReason = reason
	i.ProgressPercent = 0
	i.ProgressMessage = reason
	i.LastHeartbeat = nil
	i.ProgressStage = "Review"
}

// IsInWorkflow returns true when an item is actively progressing (or queued to
// progress) through stages and should not be re-enqueued simply because its
// source file was seen again in the inbox.
func (i Item) IsInWorkflow() bool {
	if i.IsProcessing() {
		return true
	}
	switch i.Status {
	case StatusPlanned,
		StatusSynthesized,
		StatusExported,
		StatusCompleted:
		return true
	default:
		return false
	}
}

// StageKey returns the normalized stage identifier used in API/CLI presentation.
func (s Status) StageKey() string {
	switch s {
	case "":
		return ""
	case StatusPending:
		return "queued"
	case StatusCompleted:
		return "final"
	case StatusPlanning,
		StatusPlanned,
		StatusSynthesizing,
		StatusSynthesized,
		StatusExporting,
		StatusExported,
		StatusOrganizing,
		StatusFailed,
		StatusReview:
		return string(s)
	default:
		return ""
	}
}

// ProcessingLane partitions workflow into the light intake stages and the
// engine-bound synthesis work.
type ProcessingLane string

const (
	LaneIntake    ProcessingLane = "intake"
	LaneSynthesis ProcessingLane = "synthesis"
)

// LaneForItem maps a queue item to its processing lane for observability purposes.
func LaneForItem(item *Item) ProcessingLane {
	if item == nil {
		return LaneIntake
	}
	switch item.Status {
	case StatusPending, StatusPlanning:
		return LaneIntake
	case StatusPlanned, StatusSynthesizing, StatusSynthesized, StatusExporting, StatusExported, StatusOrganizing, StatusCompleted:
		return LaneSynthesis
	case StatusFailed, StatusReview:
		if item.BackgroundLogPath != "" {
			return LaneSynthesis
		}
		return LaneIntake
	default:
		return LaneIntake
	}
}
