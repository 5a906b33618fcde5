package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID                int64           `json:"id"`
	Title             string          `json:"title"`
	Author            string          `json:"author,omitempty"`
	Voice             string          `json:"voice,omitempty"`
	SourcePath        string          `json:"sourcePath"`
	Status            string          `json:"status"`
	ProcessingLane    string          `json:"processingLane"`
	Progress          QueueProgress   `json:"progress"`
	ErrorMessage      string          `json:"errorMessage"`
	CreatedAt         string          `json:"createdAt,omitempty"`
	UpdatedAt         string          `json:"updatedAt,omitempty"`
	Fingerprint       string          `json:"fingerprint,omitempty"`
	ExportedFile      string          `json:"exportedFile,omitempty"`
	FinalFile         string          `json:"finalFile,omitempty"`
	BackgroundLogPath string          `json:"backgroundLogPath,omitempty"`
	NeedsReview       bool            `json:"needsReview"`
	ReviewReason      string          `json:"reviewReason,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	Report            json.RawMessage `json:"report,omitempty"`
	Chapters          []ChapterStatus `json:"chapters,omitempty"`
	ChapterTotals     *ChapterTotals  `json:"chapterTotals,omitempty"`
	ChunkCount        int             `json:"chunkCount,omitempty"`
	WordCount         int             `json:"wordCount,omitempty"`
	DurationSeconds   float64         `json:"durationSeconds,omitempty"`
	Degraded          bool            `json:"degraded,omitempty"`
}

// QueueProgress captures stage progress information for a queue entry.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// ChapterStatus summarizes one planned chapter and how far it has travelled
// through synthesis.
type ChapterStatus struct {
	Index           int     `json:"index"`
	Title           string  `json:"title,omitempty"`
	Chunks          int     `json:"chunks"`
	Words           int     `json:"words"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	DegradedChunks  int     `json:"degradedChunks,omitempty"`
	Stage           string  `json:"stage"`
}

// ChapterTotals aggregates chapter progress across a queue item.
type ChapterTotals struct {
	Planned     int `json:"planned"`
	Synthesized int `json:"synthesized"`
	Degraded    int `json:"degraded"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastItem    *QueueItem     `json:"lastItem,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// StatusLine is a single labelled readiness row for status displays.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary aggregates dependency readiness counts.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missingRequired"`
	MissingOptional int    `json:"missingOptional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	LogPath      string             `json:"logPath,omitempty"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}
