package api

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
	"unicode"

	"lector/internal/assemble"
	"lector/internal/book"
	"lector/internal/queue"
	"lector/internal/report"
	"lector/internal/stage"
	"lector/internal/workflow"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}

	dto := QueueItem{
		ID:             item.ID,
		Title:          item.Title,
		Author:         item.Author,
		Voice:          strings.TrimSpace(item.Voice),
		SourcePath:     item.SourcePath,
		Status:         string(item.Status),
		ProcessingLane: string(queue.LaneForItem(item)),
		Progress: QueueProgress{
			Stage:   item.ProgressStage,
			Percent: item.ProgressPercent,
			Message: item.ProgressMessage,
		},
		ErrorMessage:      item.ErrorMessage,
		Fingerprint:       item.Fingerprint,
		ExportedFile:      item.ExportedFile,
		FinalFile:         item.FinalFile,
		BackgroundLogPath: item.BackgroundLogPath,
		NeedsReview:       item.NeedsReview,
		ReviewReason:      item.ReviewReason,
	}

	if !item.CreatedAt.IsZero() {
		dto.CreatedAt = item.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		dto.UpdatedAt = item.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if raw := item.MetadataJSON; raw != "" {
		dto.Metadata = json.RawMessage(raw)
	}
	if raw := item.ReportJSON; raw != "" {
		dto.Report = json.RawMessage(raw)
	}
	applyProgressDefaults(&dto, item)
	applyNarrationArtifacts(&dto, item)
	return dto
}

func applyProgressDefaults(dto *QueueItem, item *queue.Item) {
	if strings.TrimSpace(dto.Progress.Stage) == "" {
		dto.Progress.Stage = stageLabelForStatus(item.Status)
	}
	// Completed items keep review labels; anything else displays as done.
	if item.Status == queue.StatusCompleted && !item.NeedsReview {
		dto.Progress.Stage = "Completed"
		dto.Progress.Percent = 100
	}
}

func stageLabelForStatus(status queue.Status) string {
	raw := string(status)
	if raw == "" {
		return ""
	}
	runes := []rune(raw)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// FromQueueItems converts a slice of queue records into API DTOs.
func FromQueueItems(items []*queue.Item) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	healthNames := make([]string, 0, len(summary.StageHealth))
	for name := range summary.StageHealth {
		healthNames = append(healthNames, name)
	}
	slices.Sort(healthNames)

	health := make([]StageHealth, 0, len(healthNames))
	for _, name := range healthNames {
		h := summary.StageHealth[name]
		health = append(health, StageHealth{
			Name:   name,
			Ready:  h.Ready,
			Detail: h.Detail,
		})
	}

	stats := make(map[string]int, len(summary.QueueStats))
	for status, count := range summary.QueueStats {
		stats[string(status)] = count
	}

	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  stats,
		StageHealth: health,
	}

	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.LastItem != nil {
		last := FromQueueItem(summary.LastItem)
		wf.LastItem = &last
	}
	return wf
}

// MergeQueueStats produces a string-keyed representation of queue stats.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// applyNarrationArtifacts fills the DTO fields derived from the stored chunk
// plan and synthesis report. The plan itself never crosses the wire because
// it embeds the full book text.
func applyNarrationArtifacts(dto *QueueItem, item *queue.Item) {
	rep, hasReport := parseReportJSON(item.ReportJSON)
	if hasReport {
		dto.DurationSeconds = rep.TotalDurationS
		dto.Degraded = rep.Degraded()
	}

	plan, err := book.ParsePlan(item.PlanJSON)
	if err != nil || len(plan.Chapters) == 0 {
		return
	}
	dto.ChunkCount = plan.ChunkCount()
	dto.WordCount = plan.WordCount()

	chapters, totals := chapterStatuses(item, plan, rep)
	if len(chapters) == 0 {
		return
	}
	dto.Chapters = chapters
	t := totals
	dto.ChapterTotals = &t
}

func parseReportJSON(raw string) (report.Report, bool) {
	if strings.TrimSpace(raw) == "" {
		return report.Report{}, false
	}
	rep, err := report.Parse(raw)
	if err != nil {
		return report.Report{}, false
	}
	return rep, true
}

func chapterStatuses(item *queue.Item, plan book.Plan, rep report.Report) ([]ChapterStatus, ChapterTotals) {
	timelines := indexTimelines(rep.Chapters)
	failed := indexFailedChunks(rep.FailedChunks)
	effectiveStage := makeChapterStageResolver(item)

	statuses := make([]ChapterStatus, 0, len(plan.Chapters))
	totals := ChapterTotals{Planned: len(plan.Chapters)}
	for _, ch := range plan.Chapters {
		status := ChapterStatus{
			Index:  ch.Index,
			Title:  strings.TrimSpace(ch.Title),
			Chunks: len(ch.Chunks),
		}
		for _, chunk := range ch.Chunks {
			status.Words += chunk.Words
			if _, bad := failed[chunk.Index]; bad {
				status.DegradedChunks++
			}
		}
		timeline, synthesized := timelines[ch.Index]
		if synthesized {
			status.DurationSeconds = timeline.TotalDurationS
			totals.Synthesized++
		}
		if status.DegradedChunks > 0 {
			totals.Degraded++
		}
		status.Stage = effectiveStage(synthesized)
		statuses = append(statuses, status)
	}
	return statuses, totals
}

func indexTimelines(chapters []assemble.ChapterTimeline) map[int]assemble.ChapterTimeline {
	if len(chapters) == 0 {
		return nil
	}
	lookup := make(map[int]assemble.ChapterTimeline, len(chapters))
	for _, timeline := range chapters {
		lookup[timeline.ChapterID] = timeline
	}
	return lookup
}

func indexFailedChunks(indices []int) map[int]struct{} {
	if len(indices) == 0 {
		return nil
	}
	lookup := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		lookup[idx] = struct{}{}
	}
	return lookup
}

func makeChapterStageResolver(item *queue.Item) func(synthesized bool) string {
	queueStage := ""
	finalized := false
	if item != nil {
		queueStage = item.Status.StageKey()
		finalized = strings.TrimSpace(item.FinalFile) != ""
	}
	return func(synthesized bool) string {
		// Prefer concrete artefacts over inferred status.
		switch {
		case finalized:
			return "final"
		case synthesized:
			return "synthesized"
		case queueStage != "":
			return queueStage
		default:
			return "planned"
		}
	}
}
