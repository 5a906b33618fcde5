package api

import (
	"testing"

	"lector/internal/assemble"
	"lector/internal/book"
	"lector/internal/queue"
	"lector/internal/report"
)

func narrationPlan(t *testing.T) string {
	t.Helper()
	plan := book.Plan{
		Version:  book.PlanVersion,
		Title:    "Morning Train",
		Author:   "Avery Holt",
		Voice:    "calm narrator",
		MaxWords: 80,
		MaxChars: 480,
		Chapters: []book.ChapterPlan{
			{Index: 1, Title: "Dawn", Chunks: []book.ChunkPlan{
				{Index: 0, Text: "First light over the yard.", Words: 5, Chars: 26},
				{Index: 1, Text: "The platform hummed.", Words: 3, Chars: 20},
			}},
			{Index: 2, Title: "Departure", Chunks: []book.ChunkPlan{
				{Index: 2, Text: "Doors closed at seven.", Words: 4, Chars: 22},
				{Index: 3, Text: "The city slid away.", Words: 4, Chars: 19},
			}},
		},
	}
	encoded, err := plan.Encode()
	if err != nil {
		t.Fatalf("encode plan: %v", err)
	}
	return encoded
}

func narrationReport(t *testing.T, failedChunks []int) string {
	t.Helper()
	rep := report.Report{
		Version:    report.Version,
		Voice:      "calm narrator",
		SampleRate: 24000,
		SpoolPath:  "/staging/fp/audio/narration.pcm",
		Chapters: []assemble.ChapterTimeline{
			{ChapterID: 1, Title: "Dawn", StartS: 0, EndS: 61.5, TotalDurationS: 61.5},
			{ChapterID: 2, Title: "Departure", StartS: 61.5, EndS: 120, TotalDurationS: 58.5},
		},
		TotalDurationS: 120,
		FailedChunks:   failedChunks,
		ChunkCount:     4,
	}
	encoded, err := rep.Encode()
	if err != nil {
		t.Fatalf("encode report: %v", err)
	}
	return encoded
}

func TestFromQueueItemIncludesChapters(t *testing.T) {
	item := &queue.Item{
		ID:         12,
		Title:      "Morning Train",
		Author:     "Avery Holt",
		Status:     queue.StatusSynthesized,
		PlanJSON:   narrationPlan(t),
		ReportJSON: narrationReport(t, []int{2}),
	}

	dto := FromQueueItem(item)
	if len(dto.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(dto.Chapters))
	}
	if dto.ChapterTotals == nil {
		t.Fatal("expected chapter totals to be populated")
	}
	if dto.ChapterTotals.Planned != 2 || dto.ChapterTotals.Synthesized != 2 || dto.ChapterTotals.Degraded != 1 {
		t.Fatalf("unexpected totals: %+v", dto.ChapterTotals)
	}
	if dto.ChunkCount != 4 || dto.WordCount != 16 {
		t.Fatalf("unexpected plan counts: chunks=%d words=%d", dto.ChunkCount, dto.WordCount)
	}
	if !dto.Degraded {
		t.Fatal("expected degraded flag for report with failed chunks")
	}
	if dto.DurationSeconds != 120 {
		t.Fatalf("unexpected duration: %v", dto.DurationSeconds)
	}

	first, second := dto.Chapters[0], dto.Chapters[1]
	if first.Stage != "synthesized" || second.Stage != "synthesized" {
		t.Fatalf("unexpected chapter stages: %q %q", first.Stage, second.Stage)
	}
	if first.DurationSeconds != 61.5 {
		t.Fatalf("unexpected chapter duration: %v", first.DurationSeconds)
	}
	if first.DegradedChunks != 0 || second.DegradedChunks != 1 {
		t.Fatalf("failed chunk 2 should land in chapter 2: %d %d", first.DegradedChunks, second.DegradedChunks)
	}
	if first.Words != 8 || second.Words != 8 {
		t.Fatalf("unexpected word counts: %d %d", first.Words, second.Words)
	}
}

func TestChapterStageFallsBackToQueueStatus(t *testing.T) {
	item := &queue.Item{
		Status:   queue.StatusSynthesizing,
		PlanJSON: narrationPlan(t),
	}

	dto := FromQueueItem(item)
	if len(dto.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(dto.Chapters))
	}
	for _, ch := range dto.Chapters {
		if ch.Stage != "synthesizing" {
			t.Fatalf("expected stage to fall back to queue status, got %q", ch.Stage)
		}
	}
	if dto.Degraded {
		t.Fatal("no report yet, item must not look degraded")
	}
}

func TestChapterStagePrefersFinalArtifact(t *testing.T) {
	item := &queue.Item{
		Status:     queue.StatusCompleted,
		PlanJSON:   narrationPlan(t),
		ReportJSON: narrationReport(t, nil),
		FinalFile:  "/library/Avery Holt/Morning Train.m4b",
	}

	dto := FromQueueItem(item)
	for _, ch := range dto.Chapters {
		if ch.Stage != "final" {
			t.Fatalf("shelved book should report chapters final, got %q", ch.Stage)
		}
	}
}

func TestFromQueueItemSkipsChaptersWithoutPlan(t *testing.T) {
	dto := FromQueueItem(&queue.Item{Status: queue.StatusPending})
	if len(dto.Chapters) != 0 || dto.ChapterTotals != nil {
		t.Fatalf("expected no chapter data, got %+v", dto)
	}
}

func TestFromQueueItem_NormalizesCompletedProgressStage(t *testing.T) {
	item := &queue.Item{
		Status:          queue.StatusCompleted,
		ProgressStage:   "Organizing",
		ProgressPercent: 42,
	}

	dto := FromQueueItem(item)
	if dto.Progress.Stage != "Completed" {
		t.Fatalf("expected completed stage, got %q", dto.Progress.Stage)
	}
	if dto.Progress.Percent != 100 {
		t.Fatalf("expected percent 100, got %v", dto.Progress.Percent)
	}
}

func TestFromQueueItem_PreservesReviewCompletionStage(t *testing.T) {
	item := &queue.Item{
		Status:          queue.StatusCompleted,
		NeedsReview:     true,
		ProgressStage:   "Manual review",
		ProgressPercent: 100,
	}

	dto := FromQueueItem(item)
	if dto.Progress.Stage != "Manual review" {
		t.Fatalf("expected manual review stage, got %q", dto.Progress.Stage)
	}
	if dto.Progress.Percent != 100 {
		t.Fatalf("expected percent 100, got %v", dto.Progress.Percent)
	}
}

func TestFromQueueItem_FillsEmptyProgressStageFromStatus(t *testing.T) {
	tests := []struct {
		name   string
		status queue.Status
		want   string
	}{
		{name: "pending", status: queue.StatusPending, want: "Pending"},
		{name: "synthesizing", status: queue.StatusSynthesizing, want: "Synthesizing"},
		{name: "organizing", status: queue.StatusOrganizing, want: "Organizing"},
		{name: "completed", status: queue.StatusCompleted, want: "Completed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &queue.Item{
				Status:        tt.status,
				ProgressStage: "",
			}
			dto := FromQueueItem(item)
			if dto.Progress.Stage != tt.want {
				t.Fatalf("expected stage %q, got %q", tt.want, dto.Progress.Stage)
			}
		})
	}
}
