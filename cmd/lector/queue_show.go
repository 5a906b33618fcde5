package main

import (
	"fmt"
	"io"
	"strings"

	"lector/internal/api"
)

// printQueueItemDetail renders the full text view for `queue show <id>`.
func printQueueItemDetail(out io.Writer, item api.QueueItem) {
	fmt.Fprintf(out, "Title: %s\n", queueItemTitle(item))
	if author := strings.TrimSpace(item.Author); author != "" {
		fmt.Fprintf(out, "Author: %s\n", author)
	}
	if voice := strings.TrimSpace(item.Voice); voice != "" {
		fmt.Fprintf(out, "Voice: %s\n", voice)
	}
	fmt.Fprintf(out, "Source: %s\n", item.SourcePath)
	fmt.Fprintf(out, "Status: %s\n", formatStatusLabel(item.Status))
	if stage := strings.TrimSpace(item.Progress.Stage); stage != "" {
		fmt.Fprintf(out, "Progress: %s (%.0f%%)\n", stage, item.Progress.Percent)
	}
	if message := strings.TrimSpace(item.Progress.Message); message != "" {
		fmt.Fprintf(out, "Progress message: %s\n", message)
	}
	if fp := strings.TrimSpace(item.Fingerprint); fp != "" {
		fmt.Fprintf(out, "Fingerprint: %s\n", fp)
	}
	if created := formatDisplayTime(item.CreatedAt); created != "" {
		fmt.Fprintf(out, "Created: %s\n", created)
	}
	if updated := formatDisplayTime(item.UpdatedAt); updated != "" {
		fmt.Fprintf(out, "Updated: %s\n", updated)
	}
	if item.WordCount > 0 {
		fmt.Fprintf(out, "Words: %d\n", item.WordCount)
	}
	if item.ChunkCount > 0 {
		fmt.Fprintf(out, "Chunks: %d\n", item.ChunkCount)
	}
	if duration := api.FormatDuration(item.DurationSeconds); duration != "" {
		fmt.Fprintf(out, "Duration: %s\n", duration)
	}

	if totals := item.ChapterTotals; totals != nil {
		fmt.Fprintf(out, "Chapters: %d planned, %d synthesized", totals.Planned, totals.Synthesized)
		if totals.Degraded > 0 {
			fmt.Fprintf(out, ", %d degraded", totals.Degraded)
		}
		fmt.Fprintln(out)
	}
	if len(item.Chapters) > 0 {
		fmt.Fprintln(out)
		fmt.Fprint(out, renderChapterTable(item.Chapters))
	}

	if final := strings.TrimSpace(item.FinalFile); final != "" {
		fmt.Fprintf(out, "Final file: %s\n", final)
	} else if exported := strings.TrimSpace(item.ExportedFile); exported != "" {
		fmt.Fprintf(out, "Exported file: %s\n", exported)
	}
	if errMsg := strings.TrimSpace(item.ErrorMessage); errMsg != "" {
		fmt.Fprintf(out, "Error: %s\n", errMsg)
	}
	if item.NeedsReview {
		reason := strings.TrimSpace(item.ReviewReason)
		if reason == "" {
			reason = "unspecified"
		}
		fmt.Fprintf(out, "Review: %s\n", reason)
	}
}

func renderChapterTable(chapters []api.ChapterStatus) string {
	rows := make([][]string, 0, len(chapters))
	for _, ch := range chapters {
		duration := api.FormatDuration(ch.DurationSeconds)
		if duration == "" {
			duration = "-"
		}
		stage := formatStatusLabel(ch.Stage)
		if ch.DegradedChunks > 0 {
			stage = fmt.Sprintf("%s (%d degraded)", stage, ch.DegradedChunks)
		}
		rows = append(rows, []string{
			api.ChapterDisplayLabel(ch),
			fmt.Sprintf("%d", ch.Chunks),
			fmt.Sprintf("%d", ch.Words),
			duration,
			stage,
		})
	}
	return renderTable(
		[]string{"Chapter", "Chunks", "Words", "Duration", "Stage"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}
