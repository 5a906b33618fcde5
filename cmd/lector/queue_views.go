package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"lector/internal/api"
)

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildQueueListRows(items []api.QueueItem) [][]string {
	sorted := api.SortQueueItemsNewestFirst(items)
	if len(sorted) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(sorted))
	for _, item := range sorted {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			queueItemTitle(item),
			formatStatusLabel(item.Status),
			formatDisplayTime(item.CreatedAt),
			formatFingerprint(item.Fingerprint),
		})
	}
	return rows
}

func queueItemTitle(item api.QueueItem) string {
	if title := strings.TrimSpace(item.Title); title != "" {
		return title
	}
	if source := strings.TrimSpace(item.SourcePath); source != "" {
		return filepath.Base(source)
	}
	return "Unknown"
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t := api.ParseQueueTime(value); !t.IsZero() {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func formatFingerprint(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	if len(value) > 12 {
		return value[:12]
	}
	return value
}
