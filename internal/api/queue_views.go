package api

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SortQueueItemsNewestFirst orders queue items by CreatedAt descending, breaking ties by ID descending.
func SortQueueItemsNewestFirst(items []QueueItem) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]QueueItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		ti := parseQueueTime(sorted[i].CreatedAt)
		tj := parseQueueTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}

func parseQueueTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

// ParseQueueTime exposes queue timestamp parsing for consumers that need display formatting.
func ParseQueueTime(value string) time.Time {
	return parseQueueTime(value)
}

// ChapterDisplayLabel renders a short chapter identifier for table views.
func ChapterDisplayLabel(ch ChapterStatus) string {
	if title := strings.TrimSpace(ch.Title); title != "" {
		return fmt.Sprintf("%02d · %s", ch.Index, title)
	}
	return fmt.Sprintf("Chapter %02d", ch.Index)
}

// FormatDuration renders a duration in seconds as H:MM:SS (or M:SS under an
// hour) for table views. Zero and negative durations render empty.
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	total := int(seconds + 0.5)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
