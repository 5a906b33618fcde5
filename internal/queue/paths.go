package queue

import (
	"fmt"
	"path/filepath"
	"strings"

	"lector/internal/fileutil"
)

// StagingRoot returns the per-item staging directory rooted at base.
// The source fingerprint keeps reprocessed books in a stable directory;
// items without one fall back to queue-{ID} to avoid collisions.
func (i Item) StagingRoot(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	segment := strings.TrimSpace(i.Fingerprint)
	if segment == "" {
		segment = fmt.Sprintf("queue-%d", i.ID)
	}
	segment = sanitizeSegment(segment)
	return filepath.Join(base, segment)
}

func sanitizeSegment(value string) string {
	value = fileutil.SanitizeFileName(value)
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, " ", "-")
	value = strings.Trim(value, "-_")
	if value == "" {
		return "queue"
	}
	return value
}
