package preflight

import (
	"context"
	"strings"

	"lector/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// MinStagingFreeBytes is the floor below which the staging disk space check
// fails. Narrating a full-length book spools several gigabytes of WAV audio
// before export compacts it.
const MinStagingFreeBytes = 2 << 30

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Working directories (always checked)
	results = append(results, CheckDirectoryAccess("Inbox directory", cfg.Paths.InboxDir))
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	// Library directory (when configured)
	if cfg.Paths.LibraryDir != "" {
		results = append(results, CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir))
	}

	// Review directory (when configured)
	if cfg.Paths.ReviewDir != "" {
		results = append(results, CheckDirectoryAccess("Review directory", cfg.Paths.ReviewDir))
	}

	// Staging disk headroom
	results = append(results, CheckDiskSpace("Staging disk space", cfg.Paths.StagingDir, MinStagingFreeBytes))

	// Ntfy
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}

	return results
}
