package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"lector/internal/logging"
	"lector/internal/preflight"
)

// RunPreflight validates external readiness before the daemon starts
// processing. It returns nil when all checks pass, or an error describing
// every failure so the operator can fix them in one round.
func (m *Manager) RunPreflight(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = m.logger
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	results := preflight.RunAll(ctx, m.cfg)
	if len(results) == 0 {
		return nil
	}

	var failures []string
	for _, r := range results {
		if r.Passed {
			logger.Info("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
		} else {
			logger.Error("preflight check failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_failed"),
				logging.String(logging.FieldErrorHint, "fix the reported issue and restart the daemon"),
			)
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("preflight checks failed: %s", strings.Join(failures, "; "))
	}
	return nil
}
