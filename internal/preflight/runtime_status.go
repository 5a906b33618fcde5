package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"lector/internal/config"
)

// CheckNtfyFromConfig evaluates ntfy status from config and connectivity.
func CheckNtfyFromConfig(cfg *config.Config) Result {
	const name = "Ntfy"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	check := CheckNtfy(context.Background(), cfg.Notifications.NtfyTopic)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}

// EngineProbe reports the current speech-engine detection snapshot.
type EngineProbe struct {
	Available bool
	Binary    string
	Version   string
}

// ProbeEngine attempts to locate the speech engine binary and read its version.
func ProbeEngine(binary string) EngineProbe {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "maya-tts"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return EngineProbe{Binary: binary}
	}

	probe := EngineProbe{Available: true, Binary: resolved}

	// Version lookup is best effort; older engine builds do not support the flag.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, resolved, "--version")
	output, err := cmd.Output()
	if err != nil {
		return probe
	}
	text := strings.TrimSpace(string(output))
	if text == "" {
		return probe
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}
	probe.Version = text
	return probe
}

// Detail renders a display-friendly summary for status UIs.
func (p EngineProbe) Detail() string {
	if !p.Available {
		return fmt.Sprintf("'%s' not found on PATH", p.Binary)
	}
	if p.Version == "" {
		return p.Binary
	}
	return fmt.Sprintf("%s (%s)", p.Binary, p.Version)
}
