// Package report defines the synthesis report shared between the
// synthesis, export, and organizing stages. The report records where the
// raw audio spool lives, the chapter timelines measured during assembly,
// and which chunks exhausted their retries, so later stages never have to
// re-derive timing from the audio itself.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"lector/internal/assemble"
)

// Version is written into every report so schema changes can be detected.
const Version = 1

// Report captures the structured payload the synthesis stage hands to
// export and organization.
type Report struct {
	Version        int                        `json:"version"`
	Voice          string                     `json:"voice,omitempty"`
	Model          string                     `json:"model,omitempty"`
	SampleRate     int                        `json:"sample_rate"`
	SpoolPath      string                     `json:"spool_path"`
	TotalDurationS float64                    `json:"total_duration_s"`
	Chapters       []assemble.ChapterTimeline `json:"chapters"`
	FailedChunks   []int                      `json:"failed_chunks,omitempty"`
	ChunkCount     int                        `json:"chunk_count"`
	Workers        int                        `json:"workers,omitempty"`
	SynthesisS     float64                    `json:"synthesis_s,omitempty"`
}

// Parse loads a report from JSON and validates the fields later stages
// depend on.
func Parse(raw string) (Report, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Report{}, fmt.Errorf("report is empty")
	}
	var r Report
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Report{}, fmt.Errorf("parse report: %w", err)
	}
	if r.Version != Version {
		return Report{}, fmt.Errorf("unsupported report version %d", r.Version)
	}
	if r.SampleRate <= 0 {
		return Report{}, fmt.Errorf("report has invalid sample rate %d", r.SampleRate)
	}
	if len(r.Chapters) == 0 {
		return Report{}, fmt.Errorf("report has no chapters")
	}
	r.Chapters = slices.Clone(r.Chapters)
	r.FailedChunks = slices.Clone(r.FailedChunks)
	return r, nil
}

// Encode serialises the report to JSON.
func (r Report) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Degraded reports whether any chunk shipped below the quality gate.
func (r Report) Degraded() bool {
	return len(r.FailedChunks) > 0
}

// TotalSamples returns the spool length implied by the total duration.
func (r Report) TotalSamples() int64 {
	return int64(math.Round(r.TotalDurationS * float64(r.SampleRate)))
}

// RealtimeFactor returns audio seconds produced per wall-clock second of
// synthesis, or zero when the synthesis duration was not recorded.
func (r Report) RealtimeFactor() float64 {
	if r.SynthesisS <= 0 {
		return 0
	}
	return r.TotalDurationS / r.SynthesisS
}
