package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func newTestConsoleLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	lvl := &slog.LevelVar{}
	lvl.Set(level)
	return slog.New(newPrettyHandler(buf, lvl, false))
}

func TestPrettyHandlerHeaderComposition(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsoleLogger(&buf, slog.LevelInfo)

	logger.Info("chunk delivered",
		slog.String(FieldComponent, "workflow"),
		slog.String(FieldLane, "synthesis"),
		slog.Int64(FieldItemID, 12),
		slog.String(FieldStage, "synthesizing"),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO [workflow] Synthesis · Item #12 (synthesizing) – chunk delivered") {
		t.Fatalf("unexpected header line: %q", line)
	}
}

func TestPrettyHandlerInfoBullets(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsoleLogger(&buf, slog.LevelInfo)

	logger.Info("book queued",
		slog.String(FieldComponent, "queue"),
		slog.String(FieldBookTitle, "Dune"),
		slog.String(FieldVoice, "maya_en_female"),
	)

	output := buf.String()
	if !strings.Contains(output, "    - Book: Dune") {
		t.Errorf("expected Book bullet, got %q", output)
	}
	if !strings.Contains(output, "    - Voice: maya_en_female") {
		t.Errorf("expected Voice bullet, got %q", output)
	}
}

func TestPrettyHandlerSuppressesRepeatedInfoFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsoleLogger(&buf, slog.LevelInfo)
	item := logger.With(slog.Int64(FieldItemID, 5))

	item.Info("first", slog.String(FieldBookTitle, "Dune"))
	first := buf.String()
	buf.Reset()
	item.Info("second", slog.String(FieldBookTitle, "Dune"))
	second := buf.String()

	if !strings.Contains(first, "- Book: Dune") {
		t.Fatalf("expected Book bullet on first log, got %q", first)
	}
	if strings.Contains(second, "- Book: Dune") {
		t.Fatalf("expected repeated Book bullet to be suppressed, got %q", second)
	}
}

func TestPrettyHandlerRepeatedFieldReappearsAfterChange(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsoleLogger(&buf, slog.LevelInfo)
	item := logger.With(slog.Int64(FieldItemID, 6))

	item.Info("first", slog.String(FieldVoice, "maya_en_female"))
	buf.Reset()
	item.Info("second", slog.String(FieldVoice, "maya_en_male"))

	if !strings.Contains(buf.String(), "- Voice: maya_en_male") {
		t.Fatalf("expected changed Voice value to be emitted, got %q", buf.String())
	}
}

func TestPrettyHandlerDebugShowsRawKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsoleLogger(&buf, slog.LevelDebug)

	logger.Debug("synth attempt",
		slog.Int("seed", 12345),
		slog.Float64("rms", 0.042),
	)

	output := buf.String()
	if !strings.Contains(output, "    seed: 12345") {
		t.Errorf("expected raw seed attr in debug output, got %q", output)
	}
	if !strings.Contains(output, "    rms: 0.042") {
		t.Errorf("expected raw rms attr in debug output, got %q", output)
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsoleLogger(&buf, slog.LevelInfo)

	logger.Debug("below threshold")

	if buf.Len() != 0 {
		t.Fatalf("expected debug record to be dropped, got %q", buf.String())
	}
}

func TestPrettyHandlerEmptyMessagePlaceholder(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsoleLogger(&buf, slog.LevelInfo)

	logger.Info("")

	if !strings.Contains(buf.String(), "(no message)") {
		t.Fatalf("expected placeholder for empty message, got %q", buf.String())
	}
}

func TestPrettyHandlerGroupsFlattenWithDotPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsoleLogger(&buf, slog.LevelDebug)

	logger.Debug("grouped", slog.Group("engine", slog.String("model", "maya-1")))

	if !strings.Contains(buf.String(), "engine.model: maya-1") {
		t.Fatalf("expected dotted group key, got %q", buf.String())
	}
}

func TestFormatSubject(t *testing.T) {
	tests := []struct {
		name   string
		lane   string
		itemID string
		stage  string
		want   string
	}{
		{"lane item stage", "synthesis", "12", "synthesizing", "Synthesis · Item #12 (synthesizing)"},
		{"item only", "", "7", "", "Item #7"},
		{"stage only", "", "", "planning", "planning"},
		{"lane only", "intake", "", "", "Intake"},
		{"empty", "", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSubject(tt.lane, tt.itemID, tt.stage); got != tt.want {
				t.Errorf("FormatSubject(%q, %q, %q) = %q, want %q", tt.lane, tt.itemID, tt.stage, got, tt.want)
			}
		})
	}
}

func TestLevelLabel(t *testing.T) {
	if got := levelLabel(slog.LevelError); got != "ERROR" {
		t.Errorf("levelLabel(error) = %q", got)
	}
	if got := levelLabel(slog.LevelWarn); got != "WARN" {
		t.Errorf("levelLabel(warn) = %q", got)
	}
	if got := levelLabel(slog.LevelInfo); got != "INFO" {
		t.Errorf("levelLabel(info) = %q", got)
	}
	if got := levelLabel(slog.LevelDebug); got != "DEBUG" {
		t.Errorf("levelLabel(debug) = %q", got)
	}
}
