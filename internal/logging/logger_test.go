package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lector/internal/config"
	"lector/internal/logging"
	"lector/internal/services"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Info("startup message")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "lector.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "startup message") {
		t.Fatalf("expected log file to contain message, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "console-info.log")

	opts := logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	}

	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "console-debug.log")

	opts := logging.Options{
		Format:      "console",
		Level:       "debug",
		OutputPaths: []string{logPath},
	}

	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewJSONLogger(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "out.json")

	opts := logging.Options{Format: "json", Level: "debug", OutputPaths: []string{logPath}}
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &decoded); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", content, err)
	}
	if decoded["level"] != "info" {
		t.Errorf("level = %v, want info", decoded["level"])
	}
	if decoded["msg"] != "json message" {
		t.Errorf("msg = %v, want 'json message'", decoded["msg"])
	}
	if decoded["k"] != "v" {
		t.Errorf("k = %v, want v", decoded["k"])
	}
	if _, ok := decoded["ts"]; !ok {
		t.Error("expected ts key in JSON output")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := logging.New(logging.Options{Format: "logfmt"})
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "level.log")

	opts := logging.Options{Format: "console", Level: "invalid", OutputPaths: []string{logPath}}
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("suppressed")
	logger.Info("visible")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "suppressed") {
		t.Error("expected debug output to be suppressed at default level")
	}
	if !strings.Contains(string(content), "visible") {
		t.Error("expected info output at default level")
	}
}

func TestNewErrorOutputReceivesOnlyErrors(t *testing.T) {
	tempDir := t.TempDir()
	outPath := filepath.Join(tempDir, "out.log")
	errPath := filepath.Join(tempDir, "err.log")

	opts := logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{outPath},
		ErrorOutputPaths: []string{errPath},
	}
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("plain info")
	logger.Error("boom")

	outContent, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read out log: %v", err)
	}
	errContent, err := os.ReadFile(errPath)
	if err != nil {
		t.Fatalf("read err log: %v", err)
	}
	if !strings.Contains(string(outContent), "plain info") || !strings.Contains(string(outContent), "boom") {
		t.Errorf("expected both records in primary output, got %q", outContent)
	}
	if strings.Contains(string(errContent), "plain info") {
		t.Errorf("expected no info records in error output, got %q", errContent)
	}
	if !strings.Contains(string(errContent), "boom") {
		t.Errorf("expected error record in error output, got %q", errContent)
	}
}

func TestNewWithStreamPublishesEvents(t *testing.T) {
	hub := logging.NewStreamHub(16)
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "stream.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
		Stream:      hub,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("streamed", logging.Int64(logging.FieldItemID, 7))

	events, _ := hub.Tail(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(events))
	}
	if events[0].ItemID != 7 {
		t.Errorf("expected item_id=7 in event, got %d", events[0].ItemID)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithItemID(ctx, 123)
	ctx = services.WithStage(ctx, "synthesizing")
	ctx = services.WithLane(ctx, "synthesis")
	ctx = services.WithRequestID(ctx, "req-xyz")

	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "ctx.json")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WithContext(ctx, logger).Info("contextual log")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &decoded); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if got, ok := decoded[logging.FieldItemID].(float64); !ok || int64(got) != 123 {
		t.Errorf("item_id = %v, want 123", decoded[logging.FieldItemID])
	}
	if decoded[logging.FieldStage] != "synthesizing" {
		t.Errorf("stage = %v, want synthesizing", decoded[logging.FieldStage])
	}
	if decoded[logging.FieldLane] != "synthesis" {
		t.Errorf("lane = %v, want synthesis", decoded[logging.FieldLane])
	}
	if decoded[logging.FieldCorrelationID] != "req-xyz" {
		t.Errorf("correlation_id = %v, want req-xyz", decoded[logging.FieldCorrelationID])
	}
}

func TestSessionIDAppearsInOutput(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "session.json")

	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
		SessionID:   "run-20260825-120000",
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("tagged")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"session_id":"run-20260825-120000"`) {
		t.Fatalf("expected session_id in output, got %q", content)
	}
}
