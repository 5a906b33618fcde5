package workflow_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lector/internal/logging"
	"lector/internal/queue"
	"lector/internal/testsupport"
	"lector/internal/workflow"
)

func TestBackgroundLoggerEnsureAssignsStablePath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	bg := workflow.NewBackgroundLogger(cfg, nil)

	item := &queue.Item{ID: 7, Fingerprint: "a1b2c3d4e5f60718", Title: "The Time Machine"}
	path, created, err := bg.Ensure(item)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if !created {
		t.Fatal("expected first Ensure to assign a path")
	}
	if filepath.Dir(path) != filepath.Join(cfg.Paths.LogDir, "background") {
		t.Fatalf("unexpected log directory: %s", path)
	}
	base := filepath.Base(path)
	if !strings.Contains(base, "a1b2c3d4e5f60718") {
		t.Fatalf("expected fingerprint in log name, got %s", base)
	}
	if !strings.Contains(base, "the-time-machine") {
		t.Fatalf("expected title slug in log name, got %s", base)
	}

	again, created, err := bg.Ensure(item)
	if err != nil {
		t.Fatalf("second Ensure failed: %v", err)
	}
	if created {
		t.Fatal("expected second Ensure to reuse the existing path")
	}
	if again != path {
		t.Fatalf("expected stable path, got %s then %s", path, again)
	}
}

func TestBackgroundLoggerHandlerWritesToFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	bg := workflow.NewBackgroundLogger(cfg, nil)

	item := &queue.Item{ID: 3, Fingerprint: "feedface00112233", Title: "Walden"}
	path, _, err := bg.Ensure(item)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	handler, err := bg.CreateHandler(path)
	if err != nil {
		t.Fatalf("CreateHandler failed: %v", err)
	}
	logger := logging.NewComponentLogger(slog.New(handler), "test")
	logger.Info("narration chunk finished", logging.Int("chunk", 12))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "narration chunk finished") {
		t.Fatalf("expected log record in item log, got: %s", data)
	}
}
