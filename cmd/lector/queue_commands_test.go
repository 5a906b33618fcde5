package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"lector/internal/queue"
)

func TestQueueStatusAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, err := env.store.NewBook(ctx, "/books/Alpha.epub", "fp-alpha", ""); err != nil {
		t.Fatalf("alpha book: %v", err)
	}

	beta, err := env.store.NewBook(ctx, "/books/Beta.epub", "fp-beta", "")
	if err != nil {
		t.Fatalf("beta book: %v", err)
	}
	beta.Status = queue.StatusFailed
	if err := env.store.Update(ctx, beta); err != nil {
		t.Fatalf("beta failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "Pending")
	requireContains(t, out, "Failed")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Alpha")
	requireContains(t, out, "Beta")
}

func TestQueueRetryAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	alpha, err := env.store.NewBook(ctx, "/books/Alpha.epub", "fp-alpha", "")
	if err != nil {
		t.Fatalf("alpha: %v", err)
	}
	alpha.Status = queue.StatusFailed
	if err := env.store.Update(ctx, alpha); err != nil {
		t.Fatalf("alpha failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Retried 1 failed items")

	updated, err := env.store.GetByID(ctx, alpha.ID)
	if err != nil {
		t.Fatalf("lookup alpha: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}

	updated.Status = queue.StatusFailed
	if err := env.store.Update(ctx, updated); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	out, _, err = runCLI(t, []string{"queue", "clear", "--failed"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear failed: %v", err)
	}
	requireContains(t, out, "Cleared 1 failed items")

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared")
}

func TestDatabaseHealthCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"health"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	requireContains(t, out, "Database path:")
	requireContains(t, out, "queue_items table present:")
}

func TestQueueRetrySpecificID(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	alpha, err := env.store.NewBook(ctx, "/books/Alpha.epub", "fp-alpha", "")
	if err != nil {
		t.Fatalf("alpha: %v", err)
	}
	alpha.Status = queue.StatusFailed
	if err := env.store.Update(ctx, alpha); err != nil {
		t.Fatalf("alpha failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry", fmt.Sprintf("%d", alpha.ID)}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry specific: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Item %d reset for retry", alpha.ID))
}

func TestQueueStopSpecificID(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	item, err := env.store.NewBook(ctx, "/books/Alpha.epub", "fp-alpha", "")
	if err != nil {
		t.Fatalf("alpha: %v", err)
	}
	item.Status = queue.StatusSynthesizing
	if err := env.store.Update(ctx, item); err != nil {
		t.Fatalf("alpha synthesizing: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "stop", fmt.Sprintf("%d", item.ID)}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue stop: %v", err)
	}
	requireContains(t, out, "stop requested")
	requireContains(t, out, "will halt after current stage")

	updated, err := env.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("lookup alpha: %v", err)
	}
	if updated.Status != queue.StatusFailed {
		t.Fatalf("expected failed, got %s", updated.Status)
	}
	if updated.ErrorMessage != queue.UserStopReason {
		t.Fatalf("expected error message %q, got %q", queue.UserStopReason, updated.ErrorMessage)
	}
}

func TestQueueRetryInvalidID(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"queue", "retry", "abc"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "invalid item id") {
		t.Fatalf("expected invalid id error, got %v", err)
	}
}

func TestQueueListJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, err := env.store.NewBook(ctx, "/books/Alpha.epub", "fp-alpha", ""); err != nil {
		t.Fatalf("alpha book: %v", err)
	}
	if _, err := env.store.NewBook(ctx, "/books/Beta.epub", "fp-beta", ""); err != nil {
		t.Fatalf("beta book: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "list", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list --json: %v", err)
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, item := range items {
		if _, ok := item["id"]; !ok {
			t.Fatal("missing 'id' key in JSON item")
		}
		if _, ok := item["status"]; !ok {
			t.Fatal("missing 'status' key in JSON item")
		}
	}
}

func TestQueueListJSONEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "list", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list --json empty: %v", err)
	}

	var items []any
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty array, got %d items", len(items))
	}
}

func TestQueueStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, err := env.store.NewBook(ctx, "/books/Alpha.epub", "fp-alpha", ""); err != nil {
		t.Fatalf("alpha book: %v", err)
	}
	beta, err := env.store.NewBook(ctx, "/books/Beta.epub", "fp-beta", "")
	if err != nil {
		t.Fatalf("beta book: %v", err)
	}
	beta.Status = queue.StatusFailed
	if err := env.store.Update(ctx, beta); err != nil {
		t.Fatalf("beta failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "status", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue status --json: %v", err)
	}

	var stats map[string]any
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if _, ok := stats["pending"]; !ok {
		t.Fatalf("expected 'pending' key in status JSON, got: %v", stats)
	}
	if _, ok := stats["failed"]; !ok {
		t.Fatalf("expected 'failed' key in status JSON, got: %v", stats)
	}
}

func TestQueueShowJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	item, err := env.store.NewBook(ctx, "/books/Alpha.epub", "fp-alpha", "")
	if err != nil {
		t.Fatalf("alpha book: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "show", fmt.Sprintf("%d", item.ID), "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue show --json: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if id, ok := payload["id"].(float64); !ok || int64(id) != item.ID {
		t.Fatalf("expected id %d in JSON, got %v", item.ID, payload["id"])
	}
}

func TestQueueShowJSONNotFound(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "show", "9999", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue show --json not found: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if payload["error"] != "not_found" {
		t.Fatalf("expected error not_found, got %v", payload["error"])
	}
}

func TestQueueHealthJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, err := env.store.NewBook(ctx, "/books/Alpha.epub", "fp-alpha", ""); err != nil {
		t.Fatalf("alpha book: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "health", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue health --json: %v", err)
	}

	var health map[string]any
	if err := json.Unmarshal([]byte(out), &health); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if health["total"] != float64(1) {
		t.Fatalf("expected total=1, got %v", health["total"])
	}
}

func TestQueueShowDetail(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	item, err := env.store.NewBook(ctx, "/books/Showcase.epub", "fp-showcase", "")
	if err != nil {
		t.Fatalf("new book: %v", err)
	}
	item.Status = queue.StatusPlanned
	item.ProgressStage = "Planned"
	item.ProgressPercent = 100
	item.PlanJSON = `{"version":1,"title":"Showcase","voice":"narrator","max_words":70,"max_chars":350,"chapters":[{"index":1,"title":"Departure","chunks":[{"index":0,"text":"The ship left at dawn.","words":5,"chars":22}]}]}`
	if err := env.store.Update(ctx, item); err != nil {
		t.Fatalf("update item: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "show", fmt.Sprintf("%d", item.ID)}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	requireContains(t, out, "Title: Showcase")
	requireContains(t, out, "Fingerprint: fp-showcase")
	requireContains(t, out, "Chapters: 1 planned")
	requireContains(t, out, "01 · Departure")
}
