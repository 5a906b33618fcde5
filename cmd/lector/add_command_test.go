package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAddQueuesBook(t *testing.T) {
	env := setupCLITestEnv(t)

	bookPath := filepath.Join(t.TempDir(), "Manual Book.txt")
	if err := os.WriteFile(bookPath, []byte("The first sentence. The second sentence.\n"), 0o644); err != nil {
		t.Fatalf("write book: %v", err)
	}

	out, _, err := runCLI(t, []string{"add", bookPath}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, `Queued "Manual Book" as item #`)

	items, err := env.store.List(context.Background())
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 queued item, got %d", len(items))
	}
	if items[0].Title != "Manual Book" {
		t.Fatalf("unexpected title %q", items[0].Title)
	}

	// Adding the same file again resolves to the existing item.
	out, _, err = runCLI(t, []string{"add", bookPath}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	requireContains(t, out, "item #1")

	items, err = env.store.List(context.Background())
	if err != nil {
		t.Fatalf("list after re-add: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected re-add to dedupe, got %d items", len(items))
	}
}

func TestAddStoresVoice(t *testing.T) {
	env := setupCLITestEnv(t)

	bookPath := filepath.Join(t.TempDir(), "voiced.md")
	if err := os.WriteFile(bookPath, []byte("# Voiced\n\nSome text.\n"), 0o644); err != nil {
		t.Fatalf("write book: %v", err)
	}

	if _, _, err := runCLI(t, []string{"add", bookPath, "--voice", "Professional Female Narrator"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("add with voice: %v", err)
	}

	items, err := env.store.List(context.Background())
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Voice != "Professional Female Narrator" {
		t.Fatalf("unexpected voice %q", items[0].Voice)
	}
}

func TestAddRejectsUnsupportedFormat(t *testing.T) {
	env := setupCLITestEnv(t)

	badPath := filepath.Join(t.TempDir(), "notes.pdf")
	if err := os.WriteFile(badPath, []byte("not a book"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, _, err := runCLI(t, []string{"add", badPath}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unsupported book format") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestAddMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"add", filepath.Join(t.TempDir(), "absent.epub")}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing-file error, got %v", err)
	}
}
