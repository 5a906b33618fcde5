package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const chunkFixtureText = "The cat sat down today. A dog barked at noon. Rain fell on the roof. Wind moved through the trees.\n"

func TestChunkPreview(t *testing.T) {
	env := setupCLITestEnv(t)

	bookPath := filepath.Join(t.TempDir(), "Journey.txt")
	if err := os.WriteFile(bookPath, []byte(chunkFixtureText), 0o644); err != nil {
		t.Fatalf("write book: %v", err)
	}

	out, _, err := runCLI(t, []string{"chunk", bookPath, "--max-words", "10"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	requireContains(t, out, "Title: Journey")
	requireContains(t, out, "Limits: 10 words")
	requireContains(t, out, "Total: 2 chunks, 20 words")
}

func TestChunkPreviewText(t *testing.T) {
	env := setupCLITestEnv(t)

	bookPath := filepath.Join(t.TempDir(), "Journey.txt")
	if err := os.WriteFile(bookPath, []byte(chunkFixtureText), 0o644); err != nil {
		t.Fatalf("write book: %v", err)
	}

	out, _, err := runCLI(t, []string{"chunk", bookPath, "--max-words", "10", "--text"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("chunk --text: %v", err)
	}
	requireContains(t, out, "== Chapter 1 ==")
	requireContains(t, out, "[0]")
	requireContains(t, out, "The cat sat down today.")
}

func TestChunkJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	bookPath := filepath.Join(t.TempDir(), "Journey.txt")
	if err := os.WriteFile(bookPath, []byte(chunkFixtureText), 0o644); err != nil {
		t.Fatalf("write book: %v", err)
	}

	out, _, err := runCLI(t, []string{"--json", "chunk", bookPath, "--max-words", "10"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("chunk --json: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("parse chunk JSON: %v\noutput: %s", err, out)
	}
	if payload["chunks"] != float64(2) {
		t.Fatalf("expected 2 chunks, got %v", payload["chunks"])
	}
	if payload["words"] != float64(20) {
		t.Fatalf("expected 20 words, got %v", payload["words"])
	}
}
