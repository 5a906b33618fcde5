package book

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadTextMarkdownChapters(t *testing.T) {
	src := "# The Hobbit\n\nIn a hole in the ground\nthere lived a hobbit.\n\n## An Unexpected Party\n\nThis chapter has **bold** text and a [link](https://example.com).\n\n### Not a chapter\n\n```\ncode to skip\n```\n\nMore prose.\n"
	path := writeTestFile(t, "the_hobbit.md", src)

	bk, err := LoadText(path)
	if err != nil {
		t.Fatalf("LoadText: %v", err)
	}
	if len(bk.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d: %+v", len(bk.Chapters), bk.Chapters)
	}

	first := bk.Chapters[0]
	if first.Title != "The Hobbit" {
		t.Fatalf("chapter 1 title = %q", first.Title)
	}
	wantFirst := "The Hobbit\n\nIn a hole in the ground there lived a hobbit."
	if first.Text != wantFirst {
		t.Fatalf("chapter 1 text:\n got %q\nwant %q", first.Text, wantFirst)
	}

	second := bk.Chapters[1]
	if second.Title != "An Unexpected Party" {
		t.Fatalf("chapter 2 title = %q", second.Title)
	}
	wantSecond := "An Unexpected Party\n\nThis chapter has bold text and a link.\n\nNot a chapter\n\nMore prose."
	if second.Text != wantSecond {
		t.Fatalf("chapter 2 text:\n got %q\nwant %q", second.Text, wantSecond)
	}
}

func TestLoadTextPlainChapterHeadings(t *testing.T) {
	src := "CHAPTER I\n\nCall me Ishmael.\n\nCHAPTER II\n\nSome years ago, never mind how long.\n"
	path := writeTestFile(t, "moby.txt", src)

	bk, err := LoadText(path)
	if err != nil {
		t.Fatalf("LoadText: %v", err)
	}
	if len(bk.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d: %+v", len(bk.Chapters), bk.Chapters)
	}
	if bk.Chapters[0].Title != "CHAPTER I" || bk.Chapters[1].Title != "CHAPTER II" {
		t.Fatalf("unexpected titles: %q, %q", bk.Chapters[0].Title, bk.Chapters[1].Title)
	}
	want := "CHAPTER I\n\nCall me Ishmael."
	if bk.Chapters[0].Text != want {
		t.Fatalf("chapter 1 text:\n got %q\nwant %q", bk.Chapters[0].Text, want)
	}
}

func TestLoadTextPlainKeepsProseStartingWithPart(t *testing.T) {
	src := "Part of the problem was clear to everyone in the room.\n\nChapter 2\n\nThe rest followed quickly.\n"
	path := writeTestFile(t, "story.txt", src)

	bk, err := LoadText(path)
	if err != nil {
		t.Fatalf("LoadText: %v", err)
	}
	if len(bk.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d: %+v", len(bk.Chapters), bk.Chapters)
	}
	if bk.Chapters[0].Title != "Chapter 1" {
		t.Fatalf("preamble title = %q, want positional fallback", bk.Chapters[0].Title)
	}
	if bk.Chapters[1].Title != "Chapter 2" {
		t.Fatalf("heading title = %q", bk.Chapters[1].Title)
	}
}

func TestLoadTextSingleChapterFallback(t *testing.T) {
	src := "Just one paragraph\nwrapped across lines.\n\nAnd a second paragraph.\n"
	path := writeTestFile(t, "ishmael_story.txt", src)

	bk, err := LoadText(path)
	if err != nil {
		t.Fatalf("LoadText: %v", err)
	}
	if bk.Title != "ishmael story" {
		t.Fatalf("book title = %q", bk.Title)
	}
	if len(bk.Chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(bk.Chapters))
	}
	want := "Just one paragraph wrapped across lines.\n\nAnd a second paragraph."
	if bk.Chapters[0].Text != want {
		t.Fatalf("text:\n got %q\nwant %q", bk.Chapters[0].Text, want)
	}
}

func TestLoadTextNormalizesBOMAndCRLF(t *testing.T) {
	src := "\uFEFFHello there.\r\nStill the same paragraph.\r\n\r\nNew paragraph.\r\n"
	path := writeTestFile(t, "windows.txt", src)

	bk, err := LoadText(path)
	if err != nil {
		t.Fatalf("LoadText: %v", err)
	}
	want := "Hello there. Still the same paragraph.\n\nNew paragraph."
	if bk.Chapters[0].Text != want {
		t.Fatalf("text:\n got %q\nwant %q", bk.Chapters[0].Text, want)
	}
}

func TestLoadTextEmptyFile(t *testing.T) {
	path := writeTestFile(t, "empty.txt", "   \n\n  \n")
	if _, err := LoadText(path); err == nil {
		t.Fatal("expected error for file with no text")
	}
}

func TestLoadTextMissingFile(t *testing.T) {
	if _, err := LoadText(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
