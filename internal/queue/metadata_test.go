package queue

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestMetadataGetLibraryPathUsesAuthorFolder(t *testing.T) {
	payload := map[string]any{"title": "Dune", "author": "Frank Herbert"}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	meta := MetadataFromJSON(string(data), "Dune")
	got := meta.GetLibraryPath("/library", "audiobooks")
	want := filepath.Join("/library", "audiobooks", "Frank Herbert")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMetadataGetLibraryPathSeriesBuildsHierarchy(t *testing.T) {
	meta := NewSeriesMetadata("Brandon Sanderson", "Mistborn", 3, "The Hero of Ages")
	got := meta.GetLibraryPath("/library", "audiobooks")
	want := filepath.Join("/library", "audiobooks", "Brandon Sanderson", "Mistborn")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if name := meta.GetFilename(); name != "03 - The Hero of Ages" {
		t.Fatalf("unexpected filename %q", name)
	}
}

func TestMetadataGetLibraryPathMissingAuthor(t *testing.T) {
	meta := MetadataFromJSON("", "Anonymous Tales")
	got := meta.GetLibraryPath("/library", "audiobooks")
	want := filepath.Join("/library", "audiobooks", UnknownAuthor)
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMetadataExplicitLibraryPathWins(t *testing.T) {
	meta := Metadata{TitleValue: "Dune", AuthorValue: "Frank Herbert", LibraryPath: "/elsewhere"}
	if got := meta.GetLibraryPath("/library", "audiobooks"); got != "/elsewhere" {
		t.Fatalf("expected explicit path to win, got %q", got)
	}
}

func TestMetadataGetFilenameSanitizes(t *testing.T) {
	meta := MetadataFromJSON("", "Dune: Messiah / Revised")
	want := "Dune - Messiah - Revised"
	if meta.GetFilename() != want {
		t.Fatalf("expected sanitized filename %q, got %q", want, meta.GetFilename())
	}
}

func TestMetadataSeriesIndexFormatting(t *testing.T) {
	cases := []struct {
		index float64
		want  string
	}{
		{1, "01 - Novella"},
		{1.5, "1.5 - Novella"},
		{12, "12 - Novella"},
	}
	for _, tc := range cases {
		meta := NewSeriesMetadata("Author", "Saga", tc.index, "Novella")
		if got := meta.GetFilename(); got != tc.want {
			t.Errorf("index %v: expected %q, got %q", tc.index, tc.want, got)
		}
	}
}

func TestMetadataGetBaseFilenameExcludesSeriesPrefix(t *testing.T) {
	meta := NewSeriesMetadata("Author", "Saga", 2, "The Second Book")
	if got := meta.GetBaseFilename(); got != "The Second Book" {
		t.Fatalf("GetBaseFilename expected %q, got %q", "The Second Book", got)
	}
	if got := meta.GetFilename(); got != "02 - The Second Book" {
		t.Fatalf("GetFilename expected %q, got %q", "02 - The Second Book", got)
	}
}

func TestNewBookMetadataDefaultsTitle(t *testing.T) {
	meta := NewBookMetadata("   ", "")
	if meta.TitleValue != "Untitled Book" {
		t.Fatalf("expected fallback title, got %q", meta.TitleValue)
	}
}

func TestMetadataRoundTripsNarratorAndLanguage(t *testing.T) {
	meta := NewBookMetadata("Dune", "Frank Herbert")
	meta.Narrator = "narrator"
	meta.Language = "en"
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	loaded := MetadataFromJSON(string(data), "fallback")
	if loaded.Narrator != "narrator" || loaded.Language != "en" {
		t.Fatalf("expected narrator/language preserved, got %#v", loaded)
	}
	if loaded.Title() != "Dune" || loaded.Author() != "Frank Herbert" {
		t.Fatalf("unexpected accessors: %q / %q", loaded.Title(), loaded.Author())
	}
}
