package voice

import (
	"sort"
	"strings"
	"testing"
)

func TestPresetsReturnsCopy(t *testing.T) {
	all := Presets()
	if len(all) != 15 {
		t.Fatalf("expected 15 presets, got %d", len(all))
	}
	all[0].Name = "mutated"
	if Presets()[0].Name == "mutated" {
		t.Fatal("Presets should not expose the backing slice")
	}
}

func TestPresetByName(t *testing.T) {
	p, ok := PresetByName("professional female narrator")
	if !ok {
		t.Fatal("case-insensitive lookup failed")
	}
	if p.Category != "female_professional" {
		t.Fatalf("unexpected category %q", p.Category)
	}
	if p.Description == "" {
		t.Fatal("preset has empty description")
	}
	if _, ok := PresetByName("No Such Voice"); ok {
		t.Fatal("lookup of unknown preset should fail")
	}
}

func TestCategoriesSortedUnique(t *testing.T) {
	cats := Categories()
	if len(cats) == 0 {
		t.Fatal("no categories")
	}
	if !sort.StringsAreSorted(cats) {
		t.Fatalf("categories not sorted: %v", cats)
	}
	seen := make(map[string]bool)
	for _, c := range cats {
		if seen[c] {
			t.Fatalf("duplicate category %q", c)
		}
		seen[c] = true
	}
	for _, c := range cats {
		if len(PresetsByCategory(c)) == 0 {
			t.Fatalf("category %q has no presets", c)
		}
	}
	if got := PresetsByCategory("nonexistent"); got != nil {
		t.Fatalf("unknown category returned %v", got)
	}
}

func TestResolve(t *testing.T) {
	p, _ := PresetByName("Wise Elder Male")
	if got := Resolve("wise elder male"); got != p.Description {
		t.Fatalf("preset name did not resolve to description: %q", got)
	}
	literal := "A gravelly pirate voice with a thick West Country accent."
	if got := Resolve("  " + literal + " \n"); got != literal {
		t.Fatalf("literal description not passed through: %q", got)
	}
}

func TestPreviewText(t *testing.T) {
	if strings.TrimSpace(PreviewText) == "" {
		t.Fatal("preview text is empty")
	}
	if !strings.Contains(PreviewText, "library") {
		t.Fatal("preview text changed unexpectedly")
	}
}

func TestPreviewCacheKey(t *testing.T) {
	key := PreviewCacheKey("a calm voice", "/models/maya1", 0.45, 0.92)
	if len(key) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", key)
	}
	if key != PreviewCacheKey("a calm voice", "/elsewhere/maya1", 0.45, 0.92) {
		t.Fatal("key should depend on the model base name only")
	}
	if key == PreviewCacheKey("a calm voice", "/models/maya1", 0.5, 0.92) {
		t.Fatal("key should change with temperature")
	}
	if key == PreviewCacheKey("a tense voice", "/models/maya1", 0.45, 0.92) {
		t.Fatal("key should change with the description")
	}
}

func TestPreviewCachePath(t *testing.T) {
	got := PreviewCachePath("/tmp/cache", "abc123")
	if got != "/tmp/cache/preview_abc123.wav" {
		t.Fatalf("unexpected path %q", got)
	}
}
