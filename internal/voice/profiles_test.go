package voice

import (
	"strings"
	"testing"

	"lector/internal/config"
)

func TestProfileByName(t *testing.T) {
	p, ok := ProfileByName("DRAMA")
	if !ok {
		t.Fatal("case-insensitive lookup failed")
	}
	if p.Temperature <= 0.4 {
		t.Fatalf("drama profile should sample hotter than the default, got %v", p.Temperature)
	}
	if _, ok := ProfileByName("nonexistent"); ok {
		t.Fatal("lookup of unknown profile should fail")
	}
}

func TestProfileNames(t *testing.T) {
	names := ProfileNames()
	want := []string{"audiobook", "drama", "fast"}
	if len(names) != len(want) {
		t.Fatalf("expected %d profiles, got %v", len(want), names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}

func TestProfileApplyOverlaysConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Synthesis.Voice = "Wise Elder Male"

	p, _ := ProfileByName("fast")
	out := p.Apply(&cfg)

	if out.Chunking.MaxWords != p.MaxWords {
		t.Fatalf("expected max words %d, got %d", p.MaxWords, out.Chunking.MaxWords)
	}
	if out.Export.ChapterGapSeconds != p.ChapterGap {
		t.Fatalf("expected chapter gap %v, got %v", p.ChapterGap, out.Export.ChapterGapSeconds)
	}
	if out.Synthesis.Voice != "Wise Elder Male" {
		t.Fatalf("profile without a voice should keep the configured voice, got %q", out.Synthesis.Voice)
	}
	if cfg.Chunking.MaxWords == p.MaxWords && p.MaxWords != config.Default().Chunking.MaxWords {
		t.Fatal("Apply mutated the original config")
	}
}

func TestApplyProfile(t *testing.T) {
	cfg := config.Default()

	out, err := ApplyProfile(&cfg, "")
	if err != nil {
		t.Fatalf("empty profile: %v", err)
	}
	if out != &cfg {
		t.Fatal("no profile configured should return the config untouched")
	}

	cfg.Synthesis.Profile = "drama"
	out, err = ApplyProfile(&cfg, "")
	if err != nil {
		t.Fatalf("configured profile: %v", err)
	}
	if out.Synthesis.Temperature != 0.7 {
		t.Fatalf("expected drama temperature, got %v", out.Synthesis.Temperature)
	}

	out, err = ApplyProfile(&cfg, "fast")
	if err != nil {
		t.Fatalf("explicit profile: %v", err)
	}
	if out.Synthesis.Temperature != 0.3 {
		t.Fatalf("explicit name should beat the configured profile, got %v", out.Synthesis.Temperature)
	}

	if _, err := ApplyProfile(&cfg, "operatic"); err == nil || !strings.Contains(err.Error(), "unknown narration profile") {
		t.Fatalf("expected unknown profile error, got %v", err)
	}
}
