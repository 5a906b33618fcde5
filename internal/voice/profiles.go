package voice

import (
	"fmt"
	"sort"
	"strings"

	"lector/internal/config"
)

// Profile bundles the narration knobs that tend to move together: sampling
// temperature, chunk sizing, and the silence gaps stitched between chunks
// and chapters. A profile overlays the loaded configuration, so explicit
// flags still win over it and it still wins over the config file.
type Profile struct {
	Name        string
	Description string
	Voice       string
	Temperature float64
	TopP        float64
	MaxWords    int
	MaxChars    int
	ChunkGap    float64
	ChapterGap  float64
}

var profiles = []Profile{
	{
		Name:        "audiobook",
		Description: "Balanced long-form narration. Steady pacing, default chunk sizes.",
		Temperature: 0.4,
		TopP:        0.9,
		MaxWords:    70,
		MaxChars:    350,
		ChunkGap:    0.25,
		ChapterGap:  2.0,
	},
	{
		Name:        "drama",
		Description: "Expressive delivery for fiction. Hotter sampling, shorter chunks so inflection resets often, longer pauses.",
		Temperature: 0.7,
		TopP:        0.95,
		MaxWords:    50,
		MaxChars:    260,
		ChunkGap:    0.35,
		ChapterGap:  2.5,
	},
	{
		Name:        "fast",
		Description: "Throughput over polish. Cooler sampling, larger chunks, tighter gaps. Useful for drafts and previews.",
		Temperature: 0.3,
		TopP:        0.85,
		MaxWords:    90,
		MaxChars:    440,
		ChunkGap:    0.2,
		ChapterGap:  1.5,
	},
}

// Profiles returns the built-in narration profiles sorted by name.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ProfileByName finds a profile by case-insensitive name.
func ProfileByName(name string) (Profile, bool) {
	trimmed := strings.TrimSpace(name)
	for _, p := range profiles {
		if strings.EqualFold(p.Name, trimmed) {
			return p, true
		}
	}
	return Profile{}, false
}

// ProfileNames returns the sorted names of the built-in profiles.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Apply returns a copy of cfg with the profile's knobs written over the
// matching synthesis, chunking, and export settings. The profile's voice is
// applied only when it names one.
func (p Profile) Apply(cfg *config.Config) *config.Config {
	if cfg == nil {
		return nil
	}
	out := *cfg
	out.Synthesis.Temperature = p.Temperature
	out.Synthesis.TopP = p.TopP
	out.Chunking.MaxWords = p.MaxWords
	out.Chunking.MaxChars = p.MaxChars
	out.Export.ChunkGapSeconds = p.ChunkGap
	out.Export.ChapterGapSeconds = p.ChapterGap
	if strings.TrimSpace(p.Voice) != "" {
		out.Synthesis.Voice = p.Voice
	}
	return &out
}

// ApplyProfile overlays the named profile onto cfg. An empty name falls back
// to the profile configured under [synthesis]; when neither names one the
// config is returned untouched.
func ApplyProfile(cfg *config.Config, name string) (*config.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not available")
	}
	resolved := strings.TrimSpace(name)
	if resolved == "" {
		resolved = strings.TrimSpace(cfg.Synthesis.Profile)
	}
	if resolved == "" {
		return cfg, nil
	}
	profile, ok := ProfileByName(resolved)
	if !ok {
		return nil, fmt.Errorf("unknown narration profile %q (available: %s)", resolved, strings.Join(ProfileNames(), ", "))
	}
	return profile.Apply(cfg), nil
}
