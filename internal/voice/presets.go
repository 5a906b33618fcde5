// Package voice holds the narrator preset library and the preview
// sample tooling. A preset's description is the literal voice prompt the
// speech model conditions on; names exist for configuration and CLI
// display.
package voice

import (
	"sort"
	"strings"
)

// Preset describes one curated narrator voice.
type Preset struct {
	Name        string
	Description string
	Category    string
	Age         string
	Accent      string
}

var presets = []Preset{
	{
		Name:        "Professional Female Narrator",
		Description: "A female speaker with a warm, calm, and clear voice, delivering the narration in a standard American English accent. Her tone is engaging and pleasant, suitable for long listening sessions.",
		Category:    "female_professional",
		Age:         "40s",
		Accent:      "American",
	},
	{
		Name:        "Authoritative Male (Morgan Freeman-style)",
		Description: "A deep, resonant male voice in his 60s with a commanding yet warm presence. He speaks with a refined American accent, delivering each word with gravitas and authority, perfect for dramatic narration and non-fiction.",
		Category:    "male_professional",
		Age:         "60s",
		Accent:      "American",
	},
	{
		Name:        "Young Adult Female (Energetic)",
		Description: "A bright, energetic female voice in her early 20s with excellent articulation. Her delivery is expressive and dynamic, with a contemporary American accent that's perfect for young adult fiction and romance novels.",
		Category:    "female_young",
		Age:         "20s",
		Accent:      "American",
	},
	{
		Name:        "Distinguished British Male",
		Description: "A mature male speaker with a distinguished Received Pronunciation British accent. His voice is cultured and articulate, ideal for classical literature, historical fiction, and mystery novels.",
		Category:    "male_professional",
		Age:         "50s",
		Accent:      "British",
	},
	{
		Name:        "Soothing Female (Bedtime Stories)",
		Description: "A gentle, soothing female voice with a soft, melodic quality. She speaks slowly and calmly with a warm American accent, creating a peaceful atmosphere perfect for bedtime stories and relaxation content.",
		Category:    "female_soothing",
		Age:         "30s",
		Accent:      "American",
	},
	{
		Name:        "Conversational Male (Podcast-style)",
		Description: "A casual, friendly male voice in his 30s with a natural conversational tone. His American accent is neutral and approachable, making him ideal for non-fiction, memoirs, and contemporary fiction.",
		Category:    "male_casual",
		Age:         "30s",
		Accent:      "American",
	},
	{
		Name:        "Elegant Female (Literary Fiction)",
		Description: "A refined female voice with impeccable diction and a sophisticated American accent. She delivers prose with artistic sensibility and emotional depth, perfect for literary fiction and poetry.",
		Category:    "female_professional",
		Age:         "40s",
		Accent:      "American",
	},
	{
		Name:        "Dramatic Male (Fantasy/Sci-Fi)",
		Description: "A powerful, expressive male voice capable of rich dramatic range. His deep timbre and theatrical delivery bring epic fantasy and science fiction narratives to life with intensity and passion.",
		Category:    "male_dramatic",
		Age:         "40s",
		Accent:      "American",
	},
	{
		Name:        "Cheerful Female (Children's Books)",
		Description: "An upbeat, animated female voice that's warm and inviting. She brings characters to life with playful energy and clear enunciation, perfect for children's literature and middle-grade fiction.",
		Category:    "female_young",
		Age:         "30s",
		Accent:      "American",
	},
	{
		Name:        "Wise Elder Male",
		Description: "A seasoned male voice in his 70s with a gentle, grandfatherly quality. His speech is measured and thoughtful with subtle warmth, ideal for philosophical works, memoirs, and inspirational content.",
		Category:    "male_mature",
		Age:         "70s",
		Accent:      "American",
	},
	{
		Name:        "Southern Female (Regional Charm)",
		Description: "A warm female voice with a gentle Southern American accent. Her drawl is authentic yet easy to understand, adding regional flavor perfect for Southern fiction and historical narratives.",
		Category:    "female_regional",
		Age:         "40s",
		Accent:      "Southern US",
	},
	{
		Name:        "Academic Male (Non-Fiction)",
		Description: "A clear, articulate male voice with an educated mid-Atlantic accent. His delivery is precise and authoritative without being dry, excellent for academic texts, biographies, and historical non-fiction.",
		Category:    "male_professional",
		Age:         "50s",
		Accent:      "Mid-Atlantic",
	},
	{
		Name:        "Intimate Female (Romance)",
		Description: "A sultry, expressive female voice with emotional depth and range. She delivers romantic passages with genuine warmth and sensuality, perfect for romance novels and intimate character-driven stories.",
		Category:    "female_expressive",
		Age:         "30s",
		Accent:      "American",
	},
	{
		Name:        "Youthful Male (Adventure)",
		Description: "An energetic male voice in his 20s with an adventurous spirit. His delivery is quick-paced and enthusiastic with clear American pronunciation, ideal for action-adventure and thriller genres.",
		Category:    "male_young",
		Age:         "20s",
		Accent:      "American",
	},
	{
		Name:        "Neutral Narrator (Versatile)",
		Description: "A balanced, versatile voice with neutral American pronunciation and moderate pacing. This narrator adapts well to any genre with professional clarity and consistent quality throughout long narrations.",
		Category:    "neutral_professional",
		Age:         "35-45",
		Accent:      "American",
	},
}

// PreviewText is the sample passage used for voice previews, sized to
// roughly thirty seconds of narration.
const PreviewText = `The old library stood at the corner of Main Street, its weathered brick facade a testament to a century of stories.
Inside, dust motes danced in shafts of afternoon sunlight, and the familiar scent of aged paper and leather bindings welcomed every visitor.
Eleanor had discovered this sanctuary when she was just a child, and now, decades later, she still found magic between these walls.
Today she climbed the spiral staircase to the fiction section, her fingers trailing along the spines of countless adventures waiting to be discovered.`

// Presets returns the full preset library in display order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// PresetByName looks up a preset by its display name, case-insensitively.
func PresetByName(name string) (Preset, bool) {
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}

// PresetNames returns the preset display names in display order.
func PresetNames() []string {
	out := make([]string, len(presets))
	for i, p := range presets {
		out[i] = p.Name
	}
	return out
}

// PresetsByCategory returns the presets in a category, preserving
// display order.
func PresetsByCategory(category string) []Preset {
	var out []Preset
	for _, p := range presets {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Categories returns the sorted set of preset categories.
func Categories() []string {
	seen := make(map[string]struct{}, len(presets))
	var out []string
	for _, p := range presets {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out
}

// Resolve maps a configured voice value to the description the speech
// model should condition on. A preset name resolves to that preset's
// description; anything else is treated as a literal voice description.
func Resolve(value string) string {
	trimmed := strings.TrimSpace(value)
	if p, ok := PresetByName(trimmed); ok {
		return p.Description
	}
	return trimmed
}
