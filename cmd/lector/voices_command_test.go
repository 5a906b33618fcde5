package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestVoicesListsPresets(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"voices"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("voices: %v", err)
	}
	requireContains(t, out, "Professional Female Narrator")
	requireContains(t, out, "Categories:")
}

func TestVoicesCategoryFilter(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"voices", "--category", "female_professional"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("voices --category: %v", err)
	}
	requireContains(t, out, "Professional Female Narrator")
	if strings.Contains(out, "Distinguished British Male") {
		t.Fatalf("expected male presets filtered out, got:\n%s", out)
	}

	_, _, err = runCLI(t, []string{"voices", "--category", "baritone"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown voice category") {
		t.Fatalf("expected unknown category error, got %v", err)
	}
}

func TestVoicesJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--json", "voices"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("voices --json: %v", err)
	}
	var presets []map[string]any
	if err := json.Unmarshal([]byte(out), &presets); err != nil {
		t.Fatalf("parse voices JSON: %v\noutput: %s", err, out)
	}
	if len(presets) == 0 {
		t.Fatal("expected at least one preset")
	}
	if _, ok := presets[0]["Name"]; !ok {
		t.Fatalf("expected Name key in preset payload, got %v", presets[0])
	}
}

func TestProfilesListsBuiltins(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"profiles"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	for _, name := range []string{"audiobook", "drama", "fast"} {
		requireContains(t, out, name)
	}
}
