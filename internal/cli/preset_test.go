package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func writePreset(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "preset.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	return path
}

func TestLoadPresetValid(t *testing.T) {
	path := writePreset(t, `
stages:
  - name: normalize
    mode: encode
    options:
      valuesize: "16"
  - name: diff
    mode: encode
    options:
      valuesize: "16"
`)
	steps, err := LoadPreset(path)
	if err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Name != "normalize" || steps[0].Options.ValueSizeBits != 16 {
		t.Fatalf("step 0 = %+v", steps[0])
	}
	if steps[1].Name != "diff" || steps[1].Options.ValueSizeBits != 16 {
		t.Fatalf("step 1 = %+v", steps[1])
	}
}

func TestLoadPresetBooleanOption(t *testing.T) {
	path := writePreset(t, `
stages:
  - name: bac
    mode: encode
    options:
      adaptive: "true"
`)
	steps, err := LoadPreset(path)
	if err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	if !steps[0].Options.Adaptive {
		t.Fatalf("expected adaptive=true")
	}
}

func TestLoadPresetUnknownStage(t *testing.T) {
	path := writePreset(t, `
stages:
  - name: nonexistent
    mode: encode
`)
	if _, err := LoadPreset(path); err == nil {
		t.Fatalf("expected an error for an unknown stage")
	}
}

func TestLoadPresetUnsupportedOption(t *testing.T) {
	path := writePreset(t, `
stages:
  - name: copy
    mode: encode
    options:
      adaptive: "true"
`)
	if _, err := LoadPreset(path); err == nil {
		t.Fatalf("expected an error: copy does not support adaptive")
	}
}

func TestLoadPresetEmptyStages(t *testing.T) {
	path := writePreset(t, `stages: []`)
	if _, err := LoadPreset(path); err == nil {
		t.Fatalf("expected an error for an empty stage list")
	}
}

func TestLoadPresetMissingFile(t *testing.T) {
	if _, err := LoadPreset(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
