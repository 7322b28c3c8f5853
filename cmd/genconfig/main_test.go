package main

import (
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/galcard/internal/config"
)

// ///////////////////////////////////////////////
// generate Tests
// ///////////////////////////////////////////////

func TestGenerateIsValidTOML(t *testing.T) {
	out, err := generate(config.ExampleSettings(), config.SettingsDocs)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	decoded := config.DefaultSettings()
	if _, err := toml.Decode(out, decoded); err != nil {
		t.Fatalf("generated output does not parse: %v\n%s", err, out)
	}
	if err := decoded.Validate(); err != nil {
		t.Errorf("generated settings invalid: %v", err)
	}
}

func TestGenerateAnnotates(t *testing.T) {
	out, err := generate(config.ExampleSettings(), config.SettingsDocs)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, want := range []string{
		"# ///// Render /////",
		"# Pixel format of pre-rendered base canvases.",
		`# cache_format = "png"`,
		"# ///// Log /////",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestGenerateInjectsOmittedDocs(t *testing.T) {
	docs := map[string]config.FieldDoc{
		"render.extra": {Comment: "Only documented.", Alternatives: []string{"extra = 1"}},
	}
	out, err := generate(config.ExampleSettings(), docs)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "# Only documented.\n# extra = 1") {
		t.Errorf("omitted doc not injected:\n%s", out)
	}
}

// ///////////////////////////////////////////////
// parseSectionPath Tests
// ///////////////////////////////////////////////

func TestParseSectionPath(t *testing.T) {
	tests := []struct {
		name    string
		section string
		want    []string
	}{
		{"single segment", "render", []string{"render"}},
		{"two segments", "render.cache", []string{"render", "cache"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseSectionPath(tt.section)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("parseSectionPath(%q) = %q, want %q", tt.section, got, tt.want)
			}
		})
	}
}

// ///////////////////////////////////////////////
// sectionName Tests
// ///////////////////////////////////////////////

func TestSectionName(t *testing.T) {
	tests := []struct {
		section string
		want    string
	}{
		{"render", "Render"},
		{"render.fonts", "Fonts"},
		{"Log", "Log"},
		{"a", "A"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := sectionName(tt.section); got != tt.want {
			t.Errorf("sectionName(%q) = %q, want %q", tt.section, got, tt.want)
		}
	}
}

func TestInjectOmittedNoSection(t *testing.T) {
	var out []string
	injectOmitted(&out, nil, map[string]bool{}, config.SettingsDocs)
	if len(out) != 0 {
		t.Errorf("injectOmitted with nil section produced %d lines, want 0", len(out))
	}
}
