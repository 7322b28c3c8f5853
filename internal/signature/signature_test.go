// Tests for signature stability and sensitivity: an unchanged asset set hashes
// identically, and every documented input changes the result.

package signature

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tools.zach/dev/galcard/internal/config"
	"tools.zach/dev/galcard/internal/layout"
	"tools.zach/dev/galcard/internal/paths"
)

// fixture builds a character with one portrait, one own background, and one
// common background.
func fixture(t *testing.T) paths.AssetDir {
	t.Helper()
	dir := paths.AssetDir{Root: t.TempDir()}
	write(t, dir.CharacterFile("c", "config.json"), "{}")
	write(t, filepath.Join(dir.Portraits("c"), "smile.png"), "p")
	write(t, filepath.Join(dir.Backgrounds("c"), "room.png"), "b")
	write(t, filepath.Join(dir.CommonBackgrounds(), "park.jpg"), "c")
	return dir
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func compute(t *testing.T, dir paths.AssetDir, s config.RenderSettings) string {
	t.Helper()
	sig, err := Compute(dir, "c", s)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return sig
}

func TestSignatureStable(t *testing.T) {
	dir := fixture(t)
	s := config.DefaultRenderSettings()
	a, b := compute(t, dir, s), compute(t, dir, s)
	if a != b {
		t.Errorf("signature changed without asset changes: %s != %s", a, b)
	}
	if len(a) != 16 {
		t.Errorf("signature %q is not 16 hex digits", a)
	}
}

func TestSignatureSensitivity(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, dir paths.AssetDir, s *config.RenderSettings)
	}{
		{"canvas size", func(t *testing.T, _ paths.AssetDir, s *config.RenderSettings) {
			s.Canvas = layout.Size{W: 1280, H: 720}
		}},
		{"cache format", func(t *testing.T, _ paths.AssetDir, s *config.RenderSettings) {
			s.Format = config.FormatPNG
		}},
		{"config modified", func(t *testing.T, dir paths.AssetDir, _ *config.RenderSettings) {
			write(t, dir.CharacterFile("c", "config.json"), `{"meta": {}}`)
		}},
		{"config mtime only", func(t *testing.T, dir paths.AssetDir, _ *config.RenderSettings) {
			later := time.Now().Add(time.Hour)
			if err := os.Chtimes(dir.CharacterFile("c", "config.json"), later, later); err != nil {
				t.Fatal(err)
			}
		}},
		{"portrait added", func(t *testing.T, dir paths.AssetDir, _ *config.RenderSettings) {
			write(t, filepath.Join(dir.Portraits("c"), "angry.png"), "p")
		}},
		{"portrait removed", func(t *testing.T, dir paths.AssetDir, _ *config.RenderSettings) {
			if err := os.Remove(filepath.Join(dir.Portraits("c"), "smile.png")); err != nil {
				t.Fatal(err)
			}
		}},
		{"own background modified", func(t *testing.T, dir paths.AssetDir, _ *config.RenderSettings) {
			write(t, filepath.Join(dir.Backgrounds("c"), "room.png"), "bigger")
		}},
		{"common background added", func(t *testing.T, dir paths.AssetDir, _ *config.RenderSettings) {
			write(t, filepath.Join(dir.CommonBackgrounds(), "sea.png"), "c")
		}},
		{"config deleted", func(t *testing.T, dir paths.AssetDir, _ *config.RenderSettings) {
			if err := os.Remove(dir.CharacterFile("c", "config.json")); err != nil {
				t.Fatal(err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := fixture(t)
			s := config.DefaultRenderSettings()
			before := compute(t, dir, s)
			tt.mutate(t, dir, &s)
			if after := compute(t, dir, s); after == before {
				t.Errorf("signature unchanged after %s", tt.name)
			}
		})
	}
}

func TestSignatureIgnoresShadowedCommonBackground(t *testing.T) {
	dir := fixture(t)
	s := config.DefaultRenderSettings()
	write(t, filepath.Join(dir.CommonBackgrounds(), "room.png"), "shadowed")
	before := compute(t, dir, s)

	write(t, filepath.Join(dir.CommonBackgrounds(), "room.png"), "shadowed and longer")
	if after := compute(t, dir, s); after != before {
		t.Error("a background shadowed by the character's own copy affected the signature")
	}
}

func TestSignatureIgnoresUnrelatedFiles(t *testing.T) {
	dir := fixture(t)
	s := config.DefaultRenderSettings()
	before := compute(t, dir, s)

	write(t, filepath.Join(dir.Portraits("c"), "notes.txt"), "x")
	write(t, dir.CacheMeta("c"), "{}")
	if after := compute(t, dir, s); after != before {
		t.Error("non-image or cache files affected the signature")
	}
}
