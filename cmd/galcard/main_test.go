// Tests for the galcard command line: dispatch and usage errors, first-run
// settings seeding, and each command against a small asset tree.
package main

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	rootpkg "tools.zach/dev/galcard"
	"tools.zach/dev/galcard/internal/config"
	"tools.zach/dev/galcard/internal/imaging"
	"tools.zach/dev/galcard/internal/paths"
)

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

const smallSettings = `version = 1

[render]
canvas_size = [64, 36]
cache_format = "png"
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func savePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := imaging.NewCanvas(w, h)
	imaging.Fill(img, c)
	if err := imaging.Save(path, img, config.FormatPNG, 0); err != nil {
		t.Fatal(err)
	}
}

// fixture writes a 64x36 settings file and character "c" with two portraits,
// two backgrounds, and a dialogue box.
func fixture(t *testing.T) paths.AssetDir {
	t.Helper()
	dir := paths.AssetDir{Root: t.TempDir()}
	writeFile(t, dir.Settings(), smallSettings)
	writeFile(t, dir.CharacterFile("c", "config.json"), `{
		"version": 2,
		"meta": {"name": "C"},
		"layout": {"_canvas_size": [64, 36], "current_portrait": "gone.png"}
	}`)
	savePNG(t, filepath.Join(dir.Portraits("c"), "smile.png"), 10, 20, color.NRGBA{R: 255, A: 255})
	savePNG(t, filepath.Join(dir.Portraits("c"), "angry.png"), 10, 20, color.NRGBA{R: 128, A: 255})
	savePNG(t, filepath.Join(dir.Backgrounds("c"), "room.png"), 64, 36, color.NRGBA{G: 255, A: 255})
	savePNG(t, filepath.Join(dir.Backgrounds("c"), "night.png"), 64, 36, color.NRGBA{B: 64, A: 255})
	savePNG(t, dir.CharacterFile("c", paths.DefaultBoxFile), 32, 4, color.NRGBA{B: 255, A: 255})
	return dir
}

// galcard runs the command line against dir and returns the exit code and
// captured output.
func galcard(t *testing.T, dir paths.AssetDir, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"-assets", dir.Root}, args...)
	code = run(full, &out, &errOut)
	return code, out.String(), errOut.String()
}

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

func TestResolveVersionWithLdflags(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "1.2.3"
	if got := resolveVersion(); got != "1.2.3" {
		t.Errorf("resolveVersion() = %q, want %q", got, "1.2.3")
	}
}

func TestResolveVersionDev(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "dev"
	if got := resolveVersion(); !strings.HasPrefix(got, "dev") {
		t.Errorf("resolveVersion() = %q, expected to start with 'dev'", got)
	}
}

func TestVersionCommandSkipsSetup(t *testing.T) {
	dir := paths.AssetDir{Root: filepath.Join(t.TempDir(), "never")}
	code, stdout, _ := galcard(t, dir, "version")
	if code != 0 || strings.TrimSpace(stdout) == "" {
		t.Errorf("version = %d, %q", code, stdout)
	}
	if _, err := os.Stat(dir.Root); !os.IsNotExist(err) {
		t.Error("version created the asset directory")
	}
}

// ///////////////////////////////////////////////
// Dispatch
// ///////////////////////////////////////////////

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: nil},
		{name: "unknown command", args: []string{"frobnicate"}},
		{name: "prebuild without target", args: []string{"prebuild"}},
		{name: "render without char", args: []string{"render", "-text", "hi"}},
		{name: "watch without char", args: []string{"watch"}},
		{name: "meta without char", args: []string{"meta"}},
		{name: "bad flag", args: []string{"meta", "-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := fixture(t)
			if code, _, _ := galcard(t, dir, tt.args...); code != 2 {
				t.Errorf("exit code = %d, want 2", code)
			}
		})
	}
}

func TestFirstRunSeedsSettings(t *testing.T) {
	dir := paths.AssetDir{Root: t.TempDir()}
	if code, _, stderr := galcard(t, dir, "sync"); code != 0 {
		t.Fatalf("sync exit = %d: %s", code, stderr)
	}
	data, err := os.ReadFile(dir.Settings())
	if err != nil {
		t.Fatalf("settings not seeded: %v", err)
	}
	if !bytes.Equal(data, rootpkg.DefaultSettingsTOML) {
		t.Error("seeded settings differ from the embedded default")
	}
}

func TestInvalidSettingsFail(t *testing.T) {
	dir := fixture(t)
	writeFile(t, dir.Settings(), "[render]\ncache_format = \"gif\"\n")
	if code, _, stderr := galcard(t, dir, "meta", "-char", "c"); code != 1 || !strings.Contains(stderr, "fatal") {
		t.Errorf("exit = %d, stderr = %q", code, stderr)
	}
}

// ///////////////////////////////////////////////
// Commands
// ///////////////////////////////////////////////

func TestPrebuildAndMeta(t *testing.T) {
	dir := fixture(t)

	code, stdout, stderr := galcard(t, dir, "prebuild", "-char", "c")
	if code != 0 {
		t.Fatalf("prebuild exit = %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "c: built (4 composites)") {
		t.Errorf("prebuild output missing summary:\n%s", stdout)
	}
	if !strings.Contains(stdout, "[done 4/4]") {
		t.Errorf("prebuild output missing progress events:\n%s", stdout)
	}

	_, stdout, _ = galcard(t, dir, "prebuild", "-char", "c", "-q")
	if strings.TrimSpace(stdout) != "c: skipped (0 composites)" {
		t.Errorf("second prebuild output = %q", stdout)
	}

	_, stdout, _ = galcard(t, dir, "meta", "-char", "c")
	for _, want := range []string{"complete:    true", "portraits:   2", "backgrounds: 2", "p_smile__b_room.png", "p_angry__b_night.png"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("meta output missing %q:\n%s", want, stdout)
		}
	}
}

func TestPrebuildAllReportsConfigFailures(t *testing.T) {
	dir := fixture(t)
	if err := os.MkdirAll(dir.Portraits("empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir.CharacterFile("empty", "config.json"), `{"version": 2}`)

	code, stdout, stderr := galcard(t, dir, "prebuild", "-all", "-q")
	if code != 0 {
		t.Fatalf("prebuild -all exit = %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "c: built") || !strings.Contains(stdout, "empty: not built") {
		t.Errorf("prebuild -all output:\n%s", stdout)
	}
}

func TestRender(t *testing.T) {
	dir := fixture(t)
	out := filepath.Join(t.TempDir(), "card.png")

	code, _, stderr := galcard(t, dir, "render", "-char", "c", "-text", `hi\nthere`, "-portrait-index", "2", "-out", out)
	if code != 0 {
		t.Fatalf("render exit = %d: %s", code, stderr)
	}
	img, err := imaging.Load(out)
	if err != nil {
		t.Fatalf("load card: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 64, 36) {
		t.Errorf("card bounds = %v", img.Bounds())
	}
}

func TestRenderErrors(t *testing.T) {
	dir := fixture(t)
	out := filepath.Join(t.TempDir(), "card.png")
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown character", args: []string{"render", "-char", "ghost", "-out", out}},
		{name: "index out of range", args: []string{"render", "-char", "c", "-portrait-index", "9", "-out", out}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, _ := galcard(t, dir, tt.args...); code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
		})
	}
}

func TestSync(t *testing.T) {
	dir := fixture(t)
	code, stdout, stderr := galcard(t, dir, "sync")
	if code != 0 {
		t.Fatalf("sync exit = %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "c: saved") {
		t.Errorf("sync output:\n%s", stdout)
	}
	_, stdout, _ = galcard(t, dir, "sync", "-char", "c")
	if strings.TrimSpace(stdout) != "c: ok" {
		t.Errorf("second sync output = %q", stdout)
	}
}

func TestUnescape(t *testing.T) {
	tests := []struct{ in, want string }{
		{`a\nb`, "a\nb"},
		{`no escapes`, "no escapes"},
		{`trailing\`, `trailing\`},
		{`\t stays`, `\t stays`},
		{"real\nnewline", "real\nnewline"},
	}
	for _, tt := range tests {
		if got := unescape(tt.in); got != tt.want {
			t.Errorf("unescape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
