// Package prescale resizes source backgrounds to the canvas resolution once
// and persists the result under a resolution-tagged name in
// assets/pre_scaled/characters/<id>/background/.
//
// Each resolution gets its own artifact (park@1920x1080.png,
// park@2560x1440.png); artifacts for other resolutions are ignored, never
// deleted.
package prescale

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"tools.zach/dev/galcard/internal/assets"
	"tools.zach/dev/galcard/internal/config"
	"tools.zach/dev/galcard/internal/imaging"
	"tools.zach/dev/galcard/internal/layout"
	"tools.zach/dev/galcard/internal/paths"
)

// ScaledExt is the extension and format of every artifact this package writes.
const ScaledExt = ".png"

// ProgressFunc is told about each background once it is ready.
type ProgressFunc func(current, total int, name string)

// Preparer produces canvas-sized backgrounds for one canvas resolution.
type Preparer struct {
	dir    paths.AssetDir
	canvas layout.Size
}

// New returns a Preparer writing under dir for canvas.
func New(dir paths.AssetDir, canvas layout.Size) *Preparer {
	return &Preparer{dir: dir, canvas: canvas}
}

// ScaledName returns the artifact name for a source file name,
// e.g. "park.jpg" at 2560x1440 becomes "park@2560x1440.png".
func (p *Preparer) ScaledName(name string) string {
	return assets.KeyOf(name) + paths.ScaledTag(p.canvas.W, p.canvas.H) + ScaledExt
}

// candidates lists where a usable copy of e may already exist, best first:
// the current artifact, an artifact tagged for this resolution but keeping
// the source extension, and an untagged legacy copy.
func (p *Preparer) candidates(id string, e assets.Entry) (scaled string, reuse []string) {
	dir := p.dir.PreScaledBackgrounds(id)
	tag := paths.ScaledTag(p.canvas.W, p.canvas.H)
	scaled = filepath.Join(dir, p.ScaledName(e.Name))
	reuse = []string{
		filepath.Join(dir, e.Key+tag+filepath.Ext(e.Name)),
		filepath.Join(dir, e.Name),
	}
	return scaled, reuse
}

// Load returns e at canvas size. An existing artifact is reused unless the
// raw asset was modified after it; otherwise the best available source (a
// legacy pre-scaled copy, then the raw asset) is scaled and persisted as the
// artifact.
func (p *Preparer) Load(id string, e assets.Entry) (*image.NRGBA, error) {
	return p.load(id, e, true)
}

// Peek is Load without persisting a new artifact.
func (p *Preparer) Peek(id string, e assets.Entry) (*image.NRGBA, error) {
	return p.load(id, e, false)
}

func (p *Preparer) load(id string, e assets.Entry, persist bool) (*image.NRGBA, error) {
	scaled, reuse := p.candidates(id, e)
	current := currentWith(e.Path)

	if current(scaled) {
		img, err := imaging.Load(scaled)
		if err == nil {
			return p.fit(img), nil
		}
		slog.Warn("ignoring unreadable pre-scaled background", "path", scaled, "error", err)
	} else if _, err := os.Stat(scaled); err == nil {
		slog.Debug("pre-scaled background older than its source", "background", e.Key, "path", scaled)
	}

	src := e.Path
	for _, path := range reuse {
		if current(path) {
			src = path
			break
		}
	}
	img, err := imaging.Load(src)
	if err != nil {
		return nil, fmt.Errorf("load background %s: %w", e.Name, err)
	}
	img = p.fit(img)
	if !persist {
		return img, nil
	}

	if err := imaging.Save(scaled, img, config.FormatPNG, 0); err != nil {
		slog.Warn("failed to persist pre-scaled background", "path", scaled, "error", err)
	} else {
		slog.Debug("pre-scaled background", "background", e.Key, "source", src, "path", scaled)
	}
	return img, nil
}

// currentWith returns a check reporting whether a derived file exists and is
// at least as new as source. When source cannot be stat'ed any existing
// derived file counts as current.
func currentWith(source string) func(path string) bool {
	srcInfo, srcErr := os.Stat(source)
	return func(path string) bool {
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		return srcErr != nil || !info.ModTime().Before(srcInfo.ModTime())
	}
}

// fit scales img to the canvas when its size differs.
func (p *Preparer) fit(img *image.NRGBA) *image.NRGBA {
	if b := img.Bounds(); b.Dx() == p.canvas.W && b.Dy() == p.canvas.H {
		return img
	}
	return imaging.Scale(img, p.canvas.W, p.canvas.H)
}

// Prepare loads every entry at canvas size, keyed by entry key. progress,
// when non-nil, is called with (0, n) before the first entry and after each.
func (p *Preparer) Prepare(id string, entries []assets.Entry, progress ProgressFunc) (map[string]*image.NRGBA, error) {
	out := make(map[string]*image.NRGBA, len(entries))
	if len(entries) == 0 {
		return out, nil
	}
	report := func(i int, name string) {
		if progress != nil {
			progress(i, len(entries), name)
		}
	}

	report(0, "")
	for i, e := range entries {
		img, err := p.Load(id, e)
		if err != nil {
			return nil, err
		}
		out[e.Key] = img
		report(i+1, e.Name)
	}
	return out, nil
}
