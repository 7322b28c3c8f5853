// Package render produces finished dialogue cards: a base canvas for a
// (portrait, background) pair with the speaker name and wrapped dialogue text
// drawn on top.
//
// Base canvases are resolved in tiers: the in-process memory cache, the
// prebuilt cache file, the same file under the legacy extension, and finally
// on-demand synthesis with the same compositing the cache builder uses.
// Synthesized canvases are never written to disk.
package render

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"

	"tools.zach/dev/galcard/internal/assets"
	"tools.zach/dev/galcard/internal/cache"
	"tools.zach/dev/galcard/internal/character"
	"tools.zach/dev/galcard/internal/compose"
	"tools.zach/dev/galcard/internal/config"
	"tools.zach/dev/galcard/internal/imaging"
	"tools.zach/dev/galcard/internal/paths"
	"tools.zach/dev/galcard/internal/prescale"
)

// ErrNoPortraits is returned by [Renderer.Render] for a character without portraits.
var ErrNoPortraits = errors.New("character has no portraits")

// Source names the tier a base canvas came from.
type Source string

const (
	SourceMemory    Source = "memory"
	SourceCache     Source = "cache"
	SourceLegacy    Source = "legacy"
	SourceSynthesis Source = "synthesis"
)

type canvasKey struct {
	portrait   string
	background string
}

// ///////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////

type request struct {
	portrait   string
	background string
	speaker    *string
}

// Option adjusts a single [Renderer.Render] call.
type Option func(*request)

// WithPortrait selects the portrait by key.
func WithPortrait(key string) Option { return func(r *request) { r.portrait = key } }

// WithBackground selects the background by key.
func WithBackground(key string) Option { return func(r *request) { r.background = key } }

// WithSpeaker overrides the speaker label. An empty name draws no name.
func WithSpeaker(name string) Option { return func(r *request) { r.speaker = &name } }

// ///////////////////////////////////////////////
// Renderer
// ///////////////////////////////////////////////

// Renderer draws cards for one character. It is not safe for concurrent use.
type Renderer struct {
	dir         paths.AssetDir
	settings    config.RenderSettings
	profile     *character.Profile
	store       *cache.Store
	portraits   []assets.Entry
	backgrounds []assets.Entry
	fonts       *FontSet
	memory      map[canvasKey]*image.NRGBA

	// Built on the first synthesis.
	scene *compose.Scene
	bg    *prescale.Preparer
}

// New loads character id from dir. A missing character config is an error.
func New(dir paths.AssetDir, id string, settings config.RenderSettings) (*Renderer, error) {
	profile, err := character.Load(dir, id, settings.Canvas)
	if err != nil {
		return nil, fmt.Errorf("load character %s: %w", id, err)
	}
	portraits, err := assets.Portraits(dir, id)
	if err != nil {
		return nil, err
	}
	backgrounds, err := assets.Backgrounds(dir, id)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		dir:         dir,
		settings:    settings,
		profile:     profile,
		store:       cache.NewStore(dir, settings),
		portraits:   portraits,
		backgrounds: backgrounds,
		fonts:       NewFontSet(dir, profile.Root, settings.DefaultFont),
		memory:      map[canvasKey]*image.NRGBA{},
	}, nil
}

// Profile returns the loaded character.
func (r *Renderer) Profile() *character.Profile { return r.profile }

// Portraits returns the character's portraits in key order.
func (r *Renderer) Portraits() []assets.Entry { return r.portraits }

// Backgrounds returns the character's backgrounds in key order.
func (r *Renderer) Backgrounds() []assets.Entry { return r.backgrounds }

// Close releases the renderer's font faces.
func (r *Renderer) Close() error { return r.fonts.Close() }

// Render returns a new card with text drawn over the selected base canvas.
// Unset or unknown portrait and background keys fall back to the first key.
// The speaker defaults to the character's display name.
func (r *Renderer) Render(text string, opts ...Option) (*image.NRGBA, error) {
	var req request
	for _, opt := range opts {
		opt(&req)
	}
	if len(r.portraits) == 0 {
		return nil, fmt.Errorf("render %s: %w", r.profile.ID, ErrNoPortraits)
	}

	portrait := pick(r.portraits, req.portrait, "portrait")
	background := pick(r.backgrounds, req.background, "background")

	base, src, err := r.Base(portrait.Key, background.Key)
	if err != nil {
		return nil, err
	}
	slog.Debug("base canvas", "character", r.profile.ID, "portrait", portrait.Key, "background", background.Key, "source", src)

	speaker := r.profile.Speaker()
	if req.speaker != nil {
		speaker = *req.speaker
	}

	card := imaging.Clone(base)
	r.drawText(card, text, speaker)

	if l := r.profile.Layout; l.EnableCrop {
		card = imaging.Crop(card, l.CropArea.Image())
	}
	return card, nil
}

// pick returns the entry for key, or the first entry when key is empty or
// unknown. An empty list yields the zero Entry.
func pick(entries []assets.Entry, key, kind string) assets.Entry {
	if len(entries) == 0 {
		return assets.Entry{}
	}
	if key == "" {
		return entries[0]
	}
	if e, ok := assets.Find(entries, key); ok {
		return e
	}
	slog.Warn("unknown key, using first", "kind", kind, "key", key, "fallback", entries[0].Key)
	return entries[0]
}

// ///////////////////////////////////////////////
// Base Canvas
// ///////////////////////////////////////////////

// Base returns the shared base canvas for a pair and the tier it came from.
// Callers must not draw on it.
func (r *Renderer) Base(portraitKey, backgroundKey string) (*image.NRGBA, Source, error) {
	key := canvasKey{portrait: portraitKey, background: backgroundKey}
	if img, ok := r.memory[key]; ok {
		return img, SourceMemory, nil
	}

	img, src := r.fromDisk(portraitKey, backgroundKey)
	if img == nil {
		var err error
		if img, err = r.synthesize(portraitKey, backgroundKey); err != nil {
			return nil, "", err
		}
		src = SourceSynthesis
	}

	if r.settings.UseMemoryCache {
		r.memory[key] = img
	}
	return img, src, nil
}

// fromDisk tries the cache file, then its legacy-extension twin. Unreadable
// or wrongly sized files count as misses.
func (r *Renderer) fromDisk(portraitKey, backgroundKey string) (*image.NRGBA, Source) {
	if backgroundKey == "" {
		return nil, ""
	}
	id := r.profile.ID
	current := r.store.CompositePath(id, portraitKey, backgroundKey)
	legacy := r.store.LegacyCompositePath(id, portraitKey, backgroundKey)

	type tier struct {
		path string
		src  Source
	}
	tiers := []tier{{current, SourceCache}}
	if legacy != current {
		tiers = append(tiers, tier{legacy, SourceLegacy})
	}

	for _, t := range tiers {
		img, err := imaging.Load(t.path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				slog.Warn("ignoring unreadable cached canvas", "path", t.path, "error", err)
			}
			continue
		}
		if img.Bounds().Size() != r.settings.Canvas.Rect().Size() {
			slog.Debug("ignoring cached canvas of another size", "path", t.path, "size", img.Bounds().Size())
			continue
		}
		return img, t.src
	}
	return nil, ""
}

// synthesize composites a pair in memory. A missing background or dialogue
// box leaves that layer out.
func (r *Renderer) synthesize(portraitKey, backgroundKey string) (*image.NRGBA, error) {
	scene := r.sceneFor()
	id := r.profile.ID

	p := pick(r.portraits, portraitKey, "portrait")
	raw, err := imaging.Load(p.Path)
	if err != nil {
		return nil, fmt.Errorf("load portrait %s: %w", p.Name, err)
	}
	portrait := scene.PreparePortrait(raw)

	var bg *image.NRGBA
	if e := pick(r.backgrounds, backgroundKey, "background"); e.Path != "" {
		if bg, err = r.bg.Peek(id, e); err != nil {
			return nil, err
		}
	}
	return scene.Composite(bg, portrait), nil
}

func (r *Renderer) sceneFor() *compose.Scene {
	if r.scene != nil {
		return r.scene
	}
	box, err := imaging.Load(r.profile.DialogBoxPath())
	if err != nil {
		slog.Warn("rendering without dialog box", "character", r.profile.ID, "path", r.profile.DialogBoxPath(), "error", err)
	}
	r.scene = compose.NewScene(r.profile.Layout, box)
	r.bg = prescale.New(r.dir, r.settings.Canvas)
	return r.scene
}

// ///////////////////////////////////////////////
// Text
// ///////////////////////////////////////////////

// drawText draws the speaker name and the wrapped dialogue onto card.
func (r *Renderer) drawText(card *image.NRGBA, text, speaker string) {
	style := r.profile.Style
	l := r.profile.Layout

	if speaker != "" {
		if layers, ok := style.LayersFor(speaker); ok {
			for _, layer := range layers {
				name := layer.FontFile
				if name == "" {
					name = style.NameFontFile
				}
				face := r.fonts.Face(name, layer.FontSize)
				drawString(card, face, layer.Color.NRGBA(), l.NamePos.Add(layer.Offset).Image(), layer.Render(speaker))
			}
		} else {
			face := r.fonts.Face(style.NameFontFile, style.Basic.NameFontSize)
			drawString(card, face, style.Basic.NameColor.NRGBA(), l.NamePos.Image(), speaker)
		}
	}

	face := r.fonts.Face(style.FontFile, style.Basic.FontSize)
	color := style.Basic.TextColor.NRGBA()
	for _, line := range LayoutText(face, style.Wrap(text), l.TextArea) {
		drawString(card, face, color, line.At, line.Text)
	}
}

// ///////////////////////////////////////////////
// Selection
// ///////////////////////////////////////////////

// PortraitByIndex returns the key of the n-th portrait, counting from 1 in
// key order.
func (r *Renderer) PortraitByIndex(n int) (string, error) {
	if n < 1 || n > len(r.portraits) {
		return "", fmt.Errorf("portrait index %d out of range 1..%d", n, len(r.portraits))
	}
	return r.portraits[n-1].Key, nil
}
