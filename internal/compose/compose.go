// Package compose builds base canvases: background, portrait, and dialogue
// box layered per a character's layout. The cache builder persists its
// output; the renderer calls it directly when no cached canvas exists.
package compose

import (
	"image"

	"tools.zach/dev/galcard/internal/imaging"
	"tools.zach/dev/galcard/internal/layout"
)

// Scene holds the per-character layers that do not vary between
// (portrait, background) pairs.
type Scene struct {
	// Canvas is the output size.
	Canvas layout.Size
	// Box is the dialogue box already fitted to the canvas width.
	Box *image.NRGBA
	// BoxPos is the box's top-left corner.
	BoxPos image.Point
	// StandPos is the portrait's top-left corner.
	StandPos image.Point
	// StandScale is applied by [Scene.PreparePortrait].
	StandScale float64
	// StandOnTop paints the portrait after the box.
	StandOnTop bool
}

// NewScene fits rawBox to the canvas of l and resolves its position. A nil
// rawBox yields a scene without a dialogue box.
func NewScene(l layout.Layout, rawBox *image.NRGBA) *Scene {
	s := &Scene{
		Canvas:     l.Canvas,
		StandPos:   l.StandPos.Image(),
		StandScale: l.StandScale,
		StandOnTop: l.StandOnTop,
	}
	if rawBox != nil {
		s.Box = FitDialogBox(rawBox, l.Canvas)
		s.BoxPos = BoxPosition(l, s.Box.Bounds().Size())
	}
	return s
}

// FitDialogBox scales box to the canvas width, keeping its aspect ratio.
func FitDialogBox(box *image.NRGBA, canvas layout.Size) *image.NRGBA {
	return imaging.ScaleToWidth(box, canvas.W)
}

// BoxPosition resolves where a box of size sits. An explicit layout position
// is clamped to [-box.w, canvas.w] x [-box.h, canvas.h]; without one the box
// is bottom-aligned at x = 0.
func BoxPosition(l layout.Layout, size image.Point) image.Point {
	if l.BoxPos == nil {
		return image.Pt(0, l.Canvas.H-size.Y)
	}
	return image.Pt(
		max(-size.X, min(l.BoxPos.X, l.Canvas.W)),
		max(-size.Y, min(l.BoxPos.Y, l.Canvas.H)),
	)
}

// maxPortraitSpan bounds a scaled portrait to this many canvas widths and
// heights.
const maxPortraitSpan = 4

// PreparePortrait applies the scene's stand scale to a decoded portrait,
// lowered when needed so the result spans at most maxPortraitSpan canvases
// on either axis.
func (s *Scene) PreparePortrait(portrait *image.NRGBA) *image.NRGBA {
	factor := s.StandScale
	if w := portrait.Bounds().Dx(); w > 0 {
		factor = min(factor, float64(maxPortraitSpan*s.Canvas.W)/float64(w))
	}
	if h := portrait.Bounds().Dy(); h > 0 {
		factor = min(factor, float64(maxPortraitSpan*s.Canvas.H)/float64(h))
	}
	return imaging.ScaleBy(portrait, factor)
}

// Composite returns a new transparent canvas with bg at the origin, then the
// portrait and box in the order StandOnTop selects. bg is scaled to the canvas
// if needed; portrait must already be prepared. Nil layers are skipped.
func (s *Scene) Composite(bg, portrait *image.NRGBA) *image.NRGBA {
	canvas := imaging.NewCanvas(s.Canvas.W, s.Canvas.H)
	if bg != nil {
		if b := bg.Bounds(); b.Dx() != s.Canvas.W || b.Dy() != s.Canvas.H {
			bg = imaging.Scale(bg, s.Canvas.W, s.Canvas.H)
		}
		imaging.Paste(canvas, bg, image.Point{})
	}

	layers := []struct {
		img *image.NRGBA
		at  image.Point
	}{{portrait, s.StandPos}, {s.Box, s.BoxPos}}
	if s.StandOnTop {
		layers[0], layers[1] = layers[1], layers[0]
	}
	for _, l := range layers {
		if l.img != nil {
			imaging.Over(canvas, l.img, l.at)
		}
	}
	return canvas
}
