package layout

import "math"

// ///////////////////////////////////////////////
// Layout
// ///////////////////////////////////////////////

// Document keys of the layout block.
const (
	keyStandPos          = "stand_pos"
	keyStandScale        = "stand_scale"
	keyStandOnTop        = "stand_on_top"
	keyBoxPos            = "box_pos"
	keyTextArea          = "text_area"
	keyNamePos           = "name_pos"
	keyCanvasSize        = "_canvas_size"
	keyEnableCrop        = "enable_crop"
	keyCropArea          = "crop_area"
	keyCurrentPortrait   = "current_portrait"
	keyCurrentBackground = "current_background"
)

// MaxStandScale is the largest stand_scale a layout keeps; larger values are
// capped to it.
const MaxStandScale = 10.0

// MinTextExtent is the smallest width and height a normalized text area may have.
const MinTextExtent = 10

// Layout is per-character geometry, consistent with exactly one canvas size.
type Layout struct {
	// StandPos is the portrait's top-left corner; may lie off-canvas.
	StandPos Point
	// StandScale multiplies the portrait's native size. Always in
	// (0, MaxStandScale].
	StandScale float64
	// StandOnTop paints the portrait after (visually above) the dialogue box.
	StandOnTop bool
	// BoxPos is an explicit dialogue-box position; nil means bottom-aligned.
	BoxPos *Point
	// TextArea bounds the dialogue text.
	TextArea Rect
	// NamePos is where the speaker name is drawn.
	NamePos Point
	// Canvas is the resolution every coordinate above refers to.
	Canvas Size
	// EnableCrop makes the renderer return only CropArea.
	EnableCrop bool
	// CropArea is the output crop rectangle, clamped to the canvas.
	CropArea Rect
	// CurrentPortrait and CurrentBackground record the authoring tool's
	// selection. They are carried through untouched.
	CurrentPortrait   string
	CurrentBackground string
}

// NormalizeLayout converts a raw layout block into a [Layout] for canvas.
//
// The source resolution is the explicit _canvas_size tag when present.
// Without a tag, coordinates that exceed canvas are assumed to be authored at
// [DefaultCanvas]; otherwise they are taken to already match canvas. When
// source and target differ, every point and rect is rescaled per axis before
// clamping. A non-positive canvas is replaced by [DefaultCanvas].
func NormalizeLayout(raw map[string]any, canvas Size) Layout {
	if !canvas.Valid() {
		canvas = DefaultCanvas
	}
	if raw == nil {
		raw = map[string]any{}
	}

	src := sourceCanvas(raw, canvas)
	sx := float64(canvas.W) / float64(src.W)
	sy := float64(canvas.H) / float64(src.H)
	scaled := src != canvas

	point := func(key string) ([2]float64, bool) {
		p, ok := parsePoint(raw[key])
		if ok && scaled {
			p = [2]float64{roundHalfEven(p[0] * sx), roundHalfEven(p[1] * sy)}
		}
		return p, ok
	}
	rect := func(key string) ([4]float64, bool) {
		r, ok := parseRect(raw[key])
		if ok && scaled {
			r = [4]float64{
				roundHalfEven(r[0] * sx), roundHalfEven(r[1] * sy),
				roundHalfEven(r[2] * sx), roundHalfEven(r[3] * sy),
			}
		}
		return r, ok
	}

	l := Layout{
		StandScale: 1.0,
		Canvas:     canvas,
	}

	if p, ok := point(keyStandPos); ok {
		l.StandPos = clampExtended(p, canvas)
	}
	if p, ok := point(keyBoxPos); ok {
		bp := clampExtended(p, canvas)
		l.BoxPos = &bp
	}
	if p, ok := point(keyNamePos); ok {
		l.NamePos = Point{
			X: clamp(truncate(p[0]), 0, canvas.W),
			Y: clamp(truncate(p[1]), 0, canvas.H),
		}
	}

	r, ok := rect(keyTextArea)
	l.TextArea = clampRect(r, ok, canvas, defaultTextArea(canvas))

	if f, ok := toFloat(raw[keyStandScale]); ok && f > 0 {
		l.StandScale = min(f, MaxStandScale)
	}
	if b, ok := raw[keyStandOnTop].(bool); ok {
		l.StandOnTop = b
	}
	if b, ok := raw[keyEnableCrop].(bool); ok {
		l.EnableCrop = b
	}
	r, ok = rect(keyCropArea)
	l.CropArea = clampRect(r, ok, canvas, Rect{X2: canvas.W, Y2: canvas.H})

	l.CurrentPortrait, _ = raw[keyCurrentPortrait].(string)
	l.CurrentBackground, _ = raw[keyCurrentBackground].(string)
	return l
}

// Raw converts l back to its document form, stamped with its canvas size.
// NormalizeLayout(l.Raw(), l.Canvas) == l.
func (l Layout) Raw() map[string]any {
	raw := map[string]any{
		keyStandPos:   []any{l.StandPos.X, l.StandPos.Y},
		keyStandScale: l.StandScale,
		keyStandOnTop: l.StandOnTop,
		keyTextArea:   []any{l.TextArea.X1, l.TextArea.Y1, l.TextArea.X2, l.TextArea.Y2},
		keyNamePos:    []any{l.NamePos.X, l.NamePos.Y},
		keyCanvasSize: []any{l.Canvas.W, l.Canvas.H},
		keyEnableCrop: l.EnableCrop,
		keyCropArea:   []any{l.CropArea.X1, l.CropArea.Y1, l.CropArea.X2, l.CropArea.Y2},
	}
	if l.BoxPos != nil {
		raw[keyBoxPos] = []any{l.BoxPos.X, l.BoxPos.Y}
	}
	if l.CurrentPortrait != "" {
		raw[keyCurrentPortrait] = l.CurrentPortrait
	}
	if l.CurrentBackground != "" {
		raw[keyCurrentBackground] = l.CurrentBackground
	}
	return raw
}

// ///////////////////////////////////////////////
// Source Resolution
// ///////////////////////////////////////////////

// sourceCanvas determines the resolution raw's coordinates were authored for.
func sourceCanvas(raw map[string]any, canvas Size) Size {
	if s, ok := parseSize(raw[keyCanvasSize]); ok {
		return s
	}
	maxX, maxY := extent(raw)
	if maxX > float64(canvas.W) || maxY > float64(canvas.H) {
		return DefaultCanvas
	}
	return canvas
}

// extent returns the largest x and y referenced by the placement fields.
func extent(raw map[string]any) (maxX, maxY float64) {
	if r, ok := parseRect(raw[keyTextArea]); ok {
		maxX, maxY = math.Max(maxX, r[2]), math.Max(maxY, r[3])
	}
	for _, key := range []string{keyNamePos, keyStandPos, keyBoxPos} {
		if p, ok := parsePoint(raw[key]); ok {
			maxX, maxY = math.Max(maxX, p[0]), math.Max(maxY, p[1])
		}
	}
	return maxX, maxY
}

// ///////////////////////////////////////////////
// Clamping
// ///////////////////////////////////////////////

// defaultTextArea covers the bottom 40% of the canvas, inset 40px from the bottom.
func defaultTextArea(canvas Size) Rect {
	return Rect{X1: 0, Y1: int(float64(canvas.H) * 0.6), X2: canvas.W, Y2: canvas.H - 40}
}

// clampRect orders r's corners and clamps it into canvas with a minimum
// extent of [MinTextExtent] per axis (or the whole axis on tiny canvases).
// When ok is false, fallback is clamped instead.
func clampRect(r [4]float64, ok bool, canvas Size, fallback Rect) Rect {
	var x1, y1, x2, y2 int
	if ok {
		x1, y1, x2, y2 = truncate(r[0]), truncate(r[1]), truncate(r[2]), truncate(r[3])
	} else {
		x1, y1, x2, y2 = fallback.X1, fallback.Y1, fallback.X2, fallback.Y2
	}
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	minW := min(MinTextExtent, canvas.W)
	minH := min(MinTextExtent, canvas.H)

	x1 = clamp(x1, 0, canvas.W-minW)
	y1 = clamp(y1, 0, canvas.H-minH)
	x2 = clamp(x2, x1+minW, canvas.W)
	y2 = clamp(y2, y1+minH, canvas.H)
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// clampExtended bounds an art position to one canvas-size margin on every
// side, so partially off-screen portraits and boxes survive normalization.
func clampExtended(p [2]float64, canvas Size) Point {
	return Point{
		X: clamp(truncate(p[0]), -canvas.W, canvas.W),
		Y: clamp(truncate(p[1]), -canvas.H, canvas.H),
	}
}

// truncate converts toward zero, saturating at the int32 range.
func truncate(f float64) int {
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	default:
		return int(f)
	}
}

// roundHalfEven rounds like the authoring tool does when it rescales.
func roundHalfEven(f float64) float64 { return math.RoundToEven(f) }
