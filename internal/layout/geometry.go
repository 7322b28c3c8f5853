// Package layout normalizes stored per-character geometry and text style into
// validated, resolution-correct values.
//
// Character documents are hand-edited and written by several generations of
// the authoring tool, so every field may be missing, mistyped, or authored for
// a different canvas size. [NormalizeLayout] and [NormalizeStyle] are total:
// they never fail, and every invalid field falls back to a documented default.
// Nothing in this package performs I/O.
package layout

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
)

// ///////////////////////////////////////////////
// Geometry Types
// ///////////////////////////////////////////////

// Size is a canvas resolution in pixels.
type Size struct {
	W, H int
}

// DefaultCanvas is the resolution assumed for legacy layouts that carry no
// canvas tag but whose coordinates exceed the requested canvas.
var DefaultCanvas = Size{W: 2560, H: 1440}

// String formats the size as "WxH".
func (s Size) String() string { return fmt.Sprintf("%dx%d", s.W, s.H) }

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool { return s.W > 0 && s.H > 0 }

// Rect returns the canvas bounds anchored at the origin.
func (s Size) Rect() image.Rectangle { return image.Rect(0, 0, s.W, s.H) }

// Point is a signed pixel position.
type Point struct {
	X, Y int
}

// Image converts p to an image.Point.
func (p Point) Image() image.Point { return image.Pt(p.X, p.Y) }

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Rect is an axis-aligned pixel rectangle with X1<=X2 and Y1<=Y2 once normalized.
type Rect struct {
	X1, Y1, X2, Y2 int
}

// Dx returns the rectangle's width.
func (r Rect) Dx() int { return r.X2 - r.X1 }

// Dy returns the rectangle's height.
func (r Rect) Dy() int { return r.Y2 - r.Y1 }

// Image converts r to an image.Rectangle.
func (r Rect) Image() image.Rectangle { return image.Rect(r.X1, r.Y1, r.X2, r.Y2) }

// ///////////////////////////////////////////////
// Coercion
// ///////////////////////////////////////////////

// toFloat extracts a finite number from the value shapes produced by the JSON
// and TOML decoders (float64, int64, json.Number) and by [Layout.Raw] (int).
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint8:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toInt truncates a number toward zero, matching how stored coordinates have
// always been read.
func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// numbers reads exactly n numbers from a list value, or from a map value
// carrying the given keys.
func numbers(v any, keys ...string) ([]float64, bool) {
	out := make([]float64, 0, len(keys))
	switch list := v.(type) {
	case []any:
		if len(list) != len(keys) {
			return nil, false
		}
		for _, item := range list {
			f, ok := toFloat(item)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
	case []int:
		if len(list) != len(keys) {
			return nil, false
		}
		for _, item := range list {
			out = append(out, float64(item))
		}
	case []float64:
		if len(list) != len(keys) {
			return nil, false
		}
		out = append(out, list...)
	case map[string]any:
		for _, k := range keys {
			f, ok := toFloat(list[k])
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
	default:
		return nil, false
	}
	return out, true
}

// parsePoint reads [x, y] or {"x":..,"y":..}.
func parsePoint(v any) (pt [2]float64, ok bool) {
	n, ok := numbers(v, "x", "y")
	if !ok {
		return pt, false
	}
	return [2]float64{n[0], n[1]}, true
}

// parseRect reads [x1, y1, x2, y2] or {"x1":..,"y1":..,"x2":..,"y2":..}.
func parseRect(v any) (r [4]float64, ok bool) {
	n, ok := numbers(v, "x1", "y1", "x2", "y2")
	if !ok {
		return r, false
	}
	return [4]float64{n[0], n[1], n[2], n[3]}, true
}

// parseSize reads a positive [w, h] pair.
func parseSize(v any) (Size, bool) {
	n, ok := numbers(v, "w", "h")
	if !ok {
		return Size{}, false
	}
	s := Size{W: int(n[0]), H: int(n[1])}
	return s, s.Valid()
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return max(lo, min(v, hi))
}
