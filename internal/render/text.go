package render

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	"tools.zach/dev/galcard/internal/layout"
)

// LineSpacing is added to the face's ascent plus descent to get the line height.
const LineSpacing = 4

// ///////////////////////////////////////////////
// Wrapping
// ///////////////////////////////////////////////

// Wrap breaks text into lines no wider than maxWidth pixels. Each "\n" is a
// hard break and an empty paragraph yields an empty line. Within a paragraph
// characters are appended one at a time while the line still fits; a single
// character wider than maxWidth gets a line of its own.
func Wrap(face font.Face, text string, maxWidth int) []string {
	text = norm.NFC.String(text)
	limit := fixed.I(maxWidth)

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		if para == "" {
			lines = append(lines, "")
			continue
		}
		var line strings.Builder
		for _, r := range para {
			candidate := line.String() + string(r)
			if line.Len() == 0 || font.MeasureString(face, candidate) <= limit {
				line.WriteRune(r)
				continue
			}
			lines = append(lines, line.String())
			line.Reset()
			line.WriteRune(r)
		}
		lines = append(lines, line.String())
	}
	return lines
}

// LineHeight returns the face's ascent plus descent plus [LineSpacing].
func LineHeight(face font.Face) int {
	m := face.Metrics()
	return (m.Ascent + m.Descent).Ceil() + LineSpacing
}

// Line is one wrapped line positioned by its top-left corner.
type Line struct {
	Text string
	At   image.Point
}

// LayoutText wraps text into area and positions each line from the area's
// top. Lines whose top would fall below the area's bottom minus one line
// height are dropped.
func LayoutText(face font.Face, text string, area layout.Rect) []Line {
	height := LineHeight(face)
	maxWidth := max(layout.MinTextExtent, area.Dx())

	var out []Line
	for i, text := range Wrap(face, text, maxWidth) {
		y := area.Y1 + i*height
		if y > area.Y2-height {
			break
		}
		out = append(out, Line{Text: text, At: image.Pt(area.X1, y)})
	}
	return out
}

// ///////////////////////////////////////////////
// Drawing
// ///////////////////////////////////////////////

// drawString paints s with its top-left corner at at.
func drawString(dst *image.NRGBA, face font.Face, c color.NRGBA, at image.Point, s string) {
	if s == "" {
		return
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(at.X, at.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}
