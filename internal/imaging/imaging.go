// Package imaging holds the raster primitives shared by the cache builder and
// the renderer: decoding to NRGBA, high-quality scaling, alpha compositing,
// and atomic encoding in the configured cache format.
package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	xdraw "golang.org/x/image/draw"
	"tools.zach/dev/galcard/internal/atomicfile"
	"tools.zach/dev/galcard/internal/config"
)

// ///////////////////////////////////////////////
// Decoding
// ///////////////////////////////////////////////

// Load decodes the image at path into a fresh NRGBA anchored at the origin.
func Load(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return ToNRGBA(img), nil
}

// ToNRGBA converts img to an NRGBA anchored at the origin. An NRGBA already
// anchored there is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(out, out.Rect, img, b.Min, xdraw.Src)
	return out
}

// ///////////////////////////////////////////////
// Encoding
// ///////////////////////////////////////////////

// Save atomically writes img to path in format. JPEG output discards alpha.
func Save(path string, img image.Image, format config.CacheFormat, quality int) error {
	err := atomicfile.WriteFunc(path, 0o644, func(w io.Writer) error {
		return Encode(w, img, format, quality)
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Encode writes img to w in format.
func Encode(w io.Writer, img image.Image, format config.CacheFormat, quality int) error {
	if format == config.FormatJPEG {
		return jpeg.Encode(w, opaque(img), &jpeg.Options{Quality: quality})
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}

// opaque drops the alpha channel, keeping the stored color of every pixel.
func opaque(img image.Image) image.Image {
	n, ok := img.(*image.NRGBA)
	if !ok {
		return img
	}
	out := image.NewRGBA(n.Rect)
	copy(out.Pix, n.Pix)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}

// ///////////////////////////////////////////////
// Geometry
// ///////////////////////////////////////////////

// Scale returns src resized to w x h with Catmull-Rom filtering. When src is
// already that size a copy is returned.
func Scale(src *image.NRGBA, w, h int) *image.NRGBA {
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return Clone(src)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
	xdraw.CatmullRom.Scale(dst, dst.Rect, src, b, xdraw.Src, nil)
	return dst
}

// ScaleToWidth resizes src to width w, keeping its aspect ratio. The new
// height is truncated toward zero.
func ScaleToWidth(src *image.NRGBA, w int) *image.NRGBA {
	b := src.Bounds()
	if b.Dx() == w || b.Dx() == 0 {
		return src
	}
	h := int(float64(b.Dy()) * float64(w) / float64(b.Dx()))
	return Scale(src, w, h)
}

// ScaleBy multiplies both dimensions of src by factor, truncating. A factor
// of 1 returns src unchanged.
func ScaleBy(src *image.NRGBA, factor float64) *image.NRGBA {
	if factor == 1 {
		return src
	}
	b := src.Bounds()
	return Scale(src, int(float64(b.Dx())*factor), int(float64(b.Dy())*factor))
}

// Clone returns a deep copy of img.
func Clone(img *image.NRGBA) *image.NRGBA {
	out := &image.NRGBA{
		Pix:    make([]uint8, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(out.Pix, img.Pix)
	return out
}

// Crop copies r out of img into a new image anchored at the origin. r is
// intersected with img's bounds first.
func Crop(img *image.NRGBA, r image.Rectangle) *image.NRGBA {
	r = r.Intersect(img.Bounds())
	out := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Draw(out, out.Rect, img, r.Min, xdraw.Src)
	return out
}

// ///////////////////////////////////////////////
// Compositing
// ///////////////////////////////////////////////

// NewCanvas returns a transparent w x h canvas.
func NewCanvas(w, h int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

// Paste copies src onto dst with its top-left at at, replacing dst pixels.
func Paste(dst *image.NRGBA, src image.Image, at image.Point) {
	b := src.Bounds()
	xdraw.Draw(dst, b.Sub(b.Min).Add(at), src, b.Min, xdraw.Src)
}

// Over alpha-composites src onto dst with its top-left at at. Parts of src
// outside dst are clipped.
func Over(dst *image.NRGBA, src image.Image, at image.Point) {
	b := src.Bounds()
	xdraw.Draw(dst, b.Sub(b.Min).Add(at), src, b.Min, xdraw.Over)
}

// Fill paints the whole of dst with c.
func Fill(dst *image.NRGBA, c color.Color) {
	xdraw.Draw(dst, dst.Rect, image.NewUniform(c), image.Point{}, xdraw.Src)
}
