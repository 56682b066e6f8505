package decode

import (
	"image"
	"image/color"
	"math"
	"math/bits"
)

// RGB is an in-memory image whose At method returns [color.RGBA] values with
// full opacity.
type RGB struct {
	// Pix holds the image's pixels, in R, G, B order. The pixel at
	// (x, y) starts at Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*3].
	Pix []uint8
	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
	// Rect is the image's bounds.
	Rect image.Rectangle
}

var _ image.Image = &RGB{}

// NewRGB returns a new RGB image with the given bounds. Like the image
// package constructors, it panics on huge or negative dimensions.
func NewRGB(r image.Rectangle) *RGB {
	n, ok := bufferLength(r.Dx(), r.Dy(), 3)
	if !ok {
		panic("decode: NewRGB Rectangle has huge or negative dimensions")
	}
	return &RGB{
		Pix:    make([]uint8, n),
		Stride: 3 * r.Dx(),
		Rect:   r,
	}
}

// bufferLength returns width*height*bpp, or false if any factor is negative
// or the product does not fit in an int32.
func bufferLength(width, height, bpp int) (int, bool) {
	if width < 0 || height < 0 || bpp < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(width), uint64(height))
	if hi != 0 {
		return 0, false
	}
	hi, lo = bits.Mul64(lo, uint64(bpp))
	if hi != 0 || lo > math.MaxInt32 {
		return 0, false
	}
	return int(lo), true
}

func (p *RGB) ColorModel() color.Model { return color.RGBAModel }

func (p *RGB) Bounds() image.Rectangle { return p.Rect }

func (p *RGB) At(x, y int) color.Color {
	return p.RGBAAt(x, y)
}

func (p *RGB) RGBAAt(x, y int) color.RGBA {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+3 : i+3] // Small cap improves performance, see https://golang.org/issue/27857
	return color.RGBA{s[0], s[1], s[2], 0xff}
}

func (p *RGB) SetRGB(x, y int, r, g, b uint8) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+3 : i+3]
	s[0], s[1], s[2] = r, g, b
}

// PixOffset returns the index of the first element of Pix that corresponds to
// the pixel at (x, y).
func (p *RGB) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
}

// SubImage returns an image representing the portion of the image p visible
// through r. The returned value shares pixels with the original image.
func (p *RGB) SubImage(r image.Rectangle) image.Image {
	r = r.Intersect(p.Rect)
	// If r1 and r2 are Rectangles, r1.Intersect(r2) is not guaranteed to be inside
	// either r1 or r2 if the intersection is empty. Without explicitly checking for
	// this, the Pix[i:] expression below can panic.
	if r.Empty() {
		return &RGB{}
	}
	i := p.PixOffset(r.Min.X, r.Min.Y)
	return &RGB{
		Pix:    p.Pix[i:],
		Stride: p.Stride,
		Rect:   r,
	}
}
