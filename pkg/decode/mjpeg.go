package decode

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// JPEGDecoder decodes a complete JPEG payload. The format field of the
// header only carries the payload length, so dimensions are checked against
// the header after decoding.
type JPEGDecoder struct{}

func (d *JPEGDecoder) Decode(buf []byte, width, height int) (*RGB, error) {
	src, err := jpeg.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}
	b := src.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return nil, fmt.Errorf("decoded %dx%d (%d bytes), header says %dx%d (%d bytes): %w",
			b.Dx(), b.Dy(), b.Dx()*b.Dy()*3, width, height, width*height*3, ErrSizeMismatch)
	}
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)

	img := NewRGB(rgba.Bounds())
	for i := 0; i < width*height; i++ {
		copy(img.Pix[i*3:i*3+3], rgba.Pix[i*4:i*4+3])
	}
	return img, nil
}
