package decode

import (
	"encoding/binary"
	"image"
)

type GrayscaleDecoder struct{}

func (d *GrayscaleDecoder) Decode(buf []byte, width, height int) (*RGB, error) {
	if err := checkLength(buf, width, height, 1); err != nil {
		return nil, err
	}
	img := NewRGB(image.Rect(0, 0, width, height))
	for i, y := range buf {
		s := img.Pix[i*3 : i*3+3 : i*3+3]
		s[0], s[1], s[2] = y, y, y
	}
	return img, nil
}

// The firmware scales 5 and 6 bit channels with c*255.0/max and truncates.
// A shift-and-replicate expansion rounds differently, so the tables are built
// from the float expression.
var (
	rgb565Scale5 [32]uint8
	rgb565Scale6 [64]uint8
)

func init() {
	for i := range rgb565Scale5 {
		rgb565Scale5[i] = uint8(float64(i) * 255.0 / 31.0)
	}
	for i := range rgb565Scale6 {
		rgb565Scale6[i] = uint8(float64(i) * 255.0 / 63.0)
	}
}

// RGB565Decoder unpacks 16-bit 5-6-5 pixels stored big-endian in the stream.
type RGB565Decoder struct{}

func (d *RGB565Decoder) Decode(buf []byte, width, height int) (*RGB, error) {
	if err := checkLength(buf, width, height, 2); err != nil {
		return nil, err
	}
	img := NewRGB(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		r, g, b := RGB565(binary.BigEndian.Uint16(buf[i*2 : i*2+2]))
		s := img.Pix[i*3 : i*3+3 : i*3+3]
		s[0], s[1], s[2] = r, g, b
	}
	return img, nil
}

// RGB565 expands a single packed pixel.
func RGB565(p uint16) (r, g, b uint8) {
	return rgb565Scale5[(p&0xF800)>>11], rgb565Scale6[(p&0x07E0)>>5], rgb565Scale5[p&0x001F]
}
