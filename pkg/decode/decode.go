package decode

import (
	"errors"
	"fmt"

	"github.com/kevmo314/go-openmv/pkg/descriptors"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported frame format")
	ErrShortBuffer       = errors.New("frame buffer size does not match header")
	ErrCorruptImage      = errors.New("corrupt jpeg image")
	ErrSizeMismatch      = errors.New("decoded image size does not match header")
)

// Decoder converts a raw framebuffer dump into an RGB image of the declared
// dimensions.
type Decoder interface {
	Decode(buf []byte, width, height int) (*RGB, error)
}

// NewDecoder picks a decoder for the overloaded format field of a frame
// size header.
func NewDecoder(format uint32) (Decoder, error) {
	switch {
	case format == descriptors.FrameFormatGrayscale:
		return &GrayscaleDecoder{}, nil
	case format == descriptors.FrameFormatRGB565:
		return &RGB565Decoder{}, nil
	case format > descriptors.FrameFormatRGB565:
		return &JPEGDecoder{}, nil
	}
	return nil, fmt.Errorf("format %d: %w", format, ErrUnsupportedFormat)
}

func Decode(buf []byte, size *descriptors.FrameSizeDescriptor) (*RGB, error) {
	dec, err := NewDecoder(size.Format)
	if err != nil {
		return nil, err
	}
	return dec.Decode(buf, int(size.Width), int(size.Height))
}

func checkLength(buf []byte, width, height, bpp int) error {
	want, ok := bufferLength(width, height, bpp)
	if !ok {
		return fmt.Errorf("%dx%d at %d bytes per pixel is not addressable: %w", width, height, bpp, ErrShortBuffer)
	}
	if len(buf) != want {
		return fmt.Errorf("got %d bytes, want %d for %dx%d at %d bytes per pixel: %w", len(buf), want, width, height, bpp, ErrShortBuffer)
	}
	return nil
}
