package descriptors

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
)

// FrameSizeDescriptorSize is the length of the frame size response.
const FrameSizeDescriptorSize = 12

// MaxPayloadSize bounds the byte count a header may describe, so that sizes
// fit in an int on every platform.
const MaxPayloadSize = math.MaxInt32

var ErrPayloadOverflow = errors.New("frame payload size overflows")

const (
	FrameFormatInvalid   uint32 = 0
	FrameFormatGrayscale uint32 = 1
	FrameFormatRGB565    uint32 = 2
)

// FrameSizeDescriptor is the header the firmware returns for the frame size
// request. Format is overloaded: values up to 2 are bytes per pixel, anything
// larger is the byte length of a JPEG payload.
type FrameSizeDescriptor struct {
	Width  uint32
	Height uint32
	Format uint32
}

func (fsd *FrameSizeDescriptor) MarshalSize() int {
	return FrameSizeDescriptorSize
}

func (fsd *FrameSizeDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, FrameSizeDescriptorSize)
	binary.LittleEndian.PutUint32(buf[0:4], fsd.Width)
	binary.LittleEndian.PutUint32(buf[4:8], fsd.Height)
	binary.LittleEndian.PutUint32(buf[8:12], fsd.Format)
	return buf, nil
}

func (fsd *FrameSizeDescriptor) UnmarshalBinary(buf []byte) error {
	if len(buf) != FrameSizeDescriptorSize {
		return io.ErrUnexpectedEOF
	}
	fsd.Width = binary.LittleEndian.Uint32(buf[0:4])
	fsd.Height = binary.LittleEndian.Uint32(buf[4:8])
	fsd.Format = binary.LittleEndian.Uint32(buf[8:12])
	return nil
}

func (fsd *FrameSizeDescriptor) Valid() bool {
	return fsd.Format != FrameFormatInvalid
}

// Compressed reports whether the frame is a JPEG payload.
func (fsd *FrameSizeDescriptor) Compressed() bool {
	return fsd.Format > FrameFormatRGB565
}

// BytesPerPixel returns 0 for compressed frames.
func (fsd *FrameSizeDescriptor) BytesPerPixel() int {
	if fsd.Compressed() {
		return 0
	}
	return int(fsd.Format)
}

// PayloadSize is the number of bytes the dump will carry. Headers describing
// more than MaxPayloadSize bytes fail with ErrPayloadOverflow.
func (fsd *FrameSizeDescriptor) PayloadSize() (int, error) {
	n := uint64(fsd.Format)
	if !fsd.Compressed() {
		hi, lo := bits.Mul64(uint64(fsd.Width)*uint64(fsd.Height), n)
		if hi != 0 {
			return 0, fmt.Errorf("%s: %w", fsd, ErrPayloadOverflow)
		}
		n = lo
	}
	if n > MaxPayloadSize {
		return 0, fmt.Errorf("%s: %d bytes: %w", fsd, n, ErrPayloadOverflow)
	}
	return int(n), nil
}

func (fsd *FrameSizeDescriptor) FormatString() string {
	switch {
	case fsd.Format == FrameFormatInvalid:
		return "invalid"
	case fsd.Format == FrameFormatGrayscale:
		return "grayscale"
	case fsd.Format == FrameFormatRGB565:
		return "rgb565"
	default:
		return fmt.Sprintf("jpeg (%d bytes)", fsd.Format)
	}
}

func (fsd *FrameSizeDescriptor) String() string {
	return fmt.Sprintf("%dx%d %s", fsd.Width, fsd.Height, fsd.FormatString())
}
