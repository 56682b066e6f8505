package descriptors

import (
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	ErrAttributeRange = errors.New("attribute value out of range")
	ErrBufferTooSmall = errors.New("buffer too small")
)

// Attribute identifies a sensor setting exposed by the debug interface.
type Attribute int

const (
	AttributeContrast    Attribute = 0
	AttributeBrightness  Attribute = 1
	AttributeSaturation  Attribute = 2
	AttributeGainCeiling Attribute = 3
)

func (a Attribute) String() string {
	switch a {
	case AttributeContrast:
		return "contrast"
	case AttributeBrightness:
		return "brightness"
	case AttributeSaturation:
		return "saturation"
	case AttributeGainCeiling:
		return "gain ceiling"
	default:
		return fmt.Sprintf("attribute(%d)", int(a))
	}
}

// AttributeWrite is the (attribute, value) pair carried in the wValue of an
// attribute write. Both halves are signed bytes.
type AttributeWrite struct {
	Attribute Attribute
	Value     int
}

// Uint16Value packs the pair as two signed bytes read back big-endian, so the
// attribute lands in the high byte and the value in the low byte.
func (aw *AttributeWrite) Uint16Value() (uint16, error) {
	if err := checkSignedByte("attribute", int(aw.Attribute)); err != nil {
		return 0, err
	}
	if err := checkSignedByte("value", aw.Value); err != nil {
		return 0, err
	}
	return uint16(uint8(int8(aw.Attribute)))<<8 | uint16(uint8(int8(aw.Value))), nil
}

func (aw *AttributeWrite) UnmarshalUint16(v uint16) {
	aw.Attribute = Attribute(int8(v >> 8))
	aw.Value = int(int8(v & 0xff))
}

func checkSignedByte(name string, v int) error {
	if v < math.MinInt8 || v > math.MaxInt8 {
		return fmt.Errorf("%s %d not in [%d, %d]: %w", name, v, math.MinInt8, math.MaxInt8, ErrAttributeRange)
	}
	return nil
}

// AttributeReadResponse is the single signed byte returned by an attribute read.
type AttributeReadResponse struct {
	Value int
}

func (arr *AttributeReadResponse) MarshalSize() int {
	return 1
}

func (arr *AttributeReadResponse) UnmarshalBinary(buf []byte) error {
	if len(buf) != 1 {
		return io.ErrUnexpectedEOF
	}
	arr.Value = int(int8(buf[0]))
	return nil
}
