package descriptors

import "encoding/binary"

// RegionDescriptor selects a rectangle of the framebuffer and names the file
// the firmware stores the result in. It is used by the template and keypoint
// descriptor save commands.
type RegionDescriptor struct {
	X, Y, W, H uint32
	Path       string
}

func (rd *RegionDescriptor) MarshalSize() int {
	return 16 + len(rd.Path)
}

// MarshalInto writes x, y, w, h as little-endian u32 followed by the raw path
// bytes. The path carries no length prefix or terminator; the firmware takes
// its length from the announced transfer size.
func (rd *RegionDescriptor) MarshalInto(buf []byte) error {
	if len(buf) < rd.MarshalSize() {
		return ErrBufferTooSmall
	}
	binary.LittleEndian.PutUint32(buf[0:4], rd.X)
	binary.LittleEndian.PutUint32(buf[4:8], rd.Y)
	binary.LittleEndian.PutUint32(buf[8:12], rd.W)
	binary.LittleEndian.PutUint32(buf[12:16], rd.H)
	copy(buf[16:], rd.Path)
	return nil
}

func (rd *RegionDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, rd.MarshalSize())
	return buf, rd.MarshalInto(buf)
}
