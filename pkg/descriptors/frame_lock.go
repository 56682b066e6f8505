package descriptors

import "io"

const FrameLockResponseSize = 1

type FrameLockResponse struct {
	Acquired bool
}

func (flr *FrameLockResponse) MarshalSize() int {
	return FrameLockResponseSize
}

func (flr *FrameLockResponse) UnmarshalBinary(buf []byte) error {
	if len(buf) != FrameLockResponseSize {
		return io.ErrUnexpectedEOF
	}
	flr.Acquired = buf[0] != 0
	return nil
}
