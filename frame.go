package openmv

import (
	"context"
	"fmt"

	"github.com/kevmo314/go-openmv/pkg/decode"
	"github.com/kevmo314/go-openmv/pkg/descriptors"
	"github.com/kevmo314/go-openmv/pkg/requests"
	"github.com/kevmo314/go-openmv/pkg/transfers"
	"github.com/sirupsen/logrus"
)

type AcquisitionState int

const (
	StateIdle AcquisitionState = iota
	StateLocking
	StateSizeQuery
	StateDumping
	StateDecoding
	StateDone
)

func (s AcquisitionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLocking:
		return "locking"
	case StateSizeQuery:
		return "size query"
	case StateDumping:
		return "dumping"
	case StateDecoding:
		return "decoding"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Frame is a decoded framebuffer snapshot. Pix holds Height rows of Width
// RGB triples.
type Frame struct {
	Width  int
	Height int
	// Format is the raw format field of the header: bytes per pixel for
	// uncompressed frames, payload length for JPEG frames.
	Format uint32

	*decode.RGB
}

// RawFrame is a framebuffer dump before pixel decoding.
type RawFrame struct {
	Size descriptors.FrameSizeDescriptor
	Data []byte
}

func (rf *RawFrame) Decode() (*Frame, error) {
	img, err := decode.Decode(rf.Data, &rf.Size)
	if err != nil {
		return nil, err
	}
	return &Frame{
		Width:  int(rf.Size.Width),
		Height: int(rf.Size.Height),
		Format: rf.Size.Format,
		RGB:    img,
	}, nil
}

// State returns the step the current or most recent acquisition reached.
func (d *Device) State() AcquisitionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Device) setState(s AcquisitionState) {
	if d.state == s {
		return
	}
	d.log.WithFields(logrus.Fields{"from": d.state, "to": s}).Debug("acquisition state")
	d.state = s
}

// LockFrame asks the firmware to hold the framebuffer. It reports whether
// the lock was granted. It does not advance the acquisition state.
func (d *Device) LockFrame(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(ctx); err != nil {
		return false, err
	}
	return d.lockFrame()
}

func (d *Device) lockFrame() (bool, error) {
	r := requests.FrameLock(d.opts.Interface)
	buf, err := d.response(r)
	if err != nil {
		return false, err
	}
	var resp descriptors.FrameLockResponse
	if err := resp.UnmarshalBinary(buf); err != nil {
		return false, &MalformedResponseError{Code: r.Code, Want: r.Length, Got: len(buf), Err: err}
	}
	return resp.Acquired, nil
}

// FrameSize reads the framebuffer header. The firmware only answers
// meaningfully while a lock is held.
func (d *Device) FrameSize(ctx context.Context) (*descriptors.FrameSizeDescriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(ctx); err != nil {
		return nil, err
	}
	return d.frameSize()
}

func (d *Device) frameSize() (*descriptors.FrameSizeDescriptor, error) {
	r := requests.FrameSize(d.opts.Interface)
	buf, err := d.response(r)
	if err != nil {
		return nil, err
	}
	size := &descriptors.FrameSizeDescriptor{}
	if err := size.UnmarshalBinary(buf); err != nil {
		return nil, &MalformedResponseError{Code: r.Code, Want: r.Length, Got: len(buf), Err: err}
	}
	return size, nil
}

// ReadRawFrame runs the lock, size and dump handshake and returns the
// undecoded payload. ErrNotReady means the firmware had no frame to hand
// over; nothing beyond the lock request was sent.
func (d *Device) ReadRawFrame(ctx context.Context) (*RawFrame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rf, err := d.readRawFrame(ctx)
	if err != nil {
		d.setState(StateIdle)
		return nil, err
	}
	d.setState(StateDone)
	return rf, nil
}

// ReadFrame is ReadRawFrame followed by pixel decoding.
func (d *Device) ReadFrame(ctx context.Context) (*Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rf, err := d.readRawFrame(ctx)
	if err != nil {
		d.setState(StateIdle)
		return nil, err
	}
	d.setState(StateDecoding)
	f, err := rf.Decode()
	if err != nil {
		d.setState(StateIdle)
		return nil, fmt.Errorf("decode %s frame: %w", &rf.Size, err)
	}
	d.setState(StateDone)
	return f, nil
}

func (d *Device) readRawFrame(ctx context.Context) (*RawFrame, error) {
	if err := d.ready(ctx); err != nil {
		return nil, err
	}

	d.setState(StateLocking)
	ok, err := d.lockFrame()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotReady
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.setState(StateSizeQuery)
	size, err := d.frameSize()
	if err != nil {
		return nil, err
	}
	if !size.Valid() {
		return nil, &MalformedResponseError{
			Code: requests.RequestCodeFrameSize,
			Want: descriptors.FrameSizeDescriptorSize,
			Got:  descriptors.FrameSizeDescriptorSize,
			Err:  errInvalidFormat,
		}
	}
	n, err := size.PayloadSize()
	if err != nil {
		return nil, &MalformedResponseError{
			Code: requests.RequestCodeFrameSize,
			Want: descriptors.FrameSizeDescriptorSize,
			Got:  descriptors.FrameSizeDescriptorSize,
			Err:  err,
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.setState(StateDumping)
	r, err := requests.FrameDump(d.opts.Interface, n)
	if err != nil {
		return nil, err
	}
	if _, err := d.execute(r); err != nil {
		return nil, err
	}
	data, err := transfers.NewBulkReader(d.t, d.opts.EndpointIn, d.opts.ChunkSize, d.opts.Timeout).ReadN(n)
	if err != nil {
		return nil, err
	}
	d.log.WithField("size", size.String()).Trace("frame dumped")
	return &RawFrame{Size: *size, Data: data}, nil
}
