package openmv

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kevmo314/go-openmv/pkg/requests"
	"github.com/kevmo314/go-openmv/pkg/transfers"
	usb "github.com/kevmo314/go-usb"
	"github.com/sirupsen/logrus"
)

// Device is an open debug session with one camera. All methods are safe for
// concurrent use; operations are serialized so that a frame handshake is
// never interleaved with another request.
type Device struct {
	mu sync.Mutex

	t      transfers.Transport
	handle *usb.DeviceHandle
	opts   Options
	log    logrus.FieldLogger

	state  AcquisitionState
	closed bool
}

// Open finds the first device matching the configured vendor and product
// IDs, claims its debug interface and selects the alternate setting.
func Open(opts ...Option) (*Device, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	handle, err := usb.OpenDevice(o.VendorID, o.ProductID)
	if errors.Is(err, usb.ErrDeviceNotFound) {
		return nil, fmt.Errorf("%04x:%04x: %w", o.VendorID, o.ProductID, ErrDeviceNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("open %04x:%04x: %w", o.VendorID, o.ProductID, err)
	}
	return claim(handle, o)
}

// OpenFD wraps a file descriptor that already refers to the device, as
// handed out by the Android USB manager.
func OpenFD(fd uintptr, opts ...Option) (*Device, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	handle, err := usb.WrapSysDevice(int(fd))
	if err != nil {
		return nil, fmt.Errorf("wrap fd %d: %w", fd, err)
	}
	return claim(handle, o)
}

func claim(handle *usb.DeviceHandle, o Options) (*Device, error) {
	if err := handle.DetachKernelDriver(o.Interface); err != nil {
		o.Logger.WithError(err).WithField("interface", o.Interface).Debug("kernel driver not detached")
	}
	if err := handle.ClaimInterface(o.Interface); err != nil {
		handle.Close()
		return nil, fmt.Errorf("claim interface %d: %w", o.Interface, err)
	}
	if err := handle.SetInterfaceAltSetting(o.Interface, o.AltSetting); err != nil {
		handle.ReleaseInterface(o.Interface)
		handle.Close()
		return nil, fmt.Errorf("set interface %d alt setting %d: %w", o.Interface, o.AltSetting, err)
	}

	d := newDevice(handle, o)
	d.handle = handle
	d.log.Debug("device opened")
	return d, nil
}

// NewDevice runs the protocol over a caller-owned transport. Closing the
// Device does not close the transport.
func NewDevice(t transfers.Transport, opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newDevice(t, o)
}

func newDevice(t transfers.Transport, o Options) *Device {
	return &Device{
		t:    t,
		opts: o,
		log: o.Logger.WithFields(logrus.Fields{
			"vid": fmt.Sprintf("%04x", o.VendorID),
			"pid": fmt.Sprintf("%04x", o.ProductID),
		}),
	}
}

func (d *Device) Options() Options {
	return d.opts
}

// Close releases the interface and the underlying handle. Closing an
// already closed device is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeLocked()
}

func (d *Device) closeLocked() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.state = StateIdle
	if d.handle == nil {
		return nil
	}
	rerr := d.handle.ReleaseInterface(d.opts.Interface)
	if err := d.handle.Close(); err != nil {
		return fmt.Errorf("close device: %w", err)
	}
	if rerr != nil {
		return fmt.Errorf("release interface %d: %w", d.opts.Interface, rerr)
	}
	return nil
}

// ready must be called with d.mu held.
func (d *Device) ready(ctx context.Context) error {
	if d.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// execute must be called with d.mu held.
func (d *Device) execute(r *requests.Request) ([]byte, error) {
	d.log.WithField("request", r).Trace("control transfer")
	return transfers.Execute(d.t, r, d.opts.EndpointOut, d.opts.Timeout)
}

// response runs an IN request and insists on a full data stage.
func (d *Device) response(r *requests.Request) ([]byte, error) {
	buf, err := d.execute(r)
	if err != nil {
		return nil, err
	}
	if len(buf) != r.Length {
		return nil, &MalformedResponseError{Code: r.Code, Want: r.Length, Got: len(buf)}
	}
	return buf, nil
}
