package openmv

import (
	"context"

	"github.com/kevmo314/go-openmv/pkg/descriptors"
	"github.com/kevmo314/go-openmv/pkg/requests"
	"github.com/kevmo314/go-openmv/pkg/transfers"
)

// ExecScript uploads script and starts it on the camera.
func (d *Device) ExecScript(ctx context.Context, script []byte) error {
	r, err := requests.ScriptExec(d.opts.Interface, script)
	if err != nil {
		return err
	}
	return d.send(ctx, r)
}

func (d *Device) StopScript(ctx context.Context) error {
	return d.send(ctx, requests.ScriptStop(d.opts.Interface))
}

// SaveTemplate asks the firmware to store the region of the current frame
// as a template at region.Path on the camera's filesystem.
func (d *Device) SaveTemplate(ctx context.Context, region *descriptors.RegionDescriptor) error {
	r, err := requests.TemplateSave(d.opts.Interface, region)
	if err != nil {
		return err
	}
	return d.send(ctx, r)
}

// SaveDescriptor is SaveTemplate for keypoint descriptors.
func (d *Device) SaveDescriptor(ctx context.Context, region *descriptors.RegionDescriptor) error {
	r, err := requests.DescriptorSave(d.opts.Interface, region)
	if err != nil {
		return err
	}
	return d.send(ctx, r)
}

// SetAttribute writes a sensor attribute. attr and value must both fit in a
// signed byte.
func (d *Device) SetAttribute(ctx context.Context, attr descriptors.Attribute, value int) error {
	r, err := requests.AttributeWrite(d.opts.Interface, attr, value)
	if err != nil {
		return err
	}
	return d.send(ctx, r)
}

func (d *Device) GetAttribute(ctx context.Context, attr descriptors.Attribute) (int, error) {
	r, err := requests.AttributeRead(d.opts.Interface, attr)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(ctx); err != nil {
		return 0, err
	}
	buf, err := d.response(r)
	if err != nil {
		return 0, err
	}
	var resp descriptors.AttributeReadResponse
	if err := resp.UnmarshalBinary(buf); err != nil {
		return 0, &MalformedResponseError{Code: r.Code, Want: r.Length, Got: len(buf), Err: err}
	}
	return resp.Value, nil
}

// FrameUpdate asks the firmware to refresh the framebuffer.
func (d *Device) FrameUpdate(ctx context.Context) error {
	return d.send(ctx, requests.FrameUpdate(d.opts.Interface))
}

// Reset reboots the camera and closes the device.
func (d *Device) Reset(ctx context.Context) error {
	return d.restart(ctx, requests.SystemReset(d.opts.Interface))
}

// EnterBootloader reboots the camera into its DFU bootloader and closes the
// device.
func (d *Device) EnterBootloader(ctx context.Context) error {
	return d.restart(ctx, requests.SystemBoot(d.opts.Interface))
}

func (d *Device) send(ctx context.Context, r *requests.Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(ctx); err != nil {
		return err
	}
	_, err := d.execute(r)
	return err
}

// restart sends a request after which the device drops off the bus. The
// firmware usually resets before completing the status stage, so an
// interrupted transfer counts as success.
func (d *Device) restart(ctx context.Context, r *requests.Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(ctx); err != nil {
		return err
	}
	if _, err := d.execute(r); err != nil {
		if !transfers.IsInterrupted(err) {
			return err
		}
		d.log.WithError(err).WithField("request", r.Code).Debug("device dropped off the bus")
	}
	if err := d.closeLocked(); err != nil {
		d.log.WithError(err).Debug("close after restart")
	}
	return nil
}
