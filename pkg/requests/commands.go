package requests

import (
	"errors"
	"fmt"
	"math"

	"github.com/kevmo314/go-openmv/pkg/descriptors"
)

var ErrPayloadTooLarge = errors.New("payload too large")

// Request is a single vendor control transfer, optionally followed by a bulk
// write of Payload on the OUT endpoint.
type Request struct {
	Type  RequestType
	Code  RequestCode
	Value uint16
	Index uint16
	// Length is the number of bytes expected in the data stage of an IN
	// request. OUT requests in this protocol never carry a data stage.
	Length  int
	Payload []byte
}

func (r *Request) String() string {
	return fmt.Sprintf("%s (type=0x%02x value=0x%04x index=%d length=%d payload=%d)",
		r.Code, uint8(r.Type), r.Value, r.Index, r.Length, len(r.Payload))
}

func get(iface uint8, code RequestCode, value uint16, length int) *Request {
	return &Request{
		Type:   RequestTypeVendorInterfaceGetRequest,
		Code:   code,
		Value:  value,
		Index:  uint16(iface),
		Length: length,
	}
}

func set(iface uint8, code RequestCode, value uint16) *Request {
	return &Request{
		Type:  RequestTypeVendorInterfaceSetRequest,
		Code:  code,
		Value: value,
		Index: uint16(iface),
	}
}

// withPayload announces the payload length in wValue.
func withPayload(iface uint8, code RequestCode, payload []byte) (*Request, error) {
	if len(payload) > math.MaxUint16 {
		return nil, fmt.Errorf("%s payload of %d bytes: %w", code, len(payload), ErrPayloadTooLarge)
	}
	r := set(iface, code, uint16(len(payload)))
	r.Payload = payload
	return r, nil
}

func FrameSize(iface uint8) *Request {
	return get(iface, RequestCodeFrameSize, 0, descriptors.FrameSizeDescriptorSize)
}

func FrameLock(iface uint8) *Request {
	return get(iface, RequestCodeFrameLock, 0, descriptors.FrameLockResponseSize)
}

// FrameDump tells the firmware to stream numBytes on the IN endpoint. The
// firmware counts in 32-bit words, so any remainder is dropped from wValue.
// The request itself has a zero-length data stage.
func FrameDump(iface uint8, numBytes int) (*Request, error) {
	if numBytes < 0 {
		return nil, fmt.Errorf("negative frame dump size %d", numBytes)
	}
	words := numBytes / 4
	if words > math.MaxUint16 {
		return nil, fmt.Errorf("frame dump of %d bytes: %w", numBytes, ErrPayloadTooLarge)
	}
	return get(iface, RequestCodeFrameDump, uint16(words), 0), nil
}

func FrameUpdate(iface uint8) *Request {
	return set(iface, RequestCodeFrameUpdate, 0)
}

func ScriptExec(iface uint8, script []byte) (*Request, error) {
	return withPayload(iface, RequestCodeScriptExec, script)
}

func ScriptStop(iface uint8) *Request {
	return set(iface, RequestCodeScriptStop, 0)
}

func TemplateSave(iface uint8, region *descriptors.RegionDescriptor) (*Request, error) {
	buf, err := region.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return withPayload(iface, RequestCodeTemplateSave, buf)
}

func DescriptorSave(iface uint8, region *descriptors.RegionDescriptor) (*Request, error) {
	buf, err := region.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return withPayload(iface, RequestCodeDescriptorSave, buf)
}

func AttributeRead(iface uint8, attr descriptors.Attribute) (*Request, error) {
	if attr < 0 || attr > math.MaxInt8 {
		return nil, fmt.Errorf("attribute %d: %w", int(attr), descriptors.ErrAttributeRange)
	}
	return get(iface, RequestCodeAttrRead, uint16(attr), 1), nil
}

func AttributeWrite(iface uint8, attr descriptors.Attribute, value int) (*Request, error) {
	aw := &descriptors.AttributeWrite{Attribute: attr, Value: value}
	v, err := aw.Uint16Value()
	if err != nil {
		return nil, err
	}
	return set(iface, RequestCodeAttrWrite, v), nil
}

func SystemReset(iface uint8) *Request {
	return set(iface, RequestCodeSysReset, 0)
}

func SystemBoot(iface uint8) *Request {
	return set(iface, RequestCodeSysBoot, 0)
}
