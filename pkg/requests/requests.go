package requests

import "fmt"

type RequestType uint8

const (
	// vendor request addressed to an interface, device to host
	RequestTypeVendorInterfaceGetRequest RequestType = 0b11000001
	// vendor request addressed to an interface, host to device
	RequestTypeVendorInterfaceSetRequest RequestType = 0b01000001
)

func (rt RequestType) In() bool {
	return rt&0x80 != 0
}

type RequestCode uint8

const (
	RequestCodeUndefined      RequestCode = 0x00
	RequestCodeFrameSize      RequestCode = 0x01
	RequestCodeFrameDump      RequestCode = 0x02
	RequestCodeFrameLock      RequestCode = 0x03
	RequestCodeFrameUpdate    RequestCode = 0x04
	RequestCodeScriptExec     RequestCode = 0x05
	RequestCodeScriptStop     RequestCode = 0x06
	RequestCodeScriptSave     RequestCode = 0x07
	RequestCodeTemplateSave   RequestCode = 0x08
	RequestCodeDescriptorSave RequestCode = 0x09
	RequestCodeAttrRead       RequestCode = 0x0A
	RequestCodeAttrWrite      RequestCode = 0x0B
	RequestCodeSysReset       RequestCode = 0x0C
	RequestCodeSysBoot        RequestCode = 0x0D
)

func (rc RequestCode) String() string {
	switch rc {
	case RequestCodeFrameSize:
		return "frame size"
	case RequestCodeFrameDump:
		return "frame dump"
	case RequestCodeFrameLock:
		return "frame lock"
	case RequestCodeFrameUpdate:
		return "frame update"
	case RequestCodeScriptExec:
		return "script exec"
	case RequestCodeScriptStop:
		return "script stop"
	case RequestCodeScriptSave:
		return "script save"
	case RequestCodeTemplateSave:
		return "template save"
	case RequestCodeDescriptorSave:
		return "descriptor save"
	case RequestCodeAttrRead:
		return "attribute read"
	case RequestCodeAttrWrite:
		return "attribute write"
	case RequestCodeSysReset:
		return "system reset"
	case RequestCodeSysBoot:
		return "system boot"
	default:
		return fmt.Sprintf("request 0x%02x", uint8(rc))
	}
}
