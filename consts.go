package openmv

import "time"

// Identity of the debug interface exposed by the camera firmware.
const (
	VendorID  uint16 = 0xf055
	ProductID uint16 = 0x9800

	Interface  uint8 = 0
	AltSetting uint8 = 1

	EndpointIn  uint8 = 0x81
	EndpointOut uint8 = 0x01
)

const DefaultTimeout = 3000 * time.Millisecond
