package transfers

import (
	"time"
)

// Transport is the subset of a USB device handle the debug protocol needs.
// *usb.DeviceHandle from github.com/kevmo314/go-usb satisfies it.
type Transport interface {
	ControlTransfer(requestType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error)
	BulkTransfer(endpoint uint8, data []byte, timeout time.Duration) (int, error)
}
