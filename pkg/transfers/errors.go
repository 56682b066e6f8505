package transfers

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/kevmo314/go-openmv/pkg/requests"
	usb "github.com/kevmo314/go-usb"
)

var (
	ErrTransport     = errors.New("transport error")
	ErrShortTransfer = errors.New("short transfer")
)

// TransportError is returned for any failed control or bulk transfer.
type TransportError struct {
	Op   string
	Code requests.RequestCode
	Err  error
}

func (e *TransportError) Error() string {
	if e.Code == requests.RequestCodeUndefined {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s (%s) failed: %v", e.Op, e.Code, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// IsInterrupted reports whether err looks like the device went away or
// stopped answering mid-request, which is what a reset or a jump to the
// bootloader produces.
func IsInterrupted(err error) bool {
	switch {
	case errors.Is(err, usb.ErrTimeout),
		errors.Is(err, usb.ErrNoDevice),
		errors.Is(err, usb.ErrPipe),
		errors.Is(err, syscall.ETIMEDOUT),
		errors.Is(err, syscall.ENODEV),
		errors.Is(err, syscall.ESHUTDOWN),
		errors.Is(err, syscall.EPROTO),
		errors.Is(err, syscall.EPIPE):
		return true
	}
	return false
}
