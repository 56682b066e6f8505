package openmv

import (
	"errors"
	"fmt"

	"github.com/kevmo314/go-openmv/pkg/decode"
	"github.com/kevmo314/go-openmv/pkg/descriptors"
	"github.com/kevmo314/go-openmv/pkg/requests"
	"github.com/kevmo314/go-openmv/pkg/transfers"
)

var (
	ErrDeviceNotFound    = errors.New("openmv device not found")
	ErrNotReady          = errors.New("frame not ready")
	ErrMalformedResponse = errors.New("malformed response")
	ErrClosed            = errors.New("device closed")

	ErrTransport         = transfers.ErrTransport
	ErrCorruptImage      = decode.ErrCorruptImage
	ErrSizeMismatch      = decode.ErrSizeMismatch
	ErrUnsupportedFormat = decode.ErrUnsupportedFormat
	ErrShortBuffer       = decode.ErrShortBuffer
	ErrAttributeRange    = descriptors.ErrAttributeRange
	ErrPayloadTooLarge   = requests.ErrPayloadTooLarge

	errInvalidFormat = errors.New("frame format 0 after a granted lock")
)

type TransportError = transfers.TransportError

// MalformedResponseError is returned when a control response has the wrong
// length or carries a value the protocol does not allow.
type MalformedResponseError struct {
	Code requests.RequestCode
	Want int
	Got  int
	Err  error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s response (%d bytes, want %d): %v", e.Code, e.Got, e.Want, e.Err)
	}
	return fmt.Sprintf("malformed %s response (%d bytes, want %d)", e.Code, e.Got, e.Want)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}
