package openmv

import (
	"time"

	"github.com/kevmo314/go-openmv/pkg/transfers"
	"github.com/sirupsen/logrus"
)

// Options configures how a Device finds and talks to the camera.
type Options struct {
	VendorID  uint16
	ProductID uint16

	Interface  uint8
	AltSetting uint8

	EndpointIn  uint8
	EndpointOut uint8

	// Timeout applies to every control and bulk transfer.
	Timeout time.Duration

	// ChunkSize caps a single bulk IN transfer while dumping a frame.
	ChunkSize int

	Logger logrus.FieldLogger
}

func defaultOptions() Options {
	return Options{
		VendorID:    VendorID,
		ProductID:   ProductID,
		Interface:   Interface,
		AltSetting:  AltSetting,
		EndpointIn:  EndpointIn,
		EndpointOut: EndpointOut,
		Timeout:     DefaultTimeout,
		ChunkSize:   transfers.DefaultChunkSize,
		Logger:      logrus.StandardLogger(),
	}
}

type Option func(*Options)

func WithVendorProduct(vid, pid uint16) Option {
	return func(o *Options) {
		o.VendorID = vid
		o.ProductID = pid
	}
}

func WithInterface(iface, altSetting uint8) Option {
	return func(o *Options) {
		o.Interface = iface
		o.AltSetting = altSetting
	}
}

func WithEndpoints(in, out uint8) Option {
	return func(o *Options) {
		o.EndpointIn = in
		o.EndpointOut = out
	}
}

// WithTimeout ignores non-positive durations.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		if timeout > 0 {
			o.Timeout = timeout
		}
	}
}

// WithChunkSize ignores non-positive sizes.
func WithChunkSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.ChunkSize = size
		}
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}
