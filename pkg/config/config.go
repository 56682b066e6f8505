package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kevmo314/go-openmv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the command line tools.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Capture CaptureConfig `yaml:"capture"`
	Logging LoggingConfig `yaml:"logging"`

	path string
}

type DeviceConfig struct {
	VendorID    uint16 `yaml:"vendor_id"`
	ProductID   uint16 `yaml:"product_id"`
	Interface   uint8  `yaml:"interface"`
	AltSetting  uint8  `yaml:"alt_setting"`
	EndpointIn  uint8  `yaml:"endpoint_in"`
	EndpointOut uint8  `yaml:"endpoint_out"`
	TimeoutMS   int    `yaml:"timeout_ms"`
	ChunkSize   int    `yaml:"chunk_size"`
}

type CaptureConfig struct {
	IntervalMS int    `yaml:"interval_ms"` // delay between frame reads
	OutputDir  string `yaml:"output_dir"`
	Format     string `yaml:"format"` // "png", "bmp" or "raw"
	Count      int    `yaml:"count"`
	Scale      int    `yaml:"scale"` // viewer window scale factor
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			VendorID:    openmv.VendorID,
			ProductID:   openmv.ProductID,
			Interface:   openmv.Interface,
			AltSetting:  openmv.AltSetting,
			EndpointIn:  openmv.EndpointIn,
			EndpointOut: openmv.EndpointOut,
			TimeoutMS:   int(openmv.DefaultTimeout / time.Millisecond),
			ChunkSize:   16 * 1024,
		},
		Capture: CaptureConfig{
			IntervalMS: 100,
			OutputDir:  ".",
			Format:     "png",
			Count:      10,
			Scale:      3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads path over the defaults and then applies OPENMV_*
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logrus.WithField("path", path).Debug("no config file, using defaults")
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
			logrus.WithField("path", path).Debug("config loaded")
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Path() string {
	return c.path
}

// applyEnvOverrides reads OPENMV_VID, OPENMV_PID, OPENMV_TIMEOUT_MS,
// OPENMV_CHUNK_SIZE, OPENMV_INTERVAL_MS, OPENMV_OUTPUT_DIR, OPENMV_FORMAT and
// OPENMV_LOG_LEVEL.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("OPENMV_VID"); v != "" {
		n, err := strconv.ParseUint(v, 0, 16)
		if err != nil {
			return fmt.Errorf("OPENMV_VID: %w", err)
		}
		c.Device.VendorID = uint16(n)
	}
	if v := os.Getenv("OPENMV_PID"); v != "" {
		n, err := strconv.ParseUint(v, 0, 16)
		if err != nil {
			return fmt.Errorf("OPENMV_PID: %w", err)
		}
		c.Device.ProductID = uint16(n)
	}
	if v := os.Getenv("OPENMV_TIMEOUT_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OPENMV_TIMEOUT_MS: %w", err)
		}
		c.Device.TimeoutMS = n
	}
	if v := os.Getenv("OPENMV_CHUNK_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OPENMV_CHUNK_SIZE: %w", err)
		}
		c.Device.ChunkSize = n
	}
	if v := os.Getenv("OPENMV_INTERVAL_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OPENMV_INTERVAL_MS: %w", err)
		}
		c.Capture.IntervalMS = n
	}
	if v := os.Getenv("OPENMV_OUTPUT_DIR"); v != "" {
		c.Capture.OutputDir = v
	}
	if v := os.Getenv("OPENMV_FORMAT"); v != "" {
		c.Capture.Format = strings.ToLower(v)
	}
	if v := os.Getenv("OPENMV_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Device.TimeoutMS) * time.Millisecond
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.Capture.IntervalMS) * time.Millisecond
}

// LogLevel falls back to info for unknown names.
func (c *Config) LogLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// DeviceOptions converts the device section into options for openmv.Open.
func (c *Config) DeviceOptions(logger logrus.FieldLogger) []openmv.Option {
	return []openmv.Option{
		openmv.WithVendorProduct(c.Device.VendorID, c.Device.ProductID),
		openmv.WithInterface(c.Device.Interface, c.Device.AltSetting),
		openmv.WithEndpoints(c.Device.EndpointIn, c.Device.EndpointOut),
		openmv.WithTimeout(c.Timeout()),
		openmv.WithChunkSize(c.Device.ChunkSize),
		openmv.WithLogger(logger),
	}
}
