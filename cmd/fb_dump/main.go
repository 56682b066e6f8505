package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kevmo314/go-openmv"
	"github.com/kevmo314/go-openmv/pkg/analysis"
	"github.com/kevmo314/go-openmv/pkg/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/bmp"
)

func main() {
	configPath := flag.String("config", "openmv.yaml", "path to the config file")
	count := flag.Int("n", 0, "number of frames to capture (overrides config)")
	format := flag.String("format", "", "output format: png, bmp or raw (overrides config)")
	out := flag.String("out", "", "output directory (overrides config)")
	timeout := flag.Duration("wait", 10*time.Second, "give up waiting for a frame after this long")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logrus.SetLevel(cfg.LogLevel())
	if *count > 0 {
		cfg.Capture.Count = *count
	}
	if *format != "" {
		cfg.Capture.Format = *format
	}
	if *out != "" {
		cfg.Capture.OutputDir = *out
	}

	session := uuid.New()
	log := logrus.WithField("session", session.String())

	dev, err := openmv.Open(cfg.DeviceOptions(log)...)
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	defer dev.Close()

	if err := os.MkdirAll(cfg.Capture.OutputDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	for i := 0; i < cfg.Capture.Count; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		rf, err := waitFrame(ctx, dev, cfg.Interval())
		cancel()
		if err != nil {
			log.Fatalf("Failed to read frame %d: %v", i, err)
		}

		name := filepath.Join(cfg.Capture.OutputDir, fmt.Sprintf("%s-%03d", session, i))
		path, err := save(name, cfg.Capture.Format, rf)
		if err != nil {
			log.Fatalf("Failed to save frame %d: %v", i, err)
		}
		log.WithField("size", rf.Size.String()).Infof("Saved %s", path)
	}
}

func waitFrame(ctx context.Context, dev *openmv.Device, interval time.Duration) (*openmv.RawFrame, error) {
	for {
		rf, err := dev.ReadRawFrame(ctx)
		if !errors.Is(err, openmv.ErrNotReady) {
			return rf, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// save writes JPEG payloads untouched when asked for raw output.
func save(name, format string, rf *openmv.RawFrame) (string, error) {
	if format == "raw" {
		ext := ".bin"
		if rf.Size.Compressed() {
			ext = ".jpg"
		}
		return name + ext, os.WriteFile(name+ext, rf.Data, 0o644)
	}

	frame, err := rf.Decode()
	if err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{
		"focus":     fmt.Sprintf("%.3f", analysis.FocusScore(frame.RGB)),
		"luminance": fmt.Sprintf("%.1f", analysis.MeanLuminance(frame.RGB)),
	}).Debug("frame stats")

	path := name + "." + format
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	switch format {
	case "bmp":
		err = bmp.Encode(f, frame)
	case "png":
		err = png.Encode(f, frame)
	default:
		err = fmt.Errorf("unknown output format %q", format)
	}
	return path, err
}
