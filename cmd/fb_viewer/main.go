package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"github.com/kevmo314/go-openmv"
	"github.com/kevmo314/go-openmv/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
	"golang.org/x/sync/errgroup"
)

func main() {
	runtime.LockOSThread() // SDL requires main thread

	configPath := flag.String("config", "openmv.yaml", "path to the config file")
	scale := flag.Int("scale", 0, "window scale factor (overrides config)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logrus.SetLevel(cfg.LogLevel())
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if *scale > 0 {
		cfg.Capture.Scale = *scale
	}
	if cfg.Capture.Scale <= 0 {
		cfg.Capture.Scale = 1
	}

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		logrus.Fatalf("Failed to init SDL: %v", err)
	}
	defer sdl.Quit()

	dev, err := openmv.Open(cfg.DeviceOptions(logrus.StandardLogger())...)
	if err != nil {
		logrus.Fatalf("Failed to open device: %v", err)
	}
	defer dev.Close()

	window, err := sdl.CreateWindow("OpenMV Framebuffer",
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(160*cfg.Capture.Scale), int32(120*cfg.Capture.Scale), sdl.WINDOW_SHOWN)
	if err != nil {
		logrus.Fatalf("Failed to create window: %v", err)
	}
	defer window.Destroy()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		logrus.Fatalf("Failed to create renderer: %v", err)
	}
	defer renderer.Destroy()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var latest *openmv.Frame

	g.Go(func() error {
		var lastLog time.Time
		var frameCount int
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(cfg.Interval()):
			}

			frame, err := dev.ReadFrame(ctx)
			if errors.Is(err, openmv.ErrNotReady) {
				continue
			} else if errors.Is(err, openmv.ErrClosed) {
				return err
			} else if err != nil {
				logrus.WithError(err).Warn("frame read failed")
				continue
			}

			mu.Lock()
			latest = frame
			mu.Unlock()

			frameCount++
			if time.Since(lastLog) >= time.Second {
				logrus.Debugf("Capture FPS: %d", frameCount)
				frameCount = 0
				lastLog = time.Now()
			}
		}
	})

	var texture *sdl.Texture
	var texW, texH int
	defer func() {
		if texture != nil {
			texture.Destroy()
		}
	}()

	running := true
	for running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch event.(type) {
			case *sdl.QuitEvent:
				running = false
			}
		}
		select {
		case <-ctx.Done():
			running = false
		default:
		}

		mu.Lock()
		frame := latest
		latest = nil
		mu.Unlock()

		if frame != nil && frame.Width > 0 && frame.Height > 0 {
			if texture == nil || texW != frame.Width || texH != frame.Height {
				if texture != nil {
					texture.Destroy()
				}
				texture, err = renderer.CreateTexture(sdl.PIXELFORMAT_RGB24,
					sdl.TEXTUREACCESS_STREAMING, int32(frame.Width), int32(frame.Height))
				if err != nil {
					logrus.Fatalf("Failed to create texture: %v", err)
				}
				texW, texH = frame.Width, frame.Height
				window.SetSize(int32(texW*cfg.Capture.Scale), int32(texH*cfg.Capture.Scale))
				logrus.Infof("Frame size %dx%d", texW, texH)
			}
			texture.Update(nil, unsafe.Pointer(&frame.Pix[0]), frame.Stride)
		}

		renderer.Clear()
		if texture != nil {
			renderer.Copy(texture, nil, nil)
		}
		renderer.Present()

		sdl.Delay(10)
	}

	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logrus.Errorf("Capture stopped: %v", err)
	}
}
