package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/image/draw"

	"github.com/gdamore/tcell/v2"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/kevmo314/go-openmv"
	"github.com/kevmo314/go-openmv/pkg/analysis"
	"github.com/kevmo314/go-openmv/pkg/config"
	"github.com/kevmo314/go-openmv/pkg/descriptors"
	"github.com/rivo/tview"
	"github.com/sirupsen/logrus"
)

type Display struct {
	frame atomic.Value
}

func (g *Display) Update() error {
	return nil
}

func (g *Display) Draw(screen *ebiten.Image) {
	screen.DrawImage(g.frame.Load().(*ebiten.Image), &ebiten.DrawImageOptions{})
}

func (g *Display) Layout(outsideWidth, outsideHeight int) (int, int) {
	frame := g.frame.Load().(*ebiten.Image)
	return frame.Bounds().Dx(), frame.Bounds().Dy()
}

var attributes = []descriptors.Attribute{
	descriptors.AttributeContrast,
	descriptors.AttributeBrightness,
	descriptors.AttributeSaturation,
	descriptors.AttributeGainCeiling,
}

func main() {
	configPath := flag.String("config", "openmv.yaml", "path to the config file")
	render := flag.Bool("render", false, "render the frames to screen (higher performance but requires a display)")
	script := flag.String("script", "", "script to run before capturing")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel())

	dev, err := openmv.Open(cfg.DeviceOptions(logger)...)
	if err != nil {
		panic(err)
	}
	defer dev.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *script != "" {
		buf, err := os.ReadFile(*script)
		if err != nil {
			panic(err)
		}
		if err := dev.ExecScript(ctx, buf); err != nil {
			panic(err)
		}
	}

	app := tview.NewApplication()

	commands := tview.NewList().ShowSecondaryText(false)
	commands.SetBorder(true).SetTitle("Commands")

	attrs := tview.NewList()
	attrs.SetBorder(true).SetTitle("Attributes")

	firstColumn := tview.NewFlex().SetDirection(tview.FlexRow).AddItem(commands, 0, 1, true).AddItem(attrs, 0, 1, false)

	info := tview.NewTextView()
	info.SetBorder(true).SetTitle("Frame")

	secondColumn := tview.NewFlex().SetDirection(tview.FlexRow).AddItem(info, 0, 1, false)

	preview := tview.NewImage()
	preview.SetColors(256).SetDithering(tview.DitheringNone).SetBorder(true).SetTitle("Preview")

	logText := tview.NewTextView()
	logText.SetMaxLines(10).SetBorder(true).SetTitle("Log")

	logger.SetOutput(logText)

	// prompt swaps an input field into the second column and hands the
	// entered text to done.
	prompt := func(label string, done func(text string)) {
		input := tview.NewInputField()
		input.SetLabel(label).
			SetFieldWidth(24).
			SetDoneFunc(func(key tcell.Key) {
				if key == tcell.KeyEnter {
					done(input.GetText())
				}
				secondColumn.RemoveItem(input)
				app.SetFocus(commands)
			})
		secondColumn.AddItem(input, 3, 0, false)
		app.SetFocus(input)
	}

	saveRegion := func(kind string, save func(context.Context, *descriptors.RegionDescriptor) error) func() {
		return func() {
			prompt(fmt.Sprintf("%s (x y w h path): ", kind), func(text string) {
				region := &descriptors.RegionDescriptor{}
				if _, err := fmt.Sscanf(text, "%d %d %d %d %s", &region.X, &region.Y, &region.W, &region.H, &region.Path); err != nil {
					logger.Errorf("failed parsing region %q: %s", text, err)
					return
				}
				if err := save(ctx, region); err != nil {
					logger.Errorf("%s save failed: %s", kind, err)
					return
				}
				logger.Infof("%s saved to %s", kind, region.Path)
			})
		}
	}

	commands.AddItem("Stop Script", "", 's', func() {
		if err := dev.StopScript(ctx); err != nil {
			logger.Errorf("stop failed: %s", err)
		}
	})
	commands.AddItem("Frame Update", "", 'u', func() {
		if err := dev.FrameUpdate(ctx); err != nil {
			logger.Errorf("frame update failed: %s", err)
		}
	})
	commands.AddItem("Save Template", "", 't', saveRegion("template", dev.SaveTemplate))
	commands.AddItem("Save Descriptor", "", 'd', saveRegion("descriptor", dev.SaveDescriptor))
	commands.AddItem("Reset", "", 'r', func() {
		if err := dev.Reset(ctx); err != nil {
			logger.Errorf("reset failed: %s", err)
			return
		}
		app.Stop()
	})
	commands.AddItem("Enter Bootloader", "", 'b', func() {
		if err := dev.EnterBootloader(ctx); err != nil {
			logger.Errorf("bootloader request failed: %s", err)
			return
		}
		app.Stop()
	})
	commands.AddItem("Quit", "", 'q', app.Stop)

	refreshAttrs := func() {
		for i, attr := range attributes {
			v, err := dev.GetAttribute(ctx, attr)
			secondary := strconv.Itoa(v)
			if err != nil {
				secondary = err.Error()
			}
			attrs.SetItemText(i, attr.String(), secondary)
		}
	}
	for _, attr := range attributes {
		attrs.AddItem(attr.String(), "", 0, func() {
			prompt(fmt.Sprintf("%s (-128..127): ", attr), func(text string) {
				v, err := strconv.Atoi(text)
				if err != nil {
					logger.Errorf("failed parsing value %s", err)
					return
				}
				if err := dev.SetAttribute(ctx, attr, v); err != nil {
					logger.Errorf("attribute write failed %s", err)
					return
				}
				refreshAttrs()
			})
		})
	}
	refreshAttrs()

	g := &Display{}
	go func() {
		t0 := time.Now().Add(-1 * time.Second)
		for ctx.Err() == nil {
			frame, err := dev.ReadFrame(ctx)
			if errors.Is(err, openmv.ErrNotReady) {
				time.Sleep(cfg.Interval())
				continue
			} else if errors.Is(err, openmv.ErrClosed) {
				return
			} else if err != nil {
				logger.Errorf("error reading frame: %s", err)
				time.Sleep(cfg.Interval())
				continue
			}

			if *render {
				if g.frame.Swap(ebiten.NewImageFromImage(frame)) == nil {
					go func() {
						if err := ebiten.RunGame(g); err != nil {
							logger.Errorf("ebiten error: %s", err)
						}
					}()
				}
			}

			t1 := time.Now()
			if t1.Sub(t0) < 250*time.Millisecond {
				continue
			}
			t0 = t1

			stats := fmt.Sprintf("Size: %dx%d\nFormat: %s\nFocus: %.3f\nLuminance: %.1f\n",
				frame.Width, frame.Height, formatName(frame.Format),
				analysis.FocusScore(frame.RGB), analysis.MeanLuminance(frame.RGB))
			var thumb image.Image
			if w, h, ok := thumbnailSize(frame.Width, frame.Height, 64); ok && !*render {
				thumb = resize(frame, w, h)
			}
			app.QueueUpdateDraw(func() {
				info.SetText(stats)
				if thumb != nil {
					preview.SetImage(thumb)
				}
			})
		}
	}()

	flex := tview.NewFlex().
		AddItem(firstColumn, 0, 1, true).
		AddItem(secondColumn, 0, 1, false)

	if !*render {
		flex.AddItem(preview, 0, 3, false)
	}

	if err := app.SetRoot(tview.NewFlex().SetDirection(tview.FlexRow).AddItem(flex, 0, 1, true).AddItem(logText, 10, 0, false), true).Run(); err != nil {
		panic(err)
	}
}

// thumbnailSize scales width x height to the given width, keeping the aspect
// ratio. It reports false for empty frames.
func thumbnailSize(width, height, w int) (int, int, bool) {
	if width <= 0 || height <= 0 {
		return 0, 0, false
	}
	h := height * w / width
	if h < 1 {
		h = 1
	}
	return w, h, true
}

func resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

func formatName(format uint32) string {
	fsd := descriptors.FrameSizeDescriptor{Format: format}
	return fsd.FormatString()
}
